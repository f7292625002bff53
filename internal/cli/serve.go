package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/adapters/mcp"
	"github.com/aretw0/arbor/pkg/definition"
	"github.com/aretw0/arbor/pkg/host"
	"github.com/aretw0/arbor/pkg/runner"
)

// ServeOptions configures the serve command.
type ServeOptions struct {
	// Def is a definition file, or a directory whose definitions are hosted side by side.
	Def string
	Out io.Writer
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, cfg config.Config, opts ServeOptions, logger *slog.Logger) error {
	f, err := NewFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Ping(ctx); err != nil {
		return err
	}

	info, err := os.Stat(opts.Def)
	if err != nil {
		return fmt.Errorf("definition: %w", err)
	}

	serverOpts := []arborhttp.Option{arborhttp.WithVersion(arbor.Version)}
	if m := f.Metrics(); m != nil {
		serverOpts = append(serverOpts, arborhttp.WithMetrics(m))
	}

	var (
		handler  http.Handler
		shutdown func(context.Context) error
		what     string
	)
	if info.IsDir() {
		reg, err := hostDir(f, opts.Def, logger, serverOpts)
		if err != nil {
			return err
		}
		handler, shutdown = reg.Handler(), reg.Shutdown
		what = fmt.Sprintf("%d apps from %s", len(reg.Names()), opts.Def)
	} else {
		d, err := definition.Load(opts.Def)
		if err != nil {
			return err
		}
		streams := arborhttp.NewStreamManager(logger)
		app := f.App(d, arbor.WithDispatcher(streams))
		serverOpts = append(serverOpts, arborhttp.WithLogger(logger), arborhttp.WithStreams(streams))
		handler = arborhttp.NewServer(app, serverOpts...)
		what = d.Title
	}

	out := writerOr(opts.Out)
	err = runner.Serve(ctx, handler, listenOptions(cfg, logger, func(addr string) {
		printSystemMessage(out, "Serving %s on http://%s", what, addr)
	})...)

	if shutdown != nil {
		sctx, cancel := context.WithTimeout(context.Background(), runner.DefaultShutdownTimeout)
		defer cancel()
		if serr := shutdown(sctx); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

func hostDir(f *Factory, dir string, logger *slog.Logger, serverOpts []arborhttp.Option) (*host.Registry, error) {
	defs, err := definition.All(definition.NewDir(dir))
	if err != nil {
		return nil, err
	}
	reg := host.NewRegistry(
		host.WithLogger(logger),
		host.WithServerOptions(serverOpts...),
		host.WithAttach(f.Options),
	)
	for _, d := range defs {
		opts := append(f.Options(d.Name), arbor.WithTitle(d.Title))
		if _, err := reg.Add(d.Name, d.Def, opts...); err != nil {
			return nil, err
		}
	}
	if len(defs) == 0 {
		logger.Info("No definitions found, waiting for attached apps", "dir", dir)
	}
	return reg, nil
}

// AttachOptions configures serve --attach.
type AttachOptions struct {
	// Host is the base URL of a running `arbor serve <dir>`.
	Host string
	Def  string
	Out  io.Writer
}

// Attach registers a definition file with a running host instead of listening.
// An unreachable host fails with domain.ErrServiceUnavailable.
func Attach(ctx context.Context, opts AttachOptions) error {
	d, err := definition.Load(opts.Def)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(opts.Def)
	if err != nil {
		return fmt.Errorf("failed to read definition: %w", err)
	}
	appURL, err := host.Attach(ctx, opts.Host, d.Name, data)
	if err != nil {
		return fmt.Errorf("attach %s to %s: %w", d.Name, opts.Host, err)
	}
	printSystemMessage(writerOr(opts.Out), "Attached %q at %s", d.Title, appURL)
	return nil
}

// ServeMCP exposes one definition over MCP, on stdio or SSE.
func ServeMCP(ctx context.Context, cfg config.Config, defPath, transport string, logger *slog.Logger) error {
	f, err := NewFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer f.Close()

	d, err := definition.Load(defPath)
	if err != nil {
		return err
	}
	srv := mcp.NewServer(f.App(d), arbor.Version, mcp.WithLogger(logger))

	switch transport {
	case "stdio":
		return srv.ServeStdio()
	case "sse":
		return srv.ServeSSE(ctx, cfg.Port, runner.WithHost(cfg.Host))
	default:
		return fmt.Errorf("unknown transport %q (stdio|sse)", transport)
	}
}

func listenOptions(cfg config.Config, logger *slog.Logger, onListen func(string)) []runner.Option {
	return []runner.Option{
		runner.WithHost(cfg.Host),
		runner.WithPortRange(cfg.Port, cfg.Attempts),
		runner.WithLogger(logger),
		runner.WithOnListen(onListen),
		runner.WithShutdownTimeout(runner.DefaultShutdownTimeout),
	}
}

func writerOr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
