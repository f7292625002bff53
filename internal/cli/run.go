package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/config"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/definition"
	"github.com/aretw0/arbor/pkg/runner"
)

// RunOptions configures the one-shot run command.
type RunOptions struct {
	Def string
	// Out receives the captured Store as JSON.
	Out io.Writer
	// Notice receives the URL to open. Defaults to stderr so Out stays parseable.
	Notice io.Writer
}

// RunOnce serves def until it is submitted once and prints the captured Store.
func RunOnce(ctx context.Context, cfg config.Config, opts RunOptions, logger *slog.Logger) error {
	d, err := definition.Load(opts.Def)
	if err != nil {
		return err
	}
	f, err := NewFactory(cfg, logger)
	if err != nil {
		return err
	}
	defer f.Close()

	notice := opts.Notice
	if notice == nil {
		notice = os.Stderr
	}
	runOpts := append(listenOptions(cfg, logger, func(addr string) {
		printSystemMessage(notice, "Open http://%s to fill in %q", addr, d.Title)
	}), runner.WithTimeout(cfg.Timeout))
	if d.Submit != "" {
		runOpts = append(runOpts, runner.WithServerOptions(arborhttp.WithSubmit(d.Submit)))
	}

	store, err := runner.RunOnce(ctx, f.App(d), runOpts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(writerOr(opts.Out))
	enc.SetIndent("", "  ")
	if err := enc.Encode(store); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
