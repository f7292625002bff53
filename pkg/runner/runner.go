package runner

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Listen binds the first free port in [firstPort, firstPort+attempts). It returns an
// error wrapping domain.ErrPortExhaustion when every port is taken.
func Listen(host string, firstPort, attempts int) (net.Listener, error) {
	if firstPort == 0 {
		return net.Listen("tcp", net.JoinHostPort(host, "0"))
	}
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for port := firstPort; port < firstPort+attempts; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s ports %d-%d: %v", domain.ErrPortExhaustion, host, firstPort, firstPort+attempts-1, lastErr)
}

// Serve runs handler until ctx ends, then shuts down gracefully.
func Serve(ctx context.Context, handler http.Handler, opts ...Option) error {
	cfg := newConfig(opts)
	ln, err := Listen(cfg.Host, cfg.FirstPort, cfg.Attempts)
	if err != nil {
		return err
	}
	srv := newServer(handler, ln, cfg)
	errCh := srv.start()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		cfg.Logger.Info("Shutting down", "addr", ln.Addr().String())
		return srv.stop()
	}
}

// Completer is an app that captures a single submission.
type Completer interface {
	ports.Engine
	Done() <-chan domain.Store
}

// RunOnce serves app until its submission is captured and returns the captured
// Store. Its pages carry a completion control (WithSubmit(DefaultSubmitLabel) unless
// overridden through WithServerOptions). The listener is released before RunOnce returns, whatever the outcome.
// It returns domain.ErrTimeoutExceeded when Config.Timeout elapses first.
func RunOnce(ctx context.Context, app Completer, opts ...Option) (domain.Store, error) {
	cfg := newConfig(opts)
	ln, err := Listen(cfg.Host, cfg.FirstPort, cfg.Attempts)
	if err != nil {
		return nil, err
	}
	serverOpts := append([]arborhttp.Option{arborhttp.WithSubmit(DefaultSubmitLabel)}, cfg.ServerOptions...)
	srv := newServer(arborhttp.NewServer(app, serverOpts...), ln, cfg)
	errCh := srv.start()
	defer srv.stop()

	var timeout <-chan time.Time
	if cfg.Timeout > 0 {
		timer := time.NewTimer(cfg.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case store := <-app.Done():
		cfg.Logger.Info("Submission captured", "app", app.Name())
		if err := srv.stop(); err != nil {
			cfg.Logger.Warn("Shutdown incomplete", "err", err)
		}
		return store, nil
	case <-timeout:
		return nil, fmt.Errorf("%w after %s", domain.ErrTimeoutExceeded, cfg.Timeout)
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type server struct {
	http     *http.Server
	ln       net.Listener
	cfg      Config
	stopOnce sync.Once
	stopErr  error
}

func newServer(handler http.Handler, ln net.Listener, cfg Config) *server {
	return &server{
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln:  ln,
		cfg: cfg,
	}
}

func (s *server) start() <-chan error {
	errCh := make(chan error, 1)
	addr := s.ln.Addr().String()
	go func() {
		if err := s.http.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.cfg.Logger.Info("Listening", "addr", addr)
	if s.cfg.OnListen != nil {
		s.cfg.OnListen(addr)
	}
	return errCh
}

// stop releases the listener exactly once, waiting for in-flight requests.
func (s *server) stop() error {
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.stopErr = s.http.Shutdown(ctx)
	})
	return s.stopErr
}
