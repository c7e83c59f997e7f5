package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/skilltree/internal/api"
	"github.com/matzehuels/skilltree/pkg/clipboard"
)

// shutdownTimeout bounds graceful shutdown after the context is cancelled.
const shutdownTimeout = 10 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr        string
	noClipboard bool
	noMetrics   bool
}

// serveCommand creates the serve command that hosts sessions over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve editing sessions over HTTP",
		Long: `Start the HTTP server. Sessions are created with POST /api/sessions
and edited through JSON endpoints; changes are announced on a server-sent
event stream per session. Idle sessions are closed after server.session_idle.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.addr, "addr", "a", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&opts.noClipboard, "no-clipboard", false, "disable the clipboard endpoints")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "disable /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	var board *clipboard.Board
	if !opts.noClipboard {
		if board, err = c.openBoard(ctx, ""); err != nil {
			return fmt.Errorf("open clipboard: %w", err)
		}
		defer board.Close()
	}

	var metrics *api.Metrics
	if cfg.Server.Metrics && !opts.noMetrics {
		metrics = api.NewMetrics()
		metrics.Install()
	}

	srv := api.New(api.Options{
		Sessions: cfg.SessionOptions(),
		Tick:     cfg.Editor.Tick.Duration,
		Board:    board,
		Metrics:  metrics,
		Logger:   logger,
	})
	defer srv.Close()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	idle := cfg.Server.SessionIdle.Duration
	go srv.RunCleanup(ctx, idle, idle/4)

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.Serve(ln) }()

	attrs := []any{"addr", ln.Addr().String(), "metrics", metrics != nil}
	if board != nil {
		attrs = append(attrs, "clipboard", board.Backend().Name())
	}
	logger.Info("serving", attrs...)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "err", err)
		httpSrv.Close()
	}
	return nil
}
