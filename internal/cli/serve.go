package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RevCBH/guardian/internal/metrics"
	"github.com/RevCBH/guardian/internal/server"
)

// ServeOptions holds flags for the serve command
type ServeOptions struct {
	Addr string
	DB   string
}

// NewServeCmd creates the serve command
func NewServeCmd(app *App) *cobra.Command {
	opts := ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the delivery dispatcher as an HTTP service",
		Long: `Serve answers POST /v1/alerts by notifying one tier of the user's trusted
contacts over email and SMS. Clients running "guardian alert --remote"
escalate through it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "Contacts database path (overrides store.path)")

	return cmd
}

// RunServe starts the dispatcher service and blocks until a signal or a
// serve failure.
func (a *App) RunServe(ctx context.Context, opts ServeOptions) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.DB != "" {
		cfg.Store.Path = opts.DB
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, nil)
	if err != nil {
		return err
	}
	defer logger.Sync()

	m := metrics.New()
	d, err := WireDispatch(cfg, logger, m)
	if err != nil {
		return err
	}
	defer d.Close()

	srv, err := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		MaxBodyBytes:   int64(cfg.Server.MaxBodyMB) << 20,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Release:        !a.verbose,
	}, server.Dependencies{
		Notifier: d.Dispatcher,
		Metrics:  m,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := NewSignalHandler(cancel, logger)
	handler.Start()
	defer handler.Stop()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))
	case err, ok := <-srv.Err():
		if ok && err != nil {
			serveErr = fmt.Errorf("serve: %w", err)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}
