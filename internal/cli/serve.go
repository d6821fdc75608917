package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"payments_ledger/internal/api"
	"payments_ledger/internal/config"
)

func newServeCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger HTTP API",
		Long: `Starts an HTTP server that builds a ledger for every transaction CSV posted
to /api/v1/ledgers. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, cmd.ErrOrStderr())

			ln, err := net.Listen("tcp", cfg.Server.Addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
			}
			return serve(cmd.Context(), ln, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "Address to listen on")
	return cmd
}

// serve runs the API on ln until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		ln.Close()
		return err
	}
	defer a.close()

	readTimeout, writeTimeout, shutdownTimeout := cfg.Server.Timeouts()
	handler := api.NewAPIHandler(a.ledgers, a.metrics.Handler(), cfg.Server.MaxBodyBytes, logger)
	server := &http.Server{
		Handler:      handler.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  2 * readTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
		return err
	}
	logger.Info("HTTP server stopped")
	return nil
}
