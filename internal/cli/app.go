package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"payments_ledger/internal/config"
	"payments_ledger/internal/ledgerio"
	"payments_ledger/internal/repository/sqlite"
	"payments_ledger/internal/service"
	"payments_ledger/pkg/crypto"
	"payments_ledger/pkg/metrics"
)

// loadConfig reads the config file and lays explicitly set flags over it.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Ledger.Workers = opts.workers
	}
	if flags.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if flags.Changed("sqlite") {
		cfg.Output.SQLitePath = opts.sqlitePath
	}
	if flags.Changed("sign-key") {
		cfg.Output.SignKey = opts.signKey
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = opts.metricsTextfile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = opts.addr
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger writes to w, which is stderr for every command since stdout
// carries the ledger.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level: level,
	}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// app holds the collaborators shared by the batch and serve commands.
type app struct {
	ledgers *service.LedgerService
	metrics *metrics.MetricsCollector
	close   func() error
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	collector := metrics.NewMetricsCollector(logger)
	svcOpts := []service.Option{
		service.WithObserver(collector),
		service.WithRecorder(collector),
		service.WithWorkers(cfg.Ledger.Workers),
	}

	if cfg.Output.SignKey != "" {
		signer, err := crypto.NewSigner(cfg.Output.SignKey, logger)
		if err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithSigner(signer))
	}

	closeFn := func() error { return nil }
	if cfg.Output.SQLitePath != "" {
		store, err := sqlite.Open(cfg.Output.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithStore(store))
		closeFn = store.Close
	}

	return &app{
		ledgers: service.NewLedgerService(logger, svcOpts...),
		metrics: collector,
		close:   closeFn,
	}, nil
}

func runLedger(cmd *cobra.Command, opts *options, path string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	format, err := ledgerio.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open transactions: %w", err)
	}
	defer f.Close()

	report, err := a.ledgers.Run(cmd.Context(), f, format)
	if err != nil {
		return err
	}

	if _, err := cmd.OutOrStdout().Write(report.Body); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}

	if report.Signature != "" {
		logger.Info("Ledger signed",
			slog.String("run_id", report.RunID.String()),
			slog.String("signature", report.Signature))
	}

	if cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return err
		}
	}
	return nil
}
