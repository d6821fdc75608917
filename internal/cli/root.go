// Package cli implements the ledger command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// ErrMissingFile is reported when no transaction file is given.
var ErrMissingFile = errors.New("missing csv file argument")

type options struct {
	configPath      string
	format          string
	workers         int
	sqlitePath      string
	metricsTextfile string
	signKey         string
	logLevel        string
	addr            string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ledger [flags] FILE",
		Short: "Replay a transaction file into per-client balances",
		Long: `Reads a CSV of deposits, withdrawals, disputes, resolves and chargebacks,
applies them in file order and writes one balance row per client to stdout.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return ErrMissingFile
			}
			return runLedger(cmd, opts, args[0])
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a TOML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().IntVar(&opts.workers, "workers", 1, "Number of parallel client shards")
	cmd.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "Export each ledger to this SQLite file")
	cmd.PersistentFlags().StringVar(&opts.signKey, "sign-key", "", "HMAC key used to sign rendered ledgers")

	cmd.Flags().StringVar(&opts.format, "format", "csv", "Output format: csv or json")
	cmd.Flags().StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")

	cmd.AddCommand(newServeCommand(opts))
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, ErrMissingFile) {
			fmt.Fprintln(stderr, "Missing csv file argument")
		} else {
			fmt.Fprintf(stderr, "an error occurred: %v\n", err)
		}
		return 1
	}
	return 0
}
