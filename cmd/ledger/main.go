// Command ledger records personal expenses and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
)

// app is the state shared by every subcommand once the root pre-run has finished.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	metrics *metrics.Ledger
	ledger  *cli.Ledger

	flags struct {
		backend  string
		dbPath   string
		key      string
		logLevel string
		symbol   string
		pageSize int
	}
}

func main() {
	a := &app{}
	err := newRootCmd(a).ExecuteContext(context.Background())
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ledger",
		Short:         "Record, query and export personal expenses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: memory, sqlite or redis (env STORAGE_BACKEND)")
	pf.StringVar(&a.flags.dbPath, "db", "", "SQLite database path (env SQLITE_DB_PATH)")
	pf.StringVar(&a.flags.key, "key", "", "storage key the ledger is kept under (env STORAGE_KEY)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	pf.StringVar(&a.flags.symbol, "currency", "", "currency symbol for display (env CURRENCY_SYMBOL)")
	pf.IntVar(&a.flags.pageSize, "page-size", 0, "rows per page (env PAGE_SIZE)")

	root.AddCommand(
		addCmd(a),
		listCmd(a),
		searchCmd(a),
		onCmd(a),
		deleteCmd(a),
		copyCmd(a),
		clearCmd(a),
		serveCmd(a),
		watchCmd(a),
	)
	return root
}

// open loads configuration, applies flag overrides and assembles the store.
func (a *app) open(cmd *cobra.Command) error {
	cli.LoadEnvFile()
	flags := cmd.Flags()
	cfg, err := cli.LoadAndValidateConfig(func(cfg *config.Config) {
		if flags.Changed("backend") {
			cfg.StorageBackend = strings.ToLower(a.flags.backend)
		}
		if flags.Changed("db") {
			cfg.SQLiteDBPath = a.flags.dbPath
		}
		if flags.Changed("key") {
			cfg.StorageKey = a.flags.key
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = a.flags.logLevel
		}
		if flags.Changed("currency") {
			cfg.CurrencySymbol = a.flags.symbol
		}
		if flags.Changed("page-size") {
			cfg.PageSize = a.flags.pageSize
		}
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentCLI)
	a.metrics = metrics.New()

	ledger, err := cli.OpenLedger(cmd.Context(), cfg, a.logger, a.metrics)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	a.ledger = ledger
	return nil
}

func (a *app) close() error {
	if a.ledger == nil {
		return nil
	}
	err := a.ledger.Close()
	a.ledger = nil
	return err
}
