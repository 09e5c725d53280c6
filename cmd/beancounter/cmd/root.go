// Package cmd provides CLI commands for beancounter.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancounter/pkg/config"
	"github.com/shunichi-ikebuchi/beancounter/pkg/ledger"
	"github.com/shunichi-ikebuchi/beancounter/pkg/pathutil"
	"github.com/shunichi-ikebuchi/beancounter/pkg/storage"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "beancounter",
	Short: "Track accounts, bills and transfers against bank records",
	Long: `beancounter is a CLI tool that keeps a personal ledger of accounts,
deposits, bills and transfers, and tracks which of them the bank has
already recorded.

It supports:
- Entering deposits, bills and transfers, optionally recurring
- Recording bank confirmation per side of a transaction
- Projected and recorded balances per account
- Exporting to monthly Beancount files without duplicates

Example:
  beancounter account add checking --balance 1000
  beancounter bill checking 89.99 --date 2024-01-30
  beancounter export --dry-run`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debug)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(depositCmd)
	rootCmd.AddCommand(billCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
}

// setupLogging installs the default text logger on stderr.
func setupLogging(debug bool) {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// Helper function to get config file path.
func getConfigFile() string {
	if cfgFile != "" {
		return cfgFile
	}
	return "" // Will use default .env loading
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}

// loadSettings loads and validates the configuration and resolves paths.
func loadSettings() (*config.Config, *pathutil.PathResolver) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	// DEBUG=true in the environment or .env enables debug logging too
	if cfg.Debug && !debug {
		debug = true
		setupLogging(debug)
	}

	if err := cfg.Validate(
		[]string{"ledger", "root"},
		[]string{"ledger", "store"},
	); err != nil {
		exitOnError(err, "invalid configuration")
	}

	resolver := pathutil.New(pathutil.Config{
		Root:        cfg.Ledger.Root,
		Store:       cfg.Ledger.Store,
		LedgerPath:  cfg.Ledger.Path,
		HistoryPath: cfg.Ledger.HistoryPath,
		MappingPath: cfg.Beancount.MappingPath,
	})
	return cfg, resolver
}

// session is an open ledger together with the store it came from.
type session struct {
	cfg      *config.Config
	resolver *pathutil.PathResolver
	store    storage.Store
	ledger   *ledger.Ledger
}

// openSession loads the configured ledger. A ledger that was never saved
// starts out empty.
func openSession(ctx context.Context) *session {
	cfg, resolver := loadSettings()

	slog.Debug("Opening ledger", "store", cfg.Ledger.Store, "path", resolver.LedgerPath())
	store, err := storage.Open(cfg.Ledger.Store, resolver.LedgerPath())
	exitOnError(err, "failed to open ledger store")

	l, err := storage.LoadOrNew(ctx, store)
	if err != nil {
		store.Close()
		exitOnError(err, "failed to load ledger")
	}

	return &session{cfg: cfg, resolver: resolver, store: store, ledger: l}
}

func (s *session) save(ctx context.Context) {
	exitOnError(s.store.Save(ctx, s.ledger), "failed to save ledger")
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close ledger store", "error", err)
	}
}
