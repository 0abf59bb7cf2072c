// Package cmd implements the finmail command line.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"finmail/internal/config"
	"finmail/internal/db"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "finmail",
	Short: "Financial email dashboard server",
	Long: `finmail serves the JSON API behind the financial email dashboard:
emails with amounts and categories, labels, attachments, dashboard
aggregates and CSV export.

Configuration is read from a YAML file (see config/finmail.example.yaml)
and can be overridden with PORT, FINMAIL_DB_DRIVER, FINMAIL_DB_DSN,
FINMAIL_SESSION_SECRET and FINMAIL_LOG_LEVEL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		logger = cfg.Log.NewLogger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

// ExecuteContext runs the root command. Cancelling ctx stops long running
// commands such as serve.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// openDB opens the configured database, creating the schema if needed.
func openDB(ctx context.Context) (*db.DB, error) {
	logger.Debug("opening database", "driver", cfg.Database.Driver)
	database, err := db.Init(ctx, cfg.Database.Driver, cfg.Database.DSN, db.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return database, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/finmail.yaml", "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
