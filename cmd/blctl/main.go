// Package main implements the blctl CLI for operational tasks against the
// buildledger database: schema migration, user creation, and bulk cost
// imports.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/buildledger/internal/config"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/store"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "blctl",
	Short:   "Operational CLI for buildledger",
	Long:    `blctl runs administrative tasks directly against the buildledger database.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(importCmd)
}

// openStore loads config and connects to the database. The caller owns the
// returned store.
func openStore(ctx context.Context) (*store.Store, *config.Config, *logging.Logger, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	// Console output for an interactive tool.
	cfg.Logging.Format = "console"
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	st, err := store.Open(ctx, cfg.Database, logger.Underlying())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return st, cfg, logger, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply all pending schema migrations to the configured database.

Examples:
  blctl migrate --config /etc/buildledger/config.yaml
  BUILDLEDGER_DATABASE_DSN=postgres://... blctl migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		st, _, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(); err != nil {
			return err
		}
		fmt.Println("migrations applied")
		return nil
	},
}
