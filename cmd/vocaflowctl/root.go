package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vocaflow/internal/config"
	"vocaflow/internal/database"
	"vocaflow/internal/logger"
	"vocaflow/migrations"
)

var rootCmd = &cobra.Command{
	Use:          "vocaflowctl",
	Short:        "Maintenance tasks for a vocaflow database",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(clearUsersCmd)
	rootCmd.AddCommand(seedWordsCmd)
	rootCmd.AddCommand(modelsCmd)
}

// env is what every database command needs
type env struct {
	cfg *config.Config
	db  *database.DB
	log logrus.FieldLogger
}

// openEnv loads configuration, connects and brings the schema up to date
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg := config.Load()
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	fsys, err := migrations.For(db.Dialect.MigrationsSubdir(), cfg.MigrationsPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to locate migrations: %w", err)
	}
	if _, err := db.RunMigrations(fsys); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &env{cfg: cfg, db: db, log: log}, nil
}

func (e *env) Close() {
	e.db.Close()
}
