package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/migrate"
)

type app struct {
	dir  string
	cfg  *config.Config
	logg *logger.Logger
}

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{logg: logger.New(logger.Options{ServiceName: "migrate"})}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the library database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.dir, "dir", migrate.DefaultDir, "goose migrations directory")

	root.AddCommand(
		a.gooseCommand("up", "Apply all pending migrations"),
		a.gooseCommand("down", "Roll back the latest migration"),
		a.gooseCommand("status", "Print migration status"),
		a.versionCommand(),
		a.createCommand(),
		a.validateCommand(),
		a.seedAdminCommand(),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	a.logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	return nil
}

// withDB loads config, opens the database and hands fn the raw handle.
func (a *app) withDB(ctx context.Context, fn func(ctx context.Context, client *db.Client, sqlDB *sql.DB) error) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	client, err := db.New(ctx, a.cfg.DB, a.logg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}
	ctx = a.logg.WithFields(ctx, map[string]any{"env": a.cfg.App.Env, "dir": a.dir, "driver": a.cfg.DB.Driver})
	a.logg.Info(ctx, "migrate ready")
	return fn(ctx, client, sqlDB)
}

func (a *app) gooseCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, _ *db.Client, sqlDB *sql.DB) error {
				return migrate.Run(ctx, sqlDB, a.cfg.DB.Driver, a.dir, name)
			})
		},
	}
}

func (a *app) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to the given version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, _ *db.Client, sqlDB *sql.DB) error {
				return migrate.MigrateToVersion(ctx, sqlDB, a.cfg.DB.Driver, a.dir, args[0])
			})
		},
	}
}

func (a *app) createCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Scaffold a new SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := migrate.CreateSQLMigration(a.dir, args[0])
			if err != nil {
				return fmt.Errorf("create migration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "created migration:", path)
			return nil
		},
	}
}

func (a *app) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check migration files for naming and goose annotations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := migrate.ValidateDir(a.dir); err != nil {
				return fmt.Errorf("migration validation failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration validation passed")
			return nil
		},
	}
}
