package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/founder-dashboard/internal/adapter/generator"
	"github.com/arturoeanton/founder-dashboard/internal/adapter/store"
	"github.com/arturoeanton/founder-dashboard/internal/middleware"
	"github.com/arturoeanton/founder-dashboard/internal/port"
	"github.com/arturoeanton/founder-dashboard/internal/service"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.MigrateUp(loadConfig().DatabaseURL)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return store.MigrateDown(loadConfig().DatabaseURL, migrateSteps)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		version, dirty, err := store.MigrationVersion(loadConfig().DatabaseURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Session maintenance",
}

var sessionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgStore.Close()

		authService := service.NewAuthService(nil, pgStore, pgStore, nil, middleware.JWTConfig{}, cfg.SessionTTL)
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		n, err := authService.PruneSessions(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired sessions\n", n)
		return nil
	},
}

var promptsCmd = &cobra.Command{
	Use:   "prompts [file]",
	Short: "Validate a prompt catalog (the embedded one when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		cat, err := generator.LoadCatalog(path)
		if err != nil {
			return err
		}
		// Build parses the templates and fallbacks; no provider is needed for that.
		if _, err := generator.Build(cat, port.LLMRegistry{}); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, g := range cat.Generators {
			fmt.Fprintf(out, "%-20s %-9s %-10s %s\n", g.Name, g.Provider, g.Format, g.Description)
		}
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	sessionsCmd.AddCommand(sessionsPruneCmd)
}
