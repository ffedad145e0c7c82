package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arturoeanton/founder-dashboard/pkg/config"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:           "founder-dashboard",
	Short:         "Founder dashboard backend: profiles, AI generators and auth",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd, migrateCmd, sessionsCmd, promptsCmd)
}

// loadConfig reads .env (if present) and the environment.
func loadConfig() *config.Config {
	_ = godotenv.Load()
	return config.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
