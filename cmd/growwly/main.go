// Command growwly runs the progress tracker server and a small terminal
// client for it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"growwly/internal/config"
	"growwly/internal/logger"
)

var (
	// Global flags
	configPath string
	debug      bool

	cfg config.Config
)

// version is set by -ldflags at release time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "growwly",
	Short: "Growwly daily progress tracker",
	Long: `Growwly records daily progress entries, computes streaks and period
statistics, and hosts a community chat with realtime updates.

Run "growwly serve" to start the server, or use the client commands
against a running server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		loaded, err := config.Load(configPath, config.Default())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if debug {
			loaded.Log.Debug = true
		}
		cfg = loaded

		return logger.Init(logger.Config{
			Debug:  cfg.Log.Debug,
			Dir:    cfg.Log.Dir,
			Stderr: cmd.Name() == "serve",
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the growwly version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "growwly", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("GROWWLY_CONFIG"), "path to config.toml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")

	rootCmd.AddCommand(serveCmd, statsCmd, chatCmd, versionCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
