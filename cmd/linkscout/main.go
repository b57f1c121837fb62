// Command linkscout finds and ranks pages that explain how a system is
// designed.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/FranksOps/linkscout/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "linkscout",
	Short: "Discover and rank system design write-ups for a topic",
	Long: `linkscout searches the web for articles that explain how a system is
designed, filters out video, social and paywalled hosts, scores what is left
and optionally verifies the best candidates by fetching them.

Configuration is read from linkscout.yaml (or --config) and LINKSCOUT_*
environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.LogLevel = logLevel
		}
		lvl, err := c.Level()
		if err != nil {
			return err
		}

		cfg = c
		logger = newLogger(os.Stderr, lvl, c.LogFormat)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./linkscout.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	rootCmd.AddCommand(discoverCmd, serveCmd, runsCmd)
}

func newLogger(w io.Writer, lvl slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
