// Package main provides the ambiance CLI entry point: an HTTP server for
// the intent-resolution API, a catalog liveness probe, an interactive chat
// client and a one-shot resolve command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ambiance/internal/config"
	"ambiance/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ambiance",
	Short: "ambiance - storytelling sound and theme resolver",
	Long: `ambiance turns a running conversation into an audio and visual scene.

A message history is classified against two fixed catalogs, ambient sound
tracks and UI color themes, by a language-model call with constrained
output. The chosen track crossfades in, the chosen theme repaints the
client, and the advanced history carries context into the next turn.

Run "ambiance serve" for the HTTP API or "ambiance chat" for the
interactive client.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The chat UI owns the terminal; keep zap quiet there.
		if cmd.Name() == "chat" {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// loadConfig loads the YAML config and brings up category logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.DebugMode = true
	}
	if err := logging.Initialize(".ambiance", cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.Boot("%s %s starting", cfg.Name, cfg.Version)
	return cfg, nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ambiance.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(chatCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
