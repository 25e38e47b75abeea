// Package cli defines the resonance command tree.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/config"
	"github.com/resonance-audio/resonance/internal/logger"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel string
	logFile  string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "resonance",
		Short:         "Resonance is a shared music library with a terminal player.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "log file, empty string disables file logging")

	root.AddCommand(
		newServeCmd(&flags),
		newPlayCmd(&flags),
		newUploadCmd(&flags),
	)
	return root
}

// Execute runs the command tree and exits on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Log.File = flags.logFile
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig, console io.Writer) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:      cfg.Level,
		File:       cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
		Console:    console,
	})
}
