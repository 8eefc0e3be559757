package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sznuper/linkguard/internal/config"
	"github.com/sznuper/linkguard/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "linkguard",
	Short: "Connectivity monitor with MAC rotation and modem reset",
	Long: "Linkguard probes an uplink, runs speed tests, power-cycles the modem through a relay " +
		"and mails a summary with the result files attached. Configuration is a single YAML file.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "init" || cmd.Name() == "validate" {
			return
		}
		if os.Geteuid() != 0 {
			fmt.Fprintln(os.Stderr, warnStyle.Render("warning: not running as root, mac changes and gpio access will likely fail"))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	registerOptionFlags(rootCmd)
}

// loadConfig resolves the config file, overlays option flags and validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Resolve(cfgFile)
	if err != nil {
		return nil, err
	}
	applyOptionFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(level string) *slog.Logger {
	logger := logging.New(level, os.Stderr)
	slog.SetDefault(logger)
	return logger
}
