package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sznuper/linkguard/internal/config"
	"github.com/sznuper/linkguard/internal/notify"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long:  "Loads and validates the config, checks notification service URLs and prints the resolved file paths.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(cfg.Services))
		for name := range cfg.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			svc := cfg.Services[name]
			if err := notify.Validate(notify.Target{ServiceName: name, URL: svc.URL, Params: svc.Params}); err != nil {
				return err
			}
		}

		fmt.Println(okStyle.Render("✓ " + cfg.Source()))
		printPaths(cfg)
		if !cfg.Email.Enabled() {
			fmt.Println(warnStyle.Render("  email not configured, summaries will not be mailed"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func printPaths(cfg *config.Config) {
	rows := []struct{ name, path string }{
		{"mac list", cfg.Path(cfg.Files.MACList)},
		{"mac cursor", cfg.Path(cfg.Files.MACCursor)},
		{"connection log", cfg.Path(cfg.Files.Log)},
		{"ookla result", cfg.Path(cfg.Files.PrimaryResult)},
		{"js script", cfg.Path(cfg.Files.SecondaryScript)},
		{"js result", cfg.Path(cfg.Files.SecondaryResult)},
	}
	for _, r := range rows {
		state := ""
		if _, err := os.Stat(r.path); err != nil {
			state = dimStyle.Render(" (missing)")
		}
		fmt.Printf("  %-15s %s%s\n", r.name+":", r.path, state)
	}
	fmt.Printf("  %-15s %s\n", "interface:", cfg.Options.Interface)
	if cfg.Relay.Disabled {
		fmt.Printf("  %-15s disabled\n", "relay:")
	} else {
		fmt.Printf("  %-15s %s, pulse %s\n", "relay:", cfg.Options.RelayPin, cfg.Relay.Pulse)
	}
}
