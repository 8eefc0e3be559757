package main

import (
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sznuper/linkguard/internal/config"
)

// registerOptionFlags adds a persistent --flag for every field in config.Options,
// deriving the flag name from the yaml struct tag (snake_case → kebab-case).
func registerOptionFlags(cmd *cobra.Command) {
	t := reflect.TypeOf(config.Options{})
	for i := range t.NumField() {
		yamlTag := t.Field(i).Tag.Get("yaml")
		cmd.PersistentFlags().String(flagName(yamlTag), "", "override options."+yamlTag)
	}
}

// applyOptionFlags overlays CLI flag values onto the config. Only flags
// explicitly set by the user are applied.
func applyOptionFlags(cmd *cobra.Command, cfg *config.Config) {
	t := reflect.TypeOf(cfg.Options)
	v := reflect.ValueOf(&cfg.Options).Elem()
	for i := range t.NumField() {
		name := flagName(t.Field(i).Tag.Get("yaml"))
		if cmd.Flags().Changed(name) {
			val, _ := cmd.Flags().GetString(name)
			v.Field(i).SetString(val)
		}
	}
}

func flagName(yamlTag string) string {
	return strings.ReplaceAll(yamlTag, "_", "-")
}
