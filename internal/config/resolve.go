package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultInterval = "3h"
	DefaultSubject  = "Relatório de Teste de Conexão ({{ globals.hostname }})"
	DefaultTemplate = "{{ run.status_emoji }} {{ globals.hostname }}: {{ run.status }}\n{{ range reports }}{{ .timestamp }} {{ .label }} | {{ .result }}\n{{ end }}"
)

// DefaultConfigPaths returns the search order for config files.
func DefaultConfigPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "linkguard", "config.yaml"))
	}
	paths = append(paths, "/etc/linkguard/config.yaml")
	return paths
}

// Resolve loads the config from the given explicit path, or searches the
// default locations, then fills in defaults. options.data_dir defaults to the
// directory holding the config file.
func Resolve(explicit string) (*Config, error) {
	path, err := findConfig(explicit)
	if err != nil {
		return nil, err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if cfg.Options.DataDir == "" {
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, fmt.Errorf("resolving data dir: %w", err)
		}
		cfg.Options.DataDir = dir
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every unset field with its default and sets
// globals.hostname from os.Hostname() when missing.
func (c *Config) ApplyDefaults() error {
	if c.Globals == nil {
		c.Globals = make(map[string]any)
	}
	if _, ok := c.Globals["hostname"]; !ok {
		h, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("resolving hostname: %w", err)
		}
		c.Globals["hostname"] = h
	}

	o := &c.Options
	setDefault(&o.Interface, "eth0")
	setDefault(&o.RelayPin, "GPIO17")
	setDefault(&o.LogLevel, "info")

	f := &c.Files
	setDefault(&f.MACList, "mac.txt")
	setDefault(&f.MACCursor, "mac_index.txt")
	setDefault(&f.Log, "connection_log.csv")
	setDefault(&f.PrimaryResult, "ookla_result.json")
	setDefault(&f.SecondaryScript, "test.js")
	setDefault(&f.SecondaryResult, "result.json")
	if f.Attachments == nil {
		f.Attachments = []string{"results.csv"}
	}

	p := &c.Probe
	setDefault(&p.Target, "8.8.8.8")
	if p.Count == 0 {
		p.Count = 3
	}
	setDefault(&p.Timeout, "2s")
	setDefault(&p.PollInterval, "3s")
	setDefault(&p.SettleTimeout, "90s")

	s := &c.Speedtest
	if len(s.PrimaryCommand) == 0 {
		s.PrimaryCommand = []string{"speedtest", "--accept-license", "--accept-gdpr", "-f", "json"}
	}
	setDefault(&s.Node, "node")
	setDefault(&s.Timeout, "5m")

	setDefault(&c.Relay.Pulse, "30s")
	setDefault(&c.Relay.PostResetWait, "90s")

	t := &c.Trigger
	if t.Interval == "" && t.Cron == "" && t.Watch == "" {
		t.Interval = DefaultInterval
	}

	e := &c.Email
	setDefault(&e.Host, "smtp.gmail.com")
	if e.Port == 0 {
		e.Port = 587
	}
	setDefault(&e.From, e.Username)
	setDefault(&e.Subject, DefaultSubject)

	setDefault(&c.Template, DefaultTemplate)
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func findConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched %v)", DefaultConfigPaths())
}
