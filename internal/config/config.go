package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/a8m/envsubst"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Options   Options            `yaml:"options"`
	Globals   map[string]any     `yaml:"globals"`
	Files     Files              `yaml:"files"`
	Probe     Probe              `yaml:"probe"`
	Speedtest Speedtest          `yaml:"speedtest"`
	Relay     Relay              `yaml:"relay"`
	Trigger   Trigger            `yaml:"trigger"`
	Email     Email              `yaml:"email"`
	Services  map[string]Service `yaml:"services" validate:"dive"`
	Notify    []NotifyTarget     `yaml:"notify" validate:"dive"`
	Template  string             `yaml:"template"`

	// path is the file the config was loaded from.
	path string
}

// Options are plain string settings that can be overridden from the command
// line. Every field becomes a --kebab-case flag.
type Options struct {
	Interface string `yaml:"interface"`
	DataDir   string `yaml:"data_dir"`
	RelayPin  string `yaml:"relay_pin"`
	LogLevel  string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// Files lists the files a run reads and writes. Relative paths resolve
// against options.data_dir.
type Files struct {
	MACList         string   `yaml:"mac_list"`
	MACCursor       string   `yaml:"mac_cursor"`
	Log             string   `yaml:"log"`
	PrimaryResult   string   `yaml:"primary_result"`
	SecondaryScript string   `yaml:"secondary_script"`
	SecondaryResult string   `yaml:"secondary_result"`
	Attachments     []string `yaml:"attachments"`
}

type Probe struct {
	Target        string `yaml:"target" validate:"omitempty,hostname|ip"`
	Count         int    `yaml:"count" validate:"gte=0"`
	Timeout       string `yaml:"timeout" validate:"omitempty,duration"`
	PollInterval  string `yaml:"poll_interval" validate:"omitempty,duration"`
	SettleTimeout string `yaml:"settle_timeout" validate:"omitempty,duration"`
}

type Speedtest struct {
	PrimaryCommand []string `yaml:"primary_command"`
	Node           string   `yaml:"node"`
	Timeout        string   `yaml:"timeout" validate:"omitempty,duration"`
}

type Relay struct {
	Disabled      bool   `yaml:"disabled"`
	Pulse         string `yaml:"pulse" validate:"omitempty,duration"`
	ActiveLow     bool   `yaml:"active_low"`
	PostResetWait string `yaml:"post_reset_wait" validate:"omitempty,duration"`
}

type Trigger struct {
	Interval string `yaml:"interval" validate:"omitempty,duration"`
	Cron     string `yaml:"cron" validate:"omitempty,cron"`
	Watch    string `yaml:"watch"`
}

type Email struct {
	Host     string     `yaml:"host"`
	Port     int        `yaml:"port" validate:"omitempty,min=1,max=65535"`
	SSL      bool       `yaml:"ssl"`
	Username string     `yaml:"username"`
	Password string     `yaml:"password"`
	From     string     `yaml:"from" validate:"omitempty,email"`
	To       Recipients `yaml:"to" validate:"dive,email"`
	Subject  string     `yaml:"subject"`
}

// Enabled reports whether enough is configured to attempt delivery.
func (e Email) Enabled() bool {
	return e.Username != "" && len(e.To) > 0
}

type Service struct {
	URL    string            `yaml:"url" validate:"required"`
	Params map[string]string `yaml:"params"`
}

// Recipients handles a single address string or a list of addresses.
type Recipients []string

func (r *Recipients) UnmarshalYAML(unmarshal func(any) error) error {
	var str string
	if err := unmarshal(&str); err == nil {
		if str == "" {
			*r = nil
			return nil
		}
		*r = Recipients{str}
		return nil
	}

	var list []string
	if err := unmarshal(&list); err != nil {
		return fmt.Errorf("to: must be an address string or a list of addresses")
	}
	*r = list
	return nil
}

// NotifyTarget handles a plain service name string or an object with overrides.
type NotifyTarget struct {
	Service  string            `yaml:"service" validate:"required"`
	Template string            `yaml:"template"`
	Params   map[string]string `yaml:"params"`
}

func (n *NotifyTarget) UnmarshalYAML(unmarshal func(any) error) error {
	var str string
	if err := unmarshal(&str); err == nil {
		n.Service = str
		return nil
	}

	type notifyAlias NotifyTarget
	var obj notifyAlias
	if err := unmarshal(&obj); err != nil {
		return fmt.Errorf("notify: must be a service name string or an object with service/template/params")
	}
	*n = NotifyTarget(obj)
	return nil
}

// Load reads path, loads a sibling .env file into the environment (without
// overriding variables that are already set), expands ${VAR} references and
// parses the YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	data, err = envsubst.Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("expanding env vars: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.path = path

	return &cfg, nil
}

// Source returns the file the config was loaded from.
func (c *Config) Source() string { return c.path }

// Path resolves p against options.data_dir. Absolute and empty paths are
// returned unchanged.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Options.DataDir, p)
}

// Attachments returns the result files plus any extra attachments, resolved.
func (c *Config) Attachments() []string {
	paths := []string{c.Path(c.Files.PrimaryResult), c.Path(c.Files.SecondaryResult)}
	for _, a := range c.Files.Attachments {
		paths = append(paths, c.Path(a))
	}
	return append(paths, c.Path(c.Files.Log))
}

// Duration parses s, returning def when s is empty or invalid. Validate
// rejects invalid values before they get here.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
