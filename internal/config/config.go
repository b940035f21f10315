package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyprpal/autolayout/internal/actionkey"
	"github.com/hyprpal/autolayout/internal/screen"
)

// Polling interval bounds in seconds.
const (
	MinPollingSeconds     = 2
	MaxPollingSeconds     = 60
	DefaultPollingSeconds = 4
)

// DefaultMultiExternalAction is used when multiExternalActionId is absent.
const DefaultMultiExternalAction = "RestoreDefaultLayout"

const defaultNotificationTimeoutMs = 4000

// Config is the top-level configuration document.
type Config struct {
	Enabled                bool            `yaml:"enabled"`
	ShowNotifications      bool            `yaml:"showNotifications"`
	PollingSeconds         int             `yaml:"pollingSeconds"`
	LaptopActionID         string          `yaml:"laptopActionId"`
	SingleExternalActionID string          `yaml:"singleExternalActionId"`
	MultiExternalActionID  string          `yaml:"multiExternalActionId"`
	NotificationTimeoutMs  int             `yaml:"notificationTimeoutMs"`
	LayoutsFile            string          `yaml:"layoutsFile"`
	Dispatch               string          `yaml:"dispatch"`
	Actions                []ActionConfig  `yaml:"actions"`
	Profiles               MatcherProfiles `yaml:"profiles"`
	Telemetry              TelemetryConfig `yaml:"telemetry"`
}

// TelemetryConfig toggles the in-memory counters exposed over the control socket.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Enabled:               true,
		ShowNotifications:     true,
		PollingSeconds:        DefaultPollingSeconds,
		MultiExternalActionID: DefaultMultiExternalAction,
		NotificationTimeoutMs: defaultNotificationTimeoutMs,
		Telemetry:             TelemetryConfig{Enabled: true},
	}
}

// UnmarshalYAML applies defaults for absent keys. An explicitly empty
// multiExternalActionId stays empty.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		Enabled                *bool           `yaml:"enabled"`
		ShowNotifications      *bool           `yaml:"showNotifications"`
		PollingSeconds         *int            `yaml:"pollingSeconds"`
		LaptopActionID         string          `yaml:"laptopActionId"`
		SingleExternalActionID string          `yaml:"singleExternalActionId"`
		MultiExternalActionID  *string         `yaml:"multiExternalActionId"`
		NotificationTimeoutMs  *int            `yaml:"notificationTimeoutMs"`
		LayoutsFile            string          `yaml:"layoutsFile"`
		Dispatch               string          `yaml:"dispatch"`
		Actions                []ActionConfig  `yaml:"actions"`
		Profiles               MatcherProfiles `yaml:"profiles"`
		Telemetry              *struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"telemetry"`
	}

	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*c = *Default()
	if raw.Enabled != nil {
		c.Enabled = *raw.Enabled
	}
	if raw.ShowNotifications != nil {
		c.ShowNotifications = *raw.ShowNotifications
	}
	if raw.PollingSeconds != nil {
		c.PollingSeconds = *raw.PollingSeconds
	}
	if raw.MultiExternalActionID != nil {
		c.MultiExternalActionID = *raw.MultiExternalActionID
	}
	if raw.NotificationTimeoutMs != nil {
		c.NotificationTimeoutMs = *raw.NotificationTimeoutMs
	}
	c.LaptopActionID = raw.LaptopActionID
	c.SingleExternalActionID = raw.SingleExternalActionID
	c.LayoutsFile = raw.LayoutsFile
	c.Dispatch = raw.Dispatch
	c.Actions = raw.Actions
	c.Profiles = raw.Profiles
	if raw.Telemetry != nil && raw.Telemetry.Enabled != nil {
		c.Telemetry.Enabled = *raw.Telemetry.Enabled
	}
	return nil
}

// MatcherProfiles defines reusable client matcher templates by name.
type MatcherProfiles map[string]MatcherConfig

// UnmarshalYAML ensures profile names are unique and values are parsed correctly.
func (p *MatcherProfiles) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*p = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("profiles must be a mapping")
	}
	result := make(map[string]MatcherConfig, len(value.Content)/2)
	seen := map[string]struct{}{}
	for i := 0; i < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return fmt.Errorf("profile name must be a string")
		}
		name := keyNode.Value
		if _, exists := seen[name]; exists {
			return fmt.Errorf("duplicate profile %q", name)
		}
		seen[name] = struct{}{}
		var cfg MatcherConfig
		if err := valNode.Decode(&cfg); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		result[name] = cfg
	}
	*p = result
	return nil
}

// MatcherConfig describes a client matcher. Profile refers to a named entry
// in MatcherProfiles and excludes the other fields.
type MatcherConfig struct {
	Profile    string   `yaml:"profile,omitempty"`
	Class      string   `yaml:"class,omitempty"`
	AnyClass   []string `yaml:"anyClass,omitempty"`
	TitleRegex string   `yaml:"titleRegex,omitempty"`
}

// Validate ensures matcher configuration has at least one selection criteria.
func (m MatcherConfig) Validate() error {
	if m.Profile != "" {
		if m.Class != "" || len(m.AnyClass) > 0 || m.TitleRegex != "" {
			return fmt.Errorf("profile cannot be combined with other criteria")
		}
		return nil
	}
	if m.Class == "" && len(m.AnyClass) == 0 && m.TitleRegex == "" {
		return fmt.Errorf("must define class, anyClass, or titleRegex")
	}
	return nil
}

// ActionConfig describes a user action: a label and the dispatches it sends.
type ActionConfig struct {
	ID       string            `yaml:"id"`
	Label    string            `yaml:"label"`
	Dispatch []DispatchCommand `yaml:"dispatch"`
}

// DispatchCommand is one hyprctl dispatch. It may be written as a list
// ([workspace, "3"]) or as a string ("workspace 3") whose first word is the
// dispatcher.
type DispatchCommand []string

// UnmarshalYAML accepts both the list and string forms.
func (d *DispatchCommand) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		text := strings.TrimSpace(value.Value)
		if text == "" {
			return fmt.Errorf("line %d: dispatch command cannot be empty", value.Line)
		}
		parts := strings.SplitN(text, " ", 2)
		if len(parts) == 2 {
			parts[1] = strings.TrimSpace(parts[1])
		}
		*d = parts
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := value.Decode(&parts); err != nil {
			return err
		}
		*d = parts
		return nil
	default:
		return fmt.Errorf("line %d: dispatch command must be a string or list", value.Line)
	}
}

// Parse decodes a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(string(data)) == "" {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate performs basic sanity checks.
func (c *Config) Validate() error {
	if errs := c.Lint(); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ClampPollingSeconds bounds v to the supported interval range.
func ClampPollingSeconds(v int) int {
	if v < MinPollingSeconds {
		return MinPollingSeconds
	}
	if v > MaxPollingSeconds {
		return MaxPollingSeconds
	}
	return v
}

// ActionID returns the raw key configured for ctx.
func (c *Config) ActionID(ctx screen.Context) string {
	switch ctx {
	case screen.LaptopOnly:
		return c.LaptopActionID
	case screen.SingleExternal:
		return c.SingleExternalActionID
	case screen.MultiExternal:
		return c.MultiExternalActionID
	}
	return ""
}

// SetActionID stores the canonical form of key for ctx.
func (c *Config) SetActionID(ctx screen.Context, key actionkey.Key) {
	switch ctx {
	case screen.LaptopOnly:
		c.LaptopActionID = key.Encode()
	case screen.SingleExternal:
		c.SingleExternalActionID = key.Encode()
	case screen.MultiExternal:
		c.MultiExternalActionID = key.Encode()
	}
}

// Mapping decodes the configured keys. Every context has an entry; invalid
// keys decode as empty.
func (c *Config) Mapping() map[screen.Context]actionkey.Key {
	mapping := make(map[screen.Context]actionkey.Key, len(screen.All))
	for _, ctx := range screen.All {
		mapping[ctx] = actionkey.MustDecode(c.ActionID(ctx))
	}
	return mapping
}

// ResolveLayoutsFile returns the layouts path. Relative paths are taken
// relative to the directory of the config file.
func (c *Config) ResolveLayoutsFile(configPath string) string {
	path := c.LayoutsFile
	if path == "" {
		return filepath.Join(filepath.Dir(configPath), "layouts.yaml")
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(configPath), path)
	}
	return path
}

// DefaultPath returns $XDG_CONFIG_HOME/autolayout/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "autolayout", "config.yaml")
}

// Marshal serializes the configuration.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
