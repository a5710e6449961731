// Package config loads and persists the workspace credential map and the
// user-facing preferences of slack-stealth.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither the file nor the environment sets a value.
const (
	DefaultTimezone          = "Local"
	DefaultRequestsPerMinute = 50
	EnvPrefix                = "SLACK_STEALTH"

	// Single-workspace fallback when no workspaces are configured.
	EnvToken  = "SLACK_XOXC_TOKEN"
	EnvCookie = "SLACK_XOXD_COOKIE"

	// FallbackWorkspace names the workspace synthesized from EnvToken/EnvCookie.
	FallbackWorkspace = "default"
)

// Workspace holds the session credentials of one Slack workspace.
type Workspace struct {
	Token  string `yaml:"xoxc_token" mapstructure:"xoxc_token"`
	Cookie string `yaml:"xoxd_cookie" mapstructure:"xoxd_cookie"`
}

// Config holds application configuration loaded from YAML.
type Config struct {
	DefaultWorkspace  string               `yaml:"default_workspace" mapstructure:"default_workspace"`
	Timezone          string               `yaml:"timezone" mapstructure:"timezone"`
	RequestsPerMinute int                  `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Exclude           []string             `yaml:"exclude,omitempty" mapstructure:"exclude"`
	Workspaces        map[string]Workspace `yaml:"workspaces" mapstructure:"workspaces"`

	configFile string
}

// DefaultConfigPath returns ~/.config/slack-stealth/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	path := filepath.Join(home, ".config", "slack-stealth", "config.yaml")
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Load reads configuration from path. An explicit path must exist; an empty
// path searches the default location and falls back to defaults when no file
// is there. Environment variables prefixed SLACK_STEALTH_ override file
// values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("default_workspace", "")
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("requests_per_minute", DefaultRequestsPerMinute)
	v.SetDefault("exclude", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		def := DefaultConfigPath()
		v.AddConfigPath(filepath.Dir(def))
		v.SetConfigName(strings.TrimSuffix(filepath.Base(def), filepath.Ext(def)))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.configFile = v.ConfigFileUsed()

	if len(cfg.Workspaces) == 0 {
		token, cookie := os.Getenv(EnvToken), os.Getenv(EnvCookie)
		if token != "" && cookie != "" {
			cfg.Workspaces = map[string]Workspace{
				FallbackWorkspace: {Token: token, Cookie: cookie},
			}
		}
	}
	cfg.normalize()
	return cfg, nil
}

// normalize lower-cases workspace names and picks a default when none is set.
func (c *Config) normalize() {
	if len(c.Workspaces) > 0 {
		ws := make(map[string]Workspace, len(c.Workspaces))
		for name, w := range c.Workspaces {
			ws[strings.ToLower(name)] = w
		}
		c.Workspaces = ws
	}
	c.DefaultWorkspace = strings.ToLower(c.DefaultWorkspace)
	if c.DefaultWorkspace == "" {
		if names := c.WorkspaceNames(); len(names) > 0 {
			c.DefaultWorkspace = names[0]
		}
	}
}

// ConfigFile returns the path of the file Load read, or "" when only
// defaults and the environment were used.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// WorkspaceNames returns the configured workspace names in sorted order.
func (c *Config) WorkspaceNames() []string {
	names := make([]string, 0, len(c.Workspaces))
	for name := range c.Workspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed. The file holds session credentials, so it is
// written with 0600 permissions.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Chmod(path, 0600)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive, got %d", c.RequestsPerMinute)
	}
	for _, name := range c.WorkspaceNames() {
		ws := c.Workspaces[name]
		if ws.Token == "" {
			return fmt.Errorf("workspace %q: missing xoxc_token", name)
		}
		if ws.Cookie == "" {
			return fmt.Errorf("workspace %q: missing xoxd_cookie", name)
		}
	}
	if c.DefaultWorkspace != "" {
		if _, ok := c.Workspaces[c.DefaultWorkspace]; !ok {
			return fmt.Errorf("default workspace %q is not configured", c.DefaultWorkspace)
		}
	}
	return nil
}

// AddWorkspace stores credentials under name. The first workspace added
// always becomes the default.
func (c *Config) AddWorkspace(name, token, cookie string, setDefault bool) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return errors.New("workspace name is required")
	}
	if token == "" || cookie == "" {
		return fmt.Errorf("workspace %q: token and cookie are required", name)
	}
	if c.Workspaces == nil {
		c.Workspaces = make(map[string]Workspace)
	}
	c.Workspaces[name] = Workspace{Token: token, Cookie: cookie}
	if setDefault || c.DefaultWorkspace == "" || len(c.Workspaces) == 1 {
		c.DefaultWorkspace = name
	}
	return nil
}

// Location returns the configured display timezone, falling back to the
// local zone when it cannot be loaded.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// RateInterval converts RequestsPerMinute into the spacing between calls.
func (c *Config) RateInterval() time.Duration {
	if c.RequestsPerMinute <= 0 {
		return time.Minute / DefaultRequestsPerMinute
	}
	return time.Minute / time.Duration(c.RequestsPerMinute)
}
