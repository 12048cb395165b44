// Package config handles formpilot configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voralis/formpilot/regflow"
)

// Config is the top-level formpilot configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Guard    GuardConfig    `yaml:"guard"`
	Strategy StrategyConfig `yaml:"strategy"`
	Store    StoreConfig    `yaml:"store"`
	Submit   SubmitConfig   `yaml:"submit"`
	API      APIConfig      `yaml:"api"`
	Notify   []NotifyConfig `yaml:"notify"`
}

// BrowserConfig controls Chrome lifecycle and the form page.
type BrowserConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Remote     string        `yaml:"remote"`
	Headful    bool          `yaml:"headful"`
	FormURL    string        `yaml:"form_url"`
	NavTimeout time.Duration `yaml:"nav_timeout"`
	// Selectors overrides the default field-to-CSS-selector map.
	Selectors map[string]string `yaml:"selectors"`
}

// GuardConfig controls the form watchdog cadence.
type GuardConfig struct {
	AssessInterval   time.Duration `yaml:"assess_interval"`
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	ClearThreshold   float64       `yaml:"clear_threshold"`
}

// StrategyConfig selects and tunes registration strategies.
type StrategyConfig struct {
	Default  string            `yaml:"default"`
	Domain   string            `yaml:"domain"`
	Profiles []regflow.Profile `yaml:"profiles"`
}

// StoreConfig controls the SQLite persistence layer.
type StoreConfig struct {
	Path       string `yaml:"path"`
	MaxHistory int    `yaml:"max_history"`
}

// SubmitConfig selects the submission backend.
type SubmitConfig struct {
	Mode      string `yaml:"mode"` // mock | http
	SignupURL string `yaml:"signup_url"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Listen string `yaml:"listen"`
}

// NotifyConfig defines a notification backend.
type NotifyConfig struct {
	Type    string `yaml:"type"` // log | webhook
	URL     string `yaml:"url"`  // for webhook
	Retries int    `yaml:"retries"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Guard.AssessInterval <= 0 {
		c.Guard.AssessInterval = 2 * time.Second
	}
	if c.Guard.AutosaveInterval <= 0 {
		c.Guard.AutosaveInterval = 5 * time.Second
	}
	if c.Guard.ClearThreshold <= 0 || c.Guard.ClearThreshold >= 1 {
		c.Guard.ClearThreshold = 0.5
	}
	if c.Strategy.Default == "" {
		c.Strategy.Default = regflow.ProfileStandard
	}
	if c.Strategy.Domain == "" {
		c.Strategy.Domain = regflow.DefaultDomain
	}
	if c.Store.Path == "" {
		c.Store.Path = "formpilot.db"
	}
	if c.Store.MaxHistory <= 0 {
		c.Store.MaxHistory = 50
	}
	if c.Submit.Mode == "" {
		c.Submit.Mode = "mock"
	}
	if c.Submit.SignupURL == "" {
		c.Submit.SignupURL = "https://signup.live.com/signup"
	}
	if c.API.Listen == "" {
		c.API.Listen = ":8710"
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Browser.FormURL == "" {
		c.Browser.FormURL = c.Submit.SignupURL
	}
	for i := range c.Notify {
		if c.Notify[i].Retries <= 0 {
			c.Notify[i].Retries = 3
		}
	}
}

func (c *Config) validate() error {
	switch c.Submit.Mode {
	case "mock", "http":
	default:
		return fmt.Errorf("config: unknown submit mode %q", c.Submit.Mode)
	}
	for _, n := range c.Notify {
		switch n.Type {
		case "log", "webhook":
		default:
			return fmt.Errorf("config: unknown notify type %q", n.Type)
		}
		if n.Type == "webhook" && n.URL == "" {
			return fmt.Errorf("config: webhook notify requires url")
		}
	}
	return nil
}
