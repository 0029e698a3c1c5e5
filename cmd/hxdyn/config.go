package main

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pthm/hxdyn"
)

// Config holds the hxdyn binary configuration.
type Config struct {
	Serve ServeConfig `yaml:"serve"`
	Scan  ScanConfig  `yaml:"scan"`
}

// ServeConfig configures "hxdyn serve".
type ServeConfig struct {
	Listen      string `yaml:"listen"`
	Dir         string `yaml:"dir"`
	Key         string `yaml:"key"`       // fragment parameter key; random when empty
	Sensitive   bool   `yaml:"sensitive"` // encrypt parameters instead of signing
	MetricsPath string `yaml:"metrics_path"`
}

// ScanConfig configures "hxdyn scan".
type ScanConfig struct {
	Base           string        `yaml:"base"` // fetch over HTTP when set
	Dir            string        `yaml:"dir"`  // otherwise read fragments from here
	AllowedRetries int           `yaml:"allowed_retries"`
	ShowRedirects  bool          `yaml:"show_redirects"`
	Sanitize       bool          `yaml:"sanitize"`
	LatestOnly     bool          `yaml:"latest_only"`
	Timeout        time.Duration `yaml:"timeout"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Serve: ServeConfig{
			Listen:      ":8080",
			Dir:         ".",
			MetricsPath: "/metrics",
		},
		Scan: ScanConfig{
			Dir:            ".",
			AllowedRetries: hxdyn.DefaultAllowedRetries,
			Timeout:        10 * time.Second,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if c.Serve.Listen == "" {
		return fmt.Errorf("serve.listen is required")
	}
	if c.Serve.MetricsPath != "" && c.Serve.MetricsPath[0] != '/' {
		return fmt.Errorf("serve.metrics_path must start with /")
	}
	if c.Scan.AllowedRetries < 0 {
		return fmt.Errorf("scan.allowed_retries must be >= 0")
	}
	if c.Scan.Timeout < 0 {
		return fmt.Errorf("scan.timeout must be >= 0")
	}
	if c.Scan.Base != "" {
		u, err := url.Parse(c.Scan.Base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("scan.base must be an http(s) URL, got %q", c.Scan.Base)
		}
	}
	return nil
}
