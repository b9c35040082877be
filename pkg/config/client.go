package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ClientConfig holds the connection settings of the command line client.
type ClientConfig struct {
	// PageURL is the address of the page hosting the browser, e.g.
	// http://localhost:8084/Root?ObjPath=Root&TextMode=1
	PageURL string `yaml:"page_url" json:"page_url"`

	// Timeout bounds every HTTP request
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// UserAgent is sent with every request when set
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// DefaultClientConfig returns the settings used when no file is given.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		PageURL:   "http://localhost:8084/?TextMode=1",
		Timeout:   10 * time.Second,
		UserAgent: "objbrowser",
		Logging:   LoggingConfig{Verbosity: "normal"},
	}
}

// LoadClientConfig reads a YAML client configuration. Fields missing from
// the file keep their default values.
func LoadClientConfig(path string) (*ClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultClientConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *ClientConfig) Validate() error {
	if c.PageURL == "" {
		return fmt.Errorf("page_url is required")
	}
	u, err := url.Parse(c.PageURL)
	if err != nil {
		return fmt.Errorf("invalid page_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("page_url must be absolute, got %q", c.PageURL)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}
