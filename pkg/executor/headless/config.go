package headless

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one non-interactive dump of the object tree.
type Config struct {
	// Path is the object to resolve and draw.
	Path string `yaml:"path" json:"path"`

	// Expand lists tree branches to open, in order. A branch must be visible
	// when its turn comes, so parents go first.
	Expand []string `yaml:"expand" json:"expand"`

	// Layout overrides the stored pane layout when set.
	Layout string `yaml:"layout" json:"layout"`

	// Show places objects into panes after expansion.
	Show []ShowConfig `yaml:"show" json:"show"`

	// Timeout bounds the whole run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Artifacts configuration
	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ShowConfig places the object at Path into the pane labelled Target.
type ShowConfig struct {
	Path   string `yaml:"path" json:"path"`
	Target string `yaml:"target" json:"target"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Individual format flags
	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("object path is required")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	for i, s := range c.Show {
		if s.Path == "" || s.Target == "" {
			return fmt.Errorf("show[%d]: path and target are required", i)
		}
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts require an output_dir")
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

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Timeout: time.Minute,
		Artifacts: ArtifactConfig{
			OutputDir: ".objbrowser/artifacts",
			JSON:      true,
			Markdown:  true,
		},
		Logging: LoggingConfig{Verbosity: "normal"},
	}
}

// LoadConfig reads a YAML dump description on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
