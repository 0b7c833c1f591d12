package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceType selects which provider implementation serves role definitions
type SourceType string

const (
	SourceGitHub   SourceType = "github"
	SourceRegistry SourceType = "registry"
)

// DefaultBaseURL is the role repository used when none is configured.
const DefaultBaseURL = "https://raw.githubusercontent.com/jakubGodula/cyber-toolkit/main/roles/"

// Config represents the complete cyber-toolkit configuration
type Config struct {
	Source SourceConfig `yaml:"source"`
	Paths  PathsConfig  `yaml:"paths"`
	Pacman PacmanConfig `yaml:"pacman"`
}

// SourceConfig configures where role definitions are fetched from
type SourceConfig struct {
	Type           SourceType `yaml:"type"`
	BaseURL        string     `yaml:"base_url"`
	IndexFile      string     `yaml:"index_file"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
}

// PathsConfig configures local filesystem paths
type PathsConfig struct {
	RolesFile string `yaml:"roles_file"`
}

// PacmanConfig configures how the package manager is invoked
type PacmanConfig struct {
	NoConfirm          bool `yaml:"no_confirm"`
	UseSudo            bool `yaml:"use_sudo"`
	PerPackageFallback bool `yaml:"per_package_fallback"`
}

// Default returns the built-in configuration used when no config file exists
func Default() (*Config, error) {
	cfg := defaultConfig()
	cfg.expandEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Load reads and parses the configuration file. Keys absent from the file
// keep their built-in defaults.
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML over the defaults
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand environment variables in string fields
	cfg.expandEnv()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns the built-in defaults before env expansion
func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Type:           SourceGitHub,
			BaseURL:        DefaultBaseURL,
			IndexFile:      "role_names",
			TimeoutSeconds: 30,
		},
		Paths: PathsConfig{
			RolesFile: "$HOME/.roles/roles.cnf",
		},
		Pacman: PacmanConfig{
			NoConfirm:          true,
			UseSudo:            true,
			PerPackageFallback: true,
		},
	}
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Source.BaseURL = os.ExpandEnv(c.Source.BaseURL)
	c.Source.IndexFile = os.ExpandEnv(c.Source.IndexFile)
	c.Paths.RolesFile = os.ExpandEnv(c.Paths.RolesFile)
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	// Validate source config
	switch c.Source.Type {
	case SourceGitHub, SourceRegistry:
		// valid
	default:
		return fmt.Errorf("invalid source.type: %s (must be github or registry)", c.Source.Type)
	}

	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url is required")
	}
	if !strings.HasPrefix(c.Source.BaseURL, "http://") && !strings.HasPrefix(c.Source.BaseURL, "https://") {
		return fmt.Errorf("source.base_url must be an http(s) URL: %s", c.Source.BaseURL)
	}

	if c.Source.Type == SourceGitHub && c.Source.IndexFile == "" {
		return fmt.Errorf("source.index_file is required for the github source")
	}

	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be positive: %d", c.Source.TimeoutSeconds)
	}

	// Validate paths
	if c.Paths.RolesFile == "" {
		return fmt.Errorf("paths.roles_file is required")
	}
	if !filepath.IsAbs(c.Paths.RolesFile) {
		return fmt.Errorf("paths.roles_file must be an absolute path: %s", c.Paths.RolesFile)
	}

	return nil
}

// Timeout returns the per-request timeout for role fetches
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}
