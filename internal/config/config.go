// Package config loads runtime settings from PROFILE_MEMORY_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
)

// Backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

const defaultDirName = ".profile-memory"

// Config holds the configuration for the profile memory store.
// Environment variables are parsed with the PROFILE_MEMORY_ prefix.
type Config struct {
	// DataDir is the storage root; empty resolves to ~/.profile-memory.
	DataDir string `envconfig:"DATA_DIR" default:""`
	Backend string `envconfig:"BACKEND" default:"json"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// DefaultLimit applies when a caller asks for a negative limit.
	DefaultLimit    int `envconfig:"DEFAULT_LIMIT" default:"10"`
	ContextMaxItems int `envconfig:"CONTEXT_MAX_ITEMS" default:"10"`
	ContextMaxChars int `envconfig:"CONTEXT_MAX_CHARS" default:"2000"`
	SummaryMaxTurns int `envconfig:"SUMMARY_MAX_TURNS" default:"6"`
	SummaryMaxChars int `envconfig:"SUMMARY_MAX_CHARS" default:"600"`
	TurnMaxChars    int `envconfig:"TURN_MAX_CHARS" default:"80"`

	CacheEnabled  bool  `envconfig:"CACHE_ENABLED" default:"true"`
	CacheMaxBytes int64 `envconfig:"CACHE_MAX_BYTES" default:"67108864"`
}

// New creates a Config from the environment, resolving and validating defaults.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("PROFILE_MEMORY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewForTesting creates a config rooted at dir with every default filled in.
func NewForTesting(dir string) *Config {
	return &Config{
		DataDir:         dir,
		Backend:         BackendJSON,
		LogFormat:       "json",
		LogLevel:        "debug",
		DefaultLimit:    10,
		ContextMaxItems: 10,
		ContextMaxChars: 2000,
		SummaryMaxTurns: 6,
		SummaryMaxChars: 600,
		TurnMaxChars:    80,
		CacheEnabled:    true,
		CacheMaxBytes:   1 << 20,
	}
}

// ResolveDefaults derives DataDir from the user's home when unset.
func (c *Config) ResolveDefaults() error {
	if c.DataDir != "" {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine user home: %w", err)
	}
	c.DataDir = filepath.Join(home, defaultDirName)
	return nil
}

// Validate rejects unsupported backends, log formats and non-positive bounds.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unsupported BACKEND: %s", c.Backend)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT: %s", c.LogFormat)
	}
	bounds := map[string]int{
		"DEFAULT_LIMIT":     c.DefaultLimit,
		"CONTEXT_MAX_ITEMS": c.ContextMaxItems,
		"CONTEXT_MAX_CHARS": c.ContextMaxChars,
		"SUMMARY_MAX_TURNS": c.SummaryMaxTurns,
		"SUMMARY_MAX_CHARS": c.SummaryMaxChars,
		"TURN_MAX_CHARS":    c.TurnMaxChars,
	}
	for name, v := range bounds {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if c.CacheEnabled && c.CacheMaxBytes <= 0 {
		return fmt.Errorf("CACHE_MAX_BYTES must be positive when the cache is enabled")
	}
	return nil
}

// MemoriesDir is where the JSON backend keeps one file per subject.
func (c *Config) MemoriesDir() string {
	return filepath.Join(c.DataDir, "memories")
}

// SQLitePath is the database file used by the sqlite backend.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "memory.db")
}
