// Package config loads librarian configuration. Values are applied in
// order of increasing precedence: hardcoded defaults, the user config
// file, a project-local .librarian.yaml, then LIBRARIAN_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete librarian configuration.
type Config struct {
	Version int           `yaml:"version"`
	Store   StoreConfig   `yaml:"store"`
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the library store location and its lock.
type StoreConfig struct {
	// Path is the directory holding the metadata database, the vector
	// index, and the lock file. Defaults to ~/.librarian/library.
	Path string `yaml:"path"`

	// LockTimeout bounds how long an operation waits for the store lock
	// before giving up. Zero means wait forever.
	LockTimeout time.Duration `yaml:"lock_timeout"`

	// EmbeddingCacheSize is the LRU embedding cache capacity.
	EmbeddingCacheSize int `yaml:"embedding_cache_size"`
}

// SearchConfig configures chunking and query behavior.
type SearchConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// MaxResults is the default number of books returned per query.
	MaxResults int `yaml:"max_results"`
}

// LoggingConfig configures the log file sink.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// File is the log file path. Empty disables file logging.
	File string `yaml:"file"`

	// MaxSizeMB rotates the log file once it grows past this size.
	MaxSizeMB int `yaml:"max_size_mb"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			Path:               defaultStorePath(),
			LockTimeout:        0, // wait for the lock indefinitely
			EmbeddingCacheSize: 1000,
		},
		Search: SearchConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			MaxResults:   5,
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      defaultLogPath(),
			MaxSizeMB: 10,
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".librarian", "library")
	}
	return filepath.Join(home, ".librarian", "library")
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".librarian", "librarian.log")
	}
	return filepath.Join(home, ".librarian", "librarian.log")
}

// UserConfigPath returns the user-level configuration file path,
// following the XDG base directory convention.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "librarian", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "librarian", "config.yaml")
	}
	return filepath.Join(home, ".config", "librarian", "config.yaml")
}

// Load builds the effective configuration for a run started in dir.
func Load(dir string) (*Config, error) {
	cfg := New()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadProjectFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadProjectFile merges .librarian.yaml (or .yml) from dir, when present.
func (c *Config) loadProjectFile(dir string) error {
	for _, name := range []string{".librarian.yaml", ".librarian.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays the non-zero values of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}
	if other.Store.LockTimeout != 0 {
		c.Store.LockTimeout = other.Store.LockTimeout
	}
	if other.Store.EmbeddingCacheSize != 0 {
		c.Store.EmbeddingCacheSize = other.Store.EmbeddingCacheSize
	}

	if other.Search.ChunkSize != 0 {
		c.Search.ChunkSize = other.Search.ChunkSize
	}
	if other.Search.ChunkOverlap != 0 {
		c.Search.ChunkOverlap = other.Search.ChunkOverlap
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
}

// applyEnvOverrides applies LIBRARIAN_* environment variables, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LIBRARIAN_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("LIBRARIAN_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			c.Store.LockTimeout = d
		}
	}
	if v := os.Getenv("LIBRARIAN_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("LIBRARIAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LIBRARIAN_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate rejects configurations the rest of the program cannot run
// with.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Store.LockTimeout < 0 {
		return fmt.Errorf("store.lock_timeout must not be negative")
	}
	if c.Search.ChunkSize <= 0 {
		return fmt.Errorf("search.chunk_size must be positive, got %d", c.Search.ChunkSize)
	}
	if c.Search.ChunkOverlap < 0 {
		return fmt.Errorf("search.chunk_overlap must not be negative, got %d", c.Search.ChunkOverlap)
	}
	if c.Search.ChunkOverlap >= c.Search.ChunkSize {
		return fmt.Errorf("search.chunk_overlap (%d) must be smaller than search.chunk_size (%d)",
			c.Search.ChunkOverlap, c.Search.ChunkSize)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

// Save writes the configuration to path as YAML, creating parent
// directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
