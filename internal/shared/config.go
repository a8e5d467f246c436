package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Source   SourceConfig   `toml:"source"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Store    StoreConfig    `toml:"store"`
	Database DatabaseConfig `toml:"database"`
}

// SourceConfig contains the music service account token and client settings.
type SourceConfig struct {
	Token     string  `toml:"token"`
	Language  string  `toml:"language"`
	BaseURL   string  `toml:"base_url"`
	RateLimit float64 `toml:"rate_limit"` // Requests per second
	BatchSize int     `toml:"batch_size"` // Track ids per detail request
	Timeout   int     `toml:"timeout"`    // Request timeout in seconds
}

// SnapshotConfig controls where the interchange snapshot lives and how rankings are cut.
type SnapshotConfig struct {
	Path string `toml:"path"`
	TopN int    `toml:"top_n"`
}

// StoreConfig selects and configures the document store the loader writes to.
type StoreConfig struct {
	Driver        string `toml:"driver"` // sqlite or mongo
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	Parallel      bool   `toml:"parallel"`
}

// DatabaseConfig contains local SQLite settings (document store and run history).
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults. A missing file is reported
// as [ErrMissingConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// envOverrides maps environment variables to the config fields they replace.
var envOverrides = map[string]func(*Config, string){
	"YA_TOKEN":     func(c *Config, v string) { c.Source.Token = v },
	"YA_LANGUAGE":  func(c *Config, v string) { c.Source.Language = v },
	"DATASET_PATH": func(c *Config, v string) { c.Snapshot.Path = v },
	"MONGO_URI":    func(c *Config, v string) { c.Store.MongoURI = v },
	"MONGO_DB":     func(c *Config, v string) { c.Store.MongoDatabase = v },
	"STORE_DRIVER": func(c *Config, v string) { c.Store.Driver = strings.ToLower(v) },
}

// LoadEnv reads dotenv files into the process environment without overwriting
// variables that are already set. Missing files are ignored.
func LoadEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}

	for _, name := range filenames {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with any non-empty environment variables.
func (c *Config) ApplyEnv() {
	for key, set := range envOverrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			set(c, v)
		}
	}
}

// Validate checks values the pipeline cannot run without.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "mongo":
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}

	if c.Snapshot.Path == "" {
		return fmt.Errorf("%w: snapshot path is empty", ErrInvalidConfig)
	}
	if c.Snapshot.TopN <= 0 {
		return fmt.Errorf("%w: top_n must be positive", ErrInvalidConfig)
	}
	if c.Store.Driver == "mongo" && c.Store.MongoURI == "" {
		return fmt.Errorf("%w: mongo_uri is required for the mongo driver", ErrInvalidConfig)
	}
	return nil
}
