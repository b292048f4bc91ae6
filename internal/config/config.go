package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "boardify.yaml"

// MaxFetchAttempts bounds fetch.attempts.
const MaxFetchAttempts = 20

// Storage drivers.
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config represents the boardify.yaml configuration
type Config struct {
	Server  *ServerConfig  `yaml:"server,omitempty"`
	Fetch   *FetchConfig   `yaml:"fetch,omitempty"`
	Storage *StorageConfig `yaml:"storage,omitempty"`
	Board   *BoardConfig   `yaml:"board,omitempty"`
	Log     *LogConfig     `yaml:"log,omitempty"`
}

// ServerConfig contains the HTTP host configuration
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// Path to the card data served at /cards.json
	CardsFile string `yaml:"cardsFile,omitempty"`

	// Directory served at /
	StaticDir string `yaml:"staticDir,omitempty"`

	// Whether to push reloads to clients when the card data changes
	Watch bool `yaml:"watch"`
}

// Addr returns host:port.
func (s *ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// FetchConfig controls how card data is fetched
type FetchConfig struct {
	URL      string        `yaml:"url,omitempty"`
	Attempts int           `yaml:"attempts,omitempty"`
	Backoff  time.Duration `yaml:"backoff,omitempty"`
}

// StorageConfig selects where positions and view state are persisted
type StorageConfig struct {
	// Driver is one of file, memory, redis
	Driver   string `yaml:"driver,omitempty"`
	Path     string `yaml:"path,omitempty"`
	RedisURL string `yaml:"redisURL,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// BoardConfig contains layout and persistence tuning
type BoardConfig struct {
	SaveDebounce time.Duration `yaml:"saveDebounce,omitempty"`
	ViewDebounce time.Duration `yaml:"viewDebounce,omitempty"`
	CardWidth    float64       `yaml:"cardWidth,omitempty"`
	CardHeight   float64       `yaml:"cardHeight,omitempty"`
	MinScale     float64       `yaml:"minScale,omitempty"`
	MaxScale     float64       `yaml:"maxScale,omitempty"`
	ExportDir    string        `yaml:"exportDir,omitempty"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load loads configuration from boardify.yaml in projectPath
func Load(projectPath string) (*Config, error) {
	return LoadFile(filepath.Join(projectPath, FileName))
}

// LoadFile loads configuration from an explicit path. A missing file yields
// the default configuration.
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &config, nil
}

// Save saves configuration to boardify.yaml in projectPath
func Save(config *Config, projectPath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, FileName), data, 0644)
}

// Validate rejects values that cannot be applied.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverMemory, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == DriverRedis && c.Storage.RedisURL == "" {
		return errors.New("storage.redisURL is required for the redis driver")
	}
	if c.Fetch.Attempts > MaxFetchAttempts {
		return fmt.Errorf("fetch.attempts %d is above %d", c.Fetch.Attempts, MaxFetchAttempts)
	}
	if c.Board.MinScale > c.Board.MaxScale {
		return fmt.Errorf("board.minScale %v is above board.maxScale %v", c.Board.MinScale, c.Board.MaxScale)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Host:      "localhost",
			Port:      8080,
			CardsFile: "cards.json",
			StaticDir: "public",
			Watch:     true,
		},
		Fetch: &FetchConfig{
			URL:      "http://localhost:8080/cards.json",
			Attempts: 3,
			Backoff:  500 * time.Millisecond,
		},
		Storage: &StorageConfig{
			Driver: DriverFile,
			Path:   ".boardify/state.json",
			Prefix: "boardify:",
		},
		Board: &BoardConfig{
			SaveDebounce: 300 * time.Millisecond,
			ViewDebounce: 200 * time.Millisecond,
			CardWidth:    288,
			CardHeight:   200,
			MinScale:     0.2,
			MaxScale:     3.0,
			ExportDir:    ".",
		},
		Log: &LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Server == nil {
		config.Server = defaults.Server
	} else {
		if config.Server.Host == "" {
			config.Server.Host = defaults.Server.Host
		}
		if config.Server.Port == 0 {
			config.Server.Port = defaults.Server.Port
		}
		if config.Server.CardsFile == "" {
			config.Server.CardsFile = defaults.Server.CardsFile
		}
		if config.Server.StaticDir == "" {
			config.Server.StaticDir = defaults.Server.StaticDir
		}
	}

	if config.Fetch == nil {
		config.Fetch = defaults.Fetch
	} else {
		if config.Fetch.URL == "" {
			config.Fetch.URL = defaults.Fetch.URL
		}
		if config.Fetch.Attempts <= 0 {
			config.Fetch.Attempts = defaults.Fetch.Attempts
		}
		if config.Fetch.Backoff <= 0 {
			config.Fetch.Backoff = defaults.Fetch.Backoff
		}
	}

	if config.Storage == nil {
		config.Storage = defaults.Storage
	} else {
		if config.Storage.Driver == "" {
			config.Storage.Driver = defaults.Storage.Driver
		}
		if config.Storage.Path == "" {
			config.Storage.Path = defaults.Storage.Path
		}
		if config.Storage.Prefix == "" {
			config.Storage.Prefix = defaults.Storage.Prefix
		}
	}

	if config.Board == nil {
		config.Board = defaults.Board
	} else {
		if config.Board.SaveDebounce <= 0 {
			config.Board.SaveDebounce = defaults.Board.SaveDebounce
		}
		if config.Board.ViewDebounce <= 0 {
			config.Board.ViewDebounce = defaults.Board.ViewDebounce
		}
		if config.Board.CardWidth <= 0 {
			config.Board.CardWidth = defaults.Board.CardWidth
		}
		if config.Board.CardHeight <= 0 {
			config.Board.CardHeight = defaults.Board.CardHeight
		}
		if config.Board.MinScale <= 0 {
			config.Board.MinScale = defaults.Board.MinScale
		}
		if config.Board.MaxScale <= 0 {
			config.Board.MaxScale = defaults.Board.MaxScale
		}
		if config.Board.ExportDir == "" {
			config.Board.ExportDir = defaults.Board.ExportDir
		}
	}

	if config.Log == nil {
		config.Log = defaults.Log
	} else {
		if config.Log.Level == "" {
			config.Log.Level = defaults.Log.Level
		}
		if config.Log.Format == "" {
			config.Log.Format = defaults.Log.Format
		}
	}
}
