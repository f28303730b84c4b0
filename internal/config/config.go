// Package config provides configuration management for the subway server.
//
// Settings are layered, later layers winning:
//  1. built-in defaults
//  2. the YAML config file
//  3. SUBWAY_* environment variables (a .env file is loaded first)
//  4. command-line flags, applied by the caller
//
// Config file locations (priority order):
//  1. $SUBWAY_CONFIG
//  2. ./subway.yaml
//  3. $XDG_CONFIG_HOME/subway/config.yaml
//  4. ~/.config/subway/config.yaml
//  5. /etc/subway/config.yaml
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Repository drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Environment overrides
const (
	EnvAddr           = "SUBWAY_ADDR"
	EnvCORSOrigin     = "SUBWAY_CORS_ORIGIN"
	EnvDBDriver       = "SUBWAY_DB_DRIVER"
	EnvDBPath         = "SUBWAY_DB_PATH"
	EnvDBDSN          = "SUBWAY_DB_DSN"
	EnvCacheSize      = "SUBWAY_CACHE_SIZE"
	EnvCacheTTL       = "SUBWAY_CACHE_TTL"
	EnvMaxRetries     = "SUBWAY_MAX_RETRIES"
	EnvSeedPath       = "SUBWAY_SEED_PATH"
	EnvSeedWatch      = "SUBWAY_SEED_WATCH"
	EnvImportStrategy = "SUBWAY_IMPORT_STRATEGY"
)

// Load reads .env, finds and loads the config file (or defaults if none is
// found), applies environment overrides and validates the result. An
// explicit path skips the search.
func Load(explicit string) (*Config, string, error) {
	// .env is optional
	_ = godotenv.Load()

	path := explicit
	if path == "" {
		path = FindConfigPath()
	}

	cfg := DefaultConfig()
	if path != "" {
		loaded, _, err := LoadFromPath(path)
		if err != nil {
			return nil, path, err
		}
		cfg = loaded
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = "*"
	}
	if c.Server.SSEKeepAlive == 0 {
		c.Server.SSEKeepAlive = Duration(30 * time.Second)
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "./subway.db"
	}
	if c.Cache.StationSize == 0 {
		c.Cache.StationSize = 1024
	}
	if c.Service.MaxRetries == 0 {
		c.Service.MaxRetries = 3
	}
	if c.Import.Strategy == "" {
		c.Import.Strategy = "merge"
	}
}

// applyEnv overlays SUBWAY_* environment variables
func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(EnvAddr, &c.Server.Addr)
	setString(EnvCORSOrigin, &c.Server.CORSOrigin)
	setString(EnvDBDriver, &c.Database.Driver)
	setString(EnvDBPath, &c.Database.Path)
	setString(EnvDBDSN, &c.Database.DSN)
	setString(EnvSeedPath, &c.Import.SeedPath)
	setString(EnvImportStrategy, &c.Import.Strategy)

	if v := os.Getenv(EnvCacheSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCacheSize, err)
		}
		c.Cache.StationSize = n
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCacheTTL, err)
		}
		c.Cache.StationTTL = Duration(d)
	}
	if v := os.Getenv(EnvMaxRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxRetries, err)
		}
		c.Service.MaxRetries = n
	}
	if v := os.Getenv(EnvSeedWatch); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSeedWatch, err)
		}
		c.Import.Watch = b
	}
	return nil
}

// Validate checks that the settings can start a server
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path required for sqlite")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn required for postgres")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Cache.StationSize < 1 {
		return fmt.Errorf("cache.station_size must be positive, got %d", c.Cache.StationSize)
	}
	if c.Service.MaxRetries < 1 {
		return fmt.Errorf("service.max_retries must be positive, got %d", c.Service.MaxRetries)
	}
	if c.Import.Strategy != "merge" && c.Import.Strategy != "replace" {
		return fmt.Errorf("unknown import strategy %q", c.Import.Strategy)
	}
	if c.Import.Watch && c.Import.SeedPath == "" {
		return fmt.Errorf("import.watch requires import.seed_path")
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Addr: %s, Driver: %s", c.Server.Addr, c.Database.Driver)
	switch c.Database.Driver {
	case DriverSQLite:
		summary += fmt.Sprintf(" (%s)", c.Database.Path)
	case DriverPostgres:
		summary += " (dsn set)"
	}
	summary += fmt.Sprintf("\nStation cache: %d entries, ttl %s; max retries: %d",
		c.Cache.StationSize, c.Cache.StationTTL.Duration(), c.Service.MaxRetries)
	if c.Import.SeedPath != "" {
		summary += fmt.Sprintf("\nSeed: %s (strategy %s, watch %t)",
			c.Import.SeedPath, c.Import.Strategy, c.Import.Watch)
	}
	return summary
}
