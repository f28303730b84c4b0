package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Service  ServiceConfig  `yaml:"service"`
	Import   ImportConfig   `yaml:"import"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	CORSOrigin      string   `yaml:"cors_origin"`
	SSEKeepAlive    Duration `yaml:"sse_keepalive"`
}

// DatabaseConfig selects and configures the repository backend
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite, postgres
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn,omitempty"`
}

// CacheConfig sizes the station registry cache
type CacheConfig struct {
	StationSize int      `yaml:"station_size"`
	StationTTL  Duration `yaml:"station_ttl"`
}

// ServiceConfig tunes the line service
type ServiceConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// ImportConfig describes the optional seed document
type ImportConfig struct {
	SeedPath string `yaml:"seed_path,omitempty"`
	Watch    bool   `yaml:"watch"`
	Strategy string `yaml:"strategy"` // merge, replace
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
