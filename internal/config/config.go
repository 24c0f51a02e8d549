// Package config loads server configuration from a YAML file. Command-line
// flags take precedence over file values; the file covers the settings that
// are awkward to pass on every invocation, like feed lists.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Feeds   FeedsConfig   `yaml:"feeds"`
	Audit   AuditConfig   `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

type StorageConfig struct {
	// Backend selects the repository implementation: bbolt, memory or
	// postgres.
	Backend string `yaml:"backend"`
	// Path is the data directory for the bbolt backend.
	Path string `yaml:"path"`
	// DSN is the connection string for the postgres backend.
	DSN string `yaml:"dsn"`
}

type AuthConfig struct {
	// TokenSecret signs session tokens. Generated and persisted on first
	// run when empty.
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type FeedsConfig struct {
	Interval time.Duration `yaml:"interval"`
	Sources  []FeedSource  `yaml:"sources"`
}

type FeedSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type AuditConfig struct {
	// WebhookURL receives audit events out of process; empty disables it.
	WebhookURL string `yaml:"webhook_url"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8443,
		},
		Storage: StorageConfig{
			Backend: "bbolt",
			Path:    "data",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Feeds: FeedsConfig{
			Interval: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file over the defaults. Unknown keys are an
// error so typos do not silently disable settings.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "bbolt", "memory", "postgres":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend == "bbolt" && c.Storage.Path == "" {
		return fmt.Errorf("bbolt backend requires storage.path")
	}
	if c.Storage.Backend == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("postgres backend requires storage.dsn")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}
	for _, f := range c.Feeds.Sources {
		if f.Name == "" || f.URL == "" {
			return fmt.Errorf("feed sources need both name and url")
		}
	}
	return nil
}
