// Package config loads linkbox settings from defaults, an optional TOML
// file and LINKBOX_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"linkbox/internal/blob"
	"linkbox/internal/core"
)

// EnvPrefix prefixes every environment override, e.g. LINKBOX_STORAGE_DRIVER.
const EnvPrefix = "LINKBOX_"

// DefaultPaths are tried in order when no config file is given.
var DefaultPaths = []string{"./linkbox.toml", "$HOME/.linkbox.toml"}

// Config is the application configuration.
type Config struct {
	Storage  StorageSection  `koanf:"storage"`
	SQLite   SQLiteSection   `koanf:"sqlite"`
	Postgres PostgresSection `koanf:"postgres"`
	Redis    RedisSection    `koanf:"redis"`
	Blob     BlobSection     `koanf:"blob"`
	S3       S3Section       `koanf:"s3"`
	Log      LogSection      `koanf:"log"`
	Policy   PolicySection   `koanf:"policy"`
	Metrics  MetricsSection  `koanf:"metrics"`
}

// StorageSection selects the snapshot backend and the key it is saved under.
type StorageSection struct {
	Driver string `koanf:"driver" validate:"oneof=memory sqlite postgres redis blob"`
	Key    string `koanf:"key" validate:"required"`
}

type SQLiteSection struct {
	Path string `koanf:"path"`
}

type PostgresSection struct {
	DSN string `koanf:"dsn"`
}

type RedisSection struct {
	URL string `koanf:"url"`
}

// BlobSection configures the blob driver behind the "blob" storage driver.
type BlobSection struct {
	Driver string `koanf:"driver" validate:"oneof=fs memory s3"`
	Root   string `koanf:"root"`
	Prefix string `koanf:"prefix"`
}

type S3Section struct {
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	PathStyle bool   `koanf:"pathstyle"`
}

type LogSection struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// PolicySection toggles optional engine policies.
type PolicySection struct {
	StrictAffinity bool `koanf:"strictaffinity"`
}

type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}

func defaults() map[string]any {
	return map[string]any{
		"storage.driver": "sqlite",
		"storage.key":    "linkbox-store",
		"sqlite.path":    "linkbox.db",
		"redis.url":      "redis://localhost:6379/0",
		"blob.driver":    "fs",
		"blob.root":      "./blobdata",
		"blob.prefix":    "state/",
		"s3.region":      "us-east-1",
		"log.level":      "info",
		"log.format":     "json",
	}
}

// Load builds the configuration. An explicit path must exist; without one
// the first readable entry of DefaultPaths is used, if any.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	} else {
		for _, p := range DefaultPaths {
			p = os.ExpandEnv(p)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load config %s: %w", p, err)
			}
			break
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate reports the first invalid setting by its dotted key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	fe := verrs[0]
	key := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	if fe.Tag() == "oneof" {
		return fmt.Errorf("invalid config: %s must be one of [%s], got %q", key, fe.Param(), fe.Value())
	}
	return fmt.Errorf("invalid config: %s is %s", key, fe.Tag())
}

// StorageConfig maps the storage sections onto the backend factory input.
func (c *Config) StorageConfig() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.SQLite.Path,
		PostgresDSN: c.Postgres.DSN,
		RedisURL:    c.Redis.URL,
		Blob: blob.Config{
			Driver: blob.Driver(c.Blob.Driver),
			Root:   c.Blob.Root,
			S3: blob.S3Config{
				Region:    c.S3.Region,
				Bucket:    c.S3.Bucket,
				Endpoint:  c.S3.Endpoint,
				PathStyle: c.S3.PathStyle,
			},
		},
		BlobPrefix: c.Blob.Prefix,
	}
}
