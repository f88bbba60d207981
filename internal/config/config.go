// Package config loads the storagecore configuration from YAML and the
// environment. Environment variables override file values so deployments can
// keep credentials out of config files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML configuration structure.
type FileConfig struct {
	LogLevel string        `yaml:"logLevel,omitempty"`
	API      APIConfig     `yaml:"api,omitempty"`
	Blob     BlobConfig    `yaml:"blob,omitempty"`
	Catalog  CatalogConfig `yaml:"catalog,omitempty"`
	Quota    QuotaConfig   `yaml:"quota,omitempty"`
	Plugins  PluginsConfig `yaml:"plugins,omitempty"`
}

// APIConfig holds HTTP listener settings.
type APIConfig struct {
	Listen    string `yaml:"listen,omitempty"`    // host:port, default :8080
	RateLimit int    `yaml:"rateLimit,omitempty"` // requests per minute per client, 0 disables
}

// BlobConfig selects and parameterizes the blob backend.
type BlobConfig struct {
	Driver string            `yaml:"driver,omitempty"` // fs|memory|s3|dropbox|github|googledrive
	FSRoot string            `yaml:"fsRoot,omitempty"`
	S3     S3Config          `yaml:"s3,omitempty"`
	Token  string            `yaml:"token,omitempty"` // bearer credential for API-backed drivers
	Extra  map[string]string `yaml:"extra,omitempty"` // driver-specific options
}

// S3Config holds S3 connection settings.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	PathStyle bool   `yaml:"pathStyle,omitempty"`
}

// CatalogConfig selects the catalog persistence backend.
type CatalogConfig struct {
	Driver      string `yaml:"driver,omitempty"` // memory|sqlite|postgres
	SQLitePath  string `yaml:"sqlitePath,omitempty"`
	PostgresDSN string `yaml:"postgresDsn,omitempty"`
}

// QuotaConfig parameterizes the object quota rule. Zero disables a limit.
type QuotaConfig struct {
	SoftLimit int `yaml:"softLimit,omitempty"`
	HardLimit int `yaml:"hardLimit,omitempty"`
}

// PluginsConfig lists plugin names to install at startup.
type PluginsConfig struct {
	Enabled []string `yaml:"enabled,omitempty"`
}

// Default returns the built-in configuration.
func Default() FileConfig {
	return FileConfig{
		LogLevel: "info",
		API:      APIConfig{Listen: ":8080"},
		Blob:     BlobConfig{Driver: "fs", FSRoot: "./data/blobs"},
		Catalog:  CatalogConfig{Driver: "sqlite", SQLitePath: "./data/catalog.db"},
		Quota:    QuotaConfig{SoftLimit: 10000, HardLimit: 50000},
	}
}

// Load reads the YAML file at path, merges it over Default, and applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (FileConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
		if err != nil {
			return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (c *FileConfig) applyEnv() {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString(&c.LogLevel, "STORAGECORE_LOG_LEVEL")
	setString(&c.API.Listen, "STORAGECORE_LISTEN")
	setString(&c.Blob.Driver, "STORAGECORE_BLOB_DRIVER")
	setString(&c.Blob.FSRoot, "STORAGECORE_BLOB_FS_ROOT")
	setString(&c.Blob.S3.Bucket, "STORAGECORE_BLOB_S3_BUCKET")
	setString(&c.Blob.S3.Region, "STORAGECORE_BLOB_S3_REGION")
	setString(&c.Blob.S3.Endpoint, "STORAGECORE_BLOB_S3_ENDPOINT")
	setString(&c.Blob.Token, "STORAGECORE_BLOB_TOKEN")
	setString(&c.Catalog.Driver, "STORAGECORE_CATALOG_DRIVER")
	setString(&c.Catalog.SQLitePath, "STORAGECORE_SQLITE_PATH")
	setString(&c.Catalog.PostgresDSN, "STORAGECORE_POSTGRES_DSN")

	if v, ok := os.LookupEnv("STORAGECORE_BLOB_S3_PATH_STYLE"); ok {
		c.Blob.S3.PathStyle, _ = strconv.ParseBool(v)
	}
	if v, ok := os.LookupEnv("STORAGECORE_PLUGINS"); ok {
		c.Plugins.Enabled = c.Plugins.Enabled[:0]
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				c.Plugins.Enabled = append(c.Plugins.Enabled, name)
			}
		}
	}
}

func (c FileConfig) validate() error {
	if c.Blob.Driver == "" {
		return fmt.Errorf("config: blob driver must be set")
	}
	if c.Quota.SoftLimit < 0 || c.Quota.HardLimit < 0 {
		return fmt.Errorf("config: quota limits cannot be negative")
	}
	if c.Quota.HardLimit > 0 && c.Quota.SoftLimit > c.Quota.HardLimit {
		return fmt.Errorf("config: quota soft limit %d exceeds hard limit %d", c.Quota.SoftLimit, c.Quota.HardLimit)
	}
	switch c.Catalog.Driver {
	case "", "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown catalog driver %q", c.Catalog.Driver)
	}
	return nil
}
