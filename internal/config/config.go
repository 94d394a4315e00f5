// Package config loads streamcorpus settings: defaults, then an optional YAML
// file, then STREAMCORPUS_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Blob     BlobConfig     `yaml:"blob"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Envelope EnvelopeConfig `yaml:"envelope"`
	Log      LogConfig      `yaml:"log"`
}

// BlobConfig selects where archived chunks are stored.
type BlobConfig struct {
	// Driver is fs, s3 or memory.
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config configures the S3 / MinIO blob driver. Credentials come from the
// default AWS chain unless set here.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// CatalogConfig selects the chunk catalog backend.
type CatalogConfig struct {
	// Driver is memory, sqlite or postgres.
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// EnvelopeConfig controls compression and encryption of archived chunks.
type EnvelopeConfig struct {
	Compress   bool   `yaml:"compress"`
	PublicKey  string `yaml:"public_key"`
	PrivateKey string `yaml:"private_key"`
	Recipient  string `yaml:"recipient"`
	Passphrase string `yaml:"passphrase"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Driver and format names accepted by Validate.
const (
	BlobDriverFS     = "fs"
	BlobDriverS3     = "s3"
	BlobDriverMemory = "memory"

	CatalogDriverMemory   = "memory"
	CatalogDriverSQLite   = "sqlite"
	CatalogDriverPostgres = "postgres"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// EnvConfigPath names the variable that points at a YAML config file.
const EnvConfigPath = "STREAMCORPUS_CONFIG"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid")

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Blob:     BlobConfig{Driver: BlobDriverFS, FSRoot: "./blobdata", S3: S3Config{Region: "us-east-1"}},
		Catalog:  CatalogConfig{Driver: CatalogDriverSQLite, SQLitePath: "./streamcorpus.db"},
		Envelope: EnvelopeConfig{Compress: true, Recipient: "trec-kba"},
		Log:      LogConfig{Level: "info", Format: LogFormatText},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides read through getenv. A nil getenv
// reads the process environment.
func Load(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied config path
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// SaveToFile writes the configuration as YAML, creating parent directories.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

type envString struct {
	name string
	dst  *string
}

type envBool struct {
	name string
	dst  *bool
}

// applyEnv overrides fields from the environment.
//
//	STREAMCORPUS_BLOB_DRIVER: fs|s3|memory
//	STREAMCORPUS_BLOB_FS_ROOT: directory root when driver=fs
//	STREAMCORPUS_BLOB_S3_BUCKET / _REGION / _ENDPOINT / _PATH_STYLE
//	STREAMCORPUS_CATALOG_DRIVER: memory|sqlite|postgres
//	STREAMCORPUS_SQLITE_PATH / STREAMCORPUS_POSTGRES_DSN
//	STREAMCORPUS_ENVELOPE_COMPRESS / _PUBLIC_KEY / _PRIVATE_KEY / _RECIPIENT / _PASSPHRASE
//	STREAMCORPUS_LOG_LEVEL / STREAMCORPUS_LOG_FORMAT
func (c *Config) applyEnv(getenv func(string) string) error {
	strs := []envString{
		{"STREAMCORPUS_BLOB_DRIVER", &c.Blob.Driver},
		{"STREAMCORPUS_BLOB_FS_ROOT", &c.Blob.FSRoot},
		{"STREAMCORPUS_BLOB_S3_BUCKET", &c.Blob.S3.Bucket},
		{"STREAMCORPUS_BLOB_S3_REGION", &c.Blob.S3.Region},
		{"STREAMCORPUS_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint},
		{"STREAMCORPUS_CATALOG_DRIVER", &c.Catalog.Driver},
		{"STREAMCORPUS_SQLITE_PATH", &c.Catalog.SQLitePath},
		{"STREAMCORPUS_POSTGRES_DSN", &c.Catalog.PostgresDSN},
		{"STREAMCORPUS_ENVELOPE_PUBLIC_KEY", &c.Envelope.PublicKey},
		{"STREAMCORPUS_ENVELOPE_PRIVATE_KEY", &c.Envelope.PrivateKey},
		{"STREAMCORPUS_ENVELOPE_RECIPIENT", &c.Envelope.Recipient},
		{"STREAMCORPUS_ENVELOPE_PASSPHRASE", &c.Envelope.Passphrase},
		{"STREAMCORPUS_LOG_LEVEL", &c.Log.Level},
		{"STREAMCORPUS_LOG_FORMAT", &c.Log.Format},
	}
	for _, e := range strs {
		if v := strings.TrimSpace(getenv(e.name)); v != "" {
			*e.dst = v
		}
	}
	bools := []envBool{
		{"STREAMCORPUS_BLOB_S3_PATH_STYLE", &c.Blob.S3.PathStyle},
		{"STREAMCORPUS_ENVELOPE_COMPRESS", &c.Envelope.Compress},
	}
	for _, e := range bools {
		v := strings.TrimSpace(getenv(e.name))
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, e.name, v)
		}
		*e.dst = b
	}
	return nil
}

// Validate checks driver names and the settings each driver requires.
func (c *Config) Validate() error {
	var errs []error
	switch c.Blob.Driver {
	case BlobDriverFS, BlobDriverMemory:
	case BlobDriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.Blob.Driver))
	}
	switch c.Catalog.Driver {
	case CatalogDriverMemory, CatalogDriverSQLite:
	case CatalogDriverPostgres:
		if c.Catalog.PostgresDSN == "" {
			errs = append(errs, errors.New("catalog.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown catalog driver %q", c.Catalog.Driver))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// SlogLevel parses Level (debug, info, warn, error).
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", l.Level)
	}
	return level, nil
}
