// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

type Config struct {
	Port      int    `env:"QRAPI_PORT" envDefault:"8080"`
	DBPath    string `env:"QRAPI_DB_PATH" envDefault:"qrapi.db"`
	LogLevel  string `env:"QRAPI_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"QRAPI_LOG_FORMAT" envDefault:"text"`

	// Image storage
	StorageBackend string `env:"QRAPI_STORAGE_BACKEND" envDefault:"local"` // "local" or "s3"
	StorageDir     string `env:"QRAPI_STORAGE_DIR" envDefault:"storage/qr_codes"`

	// PublicBaseURL prefixes image and download locators. Empty means
	// derive it from each request.
	PublicBaseURL string `env:"QRAPI_PUBLIC_BASE_URL"`

	S3Endpoint  string `env:"QRAPI_S3_ENDPOINT"`
	S3Region    string `env:"QRAPI_S3_REGION" envDefault:"us-east-1"`
	S3Bucket    string `env:"QRAPI_S3_BUCKET"`
	S3AccessKey string `env:"QRAPI_S3_ACCESS_KEY"`
	S3SecretKey string `env:"QRAPI_S3_SECRET_KEY"`
	S3Prefix    string `env:"QRAPI_S3_PREFIX" envDefault:"qr_codes"`

	MetricsEnabled  bool          `env:"QRAPI_METRICS_ENABLED" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"QRAPI_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads an optional .env file, then parses the environment. Variables
// already set in the process environment take precedence over the file.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	cfg.S3Bucket = strings.TrimSpace(cfg.S3Bucket)
	cfg.S3AccessKey = strings.TrimSpace(cfg.S3AccessKey)
	cfg.S3SecretKey = strings.TrimSpace(cfg.S3SecretKey)
	cfg.S3Endpoint = strings.TrimSpace(cfg.S3Endpoint)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("QRAPI_PORT must be between 1 and 65535, got %d", c.Port)
	}
	switch c.StorageBackend {
	case BackendLocal:
		if c.StorageDir == "" {
			return errors.New("QRAPI_STORAGE_DIR is required for the local backend")
		}
	case BackendS3:
		if c.S3Bucket == "" {
			return errors.New("QRAPI_S3_BUCKET is required for the s3 backend")
		}
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return errors.New("QRAPI_S3_ACCESS_KEY and QRAPI_S3_SECRET_KEY are required for the s3 backend")
		}
	default:
		return fmt.Errorf("QRAPI_STORAGE_BACKEND must be %q or %q, got %q", BackendLocal, BackendS3, c.StorageBackend)
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("QRAPI_PUBLIC_BASE_URL must be an absolute URL, got %q", c.PublicBaseURL)
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
