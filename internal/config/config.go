package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr              = ":3000"
	DefaultClassifierURL     = "http://localhost:8000/classify"
	DefaultClassifierTimeout = 30 * time.Second
	DefaultMaxUploadBytes    = 10 << 20
	DefaultShutdownTimeout   = 15 * time.Second
	DefaultLogLevel          = "info"
)

// Config holds the runtime settings of the service.
type Config struct {
	Addr              string        `yaml:"addr"`
	ClassifierURL     string        `yaml:"classifier_url"`
	ClassifierTimeout time.Duration `yaml:"classifier_timeout"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	LogLevel          string        `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:              DefaultAddr,
		ClassifierURL:     DefaultClassifierURL,
		ClassifierTimeout: DefaultClassifierTimeout,
		MaxUploadBytes:    DefaultMaxUploadBytes,
		ShutdownTimeout:   DefaultShutdownTimeout,
		LogLevel:          DefaultLogLevel,
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the environment, in increasing order of precedence. A .env
// file in the working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.Addr = getEnv("ADDR", c.Addr)
	c.ClassifierURL = getEnv("CLASSIFIER_URL", c.ClassifierURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.ClassifierTimeout, err = getDuration("CLASSIFIER_TIMEOUT", c.ClassifierTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv("MAX_UPLOAD_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES %q: %w", v, err)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr is required")
	}
	if strings.TrimSpace(c.ClassifierURL) == "" {
		return errors.New("classifier url is required")
	}
	if c.ClassifierTimeout < 0 {
		return errors.New("classifier timeout must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

// getDuration accepts Go duration strings ("45s") or a bare number of seconds.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
