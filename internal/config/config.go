package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/logging"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/metrics"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/status"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/storage"
)

// Config is the complete worker configuration, read once at startup.
type Config struct {
	Copy     CopyConfig
	Database status.DBConfig
	Storage  storage.StorageConfig
	Logging  logging.Config
	Metrics  metrics.Config
}

// CopyConfig controls routing and copy retries.
type CopyConfig struct {
	BucketMap           map[string]string
	Retries             int
	RetrySleep          time.Duration
	PermanentErrorCodes []string
}

// fileConfig mirrors Config for the optional YAML file.
type fileConfig struct {
	Copy struct {
		BucketMap           map[string]string `yaml:"bucket_map"`
		Retries             *int              `yaml:"retries"`
		RetrySleepSecs      *float64          `yaml:"retry_sleep_secs"`
		PermanentErrorCodes []string          `yaml:"permanent_error_codes"`
	} `yaml:"copy"`
	Database struct {
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		Name       string `yaml:"name"`
		User       string `yaml:"user"`
		Password   string `yaml:"password"`
		InitSchema bool   `yaml:"init_schema"`
	} `yaml:"database"`
	Storage struct {
		Backend  string `yaml:"backend"`
		Region   string `yaml:"region"`
		Endpoint string `yaml:"endpoint"`
		BlobURL  string `yaml:"blob_url"`
	} `yaml:"storage"`
	Logging struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Address string `yaml:"address"`
	} `yaml:"metrics"`
}

// Load builds the configuration from the optional YAML file named by
// COPIER_CONFIG, then applies environment variables on top.
func Load() (Config, error) {
	cfg := Config{
		Storage: storage.StorageConfig{Backend: "s3"},
		Logging: logging.Config{Format: "text", Level: "info"},
		Metrics: metrics.Config{Address: ":9090"},
	}

	if path := os.Getenv("COPIER_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Copy.BucketMap != nil {
		cfg.Copy.BucketMap = fc.Copy.BucketMap
	}
	if fc.Copy.Retries != nil {
		cfg.Copy.Retries = *fc.Copy.Retries
	}
	if fc.Copy.RetrySleepSecs != nil {
		cfg.Copy.RetrySleep = secondsToDuration(*fc.Copy.RetrySleepSecs)
	}
	cfg.Copy.PermanentErrorCodes = fc.Copy.PermanentErrorCodes

	cfg.Database = status.DBConfig{
		Host:       fc.Database.Host,
		Port:       fc.Database.Port,
		Name:       fc.Database.Name,
		User:       fc.Database.User,
		Password:   fc.Database.Password,
		InitSchema: fc.Database.InitSchema,
	}

	if fc.Storage.Backend != "" {
		cfg.Storage.Backend = fc.Storage.Backend
	}
	cfg.Storage.Region = fc.Storage.Region
	cfg.Storage.Endpoint = fc.Storage.Endpoint
	cfg.Storage.BlobURL = fc.Storage.BlobURL

	if fc.Logging.Format != "" {
		cfg.Logging.Format = fc.Logging.Format
	}
	if fc.Logging.Level != "" {
		cfg.Logging.Level = fc.Logging.Level
	}
	cfg.Metrics.Enabled = fc.Metrics.Enabled
	if fc.Metrics.Address != "" {
		cfg.Metrics.Address = fc.Metrics.Address
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("BUCKET_MAP"); v != "" {
		m, err := ParseBucketMap(v)
		if err != nil {
			return err
		}
		cfg.Copy.BucketMap = m
	}
	if v := os.Getenv("COPY_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse COPY_RETRIES %q: %w", v, err)
		}
		cfg.Copy.Retries = n
	}
	if v := os.Getenv("COPY_RETRY_SLEEP_SECS"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse COPY_RETRY_SLEEP_SECS %q: %w", v, err)
		}
		if secs < 0 {
			return fmt.Errorf("COPY_RETRY_SLEEP_SECS must not be negative: %s", v)
		}
		cfg.Copy.RetrySleep = secondsToDuration(secs)
	}
	if v := os.Getenv("COPY_PERMANENT_ERROR_CODES"); v != "" {
		cfg.Copy.PermanentErrorCodes = splitList(v)
	}

	cfg.Database.Host = getenvDefault("DATABASE_HOST", cfg.Database.Host)
	cfg.Database.Name = getenvDefault("DATABASE_NAME", cfg.Database.Name)
	cfg.Database.User = getenvDefault("DATABASE_USER", cfg.Database.User)
	cfg.Database.Password = getenvDefault("DATABASE_PW", cfg.Database.Password)
	if v := os.Getenv("DATABASE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DATABASE_PORT %q: %w", v, err)
		}
		cfg.Database.Port = port
	}
	if v := os.Getenv("DATABASE_INIT_SCHEMA"); v != "" {
		cfg.Database.InitSchema = v == "true"
	}

	cfg.Storage.Backend = getenvDefault("STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.Region = getenvDefault("STORAGE_REGION", cfg.Storage.Region)
	cfg.Storage.Endpoint = getenvDefault("STORAGE_ENDPOINT", cfg.Storage.Endpoint)
	cfg.Storage.BlobURL = getenvDefault("STORAGE_BLOB_URL", cfg.Storage.BlobURL)

	cfg.Logging.Format = getenvDefault("LOG_FORMAT", cfg.Logging.Format)
	cfg.Logging.Level = getenvDefault("LOG_LEVEL", cfg.Logging.Level)

	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
	cfg.Metrics.Address = getenvDefault("METRICS_ADDR", cfg.Metrics.Address)
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if c.Copy.Retries < 0 {
		return fmt.Errorf("COPY_RETRIES must not be negative: %d", c.Copy.Retries)
	}
	if c.Copy.RetrySleep < 0 {
		return fmt.Errorf("COPY_RETRY_SLEEP_SECS must not be negative: %s", c.Copy.RetrySleep)
	}

	var missing []string
	if c.Database.Host == "" {
		missing = append(missing, "DATABASE_HOST")
	}
	if c.Database.Port == 0 {
		missing = append(missing, "DATABASE_PORT")
	}
	if c.Database.Name == "" {
		missing = append(missing, "DATABASE_NAME")
	}
	if c.Database.User == "" {
		missing = append(missing, "DATABASE_USER")
	}
	if c.Database.Password == "" {
		missing = append(missing, "DATABASE_PW")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing database configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParseBucketMap decodes the BUCKET_MAP JSON object.
func ParseBucketMap(v string) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(v), &m); err != nil {
		return nil, fmt.Errorf("parse BUCKET_MAP: %w", err)
	}
	return m, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
