// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Dataset, Catalog, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	// UploadsPerMinute caps uploads per client address. Zero disables the
	// limit.
	UploadsPerMinute int `yaml:"uploadsPerMinute"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	// ConnectAttempts and ConnectTimeout bound the startup wait for the
	// server.
	ConnectAttempts int           `yaml:"connectAttempts"`
	ConnectTimeout  time.Duration `yaml:"connectTimeout"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DatasetReady string `yaml:"datasetReady"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// DatasetConfig controls the ingestion pipeline: where artefacts land, how
// samples are shaped and how unsplit uploads are partitioned.
type DatasetConfig struct {
	DataRoot    string `yaml:"dataRoot"`
	ScratchRoot string `yaml:"scratchRoot"`
	// SplitRatio is the test fraction used when an upload carries no split.
	SplitRatio float64 `yaml:"splitRatio"`
	// SplitSeed makes the randomized split reproducible. Zero draws a fresh
	// seed for every run.
	SplitSeed int64 `yaml:"splitSeed"`
	// InputShape is the (height, width, channels) every sample is resized to.
	InputShape []int `yaml:"inputShape"`
	// Normalization is "max" (divide by the observed maximum) or "fixed"
	// (divide by FixedScale).
	Normalization   string  `yaml:"normalization"`
	FixedScale      float64 `yaml:"fixedScale"`
	LabelSeparator  string  `yaml:"labelSeparator"`
	MaxArchiveFiles int     `yaml:"maxArchiveFiles"`
	MaxExtractBytes int64   `yaml:"maxExtractBytes"`
	// MaxImagePixels bounds the declared width*height of an archive image;
	// larger images are skipped without being decoded. Zero disables it.
	MaxImagePixels int64 `yaml:"maxImagePixels"`
}

// Height returns the target sample height.
func (d DatasetConfig) Height() int { return d.InputShape[0] }

// Width returns the target sample width.
func (d DatasetConfig) Width() int { return d.InputShape[1] }

// Channels returns the target channel count.
func (d DatasetConfig) Channels() int { return d.InputShape[2] }

// Validate checks the pipeline settings that cannot be defaulted.
func (d DatasetConfig) Validate() error {
	var errs []error
	if d.DataRoot == "" {
		errs = append(errs, errors.New("dataset.dataRoot is required"))
	}
	if d.SplitRatio <= 0 || d.SplitRatio >= 1 {
		errs = append(errs, fmt.Errorf("dataset.splitRatio must be in (0,1), got %v", d.SplitRatio))
	}
	if len(d.InputShape) != 3 {
		errs = append(errs, fmt.Errorf("dataset.inputShape must have 3 entries, got %d", len(d.InputShape)))
	} else {
		if d.InputShape[0] <= 0 || d.InputShape[1] <= 0 {
			errs = append(errs, fmt.Errorf("dataset.inputShape height and width must be positive, got %v", d.InputShape))
		}
		if c := d.InputShape[2]; c != 1 && c != 3 {
			errs = append(errs, fmt.Errorf("dataset.inputShape channels must be 1 or 3, got %d", c))
		}
	}
	switch d.Normalization {
	case "max":
	case "fixed":
		if d.FixedScale <= 0 {
			errs = append(errs, fmt.Errorf("dataset.fixedScale must be positive, got %v", d.FixedScale))
		}
	default:
		errs = append(errs, fmt.Errorf("dataset.normalization must be \"max\" or \"fixed\", got %q", d.Normalization))
	}
	return errors.Join(errs...)
}

// CatalogConfig controls the PostgreSQL dataset catalog.
type CatalogConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls pipeline span logging.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// CORSConfig lists the browser origins allowed to call the service.
type CORSConfig struct {
	AllowOrigins []string `yaml:"allowOrigins"`
	MaxAge       int      `yaml:"maxAge"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Dataset.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading a file or the
// environment.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             5001,
			ReadTimeout:      5 * time.Minute,
			WriteTimeout:     5 * time.Minute,
			ShutdownTimeout:  15 * time.Second,
			RequestTimeout:   10 * time.Second,
			MaxUploadBytes:   512 << 20,
			UploadsPerMinute: 30,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "datasets",
			User:            "datasets",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectAttempts: 5,
			ConnectTimeout:  5 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				DatasetReady: "dataset-ready",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Dataset: DatasetConfig{
			DataRoot:        "volume/data",
			ScratchRoot:     os.TempDir(),
			SplitRatio:      0.2,
			InputShape:      []int{28, 28, 1},
			Normalization:   "max",
			FixedScale:      255,
			LabelSeparator:  "_",
			MaxArchiveFiles: 200000,
			MaxExtractBytes: 4 << 30,
			MaxImagePixels:  1 << 25,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
			MaxAge:       86400,
		},
	}
}

// applyEnvOverrides reads DI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DI_SERVER_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("DI_SERVER_UPLOADS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.UploadsPerMinute = n
		}
	}
	if v := os.Getenv("DI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DI_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("DI_CATALOG_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Catalog.Enabled = b
		}
	}
	if v := os.Getenv("DI_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("DI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DI_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("DI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DI_DATASET_DATA_ROOT"); v != "" {
		cfg.Dataset.DataRoot = v
	}
	if v := os.Getenv("DI_DATASET_SCRATCH_ROOT"); v != "" {
		cfg.Dataset.ScratchRoot = v
	}
	if v := os.Getenv("DI_DATASET_SPLIT_RATIO"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Dataset.SplitRatio = r
		}
	}
	if v := os.Getenv("DI_DATASET_SPLIT_SEED"); v != "" {
		if s, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Dataset.SplitSeed = s
		}
	}
	if v := os.Getenv("DI_DATASET_INPUT_SHAPE"); v != "" {
		if shape, err := parseShape(v); err == nil {
			cfg.Dataset.InputShape = shape
		}
	}
	if v := os.Getenv("DI_DATASET_MAX_EXTRACT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Dataset.MaxExtractBytes = n
		}
	}
	if v := os.Getenv("DI_DATASET_MAX_IMAGE_PIXELS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Dataset.MaxImagePixels = n
		}
	}
	if v := os.Getenv("DI_DATASET_NORMALIZATION"); v != "" {
		cfg.Dataset.Normalization = v
	}
	if v := os.Getenv("DI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// parseShape parses "28,28,1" or "28x28x1".
func parseShape(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == 'x' })
	shape := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("parsing shape %q: %w", s, err)
		}
		shape = append(shape, n)
	}
	return shape, nil
}
