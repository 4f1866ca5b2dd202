// Package config loads process configuration from a YAML file, a .env file
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hqta1110/vnrag/embedding"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete process configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// EmbeddingConfig holds the embedding service settings.
type EmbeddingConfig struct {
	BaseURL      string        `yaml:"base_url"`
	EndpointPath string        `yaml:"endpoint_path"`
	Model        string        `yaml:"model"`
	BearerToken  string        `yaml:"bearer_token"`
	TokenID      string        `yaml:"token_id"`
	TokenKey     string        `yaml:"token_key"`
	BatchSize    int           `yaml:"batch_size"`
	Workers      int           `yaml:"workers"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    float64       `yaml:"rate_limit"`
}

// KnowledgeConfig locates the knowledge file.
type KnowledgeConfig struct {
	// URI is a local directory, s3://bucket/prefix or minio://bucket/prefix.
	URI  string `yaml:"uri"`
	Name string `yaml:"name"`
	// Codec is "go-json" or "json".
	Codec string `yaml:"codec"`
}

// IndexConfig configures the index cache.
type IndexConfig struct {
	// CacheCapacity bounds the cached indexes; 0 means unbounded.
	CacheCapacity int `yaml:"cache_capacity"`
}

// StorageConfig holds object store credentials.
type StorageConfig struct {
	AWSRegion string      `yaml:"aws_region"`
	MinIO     MinIOConfig `yaml:"minio"`
}

// MinIOConfig holds MinIO connection settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// LogConfig selects log verbosity and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			EndpointPath: embedding.DefaultEndpointPath,
			Model:        embedding.DefaultModel,
			BatchSize:    embedding.DefaultBatchSize,
			Workers:      embedding.DefaultWorkers,
			MaxAttempts:  embedding.DefaultMaxAttempts,
			RetryDelay:   embedding.DefaultRetryDelay,
			Timeout:      embedding.DefaultTimeout,
		},
		Knowledge: KnowledgeConfig{
			URI:   ".",
			Name:  "knowledge.json",
			Codec: "go-json",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), then a .env
// file in the working directory if one exists, then the environment.
// ${VAR} references in the YAML file are expanded.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	_ = godotenv.Load(".env")

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	e := &cfg.Embedding
	e.BaseURL = getEnv("BASE_URL", e.BaseURL)
	e.BearerToken = getEnv("EMBEDDING_BEARER_TOKEN", e.BearerToken)
	e.TokenID = getEnv("EMBEDDING_TOKEN_ID", e.TokenID)
	e.TokenKey = getEnv("EMBEDDING_TOKEN_KEY", e.TokenKey)
	e.BatchSize = getEnvAsInt("EMBEDDING_BATCH_SIZE", e.BatchSize)
	e.Workers = getEnvAsInt("EMBEDDING_WORKERS", e.Workers)
	e.MaxAttempts = getEnvAsInt("EMBEDDING_MAX_RETRIES", e.MaxAttempts)
	e.RetryDelay = getEnvAsDuration("EMBEDDING_RETRY_DELAY", e.RetryDelay)
	e.Timeout = getEnvAsDuration("EMBEDDING_TIMEOUT", e.Timeout)
	e.RateLimit = getEnvAsFloat("EMBEDDING_RATE_LIMIT", e.RateLimit)

	cfg.Knowledge.URI = getEnv("KNOWLEDGE_URI", cfg.Knowledge.URI)
	cfg.Index.CacheCapacity = getEnvAsInt("INDEX_CACHE_CAPACITY", cfg.Index.CacheCapacity)

	cfg.Storage.AWSRegion = getEnv("AWS_REGION", cfg.Storage.AWSRegion)
	m := &cfg.Storage.MinIO
	m.Endpoint = getEnv("MINIO_ENDPOINT", m.Endpoint)
	m.AccessKey = getEnv("MINIO_ACCESS_KEY", m.AccessKey)
	m.SecretKey = getEnv("MINIO_SECRET_KEY", m.SecretKey)
	m.UseSSL = getEnvAsBool("MINIO_USE_SSL", m.UseSSL)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

// Validate checks the settings needed to talk to the embedding service.
func (c *Config) Validate() error {
	var errs []error
	if c.Embedding.BaseURL == "" {
		errs = append(errs, errors.New("embedding base URL is required: set BASE_URL"))
	}
	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding batch size must be positive, got %d", c.Embedding.BatchSize))
	}
	if c.Embedding.Workers <= 0 {
		errs = append(errs, fmt.Errorf("embedding workers must be positive, got %d", c.Embedding.Workers))
	}
	if c.Embedding.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("embedding max attempts must be positive, got %d", c.Embedding.MaxAttempts))
	}
	if c.Index.CacheCapacity < 0 {
		errs = append(errs, fmt.Errorf("index cache capacity must not be negative, got %d", c.Index.CacheCapacity))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// EmbeddingOptions returns an option function for embedding.New.
func (c *Config) EmbeddingOptions() func(o *embedding.Options) {
	e := c.Embedding
	return func(o *embedding.Options) {
		o.BaseURL = e.BaseURL
		o.EndpointPath = e.EndpointPath
		o.Model = e.Model
		o.Credentials = embedding.Credentials{
			BearerToken: e.BearerToken,
			TokenID:     e.TokenID,
			TokenKey:    e.TokenKey,
		}
		o.BatchSize = e.BatchSize
		o.Workers = e.Workers
		o.MaxAttempts = e.MaxAttempts
		o.RetryDelay = e.RetryDelay
		o.Timeout = e.Timeout
		o.RateLimit = e.RateLimit
	}
}

// SlogLevel parses Log.Level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("90s") and bare seconds ("90").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
