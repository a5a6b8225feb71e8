package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Imaging  ImagingConfig  `yaml:"imaging"`
	LLM      LLMConfig      `yaml:"llm"`
	Blob     BlobConfig     `yaml:"blob"`
	Redis    RedisConfig    `yaml:"redis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Auth     AuthConfig     `yaml:"auth"`
	Batch    BatchConfig    `yaml:"batch"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string        `yaml:"dsn"`
	Driver           string        `yaml:"driver"` // postgres | sqlite
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// ImagingConfig holds image compression configuration
type ImagingConfig struct {
	HeicConverter string `yaml:"heic_converter"`
	MaxDimension  int    `yaml:"max_dimension"`
	MaxBytes      int    `yaml:"max_bytes"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider     string        `yaml:"provider"` // openai | gemini
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	GeminiAPIKey string        `yaml:"gemini_api_key"`
	BaseURL      string        `yaml:"base_url"`
	Temperature  float32       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
}

// BlobConfig holds essay image storage configuration
type BlobConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

// RedisConfig holds event publishing configuration; empty URL disables events
type RedisConfig struct {
	URL string `yaml:"url"`
}

// MetricsConfig holds the HTTP side-listener configuration (metrics + blobs)
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// AuthConfig maps bearer tokens to identities for the static provider
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens"`
}

// TokenConfig is one static credential
type TokenConfig struct {
	Token  string `yaml:"token"`
	UserID string `yaml:"user_id"`
	Name   string `yaml:"name"`
	Role   string `yaml:"role"`
}

// BatchConfig holds batch session limits
type BatchConfig struct {
	QueueSize   int           `yaml:"queue_size"`
	StepTimeout time.Duration `yaml:"step_timeout"`
	IdleExpiry  time.Duration `yaml:"idle_expiry"`
}

// LoadConfig loads configuration from the optional YAML file named by
// SNAPCHECK_CONFIG, then applies environment variable overrides.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	if path := os.Getenv("SNAPCHECK_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{GRPCAddr: ":8080"},
		Imaging: ImagingConfig{
			HeicConverter: "magick",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.0,
			Timeout:     60 * time.Second,
		},
		Blob: BlobConfig{
			Root:    "./data/blobs",
			BaseURL: "http://localhost:9090/blobs",
		},
		Metrics: MetricsConfig{Addr: ":9090"},
		Batch: BatchConfig{
			QueueSize:   64,
			StepTimeout: 2 * time.Minute,
			IdleExpiry:  2 * time.Hour,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}
	for i := range cfg.Auth.Tokens {
		cfg.Auth.Tokens[i].Token = os.ExpandEnv(cfg.Auth.Tokens[i].Token)
	}
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)
	cfg.LLM.GeminiAPIKey = os.ExpandEnv(cfg.LLM.GeminiAPIKey)
	return nil
}

func applyEnv(c *Config) {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	if c.Server.GRPCAddr != "" && !strings.Contains(c.Server.GRPCAddr, ":") {
		c.Server.GRPCAddr = ":" + c.Server.GRPCAddr
	}

	c.Imaging.HeicConverter = getEnv("HEIC_CONVERTER", c.Imaging.HeicConverter)
	c.Imaging.MaxDimension = getEnvAsInt("IMAGE_MAX_DIMENSION", c.Imaging.MaxDimension)
	c.Imaging.MaxBytes = getEnvAsInt("IMAGE_MAX_BYTES", c.Imaging.MaxBytes)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.LLM.GeminiAPIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Blob.Root = getEnv("BLOB_ROOT", c.Blob.Root)
	c.Blob.BaseURL = getEnv("BLOB_BASE_URL", c.Blob.BaseURL)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Metrics.Addr = getEnv("METRICS_ADDR", c.Metrics.Addr)

	c.Batch.QueueSize = getEnvAsInt("BATCH_QUEUE_SIZE", c.Batch.QueueSize)
	c.Batch.StepTimeout = getEnvAsDuration("BATCH_STEP_TIMEOUT", c.Batch.StepTimeout)
	c.Batch.IdleExpiry = getEnvAsDuration("BATCH_IDLE_EXPIRY", c.Batch.IdleExpiry)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
		}
	case "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be openai or gemini", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	if c.Blob.Root == "" {
		return NewAppError("CONFIG_ERROR", "BLOB_ROOT is required", ErrInvalidInput)
	}
	v := NewValidator()
	for i, t := range c.Auth.Tokens {
		v.Field(fmt.Sprintf("auth.tokens[%d].role", i), strings.ToLower(t.Role), OneOf("", "teacher", "student"))
	}
	if err := v.Error(); err != nil {
		return NewAppError("CONFIG_ERROR", err.Error(), ErrInvalidInput)
	}
	return nil
}
