// Package config loads service configuration from an optional YAML file,
// a .env file and the process environment, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// ProviderConfig describes the Financial Modeling Prep endpoint.
type ProviderConfig struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	APIKey            string        `yaml:"api_key"`
	StatementLimit    int           `yaml:"statement_limit" validate:"gte=1,lte=400"`
	MarketCapLimit    int           `yaml:"market_cap_limit" validate:"gte=1"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	CacheTTL          time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gt=0"`
	Burst             int           `yaml:"burst" validate:"gte=1"`
}

// DatabaseConfig enables run persistence when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// KafkaConfig enables event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic" validate:"required_with=Brokers"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gte=1,lte=65535"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// ExportConfig enables a spreadsheet dump of every merged series when Dir is set.
type ExportConfig struct {
	Dir string `yaml:"dir"`
}

// ModelConfig holds request defaults.
type ModelConfig struct {
	ScaleMetric string `yaml:"scale_metric" validate:"required"`
	Mode        string `yaml:"mode" validate:"oneof=ttm raw"`
	Horizon     int    `yaml:"horizon" validate:"gte=0,lte=40"`
	StrictMerge bool   `yaml:"strict_merge"`
}

// Config is the full application configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Export   ExportConfig   `yaml:"export"`
	Model    ModelConfig    `yaml:"model"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:           "https://financialmodelingprep.com/api/v3",
			StatementLimit:    100,
			MarketCapLimit:    6000,
			Timeout:           30 * time.Second,
			CacheTTL:          24 * time.Hour,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Kafka:  KafkaConfig{Topic: "reit-valuations"},
		Server: ServerConfig{Port: 8080, AllowedOrigins: []string{"*"}},
		Log:    LogConfig{Level: "info"},
		Model: ModelConfig{
			ScaleMetric: "totalAssets",
			Mode:        "ttm",
			Horizon:     1,
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Provider.BaseURL = getEnv("FMP_BASE_URL", cfg.Provider.BaseURL)
	cfg.Provider.APIKey = getEnv("FMP_API_KEY", cfg.Provider.APIKey)
	cfg.Provider.StatementLimit = getEnvAsInt("FMP_STATEMENT_LIMIT", cfg.Provider.StatementLimit)
	cfg.Provider.Timeout = getEnvAsDuration("FMP_TIMEOUT", cfg.Provider.Timeout)
	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	cfg.Server.Port = getEnvAsInt("PORT", cfg.Server.Port)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getEnvAsBool("LOG_PRETTY", cfg.Log.Pretty)
	cfg.Export.Dir = getEnv("EXPORT_DIR", cfg.Export.Dir)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
