package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	STT      STTConfig      `mapstructure:"stt"`
	Summary  SummaryConfig  `mapstructure:"summary"`
	Meetings MeetingsConfig `mapstructure:"meetings"`
}

// AppConfig identifies the running service
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig defines server ports and addresses
type ServerConfig struct {
	BindAddress    string   `mapstructure:"bind_address"`
	APIPort        int      `mapstructure:"api_port"`
	MetricsPort    int      `mapstructure:"metrics_port"`
	EnableMetrics  bool     `mapstructure:"enable_metrics"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AdminSecret    string   `mapstructure:"admin_jwt_secret"` // empty leaves /admin open
	AdminTokenTTL  string   `mapstructure:"admin_token_ttl"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // bolt, redis, sqlite or postgres
	Path  string      `mapstructure:"path"` // bolt database file
	DSN   string      `mapstructure:"dsn"`  // sqlite file or postgres URL
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// STTConfig defines speech-to-text backend selection and quota
type STTConfig struct {
	UseSpeechService       bool              `mapstructure:"use_speech_service"`
	UseWhisperAPI          bool              `mapstructure:"use_whisper_api"`
	FreeQuotaHoursPerMonth float64           `mapstructure:"free_quota_hours_per_month"`
	AzureSpeech            AzureSpeechConfig `mapstructure:"azure_speech"`
	Whisper                WhisperConfig     `mapstructure:"whisper"`
}

// AzureSpeechConfig defines the quota-limited Azure Speech backend
type AzureSpeechConfig struct {
	Key         string `mapstructure:"key"`
	Region      string `mapstructure:"region"`
	Language    string `mapstructure:"language"`
	Endpoint    string `mapstructure:"endpoint"` // overrides the regional URL
	Timeout     string `mapstructure:"timeout"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// WhisperConfig defines the fallback Whisper-compatible backend
type WhisperConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout string `mapstructure:"timeout"`
}

// SummaryConfig defines the Azure OpenAI summarization settings
type SummaryConfig struct {
	Endpoint         string  `mapstructure:"endpoint"`
	APIKey           string  `mapstructure:"api_key"`
	Deployment       string  `mapstructure:"deployment"`
	APIVersion       string  `mapstructure:"api_version"`
	SystemPromptPath string  `mapstructure:"system_prompt_path"`
	Timeout          string  `mapstructure:"timeout"`
	Temperature      float64 `mapstructure:"temperature"`
	TopP             float64 `mapstructure:"top_p"`
	MaxTokens        int     `mapstructure:"max_tokens"`
}

// MeetingsConfig defines the meeting detail cache
type MeetingsConfig struct {
	CacheSize int    `mapstructure:"cache_size"`
	CacheTTL  string `mapstructure:"cache_ttl"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration built from default values only.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	return &config, nil
}

func newViper(configPath string) (*viper.Viper, error) {
	// A .env file next to the working directory is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("MEETINGSTT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	return v, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "meeting-stt")
	v.SetDefault("app.environment", "development")

	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.api_port", 8000)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.admin_jwt_secret", "")
	v.SetDefault("server.admin_token_ttl", "24h")

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/meetingstt/meetingstt.bolt")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// STT defaults
	v.SetDefault("stt.use_speech_service", true)
	v.SetDefault("stt.use_whisper_api", false)
	v.SetDefault("stt.free_quota_hours_per_month", 5.0)
	v.SetDefault("stt.azure_speech.key", "")
	v.SetDefault("stt.azure_speech.region", "")
	v.SetDefault("stt.azure_speech.language", "ko-KR")
	v.SetDefault("stt.azure_speech.endpoint", "")
	v.SetDefault("stt.azure_speech.timeout", "30s")
	v.SetDefault("stt.azure_speech.max_attempts", 3)
	v.SetDefault("stt.whisper.base_url", "")
	v.SetDefault("stt.whisper.api_key", "")
	v.SetDefault("stt.whisper.timeout", "60s")

	// Summary defaults
	v.SetDefault("summary.endpoint", "")
	v.SetDefault("summary.api_key", "")
	v.SetDefault("summary.deployment", "")
	v.SetDefault("summary.api_version", "2024-05-01-preview")
	v.SetDefault("summary.system_prompt_path", "")
	v.SetDefault("summary.timeout", "60s")
	v.SetDefault("summary.temperature", 0.2)
	v.SetDefault("summary.top_p", 1.0)
	v.SetDefault("summary.max_tokens", 1024)

	// Meeting cache defaults
	v.SetDefault("meetings.cache_size", 256)
	v.SetDefault("meetings.cache_ttl", "5m")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.APIPort <= 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.Server.APIPort)
	}
	if cfg.Server.EnableMetrics && (cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if cfg.STT.FreeQuotaHoursPerMonth < 0 {
		return fmt.Errorf("free_quota_hours_per_month must not be negative: %v", cfg.STT.FreeQuotaHoursPerMonth)
	}
	if cfg.STT.AzureSpeech.MaxAttempts < 1 {
		return fmt.Errorf("azure_speech.max_attempts must be at least 1: %d", cfg.STT.AzureSpeech.MaxAttempts)
	}

	durations := map[string]string{
		"stt.azure_speech.timeout": cfg.STT.AzureSpeech.Timeout,
		"stt.whisper.timeout":      cfg.STT.Whisper.Timeout,
		"summary.timeout":          cfg.Summary.Timeout,
		"meetings.cache_ttl":       cfg.Meetings.CacheTTL,
		"server.admin_token_ttl":   cfg.Server.AdminTokenTTL,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "bolt"
	}

	switch cfg.Storage.Type {
	case "bolt":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
		// Ensure storage directory exists
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	case "sqlite", "postgres":
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage dsn is required for %s", cfg.Storage.Type)
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}

	return nil
}
