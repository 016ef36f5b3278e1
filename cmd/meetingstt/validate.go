package main

import (
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/meetingstt/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the meetingstt configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "✅ Configuration is valid: %s\n", configPath)

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(os.Stdout)
		red.Fprintf(os.Stdout, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(os.Stdout, "   - %s\n", key)
		}
		fmt.Fprintln(os.Stdout, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(os.Stdout, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(os.Stdout, strings.Repeat("=", 80))

		defaultCfg, err := config.Defaults()
		if err != nil {
			return err
		}

		dumpConfig(cfg, defaultCfg)
	}

	return nil
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	validKeys := getValidKeys()

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// getValidKeys returns a set of all valid configuration keys
func getValidKeys() map[string]bool {
	return map[string]bool{
		// App
		"app.name":        true,
		"app.environment": true,

		// Server
		"server.bind_address":     true,
		"server.api_port":         true,
		"server.metrics_port":     true,
		"server.enable_metrics":   true,
		"server.allowed_origins":  true,
		"server.admin_jwt_secret": true,
		"server.admin_token_ttl":  true,

		// Storage
		"storage.type":                 true,
		"storage.path":                 true,
		"storage.dsn":                  true,
		"storage.redis.host":           true,
		"storage.redis.port":           true,
		"storage.redis.password":       true,
		"storage.redis.db":             true,
		"storage.redis.pool_size":      true,
		"storage.redis.min_idle_conns": true,
		"storage.redis.dial_timeout":   true,
		"storage.redis.read_timeout":   true,
		"storage.redis.write_timeout":  true,

		// Logging
		"logging.level":  true,
		"logging.format": true,

		// Speech-to-text
		"stt.use_speech_service":         true,
		"stt.use_whisper_api":            true,
		"stt.free_quota_hours_per_month": true,
		"stt.azure_speech.key":           true,
		"stt.azure_speech.region":        true,
		"stt.azure_speech.language":      true,
		"stt.azure_speech.endpoint":      true,
		"stt.azure_speech.timeout":       true,
		"stt.azure_speech.max_attempts":  true,
		"stt.whisper.base_url":           true,
		"stt.whisper.api_key":            true,
		"stt.whisper.timeout":            true,

		// Summary
		"summary.endpoint":           true,
		"summary.api_key":            true,
		"summary.deployment":         true,
		"summary.api_version":        true,
		"summary.system_prompt_path": true,
		"summary.timeout":            true,
		"summary.temperature":        true,
		"summary.top_p":              true,
		"summary.max_tokens":         true,

		// Meetings
		"meetings.cache_size": true,
		"meetings.cache_ttl":  true,
	}
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	// App
	_, _ = cyan.Println("\n[app]")
	dumpField("  name", cfg.App.Name, defaultCfg.App.Name, yellow, green)
	dumpField("  environment", cfg.App.Environment, defaultCfg.App.Environment, yellow, green)

	// Server
	_, _ = cyan.Println("\n[server]")
	dumpField("  bind_address", cfg.Server.BindAddress, defaultCfg.Server.BindAddress, yellow, green)
	dumpField("  api_port", cfg.Server.APIPort, defaultCfg.Server.APIPort, yellow, green)
	dumpField("  metrics_port", cfg.Server.MetricsPort, defaultCfg.Server.MetricsPort, yellow, green)
	dumpField("  enable_metrics", cfg.Server.EnableMetrics, defaultCfg.Server.EnableMetrics, yellow, green)
	dumpField("  allowed_origins", cfg.Server.AllowedOrigins, defaultCfg.Server.AllowedOrigins, yellow, green)
	dumpField("  admin_jwt_secret", redactSecret(cfg.Server.AdminSecret), redactSecret(defaultCfg.Server.AdminSecret), yellow, green)
	dumpField("  admin_token_ttl", cfg.Server.AdminTokenTTL, defaultCfg.Server.AdminTokenTTL, yellow, green)

	// Storage
	_, _ = cyan.Println("\n[storage]")
	dumpField("  type", cfg.Storage.Type, defaultCfg.Storage.Type, yellow, green)
	dumpField("  path", cfg.Storage.Path, defaultCfg.Storage.Path, yellow, green)
	dumpField("  dsn", redactSecret(cfg.Storage.DSN), redactSecret(defaultCfg.Storage.DSN), yellow, green)
	_, _ = cyan.Println("  [storage.redis]")
	dumpField("    host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host, yellow, green)
	dumpField("    port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port, yellow, green)
	dumpField("    password", redactSecret(cfg.Storage.Redis.Password), redactSecret(defaultCfg.Storage.Redis.Password), yellow, green)
	dumpField("    db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB, yellow, green)
	dumpField("    pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize, yellow, green)
	dumpField("    min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns, yellow, green)
	dumpField("    dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout, yellow, green)
	dumpField("    read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout, yellow, green)
	dumpField("    write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout, yellow, green)

	// Logging
	_, _ = cyan.Println("\n[logging]")
	dumpField("  level", cfg.Logging.Level, defaultCfg.Logging.Level, yellow, green)
	dumpField("  format", cfg.Logging.Format, defaultCfg.Logging.Format, yellow, green)

	// Speech-to-text
	_, _ = cyan.Println("\n[stt]")
	dumpField("  use_speech_service", cfg.STT.UseSpeechService, defaultCfg.STT.UseSpeechService, yellow, green)
	dumpField("  use_whisper_api", cfg.STT.UseWhisperAPI, defaultCfg.STT.UseWhisperAPI, yellow, green)
	dumpField("  free_quota_hours_per_month", cfg.STT.FreeQuotaHoursPerMonth, defaultCfg.STT.FreeQuotaHoursPerMonth, yellow, green)
	_, _ = cyan.Println("  [stt.azure_speech]")
	dumpField("    key", redactSecret(cfg.STT.AzureSpeech.Key), redactSecret(defaultCfg.STT.AzureSpeech.Key), yellow, green)
	dumpField("    region", cfg.STT.AzureSpeech.Region, defaultCfg.STT.AzureSpeech.Region, yellow, green)
	dumpField("    language", cfg.STT.AzureSpeech.Language, defaultCfg.STT.AzureSpeech.Language, yellow, green)
	dumpField("    endpoint", cfg.STT.AzureSpeech.Endpoint, defaultCfg.STT.AzureSpeech.Endpoint, yellow, green)
	dumpField("    timeout", cfg.STT.AzureSpeech.Timeout, defaultCfg.STT.AzureSpeech.Timeout, yellow, green)
	dumpField("    max_attempts", cfg.STT.AzureSpeech.MaxAttempts, defaultCfg.STT.AzureSpeech.MaxAttempts, yellow, green)
	_, _ = cyan.Println("  [stt.whisper]")
	dumpField("    base_url", cfg.STT.Whisper.BaseURL, defaultCfg.STT.Whisper.BaseURL, yellow, green)
	dumpField("    api_key", redactSecret(cfg.STT.Whisper.APIKey), redactSecret(defaultCfg.STT.Whisper.APIKey), yellow, green)
	dumpField("    timeout", cfg.STT.Whisper.Timeout, defaultCfg.STT.Whisper.Timeout, yellow, green)

	// Summary
	_, _ = cyan.Println("\n[summary]")
	dumpField("  endpoint", cfg.Summary.Endpoint, defaultCfg.Summary.Endpoint, yellow, green)
	dumpField("  api_key", redactSecret(cfg.Summary.APIKey), redactSecret(defaultCfg.Summary.APIKey), yellow, green)
	dumpField("  deployment", cfg.Summary.Deployment, defaultCfg.Summary.Deployment, yellow, green)
	dumpField("  api_version", cfg.Summary.APIVersion, defaultCfg.Summary.APIVersion, yellow, green)
	dumpField("  system_prompt_path", cfg.Summary.SystemPromptPath, defaultCfg.Summary.SystemPromptPath, yellow, green)
	dumpField("  timeout", cfg.Summary.Timeout, defaultCfg.Summary.Timeout, yellow, green)
	dumpField("  temperature", cfg.Summary.Temperature, defaultCfg.Summary.Temperature, yellow, green)
	dumpField("  top_p", cfg.Summary.TopP, defaultCfg.Summary.TopP, yellow, green)
	dumpField("  max_tokens", cfg.Summary.MaxTokens, defaultCfg.Summary.MaxTokens, yellow, green)

	// Meetings
	_, _ = cyan.Println("\n[meetings]")
	dumpField("  cache_size", cfg.Meetings.CacheSize, defaultCfg.Meetings.CacheSize, yellow, green)
	dumpField("  cache_ttl", cfg.Meetings.CacheTTL, defaultCfg.Meetings.CacheTTL, yellow, green)

	_, _ = fmt.Fprintln(os.Stdout, "\n"+strings.Repeat("=", 80))
}

// dumpField prints a field with color if it differs from default
func dumpField(name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	valueStr := fmt.Sprintf("%v", value)

	if reflect.DeepEqual(value, defaultValue) {
		_, _ = defaultColor.Printf("%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Printf("%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactSecret hides credentials if set
func redactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "***REDACTED***"
}
