package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/meetingstt/internal/api"
	"github.com/goodtune/meetingstt/internal/config"
	"github.com/goodtune/meetingstt/internal/meeting"
	"github.com/goodtune/meetingstt/internal/metrics"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/goodtune/meetingstt/internal/storage/bolt"
	"github.com/goodtune/meetingstt/internal/storage/redis"
	"github.com/goodtune/meetingstt/internal/storage/sqlstore"
	"github.com/goodtune/meetingstt/internal/stt"
	"github.com/goodtune/meetingstt/internal/summary"
	"github.com/goodtune/meetingstt/internal/systemd"
	"github.com/goodtune/meetingstt/internal/usage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start meetingstt server",
	Long:  `Start the meetingstt HTTP API and, when enabled, the metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting meetingstt")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Initialize storage
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().Str("type", cfg.Storage.Type).Msg("Storage initialized")

	ledger := usage.NewLedger(store.Usage(), logger)

	// Speech-to-text backends
	azure := stt.NewAzureSpeech(stt.AzureConfig{
		Key:         cfg.STT.AzureSpeech.Key,
		Region:      cfg.STT.AzureSpeech.Region,
		Language:    cfg.STT.AzureSpeech.Language,
		Endpoint:    cfg.STT.AzureSpeech.Endpoint,
		Timeout:     parseDuration(cfg.STT.AzureSpeech.Timeout, stt.DefaultAzureTimeout),
		MaxAttempts: cfg.STT.AzureSpeech.MaxAttempts,
	}, logger)

	whisper := stt.NewWhisper(stt.WhisperConfig{
		BaseURL: cfg.STT.Whisper.BaseURL,
		APIKey:  cfg.STT.Whisper.APIKey,
		Timeout: parseDuration(cfg.STT.Whisper.Timeout, stt.DefaultWhisperTimeout),
	}, logger)

	orchestrator := stt.NewOrchestrator(stt.Config{
		UseSpeechService:       cfg.STT.UseSpeechService,
		UseWhisperAPI:          cfg.STT.UseWhisperAPI,
		FreeQuotaHoursPerMonth: cfg.STT.FreeQuotaHoursPerMonth,
	}, azure, whisper, ledger, logger)

	if !azure.Configured() && !whisper.Configured() {
		logger.Warn().Msg("No speech-to-text backend is configured; recordings will be rejected")
	}

	logger.Info().
		Bool("azure_speech", cfg.STT.UseSpeechService && azure.Configured()).
		Bool("whisper", cfg.STT.UseWhisperAPI && whisper.Configured()).
		Float64("quota_hours", cfg.STT.FreeQuotaHoursPerMonth).
		Msg("Transcription initialized")

	summarizer := summary.NewClient(summary.Config{
		Endpoint:         cfg.Summary.Endpoint,
		APIKey:           cfg.Summary.APIKey,
		Deployment:       cfg.Summary.Deployment,
		APIVersion:       cfg.Summary.APIVersion,
		SystemPromptPath: cfg.Summary.SystemPromptPath,
		Timeout:          parseDuration(cfg.Summary.Timeout, summary.DefaultTimeout),
		Temperature:      cfg.Summary.Temperature,
		TopP:             cfg.Summary.TopP,
		MaxTokens:        cfg.Summary.MaxTokens,
	}, logger)

	if !summarizer.Configured() {
		logger.Warn().Msg("Summarization is not configured; recordings will be rejected")
	}

	service := meeting.NewService(
		store.Meetings(),
		orchestrator,
		summarizer,
		ledger,
		meeting.CacheConfig{
			Size: cfg.Meetings.CacheSize,
			TTL:  parseDuration(cfg.Meetings.CacheTTL, meeting.DefaultCacheTTL),
		},
		logger,
	)

	// Initialize API Server
	apiAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.APIPort)
	apiServer := api.NewServer(api.Config{
		ListenAddr:     apiAddr,
		AppName:        cfg.App.Name,
		Environment:    cfg.App.Environment,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminSecret:    cfg.Server.AdminSecret,
		AdminTokenTTL:  parseDuration(cfg.Server.AdminTokenTTL, api.DefaultTokenExpiration),
	}, service, ledger, logger)

	if cfg.Server.AdminSecret == "" {
		logger.Warn().Msg("Admin endpoints are not protected; set server.admin_jwt_secret to require tokens")
	}

	// Use systemd socket-activated listener if available
	if sdListeners.Activated && sdListeners.API != nil {
		apiServer.SetListener(sdListeners.API)
	}

	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API Server: %w", err)
	}

	logger.Info().
		Str("addr", apiAddr).
		Msg("API Server started")

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Server.EnableMetrics {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		if sdListeners.Activated && sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start Metrics Server: %w", err)
		}

		logger.Info().
			Str("addr", metricsAddr).
			Msg("Metrics Server started")
	}

	logger.Info().Msg("meetingstt startup complete")

	// Notify systemd that we're ready to serve requests
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	} else {
		logger.Debug().Msg("Sent systemd ready notification")
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if err := apiServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping API Server")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping Metrics Server")
		}
	}

	logger.Info().Msg("meetingstt stopped")

	return nil
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "bolt"
	}

	switch storageType {
	case "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	case "sqlite":
		return sqlstore.Open(sqlstore.DialectSQLite, cfg.DSN)
	case "postgres":
		return sqlstore.Open(sqlstore.DialectPostgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
