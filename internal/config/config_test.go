package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEETINGSTT_STORAGE_PATH", filepath.Join(dir, "data", "meetingstt.bolt"))

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Name != "meeting-stt" {
		t.Errorf("expected app name meeting-stt, got %s", cfg.App.Name)
	}
	if cfg.Server.APIPort != 8000 {
		t.Errorf("expected API port 8000, got %d", cfg.Server.APIPort)
	}
	if !cfg.STT.UseSpeechService || cfg.STT.UseWhisperAPI {
		t.Errorf("unexpected backend flags: speech=%v whisper=%v", cfg.STT.UseSpeechService, cfg.STT.UseWhisperAPI)
	}
	if cfg.STT.FreeQuotaHoursPerMonth != 5.0 {
		t.Errorf("expected quota 5.0, got %v", cfg.STT.FreeQuotaHoursPerMonth)
	}
	if cfg.STT.AzureSpeech.Language != "ko-KR" {
		t.Errorf("expected language ko-KR, got %s", cfg.STT.AzureSpeech.Language)
	}
	if cfg.STT.AzureSpeech.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.STT.AzureSpeech.MaxAttempts)
	}
	if cfg.Summary.MaxTokens != 1024 || cfg.Summary.Temperature != 0.2 || cfg.Summary.TopP != 1.0 {
		t.Errorf("unexpected summary sampling: %+v", cfg.Summary)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("expected allow-all origins, got %v", cfg.Server.AllowedOrigins)
	}

	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Errorf("expected storage directory to be created: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meetingstt.yaml")

	content := `
app:
  environment: production
storage:
  type: sqlite
  dsn: ` + filepath.Join(dir, "meetingstt.db") + `
stt:
  use_speech_service: false
  use_whisper_api: true
  free_quota_hours_per_month: 2.5
  whisper:
    base_url: http://whisper.internal
    api_key: secret
summary:
  deployment: gpt-4o-mini
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Environment != "production" {
		t.Errorf("expected production, got %s", cfg.App.Environment)
	}
	if cfg.Storage.Type != "sqlite" {
		t.Errorf("expected sqlite storage, got %s", cfg.Storage.Type)
	}
	if cfg.STT.UseSpeechService || !cfg.STT.UseWhisperAPI {
		t.Errorf("unexpected backend flags: %+v", cfg.STT)
	}
	if cfg.STT.FreeQuotaHoursPerMonth != 2.5 {
		t.Errorf("expected quota 2.5, got %v", cfg.STT.FreeQuotaHoursPerMonth)
	}
	if cfg.STT.Whisper.BaseURL != "http://whisper.internal" {
		t.Errorf("unexpected whisper base url: %s", cfg.STT.Whisper.BaseURL)
	}
	if cfg.Summary.Deployment != "gpt-4o-mini" {
		t.Errorf("unexpected deployment: %s", cfg.Summary.Deployment)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEETINGSTT_STORAGE_PATH", filepath.Join(dir, "meetingstt.bolt"))
	t.Setenv("MEETINGSTT_STT_AZURE_SPEECH_REGION", "koreacentral")
	t.Setenv("MEETINGSTT_SERVER_API_PORT", "8080")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.STT.AzureSpeech.Region != "koreacentral" {
		t.Errorf("expected region from env, got %q", cfg.STT.AzureSpeech.Region)
	}
	if cfg.Server.APIPort != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.APIPort)
	}
}

func TestDefaultsIgnoreEnvironment(t *testing.T) {
	t.Setenv("MEETINGSTT_SERVER_API_PORT", "8080")

	cfg, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults failed: %v", err)
	}
	if cfg.Server.APIPort != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.APIPort)
	}
	if cfg.Storage.Type != "bolt" {
		t.Errorf("expected bolt storage, got %s", cfg.Storage.Type)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	valid := func() *Config {
		return &Config{
			Server: ServerConfig{APIPort: 8000, MetricsPort: 9090, EnableMetrics: true, AdminTokenTTL: "24h"},
			Storage: StorageConfig{
				Type: "bolt",
				Path: filepath.Join(dir, "meetingstt.bolt"),
			},
			STT: STTConfig{
				FreeQuotaHoursPerMonth: 5,
				AzureSpeech:            AzureSpeechConfig{Timeout: "30s", MaxAttempts: 3},
				Whisper:                WhisperConfig{Timeout: "60s"},
			},
			Summary:  SummaryConfig{Timeout: "60s"},
			Meetings: MeetingsConfig{CacheTTL: "5m"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing credentials are allowed", func(c *Config) { c.STT.AzureSpeech.Key = "" }, false},
		{"bad api port", func(c *Config) { c.Server.APIPort = 70000 }, true},
		{"metrics port ignored when disabled", func(c *Config) { c.Server.EnableMetrics = false; c.Server.MetricsPort = 0 }, false},
		{"negative quota", func(c *Config) { c.STT.FreeQuotaHoursPerMonth = -1 }, true},
		{"zero attempts", func(c *Config) { c.STT.AzureSpeech.MaxAttempts = 0 }, true},
		{"bad timeout", func(c *Config) { c.Summary.Timeout = "soon" }, true},
		{"bad admin token ttl", func(c *Config) { c.Server.AdminTokenTTL = "" }, true},
		{"unknown storage", func(c *Config) { c.Storage.Type = "mongo" }, true},
		{"sqlite without dsn", func(c *Config) { c.Storage.Type = "sqlite" }, true},
		{"postgres with dsn", func(c *Config) { c.Storage.Type = "postgres"; c.Storage.DSN = "postgres://localhost/meetings" }, false},
		{"redis without host", func(c *Config) { c.Storage.Type = "redis" }, true},
		{"empty type defaults to bolt", func(c *Config) { c.Storage.Type = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
