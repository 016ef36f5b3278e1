package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/goodtune/meetingstt/internal/metrics"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/rs/zerolog"
)

// DefaultWhisperTimeout bounds the single Whisper attempt
const DefaultWhisperTimeout = 60 * time.Second

// WhisperConfig holds settings for a Whisper-compatible transcription API
type WhisperConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Whisper is the fallback backend. It is not metered and never retried.
type Whisper struct {
	config WhisperConfig
	client *http.Client
	logger zerolog.Logger
}

// NewWhisper creates a Whisper backend
func NewWhisper(config WhisperConfig, logger zerolog.Logger) *Whisper {
	if config.Timeout == 0 {
		config.Timeout = DefaultWhisperTimeout
	}

	return &Whisper{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("backend", string(storage.ProviderWhisper)).Logger(),
	}
}

// Provider returns the ledger provider for this backend
func (w *Whisper) Provider() storage.Provider {
	return storage.ProviderWhisper
}

// Configured reports whether the base URL and API key are present
func (w *Whisper) Configured() bool {
	return w.config.BaseURL != "" && w.config.APIKey != ""
}

// Transcribe posts audio to {base}/transcribe once.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if !w.Configured() {
		return "", apperr.New(apperr.ConfigurationInvalid, "whisper base url and api key are required")
	}

	target := strings.TrimRight(w.config.BaseURL, "/") + "/transcribe"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("failed to build whisper request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.config.APIKey)
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")

	metrics.STTAttemptsTotal.WithLabelValues(string(storage.ProviderWhisper)).Inc()

	resp, err := w.client.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.UpstreamUnavailable, err, "whisper request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.UpstreamUnavailable, err, "failed to read whisper response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Upstream(apperr.UpstreamError, resp.StatusCode,
			"whisper request failed: %d %s", resp.StatusCode, apperr.Truncate(string(body), rawBodyLimit))
	}

	var data struct {
		Text       string `json:"text"`
		Transcript string `json:"transcript"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		e := apperr.Upstream(apperr.UpstreamError, resp.StatusCode,
			"malformed whisper response: raw=%s", apperr.Truncate(string(body), rawBodyLimit))
		e.Err = err
		return "", e
	}

	text := data.Text
	if text == "" {
		text = data.Transcript
	}
	if text == "" {
		return "", apperr.Upstream(apperr.UpstreamError, resp.StatusCode, "no text in whisper response")
	}

	return text, nil
}
