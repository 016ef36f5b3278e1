package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/goodtune/meetingstt/internal/metrics"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/rs/zerolog"
)

const (
	// DefaultAzureTimeout bounds a single Azure Speech attempt
	DefaultAzureTimeout = 30 * time.Second

	// DefaultAzureMaxAttempts is the number of tries for network-layer failures
	DefaultAzureMaxAttempts = 3

	azureRecognitionPath = "/speech/recognition/conversation/cognitiveservices/v1"

	// rawBodyLimit caps upstream bodies copied into logs and errors
	rawBodyLimit = 500
)

// AzureConfig holds Azure Speech settings
type AzureConfig struct {
	Key      string
	Region   string
	Language string
	// Endpoint replaces https://{region}.stt.speech.microsoft.com when set
	Endpoint    string
	Timeout     time.Duration
	MaxAttempts int
	// BackoffUnit is multiplied by the attempt number between retries
	BackoffUnit time.Duration
}

// AzureSpeech is the quota-limited Azure Speech REST backend.
type AzureSpeech struct {
	config AzureConfig
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
	logger zerolog.Logger
}

// NewAzureSpeech creates an Azure Speech backend
func NewAzureSpeech(config AzureConfig, logger zerolog.Logger) *AzureSpeech {
	if config.Timeout == 0 {
		config.Timeout = DefaultAzureTimeout
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = DefaultAzureMaxAttempts
	}
	if config.BackoffUnit == 0 {
		config.BackoffUnit = time.Second
	}

	return &AzureSpeech{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		sleep:  sleepContext,
		logger: logger.With().Str("backend", string(storage.ProviderAzureSpeech)).Logger(),
	}
}

// Provider returns the ledger provider for this backend
func (a *AzureSpeech) Provider() storage.Provider {
	return storage.ProviderAzureSpeech
}

// Configured reports whether the key and region are present
func (a *AzureSpeech) Configured() bool {
	return a.config.Key != "" && a.config.Region != ""
}

func (a *AzureSpeech) url() string {
	base := a.config.Endpoint
	if base == "" {
		base = fmt.Sprintf("https://%s.stt.speech.microsoft.com", a.config.Region)
	}

	query := url.Values{}
	query.Set("language", a.config.Language)
	return strings.TrimRight(base, "/") + azureRecognitionPath + "?" + query.Encode()
}

// Transcribe sends audio to Azure Speech. Network-layer failures are retried
// with a linear backoff; HTTP error responses are not.
func (a *AzureSpeech) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if !a.Configured() {
		return "", apperr.New(apperr.ConfigurationInvalid, "azure speech key and region are required")
	}

	target := a.url()

	var lastErr error
	for attempt := 1; attempt <= a.config.MaxAttempts; attempt++ {
		metrics.STTAttemptsTotal.WithLabelValues(string(storage.ProviderAzureSpeech)).Inc()

		status, body, err := a.post(ctx, target, audio)
		if err == nil {
			if status < 200 || status > 299 {
				return "", apperr.Upstream(apperr.UpstreamError, status,
					"azure speech request failed: %d %s", status, apperr.Truncate(string(body), rawBodyLimit))
			}
			return a.extract(status, body)
		}

		// The caller went away; retrying cannot help
		if ctx.Err() != nil {
			return "", apperr.Wrap(apperr.UpstreamUnavailable, ctx.Err(), "azure speech request abandoned")
		}

		lastErr = err
		a.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", a.config.MaxAttempts).
			Msg("Azure Speech network error")

		if attempt < a.config.MaxAttempts {
			if err := a.sleep(ctx, time.Duration(attempt)*a.config.BackoffUnit); err != nil {
				return "", apperr.Wrap(apperr.UpstreamUnavailable, err, "azure speech request abandoned")
			}
		}
	}

	return "", apperr.Wrap(apperr.UpstreamUnavailable, lastErr,
		"azure speech network error after %d attempts", a.config.MaxAttempts)
}

// post performs one attempt. A non-nil error means no complete HTTP response
// was received.
func (a *AzureSpeech) post(ctx context.Context, target string, audio []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(audio))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", a.config.Key)
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

type azureResponse struct {
	RecognitionStatus string  `json:"RecognitionStatus"`
	DisplayText       *string `json:"DisplayText"`
	NBest             []struct {
		Display *string `json:"Display"`
		Lexical *string `json:"Lexical"`
	} `json:"NBest"`
}

// extract pulls the transcript from a recognition result. An empty string is
// a valid "no speech" outcome; a missing field is an upstream error.
func (a *AzureSpeech) extract(status int, body []byte) (string, error) {
	var data azureResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return "", missingText(status, body, err)
	}

	text := data.DisplayText
	if text == nil && len(data.NBest) > 0 {
		best := data.NBest[0]
		switch {
		case best.Display != nil && *best.Display != "":
			text = best.Display
		default:
			text = best.Lexical
		}
	}

	if text == nil {
		return "", missingText(status, body, nil)
	}

	if *text == "" {
		a.logger.Warn().
			Str("recognition_status", data.RecognitionStatus).
			Str("raw", apperr.Truncate(string(body), rawBodyLimit)).
			Msg("Azure Speech returned empty text")
	}

	return *text, nil
}

func missingText(status int, body []byte, cause error) error {
	e := apperr.Upstream(apperr.UpstreamError, status,
		"no text in azure speech response: raw=%s", apperr.Truncate(string(body), rawBodyLimit))
	e.Err = cause
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
