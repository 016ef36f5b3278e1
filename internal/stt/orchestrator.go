// Package stt selects a speech-to-text backend for each request, enforces the
// monthly quota of the metered backend and records its usage.
package stt

import (
	"context"
	"time"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/goodtune/meetingstt/internal/metrics"
	"github.com/goodtune/meetingstt/internal/quota"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/rs/zerolog"
)

// Backend transcribes raw WAV audio.
type Backend interface {
	Provider() storage.Provider
	Configured() bool
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Ledger is the part of the usage ledger the orchestrator needs.
type Ledger interface {
	Now() time.Time
	UsageHours(ctx context.Context, provider storage.Provider, now time.Time) (float64, error)
	Record(ctx context.Context, provider storage.Provider, durationSeconds float64) error
}

// Config holds backend selection flags and the monthly quota
type Config struct {
	UseSpeechService       bool
	UseWhisperAPI          bool
	FreeQuotaHoursPerMonth float64
}

// Orchestrator routes transcription requests to a backend.
type Orchestrator struct {
	config   Config
	metered  Backend
	fallback Backend
	ledger   Ledger
	logger   zerolog.Logger
}

// NewOrchestrator creates an orchestrator. metered is the quota-limited
// backend and fallback is used only when metered is disabled or unconfigured.
func NewOrchestrator(config Config, metered, fallback Backend, ledger Ledger, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		config:   config,
		metered:  metered,
		fallback: fallback,
		ledger:   ledger,
		logger:   logger.With().Str("component", "stt").Logger(),
	}
}

// Select returns the backend to use for the next request.
func (o *Orchestrator) Select() (Backend, error) {
	if o.config.UseSpeechService && o.metered != nil && o.metered.Configured() {
		return o.metered, nil
	}
	if o.config.UseWhisperAPI && o.fallback != nil && o.fallback.Configured() {
		return o.fallback, nil
	}
	return nil, apperr.New(apperr.NoBackendAvailable, "no speech-to-text backend is configured")
}

// QuotaHours returns the configured monthly quota
func (o *Orchestrator) QuotaHours() float64 {
	return o.config.FreeQuotaHoursPerMonth
}

// Transcribe converts audio to text. durationSeconds is the caller's
// declared length and is what gets charged against the quota.
//
// Admission reads the ledger before the call and records after it, so
// concurrent requests can overshoot the quota.
func (o *Orchestrator) Transcribe(ctx context.Context, audio []byte, durationSeconds float64) (string, error) {
	backend, err := o.Select()
	if err != nil {
		metrics.STTRequestsTotal.WithLabelValues("none", "no_backend").Inc()
		return "", err
	}

	provider := backend.Provider()
	metered := backend == o.metered

	if metered {
		used, err := o.ledger.UsageHours(ctx, provider, o.ledger.Now())
		if err != nil {
			metrics.STTRequestsTotal.WithLabelValues(string(provider), "error").Inc()
			return "", err
		}

		if err := quota.Check(used, durationSeconds, o.config.FreeQuotaHoursPerMonth); err != nil {
			if !apperr.IsKind(err, apperr.QuotaExceeded) {
				metrics.STTRequestsTotal.WithLabelValues(string(provider), "invalid").Inc()
				return "", err
			}
			metrics.QuotaRejectionsTotal.Inc()
			metrics.STTRequestsTotal.WithLabelValues(string(provider), "quota_exceeded").Inc()
			o.logger.Info().
				Float64("used_hours", used).
				Float64("requested_seconds", durationSeconds).
				Float64("quota_hours", o.config.FreeQuotaHoursPerMonth).
				Msg("Transcription rejected by monthly quota")
			return "", err
		}
	}

	start := time.Now()
	text, err := backend.Transcribe(ctx, audio)
	metrics.STTRequestDuration.WithLabelValues(string(provider)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.STTRequestsTotal.WithLabelValues(string(provider), outcome(err)).Inc()
		o.logger.Error().Err(err).Str("provider", string(provider)).Msg("Transcription failed")
		return "", err
	}

	if metered {
		if err := o.ledger.Record(ctx, provider, durationSeconds); err != nil {
			metrics.STTRequestsTotal.WithLabelValues(string(provider), "error").Inc()
			return "", err
		}
	}

	metrics.STTRequestsTotal.WithLabelValues(string(provider), "success").Inc()
	o.logger.Debug().
		Str("provider", string(provider)).
		Float64("duration_seconds", durationSeconds).
		Int("transcript_length", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Transcription complete")

	return text, nil
}

func outcome(err error) string {
	switch apperr.KindOf(err) {
	case apperr.UpstreamUnavailable:
		return "unavailable"
	case apperr.UpstreamError:
		return "upstream_error"
	case apperr.ConfigurationInvalid:
		return "misconfigured"
	default:
		return "error"
	}
}
