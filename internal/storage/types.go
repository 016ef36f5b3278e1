package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Provider identifies a speech-to-text backend in the usage ledger.
type Provider string

const (
	// ProviderAzureSpeech is the quota-limited backend.
	ProviderAzureSpeech Provider = "azure_speech"
	// ProviderWhisper is the fallback backend.
	ProviderWhisper Provider = "whisper"
)

// ParseProvider normalizes and validates a provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderAzureSpeech, ProviderWhisper:
		return p, nil
	default:
		return "", fmt.Errorf("invalid provider: %s (must be azure_speech or whisper)", s)
	}
}

// UnmarshalJSON implements json.Unmarshaler to normalize the provider name.
func (p *Provider) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseProvider(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UsageEvent records one successful transcription against a provider.
type UsageEvent struct {
	ID              string    `json:"id"`
	Provider        Provider  `json:"provider"`
	DurationSeconds float64   `json:"duration_seconds"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Meeting is a persisted meeting record.
type Meeting struct {
	ID             string    `json:"id"`
	Title          *string   `json:"title"`
	FullTranscript string    `json:"full_transcript"`
	Summary        string    `json:"summary"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
