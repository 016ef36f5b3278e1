package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/rs/zerolog"
)

func TestWhisperTranscribe(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      string
		wantKind  apperr.Kind
		wantCalls int32
	}{
		{"text field", http.StatusOK, `{"text":"from text"}`, "from text", "", 1},
		{"transcript field", http.StatusOK, `{"transcript":"from transcript"}`, "from transcript", "", 1},
		{"text wins", http.StatusOK, `{"text":"a","transcript":"b"}`, "a", "", 1},
		{"no text", http.StatusOK, `{"language":"ko"}`, "", apperr.UpstreamError, 1},
		{"empty text", http.StatusOK, `{"text":""}`, "", apperr.UpstreamError, 1},
		{"server error not retried", http.StatusInternalServerError, `boom`, "", apperr.UpstreamError, 1},
		{"malformed", http.StatusOK, `not json`, "", apperr.UpstreamError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				if r.URL.Path != "/v1/transcribe" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer whisper-key" {
					t.Errorf("unexpected authorization: %s", got)
				}
				if got := r.Header.Get("Content-Type"); got != "audio/wav" {
					t.Errorf("unexpected content type: %s", got)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			w := NewWhisper(WhisperConfig{
				BaseURL: server.URL + "/v1/",
				APIKey:  "whisper-key",
				Timeout: 5 * time.Second,
			}, zerolog.Nop())

			text, err := w.Transcribe(context.Background(), []byte("RIFF"))
			if tt.wantKind != "" {
				if !apperr.IsKind(err, tt.wantKind) {
					t.Fatalf("expected %s, got %v", tt.wantKind, err)
				}
			} else if err != nil {
				t.Fatalf("Transcribe failed: %v", err)
			}
			if text != tt.want {
				t.Errorf("Transcribe() = %q, want %q", text, tt.want)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls.Load())
			}
		})
	}
}

func TestWhisperNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	w := NewWhisper(WhisperConfig{BaseURL: url, APIKey: "k"}, zerolog.Nop())
	_, err := w.Transcribe(context.Background(), []byte("RIFF"))
	if !apperr.IsKind(err, apperr.UpstreamUnavailable) {
		t.Errorf("expected UpstreamUnavailable, got %v", err)
	}
}
