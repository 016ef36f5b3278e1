package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goodtune/meetingstt/internal/apperr"
	"github.com/rs/zerolog"
)

// dropConnection closes the TCP connection without writing a response.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	t.Helper()

	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Fatal("response writer does not support hijacking")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		t.Fatalf("hijack: %v", err)
	}
	_ = conn.Close()
}

func newTestAzure(endpoint string) *AzureSpeech {
	a := NewAzureSpeech(AzureConfig{
		Key:         "speech-key",
		Region:      "koreacentral",
		Language:    "ko-KR",
		Endpoint:    endpoint,
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
	}, zerolog.Nop())
	a.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return a
}

func TestAzureRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != azureRecognitionPath {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("language"); got != "ko-KR" {
			t.Errorf("expected language ko-KR, got %s", got)
		}
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "speech-key" {
			t.Errorf("unexpected subscription key: %s", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("unexpected content type: %s", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "RIFF" {
			t.Errorf("unexpected body: %q", body)
		}
		_, _ = w.Write([]byte(`{"RecognitionStatus":"Success","DisplayText":"안녕하세요"}`))
	}))
	defer server.Close()

	text, err := newTestAzure(server.URL).Transcribe(context.Background(), []byte("RIFF"))
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "안녕하세요" {
		t.Errorf("unexpected transcript: %q", text)
	}
}

func TestAzureDefaultURL(t *testing.T) {
	a := NewAzureSpeech(AzureConfig{Key: "k", Region: "westeurope", Language: "en-US"}, zerolog.Nop())

	want := "https://westeurope.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1?language=en-US"
	if got := a.url(); got != want {
		t.Errorf("url() = %s, want %s", got, want)
	}
}

func TestAzureExtract(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     string
		wantKind apperr.Kind
	}{
		{"display text", `{"DisplayText":"hello"}`, "hello", ""},
		{"empty display text is valid", `{"RecognitionStatus":"InitialSilenceTimeout","DisplayText":""}`, "", ""},
		{"nbest display", `{"NBest":[{"Display":"from nbest","Lexical":"lexical"}]}`, "from nbest", ""},
		{"nbest lexical", `{"NBest":[{"Lexical":"lexical only"}]}`, "lexical only", ""},
		{"nbest empty display falls to lexical", `{"NBest":[{"Display":"","Lexical":"lex"}]}`, "lex", ""},
		{"no text field", `{"RecognitionStatus":"Success"}`, "", apperr.UpstreamError},
		{"empty nbest", `{"NBest":[]}`, "", apperr.UpstreamError},
		{"not json", `<html>oops</html>`, "", apperr.UpstreamError},
	}

	a := newTestAzure("http://unused")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.extract(http.StatusOK, []byte(tt.body))
			if tt.wantKind != "" {
				if !apperr.IsKind(err, tt.wantKind) {
					t.Fatalf("expected %s, got %v", tt.wantKind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAzureMissingTextTruncatesBody(t *testing.T) {
	body := `{"RecognitionStatus":"Success","Padding":"` + strings.Repeat("x", 600) + `"}`

	_, err := newTestAzure("http://unused").extract(http.StatusOK, []byte(body))
	if !apperr.IsKind(err, apperr.UpstreamError) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if !strings.Contains(err.Error(), "... (truncated)") {
		t.Errorf("expected truncated raw body in error: %v", err)
	}
	if strings.Contains(err.Error(), strings.Repeat("x", 600)) {
		t.Error("expected raw body to be cut at 500 characters")
	}
}

func TestAzureHTTPErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid subscription key", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestAzure(server.URL).Transcribe(context.Background(), []byte("RIFF"))
	if !apperr.IsKind(err, apperr.UpstreamError) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.UpstreamStatus != http.StatusUnauthorized {
		t.Errorf("expected upstream status 401, got %+v", appErr)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls.Load())
	}
}

func TestAzureRetriesNetworkErrors(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		wantCalls int32
		wantText  string
		wantKind  apperr.Kind
	}{
		{"succeeds on third attempt", 2, 3, "third time lucky", ""},
		{"gives up after three failures", 3, 3, "", apperr.UpstreamUnavailable},
		{"first attempt succeeds", 0, 1, "third time lucky", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) <= tt.failures {
					dropConnection(t, w)
					return
				}
				_, _ = w.Write([]byte(`{"DisplayText":"third time lucky"}`))
			}))
			defer server.Close()

			a := newTestAzure(server.URL)
			var backoffs []time.Duration
			a.sleep = func(ctx context.Context, d time.Duration) error {
				backoffs = append(backoffs, d)
				return nil
			}

			text, err := a.Transcribe(context.Background(), []byte("RIFF"))
			if tt.wantKind != "" {
				if !apperr.IsKind(err, tt.wantKind) {
					t.Fatalf("expected %s, got %v", tt.wantKind, err)
				}
			} else if err != nil {
				t.Fatalf("Transcribe failed: %v", err)
			}
			if text != tt.wantText {
				t.Errorf("unexpected transcript: %q", text)
			}
			if calls.Load() != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls.Load())
			}

			// Linear backoff between attempts: 1s, 2s
			for i, d := range backoffs {
				if want := time.Duration(i+1) * time.Second; d != want {
					t.Errorf("backoff %d = %v, want %v", i, d, want)
				}
			}
		})
	}
}

func TestAzureBackoffHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dropConnection(t, w)
	}))
	defer server.Close()

	a := newTestAzure(server.URL)
	a.sleep = sleepContext
	a.config.BackoffUnit = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := a.Transcribe(ctx, []byte("RIFF"))
	if !apperr.IsKind(err, apperr.UpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("backoff did not stop on cancellation")
	}
}

func TestAzureNotConfigured(t *testing.T) {
	a := NewAzureSpeech(AzureConfig{Key: "only-key"}, zerolog.Nop())
	if a.Configured() {
		t.Fatal("expected backend without region to be unconfigured")
	}

	_, err := a.Transcribe(context.Background(), nil)
	if !apperr.IsKind(err, apperr.ConfigurationInvalid) {
		t.Errorf("expected ConfigurationInvalid, got %v", err)
	}
}
