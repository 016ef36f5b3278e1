package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration invalid", New(ConfigurationInvalid, "missing key"), http.StatusServiceUnavailable},
		{"quota exceeded", New(QuotaExceeded, "over"), http.StatusTooManyRequests},
		{"upstream unavailable", New(UpstreamUnavailable, "down"), http.StatusBadGateway},
		{"upstream error", Upstream(UpstreamError, 500, "boom"), http.StatusBadGateway},
		{"no backend", New(NoBackendAvailable, "none"), http.StatusServiceUnavailable},
		{"summary bad gateway", New(SummaryUnavailable, "bad"), http.StatusBadGateway},
		{"summary unconfigured", New(SummaryUnavailable, "unset").WithStatus(http.StatusServiceUnavailable), http.StatusServiceUnavailable},
		{"not found", New(NotFound, "missing"), http.StatusNotFound},
		{"invalid request", New(InvalidRequest, "bad form"), http.StatusBadRequest},
		{"wrapped", fmt.Errorf("record meeting: %w", New(QuotaExceeded, "over")), http.StatusTooManyRequests},
		{"plain error", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindMatching(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("transcribe: %w", Wrap(UpstreamUnavailable, cause, "3 attempts failed"))

	if !IsKind(err, UpstreamUnavailable) {
		t.Fatalf("expected UpstreamUnavailable, got %q", KindOf(err))
	}
	if !errors.Is(err, &Error{Kind: UpstreamUnavailable}) {
		t.Error("errors.Is should match on kind")
	}
	if errors.Is(err, &Error{Kind: UpstreamError}) {
		t.Error("errors.Is should not match a different kind")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should remain reachable through Unwrap")
	}
	if KindOf(cause) != "" {
		t.Error("plain errors have no kind")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 500); got != "short" {
		t.Errorf("Truncate kept %q", got)
	}

	long := strings.Repeat("a", 600)
	got := Truncate(long, 500)
	if !strings.HasSuffix(got, "... (truncated)") {
		t.Errorf("missing truncation marker: %q", got[len(got)-20:])
	}
	if len(got) != 500+len("... (truncated)") {
		t.Errorf("unexpected length %d", len(got))
	}

	// 3-byte runes put byte 500 in the middle of a character.
	multibyte := "a" + strings.Repeat("회", 300)
	got = Truncate(multibyte, 500)
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got[len(got)-20:])
	}
	prefix := strings.TrimSuffix(got, "... (truncated)")
	if prefix == got {
		t.Fatal("missing truncation marker")
	}
	if len(prefix) > 500 || len(prefix) < 498 {
		t.Errorf("unexpected prefix length %d", len(prefix))
	}
	if !strings.HasPrefix(multibyte, prefix) {
		t.Error("prefix is not a prefix of the input")
	}
}
