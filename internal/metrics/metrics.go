package metrics

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// HTTP API metrics
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetingstt_http_requests_total",
			Help: "Total number of API requests processed",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetingstt_http_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Transcription metrics
	STTRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetingstt_stt_requests_total",
			Help: "Total transcription requests by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	STTAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetingstt_stt_attempts_total",
			Help: "Outbound transcription attempts, including retries",
		},
		[]string{"backend"},
	)

	STTRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetingstt_stt_request_duration_seconds",
			Help:    "Transcription duration in seconds, retries included",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		},
		[]string{"backend"},
	)

	// Quota metrics
	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetingstt_quota_rejections_total",
			Help: "Requests rejected by the monthly quota guard",
		},
	)

	UsageSecondsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetingstt_usage_seconds_recorded_total",
			Help: "Audio seconds appended to the usage ledger",
		},
		[]string{"provider"},
	)

	// Summarization metrics
	SummaryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetingstt_summary_requests_total",
			Help: "Summarization requests by outcome",
		},
		[]string{"outcome"},
	)

	// Meeting metrics
	MeetingsRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetingstt_meetings_recorded_total",
			Help: "Meetings persisted after transcription and summary",
		},
	)

	MeetingCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetingstt_meeting_cache_hits_total",
			Help: "Meeting detail cache hits",
		},
	)

	MeetingCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "meetingstt_meeting_cache_misses_total",
			Help: "Meeting detail cache misses",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		STTRequestsTotal,
		STTAttemptsTotal,
		STTRequestDuration,
		QuotaRejectionsTotal,
		UsageSecondsRecorded,
		SummaryRequestsTotal,
		MeetingsRecordedTotal,
		MeetingCacheHits,
		MeetingCacheMisses,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
