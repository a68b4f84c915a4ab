package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_fetch_requests_total",
			Help: "Total number of page fetches executed",
		},
		[]string{"domain", "status", "detected", "detection_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quill_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_fetch_bytes_total",
			Help: "Total bytes downloaded across all fetches",
		},
		[]string{"domain"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_proxy_failures_total",
			Help: "Total number of proxy failures during fetches",
		},
		[]string{"proxy_url"},
	)

	ArticlesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_articles_processed_total",
			Help: "Articles processed by the pipeline, by outcome",
		},
		[]string{"status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quill_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quill_search_results",
			Help:    "Number of reference URLs returned per search",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quill_llm_tokens_total",
			Help: "Tokens consumed by generation requests",
		},
		[]string{"model"},
	)
)

// Fetch describes one completed page fetch.
type Fetch struct {
	StatusCode   int
	Failed       bool
	DetectionSrc string
	Duration     time.Duration
	Bytes        int
}

// RecordFetch updates the fetch metrics for domain.
func RecordFetch(domain string, f Fetch) {
	status := strconv.Itoa(f.StatusCode)
	if f.Failed {
		status = "error"
	}
	detected := strconv.FormatBool(f.DetectionSrc != "")

	FetchRequestsTotal.WithLabelValues(domain, status, detected, f.DetectionSrc).Inc()
	FetchDuration.WithLabelValues(domain).Observe(f.Duration.Seconds())
	FetchBytesTotal.WithLabelValues(domain).Add(float64(f.Bytes))
}

// ObserveStage records the time spent in a pipeline stage since start.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "port", port, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
