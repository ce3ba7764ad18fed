package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

var (
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilotjobs_search_requests_total",
			Help: "Total number of search API requests executed",
		},
		[]string{"provider", "status"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pilotjobs_search_duration_seconds",
			Help:    "Duration of search API requests in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	SearchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilotjobs_search_results_total",
			Help: "Total normalized results returned per provider",
		},
		[]string{"provider"},
	)

	DuplicatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pilotjobs_duplicates_dropped_total",
			Help: "Total results dropped by URL deduplication",
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pilotjobs_proxy_failures_total",
			Help: "Total number of outbound proxy failures during searches",
		},
		[]string{"proxy_url"},
	)
)

// RecordSearch updates the search metrics for one provider call.
func RecordSearch(provider, status string, dur time.Duration, results int) {
	SearchRequestsTotal.WithLabelValues(provider, status).Inc()
	SearchDuration.WithLabelValues(provider).Observe(dur.Seconds())
	if results > 0 {
		SearchResultsTotal.WithLabelValues(provider).Add(float64(results))
	}
}

// RecordDuplicates adds n to the dropped-duplicates counter.
func RecordDuplicates(n int) {
	if n > 0 {
		DuplicatesDropped.Add(float64(n))
	}
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		// Suppress the error from intentional shutdown
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", srv.Addr, "err", err)
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
