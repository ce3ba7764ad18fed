package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestMetricsServer(t *testing.T) {
	srv := Start(8888)
	// Give it a tiny bit of time to start up
	time.Sleep(100 * time.Millisecond)

	defer srv.Stop(context.Background())

	RecordSearch("google", StatusOK, time.Second, 3)
	RecordSearch("bing", StatusError, 200*time.Millisecond, 0)
	RecordDuplicates(2)
	ProxyFailures.WithLabelValues("http://proxy.example:8080").Inc()

	resp, err := http.Get("http://localhost:8888/metrics")
	if err != nil {
		t.Fatalf("failed to fetch metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	output := string(body)

	for _, want := range []string{
		`pilotjobs_search_requests_total{provider="google",status="ok"} 1`,
		`pilotjobs_search_requests_total{provider="bing",status="error"} 1`,
		`pilotjobs_search_duration_seconds_bucket`,
		`pilotjobs_search_results_total{provider="google"} 3`,
		`pilotjobs_duplicates_dropped_total 2`,
		`pilotjobs_proxy_failures_total{proxy_url="http://proxy.example:8080"} 1`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}

	if strings.Contains(output, `pilotjobs_search_results_total{provider="bing"}`) {
		t.Errorf("expected no results series for a provider that returned nothing")
	}
}

func TestStopNil(t *testing.T) {
	var s *Server
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("expected nil error stopping nil server, got %v", err)
	}
}
