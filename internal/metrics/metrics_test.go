package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsHandler(t *testing.T) {
	ts := httptest.NewServer(Handler())
	defer ts.Close()

	RecordFetch("example.com", Fetch{
		StatusCode: 200,
		Duration:   1 * time.Second,
		Bytes:      11,
	})
	RecordFetch("blocked.example", Fetch{StatusCode: 403, DetectionSrc: "Cloudflare"})
	ArticlesProcessed.WithLabelValues("enhanced").Inc()
	ObserveStage("search", time.Now().Add(-time.Second))
	SearchResults.Observe(2)
	LLMTokens.WithLabelValues("test-model").Add(42)

	resp, err := http.Get(ts.URL)
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
		"quill_fetch_requests_total",
		"quill_fetch_duration_seconds_bucket",
		`quill_fetch_bytes_total{domain="example.com"} 11`,
		`detection_src="Cloudflare"`,
		`quill_articles_processed_total{status="enhanced"}`,
		`quill_stage_duration_seconds_bucket{stage="search"`,
		"quill_search_results_bucket",
		`quill_llm_tokens_total{model="test-model"} 42`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}

func TestServerStartStop(t *testing.T) {
	srv := Start(0, nil)
	if err := srv.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected stop error: %v", err)
	}

	var nilSrv *Server
	if err := nilSrv.Stop(context.Background()); err != nil {
		t.Fatalf("nil server stop should be a no-op: %v", err)
	}
}
