package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/pkg/proxy"
	"github.com/FranksOps/quill/pkg/ratelimit"
	"github.com/FranksOps/quill/pkg/useragent"
)

func TestFetcher_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestBrowser/1.0" {
			t.Errorf("expected pooled User-Agent header, got %q", r.Header.Get("User-Agent"))
		}
		if !strings.Contains(r.Header.Get("Accept"), "text/html") {
			t.Errorf("expected html Accept header, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("X-Test", "true")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		UAPool:      useragent.NewPool([]string{"TestBrowser/1.0"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page := fetcher.Fetch(context.Background(), ts.URL)

	if err := page.Err(); err != nil {
		t.Fatalf("expected usable page, got %v", err)
	}
	if page.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", page.StatusCode)
	}
	if string(page.Body) != "ok" {
		t.Errorf("expected body 'ok', got %s", string(page.Body))
	}
	if len(page.Header["X-Test"]) == 0 || page.Header["X-Test"][0] != "true" {
		t.Errorf("expected X-Test header 'true', got %v", page.Header["X-Test"])
	}
	if page.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
	if page.ID == "" {
		t.Errorf("expected non-empty UUID")
	}
	if page.FinalURL != ts.URL {
		t.Errorf("expected final url %s, got %s", ts.URL, page.FinalURL)
	}
}

func TestFetcher_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{
		Timeout:     10 * time.Millisecond,
		Fingerprint: fingerprint.ProfileGo,
	})

	page := fetcher.Fetch(context.Background(), ts.URL)

	if page.Error == "" || !strings.Contains(page.Error, "request failed") {
		t.Errorf("expected timeout error, got %v", page.Error)
	}
	if page.Err() == nil {
		t.Errorf("expected Err to report the failure")
	}
}

func TestFetcher_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})
	page := fetcher.Fetch(context.Background(), ts.URL)

	if page.Error != "" {
		t.Fatalf("404 is a response, not a transport error: %s", page.Error)
	}
	if err := page.Err(); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestFetcher_BotChallenge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Attention Required! | Cloudflare"))
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Fingerprint: fingerprint.ProfileGo})
	page := fetcher.Fetch(context.Background(), ts.URL)

	if !page.DetectedBot || page.DetectionSrc != "Cloudflare" {
		t.Fatalf("expected Cloudflare detection, got %v %q", page.DetectedBot, page.DetectionSrc)
	}
	if err := page.Err(); !errors.Is(err, ErrBlocked) {
		t.Errorf("expected ErrBlocked, got %v", err)
	}
}

func TestFetcher_LimiterCancelled(t *testing.T) {
	fetcher, _ := NewFetcher(FetchConfig{
		Fingerprint: fingerprint.ProfileGo,
		Limiter:     ratelimit.NewLimiter(time.Hour, 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := fetcher.Fetch(ctx, "http://127.0.0.1:1/")
	if !strings.Contains(page.Error, "rate limiter failed") {
		t.Errorf("expected limiter error, got %q", page.Error)
	}
}

func TestFetcher_Proxy(t *testing.T) {
	// The "proxy" answers every request itself, so a teapot proves routing.
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer proxyServer.Close()

	pPool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: 1 * time.Second})
	if err := pPool.Add(proxyServer.URL); err != nil {
		t.Fatalf("failed to add proxy: %v", err)
	}

	fetcher, _ := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		ProxyPool:   pPool,
	})

	targetServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer targetServer.Close()

	page := fetcher.Fetch(context.Background(), targetServer.URL)

	if page.StatusCode != http.StatusTeapot {
		t.Errorf("expected 418 Teapot from proxy, got %d, err: %v", page.StatusCode, page.Error)
	}
}
