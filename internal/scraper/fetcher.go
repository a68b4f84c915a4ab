package scraper

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/quill/internal/bypass"
	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/pkg/httpclient"
	"github.com/FranksOps/quill/pkg/proxy"
	"github.com/FranksOps/quill/pkg/ratelimit"
	"github.com/FranksOps/quill/pkg/useragent"
	"github.com/google/uuid"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

const defaultMaxBody = 5 << 20

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	MaxBodyBytes int64
	ProxyPool    *proxy.Pool
	UAPool       *useragent.Pool
	Fingerprint  fingerprint.Profile
	RootCAs      *x509.CertPool
	Limiter      *ratelimit.Limiter
	Detectors    []bypass.Detector
	Logger       *slog.Logger
}

// Fetcher performs single page GETs with a browser identity, optional
// proxy rotation and pacing, and bot-challenge detection.
type Fetcher struct {
	config FetchConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewFetcher initializes a Fetcher. One client is held across requests so
// connection pooling and the cookie jar (if configured) persist.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(nil)
	}
	if cfg.Fingerprint == "" {
		cfg.Fingerprint = fingerprint.ProfileGo
	}
	if cfg.Detectors == nil {
		cfg.Detectors = bypass.DefaultDetectors()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	// The proxy is chosen per request and carried in the request context.
	opts := fingerprint.Options{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
				return u, nil
			}
			return http.ProxyFromEnvironment(req)
		},
		RootCAs: cfg.RootCAs,
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Fetcher{
		config: cfg,
		client: client,
		logger: cfg.Logger,
	}, nil
}

// Fetch GETs targetURL and captures the response into a Page.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) *Page {
	start := time.Now()
	page := &Page{
		ID:        uuid.New().String(),
		URL:       targetURL,
		CreatedAt: start.UTC(),
	}
	defer f.record(page)

	if err := f.config.Limiter.Wait(ctx); err != nil {
		page.Error = fmt.Sprintf("rate limiter failed: %v", err)
		return page
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		page.Error = fmt.Sprintf("failed to create request: %v", err)
		page.Duration = time.Since(start)
		return page
	}

	var activeProxy *url.URL
	if f.config.ProxyPool != nil {
		if activeProxy = f.config.ProxyPool.Next(); activeProxy != nil {
			req = req.WithContext(context.WithValue(req.Context(), proxyKey, activeProxy))
		}
	}

	req.Header.Set("User-Agent", f.config.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req.Context(), req)
	if err != nil {
		if activeProxy != nil {
			_ = f.config.ProxyPool.MarkFailure(activeProxy)
			metrics.ProxyFailures.WithLabelValues(activeProxy.String()).Inc()
		}
		page.Error = fmt.Sprintf("request failed: %v", err)
		page.Duration = time.Since(start)
		return page
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = f.config.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		page.Error = fmt.Sprintf("failed to read body: %v", err)
	}

	page.StatusCode = resp.StatusCode
	page.Header = resp.Header
	page.Body = body
	page.FinalURL = resp.Request.URL.String()
	page.Duration = time.Since(start)

	page.DetectedBot, page.DetectionSrc = bypass.Detect(bypass.Response{
		URL:        page.FinalURL,
		StatusCode: page.StatusCode,
		Header:     page.Header,
		Body:       page.Body,
	}, f.config.Detectors)
	if page.DetectedBot {
		f.logger.Warn("bot challenge detected", "url", targetURL, "source", page.DetectionSrc)
	}

	return page
}

func (f *Fetcher) record(page *Page) {
	domain := "unknown"
	if u, err := url.Parse(page.URL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}
	metrics.RecordFetch(domain, metrics.Fetch{
		StatusCode:   page.StatusCode,
		Failed:       page.Error != "",
		DetectionSrc: page.DetectionSrc,
		Duration:     page.Duration,
		Bytes:        len(page.Body),
	})
}
