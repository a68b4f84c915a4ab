package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// NoTimeout disables the overall request deadline; the caller's context
// is then the only bound.
const NoTimeout time.Duration = -1

// Config defines the setup for the HTTP Client.
type Config struct {
	// Timeout bounds each request; zero selects 30s and NoTimeout (any
	// negative value) disables it.
	Timeout      time.Duration
	MaxRedirects int
	UseCookieJar bool
	// Header is applied to every request that does not already set the key.
	Header http.Header
	// Provide a custom Transport, e.g. for proxies or uTLS fingerprinting
	Transport http.RoundTripper
}

// Client wraps a standard http.Client to provide configurable timeouts,
// redirect policies, default headers and cookie management.
type Client struct {
	*http.Client
	header http.Header
}

// StatusError is returned by the JSON helpers when the server answers
// with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("httpclient: %s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("httpclient: %s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Timeout < 0 {
		cfg.Timeout = 0
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		maxRedirects := cfg.MaxRedirects
		if maxRedirects == 0 {
			maxRedirects = 10
		}
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("httpclient: stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	} else {
		// Don't follow any redirects if max < 0
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c, header: cfg.Header.Clone()}, nil
}

// Do executes an HTTP request. The provided context.Context controls
// cancellation independent of the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: context cannot be nil")
	}

	reqWithCtx := req.Clone(ctx)
	for key, vals := range c.header {
		if reqWithCtx.Header.Get(key) == "" && len(vals) > 0 {
			reqWithCtx.Header.Set(key, vals[0])
		}
	}

	resp, err := c.Client.Do(reqWithCtx)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}

// DoJSON sends in (when non-nil) as a JSON body and decodes a 2xx response
// into out (when non-nil). Non-2xx responses yield a *StatusError.
func (c *Client) DoJSON(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("httpclient: encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("httpclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("httpclient: decode response: %w", err)
	}
	return nil
}
