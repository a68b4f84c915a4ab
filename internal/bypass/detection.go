package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the slice of a fetched page the detectors look at.
type Response struct {
	URL        string
	StatusCode int
	Header     map[string][]string
	Body       []byte
}

// Detector reports whether a bot protection mechanism blocked or
// challenged the request, and which vendor it was.
type Detector func(r Response) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
		detectGoogleSorry,
	}
}

// Detect runs r through detectors in order and returns the first hit.
func Detect(r Response, detectors []Detector) (bool, string) {
	for _, d := range detectors {
		if detected, source := d(r); detected {
			return true, source
		}
	}
	return false, ""
}

func header(h map[string][]string, key string) string {
	if vals, ok := h[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	for k, vals := range h {
		if strings.EqualFold(k, key) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func serverContains(r Response, needle string) bool {
	return strings.Contains(strings.ToLower(header(r.Header, "Server")), needle)
}

func bodyContainsAny(body []byte, needles ...string) bool {
	for _, n := range needles {
		if bytes.Contains(body, []byte(n)) {
			return true
		}
	}
	return false
}

// detectCloudflare looks for Cloudflare challenge/block signatures.
func detectCloudflare(r Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden && r.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if serverContains(r, "cloudflare") ||
		bodyContainsAny(r.Body, "cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare") {
		return true, "Cloudflare"
	}
	return false, ""
}

// detectAkamai looks for Akamai Bot Manager signatures.
func detectAkamai(r Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if serverContains(r, "akamai") {
		return true, "Akamai"
	}
	// generic "Reference #" block page
	if bytes.Contains(r.Body, []byte("Reference #")) && bytes.Contains(r.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

// detectDataDome looks for DataDome challenge/block signatures.
func detectDataDome(r Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if serverContains(r, "datadome") ||
		header(r.Header, "X-DataDome") != "" ||
		header(r.Header, "X-DataDome-Response") != "" ||
		bodyContainsAny(r.Body, "geo.captcha-delivery.com", "datadome") {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(r Response) (bool, string) {
	if r.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if header(r.Header, "X-Px-Captcha") != "" ||
		bodyContainsAny(r.Body, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	return false, ""
}

// detectGoogleSorry recognizes the search engine's rate-limit interstitial.
func detectGoogleSorry(r Response) (bool, string) {
	if strings.Contains(r.URL, "/sorry/") {
		return true, "Google"
	}
	if r.StatusCode == http.StatusTooManyRequests || r.StatusCode == http.StatusServiceUnavailable {
		if bodyContainsAny(r.Body, "unusual traffic from your computer network", "g-recaptcha") {
			return true, "Google"
		}
	}
	return false, ""
}
