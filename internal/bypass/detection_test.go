package bypass

import (
	"testing"
)

func TestDetectCloudflare(t *testing.T) {
	cases := []struct {
		name string
		res  Response
		want bool
	}{
		{"not blocked", Response{StatusCode: 200, Header: map[string][]string{"Server": {"nginx"}}, Body: []byte("OK")}, false},
		{"server header", Response{StatusCode: 403, Header: map[string][]string{"Server": {"cloudflare"}}, Body: []byte("Access Denied")}, true},
		{"body signature", Response{StatusCode: 503, Body: []byte("<html>... cf-turnstile ...</html>")}, true},
		{"signature on 200", Response{StatusCode: 200, Body: []byte("cf-turnstile")}, false},
	}
	for _, tc := range cases {
		detected, src := detectCloudflare(tc.res)
		if detected != tc.want {
			t.Errorf("%s: expected detected=%v, got %v", tc.name, tc.want, detected)
		}
		if detected && src != "Cloudflare" {
			t.Errorf("%s: expected source Cloudflare, got %s", tc.name, src)
		}
	}
}

func TestDetectAkamai(t *testing.T) {
	res := Response{StatusCode: 403, Header: map[string][]string{"Server": {"AkamaiGHost"}}}
	if detected, src := detectAkamai(res); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by header")
	}

	res = Response{StatusCode: 403, Body: []byte("Access Denied... Reference #123.456")}
	if detected, src := detectAkamai(res); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by body")
	}
}

func TestDetectDataDome(t *testing.T) {
	res := Response{StatusCode: 403, Header: map[string][]string{"x-datadome": {"1"}}}
	if detected, src := detectDataDome(res); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by case-insensitive header")
	}

	res = Response{StatusCode: 403, Body: []byte("script src='https://geo.captcha-delivery.com/...'")}
	if detected, src := detectDataDome(res); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by body")
	}
}

func TestDetectPerimeterX(t *testing.T) {
	res := Response{StatusCode: 403, Header: map[string][]string{"X-Px-Captcha": {"required"}}}
	if detected, src := detectPerimeterX(res); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by header")
	}

	res = Response{StatusCode: 403, Body: []byte("window._pxBlock = true;")}
	if detected, src := detectPerimeterX(res); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by body")
	}
}

func TestDetectGoogleSorry(t *testing.T) {
	res := Response{URL: "https://www.google.com/sorry/index?continue=x", StatusCode: 200}
	if detected, src := detectGoogleSorry(res); !detected || src != "Google" {
		t.Errorf("expected Google detection by redirect url")
	}

	res = Response{StatusCode: 429, Body: []byte("Our systems have detected unusual traffic from your computer network.")}
	if detected, _ := detectGoogleSorry(res); !detected {
		t.Errorf("expected Google detection by body")
	}
}

func TestDetect(t *testing.T) {
	detectors := DefaultDetectors()

	detected, src := Detect(Response{StatusCode: 403, Header: map[string][]string{"X-DataDome": {"1"}}}, detectors)
	if !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection, got %v %q", detected, src)
	}

	detected, src = Detect(Response{StatusCode: 200, Body: []byte("hello")}, detectors)
	if detected || src != "" {
		t.Errorf("expected clean page, got %v %q", detected, src)
	}
}
