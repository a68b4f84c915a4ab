package fingerprint

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS ClientHello fingerprint.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard Go TLS
	ProfileRandom  Profile = "random" // randomized uTLS hello
)

// Options tunes the transport returned by Transport.
type Options struct {
	// Proxy selects a proxy per request; nil means no proxy.
	Proxy func(*http.Request) (*url.URL, error)
	// RootCAs overrides the system trust store.
	RootCAs *x509.CertPool
}

// ParseProfile maps a configuration string to a Profile. Empty selects ProfileGo.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return ProfileGo, nil
	case ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom:
		return p, nil
	}
	return "", fmt.Errorf("fingerprint: unknown profile %q", s)
}

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedALPN, nil
	}
	return utls.ClientHelloID{}, fmt.Errorf("fingerprint: unknown profile %q", p)
}

// Transport returns an http.RoundTripper presenting the given TLS
// fingerprint. ProfileGo yields a plain clone of http.DefaultTransport;
// every other profile dials TLS through utls.UClient. Browser profiles
// advertise only http/1.1 over ALPN since the returned transport does
// not speak HTTP/2 over a custom TLS dialer.
func Transport(p Profile, opts Options) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		transport.Proxy = opts.Proxy
	}

	if p == ProfileGo {
		if opts.RootCAs != nil {
			transport.TLSClientConfig = &tls.Config{RootCAs: opts.RootCAs}
		}
		return transport, nil
	}

	id, err := helloID(p)
	if err != nil {
		return nil, err
	}

	transport.ForceAttemptHTTP2 = false
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := newUConn(tcpConn, &utls.Config{ServerName: host, RootCAs: opts.RootCAs}, id)
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake with %s: %w", host, err)
		}
		return uConn, nil
	}

	return transport, nil
}

func newUConn(conn net.Conn, cfg *utls.Config, id utls.ClientHelloID) (*utls.UConn, error) {
	if id == utls.HelloRandomizedALPN {
		return utls.UClient(conn, cfg, id), nil
	}

	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: build hello spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("fingerprint: apply hello spec: %w", err)
	}
	return uConn, nil
}
