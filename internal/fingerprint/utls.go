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

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	// no ALPN so servers never pick h2, which net/http cannot speak over a uTLS conn
	ProfileRandom: utls.HelloRandomizedNoALPN,
}

// ParseProfile maps a config string to a Profile. Empty means Chrome.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ProfileChrome, nil
	}
	if p == ProfileGo {
		return p, nil
	}
	if _, ok := helloIDs[p]; !ok {
		return "", fmt.Errorf("context: unknown profile %q", s)
	}
	return p, nil
}

// Options tune the transport built by Transport.
type Options struct {
	// Proxy is installed as the transport's Proxy func when set.
	Proxy func(*http.Request) (*url.URL, error)
	// RootCAs overrides the system roots, mostly for tests.
	RootCAs *x509.CertPool
}

// Transport returns an http.RoundTripper whose TLS ClientHello mimics the
// given browser profile. ProfileGo returns a plain clone of
// http.DefaultTransport.
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

	id, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("context: unknown profile %q", p)
	}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := newClient(tcpConn, &utls.Config{ServerName: host, RootCAs: opts.RootCAs}, id)
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("context: utls handshake failed: %w", err)
		}
		return uConn, nil
	}

	return transport, nil
}

// newClient builds a uTLS client for id, pinning ALPN to http/1.1 when the
// parrot would otherwise offer h2.
func newClient(conn net.Conn, cfg *utls.Config, id utls.ClientHelloID) (*utls.UConn, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		// randomized parrots have no static spec
		return utls.UClient(conn, cfg, id), nil
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("context: apply %s preset: %w", id.Str(), err)
	}
	return uConn, nil
}
