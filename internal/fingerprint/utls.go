package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names the TLS ClientHello the search client presents.
type Profile string

const (
	ProfileGo      Profile = "go" // crypto/tls, the default for API traffic
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileRandom  Profile = "random"
)

var helloIDs = map[Profile]utls.ClientHelloID{
	ProfileChrome:  utls.HelloChrome_Auto,
	ProfileFirefox: utls.HelloFirefox_Auto,
	ProfileSafari:  utls.HelloIOS_Auto,
	ProfileRandom:  utls.HelloRandomizedNoALPN,
}

// http.Transport only speaks HTTP/2 over a *tls.Conn, so utls connections
// must never negotiate h2.
const alpnHTTP1 = "http/1.1"

// ParseProfile maps a config string to a Profile. The empty string selects
// ProfileGo.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return ProfileGo, nil
	}
	if p == ProfileGo {
		return p, nil
	}
	if _, ok := helloIDs[p]; ok {
		return p, nil
	}
	return "", fmt.Errorf("fingerprint: unknown profile %q", s)
}

// Transport returns a RoundTripper presenting the given TLS profile. ProfileGo
// yields a plain clone of http.DefaultTransport; the browser profiles dial
// TLS through utls and offer only HTTP/1.1 in ALPN. RootCAs, ServerName and
// InsecureSkipVerify from the transport's TLSClientConfig are honoured at
// dial time. proxyFunc, when non-nil, becomes the transport's Proxy.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	if p == "" {
		p = ProfileGo
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}
	if p == ProfileGo {
		return transport, nil
	}

	helloID, ok := helloIDs[p]
	if !ok {
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := newUConn(conn, host, helloID, transport.TLSClientConfig)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("fingerprint: %s preset: %w", p, err)
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("fingerprint: %s handshake with %s: %w", p, host, err)
		}
		return uConn, nil
	}

	return transport, nil
}

func newUConn(conn net.Conn, host string, helloID utls.ClientHelloID, base *tls.Config) (*utls.UConn, error) {
	cfg := &utls.Config{ServerName: host}
	if base != nil {
		cfg.RootCAs = base.RootCAs
		cfg.InsecureSkipVerify = base.InsecureSkipVerify
		if base.ServerName != "" {
			cfg.ServerName = base.ServerName
		}
	}

	preset, err := utls.UTLSIdToSpec(helloID)
	if err != nil {
		return nil, err
	}
	pinALPN(&preset)

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&preset); err != nil {
		return nil, err
	}
	return uConn, nil
}

// pinALPN restricts the preset's ALPN offer to HTTP/1.1.
func pinALPN(preset *utls.ClientHelloSpec) {
	for _, ext := range preset.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{alpnHTTP1}
		}
	}
}
