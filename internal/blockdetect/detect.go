// Package blockdetect recognizes bot-protection pages returned in place of a
// search API response, which happens mostly when requests leave through a
// shared proxy.
package blockdetect

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the part of an HTTP response a detector inspects.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// detector reports the protection vendor that blocked r, if any.
type detector func(r Response) (source string, ok bool)

var detectors = []detector{
	detectGoogleSorry,
	detectCloudflare,
	detectAkamai,
	detectDataDome,
	detectPerimeterX,
}

// Detect returns the first bot-protection vendor whose fingerprint matches
// r. Successful responses are never reported as blocked.
func Detect(r Response) (string, bool) {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return "", false
	}
	if r.Header == nil {
		r.Header = http.Header{}
	}
	for _, d := range detectors {
		if source, ok := d(r); ok {
			return source, true
		}
	}
	return "", false
}

func server(r Response) string {
	return strings.ToLower(r.Header.Get("Server"))
}

// detectGoogleSorry matches Google's "unusual traffic" interstitial.
func detectGoogleSorry(r Response) (string, bool) {
	if r.StatusCode != http.StatusTooManyRequests && r.StatusCode != http.StatusForbidden {
		return "", false
	}
	if bytes.Contains(r.Body, []byte("/sorry/index")) ||
		bytes.Contains(r.Body, []byte("unusual traffic from your computer network")) {
		return "Google", true
	}
	return "", false
}

func detectCloudflare(r Response) (string, bool) {
	// Status codes 403 or 503 are common for CF challenges
	if r.StatusCode != http.StatusForbidden && r.StatusCode != http.StatusServiceUnavailable {
		return "", false
	}
	if strings.Contains(server(r), "cloudflare") {
		return "Cloudflare", true
	}
	if bytes.Contains(r.Body, []byte("cf-browser-verification")) ||
		bytes.Contains(r.Body, []byte("cf-turnstile")) ||
		bytes.Contains(r.Body, []byte("Attention Required! | Cloudflare")) {
		return "Cloudflare", true
	}
	return "", false
}

func detectAkamai(r Response) (string, bool) {
	if r.StatusCode != http.StatusForbidden {
		return "", false
	}
	if strings.Contains(server(r), "akamai") {
		return "Akamai", true
	}
	// Generic "Reference #" block page
	if bytes.Contains(r.Body, []byte("Reference #")) && bytes.Contains(r.Body, []byte("Access Denied")) {
		return "Akamai", true
	}
	return "", false
}

func detectDataDome(r Response) (string, bool) {
	if r.StatusCode != http.StatusForbidden {
		return "", false
	}
	if strings.Contains(server(r), "datadome") ||
		r.Header.Get("X-DataDome") != "" ||
		r.Header.Get("X-DataDome-Response") != "" {
		return "DataDome", true
	}
	if bytes.Contains(r.Body, []byte("geo.captcha-delivery.com")) {
		return "DataDome", true
	}
	return "", false
}

func detectPerimeterX(r Response) (string, bool) {
	if r.StatusCode != http.StatusForbidden {
		return "", false
	}
	if r.Header.Get("X-Px-Captcha") != "" {
		return "PerimeterX", true
	}
	if bytes.Contains(r.Body, []byte("client.perimeterx.net")) ||
		bytes.Contains(r.Body, []byte("px-captcha")) ||
		bytes.Contains(r.Body, []byte("_pxBlock")) {
		return "PerimeterX", true
	}
	return "", false
}
