package proxycore

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chatmemory-gateway/internal/config"
)

const (
	thinkingModelTimeout = 300 * time.Second
	defaultModelTimeout  = 180 * time.Second
	fakeStreamPrefix     = "fake-stream/"
)

// thinkingSubstrings identifies canonical model names that need the longer
// timeout (spec §4.1 "backends whose canonical name contains any of
// {thinking, reasoning indicators, heavy models}").
var thinkingSubstrings = []string{"thinking", "reasoning", "o1", "o3", "r1", "deepseek-r"}

// backendTimeout picks the 300s/180s timeout from the canonical model name.
func backendTimeout(canonical string) time.Duration {
	lower := strings.ToLower(canonical)
	for _, s := range thinkingSubstrings {
		if strings.Contains(lower, s) {
			return thinkingModelTimeout
		}
	}
	return defaultModelTimeout
}

// stripFakeStreamPrefix reports whether canonical carries the synthetic
// streaming marker and returns the name with it removed.
func stripFakeStreamPrefix(canonical string) (string, bool) {
	if strings.HasPrefix(canonical, fakeStreamPrefix) {
		return strings.TrimPrefix(canonical, fakeStreamPrefix), true
	}
	return canonical, false
}

// httpClientFor returns an http.Client configured per spec §4.1's proxy
// selection rule: loopback backends bypass outboundProxyURL, everything
// else uses it when configured.
func httpClientFor(backend config.Backend, outboundProxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if outboundProxyURL != "" && !isLoopbackURL(backend.BaseURL) {
		if proxyURL, err := url.Parse(outboundProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func isLoopbackURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
