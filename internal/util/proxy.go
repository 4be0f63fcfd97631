package util

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds the proxy selector for archive fetches. With no
// proxy URLs configured it defers to the environment. Hosts matching the
// no_proxy list (comma-separated, "*" for all, entries match the host and
// its subdomains) connect directly.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}
	exempt := splitNoProxy(noProxy)

	return func(req *http.Request) (*url.URL, error) {
		if hostExempt(req.URL.Hostname(), exempt) {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

func splitNoProxy(noProxy string) []string {
	var out []string
	for _, part := range strings.Split(noProxy, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(part, "."))
	}
	return out
}

func hostExempt(host string, exempt []string) bool {
	host = strings.ToLower(host)
	for _, e := range exempt {
		if e == "*" || host == e || strings.HasSuffix(host, "."+e) {
			return true
		}
	}
	return false
}
