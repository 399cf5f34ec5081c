package httpclient

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// HttpsScheme is the scheme every non-localhost endpoint the bridge talks
// to must use.
const HttpsScheme = "https"

// HTTPClient is the minimal surface the bridge's OIDC/DCR code depends on,
// satisfied by *http.Client and by test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// IsLocalhost reports whether host (as found in a URL's Host field,
// optionally with a port) refers to the local machine: "localhost", an
// IPv4/IPv6 loopback address, with a leading/trailing space treated as
// not-localhost to avoid host-header smuggling via whitespace.
func IsLocalhost(host string) bool {
	if host != strings.TrimSpace(host) {
		return false
	}
	h := host
	if hostOnly, port, err := net.SplitHostPort(host); err == nil {
		if !validPort(port) {
			return false
		}
		h = hostOnly
	}
	h = strings.ToLower(strings.Trim(h, "[]"))
	if h == "localhost" {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

func validPort(port string) bool {
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n > 0 && n <= 65535
}

// ValidateEndpointURLWithInsecure parses endpoint and requires HTTPS
// unless it resolves to localhost or insecureAllowHTTP is set (used only
// for local development against a plain-HTTP IdP).
func ValidateEndpointURLWithInsecure(endpoint string, insecureAllowHTTP bool) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if u.Scheme == HttpsScheme {
		return nil
	}
	if IsLocalhost(u.Host) || insecureAllowHTTP {
		return nil
	}
	return fmt.Errorf("endpoint must use HTTPS: %s", endpoint)
}

// IsAvailable reports whether a TCP listener can currently bind to the
// given localhost port, used when picking a callback port for the PKCE
// loopback redirect (RFC 8252).
func IsAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
