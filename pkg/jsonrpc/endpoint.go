package jsonrpc

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidEndpoint is returned when an endpoint URL cannot be used for
// JSON-RPC over HTTP(S).
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// Endpoint is the parsed form of a JSON-RPC endpoint URL
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
	Path   string
}

// ParseEndpoint parses an absolute http or https URL. A missing port
// defaults to 80 for http and 443 for https.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	var defaultPort int
	switch u.Scheme {
	case "http":
		defaultPort = 80
	case "https":
		defaultPort = 443
	default:
		return Endpoint{}, fmt.Errorf("%w: unknown protocol %q", ErrInvalidEndpoint, u.Scheme+":")
	}

	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host in %q", ErrInvalidEndpoint, raw)
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Endpoint{}, fmt.Errorf("%w: invalid port %q", ErrInvalidEndpoint, p)
		}
	}

	return Endpoint{
		Scheme: u.Scheme,
		Host:   u.Hostname(),
		Port:   port,
		Path:   u.RequestURI(),
	}, nil
}

// URL rebuilds the absolute URL of the endpoint
func (e Endpoint) URL() string {
	return fmt.Sprintf("%s://%s%s", e.Scheme, e.HostPort(), e.Path)
}

// Origin returns scheme://host[:port] without the path
func (e Endpoint) Origin() string {
	return fmt.Sprintf("%s://%s", e.Scheme, e.HostPort())
}

// HostPort returns host[:port], omitting the scheme default port
func (e Endpoint) HostPort() string {
	host := e.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if (e.Scheme == "http" && e.Port == 80) || (e.Scheme == "https" && e.Port == 443) {
		return host
	}
	return host + ":" + strconv.Itoa(e.Port)
}
