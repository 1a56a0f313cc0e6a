package httpclient

import (
	"net/http"
	"time"
)

// Shared HTTP client with timeout and connection reuse.
var Default = New(30 * time.Second)

// New returns a client with the shared transport settings and the given
// per-request timeout.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        50,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
