package app

import (
	"net"
	"net/http"
	"time"
)

// newRegistryHTTPClient returns an HTTP client sized for a single origin.
// Request deadlines come from the fetch clients, so the client itself sets no
// overall timeout.
func newRegistryHTTPClient(workers int) *http.Client {
	if workers < 1 {
		workers = 1
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          workers * 2,
		MaxIdleConnsPerHost:   workers * 2,
		MaxConnsPerHost:       workers * 2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}
