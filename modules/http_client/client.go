package http_client

import (
	"net/http"
	"sync"
	"time"
)

// DefaultTimeout bounds a request made through the shared client.
const DefaultTimeout = 30 * time.Second

// NewClient returns an *http.Client with a pooled transport.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Shared returns the process-wide client used by the http_request and
// s3_upload actions to reuse TCP connections.
var Shared = sync.OnceValue(func() *http.Client {
	return NewClient(DefaultTimeout)
})
