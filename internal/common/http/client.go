// internal/common/http/client.go
package http

import (
	"net"
	"net/http"
	"time"
)

// NewClient returns a pooled client for calls to one upstream such as the
// Ollama server. A zero timeout leaves deadlines to the request context.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
