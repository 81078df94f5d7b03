package httpx

import (
	"net"
	"net/http"
	"time"
)

var defaultClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxConnsPerHost:     100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

func Client() *http.Client { return defaultClient }

// WithTimeout returns a client sharing the default transport but with its
// own overall request timeout.
func WithTimeout(d time.Duration) *http.Client {
	if d <= 0 {
		return defaultClient
	}
	return &http.Client{Timeout: d, Transport: defaultClient.Transport}
}
