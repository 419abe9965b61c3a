package utils

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a client with the connection pool tuned for talking
// to a single backend host. timeout bounds the whole request round trip.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
