// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound calls that do not bring their own client.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// NewHTTPClient returns a client with its own timeout, for callers that need
// a tighter bound than HTTPClient.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return HTTPClient
	}
	return &http.Client{Timeout: timeout}
}
