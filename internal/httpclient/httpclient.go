package httpclient

import (
	"net/http"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const DefaultTimeout = 30 * time.Second

// New returns a client with a request timeout. *http.Client satisfies
// HTTPClient; tests substitute a mock.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
