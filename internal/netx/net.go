// Package netx holds the HTTP plumbing shared by the resource client and the
// upload pipeline: client construction, bounded body reads and raw byte
// transfers to pre-signed destinations.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxResponseSize bounds JSON API body reads.
const MaxResponseSize int64 = 64 << 20

// NewHTTPClient returns a client whose Timeout bounds every round trip.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// ErrorBody reads an error body for diagnostics; read errors are ignored.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	return string(data)
}

// StatusError reports a destination that answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload failed: %s", e.Status)
	}
	return fmt.Sprintf("upload failed: %s; body: %s", e.Status, e.Body)
}

// Transfer describes one raw byte transfer.
type Transfer struct {
	Method string
	URL    string
	Header http.Header
	Body   io.Reader
	// Length is sent as Content-Length; negative means unknown.
	Length int64
}

// Send performs t with client. Headers are attached verbatim. A non-2xx
// answer is returned as *StatusError; anything else is the transport error.
func Send(ctx context.Context, client *http.Client, t Transfer) error {
	method := t.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, t.URL, t.Body)
	if err != nil {
		return err
	}
	for name, values := range t.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	if t.Length >= 0 {
		req.ContentLength = t.Length
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: ErrorBody(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
