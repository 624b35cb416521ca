package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ascgate/internal/common"
)

// APIError is one entry of a JSON:API errors array.
type APIError struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// UnmarshalJSON accepts any JSON type for every member: numbers and other
// non-string values keep their JSON text, and an entry that is not an
// object becomes the detail.
func (e *APIError) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		*e = APIError{Detail: jsonText(b)}
		return nil
	}
	*e = APIError{
		ID:     jsonText(fields["id"]),
		Status: jsonText(fields["status"]),
		Code:   jsonText(fields["code"]),
		Title:  jsonText(fields["title"]),
		Detail: jsonText(fields["detail"]),
	}
	return nil
}

func jsonText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

// Text is the detail, falling back to the title, the code and the status.
func (e APIError) Text() string {
	for _, text := range []string{e.Detail, e.Title, e.Code, e.Status} {
		if text != "" {
			return text
		}
	}
	return "unspecified error"
}

// DomainError is returned when the remote API rejected a call, either with
// an errors envelope (at any HTTP status) or with a bare non-2xx status.
type DomainError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Errors     []APIError
	// Body is the raw answer when it carried no errors envelope.
	Body string
}

// Message joins every entry's text with "; ".
func (e *DomainError) Message() string {
	if len(e.Errors) == 0 {
		if e.Body != "" {
			return e.Body
		}
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	texts := make([]string, 0, len(e.Errors))
	for _, apiErr := range e.Errors {
		texts = append(texts, apiErr.Text())
	}
	return strings.Join(texts, "; ")
}

func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", common.ErrDomain, e.Method, e.Endpoint)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	b.WriteString(": ")
	b.WriteString(e.Message())
	return b.String()
}

func (e *DomainError) Is(target error) bool { return target == common.ErrDomain }

// HasCode reports whether any entry carries code.
func (e *DomainError) HasCode(code string) bool {
	for _, apiErr := range e.Errors {
		if apiErr.Code == code {
			return true
		}
	}
	return false
}

// TransportError is a failed round trip: dial, TLS, timeout, cancellation
// or a truncated body.
type TransportError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", common.ErrTransport, e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == common.ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }
