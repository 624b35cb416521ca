package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/ascgate/internal/auth"
	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/logging"
	"github.com/dmitrijs2005/ascgate/internal/metrics"
	"github.com/dmitrijs2005/ascgate/internal/netx"
	"github.com/google/uuid"
)

// Config configures a Client.
type Config struct {
	// APIRoot is the versioned root. Defaults to common.DefaultAPIRoot.
	APIRoot string

	// HTTPClient performs the round trips; its Timeout bounds each call.
	// Defaults to netx.NewHTTPClient(0).
	HTTPClient *http.Client

	// Tokens issues the bearer token for every call. Required.
	Tokens auth.TokenSource

	Logger logging.Logger
}

// Client executes resource requests. It is safe for concurrent use.
type Client struct {
	root   string
	http   *http.Client
	tokens auth.TokenSource
	logger logging.Logger
}

// invalidator is implemented by token sources that cache.
type invalidator interface {
	Invalidate(creds auth.Credentials)
}

func New(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("%w: api client needs a token source", common.ErrConfiguration)
	}

	root := strings.TrimRight(cfg.APIRoot, "/")
	if root == "" {
		root = common.DefaultAPIRoot
	}
	u, err := url.Parse(root)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid api root %q", common.ErrConfiguration, cfg.APIRoot)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = netx.NewHTTPClient(0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Client{root: root, http: httpClient, tokens: cfg.Tokens, logger: logger}, nil
}

// Root returns the API root every endpoint is joined to.
func (c *Client) Root() string { return c.root }

// Execute performs req with a token issued for creds.
func (c *Client) Execute(ctx context.Context, req Request, creds auth.Credentials) (*Response, error) {
	method := req.method()

	target, err := c.buildURL(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.hasBody() {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: encode body for %s %s: %w", common.ErrConfiguration, method, req.Endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	tok, err := c.tokens.Issue(ctx, creds)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request %s %s: %w", common.ErrConfiguration, method, req.Endpoint, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set(common.AuthorizationHeaderName, "Bearer "+tok.Value)
	httpReq.Header.Set(common.RequestIDHeaderName, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	log := c.logger.With("request_id", requestID, "method", method, "endpoint", req.Endpoint)
	start := time.Now()

	resp, err := c.roundTrip(httpReq, method, req.Endpoint)
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "transport").Inc()
		log.Debug(ctx, "api call failed", "error", err)
		return nil, err
	}

	out, err := c.normalize(method, req.Endpoint, resp)
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "domain").Inc()
		log.Debug(ctx, "api call rejected", "status", resp.status, "error", err)
		if resp.status == http.StatusUnauthorized {
			if inv, ok := c.tokens.(invalidator); ok {
				inv.Invalidate(creds)
			}
		}
		return nil, err
	}

	metrics.APIRequests.WithLabelValues(method, "ok").Inc()
	log.Debug(ctx, "api call done", "status", out.Status, "records", len(out.Records), "opaque", out.Opaque,
		"elapsed", time.Since(start))
	return out, nil
}

type rawResponse struct {
	status int
	body   []byte
}

func (c *Client) roundTrip(req *http.Request, method, endpoint string) (rawResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return rawResponse{}, &TransportError{Method: method, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := netx.ReadResponse(resp.Body)
	if err != nil {
		return rawResponse{}, &TransportError{Method: method, Endpoint: endpoint, Err: fmt.Errorf("read body: %w", err)}
	}
	return rawResponse{status: resp.StatusCode, body: data}, nil
}

func (c *Client) normalize(method, endpoint string, raw rawResponse) (*Response, error) {
	success := raw.status >= 200 && raw.status < 300

	doc, ok := decodeDocument(raw.body)
	if !ok {
		if !success {
			return nil, &DomainError{Method: method, Endpoint: endpoint, StatusCode: raw.status, Body: strings.TrimSpace(string(raw.body))}
		}
		return &Response{
			Status: raw.status,
			Opaque: len(bytes.TrimSpace(raw.body)) > 0,
			Raw:    raw.body,
		}, nil
	}

	if apiErrs := doc.apiErrors(); len(apiErrs) > 0 {
		return nil, &DomainError{Method: method, Endpoint: endpoint, StatusCode: raw.status, Errors: apiErrs}
	}
	if !success {
		return nil, &DomainError{Method: method, Endpoint: endpoint, StatusCode: raw.status, Body: strings.TrimSpace(string(raw.body))}
	}

	records, single, err := doc.records()
	if err != nil {
		// data has an unexpected shape; hand the body back untouched
		return &Response{Status: raw.status, Opaque: true, Raw: raw.body}, nil
	}
	included, err := doc.included()
	if err != nil {
		return &Response{Status: raw.status, Opaque: true, Raw: raw.body}, nil
	}

	return &Response{
		Status:   raw.status,
		Records:  records,
		Single:   single,
		Included: included,
		PageMeta: doc.pageMeta(),
		Links:    doc.links(),
		Raw:      raw.body,
	}, nil
}

func (c *Client) buildURL(req Request) (string, error) {
	endpoint := req.Endpoint
	query := req.Query.Encode()

	if strings.HasPrefix(endpoint, "https://") || strings.HasPrefix(endpoint, "http://") {
		if endpoint != c.root && !strings.HasPrefix(endpoint, c.root+"/") && !strings.HasPrefix(endpoint, c.root+"?") {
			return "", fmt.Errorf("%w: endpoint %s is outside the api root", common.ErrConfiguration, endpoint)
		}
		if query == "" {
			return endpoint, nil
		}
		if strings.Contains(endpoint, "?") {
			return endpoint + "&" + query, nil
		}
		return endpoint + "?" + query, nil
	}

	if endpoint == "" {
		return "", fmt.Errorf("%w: empty endpoint", common.ErrConfiguration)
	}

	target := c.root + "/" + strings.TrimLeft(endpoint, "/")
	if query != "" {
		target += "?" + query
	}
	return target, nil
}
