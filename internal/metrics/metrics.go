// Package metrics holds the prometheus collectors recorded by the resource
// client and the upload pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registry every ascgate collector is registered with.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// APIRequests counts resource client calls by method and outcome
	// (ok, domain, transport).
	APIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ascgate_api_requests_total",
		Help: "Total number of resource API calls",
	}, []string{"method", "outcome"})

	// APIRequestDuration tracks round trip time of resource API calls.
	APIRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ascgate_api_request_duration_seconds",
		Help:    "Histogram of resource API round trip duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// TokensIssued counts signing operations.
	TokensIssued = factory.NewCounter(prometheus.CounterOpts{
		Name: "ascgate_tokens_issued_total",
		Help: "Total number of access tokens signed",
	})

	// TokenCacheHits counts requests served from the token cache.
	TokenCacheHits = factory.NewCounter(prometheus.CounterOpts{
		Name: "ascgate_token_cache_hits_total",
		Help: "Total number of access tokens reused from the cache",
	})

	// UploadParts counts part transfers by outcome (ok, failed, retried).
	UploadParts = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ascgate_upload_parts_total",
		Help: "Total number of upload part transfers",
	}, []string{"outcome"})

	// UploadSessions counts sessions by the state they ended in.
	UploadSessions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "ascgate_upload_sessions_total",
		Help: "Total number of upload sessions by final state",
	}, []string{"state"})
)

// writeTextfile is a test seam for prometheus.WriteToTextfile.
var writeTextfile = prometheus.WriteToTextfile

// WriteTextfile writes the registry in the text exposition format, suitable
// for the node-exporter textfile collector.
func WriteTextfile(path string) error {
	if err := writeTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
