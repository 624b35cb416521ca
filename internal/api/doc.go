// Package api is the resource client for the App Store Connect style REST
// API.
//
// A Request names an HTTP method, an endpoint relative to the API root, an
// ordered Query and an optional JSON body. Client.Execute signs a bearer
// token through an auth.TokenSource, performs the round trip and normalises
// the JSON:API document into a Response:
//
//   - a top-level "errors" array is a *DomainError even on HTTP 200;
//   - a body that is not a JSON object comes back as an Opaque response;
//   - network failures, timeouts and cancellations are a *TransportError.
//
// Pagination is driven by the caller with NextPage. FindOrCreate implements
// the query-then-create pattern used by callers that must not create a
// resource twice.
package api
