package api

import "net/http"

// Request is one resource call. Endpoint is relative to the API root
// ("/apps/123"); an absolute URL is accepted only when it lives under the
// root, which is what paging links look like.
type Request struct {
	Method   string
	Endpoint string
	Query    Query
	// Body is marshalled as JSON for POST and PATCH and ignored otherwise.
	Body any
}

func Get(endpoint string, q Query) Request {
	return Request{Method: http.MethodGet, Endpoint: endpoint, Query: q}
}

func Post(endpoint string, body any) Request {
	return Request{Method: http.MethodPost, Endpoint: endpoint, Body: body}
}

func Patch(endpoint string, body any) Request {
	return Request{Method: http.MethodPatch, Endpoint: endpoint, Body: body}
}

func Delete(endpoint string) Request {
	return Request{Method: http.MethodDelete, Endpoint: endpoint}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

func (r Request) hasBody() bool {
	m := r.method()
	return r.Body != nil && (m == http.MethodPost || m == http.MethodPatch)
}
