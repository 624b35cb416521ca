package api

import (
	"net/http"
	"net/url"
)

// NextPage builds the follow-up request from links.next. ok is false on the
// last page. The query is parsed out of the link, so callers may adjust
// limit or cursor before executing it.
func NextPage(resp *Response) (Request, bool) {
	if resp == nil || resp.Links.Next == "" {
		return Request{}, false
	}

	u, err := url.Parse(resp.Links.Next)
	if err != nil {
		return Request{}, false
	}
	q, err := ParseQuery(u.RawQuery)
	if err != nil {
		return Request{}, false
	}
	u.RawQuery = ""
	u.Fragment = ""

	return Request{Method: http.MethodGet, Endpoint: u.String(), Query: q}, true
}
