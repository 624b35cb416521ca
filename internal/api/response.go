package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Resource is one JSON:API resource object.
type Resource struct {
	Type          string                     `json:"type"`
	ID            string                     `json:"id"`
	Attributes    json.RawMessage            `json:"attributes,omitempty"`
	Relationships map[string]json.RawMessage `json:"relationships,omitempty"`
	Links         *Links                     `json:"links,omitempty"`
}

// DecodeAttributes unmarshals the attributes object into v.
func (r Resource) DecodeAttributes(v any) error {
	if len(r.Attributes) == 0 {
		return fmt.Errorf("resource %s/%s has no attributes", r.Type, r.ID)
	}
	return json.Unmarshal(r.Attributes, v)
}

// Links are the document or resource level links.
type Links struct {
	Self  string `json:"self,omitempty"`
	Next  string `json:"next,omitempty"`
	First string `json:"first,omitempty"`
}

// PageMeta is meta.paging of a collection document.
type PageMeta struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
}

// Response is a normalised API answer.
type Response struct {
	Status int `json:"status"`
	// Records holds data; a single-object document yields one record with
	// Single set.
	Records  []Resource `json:"records"`
	Single   bool       `json:"single,omitempty"`
	Included []Resource `json:"included,omitempty"`
	PageMeta *PageMeta  `json:"pageMeta,omitempty"`
	Links    Links      `json:"links"`
	// Opaque is set when the body was not a JSON object; Raw then holds
	// the text verbatim.
	Opaque bool   `json:"opaque,omitempty"`
	Raw    []byte `json:"-"`
}

// First returns the first record.
func (r *Response) First() (Resource, bool) {
	if r == nil || len(r.Records) == 0 {
		return Resource{}, false
	}
	return r.Records[0], true
}

// document holds the top-level members undecoded, so one member of an
// unexpected type cannot hide the others.
type document struct {
	Data     json.RawMessage `json:"data"`
	Errors   json.RawMessage `json:"errors"`
	Included json.RawMessage `json:"included"`
	Links    json.RawMessage `json:"links"`
	Meta     json.RawMessage `json:"meta"`
}

// decodeDocument parses body; ok is false when it is not a JSON object.
func decodeDocument(body []byte) (document, bool) {
	var doc document
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return doc, false
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return doc, false
	}
	return doc, true
}

// apiErrors returns the errors member. A member that is not an array is
// taken as a single entry.
func (d document) apiErrors() []APIError {
	raw := bytes.TrimSpace(d.Errors)
	if isAbsent(raw) {
		return nil
	}
	if raw[0] == '[' {
		var list []APIError
		if err := json.Unmarshal(raw, &list); err == nil {
			return list
		}
	}
	var one APIError
	_ = one.UnmarshalJSON(raw)
	return []APIError{one}
}

func (d document) records() ([]Resource, bool, error) {
	data := bytes.TrimSpace(d.Data)
	switch {
	case isAbsent(data):
		return nil, false, nil
	case data[0] == '[':
		var list []Resource
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, false, err
		}
		return list, false, nil
	default:
		var one Resource
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, false, err
		}
		return []Resource{one}, true, nil
	}
}

func (d document) included() ([]Resource, error) {
	if isAbsent(bytes.TrimSpace(d.Included)) {
		return nil, nil
	}
	var list []Resource
	if err := json.Unmarshal(d.Included, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// links and pageMeta are informational; a malformed member yields the zero
// value.
func (d document) links() Links {
	var l Links
	if isAbsent(bytes.TrimSpace(d.Links)) || json.Unmarshal(d.Links, &l) != nil {
		return Links{}
	}
	return l
}

func (d document) pageMeta() *PageMeta {
	var meta struct {
		Paging *PageMeta `json:"paging"`
	}
	if isAbsent(bytes.TrimSpace(d.Meta)) || json.Unmarshal(d.Meta, &meta) != nil {
		return nil
	}
	return meta.Paging
}

func isAbsent(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
