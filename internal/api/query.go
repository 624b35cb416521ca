package api

import (
	"net/url"
	"strconv"
	"strings"
)

// Param is one query parameter.
type Param struct {
	Key   string
	Value string
}

// Query is an ordered list of parameters. Values that are empty when the
// query is encoded are left out. The zero value is ready to use.
type Query []Param

// Set appends key=value.
func (q Query) Set(key, value string) Query {
	return append(q, Param{Key: key, Value: value})
}

// Filter appends filter[field]=v1,v2.
func (q Query) Filter(field string, values ...string) Query {
	return q.Set("filter["+field+"]", strings.Join(nonEmpty(values), ","))
}

// Sort appends sort=f1,f2. Prefix a field with "-" for descending order.
func (q Query) Sort(fields ...string) Query {
	return q.Set("sort", strings.Join(nonEmpty(fields), ","))
}

// Limit appends limit=n; n <= 0 leaves the server default.
func (q Query) Limit(n int) Query {
	if n <= 0 {
		return q.Set("limit", "")
	}
	return q.Set("limit", strconv.Itoa(n))
}

// Fields appends fields[resource]=f1,f2 (sparse fieldsets).
func (q Query) Fields(resource string, fields ...string) Query {
	return q.Set("fields["+resource+"]", strings.Join(nonEmpty(fields), ","))
}

// Include appends include=r1,r2.
func (q Query) Include(relationships ...string) Query {
	return q.Set("include", strings.Join(nonEmpty(relationships), ","))
}

// Cursor appends the opaque paging cursor.
func (q Query) Cursor(cursor string) Query {
	return q.Set("cursor", cursor)
}

// Get returns the first non-empty value for key.
func (q Query) Get(key string) string {
	for _, p := range q {
		if p.Key == key && p.Value != "" {
			return p.Value
		}
	}
	return ""
}

// Replace drops every existing value for key and appends key=value.
func (q Query) Replace(key, value string) Query {
	out := make(Query, 0, len(q)+1)
	for _, p := range q {
		if p.Key != key {
			out = append(out, p)
		}
	}
	return out.Set(key, value)
}

// Encode returns the URL-encoded query in insertion order, without the
// leading "?". Parameters with empty keys or values are omitted.
func (q Query) Encode() string {
	var b strings.Builder
	for _, p := range q {
		if p.Key == "" || p.Value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// ParseQuery is the ordered inverse of Encode.
func ParseQuery(raw string) (Query, error) {
	var q Query
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		q = append(q, Param{Key: key, Value: value})
	}
	return q, nil
}

func nonEmpty(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
