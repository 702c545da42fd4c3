package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const contentTypeJSON = "application/json"

// Request is a fully captured API call. It holds everything needed to replay
// the call byte for byte; credentials are not part of it and are attached at
// send time.
type Request struct {
	Method string
	Path   string // relative to the base URL, may carry a query
	Header http.Header
	Body   []byte
}

// NewRequest builds a Request, JSON encoding body when it is not nil.
func NewRequest(method, path string, body any) (*Request, error) {
	req := &Request{
		Method: method,
		Path:   path,
		Header: make(http.Header),
	}
	req.Header.Set("Accept", contentTypeJSON)
	if body == nil {
		return req, nil
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[NewRequest] encode %s %s: %w", method, path, err)
	}
	req.Body = raw
	req.Header.Set("Content-Type", contentTypeJSON)
	return req, nil
}

// Clone returns a deep copy so a failed call can be replayed unchanged.
func (r *Request) Clone() *Request {
	c := &Request{
		Method: r.Method,
		Path:   r.Path,
		Header: r.Header.Clone(),
	}
	if r.Body != nil {
		c.Body = bytes.Clone(r.Body)
	}
	return c
}

// Response is a successful (status < 400) API response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("[Response Decode] %w", err)
	}
	return nil
}

// Cookies parses the Set-Cookie headers of the response.
func (r *Response) Cookies() []*http.Cookie {
	return (&http.Response{Header: r.Header}).Cookies()
}
