package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorEnvelope is the API's JSON error body.
type ErrorEnvelope struct {
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// TransportError reports a failed call: either a response with status >= 400
// or no response at all (Status == 0). It carries the raw body and makes no
// judgement about what the failure means.
type TransportError struct {
	Method string
	Path   string
	Status int
	Body   []byte
	Err    error // network or timeout cause when there is no response
}

func (e *TransportError) Error() string {
	if !e.HasResponse() {
		return fmt.Sprintf("%s %s: no response: %v", e.Method, e.Path, e.Err)
	}
	if msg := e.Envelope().Message; msg != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HasResponse is false for network failures and timeouts.
func (e *TransportError) HasResponse() bool {
	return e.Status != 0
}

// Envelope decodes the body as the API error envelope. Non-JSON bodies yield
// an empty envelope.
func (e *TransportError) Envelope() ErrorEnvelope {
	var env ErrorEnvelope
	if len(e.Body) > 0 {
		_ = json.Unmarshal(e.Body, &env)
	}
	return env
}

func (e *TransportError) ErrorCode() string {
	return e.Envelope().ErrorCode
}

// Message is a human readable description suitable for a banner.
func (e *TransportError) Message() string {
	if msg := e.Envelope().Message; msg != "" {
		return msg
	}
	if !e.HasResponse() {
		return "The server could not be reached"
	}
	return http.StatusText(e.Status)
}
