package graphql

import (
	"context"
	"encoding/json"
	"net/http"
)

// OperationKind distinguishes queries from mutations
type OperationKind int

const (
	KindQuery OperationKind = iota
	KindMutation
)

// FetchPolicy controls how a query interacts with the client cache
type FetchPolicy string

const (
	CacheFirst      FetchPolicy = "cache-first"
	CacheAndNetwork FetchPolicy = "cache-and-network"
	NetworkOnly     FetchPolicy = "network-only"
	NoCache         FetchPolicy = "no-cache"
)

// ErrorPolicy controls whether GraphQL errors become Go errors
type ErrorPolicy int

const (
	// ErrorPolicyNone turns any GraphQL error into a *ResponseError
	ErrorPolicyNone ErrorPolicy = iota
	// ErrorPolicyAll returns data and errors together; only transport failures are errors
	ErrorPolicyAll
)

// Operation is a single GraphQL request travelling through the link chain
type Operation struct {
	Name      string
	Query     string
	Variables map[string]any
	Kind      OperationKind

	// Policy overrides the client's default fetch policy when set
	Policy FetchPolicy

	// Header is sent with the HTTP request; links add to it
	Header http.Header
}

func (op *Operation) setHeader(key, value string) {
	if op.Header == nil {
		op.Header = make(http.Header)
	}
	op.Header.Set(key, value)
}

// request is the wire form of an operation
type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Error is a single entry of the GraphQL errors array
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code, or "" when absent
func (e Error) Code() string {
	if code, ok := e.Extensions["code"].(string); ok {
		return code
	}
	return ""
}

// Response is a decoded GraphQL envelope plus transport details
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []Error         `json:"errors,omitempty"`

	StatusCode int `json:"-"`
	// SetCookies holds the raw upstream Set-Cookie values for relaying
	SetCookies []string `json:"-"`
}

// HasData reports whether the response carries a non-null data object
func (r *Response) HasData() bool {
	return r != nil && len(r.Data) > 0 && string(r.Data) != "null"
}

// Decode unmarshals the data object into out
func (r *Response) Decode(out any) error {
	if out == nil || !r.HasData() {
		return nil
	}
	return json.Unmarshal(r.Data, out)
}

// Handler executes an operation
type Handler func(ctx context.Context, op *Operation) (*Response, error)

// Link wraps a Handler with additional behaviour
type Link func(next Handler) Handler

// Chain composes links so that the first one runs outermost
func Chain(links ...Link) Link {
	return func(next Handler) Handler {
		for i := len(links) - 1; i >= 0; i-- {
			if links[i] != nil {
				next = links[i](next)
			}
		}
		return next
	}
}
