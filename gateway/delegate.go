// Package gateway authenticates HTTP requests and forwards them to an MCP delegate.
package gateway

import "net/http"

// Credentials carries the per-request configuration handed to the delegate.
type Credentials struct {
	// Token is the MotherDuck service API key. It is forwarded as-is; the
	// gateway never validates it locally.
	Token string
	// Database is the database the delegate should connect to.
	Database string
}

// Delegate handles an MCP request end to end. Implementations own protocol
// negotiation and response writing; a non-nil error means the delegate failed.
// The gateway checks whether the response was already started before writing
// its own error body, so a delegate that fails mid-stream does not trigger a
// double write.
type Delegate interface {
	ServeMCP(w http.ResponseWriter, r *http.Request, creds Credentials) error
}

// DelegateFunc adapts a function to the Delegate interface.
type DelegateFunc func(w http.ResponseWriter, r *http.Request, creds Credentials) error

func (f DelegateFunc) ServeMCP(w http.ResponseWriter, r *http.Request, creds Credentials) error {
	return f(w, r, creds)
}
