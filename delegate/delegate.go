// Package delegate provides gateway.Delegate implementations: an in-process
// MCP server served over the official SDK's streamable HTTP transport, and a
// reverse proxy to an externally managed MCP server.
package delegate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/duckgate/duckgate/gateway"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type credsKey struct{}

// WithCredentials returns a context carrying the forwarded credentials.
func WithCredentials(ctx context.Context, creds gateway.Credentials) context.Context {
	return context.WithValue(ctx, credsKey{}, creds)
}

// CredentialsFromContext extracts credentials stored by WithCredentials.
func CredentialsFromContext(ctx context.Context) (gateway.Credentials, bool) {
	creds, ok := ctx.Value(credsKey{}).(gateway.Credentials)
	return creds, ok
}

// FromHTTP adapts an http.Handler into a gateway.Delegate. The credentials
// are placed in the request context for the handler to read. A panic from the
// handler is returned as an error so the gateway can map it to its 500
// response; http.ErrAbortHandler is re-raised unchanged.
func FromHTTP(h http.Handler) gateway.Delegate {
	return gateway.DelegateFunc(func(w http.ResponseWriter, r *http.Request, creds gateway.Credentials) (err error) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				err = fmt.Errorf("mcp handler panic: %v", v)
			}
		}()
		h.ServeHTTP(w, r.WithContext(WithCredentials(r.Context(), creds)))
		return nil
	})
}

// NewStreamable serves MCP in-process. The newServer factory is called per
// request and may read the forwarded credentials via CredentialsFromContext.
func NewStreamable(newServer func(*http.Request) *mcp.Server) gateway.Delegate {
	h := mcp.NewStreamableHTTPHandler(newServer, nil)
	return FromHTTP(h)
}
