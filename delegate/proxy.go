package delegate

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/duckgate/duckgate/gateway"
)

// Headers carrying the forwarded credentials and connection options to the
// upstream MCP server.
const (
	HeaderToken    = "X-Motherduck-Token"
	HeaderDatabase = "X-Motherduck-Database"
	HeaderReadOnly = "X-Motherduck-Read-Only"
	HeaderSaaSMode = "X-Motherduck-Saas-Mode"
	HeaderHomeDir  = "X-Motherduck-Home-Dir"
)

// ConnectionOptions tune how the upstream server opens its database
// connection. Zero values are not forwarded.
type ConnectionOptions struct {
	ReadOnly bool
	SaaSMode bool
	HomeDir  string
}

// Proxy forwards MCP traffic to an external server, swapping the caller's
// Authorization header for the MotherDuck credentials.
type Proxy struct {
	upstream  *url.URL
	conn      ConnectionOptions
	transport http.RoundTripper
}

type ProxyOption func(*Proxy)

// WithTransport overrides the upstream round tripper.
func WithTransport(rt http.RoundTripper) ProxyOption {
	return func(p *Proxy) { p.transport = rt }
}

// WithConnectionOptions forwards connection options as headers on every
// upstream request.
func WithConnectionOptions(opts ConnectionOptions) ProxyOption {
	return func(p *Proxy) { p.conn = opts }
}

func NewProxy(upstream *url.URL, opts ...ProxyOption) *Proxy {
	p := &Proxy{upstream: upstream}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Proxy) ServeMCP(w http.ResponseWriter, r *http.Request, creds gateway.Credentials) error {
	var proxyErr error
	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(p.upstream)
			pr.SetXForwarded()
			pr.Out.Header.Del("Authorization")
			if creds.Token != "" {
				pr.Out.Header.Set(HeaderToken, creds.Token)
			}
			pr.Out.Header.Set(HeaderDatabase, creds.Database)
			if p.conn.ReadOnly {
				pr.Out.Header.Set(HeaderReadOnly, "true")
			}
			if p.conn.SaaSMode {
				pr.Out.Header.Set(HeaderSaaSMode, "true")
			}
			if p.conn.HomeDir != "" {
				pr.Out.Header.Set(HeaderHomeDir, p.conn.HomeDir)
			}
		},
		Transport: p.transport,
		// Negative interval flushes immediately, required for SSE streams.
		FlushInterval: -1,
		ErrorHandler: func(_ http.ResponseWriter, _ *http.Request, err error) {
			// Leave the response untouched so the gateway owns the error body.
			proxyErr = fmt.Errorf("proxy to %s: %w", p.upstream, err)
		},
	}
	rp.ServeHTTP(w, r)
	return proxyErr
}
