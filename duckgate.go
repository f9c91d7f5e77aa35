// Package duckgate is an authenticating HTTP gateway in front of a MotherDuck
// MCP server.
package duckgate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/duckgate/duckgate/config"
	"github.com/duckgate/duckgate/delegate"
	"github.com/duckgate/duckgate/gateway"
	"github.com/duckgate/duckgate/status"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPPath is where the MCP surface is mounted.
const MCPPath = "/mcp"

// ErrNoDelegate is returned by New when neither an in-process MCP server nor
// an upstream URL is configured.
var ErrNoDelegate = errors.New("no MCP delegate: set upstream_url or provide an MCP server")

type Config struct {
	// Settings is the runtime configuration. If nil, config.Load() is used.
	Settings *config.Config

	// Logger is the structured logger. If nil, logs are discarded.
	Logger *slog.Logger

	// MCPServer, when set, serves MCP in-process over the SDK's streamable
	// transport instead of proxying to Settings.UpstreamURL. The factory may
	// read the forwarded credentials via delegate.CredentialsFromContext.
	MCPServer func(*http.Request) *mcp.Server

	// Version reported by the status endpoints (default: "dev").
	Version string
}

// New builds the full gateway handler: status routes, the MCP mount, CORS and
// request logging.
func New(cfg Config) (http.Handler, error) {
	settings := cfg.Settings
	if settings == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		settings = &loaded
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var d gateway.Delegate
	switch {
	case cfg.MCPServer != nil:
		d = delegate.NewStreamable(cfg.MCPServer)
	case settings.UpstreamURL != "":
		upstream, err := url.Parse(settings.UpstreamURL)
		if err != nil {
			return nil, fmt.Errorf("parse upstream URL: %w", err)
		}
		d = delegate.NewProxy(upstream, delegate.WithConnectionOptions(delegate.ConnectionOptions{
			ReadOnly: settings.ReadOnly,
			SaaSMode: settings.SaaSMode,
			HomeDir:  settings.HomeDir,
		}))
	default:
		return nil, ErrNoDelegate
	}

	database := settings.Database
	if database == "" {
		database = config.DefaultDatabase
	}
	creds := gateway.Credentials{Token: settings.APIKey, Database: database}

	var mcpHandler http.Handler
	if settings.BearerToken != "" {
		mcpHandler = gateway.NewSecuredHandler(d, creds, settings.BearerToken, logger)
	} else {
		logger.Warn("API_BEARER_TOKEN not set, MCP endpoint is unauthenticated")
		mcpHandler = gateway.NewHandler(d, creds, logger)
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	mux := http.NewServeMux()
	mux.Handle(MCPPath, mcpHandler)
	mux.Handle("/", &status.Handler{Version: version, MCPPath: MCPPath})

	handler := gateway.CORS(mux, settings.CORSOrigins)
	handler = gateway.RequestLog(handler, logger)
	return handler, nil
}
