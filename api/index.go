// Package api exposes the gateway as serverless HTTP functions. Each
// invocation reads its configuration from the process environment, mirroring
// how serverless platforms inject settings per deployment.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/duckgate/duckgate/config"
	"github.com/duckgate/duckgate/delegate"
	"github.com/duckgate/duckgate/gateway"
)

// Handler is the unsecured entry point: every request is forwarded to the
// delegate with the environment-sourced credentials.
func Handler(w http.ResponseWriter, r *http.Request) {
	logger := newLogger()
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("config error", "error", err.Error())
		writeConfigError(w)
		return
	}
	gateway.NewHandler(buildDelegate(cfg), credentials(cfg), logger).ServeHTTP(w, r)
}

// SecureHandler additionally requires the API_BEARER_TOKEN shared secret and
// refuses to delegate when MOTHERDUCK_API_KEY is unset.
func SecureHandler(w http.ResponseWriter, r *http.Request) {
	logger := newLogger()
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("config error", "error", err.Error())
		writeConfigError(w)
		return
	}
	gateway.NewSecuredHandler(buildDelegate(cfg), credentials(cfg), cfg.BearerToken, logger).ServeHTTP(w, r)
}

func credentials(cfg config.Config) gateway.Credentials {
	return gateway.Credentials{Token: cfg.APIKey, Database: cfg.Database}
}

// buildDelegate proxies to the external MCP server. A missing or invalid
// upstream becomes a delegate error so both handlers map it to their usual
// 500 response.
func buildDelegate(cfg config.Config) gateway.Delegate {
	if cfg.UpstreamURL == "" {
		return failingDelegate(errors.New("DUCKGATE_UPSTREAM_URL is not set"))
	}
	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return failingDelegate(err)
	}
	return delegate.NewProxy(upstream)
}

func failingDelegate(err error) gateway.Delegate {
	return gateway.DelegateFunc(func(http.ResponseWriter, *http.Request, gateway.Credentials) error {
		return err
	})
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

func writeConfigError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal MCP Server Error"})
}
