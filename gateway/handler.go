package gateway

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const bearerPrefix = "Bearer "

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler forwards every request to the delegate without authenticating the
// caller. Deploy it only behind an authenticating front end.
type Handler struct {
	delegate Delegate
	creds    Credentials
	logger   *slog.Logger
}

func NewHandler(delegate Delegate, creds Credentials, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{delegate: delegate, creds: creds, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	tw := &responseTracker{ResponseWriter: w}
	if err := h.delegate.ServeMCP(tw, r, h.creds); err != nil {
		h.logger.ErrorContext(r.Context(), "mcp delegate failed",
			"error", err.Error(),
			"response_started", tw.started,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if !tw.started {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal MCP Server Error"})
		}
	}
}

// SecuredHandler requires callers to present a shared bearer secret in the
// Authorization header before any delegation happens.
type SecuredHandler struct {
	delegate Delegate
	creds    Credentials
	expected string
	logger   *slog.Logger
}

func NewSecuredHandler(delegate Delegate, creds Credentials, bearerToken string, logger *slog.Logger) *SecuredHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SecuredHandler{delegate: delegate, creds: creds, expected: bearerToken, logger: logger}
}

func (h *SecuredHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	token := bearerToken(r)
	if token == "" || !tokenEqual(token, h.expected) {
		h.logger.InfoContext(r.Context(), "request rejected",
			"reason", "bad_bearer_token",
			"token_present", token != "",
		)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized"})
		return
	}

	if h.creds.Token == "" {
		h.logger.ErrorContext(r.Context(), "request rejected",
			"reason", "missing_api_key",
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Missing MOTHERDUCK_API_KEY env var"})
		return
	}

	tw := &responseTracker{ResponseWriter: w}
	if err := h.delegate.ServeMCP(tw, r, h.creds); err != nil {
		h.logger.ErrorContext(r.Context(), "mcp delegate failed",
			"error", err.Error(),
			"response_started", tw.started,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if !tw.started {
			writeJSON(w, http.StatusInternalServerError, errorBody{
				Error:   "Internal MCP Server Error",
				Details: err.Error(),
			})
		}
	}
}

// bearerToken extracts the credential after the "Bearer " prefix, trimmed of
// surrounding whitespace. A header without the prefix yields an empty token,
// which is always rejected.
func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// tokenEqual compares in constant time so response latency leaks nothing
// about how much of the guess was correct.
func tokenEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
