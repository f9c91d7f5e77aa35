// Package status serves the gateway's service metadata endpoints.
package status

import (
	"encoding/json"
	"net/http"
)

const serviceName = "MotherDuck MCP Gateway"

// Handler answers the unauthenticated GET endpoints: health, service info,
// and the static tool/prompt catalogs of the upstream MCP server.
type Handler struct {
	// Version reported by /health and /.
	Version string
	// MCPPath is where the MCP surface is mounted, reported in the endpoint
	// catalog.
	MCPPath string
	// Available reports whether a delegate is configured. Nil means available.
	Available func() bool
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}

	switch r.URL.Path {
	case "/health":
		h.serveHealth(w)
	case "/", "/api":
		h.serveInfo(w)
	case "/tools":
		h.serveTools(w)
	case "/prompts":
		h.servePrompts(w)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Endpoint not found"})
	}
}

func (h *Handler) available() bool {
	return h.Available == nil || h.Available()
}

func (h *Handler) serveHealth(w http.ResponseWriter) {
	st := "ok"
	if !h.available() {
		st = "error"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        st,
		"service":       serviceName,
		"version":       h.Version,
		"mcp_available": h.available(),
	})
}

func (h *Handler) serveInfo(w http.ResponseWriter) {
	mcpPath := h.MCPPath
	if mcpPath == "" {
		mcpPath = "/mcp"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     serviceName,
		"version":     h.Version,
		"description": "HTTP gateway for the MotherDuck MCP server",
		"endpoints": map[string]string{
			"GET /health":  "Health check and status",
			"GET /":        "This API information",
			"GET /tools":   "List available MCP tools",
			"GET /prompts": "List available MCP prompts",
			"POST " + mcpPath: "MCP protocol endpoint",
		},
		"authentication": "Bearer token (if API_BEARER_TOKEN is set)",
		"mcp_available":  h.available(),
	})
}

func (h *Handler) serveTools(w http.ResponseWriter) {
	tools := []map[string]any{}
	if h.available() {
		tools = append(tools, map[string]any{
			"name":        "query",
			"description": "Execute a SQL query on the DuckDB or MotherDuck database",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The SQL query to execute",
					},
				},
				"required": []string{"query"},
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tools":         tools,
		"mcp_available": h.available(),
	})
}

func (h *Handler) servePrompts(w http.ResponseWriter) {
	prompts := []map[string]any{}
	if h.available() {
		prompts = append(prompts, map[string]any{
			"name":        "duckdb-motherduck-initial-prompt",
			"description": "A prompt to initialize a connection to DuckDB or MotherDuck and start working with it",
			"arguments":   []any{},
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompts":       prompts,
		"mcp_available": h.available(),
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
