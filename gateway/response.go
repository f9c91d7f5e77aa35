package gateway

import (
	"encoding/json"
	"net/http"
)

// responseTracker wraps an http.ResponseWriter and records whether anything
// was sent to the client. Streaming delegates flush through it.
type responseTracker struct {
	http.ResponseWriter
	started bool
	status  int
}

func (t *responseTracker) WriteHeader(code int) {
	if !t.started {
		t.started = true
		t.status = code
	}
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTracker) Write(b []byte) (int, error) {
	if !t.started {
		t.started = true
		t.status = http.StatusOK
	}
	return t.ResponseWriter.Write(b)
}

func (t *responseTracker) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		t.started = true
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
