package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeDelegate struct {
	calls     int
	lastCreds Credentials
	err       error
	write     func(w http.ResponseWriter)
}

func (f *fakeDelegate) ServeMCP(w http.ResponseWriter, _ *http.Request, creds Credentials) error {
	f.calls++
	f.lastCreds = creds
	if f.write != nil {
		f.write(w)
	}
	return f.err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHandlerDelegates(t *testing.T) {
	fake := &fakeDelegate{write: func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("mcp response"))
	}}
	h := NewHandler(fake, Credentials{Token: "md-key", Database: "analytics"}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if fake.calls != 1 {
		t.Fatalf("delegate calls = %d, want 1", fake.calls)
	}
	if fake.lastCreds.Token != "md-key" || fake.lastCreds.Database != "analytics" {
		t.Errorf("delegate credentials = %+v", fake.lastCreds)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "mcp response" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
}

func TestHandlerPassesEmptyCredentials(t *testing.T) {
	// No local validation: an empty token is forwarded as-is.
	fake := &fakeDelegate{}
	h := NewHandler(fake, Credentials{Token: "", Database: "default"}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if fake.calls != 1 {
		t.Fatalf("delegate calls = %d, want 1", fake.calls)
	}
	if fake.lastCreds.Token != "" || fake.lastCreds.Database != "default" {
		t.Errorf("delegate credentials = %+v", fake.lastCreds)
	}
}

func TestHandlerDelegateError(t *testing.T) {
	fake := &fakeDelegate{err: errors.New("connection refused")}
	h := NewHandler(fake, Credentials{Token: "md-key", Database: "default"}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Internal MCP Server Error" {
		t.Errorf("error = %q", body["error"])
	}
	if _, ok := body["details"]; ok {
		t.Error("unsecured handler must not expose details")
	}
}

func TestHandlerNoDoubleWriteAfterStream(t *testing.T) {
	// Delegate failed mid-stream: the bytes already sent stand, no 500 body
	// is appended.
	fake := &fakeDelegate{
		err: errors.New("stream aborted"),
		write: func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte("partial"))
		},
	}
	h := NewHandler(fake, Credentials{Token: "md-key", Database: "default"}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if rec.Body.String() != "partial" {
		t.Errorf("body = %q, want partial response preserved", rec.Body.String())
	}
}

func TestSecuredHandlerAuthorization(t *testing.T) {
	tests := []struct {
		name       string
		authHeader string
		expected   string
		wantStatus int
		wantCalls  int
	}{
		{
			name:       "missing header",
			authHeader: "",
			expected:   "abc123",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong token",
			authHeader: "Bearer nope",
			expected:   "abc123",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no bearer prefix",
			authHeader: "abc123",
			expected:   "abc123",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty token with empty expected",
			authHeader: "Bearer ",
			expected:   "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "exact match",
			authHeader: "Bearer abc123",
			expected:   "abc123",
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "surrounding whitespace trimmed",
			authHeader: "Bearer  abc123  ",
			expected:   "abc123",
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeDelegate{write: func(w http.ResponseWriter) {
				w.WriteHeader(http.StatusOK)
			}}
			h := NewSecuredHandler(fake, Credentials{Token: "md-key", Database: "default"}, tt.expected, nil)

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if fake.calls != tt.wantCalls {
				t.Errorf("delegate calls = %d, want %d", fake.calls, tt.wantCalls)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				body := decodeBody(t, rec)
				if body["error"] != "Unauthorized" {
					t.Errorf("error = %q", body["error"])
				}
			}
		})
	}
}

func TestSecuredHandlerMissingAPIKey(t *testing.T) {
	fake := &fakeDelegate{}
	h := NewSecuredHandler(fake, Credentials{Token: "", Database: "default"}, "abc123", nil)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Missing MOTHERDUCK_API_KEY env var" {
		t.Errorf("error = %q", body["error"])
	}
	if fake.calls != 0 {
		t.Errorf("delegate calls = %d, want 0", fake.calls)
	}
}

func TestSecuredHandlerDelegateErrorIncludesDetails(t *testing.T) {
	fake := &fakeDelegate{err: errors.New("upstream unreachable")}
	h := NewSecuredHandler(fake, Credentials{Token: "md-key", Database: "default"}, "abc123", nil)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "Internal MCP Server Error" {
		t.Errorf("error = %q", body["error"])
	}
	if body["details"] != "upstream unreachable" {
		t.Errorf("details = %q, want delegate error message", body["details"])
	}
}

func TestSecuredHandlerSameInputSameDecision(t *testing.T) {
	fake := &fakeDelegate{write: func(w http.ResponseWriter) { w.WriteHeader(http.StatusOK) }}
	h := NewSecuredHandler(fake, Credentials{Token: "md-key", Database: "default"}, "abc123", nil)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i, rec.Code)
		}
	}
	if fake.calls != 0 {
		t.Errorf("delegate calls = %d, want 0", fake.calls)
	}
}
