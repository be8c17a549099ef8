package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
)

func runLogged(t *testing.T, req *http.Request, status int) map[string]interface{} {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	entry := runLogged(t, httptest.NewRequest(http.MethodGet, "/api/dpes?name=smith", nil), http.StatusOK)

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/api/dpes" {
		t.Errorf("path = %v, want /api/dpes", entry["path"])
	}
	if status, ok := entry["status"].(float64); !ok || status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected 'duration_ms' field in log entry")
	}
	if _, ok := entry["user_id"]; ok {
		t.Error("user_id should be omitted for anonymous requests")
	}
}

// TestLoggingMiddleware_IncludesUserIDAndRequestID は認証済みユーザーIDとリクエストIDが含まれることを検証する。
func TestLoggingMiddleware_IncludesUserIDAndRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", nil)
	ctx := ContextWithUserID(req.Context(), "user-123")
	ctx = context.WithValue(ctx, chimw.RequestIDKey, "req-42")

	entry := runLogged(t, req.WithContext(ctx), http.StatusCreated)

	if entry["user_id"] != "user-123" {
		t.Errorf("user_id = %v", entry["user_id"])
	}
	if entry["request_id"] != "req-42" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}

// TestLoggingMiddleware_LevelByStatus はステータスコードに応じてログレベルが変わることを検証する。
func TestLoggingMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		entry := runLogged(t, httptest.NewRequest(http.MethodGet, "/", nil), tt.status)
		if entry["level"] != tt.want {
			t.Errorf("status %d: level = %v, want %s", tt.status, entry["level"], tt.want)
		}
	}
}

// TestStatusRecorder_ImplicitOK はWriteHeaderなしの書き込みで200を記録することを検証する。
func TestStatusRecorder_ImplicitOK(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	rec.Write([]byte("ok"))
	rec.WriteHeader(http.StatusTeapot)

	if rec.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200", rec.statusCode)
	}
	if newStatusRecorder(rec) != rec {
		t.Error("wrapping a recorder twice should reuse it")
	}
}
