package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingHandler records the last log record for assertions.
type capturingHandler struct {
	record slog.Record
}

func (h *capturingHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	h.record = r.Clone()
	return nil
}

func (h *capturingHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *capturingHandler) WithGroup(_ string) slog.Handler { return h }

func (h *capturingHandler) attrs() map[string]slog.Value {
	attrs := make(map[string]slog.Value)
	h.record.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value
		return true
	})
	return attrs
}

func TestLoggingMiddleware(t *testing.T) {
	var cap capturingHandler
	logger := slog.New(&cap)

	tests := []struct {
		name          string
		handlerStatus int
		path          string
		method        string
		wantLevel     slog.Level
	}{
		{"ok status", http.StatusOK, "/slots", http.MethodGet, slog.LevelInfo},
		{"created", http.StatusCreated, "/reservations", http.MethodPost, slog.LevelInfo},
		{"conflict", http.StatusConflict, "/reservations/r1/accept", http.MethodPost, slog.LevelInfo},
		{"server error", http.StatusInternalServerError, "/lecturer/slots", http.MethodPost, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.handlerStatus)
				_, _ = w.Write([]byte("{}"))
			})
			handler := LoggingMiddleware(logger, next)
			req := httptest.NewRequest(tt.method, "http://test"+tt.path, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, "request", cap.record.Message)
			attrs := cap.attrs()
			require.Equal(t, tt.wantLevel, cap.record.Level)
			require.Equal(t, int64(2), attrs["bytes"].Int64())
			require.Equal(t, tt.method, attrs["method"].String())
			require.Equal(t, tt.path, attrs["path"].String())
			require.Equal(t, int64(tt.handlerStatus), attrs["status"].Int64())
			require.GreaterOrEqual(t, attrs["duration_ms"].Int64(), int64(0))
			require.NotEmpty(t, attrs["request_id"].String())
			require.Equal(t, attrs["request_id"].String(), rr.Header().Get(RequestIDHeader))
			require.Equal(t, tt.handlerStatus, rr.Code)
		})
	}
}

func TestLoggingMiddleware_ImplicitOK(t *testing.T) {
	var cap capturingHandler
	handler := LoggingMiddleware(slog.New(&cap), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slots", nil))

	attrs := cap.attrs()
	assert.Equal(t, int64(http.StatusOK), attrs["status"].Int64())
	assert.Equal(t, int64(5), attrs["bytes"].Int64())
}

func TestLoggingMiddleware_PropagatesRequestID(t *testing.T) {
	var cap capturingHandler
	var seen string
	handler := LoggingMiddleware(slog.New(&cap), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/slots", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", cap.attrs()["request_id"].String())
}
