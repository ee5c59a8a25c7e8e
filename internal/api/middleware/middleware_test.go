package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalqa/assistant/internal/observability"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestAuth(t *testing.T) {
	h := Auth("secret-key")(okHandler)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic secret-key", want: http.StatusUnauthorized},
		{name: "empty key", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "valid", header: "Bearer secret-key", want: http.StatusOK},
		{name: "scheme is case insensitive", header: "bearer secret-key", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/faqs", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("empty configured key rejects everything", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/faqs", http.NoBody)
		req.Header.Set("Authorization", "Bearer x")

		rec := httptest.NewRecorder()
		Auth("")(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

type tooLargeCounter struct{ n int }

func (c *tooLargeCounter) RecordRequestBodyTooLarge(context.Context) { c.n++ }

func TestMaxBody(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "bad", http.StatusBadRequest)

			return
		}

		w.WriteHeader(http.StatusCreated)
	})

	t.Run("within limit", func(t *testing.T) {
		counter := &tooLargeCounter{}
		rec := httptest.NewRecorder()
		MaxBody(16, counter)(readAll).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Zero(t, counter.n)
	})

	t.Run("over limit", func(t *testing.T) {
		counter := &tooLargeCounter{}
		rec := httptest.NewRecorder()
		MaxBody(16, counter)(readAll).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		assert.Equal(t, 1, counter.n)
	})

	t.Run("disabled", func(t *testing.T) {
		rec := httptest.NewRecorder()
		MaxBody(0, nil)(readAll).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string

	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(observability.RequestIDKey).(string)
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(requestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(requestIDHeader, "abc-123")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
	})

	t.Run("oversized id replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set(requestIDHeader, strings.Repeat("a", 200))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Len(t, seen, 36)
	})
}

type recordedRequest struct {
	method, route, statusClass string
}

type fakeAPIMetrics struct {
	requests []recordedRequest
}

func (f *fakeAPIMetrics) RecordRequest(_ context.Context, method, route, statusClass string, _ time.Duration) {
	f.requests = append(f.requests, recordedRequest{method: method, route: route, statusClass: statusClass})
}

func (f *fakeAPIMetrics) RecordRequestBodyTooLarge(context.Context) {}

func TestMetrics(t *testing.T) {
	metrics := &fakeAPIMetrics{}

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/api/faqs/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/faqs/123", http.NoBody))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody))

	require.Len(t, metrics.requests, 2)
	assert.Equal(t, recordedRequest{method: http.MethodGet, route: "/api/faqs/{id}", statusClass: "4xx"}, metrics.requests[0])
	assert.Equal(t, "4xx", metrics.requests[1].statusClass)
}

func TestStatusToClass(t *testing.T) {
	assert.Equal(t, "2xx", statusToClass(204))
	assert.Equal(t, "3xx", statusToClass(302))
	assert.Equal(t, "4xx", statusToClass(413))
	assert.Equal(t, "5xx", statusToClass(503))
	assert.Equal(t, "unknown", statusToClass(0))
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	h := Logging(logger)(okHandler)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/ask", http.NoBody))
	assert.Contains(t, buf.String(), "path=/api/ask")
	assert.Contains(t, buf.String(), "status=200")

	buf.Reset()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))
	assert.Empty(t, buf.String())
}
