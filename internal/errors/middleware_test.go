package errors

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/shared/testutil"
)

func TestErrorMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name         string
		handler      http.HandlerFunc
		body         string
		wantStatus   int
		wantLogLevel slog.Level
	}{
		{
			name: "successful request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
			},
			body:         `{"email":"bad"}`,
			wantStatus:   http.StatusUnprocessableEntity,
			wantLogLevel: slog.LevelWarn,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantStatus:   http.StatusBadGateway,
			wantLogLevel: slog.LevelError,
		},
		{
			name: "panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("boom")
			},
			wantStatus:   http.StatusInternalServerError,
			wantLogLevel: slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

			r := httptest.NewRequest(http.MethodPost, "/api/tickets?q=ABC1234", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			mw.Handler(tt.handler).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			switch {
			case tt.wantStatus < http.StatusBadRequest:
				assert.False(t, logs.ContainsMessage("request failed details"))
			case tt.name != "panic":
				testutil.AssertLogContains(t, logs, tt.wantLogLevel, "request failed details")
			}
			assert.False(t, logs.ContainsText("ABC1234"), "query strings are never logged")
		})
	}
}

func TestErrorMiddleware_RedactsBody(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

	body := `{"email":"driver@example.com","password":"Str0ng!Pass","card_number":"4539578763621486"}`
	r := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	var seen string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		seen = buf.String()
		w.WriteHeader(http.StatusUnauthorized)
	})

	mw.Handler(handler).ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, body, seen, "downstream handler must still receive the full body")

	record, ok := logs.FindRecord("request failed details")
	require.True(t, ok)
	logged, _ := record.Attrs["request_body"].(string)
	assert.Contains(t, logged, "driver@example.com")
	assert.NotContains(t, logged, "Str0ng!Pass")
	assert.NotContains(t, logged, "4539578763621486")
	assert.False(t, logs.ContainsText("Str0ng!Pass"))
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	mw := RecoveryMiddleware(NewErrorHandler(logger, false))

	w := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil pointer")
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
