package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkingapp/internal/config"
	apierrors "parkingapp/internal/errors"
	"parkingapp/internal/shared/testutil"
	"parkingapp/pkg/contracts/domain"
)

func newTestClient(t *testing.T, baseURL string, breaker config.BreakerConfig) *Client {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	c, err := New(config.BackendConfig{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
		Breaker: breaker,
	}, logger)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	for _, raw := range []string{"", "not a url", "/relative"} {
		_, err := New(config.BackendConfig{BaseURL: raw}, logger)
		require.Error(t, err, raw)
		assert.True(t, apierrors.IsType(err, apierrors.ErrTypeConfig))
	}
}

func TestClient_DoDecodesAndForwardsToken(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	c := newTestClient(t, fake.URL(), config.BreakerConfig{})

	ctx := WithToken(context.Background(), "session-token-1")
	var tickets []domain.Ticket
	err := c.Do(ctx, http.MethodGet, "/tickets?status=unpaid", nil, &tickets)
	require.NoError(t, err)

	require.Len(t, tickets, 1)
	assert.Equal(t, "tkt-1001", tickets[0].ID)
	assert.Equal(t, "Bearer session-token-1", fake.LastAuthorization())
	assert.Equal(t, []string{"GET /tickets"}, fake.Requests())
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType apierrors.ErrorType
		wantMsg  string
	}{
		{"unauthorized", http.StatusUnauthorized, apierrors.ErrTypeUnauthorized, "injected failure"},
		{"forbidden", http.StatusForbidden, apierrors.ErrTypeUnauthorized, "injected failure"},
		{"not found", http.StatusNotFound, apierrors.ErrTypeNotFound, "injected failure"},
		{"conflict", http.StatusConflict, apierrors.ErrTypeValidation, "injected failure"},
		{"throttled", http.StatusTooManyRequests, apierrors.ErrTypeSecurityRejection, "injected failure"},
		{"server error hides the body", http.StatusInternalServerError, apierrors.ErrTypeNetwork, apierrors.MsgNetworkError},
		{"bad gateway", http.StatusBadGateway, apierrors.ErrTypeNetwork, apierrors.MsgNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeBackend(t)
			fake.Fail(http.MethodGet, "/vehicles", tt.status)
			c := newTestClient(t, fake.URL(), config.BreakerConfig{})

			err := c.Do(context.Background(), http.MethodGet, "/vehicles", nil, nil)
			require.Error(t, err)

			var appErr *apierrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantType, appErr.Type)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestClient_FallbackMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("<html>denied</html>"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, config.BreakerConfig{})
	err := c.Do(context.Background(), http.MethodGet, "/users/me", nil, nil)

	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, MsgSessionExpired, appErr.Message)
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := newTestClient(t, url, config.BreakerConfig{})
	err := c.Do(context.Background(), http.MethodGet, "/tickets", nil, nil)

	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeNetwork))
	assert.Contains(t, err.Error(), apierrors.MsgNetworkError)
}

func TestClient_CancelledContext(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.SetDelay(time.Second)
	c := newTestClient(t, fake.URL(), config.BreakerConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Do(ctx, http.MethodGet, "/tickets", nil, nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeCancelled))
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, config.BreakerConfig{})
	var out domain.User
	err := c.Do(context.Background(), http.MethodGet, "/users/me", nil, &out)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeNetwork))
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.Fail(http.MethodGet, "/tickets", http.StatusServiceUnavailable)

	c := newTestClient(t, fake.URL(), config.BreakerConfig{
		Enabled:             true,
		MaxRequests:         1,
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	})
	assert.Equal(t, "closed", c.BreakerState())

	for i := 0; i < 2; i++ {
		err := c.Do(context.Background(), http.MethodGet, "/tickets", nil, nil)
		require.Error(t, err)
	}
	assert.Equal(t, "open", c.BreakerState())
	assert.Equal(t, 2, fake.RequestCount())

	err := c.Do(context.Background(), http.MethodGet, "/tickets", nil, nil)
	require.Error(t, err)
	assert.True(t, apierrors.IsType(err, apierrors.ErrTypeNetwork))
	assert.Equal(t, 2, fake.RequestCount(), "open breaker must not reach the backend")
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	fake.Fail(http.MethodGet, "/tickets", http.StatusNotFound)

	c := newTestClient(t, fake.URL(), config.BreakerConfig{
		Enabled:             true,
		Timeout:             time.Minute,
		ConsecutiveFailures: 1,
	})

	for i := 0; i < 3; i++ {
		_ = c.Do(context.Background(), http.MethodGet, "/tickets", nil, nil)
	}
	assert.Equal(t, "closed", c.BreakerState())
	assert.Equal(t, 3, fake.RequestCount())
}

func TestClient_Upload(t *testing.T) {
	fake := testutil.NewFakeBackend(t)
	c := newTestClient(t, fake.URL(), config.BreakerConfig{})

	var doc domain.Document
	err := c.Upload(context.Background(), "/users/me/documents", "file", "licence.pdf", []byte("%PDF-1.4 test"), &doc)
	require.NoError(t, err)

	assert.Equal(t, "licence.pdf", doc.FileName)
	assert.Contains(t, fake.Requests(), "POST /users/me/documents")
}

func TestClient_DisabledBreakerState(t *testing.T) {
	c := newTestClient(t, "http://backend.invalid", config.BreakerConfig{})
	assert.Equal(t, "disabled", c.BreakerState())
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/tickets":                   "/tickets",
		"/tickets/tkt-1001":          "/tickets/{id}",
		"/tickets/tkt-1001/disputes": "/tickets/{id}/disputes",
		"/tickets/search?q=ABC123":   "/tickets/search",
		"users/me":                   "/users/me",
	}
	for in, want := range tests {
		assert.Equal(t, want, routeLabel(in), in)
	}
}

func TestNew_NilLogger(t *testing.T) {
	fake := testutil.NewFakeBackend(t)

	var c *Client
	require.NotPanics(t, func() {
		var err error
		c, err = New(config.BackendConfig{BaseURL: fake.URL(), Timeout: 2 * time.Second}, nil)
		require.NoError(t, err)
	})

	var tickets []domain.Ticket
	require.NoError(t, c.Do(WithToken(context.Background(), "session-token-1"), http.MethodGet, "/tickets", nil, &tickets))
	assert.NotEmpty(t, tickets)
}
