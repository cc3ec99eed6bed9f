package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")

	assert.Equal(t, "Invalid request format", err.Error())
	assert.Nil(t, err.Details)

	detailed := NewWithDetails(http.StatusNotFound, "NOT_FOUND", "ticket not found", "ticket")
	assert.Equal(t, "ticket", detailed.Details)
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(errors.New("unexpected EOF"))

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
	assert.Equal(t, "unexpected EOF", err.Details)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusTooManyRequests, TypeSecurityRejection, "Request Blocked", "Too many attempts", "/api/auth/login").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, TypeSecurityRejection, out["type"])
	assert.Equal(t, "Too many attempts", out["detail"])
	assert.Equal(t, "abc", out["trace_id"])
	assert.Equal(t, float64(http.StatusTooManyRequests), out["status"], "extensions must not override standard members")
}

func TestProblemDetails_OmitsEmptyMembers(t *testing.T) {
	data, err := json.Marshal(&ProblemDetails{Type: TypeInternal, Title: "x", Status: 500})
	require.NoError(t, err)

	assert.NotContains(t, string(data), "detail")
	assert.NotContains(t, string(data), "instance")
}
