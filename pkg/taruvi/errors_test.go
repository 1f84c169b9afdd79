package taruvi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFromStatus(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		authenticated bool
		want          error
	}{
		{"bad request", 400, true, ErrValidation},
		{"unauthorized with credentials", 401, true, ErrAuthentication},
		{"unauthorized without credentials", 401, false, ErrNotAuthenticated},
		{"forbidden", 403, true, ErrAuthorization},
		{"not found", 404, true, ErrNotFound},
		{"conflict", 409, true, ErrConflict},
		{"rate limited", 429, true, ErrRateLimit},
		{"server error", 500, true, ErrServer},
		{"service unavailable", 503, true, ErrServiceUnavailable},
		{"unmapped status", 418, true, ErrAPI},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := errorFromStatus(tc.status, "boom", nil, tc.authenticated)
			require.NotNil(t, err)
			assert.True(t, errors.Is(err, tc.want))
			assert.Equal(t, tc.status, err.StatusCode)
		})
	}
}

func TestErrorUnauthenticatedHint(t *testing.T) {
	err := errorFromStatus(401, "", nil, false)
	assert.Contains(t, err.Message, "SignInWithToken")
}

func TestErrorString(t *testing.T) {
	withStatus := newError(ErrNotFound, "row missing", 404, nil)
	assert.Equal(t, "[404] row missing", withStatus.Error())

	withoutStatus := newError(ErrTimeout, "request timed out after 30s", 0, nil)
	assert.Equal(t, "request timed out after 30s", withoutStatus.Error())
}

func TestErrorWrapping(t *testing.T) {
	err := newError(ErrConflict, "duplicate slug", 409, nil)
	wrapped := fmt.Errorf("creating app: %w", err)

	assert.True(t, errors.Is(wrapped, ErrConflict))

	var apiErr *Error
	require.True(t, errors.As(wrapped, &apiErr))
	assert.Equal(t, 409, apiErr.StatusCode)
}

func TestErrorToDict(t *testing.T) {
	err := newError(ErrServer, "boom", 500, map[string]any{"path": "/api/x"})
	d := err.ToDict()
	assert.Equal(t, "internal server error", d["error"])
	assert.Equal(t, "boom", d["message"])
	assert.Equal(t, 500, d["status_code"])
	assert.Equal(t, map[string]any{"path": "/api/x"}, d["details"])
}

func TestRetryableStatus(t *testing.T) {
	for _, status := range []int{429, 500, 503} {
		assert.True(t, retryableStatus(status), "status %d", status)
	}
	for _, status := range []int{400, 401, 403, 404, 409, 418, 502} {
		assert.False(t, retryableStatus(status), "status %d", status)
	}
}
