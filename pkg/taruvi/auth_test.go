package taruvi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHeaderForToken(t *testing.T) {
	cases := []struct {
		name      string
		tokenType TokenType
		token     string
		wantName  string
		wantValue string
	}{
		{"jwt", TokenTypeJWT, "tok", "Authorization", "Bearer tok"},
		{"api key", TokenTypeAPIKey, "key", "Authorization", "Api-Key key"},
		{"session", TokenTypeSession, "sess", "X-Session-Token", "sess"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := authHeaderForToken(tc.tokenType, tc.token)
			require.NoError(t, err)
			assert.True(t, h.IsAuthenticated())
			assert.Equal(t, tc.wantName, h.Name())
			assert.Equal(t, tc.wantValue, h.Value())
			assert.Equal(t, tc.tokenType, h.TokenType())
		})
	}
}

func TestAuthHeaderRejectsBadInput(t *testing.T) {
	_, err := authHeaderForToken(TokenTypeJWT, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = authHeaderForToken(TokenType("oauth"), "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestSignInWithTokenImmutability(t *testing.T) {
	client := newTestClient(t, jsonHandler(200, `{}`), func(c *Config) { c.APIKey = "" })
	require.False(t, client.IsAuthenticated())

	authed, err := client.Auth().SignInWithToken("tok", TokenTypeJWT)
	require.NoError(t, err)

	assert.True(t, authed.IsAuthenticated())
	assert.False(t, client.IsAuthenticated(), "original client must be untouched")
	assert.Same(t, client.pipeline, authed.pipeline)
}

func TestSignOutKeepsOriginalValid(t *testing.T) {
	client := newTestClient(t, jsonHandler(200, `{}`), nil)
	require.True(t, client.IsAuthenticated())

	anon := client.Auth().SignOut()

	assert.False(t, anon.IsAuthenticated())
	assert.True(t, client.IsAuthenticated())
}

func TestThreeWayAuthIndependence(t *testing.T) {
	client := newTestClient(t, jsonHandler(200, `{}`), func(c *Config) { c.APIKey = "" })

	alice, err := client.Auth().SignInWithToken("alice-tok", TokenTypeJWT)
	require.NoError(t, err)
	bob, err := alice.Auth().SignInWithToken("bob-tok", TokenTypeAPIKey)
	require.NoError(t, err)
	anon := bob.Auth().SignOut()

	assert.Equal(t, "Bearer alice-tok", alice.authHeader.Value())
	assert.Equal(t, "Api-Key bob-tok", bob.authHeader.Value())
	assert.False(t, anon.IsAuthenticated())
	assert.False(t, client.IsAuthenticated())
}

func TestSignInWithPassword(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/api/cloud/auth/jwt/token/", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["username"] == "ada" && creds["password"] == "secret" {
			w.Write([]byte(`{"access": "fresh-jwt", "refresh": "refresh-tok"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}), func(c *Config) { c.APIKey = "" })

	t.Run("valid credentials", func(t *testing.T) {
		authed, err := client.Auth().SignInWithPassword(context.Background(), "ada", "secret")
		require.NoError(t, err)
		assert.Equal(t, "Bearer fresh-jwt", authed.authHeader.Value())
	})

	t.Run("invalid credentials fail without retry", func(t *testing.T) {
		_, err := client.Auth().SignInWithPassword(context.Background(), "ada", "wrong")
		require.Error(t, err)
		// The login request itself carries no credentials, but a 401 here
		// means the submitted ones were rejected.
		assert.True(t, errors.Is(err, ErrAuthentication))
		assert.False(t, errors.Is(err, ErrNotAuthenticated))

		var apiErr *Error
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 401, apiErr.StatusCode)
	})

	t.Run("missing access token", func(t *testing.T) {
		broken := newTestClient(t, jsonHandler(200, `{"detail": "ok"}`), func(c *Config) { c.APIKey = "" })
		_, err := broken.Auth().SignInWithPassword(context.Background(), "ada", "secret")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrAuthentication))
	})
}

func TestRefreshToken(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/cloud/auth/jwt/token/refresh/", r.URL.Path)
		w.Write([]byte(`{"access": "renewed-jwt"}`))
	}), nil)

	renewed, err := client.Auth().RefreshToken(context.Background(), "refresh-tok")
	require.NoError(t, err)
	assert.Equal(t, "Bearer renewed-jwt", renewed.authHeader.Value())
}

func TestRefreshTokenRejected(t *testing.T) {
	client := newTestClient(t, jsonHandler(401, `{"message": "token is expired"}`),
		func(c *Config) { c.APIKey = "" })

	_, err := client.Auth().RefreshToken(context.Background(), "stale-tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthentication))
}
