package taruvi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType tags the credential kind used to authenticate a client. The kind
// decides only how the auth header is derived; there is no behavioral
// dispatch beyond that.
type TokenType string

const (
	TokenTypeJWT     TokenType = "jwt"
	TokenTypeAPIKey  TokenType = "api_key"
	TokenTypeSession TokenType = "session_token"
)

// AuthHeader is the single resolved credential-carrying header attached to a
// client. It is derived once from a credential and immutable afterwards; an
// unauthenticated client carries the zero value.
type AuthHeader struct {
	name          string
	value         string
	tokenType     TokenType
	authenticated bool
}

// IsAuthenticated reports whether the header carries a credential.
func (h AuthHeader) IsAuthenticated() bool { return h.authenticated }

// TokenType returns the credential kind the header was derived from, or ""
// for an unauthenticated header.
func (h AuthHeader) TokenType() TokenType { return h.tokenType }

// Name returns the resolved header name, e.g. "Authorization".
func (h AuthHeader) Name() string { return h.name }

// Value returns the resolved header value, e.g. "Bearer <jwt>".
func (h AuthHeader) Value() string { return h.value }

// authHeaderForToken derives the wire header for a credential.
func authHeaderForToken(tokenType TokenType, token string) (AuthHeader, error) {
	if token == "" {
		return AuthHeader{}, newError(ErrConfiguration, "token must not be empty", 0, nil)
	}
	switch tokenType {
	case TokenTypeJWT:
		return AuthHeader{name: "Authorization", value: "Bearer " + token, tokenType: tokenType, authenticated: true}, nil
	case TokenTypeAPIKey:
		return AuthHeader{name: "Authorization", value: "Api-Key " + token, tokenType: tokenType, authenticated: true}, nil
	case TokenTypeSession:
		return AuthHeader{name: "X-Session-Token", value: token, tokenType: tokenType, authenticated: true}, nil
	default:
		return AuthHeader{}, newError(ErrConfiguration,
			fmt.Sprintf("invalid token type %q: must be one of jwt, api_key, session_token", tokenType), 0, nil)
	}
}

// AuthManager drives the authentication state machine. Every transition
// returns a new Client value; the client it was called on is never mutated,
// so concurrent identities cannot leak credentials into each other.
type AuthManager struct {
	client *Client
}

// SignInWithToken returns a new authenticated client derived from an existing
// token. No network call is made; an empty token or unknown token type fails
// synchronously with an ErrConfiguration-kind error.
//
// Re-authenticating an already-authenticated client is legal user-switching
// and simply produces another new client.
func (m *AuthManager) SignInWithToken(token string, tokenType TokenType) (*Client, error) {
	header, err := authHeaderForToken(tokenType, token)
	if err != nil {
		return nil, err
	}
	if tokenType == TokenTypeJWT {
		m.inspectJWT(token)
	}
	return m.client.withAuth(header), nil
}

// SignInWithPassword performs a login call to obtain a bearer token and
// returns a new authenticated client. Invalid credentials surface as
// ErrAuthentication; the pipeline never retries a 401.
func (m *AuthManager) SignInWithPassword(ctx context.Context, username, password string) (*Client, error) {
	body := map[string]any{"username": username, "password": password}
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "POST",
		path:   "/api/cloud/auth/jwt/token/",
		body:   body,
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, credentialError(err)
	}
	access, _ := resp["access"].(string)
	if access == "" {
		return nil, newError(ErrAuthentication, "no access token in login response", 0, nil)
	}
	return m.SignInWithToken(access, TokenTypeJWT)
}

// RefreshToken exchanges a refresh token for a new access token and returns a
// new client carrying it.
func (m *AuthManager) RefreshToken(ctx context.Context, refreshToken string) (*Client, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "POST",
		path:   "/api/cloud/auth/jwt/token/refresh/",
		body:   map[string]any{"refresh": refreshToken},
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, credentialError(err)
	}
	access, _ := resp["access"].(string)
	if access == "" {
		return nil, newError(ErrAuthentication, "no access token in refresh response", 0, nil)
	}
	return m.SignInWithToken(access, TokenTypeJWT)
}

// SignOut returns a new unauthenticated client. The client SignOut was called
// on remains valid and usable; there is no shared revocation.
func (m *AuthManager) SignOut() *Client {
	return m.client.withAuth(AuthHeader{})
}

// Verify asks the backend whether a JWT is still valid.
func (m *AuthManager) Verify(ctx context.Context, token string) (Record, error) {
	return m.client.pipeline.Do(ctx, request{
		method: "POST",
		path:   "/api/cloud/auth/jwt/token/verify/",
		body:   map[string]any{"token": token},
		auth:   m.client.authHeader,
	})
}

// CurrentUser fetches the authenticated user's profile.
func (m *AuthManager) CurrentUser(ctx context.Context) (Record, error) {
	return m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   "/api/cloud/users/me/",
		auth:   m.client.authHeader,
	})
}

// credentialError reclassifies a login or refresh failure. Those requests
// usually carry no auth header, so the pipeline maps their 401 to
// ErrNotAuthenticated; here a 401 means the submitted credentials were
// rejected, which is ErrAuthentication.
func credentialError(err error) error {
	if !errors.Is(err, ErrNotAuthenticated) {
		return err
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return newError(ErrAuthentication, "invalid credentials", apiErr.StatusCode, apiErr.Details)
	}
	return newError(ErrAuthentication, "invalid credentials", 0, nil)
}

// inspectJWT parses the token without verification to surface an early
// warning for expired tokens. Signature verification belongs to the backend;
// a token that fails to parse is passed through untouched.
func (m *AuthManager) inspectJWT(token string) {
	log := m.client.log
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		log.Debug("could not parse jwt claims", "error", err)
		return
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return
	}
	if exp.Before(time.Now()) {
		log.Warn("signing in with an expired jwt", "expired_at", exp.Time)
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		log.Debug("signed in", "subject", sub)
	}
}
