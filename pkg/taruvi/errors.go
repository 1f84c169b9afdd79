package taruvi

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the SDK failure taxonomy. Every failure returned by the
// SDK wraps exactly one of these, so callers can branch with errors.Is:
//
//	if errors.Is(err, taruvi.ErrNotFound) { ... }
var (
	// ErrConfiguration indicates invalid client construction inputs
	// (bad timeout range, empty base URL, unknown token type).
	ErrConfiguration = errors.New("invalid configuration")

	// ErrValidation indicates a rejected request (400), or a query built
	// with an unrecognized operator or malformed value.
	ErrValidation = errors.New("validation failed")

	// ErrAuthentication indicates invalid credentials (401).
	ErrAuthentication = errors.New("authentication failed")

	// ErrNotAuthenticated indicates a 401 on a request that carried no
	// credentials at all, as opposed to invalid ones.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrAuthorization indicates missing permission (403).
	ErrAuthorization = errors.New("permission denied")

	// ErrNotFound indicates a missing resource (404).
	ErrNotFound = errors.New("resource not found")

	// ErrConflict indicates a resource conflict (409).
	ErrConflict = errors.New("resource conflict")

	// ErrRateLimit indicates the rate limit was exceeded (429).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrServer indicates an internal server error (500).
	ErrServer = errors.New("internal server error")

	// ErrServiceUnavailable indicates the service is down (503).
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAPI is the generic fallback for any other non-2xx status.
	ErrAPI = errors.New("api error")

	// ErrTimeout indicates the request exceeded its deadline or was
	// canceled; the transport never produced a status code.
	ErrTimeout = errors.New("request timed out")

	// ErrConnection indicates the transport itself failed (connect
	// refused, DNS failure, TLS failure).
	ErrConnection = errors.New("connection failed")

	// ErrFunctionExecution indicates a 2xx response whose payload encodes
	// an application-level function failure.
	ErrFunctionExecution = errors.New("function execution failed")

	// ErrResponse indicates the response body could not be parsed into the
	// expected shape.
	ErrResponse = errors.New("unparseable response")
)

// Error is the concrete failure value returned by all SDK operations. It wraps
// one of the sentinel errors above and carries the context needed to log the
// failure without reconstructing the request.
type Error struct {
	// Err is the taxonomy sentinel this error belongs to.
	Err error

	// Message is a human-readable description.
	Message string

	// StatusCode is the HTTP status that produced this error, or 0 when no
	// status was received (configuration, network and parse failures).
	StatusCode int

	// Details holds structured context (path, method, response snippet).
	Details map[string]any
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%d] %s", e.StatusCode, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ToDict returns a serializable representation suitable for structured
// logging.
func (e *Error) ToDict() map[string]any {
	d := map[string]any{
		"error":       e.Err.Error(),
		"message":     e.Message,
		"status_code": e.StatusCode,
		"details":     e.Details,
	}
	return d
}

func newError(kind error, message string, status int, details map[string]any) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Err: kind, Message: message, StatusCode: status, Details: details}
}

// errorFromStatus maps an HTTP status to its taxonomy variant. Unmapped
// statuses fall through to the generic ErrAPI carrying the raw status.
// authenticated reports whether the failing request carried credentials; it
// only matters for 401, which splits into invalid-credentials vs
// no-credentials-at-all.
func errorFromStatus(status int, message string, details map[string]any, authenticated bool) *Error {
	var kind error
	switch status {
	case http.StatusBadRequest:
		kind = ErrValidation
	case http.StatusUnauthorized:
		if authenticated {
			kind = ErrAuthentication
		} else {
			kind = ErrNotAuthenticated
			if message == "" {
				message = "authentication required for this resource; use Auth().SignInWithToken or Auth().SignInWithPassword"
			}
		}
	case http.StatusForbidden:
		kind = ErrAuthorization
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusConflict:
		kind = ErrConflict
	case http.StatusTooManyRequests:
		kind = ErrRateLimit
	case http.StatusInternalServerError:
		kind = ErrServer
	case http.StatusServiceUnavailable:
		kind = ErrServiceUnavailable
	default:
		kind = ErrAPI
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return newError(kind, message, status, details)
}

// retryableStatus reports whether a status is worth retrying. Authentication,
// validation, authorization and not-found failures are excluded: retrying them
// cannot change the outcome.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}
