package taruvi

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
)

// Mode selects how the request pipeline schedules a call. Both modes share the
// exact same retry, backoff and error-mapping policy; they differ only in how
// the call suspends while waiting.
type Mode string

const (
	// ModeBlocking runs every request inline on the calling goroutine,
	// including backoff sleeps.
	ModeBlocking Mode = "blocking"

	// ModeNonBlocking runs the request on a separate goroutine and
	// suspends the caller on a channel, so cancellation is observed even
	// mid-attempt.
	ModeNonBlocking Mode = "non-blocking"
)

// envPrefix is the fixed prefix for all recognized environment variables.
const envPrefix = "TARUVI_"

// Config holds client construction inputs. A Config is merged over
// environment values and defaults by NewClient and is immutable afterwards;
// derived clients (sign-in, sign-out, AsUser) share the same Config value.
//
// Precedence, lowest to highest: defaults, .env file, environment variables,
// managed-runtime context, explicit Config fields.
type Config struct {
	// APIURL is the backend base URL. Required.
	APIURL string

	// APIKey optionally seeds the client with a bearer credential, so the
	// first request is already authenticated.
	APIKey string

	// AppSlug scopes operations to an application. Required.
	AppSlug string

	// SiteSlug selects the tenant; when set, requests carry a
	// "Host: <site>.localhost" routing override.
	SiteSlug string

	// Mode selects blocking or non-blocking execution. Default blocking.
	Mode Mode

	// Timeout is the per-request deadline. Valid range 1s-300s, default 30s.
	Timeout time.Duration

	// MaxRetries caps retry attempts for retryable failures. Valid range
	// 0-10, default 3. Total attempts = MaxRetries+1.
	MaxRetries int

	// PoolSize bounds concurrent in-flight requests per client family.
	// Default 10.
	PoolSize int

	// Debug enables request/response logging at debug level.
	Debug bool

	// Logger receives structured log output. Defaults to a null logger.
	Logger hclog.Logger

	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		APIURL:     "http://localhost:8000",
		Mode:       ModeBlocking,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		PoolSize:   10,
	}
}

// Validate checks field ranges and required values. Violations come back as a
// single ErrConfiguration-kind error listing every failed rule.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.AppSlug, validation.Required),
		validation.Field(&c.Mode, validation.In(ModeBlocking, ModeNonBlocking)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second), validation.Max(300*time.Second)),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.PoolSize, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return newError(ErrConfiguration, fmt.Sprintf("invalid configuration: %v", err), 0, map[string]any{
			"fields": err.Error(),
		})
	}
	return nil
}

// applyEnv overlays environment variables (and an optional .env file) onto c.
// Values present in the environment overwrite whatever c already holds, so
// applied over DefaultConfig they beat the defaults; runtime-context and
// explicit constructor values are overlaid afterwards and win over both.
// TARUVI_MAX_RETRIES=0 is an explicit zero and disables retries.
func (c *Config) applyEnv() {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	setString(&c.APIURL, "API_URL")
	setString(&c.APIKey, "API_KEY")
	setString(&c.AppSlug, "APP_SLUG")
	setString(&c.SiteSlug, "SITE_SLUG")
	if v := os.Getenv(envPrefix + "MODE"); v != "" {
		c.Mode = Mode(v)
	}
	if v, ok := envInt("TIMEOUT"); ok {
		c.Timeout = time.Duration(v) * time.Second
	}
	if v, ok := envInt("MAX_RETRIES"); ok {
		c.MaxRetries = v
	}
	if os.Getenv(envPrefix+"DEBUG") == "true" {
		c.Debug = true
	}
}

// merge overlays every non-zero field of other onto c.
func (c *Config) merge(other Config) {
	if other.APIURL != "" {
		c.APIURL = other.APIURL
	}
	if other.APIKey != "" {
		c.APIKey = other.APIKey
	}
	if other.AppSlug != "" {
		c.AppSlug = other.AppSlug
	}
	if other.SiteSlug != "" {
		c.SiteSlug = other.SiteSlug
	}
	if other.Mode != "" {
		c.Mode = other.Mode
	}
	if other.Timeout != 0 {
		c.Timeout = other.Timeout
	}
	if other.MaxRetries != 0 {
		c.MaxRetries = other.MaxRetries
	}
	if other.PoolSize != 0 {
		c.PoolSize = other.PoolSize
	}
	if other.Debug {
		c.Debug = true
	}
	if other.Logger != nil {
		c.Logger = other.Logger
	}
	if other.HTTPClient != nil {
		c.HTTPClient = other.HTTPClient
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// newHTTPClient builds the shared transport with keep-alive pooling matched to
// PoolSize. Per-request deadlines are applied by the pipeline, not here, so a
// timeout override can extend past the client default.
func (c Config) newHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	transport := &http.Transport{
		MaxIdleConns:        c.PoolSize,
		MaxIdleConnsPerHost: c.PoolSize,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{Transport: transport}
}
