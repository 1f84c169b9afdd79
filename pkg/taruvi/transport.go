package taruvi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"
)

// Param is one ordered query-string pair. The wire contract requires clauses
// to appear in call order, so requests carry an ordered slice rather than
// url.Values, whose Encode sorts keys.
type Param struct {
	Key   string
	Value string
}

func encodeParams(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// request is one logical API call handed to the pipeline.
type request struct {
	method  string
	path    string
	query   []Param
	body    any
	headers map[string]string
	timeout time.Duration // per-request override; 0 means client default
	auth    AuthHeader

	// bodyBytes carries a pre-encoded body (multipart uploads); it takes
	// precedence over body and replays cleanly across retries.
	bodyBytes   []byte
	contentType string

	// rawOut, when non-nil, receives the undecoded 2xx response body
	// (downloads); the Record result is nil.
	rawOut *[]byte
}

// AsyncCall is an in-flight non-blocking request. The caller suspends on
// Done or Wait; canceling the context passed to Go aborts the attempt and
// releases its pool slot.
type AsyncCall struct {
	done   chan struct{}
	result Record
	err    error
}

// Done is closed when the call completes, successfully or not.
func (c *AsyncCall) Done() <-chan struct{} { return c.done }

// Wait blocks until the call completes or ctx is canceled.
func (c *AsyncCall) Wait(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctxError(ctx, nil)
	case <-c.done:
		return c.result, c.err
	}
}

// pipeline owns retry, backoff, timeout and connection-slot policy. It is the
// only mutable state shared between a client and the clients derived from it,
// and it carries no authentication: every request brings its own AuthHeader.
type pipeline struct {
	baseURL    string
	siteSlug   string
	timeout    time.Duration
	maxRetries int
	mode       Mode
	httpClient *http.Client
	slots      *semaphore.Weighted
	log        hclog.Logger
	execCtx    *FunctionContext

	// sleep is the suspension primitive between retries; replaced in tests
	// to observe the backoff schedule without waiting it out.
	sleep func(ctx context.Context, d time.Duration) error
}

func newPipeline(cfg Config, log hclog.Logger) *pipeline {
	return &pipeline{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		siteSlug:   cfg.SiteSlug,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		mode:       cfg.Mode,
		httpClient: cfg.newHTTPClient(),
		slots:      semaphore.NewWeighted(int64(cfg.PoolSize)),
		log:        log.Named("pipeline"),
		execCtx:    CurrentFunctionContext(),
		sleep:      ctxSleep,
	}
}

// Do executes a request to completion. In non-blocking mode the work runs on
// its own goroutine and the caller suspends on a channel; the same retry,
// backoff and error-mapping policy applies either way.
func (p *pipeline) Do(ctx context.Context, req request) (Record, error) {
	if p.mode == ModeNonBlocking {
		return p.Go(ctx, req).Wait(ctx)
	}
	return p.execute(ctx, req)
}

// Go starts a request without blocking and returns a handle to await it.
func (p *pipeline) Go(ctx context.Context, req request) *AsyncCall {
	call := &AsyncCall{done: make(chan struct{})}
	go func() {
		defer close(call.done)
		call.result, call.err = p.execute(ctx, req)
	}()
	return call
}

// execute runs the attempt loop: acquire a pool slot, try the call, back off
// and retry on retryable failures, and surface the last classified error once
// attempts are exhausted.
func (p *pipeline) execute(ctx context.Context, req request) (Record, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, ctxError(ctx, err)
	}
	defer p.slots.Release(1)

	requestID := uuid.NewString()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.RandomizationFactor = 0
	bo.Multiplier = 2
	bo.MaxInterval = 1024 * time.Second // 2^10s, the largest reachable delay
	bo.MaxElapsedTime = 0
	bo.Reset()

	attempts := p.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := bo.NextBackOff()
			p.log.Debug("retrying request",
				"method", req.method, "path", req.path,
				"attempt", attempt+1, "of", attempts, "backoff", delay,
				"request_id", requestID)
			if err := p.sleep(ctx, delay); err != nil {
				// Caller canceled or timed out during backoff: abort
				// now rather than retry past the deadline.
				return nil, ctxError(ctx, err)
			}
		}

		result, retryable, err := p.attempt(ctx, req, requestID)
		if err == nil {
			return result, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// attempt performs one wire call and classifies its outcome. The bool return
// reports whether the failure is worth retrying.
func (p *pipeline) attempt(ctx context.Context, req request, requestID string) (Record, bool, error) {
	timeout := req.timeout
	if timeout == 0 {
		timeout = p.timeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := p.buildRequest(actx, req, requestID)
	if err != nil {
		return nil, false, err
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			// The caller's own context ended; never retry past it.
			return nil, false, ctxError(ctx, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, true, newError(ErrTimeout,
				fmt.Sprintf("request timed out after %s", timeout),
				0, requestDetails(req))
		}
		return nil, true, newError(ErrConnection,
			fmt.Sprintf("failed to connect to %s: %v", p.baseURL, err),
			0, requestDetails(req))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, newError(ErrConnection, "failed to read response body", 0, requestDetails(req))
	}

	if resp.StatusCode >= 400 {
		apiErr := p.errorResponse(resp.StatusCode, body, req)
		return nil, retryableStatus(resp.StatusCode), apiErr
	}

	if req.rawOut != nil {
		*req.rawOut = body
		return nil, false, nil
	}

	if len(body) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil, false, nil
	}

	var result Record
	if err := json.Unmarshal(body, &result); err != nil {
		details := requestDetails(req)
		details["status_code"] = resp.StatusCode
		details["content"] = snippet(body, 500)
		return nil, false, newError(ErrResponse, "failed to parse JSON response", 0, details)
	}
	return result, false, nil
}

// buildRequest assembles the wire request. Header precedence, lowest to
// highest: JSON defaults, tracing headers, caller headers, auth header. The
// auth header is applied last so callers can never override it.
func (p *pipeline) buildRequest(ctx context.Context, req request, requestID string) (*http.Request, error) {
	endpoint := p.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + encodeParams(req.query)
	}

	var bodyReader io.Reader
	contentType := "application/json"
	switch {
	case req.bodyBytes != nil:
		bodyReader = bytes.NewReader(req.bodyBytes)
		contentType = req.contentType
	case req.body != nil:
		raw, err := json.Marshal(req.body)
		if err != nil {
			return nil, newError(ErrValidation, fmt.Sprintf("failed to encode request body: %v", err), 0, requestDetails(req))
		}
		bodyReader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, bodyReader)
	if err != nil {
		return nil, newError(ErrValidation, fmt.Sprintf("failed to build request: %v", err), 0, requestDetails(req))
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if p.execCtx != nil {
		if p.execCtx.ExecutionID != "" {
			httpReq.Header.Set("X-Execution-ID", p.execCtx.ExecutionID)
		}
		if p.execCtx.FunctionID != "" {
			httpReq.Header.Set("X-Function-ID", p.execCtx.FunctionID)
		}
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}
	if req.auth.IsAuthenticated() {
		httpReq.Header.Set(req.auth.Name(), req.auth.Value())
	}
	if p.siteSlug != "" {
		// Tenant routing selects a backend schema via the Host header,
		// not a different host.
		httpReq.Host = p.siteSlug + ".localhost"
	}
	return httpReq, nil
}

// errorResponse maps a non-2xx response onto the taxonomy, pulling message
// and details out of the error payload when it parses.
func (p *pipeline) errorResponse(status int, body []byte, req request) *Error {
	message := ""
	details := requestDetails(req)

	var payload struct {
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
		Errors  map[string]any `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		message = payload.Message
		if payload.Details != nil {
			details["errors"] = payload.Details
		} else if payload.Errors != nil {
			details["errors"] = payload.Errors
		}
	}
	if message == "" && len(body) > 0 {
		message = snippet(body, 500)
	}

	apiErr := errorFromStatus(status, message, details, req.auth.IsAuthenticated())
	p.log.Debug("api error", "method", req.method, "path", req.path,
		"status", status, "error", apiErr.Message)
	return apiErr
}

func requestDetails(req request) map[string]any {
	return map[string]any{"method": req.method, "path": req.path}
}

func snippet(body []byte, n int) string {
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}

// ctxSleep waits for d or until ctx ends, whichever comes first.
func ctxSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ctxError classifies a context failure as a taxonomy value.
func ctxError(ctx context.Context, cause error) *Error {
	err := ctx.Err()
	if err == nil {
		err = cause
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrTimeout, "request deadline exceeded", 0, nil)
	}
	return newError(ErrTimeout, "request canceled", 0, nil)
}
