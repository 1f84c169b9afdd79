package taruvi

import (
	"context"
	"fmt"
	"time"
)

// FunctionsModule executes deployed functions and inspects their invocations.
type FunctionsModule struct {
	client *Client
}

// ExecuteOptions tune a single function execution.
type ExecuteOptions struct {
	// Async asks the backend to queue the execution and return an
	// invocation handle instead of waiting for the result.
	Async bool

	// Timeout overrides the client's per-request deadline for this call.
	// Long-running synchronous functions need more than the default.
	Timeout time.Duration
}

func (m *FunctionsModule) functionsPath() string {
	return fmt.Sprintf("/api/apps/%s/functions/", m.client.config.AppSlug)
}

// Execute runs the named function with payload and returns its result. A 2xx
// response whose payload reports success=false is a function-level failure
// and surfaces as an ErrFunctionExecution-kind error carrying the function's
// own error output.
func (m *FunctionsModule) Execute(ctx context.Context, name string, payload Record, opts ExecuteOptions) (Record, error) {
	body := map[string]any{"payload": payload}
	if opts.Async {
		body["async"] = true
	}
	resp, err := m.client.pipeline.Do(ctx, request{
		method:  "POST",
		path:    m.functionsPath() + name + "/execute/",
		body:    body,
		timeout: opts.Timeout,
		auth:    m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}

	if success, ok := resp["success"].(bool); ok && !success {
		message, _ := resp["error"].(string)
		if message == "" {
			message = fmt.Sprintf("function %q reported failure", name)
		}
		details := map[string]any{"function": name}
		if d, ok := resp["details"].(map[string]any); ok {
			details["errors"] = d
		}
		return nil, newError(ErrFunctionExecution, message, 0, details)
	}
	return resp, nil
}

// List returns the application's deployed functions.
func (m *FunctionsModule) List(ctx context.Context) ([]FunctionInfo, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   m.functionsPath(),
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[FunctionInfo](recordsFromAny(resp["data"]))
}

// Get fetches one function descriptor by name or id.
func (m *FunctionsModule) Get(ctx context.Context, name string) (*FunctionInfo, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   m.functionsPath() + name + "/",
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var fn FunctionInfo
	if err := resp.Decode(&fn); err != nil {
		return nil, err
	}
	return &fn, nil
}

// Invocation fetches one recorded execution by id.
func (m *FunctionsModule) Invocation(ctx context.Context, id string) (*Invocation, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   fmt.Sprintf("/api/apps/%s/invocations/%s/", m.client.config.AppSlug, id),
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var inv Invocation
	if err := resp.Decode(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvocations returns the named function's recorded executions, newest
// first.
func (m *FunctionsModule) ListInvocations(ctx context.Context, name string) ([]Invocation, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   m.functionsPath() + name + "/invocations/",
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[Invocation](recordsFromAny(resp["data"]))
}
