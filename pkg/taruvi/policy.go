package taruvi

import (
	"context"
	"fmt"
)

// PolicyModule asks the backend's policy engine for authorization decisions.
type PolicyModule struct {
	client *Client
}

// ResourceCheck is one resource/actions pair in a policy query.
type ResourceCheck struct {
	Kind    string         `json:"kind"`
	ID      string         `json:"id"`
	Actions []string       `json:"actions"`
	Attr    map[string]any `json:"attr,omitempty"`
}

// CheckResourcesInput is a batched policy query for one principal.
type CheckResourcesInput struct {
	// Principal identifies who is acting; empty means the authenticated
	// caller.
	Principal string `json:"principal,omitempty"`

	// Resources lists the resource/action pairs to decide.
	Resources []ResourceCheck `json:"resources"`

	// AuxData is passed through to policy conditions unchanged.
	AuxData map[string]any `json:"aux_data,omitempty"`
}

// CheckResources evaluates every resource/action pair in input and returns
// the raw decision document.
func (m *PolicyModule) CheckResources(ctx context.Context, input CheckResourcesInput) (Record, error) {
	if len(input.Resources) == 0 {
		return nil, newError(ErrValidation, "policy check requires at least one resource", 0, nil)
	}
	return m.client.pipeline.Do(ctx, request{
		method: "POST",
		path:   fmt.Sprintf("/api/apps/%s/check/resources/", m.client.config.AppSlug),
		body:   input,
		auth:   m.client.authHeader,
	})
}
