package taruvi

import (
	"context"
	"fmt"
)

// AppModule reads application-level metadata.
type AppModule struct {
	client *Client
}

// Roles returns the application's defined roles.
func (m *AppModule) Roles(ctx context.Context) ([]Role, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   fmt.Sprintf("/api/app/%s/roles/", m.client.config.AppSlug),
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[Role](recordsFromAny(resp["data"]))
}
