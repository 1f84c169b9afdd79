package taruvi

import "context"

// SecretsModule reads and updates application-scoped secrets.
type SecretsModule struct {
	client *Client
}

const secretsPath = "/api/secrets/"

// List returns the application's secrets. Values are omitted unless the
// caller is authorized to read them.
func (m *SecretsModule) List(ctx context.Context) ([]Secret, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   secretsPath,
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[Secret](recordsFromAny(resp["data"]))
}

// Get fetches one secret by name.
func (m *SecretsModule) Get(ctx context.Context, name string) (*Secret, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   secretsPath + name + "/",
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var s Secret
	if err := resp.Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Update sets a secret's value and returns the updated metadata.
func (m *SecretsModule) Update(ctx context.Context, name, value string) (*Secret, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "PATCH",
		path:   secretsPath + name + "/",
		body:   map[string]any{"value": value},
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var s Secret
	if err := resp.Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
