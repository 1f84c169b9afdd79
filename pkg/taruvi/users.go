package taruvi

import "context"

// UsersModule manages backend users and their role assignments.
type UsersModule struct {
	client *Client
}

const usersPath = "/api/users/"

// List returns all users visible to the caller.
func (m *UsersModule) List(ctx context.Context) ([]User, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   usersPath,
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecords[User](recordsFromAny(resp["data"]))
}

// Get fetches one user by id.
func (m *UsersModule) Get(ctx context.Context, id string) (*User, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   usersPath + id + "/",
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var u User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create registers a new user from the given fields.
func (m *UsersModule) Create(ctx context.Context, fields Record) (*User, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "POST",
		path:   usersPath,
		body:   fields,
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var u User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update applies a partial update to a user.
func (m *UsersModule) Update(ctx context.Context, id string, changes Record) (*User, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "PATCH",
		path:   usersPath + id + "/",
		body:   changes,
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var u User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes a user.
func (m *UsersModule) Delete(ctx context.Context, id string) error {
	_, err := m.client.pipeline.Do(ctx, request{
		method: "DELETE",
		path:   usersPath + id + "/",
		auth:   m.client.authHeader,
	})
	return err
}

// AssignRole grants the named role to a user.
func (m *UsersModule) AssignRole(ctx context.Context, id, role string) error {
	_, err := m.client.pipeline.Do(ctx, request{
		method: "POST",
		path:   usersPath + id + "/roles/",
		body:   map[string]any{"role": role},
		auth:   m.client.authHeader,
	})
	return err
}

// RevokeRole removes the named role from a user.
func (m *UsersModule) RevokeRole(ctx context.Context, id, role string) error {
	_, err := m.client.pipeline.Do(ctx, request{
		method: "DELETE",
		path:   usersPath + id + "/roles/" + role + "/",
		auth:   m.client.authHeader,
	})
	return err
}
