package taruvi

import "context"

// SettingsModule reads tenant-wide settings.
type SettingsModule struct {
	client *Client
}

// Get fetches the tenant's settings metadata document.
func (m *SettingsModule) Get(ctx context.Context) (*SiteSettings, error) {
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   "/api/settings/metadata/",
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	var s SiteSettings
	if err := resp.Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
