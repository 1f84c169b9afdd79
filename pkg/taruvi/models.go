package taruvi

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Record is a raw JSON object as returned by the backend. Module operations
// return Records so callers are never forced through a schema; Decode turns a
// Record into a caller-defined struct when one exists.
type Record map[string]any

// Decode maps the record onto out using json field tags. Unknown fields are
// ignored; type mismatches fail with an ErrResponse-kind error.
func (r Record) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return newError(ErrResponse, fmt.Sprintf("failed to build decoder: %v", err), 0, nil)
	}
	if err := dec.Decode(map[string]any(r)); err != nil {
		return newError(ErrResponse, fmt.Sprintf("failed to decode record: %v", err), 0, nil)
	}
	return nil
}

// recordsFromAny unwraps a JSON array of objects into []Record, dropping
// non-object elements.
func recordsFromAny(v any) []Record {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	records := make([]Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, Record(m))
		}
	}
	return records
}

// decodeRecords maps a list envelope element-wise onto a typed slice.
func decodeRecords[T any](records []Record) ([]T, error) {
	out := make([]T, len(records))
	for i, r := range records {
		if err := r.Decode(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Secret is a named configuration value scoped to the application. Values are
// write-only on the backend; reads return metadata plus the value only when
// the caller is authorized to see it.
type Secret struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Value       string    `json:"value,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Role is an application role assignable to users.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// User is a backend user profile.
type User struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	IsActive  bool     `json:"is_active,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// StorageObject describes one object in a storage bucket.
type StorageObject struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Bucket      string         `json:"bucket,omitempty"`
	Size        int64          `json:"size,omitempty"`
	ContentType string         `json:"content_type,omitempty"`
	Visibility  string         `json:"visibility,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
}

// Invocation is one recorded function execution.
type Invocation struct {
	ID         string         `json:"id"`
	FunctionID string         `json:"function_id,omitempty"`
	Status     string         `json:"status,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitempty"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}

// FunctionInfo is the deployed-function descriptor.
type FunctionInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Runtime     string `json:"runtime,omitempty"`
	IsActive    bool   `json:"is_active,omitempty"`
}

// SiteSettings is the tenant-wide settings metadata document.
type SiteSettings struct {
	SiteName string         `json:"site_name,omitempty"`
	Domain   string         `json:"domain,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}
