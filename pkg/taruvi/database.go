package taruvi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// DatabaseModule exposes datatable operations: the fluent query builder plus
// direct CRUD on rows.
type DatabaseModule struct {
	client *Client
}

// Query starts a fluent query against table. The builder performs no I/O
// until a terminal call (Get, First, Count).
func (m *DatabaseModule) Query(table string) *Query {
	return &Query{
		client:  m.client,
		table:   table,
		appSlug: m.client.config.AppSlug,
	}
}

func (m *DatabaseModule) tablePath(table string) string {
	return fmt.Sprintf("/api/apps/%s/datatables/%s/data/", m.client.config.AppSlug, table)
}

func (m *DatabaseModule) rowPath(table, id string) string {
	return m.tablePath(table) + id + "/"
}

// Get fetches one row by id.
func (m *DatabaseModule) Get(ctx context.Context, table, id string) (Record, error) {
	return m.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   m.rowPath(table, id),
		auth:   m.client.authHeader,
	})
}

// Create inserts one row and returns it as stored.
func (m *DatabaseModule) Create(ctx context.Context, table string, row Record) (Record, error) {
	return m.client.pipeline.Do(ctx, request{
		method: "POST",
		path:   m.tablePath(table),
		body:   row,
		auth:   m.client.authHeader,
	})
}

// CreateBulk inserts multiple rows in one request and returns them as stored.
func (m *DatabaseModule) CreateBulk(ctx context.Context, table string, rows []Record) ([]Record, error) {
	if len(rows) == 0 {
		return nil, newError(ErrValidation, "bulk create requires at least one row", 0, nil)
	}
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "POST",
		path:   m.tablePath(table),
		body:   map[string]any{"data": rows},
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return recordsFromAny(resp["data"]), nil
}

// Update applies a partial update to one row and returns the updated row.
func (m *DatabaseModule) Update(ctx context.Context, table, id string, changes Record) (Record, error) {
	return m.client.pipeline.Do(ctx, request{
		method: "PATCH",
		path:   m.rowPath(table, id),
		body:   changes,
		auth:   m.client.authHeader,
	})
}

// UpdateBulk applies partial updates to multiple rows in one request. Each
// element must carry its row id.
func (m *DatabaseModule) UpdateBulk(ctx context.Context, table string, rows []Record) ([]Record, error) {
	if len(rows) == 0 {
		return nil, newError(ErrValidation, "bulk update requires at least one row", 0, nil)
	}
	for i, row := range rows {
		if _, ok := row["id"]; !ok {
			return nil, newError(ErrValidation,
				fmt.Sprintf("bulk update row %d is missing an id", i), 0, nil)
		}
	}
	resp, err := m.client.pipeline.Do(ctx, request{
		method: "PATCH",
		path:   m.tablePath(table),
		body:   map[string]any{"data": rows},
		auth:   m.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return recordsFromAny(resp["data"]), nil
}

// DeleteSelector picks the rows a Delete call removes. Exactly one of the
// three fields must be set.
type DeleteSelector struct {
	// ID deletes a single row.
	ID string

	// IDs deletes an explicit set of rows.
	IDs []string

	// Filter deletes every row whose fields match the given values. It is
	// sent to the backend as one JSON-encoded "filter" query parameter.
	Filter Record
}

func (s DeleteSelector) validate() error {
	set := 0
	if s.ID != "" {
		set++
	}
	if len(s.IDs) > 0 {
		set++
	}
	if s.Filter != nil {
		set++
	}
	if set != 1 {
		return newError(ErrValidation,
			"delete requires exactly one of ID, IDs or Filter", 0, nil)
	}
	return nil
}

// Delete removes rows chosen by sel and returns the number of rows removed.
func (m *DatabaseModule) Delete(ctx context.Context, table string, sel DeleteSelector) (int, error) {
	if err := sel.validate(); err != nil {
		return 0, err
	}

	req := request{method: "DELETE", auth: m.client.authHeader}
	switch {
	case sel.ID != "":
		req.path = m.rowPath(table, sel.ID)
	case len(sel.IDs) > 0:
		req.path = m.tablePath(table)
		req.query = []Param{{Key: "ids", Value: strings.Join(sel.IDs, ",")}}
	default:
		raw, err := json.Marshal(sel.Filter)
		if err != nil {
			return 0, newError(ErrValidation,
				fmt.Sprintf("failed to encode delete filter: %v", err), 0, nil)
		}
		req.path = m.tablePath(table)
		req.query = []Param{{Key: "filter", Value: string(raw)}}
	}

	resp, err := m.client.pipeline.Do(ctx, req)
	if err != nil {
		return 0, err
	}
	if resp == nil {
		// 204 on single-row delete.
		if sel.ID != "" {
			return 1, nil
		}
		return 0, nil
	}
	deleted, _ := resp["deleted_count"].(float64)
	return int(deleted), nil
}
