package taruvi

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Operator is a filter comparison operator. Filters always AND-combine in
// declaration order; there is no OR tree.
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startswith"
	OpEndsWith   Operator = "endswith"
	OpIn         Operator = "in"
	OpNin        Operator = "nin"
	OpBetween    Operator = "between"
	OpNull       Operator = "null"
)

var validOperators = map[Operator]bool{
	OpEq: true, OpNe: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpContains: true, OpStartsWith: true, OpEndsWith: true,
	OpIn: true, OpNin: true, OpBetween: true, OpNull: true,
}

type filterClause struct {
	field    string
	operator Operator
	encoded  string
}

type sortSpec struct {
	field      string
	descending bool
}

type paginationIdiom int

const (
	idiomNone paginationIdiom = iota
	idiomPage
	idiomOffset
)

// Query accumulates filter, sort, pagination and populate state for one
// datatable query. Chained calls perform no I/O; a terminal call (Get, First,
// Count) serializes the accumulated state into a single wire request. A Query
// is built and executed once, then discarded.
//
// Malformed input (unknown operator, bad value shape) is recorded at the
// chained call and surfaced as an ErrValidation-kind error by the terminal
// call, before any network I/O.
type Query struct {
	client  *Client
	table   string
	appSlug string

	clauses  []filterClause
	sort     *sortSpec
	idiom    paginationIdiom
	page     *int
	pageSize *int
	limit    *int
	offset   *int
	populate []string

	errs *multierror.Error
}

// Filter appends one AND-combined clause. The zero-I/O contract holds: the
// value is validated and encoded immediately, but nothing hits the wire.
func (q *Query) Filter(field string, operator Operator, value any) *Query {
	if !validOperators[operator] {
		q.errs = multierror.Append(q.errs, fmt.Errorf("unrecognized filter operator %q on field %q", operator, field))
		return q
	}
	encoded, err := encodeFilterValue(operator, value)
	if err != nil {
		q.errs = multierror.Append(q.errs, fmt.Errorf("field %q: %w", field, err))
		return q
	}
	q.clauses = append(q.clauses, filterClause{field: field, operator: operator, encoded: encoded})
	return q
}

// Sort sets the result ordering. A later Sort replaces the earlier one; only
// one ordering is retained.
func (q *Query) Sort(field, direction string) *Query {
	switch direction {
	case "asc":
		q.sort = &sortSpec{field: field}
	case "desc":
		q.sort = &sortSpec{field: field, descending: true}
	default:
		q.errs = multierror.Append(q.errs, fmt.Errorf("invalid sort direction %q: must be asc or desc", direction))
	}
	return q
}

// PageSize sets the page-numbered pagination idiom's page size.
func (q *Query) PageSize(n int) *Query {
	if n < 1 {
		q.errs = multierror.Append(q.errs, fmt.Errorf("page size must be positive, got %d", n))
		return q
	}
	q.usePageIdiom()
	q.pageSize = &n
	return q
}

// Page sets the 1-indexed page number.
func (q *Query) Page(n int) *Query {
	if n < 1 {
		q.errs = multierror.Append(q.errs, fmt.Errorf("page must be positive, got %d", n))
		return q
	}
	q.usePageIdiom()
	q.page = &n
	return q
}

// Limit sets the offset/limit pagination idiom's limit.
func (q *Query) Limit(n int) *Query {
	if n < 1 {
		q.errs = multierror.Append(q.errs, fmt.Errorf("limit must be positive, got %d", n))
		return q
	}
	q.useOffsetIdiom()
	q.limit = &n
	return q
}

// Offset sets the offset/limit pagination idiom's offset.
func (q *Query) Offset(n int) *Query {
	if n < 0 {
		q.errs = multierror.Append(q.errs, fmt.Errorf("offset must be non-negative, got %d", n))
		return q
	}
	q.useOffsetIdiom()
	q.offset = &n
	return q
}

// The two pagination idioms have no combined meaning, so the last-applied
// idiom wins wholesale and switching idioms discards the other one's state.
func (q *Query) usePageIdiom() {
	if q.idiom == idiomOffset {
		q.limit, q.offset = nil, nil
	}
	q.idiom = idiomPage
}

func (q *Query) useOffsetIdiom() {
	if q.idiom == idiomPage {
		q.page, q.pageSize = nil, nil
	}
	q.idiom = idiomOffset
}

// Populate adds relation names to expand. Repeated calls append; duplicates
// are dropped.
func (q *Query) Populate(names ...string) *Query {
	for _, name := range names {
		seen := false
		for _, existing := range q.populate {
			if existing == name {
				seen = true
				break
			}
		}
		if !seen {
			q.populate = append(q.populate, name)
		}
	}
	return q
}

// params serializes the accumulated state. Clause order follows call order;
// recorded builder errors fail here, before any I/O.
func (q *Query) params() ([]Param, error) {
	if err := q.errs.ErrorOrNil(); err != nil {
		return nil, newError(ErrValidation, err.Error(), 0, map[string]any{"table": q.table})
	}

	var ps []Param
	for _, c := range q.clauses {
		key := c.field
		if c.operator != OpEq {
			key = c.field + "__" + string(c.operator)
		}
		ps = append(ps, Param{Key: key, Value: c.encoded})
	}
	if q.sort != nil {
		field := q.sort.field
		if q.sort.descending {
			field = "-" + field
		}
		ps = append(ps, Param{Key: "ordering", Value: field})
	}
	switch q.idiom {
	case idiomPage:
		if q.pageSize != nil {
			ps = append(ps, Param{Key: "page_size", Value: strconv.Itoa(*q.pageSize)})
		}
		if q.page != nil {
			ps = append(ps, Param{Key: "page", Value: strconv.Itoa(*q.page)})
		}
	case idiomOffset:
		if q.limit != nil {
			ps = append(ps, Param{Key: "limit", Value: strconv.Itoa(*q.limit)})
		}
		if q.offset != nil {
			ps = append(ps, Param{Key: "offset", Value: strconv.Itoa(*q.offset)})
		}
	}
	if len(q.populate) > 0 {
		ps = append(ps, Param{Key: "populate", Value: strings.Join(q.populate, ",")})
	}
	return ps, nil
}

func (q *Query) dataPath() string {
	return fmt.Sprintf("/api/apps/%s/datatables/%s/data/", q.appSlug, q.table)
}

// Get executes the query and returns the matching records in server order.
func (q *Query) Get(ctx context.Context) ([]Record, error) {
	params, err := q.params()
	if err != nil {
		return nil, err
	}
	resp, err := q.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   q.dataPath(),
		query:  params,
		auth:   q.client.authHeader,
	})
	if err != nil {
		return nil, err
	}
	return recordsFromAny(resp["data"]), nil
}

// First returns the first matching record in server order, or nil when
// nothing matches. An empty result is not an error.
func (q *Query) First(ctx context.Context) (Record, error) {
	results, err := q.PageSize(1).Get(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// Count asks the backend for the number of matching records without fetching
// them.
func (q *Query) Count(ctx context.Context) (int, error) {
	params, err := q.params()
	if err != nil {
		return 0, err
	}
	params = append(params, Param{Key: "_count", Value: "true"})
	resp, err := q.client.pipeline.Do(ctx, request{
		method: "GET",
		path:   q.dataPath(),
		query:  params,
		auth:   q.client.authHeader,
	})
	if err != nil {
		return 0, err
	}
	total, _ := resp["total"].(float64)
	return int(total), nil
}

// encodeFilterValue turns a clause value into its wire form. List-valued
// operators (in, nin, between) comma-join their elements; null encodes a
// boolean; everything else is a scalar.
func encodeFilterValue(operator Operator, value any) (string, error) {
	switch operator {
	case OpIn, OpNin, OpBetween:
		elems, err := valueList(value)
		if err != nil {
			return "", fmt.Errorf("operator %q %w", operator, err)
		}
		if operator == OpBetween && len(elems) != 2 {
			return "", fmt.Errorf("operator \"between\" requires exactly 2 values, got %d", len(elems))
		}
		return strings.Join(elems, ","), nil
	case OpNull:
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("operator \"null\" requires a bool value, got %T", value)
		}
		return strconv.FormatBool(b), nil
	default:
		return scalarString(value)
	}
}

func valueList(value any) ([]string, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("requires a slice value, got %T", value)
	}
	if rv.Len() == 0 {
		return nil, fmt.Errorf("requires a non-empty slice value")
	}
	elems := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		s, err := scalarString(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		elems = append(elems, s)
	}
	return elems, nil
}

func scalarString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", fmt.Errorf("filter value must not be nil")
	default:
		return "", fmt.Errorf("unsupported filter value type %T", value)
	}
}
