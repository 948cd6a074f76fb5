package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// QueryBuilder builds and executes PostgREST queries.
type QueryBuilder struct {
	client  *Client
	table   string
	method  string
	columns string
	params  url.Values
	orders  []string
	body    []byte
	headers map[string]string
	err     error
}

// From starts a query builder for a table.
func (c *Client) From(table string) *QueryBuilder {
	return &QueryBuilder{
		client:  c,
		table:   table,
		method:  http.MethodGet,
		columns: "*",
		params:  url.Values{},
		headers: make(map[string]string),
	}
}

// Select specifies columns to select, including embedded resources.
func (q *QueryBuilder) Select(columns string) *QueryBuilder {
	q.columns = compactColumns(columns)
	return q
}

// Insert inserts one record or a slice of records and returns them.
func (q *QueryBuilder) Insert(data any) *QueryBuilder {
	q.method = http.MethodPost
	q.setBody(data)
	q.prefer("return=representation")
	return q
}

// Upsert inserts or merges records on conflict.
func (q *QueryBuilder) Upsert(data any, onConflict string) *QueryBuilder {
	q.method = http.MethodPost
	q.setBody(data)
	q.prefer("return=representation,resolution=merge-duplicates")
	if onConflict != "" {
		q.params.Set("on_conflict", onConflict)
	}
	return q
}

// Update patches the rows matched by the filters.
func (q *QueryBuilder) Update(data any) *QueryBuilder {
	q.method = http.MethodPatch
	q.setBody(data)
	q.prefer("return=representation")
	return q
}

// Delete deletes the rows matched by the filters.
func (q *QueryBuilder) Delete() *QueryBuilder {
	q.method = http.MethodDelete
	q.prefer("return=representation")
	return q
}

// Eq adds an equality filter.
func (q *QueryBuilder) Eq(column string, value any) *QueryBuilder {
	return q.Filter(column, OpEq, value)
}

// Neq adds a not-equal filter.
func (q *QueryBuilder) Neq(column string, value any) *QueryBuilder {
	return q.Filter(column, OpNeq, value)
}

// Gt adds a greater-than filter.
func (q *QueryBuilder) Gt(column string, value any) *QueryBuilder {
	return q.Filter(column, OpGt, value)
}

// Gte adds a greater-than-or-equal filter.
func (q *QueryBuilder) Gte(column string, value any) *QueryBuilder {
	return q.Filter(column, OpGte, value)
}

// Lt adds a less-than filter.
func (q *QueryBuilder) Lt(column string, value any) *QueryBuilder {
	return q.Filter(column, OpLt, value)
}

// ILike adds a case-insensitive LIKE filter. Use * as the wildcard.
func (q *QueryBuilder) ILike(column, pattern string) *QueryBuilder {
	return q.Filter(column, OpILike, pattern)
}

// Is adds an IS filter (null, true, false).
func (q *QueryBuilder) Is(column string, value any) *QueryBuilder {
	return q.Filter(column, OpIs, value)
}

// Filter adds a filter with an arbitrary operator. Column may address an
// embedded resource, e.g. "me.user_id".
func (q *QueryBuilder) Filter(column string, op FilterOperator, value any) *QueryBuilder {
	q.params.Add(column, fmt.Sprintf("%s.%v", op, value))
	return q
}

// RawFilter adds a filter in realtime syntax, "column=op.value".
func (q *QueryBuilder) RawFilter(expr string) *QueryBuilder {
	column, cond, ok := strings.Cut(expr, "=")
	if !ok || column == "" || cond == "" {
		q.err = fmt.Errorf("invalid filter %q", expr)
		return q
	}
	q.params.Add(column, cond)
	return q
}

// Order adds an order clause. Ascending by default.
func (q *QueryBuilder) Order(column string, dir ...OrderDirection) *QueryBuilder {
	d := OrderAsc
	if len(dir) > 0 {
		d = dir[0]
	}
	q.orders = append(q.orders, column+"."+string(d))
	return q
}

// OrderForeign orders an embedded resource.
func (q *QueryBuilder) OrderForeign(resource, column string, dir OrderDirection) *QueryBuilder {
	q.params.Add(resource+".order", column+"."+string(dir))
	return q
}

// Limit sets the maximum number of rows.
func (q *QueryBuilder) Limit(n int) *QueryBuilder {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// LimitForeign limits the rows of an embedded resource.
func (q *QueryBuilder) LimitForeign(resource string, n int) *QueryBuilder {
	q.params.Set(resource+".limit", strconv.Itoa(n))
	return q
}

// Single expects exactly one row. Zero rows fail with PGRST116.
func (q *QueryBuilder) Single() *QueryBuilder {
	q.headers["Accept"] = "application/vnd.pgrst.object+json"
	return q
}

// Count asks the server to report the total row count ("exact", "planned",
// "estimated") in Content-Range.
func (q *QueryBuilder) Count(countType string) *QueryBuilder {
	q.prefer("count=" + countType)
	return q
}

// Head turns a select into a HEAD request; only headers come back.
func (q *QueryBuilder) Head() *QueryBuilder {
	q.method = http.MethodHead
	return q
}

// Execute runs the query.
func (q *QueryBuilder) Execute(ctx context.Context) (*Response, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.client.request(ctx, q.method, q.buildURL(), q.table, q.body, q.headers)
}

// ExecuteInto runs the query and unmarshals the body into dest.
func (q *QueryBuilder) ExecuteInto(ctx context.Context, dest any) error {
	resp, err := q.Execute(ctx)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (q *QueryBuilder) buildURL() string {
	params := url.Values{}
	for k, v := range q.params {
		params[k] = append([]string(nil), v...)
	}
	if (q.method == http.MethodGet || q.method == http.MethodHead) && q.columns != "" {
		params.Set("select", q.columns)
	} else if q.method != http.MethodGet && q.columns != "*" {
		// returned representation
		params.Set("select", q.columns)
	}
	if len(q.orders) > 0 {
		params.Set("order", strings.Join(q.orders, ","))
	}

	u := q.client.restURL + "/" + url.PathEscape(q.table)
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func (q *QueryBuilder) setBody(data any) {
	body, err := json.Marshal(data)
	if err != nil {
		q.err = fmt.Errorf("marshal body: %w", err)
		return
	}
	q.body = body
}

func (q *QueryBuilder) prefer(v string) {
	if existing := q.headers["Prefer"]; existing != "" {
		q.headers["Prefer"] = existing + "," + v
		return
	}
	q.headers["Prefer"] = v
}

// compactColumns strips whitespace from multi-line select strings.
func compactColumns(columns string) string {
	return strings.Join(strings.Fields(columns), "")
}
