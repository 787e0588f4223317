package session

import (
	"context"
	"encoding/json"
	"net/http"
)

// Query is a minimal builder over the tabular REST backend
// (/rest/v1/{table}). Each operation goes through the store's request
// helper, so the bearer token and API key ride along automatically.
type Query struct {
	store *Store
	table string
}

// From returns a query capability for the named table.
func (s *Store) From(table string) *Query {
	return &Query{store: s, table: table}
}

// Select fetches rows. An empty columns string selects everything.
func (q *Query) Select(ctx context.Context, columns string) (json.RawMessage, error) {
	if columns == "" {
		columns = "*"
	}
	body, _, err := q.store.do(ctx, http.MethodGet, "/rest/v1/"+q.table+"?select="+columns, nil, nil)
	return body, err
}

// Insert adds a row and asks the backend to return the inserted
// representation.
func (q *Query) Insert(ctx context.Context, row any) (json.RawMessage, error) {
	body, _, err := q.store.do(ctx, http.MethodPost, "/rest/v1/"+q.table,
		map[string]string{"Prefer": "return=representation"}, row)
	return body, err
}

// Update patches rows matching the given column=value conditions.
func (q *Query) Update(ctx context.Context, row any, match map[string]string) (json.RawMessage, error) {
	body, _, err := q.store.do(ctx, http.MethodPatch, "/rest/v1/"+q.table+"?"+encodeMatch(match),
		map[string]string{"Prefer": "return=representation"}, row)
	return body, err
}

// Delete removes rows matching the given column=value conditions.
func (q *Query) Delete(ctx context.Context, match map[string]string) (json.RawMessage, error) {
	body, _, err := q.store.do(ctx, http.MethodDelete, "/rest/v1/"+q.table+"?"+encodeMatch(match), nil, nil)
	return body, err
}
