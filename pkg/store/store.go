// Package store provides row-level persistence for the stint state database.
// It carries no business rules: guards and invariants live in pkg/engine.
// A Store works against either a *sql.DB or an open *sql.Tx, so the dispatch
// layer can bind one to the per-request transaction.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store manages the stint tables over a Querier.
type Store struct {
	q Querier
}

// New creates a Store backed by q.
func New(q Querier) *Store {
	return &Store{q: q}
}

// listToJSON converts a string slice to a JSON array string.
func listToJSON(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// listFromJSON parses a JSON array string into a string slice.
func listFromJSON(s string) []string {
	if s == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil
	}
	return list
}
