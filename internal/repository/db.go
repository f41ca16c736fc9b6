package repository

import (
	"context"
	"database/sql"
)

type scanner interface {
	Scan(dest ...any) error
}

// Execer is satisfied by both *sql.DB and *sql.Tx so ledger writes and
// balance arithmetic can run standalone (bulk loops) or inside a
// caller-owned transaction.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
