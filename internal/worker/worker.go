// Package worker drains the Redis persistence queues into PostgreSQL.
package worker

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the slice of pgxpool.Pool the workers write through.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
