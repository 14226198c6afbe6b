package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
)

// fakeDB records every statement and serves canned responses, standing in for
// the pgx pool in unit tests.  Integration coverage against a real PostgreSQL
// lives in test/integration.
type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	execErr  error

	querySQL  []string
	queryArgs [][]any

	// rowScan populates the destinations of the next QueryRow().Scan call.
	rowScan func(dest ...any) error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.querySQL = append(f.querySQL, sql)
	f.queryArgs = append(f.queryArgs, args)
	return nil, fmt.Errorf("fakeDB: Query not supported")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.querySQL = append(f.querySQL, sql)
	f.queryArgs = append(f.queryArgs, args)
	if f.rowScan == nil {
		return fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}
	}
	return fakeRow{scan: f.rowScan}
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func testLogger() Logger { return logging.NewNopLogger() }
