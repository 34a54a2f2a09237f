package repository

import (
	"context"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRow scans a fixed set of values or returns err.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if r.values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

// fakeDB records every statement and answers with the configured results.
type fakeDB struct {
	calls []call

	row      fakeRow
	tag      pgconn.CommandTag
	execErr  error
	queryErr error
}

func (db *fakeDB) record(sql string, args []any) {
	db.calls = append(db.calls, call{sql: sql, args: args})
}

func (db *fakeDB) last() call {
	return db.calls[len(db.calls)-1]
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.record(sql, args)
	return db.tag, db.execErr
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.record(sql, args)
	return nil, db.queryErr
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.record(sql, args)
	return db.row
}

func (db *fakeDB) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	return nil
}
