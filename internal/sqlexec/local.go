// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/sqlclass"
)

// openLocal opens a pulled database copy. Single connection: SQLite allows
// one writer, and the tool is single-threaded per invocation anyway.
func openLocal(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// ExecuteLocal runs a query against a local database file. Engine errors
// come back as data-kind errors with the engine's message verbatim; the
// router must not fall back on them since the remote engine would fail
// identically.
func ExecuteLocal(ctx context.Context, dbPath, query string) (Result, error) {
	db, err := openLocal(dbPath)
	if err != nil {
		return Result{}, errors.Wrap(errors.Fatal, "cannot open local database", err)
	}
	defer db.Close()

	if sqlclass.IsRead(query) {
		return queryLocal(ctx, db, query)
	}

	res, err := db.ExecContext(ctx, query)
	if err != nil {
		return Result{}, errors.New(errors.Data, err.Error())
	}
	affected, err := res.RowsAffected()
	if err != nil {
		affected = AffectedUnknown
	}
	return WriteSuccess(affected), nil
}

func queryLocal(ctx context.Context, db *sql.DB, query string) (Result, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return Result{}, errors.New(errors.Data, err.Error())
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, errors.New(errors.Data, err.Error())
	}

	out := Result{Columns: cols, Rows: []map[string]any{}}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, errors.New(errors.Data, err.Error())
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalize(values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, errors.New(errors.Data, err.Error())
	}
	return out, nil
}

// normalize maps driver values to plain forms: byte slices become strings,
// everything else passes through.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
