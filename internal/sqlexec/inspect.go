// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"fmt"
	"strconv"
)

// QueryFunc runs one query and returns its normalized result. The router's
// Run satisfies it, so inspection works over whichever execution path the
// router picks.
type QueryFunc func(ctx context.Context, query string) (Result, error)

// Inspector answers schema questions about the target database.
type Inspector struct {
	run QueryFunc
}

// NewInspector wraps a query runner.
func NewInspector(run QueryFunc) *Inspector { return &Inspector{run: run} }

// Tables lists user table names in name order.
func (i *Inspector) Tables(ctx context.Context) ([]string, error) {
	res, err := i.run(ctx, "SELECT name FROM sqlite_master WHERE type='table' ORDER BY name;")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if name, ok := row["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// TableInfo returns the column metadata rows of PRAGMA table_info.
func (i *Inspector) TableInfo(ctx context.Context, table string) (Result, error) {
	return i.run(ctx, fmt.Sprintf("PRAGMA table_info(%s);", table))
}

// TableCount returns the row count of a table.
func (i *Inspector) TableCount(ctx context.Context, table string) (int64, error) {
	res, err := i.run(ctx, fmt.Sprintf("SELECT COUNT(*) as count FROM %s;", table))
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return toInt64(res.Rows[0]["count"]), nil
}

// toInt64 copes with the value shapes the two paths produce: int64 from the
// local driver, float64 from JSON, strings from the delimiter fallback.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
