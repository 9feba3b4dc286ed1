// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlexec defines the normalized result shape shared by both
// execution paths and implements the local half: running queries against a
// pulled database copy with the embedded SQLite engine, plus schema
// introspection helpers that work over either path.
package sqlexec

import (
	"encoding/json"
)

// AffectedUnknown marks a write whose affected-row count the execution site
// could not report (the on-device engine prints nothing for writes).
const AffectedUnknown int64 = -1

// Result is the normalized outcome of a query on either execution path.
// Read queries fill Columns and Rows; write queries return empty non-nil
// Rows to signal success, with the affected count as a side channel.
type Result struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
	// RowsAffected is the write-query side channel; AffectedUnknown when the
	// execution site cannot report it.
	RowsAffected int64 `json:"rows_affected,omitempty"`
	// Warning carries non-fatal caveats, e.g. a failed sync-back after a
	// local write. The query itself succeeded.
	Warning string `json:"warning,omitempty"`
}

// WriteSuccess returns the result shape for a completed write.
func WriteSuccess(affected int64) Result {
	return Result{Rows: []map[string]any{}, RowsAffected: affected}
}

// MarshalJSON renders rows with []byte values as strings so blob-ish columns
// stay readable in API responses.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	a := alias(r)
	if len(r.Rows) > 0 {
		rows := make([]map[string]any, len(r.Rows))
		for i, row := range r.Rows {
			out := make(map[string]any, len(row))
			for k, v := range row {
				if b, ok := v.([]byte); ok {
					out[k] = string(b)
				} else {
					out[k] = v
				}
			}
			rows[i] = out
		}
		a.Rows = rows
	}
	return json.Marshal(a)
}
