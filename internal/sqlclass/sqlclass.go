// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package sqlclass classifies SQL statements as reads or writes by keyword
// prefix. It is deliberately not a SQL parser: a fixed keyword set matched
// case-insensitively after trimming is the precision level the execution
// router needs to pick an output shape and decide whether a sync-back is
// required.
package sqlclass

import (
	"fmt"
	"strings"
)

// writeKeywords are statement prefixes that modify the database.
var writeKeywords = []string{"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "REPLACE"}

// readKeywords are statement prefixes that only read.
var readKeywords = []string{"SELECT", "PRAGMA"}

// IsWrite reports whether the statement modifies the database.
func IsWrite(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, kw := range writeKeywords {
		if strings.HasPrefix(q, kw) {
			return true
		}
	}
	return false
}

// IsRead reports whether the statement is a SELECT or PRAGMA.
func IsRead(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, kw := range readKeywords {
		if strings.HasPrefix(q, kw) {
			return true
		}
	}
	return false
}

// ApplyLimit appends a LIMIT clause to a SELECT that has none. Write queries
// and queries that already carry a limit are returned unchanged. A trailing
// semicolon is stripped before appending so the clause lands inside the
// statement.
func ApplyLimit(query string, limit int) string {
	if limit <= 0 {
		return query
	}
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return query
	}
	if strings.Contains(strings.ToUpper(trimmed), "LIMIT") {
		return query
	}
	return fmt.Sprintf("%s LIMIT %d;", strings.TrimRight(trimmed, ";"), limit)
}
