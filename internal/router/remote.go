// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/logging"
	"droidsql/cli/internal/sqlclass"
	"droidsql/cli/internal/sqlexec"
)

// escapeShell prepares a query for double-quoted interpolation into a
// run-as shell command. Backslash first, then the characters the remote
// shell would otherwise interpret.
var escapeShell = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"$", `\$`,
	"`", "\\`",
).Replace

// runRemote executes the query directly on the device with run-as and the
// provisioned engine. Reads request JSON output and fall back to
// header-plus-delimiter parsing when the engine's JSON mode is unavailable;
// writes just execute.
func (r *Router) runRemote(ctx context.Context, query string) (sqlexec.Result, error) {
	dbPath, err := r.prober.DatabasePath(ctx)
	if err != nil {
		return sqlexec.Result{}, err
	}
	engine := r.prober.EnginePath()
	isWrite := sqlclass.IsWrite(query)

	mode := " -json"
	if isWrite {
		mode = ""
	}
	cmd := fmt.Sprintf(`%s %s%s "%s"`, engine, dbPath, mode, escapeShell(query))
	res, err := r.br.Shell(ctx, r.tgt.Serial, r.tgt.RunAs(cmd), bridge.QueryTimeout)
	if err != nil {
		return sqlexec.Result{}, err
	}
	if res.Code != 0 {
		if !isWrite && strings.Contains(res.Combined(), "-json") {
			// Engine predates the -json flag.
			logging.Debugf("engine lacks -json support, retrying in header mode")
			return r.runRemoteDelimited(ctx, dbPath, engine, query)
		}
		return sqlexec.Result{}, r.classifyRemoteFailure(res)
	}

	if isWrite {
		// The engine prints nothing for a successful write; the affected
		// count is only known on the local path.
		return sqlexec.WriteSuccess(sqlexec.AffectedUnknown), nil
	}

	output := strings.TrimSpace(res.Stdout)
	if output == "" {
		return sqlexec.Result{Rows: []map[string]any{}}, nil
	}
	parsed, perr := parseJSONRows(output)
	if perr == nil {
		return parsed, nil
	}
	logging.Debugf("engine JSON output unparsable (%v), retrying in header mode", perr)
	return r.runRemoteDelimited(ctx, dbPath, engine, query)
}

// classifyRemoteFailure maps a non-zero engine exit onto the error
// taxonomy. "not debuggable" means privileged execution quietly went away;
// a recognizable engine error message is a data error that must not trigger
// fallback (local execution would fail identically); anything else is a
// transient failure the router falls back on.
func (r *Router) classifyRemoteFailure(res bridge.Result) error {
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(res.Stdout)
	}
	low := strings.ToLower(msg)
	if strings.Contains(low, "not debuggable") || strings.Contains(low, "unknown package") {
		return errors.New(errors.Unsupported, "run-as not supported for this package")
	}
	if idx := strings.LastIndex(msg, "Error:"); idx >= 0 {
		engineMsg := strings.TrimSpace(msg[idx+len("Error:"):])
		r.lastError = engineMsg
		return errors.New(errors.Data, engineMsg)
	}
	if msg == "" {
		msg = "remote query execution failed"
	}
	return errors.New(errors.Transient, msg)
}

// runRemoteDelimited is the read-path fallback for engines without -json:
// column headers plus pipe-separated values.
func (r *Router) runRemoteDelimited(ctx context.Context, dbPath, engine, query string) (sqlexec.Result, error) {
	cmd := fmt.Sprintf(`%s %s -header -separator "|" "%s"`, engine, dbPath, escapeShell(query))
	res, err := r.br.Shell(ctx, r.tgt.Serial, r.tgt.RunAs(cmd), bridge.QueryTimeout)
	if err != nil {
		return sqlexec.Result{}, err
	}
	if res.Code != 0 {
		return sqlexec.Result{}, r.classifyRemoteFailure(res)
	}
	return parseDelimited(res.Stdout), nil
}

// parseJSONRows decodes the engine's -json output (an array of flat
// objects) preserving column order from the first row.
func parseJSONRows(output string) (sqlexec.Result, error) {
	dec := json.NewDecoder(strings.NewReader(output))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return sqlexec.Result{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return sqlexec.Result{}, fmt.Errorf("expected array, got %v", tok)
	}

	out := sqlexec.Result{Rows: []map[string]any{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return sqlexec.Result{}, err
		}
		if d, ok := tok.(json.Delim); !ok || d != '{' {
			return sqlexec.Result{}, fmt.Errorf("expected object, got %v", tok)
		}
		row := map[string]any{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return sqlexec.Result{}, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return sqlexec.Result{}, fmt.Errorf("expected key, got %v", keyTok)
			}
			var val any
			if err := dec.Decode(&val); err != nil {
				return sqlexec.Result{}, err
			}
			row[key] = fromJSONValue(val)
			if len(out.Rows) == 0 {
				out.Columns = append(out.Columns, key)
			}
		}
		if _, err := dec.Token(); err != nil { // closing }
			return sqlexec.Result{}, err
		}
		out.Rows = append(out.Rows, row)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF { // closing ]
		return sqlexec.Result{}, err
	}
	return out, nil
}

// fromJSONValue maps json.Number to int64 when integral, float64 otherwise.
func fromJSONValue(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// parseDelimited parses header-mode output: first line column names, then
// pipe-separated rows. Lines with a mismatched field count are skipped.
func parseDelimited(output string) sqlexec.Result {
	out := sqlexec.Result{Rows: []map[string]any{}}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return out
	}
	for _, h := range strings.Split(lines[0], "|") {
		out.Columns = append(out.Columns, strings.TrimSpace(h))
	}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := strings.Split(line, "|")
		if len(values) != len(out.Columns) {
			continue
		}
		row := make(map[string]any, len(values))
		for i, v := range values {
			row[out.Columns[i]] = strings.TrimSpace(v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
