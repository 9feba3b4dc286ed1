// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/bridge/bridgetest"
	"droidsql/cli/internal/sqlexec"
	"droidsql/cli/internal/target"
)

var testTarget = target.Target{Package: "com.example.app", Database: "app.db"}

// newServer wires a server against a scripted device whose database bytes
// come from a real SQLite file, pinned to the local execution path.
func newServer(t *testing.T) *Server {
	t.Helper()
	dbFile := fmt.Sprintf("%s/device.db", t.TempDir())
	ctx := context.Background()
	setup := []string{
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, status TEXT)",
		"INSERT INTO orders (id, status) VALUES (1, 'open')",
		"INSERT INTO orders (id, status) VALUES (2, 'shipped')",
		"INSERT INTO orders (id, status) VALUES (3, 'open')",
	}
	for _, q := range setup {
		if _, err := sqlexec.ExecuteLocal(ctx, dbFile, q); err != nil {
			t.Fatal(err)
		}
	}

	fake := &bridgetest.Fake{
		DevicesList: []bridge.Device{{Serial: "emulator-5554", State: "device"}},
	}
	fake.ShellFunc = func(serial, command string) (bridge.Result, error) {
		switch {
		case strings.Contains(command, "ls databases/app.db-"):
			return bridge.Result{Code: 1}, nil
		case strings.Contains(command, "ls databases/app.db"):
			return bridge.Result{Stdout: "databases/app.db\n"}, nil
		case strings.Contains(command, "ls files/"):
			return bridge.Result{Code: 1}, nil
		case strings.Contains(command, "stat -c %Y"):
			return bridge.Result{Stdout: "1000\n"}, nil
		}
		return bridge.Result{Code: 1}, nil
	}
	fake.ExecOutFunc = func(serial, command string) ([]byte, error) {
		if strings.Contains(command, "cat databases/app.db") {
			return os.ReadFile(dbFile)
		}
		return nil, fmt.Errorf("unexpected exec-out: %s", command)
	}

	return New(Deps{
		Bridge:       fake,
		Target:       testTarget,
		CacheRoot:    t.TempDir(),
		CacheOn:      true,
		ForceLocal:   true,
		DefaultLimit: 100,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return rec.Code, payload
}

func TestCheckConnection(t *testing.T) {
	h := newServer(t).Handler()
	code, payload := doJSON(t, h, http.MethodGet, "/api/check-connection", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if payload["success"] != true || payload["connected"] != true {
		t.Errorf("payload = %v", payload)
	}
	if payload["package"] != "com.example.app" {
		t.Errorf("package = %v", payload["package"])
	}
}

func TestTables(t *testing.T) {
	h := newServer(t).Handler()
	code, payload := doJSON(t, h, http.MethodGet, "/api/tables", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, payload = %v", code, payload)
	}
	tables, _ := payload["tables"].([]any)
	if len(tables) != 1 || tables[0] != "orders" {
		t.Errorf("tables = %v", tables)
	}
}

func TestTableData(t *testing.T) {
	h := newServer(t).Handler()
	code, payload := doJSON(t, h, http.MethodGet, "/api/table-data/orders?limit=2&offset=1", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, payload = %v", code, payload)
	}
	rows, _ := payload["rows"].([]any)
	if len(rows) != 2 {
		t.Errorf("rows = %v", rows)
	}
	if payload["total"] != float64(3) {
		t.Errorf("total = %v", payload["total"])
	}
}

func TestTableDataRejectsBadIdentifier(t *testing.T) {
	h := newServer(t).Handler()
	code, payload := doJSON(t, h, http.MethodGet, "/api/table-data/orders;drop", "")
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, payload = %v", code, payload)
	}
	if payload["success"] != false {
		t.Errorf("payload = %v", payload)
	}
}

func TestQueryRead(t *testing.T) {
	h := newServer(t).Handler()
	code, payload := doJSON(t, h, http.MethodPost, "/api/query",
		`{"sql":"SELECT COUNT(*) FROM orders WHERE status='open'"}`)
	if code != http.StatusOK {
		t.Fatalf("status = %d, payload = %v", code, payload)
	}
	rows, _ := payload["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("rows = %v", rows)
	}
	row, _ := rows[0].(map[string]any)
	if row["COUNT(*)"] != float64(2) {
		t.Errorf("count = %v", row)
	}
}

func TestQuerySyntaxErrorIs400(t *testing.T) {
	h := newServer(t).Handler()
	code, payload := doJSON(t, h, http.MethodPost, "/api/query", `{"sql":"SELECT * FORM orders"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, payload = %v", code, payload)
	}
	msg, _ := payload["error"].(string)
	if !strings.Contains(msg, "syntax") {
		t.Errorf("error = %q, want the engine message", msg)
	}
}

func TestQueryRequiresSQL(t *testing.T) {
	h := newServer(t).Handler()
	code, _ := doJSON(t, h, http.MethodPost, "/api/query", `{}`)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d", code)
	}
}

func TestConcurrentQueriesShareOneSession(t *testing.T) {
	// Handlers serve from one session; execution must be serialized so
	// concurrent requests cannot race on the pipeline and router state.
	h := newServer(t).Handler()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/query",
				strings.NewReader(`{"sql":"SELECT COUNT(*) FROM orders"}`))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d: %s", rec.Code, rec.Body.String())
				return
			}
			var payload map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Errorf("bad response: %v", err)
				return
			}
			rows, _ := payload["rows"].([]any)
			if len(rows) != 1 {
				t.Errorf("rows = %v", rows)
			}
		}()
	}
	wg.Wait()
}

func TestClearCacheResetsSession(t *testing.T) {
	srv := newServer(t)
	h := srv.Handler()

	if code, payload := doJSON(t, h, http.MethodGet, "/api/tables", ""); code != http.StatusOK {
		t.Fatalf("priming query failed: %d %v", code, payload)
	}
	if code, _ := doJSON(t, h, http.MethodPost, "/api/clear-cache", ""); code != http.StatusOK {
		t.Fatal("clear-cache failed")
	}
	// The next query must work from a fresh pull, not the discarded copy.
	if code, payload := doJSON(t, h, http.MethodGet, "/api/tables", ""); code != http.StatusOK {
		t.Fatalf("post-clear query failed: %d %v", code, payload)
	}
}

func TestRefreshPullsFreshCopy(t *testing.T) {
	h := newServer(t).Handler()
	code, payload := doJSON(t, h, http.MethodPost, "/api/refresh-database", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d, payload = %v", code, payload)
	}
	path, _ := payload["path"].(string)
	if path == "" {
		t.Fatal("refresh did not report the local path")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("pulled copy missing: %v", err)
	}
}
