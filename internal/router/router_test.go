// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package router

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/bridge/bridgetest"
	"droidsql/cli/internal/cache"
	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/probe"
	"droidsql/cli/internal/provision"
	"droidsql/cli/internal/sqlexec"
	"droidsql/cli/internal/target"
	"droidsql/cli/internal/transfer"
)

var testTarget = target.Target{Package: "com.example.app", Database: "app.db"}

// device scripts a debuggable Android device with one database file whose
// bytes live in a real SQLite file on the test host, so fallback pulls
// execute against genuine content.
type device struct {
	t          *testing.T
	dbFile     string // host-side file standing in for the on-device database
	debuggable bool
	// remoteJSON maps a query substring to canned -json output.
	remoteJSON map[string]string
	// remoteErr, when set, fails every engine invocation with this stderr.
	remoteErr string
	denyCopy  bool
	noJSON    bool              // engine predates -json
	delimited map[string]string // header-mode output per query substring
}

func (d *device) bridge() *bridgetest.Fake {
	fake := &bridgetest.Fake{}
	fake.ShellFunc = func(serial, command string) (bridge.Result, error) {
		switch {
		case strings.Contains(command, "ls databases/app.db-wal"),
			strings.Contains(command, "ls databases/app.db-shm"):
			return bridge.Result{Code: 1}, nil
		case strings.Contains(command, "ls databases/app.db"):
			return bridge.Result{Stdout: "databases/app.db\n"}, nil
		case strings.Contains(command, "ls files/"):
			return bridge.Result{Code: 1}, nil
		case strings.Contains(command, "stat -c %Y"):
			return bridge.Result{Stdout: "1000\n"}, nil
		case strings.Contains(command, `echo "probe"`):
			if d.debuggable {
				return bridge.Result{Stdout: "probe\n"}, nil
			}
			return bridge.Result{Stderr: "run-as: package not debuggable: com.example.app", Code: 1}, nil
		case strings.Contains(command, "./sqlite3 -version"):
			return bridge.Result{Stdout: "SQLite 3.42.0"}, nil
		case command == "which gzip":
			return bridge.Result{Code: 1}, nil
		case strings.HasPrefix(command, "run-as com.example.app cp "):
			if d.denyCopy {
				return bridge.Result{Stderr: "cp: permission denied", Code: 1}, nil
			}
			// Simulate the copy landing on the device: adopt the staged file.
			return bridge.Result{}, nil
		case strings.HasPrefix(command, "rm "):
			return bridge.Result{}, nil
		case strings.Contains(command, "./sqlite3 databases/app.db"):
			return d.engine(command)
		}
		return bridge.Result{Code: 1}, nil
	}
	fake.ExecOutFunc = func(serial, command string) ([]byte, error) {
		if strings.Contains(command, "cat databases/app.db") {
			return os.ReadFile(d.dbFile)
		}
		return nil, fmt.Errorf("unexpected exec-out: %s", command)
	}
	return fake
}

// engine emulates the on-device sqlite3 invocation.
func (d *device) engine(command string) (bridge.Result, error) {
	if d.remoteErr != "" {
		return bridge.Result{Stderr: d.remoteErr, Code: 1}, nil
	}
	if strings.Contains(command, "-json") {
		if d.noJSON {
			return bridge.Result{Stderr: "Error: unknown option: -json", Code: 1}, nil
		}
		for sub, out := range d.remoteJSON {
			if strings.Contains(command, sub) {
				return bridge.Result{Stdout: out}, nil
			}
		}
		return bridge.Result{Stdout: ""}, nil
	}
	if strings.Contains(command, "-header") {
		for sub, out := range d.delimited {
			if strings.Contains(command, sub) {
				return bridge.Result{Stdout: out}, nil
			}
		}
		return bridge.Result{Stdout: ""}, nil
	}
	// Bare invocation: a write query. Succeeds silently.
	return bridge.Result{}, nil
}

// newDeviceDB builds the "on-device" database: an orders table with n rows.
func newDeviceDB(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device.db")
	ctx := context.Background()
	if _, err := sqlexec.ExecuteLocal(ctx, path, "CREATE TABLE orders (id INTEGER PRIMARY KEY, status TEXT)"); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= n; i++ {
		q := fmt.Sprintf("INSERT INTO orders (id, status) VALUES (%d, 'open')", i)
		if _, err := sqlexec.ExecuteLocal(ctx, path, q); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func newRouter(t *testing.T, fake *bridgetest.Fake, cacheRoot string, forceLocal bool) *Router {
	t.Helper()
	coord := cache.New(cacheRoot, testTarget, true, false)
	pipe := transfer.New(fake, testTarget, coord, false)
	prober := probe.New(fake, testTarget, provision.NewWithBundled(fake, testTarget, ""))
	return New(fake, testTarget, prober, coord, pipe, forceLocal)
}

func execOutCount(fake *bridgetest.Fake) int {
	n := 0
	for _, c := range fake.Calls {
		if c.Op == "exec-out" {
			n++
		}
	}
	return n
}

func TestRemoteReadParsesJSON(t *testing.T) {
	dev := &device{
		t: t, dbFile: newDeviceDB(t, 3), debuggable: true,
		remoteJSON: map[string]string{
			"SELECT id, status FROM orders": `[{"id":1,"status":"open"},{"id":2,"status":"open"}]`,
		},
	}
	fake := dev.bridge()
	r := newRouter(t, fake, t.TempDir(), false)

	res, err := r.Run(context.Background(), "SELECT id, status FROM orders", RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows", len(res.Rows))
	}
	if res.Rows[0]["id"] != int64(1) || res.Rows[0]["status"] != "open" {
		t.Errorf("row = %v", res.Rows[0])
	}
	if len(res.Columns) != 2 || res.Columns[0] != "id" || res.Columns[1] != "status" {
		t.Errorf("columns = %v", res.Columns)
	}
	if execOutCount(fake) != 0 {
		t.Error("remote path must not transfer the database")
	}
}

func TestCountScenarioBothPaths(t *testing.T) {
	// Remote file at fingerprint 1000 with 42 orders. The privileged path
	// and the forced-local path must agree.
	dbFile := newDeviceDB(t, 42)

	remoteDev := &device{
		t: t, dbFile: dbFile, debuggable: true,
		remoteJSON: map[string]string{"SELECT COUNT(*) FROM orders": `[{"COUNT(*)":42}]`},
	}
	remote := newRouter(t, remoteDev.bridge(), t.TempDir(), false)
	resRemote, err := remote.Run(context.Background(), "SELECT COUNT(*) FROM orders", RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	localDev := &device{t: t, dbFile: dbFile, debuggable: true}
	local := newRouter(t, localDev.bridge(), t.TempDir(), true)
	resLocal, err := local.Run(context.Background(), "SELECT COUNT(*) FROM orders", RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if resRemote.Rows[0]["COUNT(*)"] != int64(42) {
		t.Errorf("remote count = %v", resRemote.Rows[0])
	}
	if resLocal.Rows[0]["COUNT(*)"] != int64(42) {
		t.Errorf("local count = %v", resLocal.Rows[0])
	}
}

func TestUnsupportedDeviceFallsBack(t *testing.T) {
	dev := &device{t: t, dbFile: newDeviceDB(t, 5), debuggable: false}
	fake := dev.bridge()
	r := newRouter(t, fake, t.TempDir(), false)

	res, err := r.Run(context.Background(), "SELECT COUNT(*) FROM orders", RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows[0]["COUNT(*)"] != int64(5) {
		t.Errorf("fallback count = %v", res.Rows[0])
	}
	if execOutCount(fake) == 0 {
		t.Error("fallback should have pulled the database")
	}
}

func TestRemoteWriteShape(t *testing.T) {
	dev := &device{t: t, dbFile: newDeviceDB(t, 1), debuggable: true}
	r := newRouter(t, dev.bridge(), t.TempDir(), false)

	res, err := r.Run(context.Background(), "UPDATE orders SET status='shipped' WHERE id=1", RunOptions{Limit: 20})
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows == nil || len(res.Rows) != 0 {
		t.Errorf("write must return empty non-nil rows, got %v", res.Rows)
	}
	if res.RowsAffected != sqlexec.AffectedUnknown {
		t.Errorf("remote write affected = %d, want unknown", res.RowsAffected)
	}
}

func TestFallbackWritePushSuccessNoWarning(t *testing.T) {
	dev := &device{t: t, dbFile: newDeviceDB(t, 8), debuggable: true}
	r := newRouter(t, dev.bridge(), t.TempDir(), true)

	res, err := r.Run(context.Background(), "UPDATE orders SET status='shipped' WHERE id=7", RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("write rows = %v", res.Rows)
	}
	if res.RowsAffected != 1 {
		t.Errorf("affected = %d, want 1", res.RowsAffected)
	}
	if res.Warning != "" {
		t.Errorf("successful push must not warn: %q", res.Warning)
	}
}

func TestFallbackWritePushFailureWarns(t *testing.T) {
	dev := &device{t: t, dbFile: newDeviceDB(t, 8), debuggable: true, denyCopy: true}
	r := newRouter(t, dev.bridge(), t.TempDir(), true)

	res, err := r.Run(context.Background(), "UPDATE orders SET status='shipped' WHERE id=7", RunOptions{})
	if err != nil {
		t.Fatalf("push failure must not fail the query: %v", err)
	}
	if res.Warning == "" {
		t.Error("failed sync-back must attach a warning")
	}
	if len(res.Rows) != 0 {
		t.Errorf("write rows = %v", res.Rows)
	}
}

func TestDataErrorNoFallback(t *testing.T) {
	dev := &device{
		t: t, dbFile: newDeviceDB(t, 1), debuggable: true,
		remoteErr: `Parse error near line 1: near "FORM": syntax error` + "\nError: near \"FORM\": syntax error",
	}
	fake := dev.bridge()
	r := newRouter(t, fake, t.TempDir(), false)

	_, err := r.Run(context.Background(), "SELECT * FORM orders", RunOptions{})
	if err == nil {
		t.Fatal("expected data error")
	}
	if !errors.Is(err, errors.Data) {
		t.Errorf("kind = %q, want data", errors.KindOf(err))
	}
	if execOutCount(fake) != 0 {
		t.Error("data errors must not trigger a pull; local execution would fail identically")
	}
	if !strings.Contains(r.LastError(), "syntax error") {
		t.Errorf("LastError() = %q", r.LastError())
	}
}

func TestEngineWithoutJSONUsesDelimitedMode(t *testing.T) {
	dev := &device{
		t: t, dbFile: newDeviceDB(t, 2), debuggable: true, noJSON: true,
		delimited: map[string]string{
			"SELECT id, status FROM orders": "id|status\n1|open\n2|open\n",
		},
	}
	r := newRouter(t, dev.bridge(), t.TempDir(), false)

	res, err := r.Run(context.Background(), "SELECT id, status FROM orders", RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows", len(res.Rows))
	}
	if res.Rows[1]["id"] != "2" {
		t.Errorf("delimited values are strings, row = %v", res.Rows[1])
	}
}

func TestCacheHitSkipsSecondPull(t *testing.T) {
	dbFile := newDeviceDB(t, 4)
	cacheRoot := t.TempDir()

	first := &device{t: t, dbFile: dbFile, debuggable: false}
	firstFake := first.bridge()
	r1 := newRouter(t, firstFake, cacheRoot, false)
	if _, err := r1.Run(context.Background(), "SELECT COUNT(*) FROM orders", RunOptions{}); err != nil {
		t.Fatal(err)
	}
	if execOutCount(firstFake) == 0 {
		t.Fatal("first invocation should pull")
	}

	// New invocation, unchanged fingerprint: must resolve from cache.
	second := &device{t: t, dbFile: dbFile, debuggable: false}
	secondFake := second.bridge()
	r2 := newRouter(t, secondFake, cacheRoot, false)
	res, err := r2.Run(context.Background(), "SELECT COUNT(*) FROM orders", RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows[0]["COUNT(*)"] != int64(4) {
		t.Errorf("cached count = %v", res.Rows[0])
	}
	if execOutCount(secondFake) != 0 {
		t.Error("unchanged fingerprint must not re-pull")
	}
}

func TestLimitAppliedToReads(t *testing.T) {
	var sawCommand string
	dev := &device{t: t, dbFile: newDeviceDB(t, 1), debuggable: true,
		remoteJSON: map[string]string{"SELECT": `[]`}}
	fake := dev.bridge()
	inner := fake.ShellFunc
	fake.ShellFunc = func(serial, command string) (bridge.Result, error) {
		if strings.Contains(command, "-json") {
			sawCommand = command
		}
		return inner(serial, command)
	}
	r := newRouter(t, fake, t.TempDir(), false)

	if _, err := r.Run(context.Background(), "SELECT * FROM orders", RunOptions{Limit: 20}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sawCommand, "LIMIT 20") {
		t.Errorf("limit not applied: %q", sawCommand)
	}
}
