// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httpapi exposes the query tool over HTTP for frontends. Every
// response carries a success flag; failures add an error message, and data
// errors include the engine's own message so the caller sees the real
// cause. Session state (capability probe, pulled copy) lives for the
// server's lifetime and is rebuilt by the cache-management endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/cache"
	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/probe"
	"droidsql/cli/internal/provision"
	"droidsql/cli/internal/router"
	"droidsql/cli/internal/sqlexec"
	"droidsql/cli/internal/target"
	"droidsql/cli/internal/transfer"
)

// Deps hold everything needed to build an execution session.
type Deps struct {
	Bridge       bridge.Bridge
	Target       target.Target
	CacheRoot    string
	CacheOn      bool
	Compress     bool
	ForceLocal   bool
	DefaultLimit int
}

// Server serves the HTTP API over one target database. Execution is a
// single logical thread: execMu serializes every handler that touches the
// session, since the router, pipeline and prober keep per-session state
// that is not safe for concurrent use.
type Server struct {
	deps Deps

	execMu sync.Mutex

	mu   sync.Mutex
	sess *session
}

// session bundles the per-lifetime execution state.
type session struct {
	coord *cache.Coordinator
	pipe  *transfer.Pipeline
	rt    *router.Router
	insp  *sqlexec.Inspector
}

// New builds a server; the first request materializes the session lazily.
func New(deps Deps) *Server {
	return &Server{deps: deps}
}

func (s *Server) newSession() *session {
	d := s.deps
	coord := cache.New(d.CacheRoot, d.Target, d.CacheOn, false)
	pipe := transfer.New(d.Bridge, d.Target, coord, d.Compress)
	prober := probe.New(d.Bridge, d.Target, provision.New(d.Bridge, d.Target))
	rt := router.New(d.Bridge, d.Target, prober, coord, pipe, d.ForceLocal)
	return &session{coord: coord, pipe: pipe, rt: rt, insp: sqlexec.NewInspector(rt.Query)}
}

// current returns the active session, building one on first use.
func (s *Server) current() *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		s.sess = s.newSession()
	}
	return s.sess
}

// reset discards the session so the next request re-probes and re-pulls.
// A non-cached temp copy goes with it.
func (s *Server) reset() {
	s.mu.Lock()
	old := s.sess
	s.sess = nil
	s.mu.Unlock()
	if old != nil {
		old.pipe.Cleanup()
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/api/check-connection", s.handleCheckConnection)
	r.Get("/api/tables", s.handleTables)
	r.Get("/api/table-structure/{table}", s.handleTableStructure)
	r.Get("/api/table-data/{table}", s.handleTableData)
	r.Post("/api/query", s.handleQuery)
	r.Post("/api/clear-cache", s.handleClearCache)
	r.Post("/api/refresh-database", s.handleRefresh)
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// failFrom maps the error taxonomy onto HTTP statuses: data errors are the
// caller's SQL (400), everything else is the device's or our fault (502).
func failFrom(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, errors.Data) {
		status = http.StatusBadRequest
	}
	fail(w, status, err.Error())
}

func (s *Server) handleCheckConnection(w http.ResponseWriter, r *http.Request) {
	devices, err := s.deps.Bridge.Devices(r.Context())
	if err != nil {
		failFrom(w, err)
		return
	}
	serials := make([]string, 0, len(devices))
	connected := false
	for _, d := range devices {
		serials = append(serials, d.Serial)
		if s.deps.Target.Serial == "" || d.Serial == s.deps.Target.Serial {
			connected = true
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"connected": connected,
		"devices":   serials,
		"package":   s.deps.Target.Package,
		"database":  s.deps.Target.Database,
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	tables, err := s.current().insp.Tables(r.Context())
	if err != nil {
		failFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tables": tables})
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// tableName extracts and validates the table path parameter. Identifiers
// are restricted so they can be interpolated into SQL safely.
func tableName(w http.ResponseWriter, r *http.Request) (string, bool) {
	table := chi.URLParam(r, "table")
	if !identPattern.MatchString(table) {
		fail(w, http.StatusBadRequest, fmt.Sprintf("invalid table name %q", table))
		return "", false
	}
	return table, true
}

func (s *Server) handleTableStructure(w http.ResponseWriter, r *http.Request) {
	table, ok := tableName(w, r)
	if !ok {
		return
	}
	s.execMu.Lock()
	defer s.execMu.Unlock()
	res, err := s.current().insp.TableInfo(r.Context(), table)
	if err != nil {
		failFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"table":   table,
		"columns": res.Rows,
	})
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	table, ok := tableName(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", s.deps.DefaultLimit)
	offset := queryInt(r, "offset", 0)

	s.execMu.Lock()
	defer s.execMu.Unlock()
	sess := s.current()
	res, err := sess.rt.Run(r.Context(), fmt.Sprintf(`SELECT * FROM "%s" LIMIT %d OFFSET %d`, table, limit, offset), router.RunOptions{})
	if err != nil {
		failFrom(w, err)
		return
	}
	total, err := sess.insp.TableCount(r.Context(), table)
	if err != nil {
		failFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"table":   table,
		"columns": res.Columns,
		"rows":    res.Rows,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

type queryRequest struct {
	SQL   string `json:"sql"`
	Limit int    `json:"limit"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SQL == "" {
		fail(w, http.StatusBadRequest, "sql is required")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.deps.DefaultLimit
	}

	s.execMu.Lock()
	defer s.execMu.Unlock()
	sess := s.current()
	res, err := sess.rt.Run(r.Context(), req.SQL, router.RunOptions{Limit: limit})
	if err != nil {
		if msg := sess.rt.LastError(); msg != "" && errors.Is(err, errors.Data) {
			fail(w, http.StatusBadRequest, msg)
			return
		}
		failFrom(w, err)
		return
	}
	payload := map[string]any{
		"success":       true,
		"columns":       res.Columns,
		"rows":          res.Rows,
		"rows_affected": res.RowsAffected,
	}
	if res.Warning != "" {
		payload["warning"] = res.Warning
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	if err := s.current().coord.Clear(); err != nil {
		failFrom(w, err)
		return
	}
	s.reset()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleRefresh discards local state and pulls a fresh snapshot now, so the
// next query starts from current device content.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.execMu.Lock()
	defer s.execMu.Unlock()
	s.reset()
	sess := s.current()
	path, err := sess.pipe.Pull(r.Context())
	if err != nil {
		failFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "path": path})
}

// ListenAndServe runs the API until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
