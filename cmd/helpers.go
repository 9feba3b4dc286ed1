// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/bridge/adbclient"
	"droidsql/cli/internal/cache"
	"droidsql/cli/internal/config"
	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/logging"
	"droidsql/cli/internal/probe"
	"droidsql/cli/internal/provision"
	"droidsql/cli/internal/router"
	"droidsql/cli/internal/sqlexec"
	"droidsql/cli/internal/target"
	"droidsql/cli/internal/transfer"
	"droidsql/cli/internal/xdg"
)

// session holds the wired execution stack for one CLI invocation.
type session struct {
	br    bridge.Bridge
	tgt   target.Target
	coord *cache.Coordinator
	pipe  *transfer.Pipeline
	rt    *router.Router
	insp  *sqlexec.Inspector
	cfg   config.Config
}

// loadConfig reads stored defaults; a missing file is not an error.
func loadConfig() (config.Config, error) {
	return config.Load()
}

// resolveTarget merges flags over stored configuration into a target.
// Package and database name must come from one of the two.
func resolveTarget(cfg config.Config) (target.Target, error) {
	tgt := target.Target{
		Package:  flagPackage,
		Database: flagDB,
		Serial:   flagSerial,
	}
	if tgt.Package == "" {
		tgt.Package = cfg.Package
	}
	if tgt.Database == "" {
		tgt.Database = cfg.Database
	}
	if tgt.Serial == "" {
		tgt.Serial = cfg.Serial
	}
	if flagUser >= 0 {
		u := flagUser
		tgt.UserID = &u
	}
	if tgt.Package == "" || tgt.Database == "" {
		return tgt, fmt.Errorf("a target is required: pass --package and --db, or store them with 'droidsql config set'")
	}
	return tgt, nil
}

// newSession wires the full execution stack from flags and configuration.
func newSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	tgt, err := resolveTarget(cfg)
	if err != nil {
		return nil, err
	}
	cacheRoot, err := xdg.CacheDir()
	if err != nil {
		return nil, err
	}

	br := adbclient.New()
	coord := cache.New(cacheRoot, tgt, cfg.CacheOn && !flagNoCache, flagForcePull)
	pipe := transfer.New(br, tgt, coord, cfg.Compression && !flagNoCompress)
	prober := probe.New(br, tgt, provision.New(br, tgt))
	rt := router.New(br, tgt, prober, coord, pipe, flagForceLocal)

	return &session{
		br:    br,
		tgt:   tgt,
		coord: coord,
		pipe:  pipe,
		rt:    rt,
		insp:  sqlexec.NewInspector(rt.Query),
		cfg:   cfg,
	}, nil
}

// close releases per-invocation resources; a non-cached pull's temp copy
// does not outlive the command.
func (s *session) close() { s.pipe.Cleanup() }

// rowLimit resolves the effective read limit: flag first, config second.
func (s *session) rowLimit() int {
	if flagLimit > 0 {
		return flagLimit
	}
	return s.cfg.RowLimit
}

// renderResult prints a query result: a table for reads, a confirmation
// for writes, and the sync warning when the write-back failed.
func renderResult(res sqlexec.Result) error {
	if res.Warning != "" {
		pterm.Printf("⚠️  %s\n", res.Warning)
	}
	if len(res.Columns) == 0 {
		if res.RowsAffected == sqlexec.AffectedUnknown {
			pterm.Println("✅ Query executed on device")
		} else {
			pterm.Printf("✅ Query executed, %d row(s) affected\n", res.RowsAffected)
		}
		return nil
	}
	if len(res.Rows) == 0 {
		pterm.Println("No rows returned")
		return nil
	}

	data := pterm.TableData{res.Columns}
	for _, row := range res.Rows {
		line := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			line[i] = cellString(row[col])
		}
		data = append(data, line)
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Printf("%d row(s)\n", len(res.Rows))
	return nil
}

// cellString renders one value for terminal or CSV output.
func cellString(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

// queryFailureMessage picks what to show for a failed query: the engine's
// own message for data errors, the generic presenter line otherwise. The
// retained engine message belongs to the last data error, which may predate
// the current failure.
func queryFailureMessage(lastError string, err error) string {
	if lastError != "" && errors.Is(err, errors.Data) {
		return lastError
	}
	return logging.PresentError("query", err)
}
