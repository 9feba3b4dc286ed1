// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package router is the top-level execution policy. Given a query it
// attempts direct privileged execution on the device, falling back once to
// the pull-execute-push cycle, and normalizes both paths into one result
// shape. The state machine is linear: force-local skips the remote attempt,
// an unsupported capability skips it, a remote failure (other than a data
// error) falls through exactly once, and failures in the fallback path are
// terminal.
package router

import (
	"context"
	stderrors "errors"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/cache"
	"droidsql/cli/internal/devicefs"
	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/logging"
	"droidsql/cli/internal/probe"
	"droidsql/cli/internal/sqlclass"
	"droidsql/cli/internal/sqlexec"
	"droidsql/cli/internal/target"
	"droidsql/cli/internal/transfer"
)

// RunOptions tune one query execution.
type RunOptions struct {
	// Limit caps read-query results. Applied only to SELECTs without an
	// existing limit clause; never to writes.
	Limit int
}

// Router routes queries to an execution site.
type Router struct {
	br         bridge.Bridge
	tgt        target.Target
	prober     *probe.Prober
	coord      *cache.Coordinator
	pipe       *transfer.Pipeline
	forceLocal bool

	lastError string
}

// New assembles a router from its collaborators. forceLocal pins every
// query to the pull-execute path.
func New(br bridge.Bridge, tgt target.Target, prober *probe.Prober, coord *cache.Coordinator, pipe *transfer.Pipeline, forceLocal bool) *Router {
	return &Router{br: br, tgt: tgt, prober: prober, coord: coord, pipe: pipe, forceLocal: forceLocal}
}

// LastError returns the most recent engine error message, for presentation
// layers that want the real cause instead of a generic failure.
func (r *Router) LastError() string { return r.lastError }

// Query satisfies sqlexec.QueryFunc: Run without a row limit.
func (r *Router) Query(ctx context.Context, query string) (sqlexec.Result, error) {
	return r.Run(ctx, query, RunOptions{})
}

// Run executes one query, choosing the execution site.
func (r *Router) Run(ctx context.Context, query string, opts RunOptions) (sqlexec.Result, error) {
	query = sqlclass.ApplyLimit(query, opts.Limit)

	if !r.forceLocal && r.prober.Supported(ctx) {
		res, err := r.runRemote(ctx, query)
		if err == nil {
			return res, nil
		}
		if errors.Is(err, errors.Data) {
			// Local execution would fail identically; surface verbatim.
			return sqlexec.Result{}, err
		}
		if errors.Is(err, errors.Fatal) {
			return sqlexec.Result{}, err
		}
		logging.Debugf("remote execution failed (%v), falling back to local", err)
	}

	return r.runLocal(ctx, query)
}

// runLocal is the fallback path: materialize a local copy (cache first,
// else a fresh pull), execute there, and for writes sync the modified file
// back. A failed sync-back degrades to a warning on the result; the local
// change is real and the remote is stale until the next push or refresh.
func (r *Router) runLocal(ctx context.Context, query string) (sqlexec.Result, error) {
	localPath, err := r.materialize(ctx)
	if err != nil {
		return sqlexec.Result{}, err
	}

	res, err := sqlexec.ExecuteLocal(ctx, localPath, query)
	if err != nil {
		var e *errors.E
		if stderrors.As(err, &e) && e.Kind == errors.Data {
			r.lastError = e.Message
		}
		return sqlexec.Result{}, err
	}

	if sqlclass.IsWrite(query) {
		if pushErr := r.pipe.Push(ctx); pushErr != nil {
			logging.Debugf("sync-back failed: %v", pushErr)
			res.Warning = "changes were not synced to the device; the remote database is stale until the next push or refresh"
		}
	}
	return res, nil
}

// materialize returns a usable local copy: an adopted cache hit, the copy
// pulled earlier in this session, or a fresh pull.
func (r *Router) materialize(ctx context.Context) (string, error) {
	fingerprint := func() string {
		remote, err := r.prober.DatabasePath(ctx)
		if err != nil {
			return devicefs.Unknown
		}
		return devicefs.Fingerprint(ctx, r.br, r.tgt, remote)
	}
	if path, ok := r.coord.Resolve(fingerprint); ok {
		remote, _ := r.coord.RemotePath()
		r.pipe.Adopt(path, remote)
		return path, nil
	}
	if path := r.pipe.LocalPath(); path != "" {
		return path, nil
	}
	return r.pipe.Pull(ctx)
}
