// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package probe determines once per instance whether privileged per-app
// execution is available for a target: database locatable, run-as usable,
// engine binary provisioned. The answer is memoized as a tri-state set at
// most once and never re-probed within the instance's lifetime, even if the
// underlying device state changes. That staleness is a deliberate
// performance trade-off, not a bug.
package probe

import (
	"context"
	"strings"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/devicefs"
	"droidsql/cli/internal/logging"
	"droidsql/cli/internal/provision"
	"droidsql/cli/internal/target"
)

// triState is the memoized probe outcome.
type triState int8

const (
	unknown triState = iota
	supported
	unsupported
)

// Prober answers the privileged-execution capability question for one target.
type Prober struct {
	br   bridge.Bridge
	tgt  target.Target
	prov *provision.Provisioner

	state  triState
	dbPath string
	dbErr  error
	dbDone bool
	engine string
}

// New returns a prober backed by the given bridge and provisioner.
func New(br bridge.Bridge, tgt target.Target, prov *provision.Provisioner) *Prober {
	return &Prober{br: br, tgt: tgt, prov: prov}
}

// DatabasePath locates the remote database, memoizing the result. The
// fallback path needs the location too, so this is usable independently of
// Supported.
func (p *Prober) DatabasePath(ctx context.Context) (string, error) {
	if !p.dbDone {
		p.dbDone = true
		p.dbPath, p.dbErr = devicefs.FindDatabase(ctx, p.br, p.tgt)
	}
	return p.dbPath, p.dbErr
}

// EnginePath returns the provisioned engine path. Only meaningful after
// Supported has returned true.
func (p *Prober) EnginePath() string { return p.engine }

// Supported reports whether direct privileged execution is available.
// The result gates the router's first attempt only; it does not gate the
// pull-execute fallback.
func (p *Prober) Supported(ctx context.Context) bool {
	if p.state != unknown {
		return p.state == supported
	}
	p.state = unsupported

	if _, err := p.DatabasePath(ctx); err != nil {
		return false
	}

	res, err := p.br.Shell(ctx, p.tgt.Serial, p.tgt.RunAs(`echo "probe"`), bridge.ProbeTimeout)
	if err != nil {
		logging.Debugf("run-as probe failed: %v", err)
		return false
	}
	if res.Code != 0 {
		low := strings.ToLower(res.Stderr)
		if strings.Contains(low, "not debuggable") || strings.Contains(low, "unknown package") {
			// Expected on release builds; the fallback path handles it.
			logging.Debugf("run-as not supported for %s (app not debuggable)", p.tgt.Package)
		} else {
			logging.Debugf("run-as probe exited %d: %s", res.Code, strings.TrimSpace(res.Stderr))
		}
		return false
	}
	if !strings.Contains(res.Stdout, "probe") {
		return false
	}

	engine, ok := p.prov.Ensure(ctx)
	if !ok {
		logging.Debugf("run-as works but no engine binary could be provisioned")
		return false
	}
	p.engine = engine
	p.state = supported
	return true
}
