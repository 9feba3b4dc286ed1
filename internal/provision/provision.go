// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package provision guarantees a sqlite3 executable is available on the
// device for direct query execution. Strategies are tried in a fixed order,
// first success short-circuiting: already installed in the app-private
// directory, known system paths (with promotion into the app directory),
// then pushing a bundled binary through a world-writable staging path.
//
// Provisioning never fails hard. An exhausted strategy list means "direct
// execution impossible" and the caller falls back to pulling the database.
package provision

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/logging"
	"droidsql/cli/internal/target"
)

const (
	// appLocalEngine is the engine path relative to the app-private
	// directory run-as lands in.
	appLocalEngine = "./sqlite3"
	// stagingEngine is the world-writable path used for pushed binaries.
	stagingEngine = "/data/local/tmp/sqlite3"
)

// systemPaths are the system-wide locations probed for an existing sqlite3,
// in order.
var systemPaths = []string{
	"/system/bin/sqlite3",
	"/system/xbin/sqlite3",
	"/data/local/tmp/sqlite3",
}

// Provisioner locates or installs the on-device query engine. The outcome
// is memoized for the lifetime of the instance.
type Provisioner struct {
	br          bridge.Bridge
	tgt         target.Target
	bundledPath string

	done   bool
	engine string
	ok     bool
}

// New returns a provisioner that resolves the bundled binary from the
// DROIDSQL_SQLITE3 environment variable, falling back to a sqlite3-arm64
// file next to the executable.
func New(br bridge.Bridge, tgt target.Target) *Provisioner {
	return &Provisioner{br: br, tgt: tgt, bundledPath: defaultBundledPath()}
}

// NewWithBundled returns a provisioner with an explicit bundled binary path.
// An empty path disables the push strategy.
func NewWithBundled(br bridge.Bridge, tgt target.Target, bundledPath string) *Provisioner {
	return &Provisioner{br: br, tgt: tgt, bundledPath: bundledPath}
}

func defaultBundledPath() string {
	if p := strings.TrimSpace(os.Getenv("DROIDSQL_SQLITE3")); p != "" {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	p := filepath.Join(filepath.Dir(exe), "sqlite3-arm64")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

// versionOK reports whether a -version invocation produced a recognizable
// engine banner.
func versionOK(output string) bool {
	return strings.Contains(output, "SQLite") || strings.Contains(output, "3.")
}

// Ensure returns the engine path usable under run-as, locating or installing
// it on first call. Repeated calls return the memoized outcome; a binary
// installed by an earlier call is found by the first strategy anyway.
func (p *Provisioner) Ensure(ctx context.Context) (string, bool) {
	if p.done {
		return p.engine, p.ok
	}
	p.done = true

	strategies := []struct {
		name string
		run  func(context.Context) (string, bool)
	}{
		{"app-private", p.fromAppDir},
		{"system path", p.fromSystemPaths},
		{"bundled push", p.fromBundled},
	}
	for _, s := range strategies {
		if path, ok := s.run(ctx); ok {
			logging.Debugf("engine available via %s strategy at %s", s.name, path)
			p.engine, p.ok = path, true
			return path, true
		}
	}
	logging.Debugf("no sqlite3 engine available on device")
	return "", false
}

// fromAppDir probes for an engine already installed in the app directory.
func (p *Provisioner) fromAppDir(ctx context.Context) (string, bool) {
	res, err := p.br.Shell(ctx, p.tgt.Serial, p.tgt.RunAs(appLocalEngine+" -version"), bridge.ProbeTimeout)
	if err == nil && res.Code == 0 && versionOK(res.Combined()) {
		return appLocalEngine, true
	}
	return "", false
}

// fromSystemPaths probes the fixed system locations and promotes a hit into
// the app directory. Promotion failure falls back to the system path itself.
func (p *Provisioner) fromSystemPaths(ctx context.Context) (string, bool) {
	for _, sysPath := range systemPaths {
		res, err := p.br.Shell(ctx, p.tgt.Serial, sysPath+" -version 2>&1", bridge.ProbeTimeout)
		if err != nil || res.Code != 0 || !versionOK(res.Combined()) {
			continue
		}
		if promoted, ok := p.promote(ctx, sysPath); ok {
			return promoted, true
		}
		logging.Debugf("could not copy %s into app directory, using it directly", sysPath)
		return sysPath, true
	}
	return "", false
}

// fromBundled pushes the bundled binary to the staging path, verifies it
// executes, and attempts app-dir promotion. A pushed binary that fails to
// execute (architecture mismatch) ends provisioning; alternate architectures
// are not retried.
func (p *Provisioner) fromBundled(ctx context.Context) (string, bool) {
	if p.bundledPath == "" {
		return "", false
	}
	if err := p.br.Push(ctx, p.tgt.Serial, p.bundledPath, stagingEngine, bridge.SetupTimeout); err != nil {
		logging.Debugf("push of bundled engine failed: %v", err)
		return "", false
	}
	if _, err := p.br.Shell(ctx, p.tgt.Serial, "chmod 755 "+stagingEngine, bridge.ProbeTimeout); err != nil {
		return "", false
	}
	res, err := p.br.Shell(ctx, p.tgt.Serial, stagingEngine+" -version", bridge.ProbeTimeout)
	if err != nil || res.Code != 0 || !versionOK(res.Combined()) {
		logging.Debugf("pushed engine does not execute; device architecture may not match the bundled binary")
		return "", false
	}
	if promoted, ok := p.promote(ctx, stagingEngine); ok {
		return promoted, true
	}
	return stagingEngine, true
}

// promote copies an engine into the app-private directory, marks it
// executable and re-verifies it under run-as.
func (p *Provisioner) promote(ctx context.Context, from string) (string, bool) {
	res, err := p.br.Shell(ctx, p.tgt.Serial, p.tgt.RunAs("cp "+from+" "+appLocalEngine), bridge.ListingTimeout)
	if err != nil || res.Code != 0 {
		return "", false
	}
	if _, err := p.br.Shell(ctx, p.tgt.Serial, p.tgt.RunAs("chmod 755 "+appLocalEngine), bridge.ProbeTimeout); err != nil {
		return "", false
	}
	verify, err := p.br.Shell(ctx, p.tgt.Serial, p.tgt.RunAs(appLocalEngine+" -version"), bridge.ProbeTimeout)
	if err != nil || verify.Code != 0 || !versionOK(verify.Combined()) {
		return "", false
	}
	return appLocalEngine, true
}
