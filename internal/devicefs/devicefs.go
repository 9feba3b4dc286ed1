// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package devicefs probes the app-private filesystem on the device: locating
// the database among the known candidate directories and reading a change
// fingerprint off the remote file for cache invalidation.
package devicefs

import (
	"context"
	"fmt"
	"hash/fnv"
	"path"
	"strconv"
	"strings"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/logging"
	"droidsql/cli/internal/target"
)

// Unknown is the sentinel fingerprint when the remote state cannot be read.
// The cache coordinator treats it as "cannot verify", not as a mismatch.
const Unknown = ""

// candidateDirs are the app-relative directories probed for the database,
// in order. The first hit wins and no further paths are tried.
var candidateDirs = []string{"databases", "files", "files/SQLite"}

// CandidatePaths returns the app-relative paths probed for a database name.
func CandidatePaths(dbName string) []string {
	out := make([]string, 0, len(candidateDirs))
	for _, d := range candidateDirs {
		out = append(out, d+"/"+dbName)
	}
	return out
}

// FindDatabase locates the database inside the target's private storage.
// Returns a fatal-kind error when no candidate path matches; callers must
// not attempt a pull after that.
func FindDatabase(ctx context.Context, br bridge.Bridge, tgt target.Target) (string, error) {
	for _, p := range CandidatePaths(tgt.Database) {
		res, err := br.Shell(ctx, tgt.Serial, tgt.RunAs("ls "+p), bridge.ListingTimeout)
		if err != nil {
			logging.Debugf("probe %s: %v", p, err)
			continue
		}
		if res.Code == 0 && strings.Contains(res.Stdout, tgt.Database) {
			return p, nil
		}
	}
	return "", errors.New(errors.Fatal,
		fmt.Sprintf("database %q not found in any expected location for %s", tgt.Database, tgt.Package))
}

// Exists reports whether a file exists in the target's private storage.
func Exists(ctx context.Context, br bridge.Bridge, tgt target.Target, remotePath string) bool {
	res, err := br.Shell(ctx, tgt.Serial, tgt.RunAs("ls "+remotePath), bridge.ProbeTimeout)
	if err != nil || res.Code != 0 {
		return false
	}
	return strings.Contains(res.Stdout, path.Base(remotePath))
}

// Fingerprint reads a comparable last-modified value for the remote file.
// Preferred form is the mtime from stat as a decimal Unix timestamp. When
// stat is unavailable the fingerprint degrades to a hash of the ls -l
// listing, prefixed "ls:" so a degraded value can never collide with a
// timestamp. Equal fingerprints mean "assume unchanged"; this is a
// heuristic, not a guarantee. Both probes failing yields Unknown.
func Fingerprint(ctx context.Context, br bridge.Bridge, tgt target.Target, remotePath string) string {
	res, err := br.Shell(ctx, tgt.Serial, tgt.RunAs("stat -c %Y "+remotePath), bridge.ProbeTimeout)
	if err == nil && res.Code == 0 {
		ts := strings.TrimSpace(res.Stdout)
		if _, perr := strconv.ParseInt(ts, 10, 64); perr == nil {
			return ts
		}
	}

	// Degraded mode: some devices ship a stat without -c. Hash the listing
	// line instead; it still changes when size or mtime does.
	res, err = br.Shell(ctx, tgt.Serial, tgt.RunAs("ls -l "+remotePath), bridge.ProbeTimeout)
	if err == nil && res.Code == 0 && strings.TrimSpace(res.Stdout) != "" {
		h := fnv.New64a()
		h.Write([]byte(res.Stdout))
		return fmt.Sprintf("ls:%x", h.Sum64())
	}

	logging.Debugf("could not fingerprint %s", remotePath)
	return Unknown
}
