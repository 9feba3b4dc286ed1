// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cache owns the locally materialized database copies and their
// sidecar metadata. One entry per execution target: a <key>.db data file and
// a <key>.json metadata file, always written and validated as a pair. The
// cache root is injected at construction and persists across invocations;
// only an explicit clear empties it.
//
// Entries carry no lock. Concurrent invocations against the same target can
// race, one overwriting the other's entry; that is an accepted limitation of
// the single-caller design.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"droidsql/cli/internal/devicefs"
	"droidsql/cli/internal/logging"
	"droidsql/cli/internal/target"
)

// Metadata is the sidecar record persisted next to a materialized database.
type Metadata struct {
	Fingerprint string    `json:"fingerprint"`
	CapturedAt  time.Time `json:"captured_at"`
	RemotePath  string    `json:"remote_path"`
	Target      string    `json:"target"`
}

// Coordinator governs freshness checks and invalidation for one target's
// cache entry.
type Coordinator struct {
	root         string
	tgt          target.Target
	enabled      bool
	forceRefresh bool
}

// New returns a coordinator rooted at dir. enabled=false disables the cache
// entirely; forceRefresh makes every resolve a miss while still recording
// fresh pulls.
func New(root string, tgt target.Target, enabled, forceRefresh bool) *Coordinator {
	return &Coordinator{root: root, tgt: tgt, enabled: enabled, forceRefresh: forceRefresh}
}

// Enabled reports whether caching is active.
func (c *Coordinator) Enabled() bool { return c.enabled }

// DatabasePath returns where the target's materialized database lives under
// the cache root, whether or not it exists yet.
func (c *Coordinator) DatabasePath() string {
	return filepath.Join(c.root, c.tgt.CacheKey()+".db")
}

func (c *Coordinator) metadataPath() string {
	return filepath.Join(c.root, c.tgt.CacheKey()+".json")
}

// EnsureRoot lazily creates the cache root directory.
func (c *Coordinator) EnsureRoot() error {
	return os.MkdirAll(c.root, 0o700)
}

func (c *Coordinator) loadMetadata() (Metadata, bool) {
	data, err := os.ReadFile(c.metadataPath())
	if err != nil {
		return Metadata{}, false
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		logging.Debugf("unreadable cache metadata %s: %v", c.metadataPath(), err)
		return Metadata{}, false
	}
	return m, true
}

// Resolve returns the cached database path when the entry is usable.
// fingerprint supplies the current remote fingerprint; it is only consulted
// after the metadata and data files both check out. An Unknown fingerprint
// keeps the stale copy in play (availability over strict freshness); a
// mismatch is a miss that forces a fresh pull. The database path is never
// exposed without a validated metadata record.
func (c *Coordinator) Resolve(fingerprint func() string) (string, bool) {
	if !c.enabled || c.forceRefresh {
		return "", false
	}
	meta, ok := c.loadMetadata()
	if !ok {
		return "", false
	}
	dbPath := c.DatabasePath()
	if _, err := os.Stat(dbPath); err != nil {
		return "", false
	}

	remote := fingerprint()
	if remote == devicefs.Unknown {
		logging.Debugf("cannot verify cache freshness for %s, using cached copy", c.tgt.CacheKey())
		return dbPath, true
	}
	if remote == meta.Fingerprint {
		logging.Debugf("cache hit for %s (captured %s)", c.tgt.CacheKey(), meta.CapturedAt.Format(time.RFC3339))
		return dbPath, true
	}
	logging.Debugf("remote database changed (fingerprint %s -> %s), cache stale", meta.Fingerprint, remote)
	return "", false
}

// RemotePath returns the remote path recorded with the current entry, if any.
func (c *Coordinator) RemotePath() (string, bool) {
	meta, ok := c.loadMetadata()
	if !ok {
		return "", false
	}
	return meta.RemotePath, true
}

// Record persists a new metadata entry after a successful pull, overwriting
// any prior entry for the same key.
func (c *Coordinator) Record(fingerprint, remotePath string) error {
	if err := c.EnsureRoot(); err != nil {
		return err
	}
	m := Metadata{
		Fingerprint: fingerprint,
		CapturedAt:  time.Now(),
		RemotePath:  remotePath,
		Target:      c.tgt.CacheKey(),
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.metadataPath(), data, 0o600)
}

// Clear deletes the metadata file and the materialized database, including
// its side files. Already-absent files are not an error; repeated calls
// succeed. Only a real I/O failure during deletion is returned.
func (c *Coordinator) Clear() error {
	paths := []string{
		c.metadataPath(),
		c.DatabasePath(),
		c.DatabasePath() + "-wal",
		c.DatabasePath() + "-shm",
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
