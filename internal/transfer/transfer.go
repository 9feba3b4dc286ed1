// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package transfer moves the database between the device and the local
// cache. Pulls prefer a compressed stream (remote gzip, local decompress)
// and fall back transparently to a raw byte copy; the caller sees the same
// contract either way. Side files (-wal, -shm) are captured independently
// after the main file so uncommitted transaction data travels along when it
// exists; a side-file failure never fails the pull.
//
// Pushes stage through the world-writable tmp directory and finish with a
// privileged copy into the app-private path; the staging file is removed
// whether or not the copy succeeded.
package transfer

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/cache"
	"droidsql/cli/internal/devicefs"
	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/logging"
	"droidsql/cli/internal/target"
)

// stagingDir is the world-writable directory used as a push intermediate.
const stagingDir = "/data/local/tmp"

// Pipeline transfers one target's database in and out of local storage.
type Pipeline struct {
	br       bridge.Bridge
	tgt      target.Target
	coord    *cache.Coordinator
	compress bool

	remotePath string
	localPath  string
}

// New returns a pipeline writing into the coordinator's database path.
// compress=false disables the gzip transfer attempt.
func New(br bridge.Bridge, tgt target.Target, coord *cache.Coordinator, compress bool) *Pipeline {
	return &Pipeline{br: br, tgt: tgt, coord: coord, compress: compress}
}

// LocalPath returns the materialized local copy, empty before a pull.
func (p *Pipeline) LocalPath() string { return p.localPath }

// RemotePath returns the device path remembered from the pull.
func (p *Pipeline) RemotePath() string { return p.remotePath }

// Adopt registers an already-materialized local copy (a cache hit) so a
// later Push knows both endpoints without re-resolving the remote path.
func (p *Pipeline) Adopt(localPath, remotePath string) {
	p.localPath = localPath
	p.remotePath = remotePath
}

// Pull materializes the remote database locally and records cache metadata.
// The destination is the cache path when caching is enabled, a temp file
// otherwise.
func (p *Pipeline) Pull(ctx context.Context) (string, error) {
	remote, err := devicefs.FindDatabase(ctx, p.br, p.tgt)
	if err != nil {
		return "", err
	}
	p.remotePath = remote

	var dest string
	switch {
	case p.coord.Enabled():
		if err := p.coord.EnsureRoot(); err != nil {
			return "", errors.Wrap(errors.Fatal, "cannot create cache directory", err)
		}
		dest = p.coord.DatabasePath()
	case p.localPath != "":
		// Re-pull without caching reuses the session's temp copy.
		dest = p.localPath
	default:
		tmp, err := os.CreateTemp("", "droidsql-*.db")
		if err != nil {
			return "", errors.Wrap(errors.Fatal, "cannot create temp file", err)
		}
		dest = tmp.Name()
		tmp.Close()
	}

	data, err := p.pullBytes(ctx, remote)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return "", errors.Wrap(errors.Fatal, "cannot write local database", err)
	}
	logging.Debugf("pulled %s (%d bytes) to %s", remote, len(data), dest)

	p.captureSideFiles(ctx, remote, dest)

	if p.coord.Enabled() {
		fp := devicefs.Fingerprint(ctx, p.br, p.tgt, remote)
		if err := p.coord.Record(fp, remote); err != nil {
			logging.Debugf("could not save cache metadata: %v", err)
		}
	}

	p.localPath = dest
	return dest, nil
}

// pullBytes fetches the raw database content, trying the compressed path
// first when enabled. Every compressed-path failure falls back silently to
// the plain copy; only the diagnostics differ.
func (p *Pipeline) pullBytes(ctx context.Context, remote string) ([]byte, error) {
	if p.compress && p.gzipAvailable(ctx) {
		data, err := p.pullCompressed(ctx, remote)
		if err == nil {
			return data, nil
		}
		logging.Debugf("compressed transfer failed (%v), falling back to plain copy", err)
	}
	return p.pullPlain(ctx, remote)
}

func (p *Pipeline) gzipAvailable(ctx context.Context) bool {
	res, err := p.br.Shell(ctx, p.tgt.Serial, "which gzip", bridge.ProbeTimeout)
	return err == nil && res.Code == 0 && strings.TrimSpace(res.Stdout) != ""
}

func (p *Pipeline) pullCompressed(ctx context.Context, remote string) ([]byte, error) {
	compressed, err := p.br.ExecOut(ctx, p.tgt.Serial, p.tgt.RunAs("gzip -c "+remote), bridge.TransferTimeout)
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return data, nil
}

func (p *Pipeline) pullPlain(ctx context.Context, remote string) ([]byte, error) {
	data, err := p.br.ExecOut(ctx, p.tgt.Serial, p.tgt.RunAs("cat "+remote), bridge.TransferTimeout)
	if err != nil {
		return nil, errors.Wrap(errors.Transient, "database transfer failed", err)
	}
	return data, nil
}

// captureSideFiles pulls the write-ahead-log and shared-memory companions
// when present. Failures are non-fatal: uncommitted data is simply
// unavailable. Companions left over from an earlier pull are removed first;
// a stale WAL next to a fresh copy would replay old frames into it.
func (p *Pipeline) captureSideFiles(ctx context.Context, remote, dest string) {
	for _, suffix := range []string{"-wal", "-shm"} {
		remoteSide := remote + suffix
		localSide := dest + suffix
		os.Remove(localSide)
		if !devicefs.Exists(ctx, p.br, p.tgt, remoteSide) {
			continue
		}
		data, err := p.br.ExecOut(ctx, p.tgt.Serial, p.tgt.RunAs("cat "+remoteSide), bridge.TransferTimeout)
		if err != nil {
			logging.Debugf("could not pull %s: %v", remoteSide, err)
			continue
		}
		if err := os.WriteFile(localSide, data, 0o600); err != nil {
			logging.Debugf("could not write %s: %v", localSide, err)
			continue
		}
		logging.Debugf("captured side file %s (%d bytes)", remoteSide, len(data))
	}
}

// Cleanup removes a non-cached local copy and its side files. Cached copies
// stay on disk for the next invocation.
func (p *Pipeline) Cleanup() {
	if p.localPath == "" || p.coord.Enabled() {
		return
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		os.Remove(p.localPath + suffix)
	}
	p.localPath = ""
}

// Push copies the local database back into the app-private location via the
// staging path. It requires a pull (or Adopt) earlier in the session; the
// remote path is remembered, not re-resolved. The staging file is removed
// regardless of the privileged copy's outcome.
func (p *Pipeline) Push(ctx context.Context) error {
	if p.localPath == "" {
		return errors.New(errors.Fatal, "no local database to push; pull first")
	}
	if _, err := os.Stat(p.localPath); err != nil {
		return errors.Wrap(errors.Fatal, "local database file is missing", err)
	}
	if p.remotePath == "" {
		return errors.New(errors.Fatal, "device database path not known; pull first")
	}

	staging := stagingDir + "/" + p.tgt.Database
	if err := p.br.Push(ctx, p.tgt.Serial, p.localPath, staging, bridge.PushTimeout); err != nil {
		return errors.Wrap(errors.Transient, "push to staging path failed", err)
	}
	// Cleanup must run even when the privileged copy fails.
	defer func() {
		if _, err := p.br.Shell(ctx, p.tgt.Serial, "rm "+staging, bridge.ProbeTimeout); err != nil {
			logging.Debugf("could not remove staging file %s: %v", staging, err)
		}
	}()

	res, err := p.br.Shell(ctx, p.tgt.Serial, p.tgt.RunAs("cp "+staging+" "+p.remotePath), bridge.PushTimeout)
	if err != nil {
		return err
	}
	if res.Code != 0 {
		return errors.New(errors.Transient, "privileged copy into app directory failed: "+strings.TrimSpace(res.Stderr))
	}
	return nil
}
