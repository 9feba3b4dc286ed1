// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge defines the interface to the Android debug bridge. It
// abstracts the transport the rest of the tool consumes: shell execution,
// raw byte streams out of the device, and file pushes onto it. The concrete
// implementation lives in adbclient; tests substitute fakes.
//
// All calls are synchronous and blocking with an explicit timeout per
// operation class. A timeout surfaces as a transient error, never a hang.
package bridge

import (
	"context"
	"strings"
	"time"
)

// Timeout classes. Probes are single-digit seconds; bulk transfers and
// query execution get minutes.
const (
	ProbeTimeout    = 5 * time.Second
	ListingTimeout  = 10 * time.Second
	SetupTimeout    = 30 * time.Second
	QueryTimeout    = 60 * time.Second
	PushTimeout     = 60 * time.Second
	TransferTimeout = 5 * time.Minute
)

// Device is one entry from the bridge's device listing.
type Device struct {
	Serial string
	State  string
}

// Result carries the three-part outcome of a remote shell command.
// A non-zero Code is not a transport error; callers inspect it.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Combined returns stdout and stderr joined, trimmed. Several on-device
// binaries write their version banner to either stream.
func (r Result) Combined() string {
	return strings.TrimSpace(r.Stdout + r.Stderr)
}

// Bridge is the debug-bridge transport consumed by the core.
type Bridge interface {
	// Devices lists connected devices in the "device" state.
	Devices(ctx context.Context) ([]Device, error)
	// Shell runs a command on the device and returns its streams and exit
	// code. The error is transport-level only (bridge missing, timeout).
	Shell(ctx context.Context, serial, command string, timeout time.Duration) (Result, error)
	// ExecOut runs a command and returns its raw stdout bytes, suitable for
	// file content transfer.
	ExecOut(ctx context.Context, serial, command string, timeout time.Duration) ([]byte, error)
	// Push copies a local file to a device path.
	Push(ctx context.Context, serial, localPath, remotePath string, timeout time.Duration) error
}
