// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridgetest provides a scriptable in-memory Bridge for tests.
package bridgetest

import (
	"context"
	"sync"
	"time"

	"droidsql/cli/internal/bridge"
)

// Call records one bridge invocation for assertions.
type Call struct {
	Op      string // "shell", "exec-out", "push", "devices"
	Command string // shell/exec-out command, or "local -> remote" for push
}

// Fake implements bridge.Bridge with pluggable handlers. The zero value
// answers every shell with exit 0 and empty output.
type Fake struct {
	mu sync.Mutex

	DevicesList []bridge.Device
	DevicesErr  error

	// ShellFunc handles Shell calls. Nil means success with empty output.
	ShellFunc func(serial, command string) (bridge.Result, error)
	// ExecOutFunc handles ExecOut calls. Nil means empty bytes.
	ExecOutFunc func(serial, command string) ([]byte, error)
	// PushFunc handles Push calls. Nil means success.
	PushFunc func(serial, localPath, remotePath string) error

	Calls []Call
}

func (f *Fake) record(op, command string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Op: op, Command: command})
}

// ShellCommands returns the commands of all recorded shell calls.
func (f *Fake) ShellCommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if c.Op == "shell" {
			out = append(out, c.Command)
		}
	}
	return out
}

func (f *Fake) Devices(ctx context.Context) ([]bridge.Device, error) {
	f.record("devices", "")
	return f.DevicesList, f.DevicesErr
}

func (f *Fake) Shell(ctx context.Context, serial, command string, timeout time.Duration) (bridge.Result, error) {
	f.record("shell", command)
	if f.ShellFunc == nil {
		return bridge.Result{}, nil
	}
	return f.ShellFunc(serial, command)
}

func (f *Fake) ExecOut(ctx context.Context, serial, command string, timeout time.Duration) ([]byte, error) {
	f.record("exec-out", command)
	if f.ExecOutFunc == nil {
		return nil, nil
	}
	return f.ExecOutFunc(serial, command)
}

func (f *Fake) Push(ctx context.Context, serial, localPath, remotePath string, timeout time.Duration) error {
	f.record("push", localPath+" -> "+remotePath)
	if f.PushFunc == nil {
		return nil
	}
	return f.PushFunc(serial, localPath, remotePath)
}

var _ bridge.Bridge = (*Fake)(nil)
