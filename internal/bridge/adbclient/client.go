// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package adbclient implements the bridge interface over the adb executable.
// Every call spawns an adb subprocess with a context deadline; the client
// holds no connection state of its own.
package adbclient

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"droidsql/cli/internal/bridge"
	"droidsql/cli/internal/errors"
	"droidsql/cli/internal/logging"
)

// Client runs adb commands as subprocesses.
type Client struct {
	// adbPath is the adb executable name or path. Defaults to "adb" (PATH lookup).
	adbPath string
}

// New returns a client using the adb binary from PATH.
func New() *Client { return &Client{adbPath: "adb"} }

// NewWithPath returns a client using a specific adb executable.
func NewWithPath(path string) *Client { return &Client{adbPath: path} }

// args prepends the device selector when a serial is set.
func (c *Client) args(serial string, rest ...string) []string {
	var out []string
	if serial != "" {
		out = append(out, "-s", serial)
	}
	return append(out, rest...)
}

// run executes adb with a deadline and classifies transport failures.
func (c *Client) run(ctx context.Context, timeout time.Duration, args []string) (stdout, stderr []byte, code int, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.adbPath, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	logging.Debugf("adb %s", strings.Join(args, " "))
	runErr := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, nil, -1, errors.Wrap(errors.Transient, "adb command timed out", ctx.Err())
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(runErr, &exitErr) {
			return outBuf.Bytes(), errBuf.Bytes(), exitErr.ExitCode(), nil
		}
		if stderrors.Is(runErr, exec.ErrNotFound) {
			return nil, nil, -1, errors.Wrap(errors.Fatal, "adb not found in PATH; install the Android SDK platform tools", runErr)
		}
		return nil, nil, -1, errors.Wrap(errors.Transient, "adb command failed to start", runErr)
	}
	return outBuf.Bytes(), errBuf.Bytes(), 0, nil
}

// Devices lists connected devices in the "device" state. Unauthorized and
// offline entries are skipped.
func (c *Client) Devices(ctx context.Context) ([]bridge.Device, error) {
	stdout, _, code, err := c.run(ctx, bridge.ListingTimeout, []string{"devices"})
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, errors.New(errors.Fatal, "adb devices failed; make sure adb is installed and the server is running")
	}

	var devices []bridge.Device
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	for i, line := range lines {
		if i == 0 { // "List of devices attached" header
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if fields[1] != "device" {
			continue
		}
		devices = append(devices, bridge.Device{Serial: fields[0], State: fields[1]})
	}
	return devices, nil
}

// Shell runs a command on the device through adb shell.
func (c *Client) Shell(ctx context.Context, serial, command string, timeout time.Duration) (bridge.Result, error) {
	stdout, stderr, code, err := c.run(ctx, timeout, c.args(serial, "shell", command))
	if err != nil {
		return bridge.Result{}, err
	}
	return bridge.Result{Stdout: string(stdout), Stderr: string(stderr), Code: code}, nil
}

// ExecOut runs a command through adb exec-out and returns raw stdout bytes.
// Unlike shell, exec-out does not mangle binary output with tty translation.
func (c *Client) ExecOut(ctx context.Context, serial, command string, timeout time.Duration) ([]byte, error) {
	stdout, stderr, code, err := c.run(ctx, timeout, c.args(serial, "exec-out", command))
	if err != nil {
		return nil, err
	}
	if code != 0 {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = "exec-out command failed"
		}
		return nil, errors.New(errors.Transient, msg)
	}
	return stdout, nil
}

// Push copies a local file onto the device.
func (c *Client) Push(ctx context.Context, serial, localPath, remotePath string, timeout time.Duration) error {
	_, stderr, code, err := c.run(ctx, timeout, c.args(serial, "push", localPath, remotePath))
	if err != nil {
		return err
	}
	if code != 0 {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = "push failed"
		}
		return errors.New(errors.Transient, msg)
	}
	return nil
}

var _ bridge.Bridge = (*Client)(nil)
