// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package target defines the execution target: the tuple identifying one
// SQLite database instance inside an Android application's private storage.
// A target is immutable for the lifetime of a tool invocation and is the
// source of truth for cache keys and run-as command construction.
package target

import (
	"fmt"
	"strings"
)

// Target identifies one database instance on one device.
type Target struct {
	// Package is the Android application id, e.g. "com.example.app".
	Package string
	// Database is the SQLite filename, e.g. "app.db".
	Database string
	// UserID is the Android user profile for cloned apps (e.g. 95). Nil means
	// the default user.
	UserID *int
	// Serial selects a specific device (e.g. "192.168.0.10:5555" for WiFi
	// adb). Empty means the single connected device.
	Serial string
}

// RunAs wraps cmd in a run-as invocation for the target's package, adding
// the --user flag when a profile is set. With an empty cmd it returns the
// bare run-as prefix.
func (t Target) RunAs(cmd string) string {
	userFlag := ""
	if t.UserID != nil {
		userFlag = fmt.Sprintf(" --user %d", *t.UserID)
	}
	if cmd == "" {
		return fmt.Sprintf("run-as %s%s", t.Package, userFlag)
	}
	return fmt.Sprintf("run-as %s%s %s", t.Package, userFlag, cmd)
}

// CacheKey derives a deterministic filesystem-safe key from the identifying
// fields. Distinct targets never collide: the optional user and serial parts
// are included whenever set.
func (t Target) CacheKey() string {
	key := t.Package + "_" + t.Database
	if t.UserID != nil {
		key += fmt.Sprintf("_user%d", *t.UserID)
	}
	if t.Serial != "" {
		s := strings.NewReplacer(":", "_", ".", "_").Replace(t.Serial)
		key += "_" + s
	}
	return key
}

// String renders the target for log and error messages.
func (t Target) String() string {
	s := t.Package + "/" + t.Database
	if t.UserID != nil {
		s += fmt.Sprintf(" (user %d)", *t.UserID)
	}
	if t.Serial != "" {
		s += " on " + t.Serial
	}
	return s
}
