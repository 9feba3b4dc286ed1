// Copyright (c) 2025 Droidsql
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package logging provides diagnostic output and error presentation helpers.
// Diagnostic lines are hidden by default and enabled with DROIDSQL_DEBUG=1;
// they carry the "worth surfacing but not alarming" detail of probe and
// fallback decisions without polluting normal command output.
package logging

import (
	"fmt"
	"os"
	"strings"
)

// Enabled reports whether diagnostic output is turned on.
func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("DROIDSQL_DEBUG"))
	return v == "1" || strings.EqualFold(v, "true")
}

// Debugf writes a diagnostic line to stderr when DROIDSQL_DEBUG is set.
func Debugf(format string, args ...any) {
	if !Enabled() {
		return
	}
	fmt.Fprintf(os.Stderr, "debug: "+format+"\n", args...)
}

// PresentError formats an error for user display.
func PresentError(context string, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", context, err.Error())
}
