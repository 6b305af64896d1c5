/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package version provides build version information.
package version

import "runtime"

// Version is the current version of the feeder.
// This is set at build time via ldflags:
//
//	-X github.com/friendsincode/petfeeder/internal/version.Version=X.Y.Z
var Version = "0.3.0"

// String renders the version with the Go toolchain it was built with.
func String() string {
	return "petfeeder " + Version + " (" + runtime.Version() + ")"
}
