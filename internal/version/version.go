// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package version carries the build version stamped in by the release
// workflow.
package version

// Version is overridden at build time via -ldflags.
var Version = "dev"
