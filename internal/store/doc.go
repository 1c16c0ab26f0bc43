// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package store persists cache snapshots across runs, either to a local
// JSON file or to an S3 object. Reads self-heal on missing or corrupt
// content and writes are serialized by a path-scoped lock.
package store
