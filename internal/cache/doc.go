// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package cache implements the cache coordinator: a cross-process, time-bounded
// key/value store that parallel test workers share through a distributed slot
// (fast path) and a durable JSON document (slow path), serialized by a named
// edit lock. Values are restricted to what JSON can represent; numbers come
// back as float64, sequences as []any, and mappings as map[string]any.
package cache
