// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package driller resolves dotted paths against JSON documents, drilling
// through single-element arrays so callers can address values without
// caring about incidental nesting.
package driller
