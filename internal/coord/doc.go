// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

// Package coord implements the coordination backends (memory, filed, and
// remote) that give every worker in a run the same view of the distributed
// slot and the named locks.
package coord
