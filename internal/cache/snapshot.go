// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package cache

import (
	"encoding/json"
	"time"

	"github.com/staranto/runcachego/internal/expire"
)

// Entry is a single cached value and the instant it expires.
type Entry struct {
	Value   any
	Expires time.Time
}

// NewEntry builds an entry expiring ttlSeconds from now.
func NewEntry(value any, ttlSeconds int) Entry {
	return Entry{
		Value:   value,
		Expires: expire.At(time.Now(), ttlSeconds),
	}
}

// IsExpired reports whether the entry is stale as of now.
func (e Entry) IsExpired(now time.Time) bool {
	return expire.IsExpired(e.Expires, now)
}

// entryJSON is the durable shape of an Entry. The expiration travels as an
// ISO-8601 local-time string.
type entryJSON struct {
	Value   any    `json:"value"`
	Expires string `json:"expires"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		Value:   e.Value,
		Expires: expire.Format(e.Expires),
	})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var ej entryJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	expires, err := expire.Parse(ej.Expires)
	if err != nil {
		return err
	}

	e.Value = ej.Value
	e.Expires = expires
	return nil
}

// Snapshot is the complete cache state at one instant. It is built fresh on
// every materialization, mutated inside a lock scope, published, and then
// discarded. Nothing holds onto a Snapshot between operations.
type Snapshot map[string]Entry

// Filter returns a new snapshot without the entries that are expired as of
// now.
func (s Snapshot) Filter(now time.Time) Snapshot {
	filtered := make(Snapshot, len(s))
	for key, entry := range s {
		if entry.IsExpired(now) {
			continue
		}
		filtered[key] = entry
	}
	return filtered
}

// Keys returns the snapshot's keys in no particular order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	return keys
}

// Marshal serializes the snapshot into its durable JSON document form.
func (s Snapshot) Marshal() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// UnmarshalSnapshot parses a durable JSON document. Callers own the decision
// of what to do when the document is malformed.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	snap := Snapshot{}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return snap, nil
}
