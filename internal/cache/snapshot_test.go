// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/staranto/runcachego/internal/expire"
)

func TestSnapshotFilter(t *testing.T) {
	now := time.Now()
	snap := Snapshot{
		"fresh":   {Value: "a", Expires: now.Add(time.Hour)},
		"stale":   {Value: "b", Expires: now.Add(-time.Hour)},
		"on-edge": {Value: "c", Expires: now},
	}

	got := snap.Filter(now)

	assert.Contains(t, got, "fresh")
	assert.NotContains(t, got, "stale")
	// An entry expiring exactly now is already expired.
	assert.NotContains(t, got, "on-edge")

	// The original is untouched.
	assert.Len(t, snap, 3)
}

func TestSnapshotMarshal_Empty(t *testing.T) {
	var snap Snapshot

	raw, err := snap.Marshal()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestSnapshotRoundTrip(t *testing.T) {
	expires := time.Now().Add(time.Hour)
	snap := Snapshot{
		"k": {Value: map[string]any{"deep": []any{float64(1), "two"}}, Expires: expires},
	}

	raw, err := snap.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalSnapshot(raw)
	require.NoError(t, err)

	require.Contains(t, got, "k")
	assert.Equal(t, snap["k"].Value, got["k"].Value)
	assert.True(t, got["k"].Expires.Equal(expires.Truncate(time.Microsecond)))
}

func TestEntryMarshal_Format(t *testing.T) {
	entry := Entry{Value: "v", Expires: time.Date(2026, 3, 9, 14, 30, 0, 0, time.Local)}

	raw, err := entry.MarshalJSON()
	require.NoError(t, err)

	assert.Equal(t, "v", gjson.GetBytes(raw, "value").String())
	assert.Equal(t, "2026-03-09T14:30:00", gjson.GetBytes(raw, "expires").String())

	parsed, err := expire.Parse(gjson.GetBytes(raw, "expires").String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(entry.Expires))
}

func TestUnmarshalSnapshot_Garbage(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte("not even close"))
	assert.Error(t, err)
}

func TestUnmarshalSnapshot_BadExpires(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte(`{"k":{"value":1,"expires":"whenever"}}`))
	assert.Error(t, err)
}
