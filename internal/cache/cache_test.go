// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/coord/memory"
	"github.com/staranto/runcachego/internal/store"
)

// newTestCache wires a cache the way main does, with the coordinator serving
// both the slot and the locks for the durable file.
func newTestCache(t *testing.T) (*cache.Cache, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "runcache.json")
	co := memory.NewCoordinator()

	return cache.New(co, co, store.NewFile(path, co)), path
}

func TestRetrieve_MissingKey(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.Retrieve("never-stored")
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)
}

func TestPutThenRetrieve(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Put("foo", "Hello, world", 3600))

	got, err := c.Retrieve("foo")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", got)
}

func TestPut_Overwrite(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Put("k", "first", 3600))
	require.NoError(t, c.Put("k", "second", 3600))

	got, err := c.Retrieve("k")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestPut_NullValueIsAHit(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Put("k", nil, 3600))

	got, err := c.Retrieve("k")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestPut_StructuredValues(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Put("list", []any{"a", float64(2), true}, 3600))
	require.NoError(t, c.Put("map", map[string]any{"n": float64(1), "s": "x"}, 3600))

	list, err := c.Retrieve("list")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", float64(2), true}, list)

	m, err := c.Retrieve("map")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(1), "s": "x"}, m)
}

func TestRemove(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Put("k", "v", 3600))
	require.NoError(t, c.Remove("k"))

	_, err := c.Retrieve("k")
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)

	// Removing again is a no-op, not an error.
	assert.NoError(t, c.Remove("k"))
}

func TestReset(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Put("a", 1, 3600))
	require.NoError(t, c.Put("b", 2, 3600))
	require.NoError(t, c.Reset())

	for _, key := range []string{"a", "b"} {
		_, err := c.Retrieve(key)
		assert.ErrorIs(t, err, cache.ErrKeyNotFound, key)
	}
}

func TestExpiry(t *testing.T) {
	c, _ := newTestCache(t)

	require.NoError(t, c.Put("fleeting", "v", 1))

	got, err := c.Retrieve("fleeting")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	time.Sleep(1100 * time.Millisecond)

	_, err = c.Retrieve("fleeting")
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)

	snap, err := c.Materialize()
	require.NoError(t, err)
	assert.NotContains(t, snap, "fleeting")
}

func TestDurableHandoffAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runcache.json")

	first := memory.NewCoordinator()
	c1 := cache.New(first, first, store.NewFile(path, first))
	require.NoError(t, c1.Put("k", "survives", 3600))

	// A fresh coordinator models a later run. Its slot is uninitialized, so
	// the value must come back through the durable file.
	second := memory.NewCoordinator()
	c2 := cache.New(second, second, store.NewFile(path, second))

	got, err := c2.Retrieve("k")
	require.NoError(t, err)
	assert.Equal(t, "survives", got)
}

func TestCorruptFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runcache.json")
	require.NoError(t, os.WriteFile(path, []byte("definitely not json"), 0o644))

	co := memory.NewCoordinator()
	c := cache.New(co, co, store.NewFile(path, co))

	_, err := c.Retrieve("anything")
	assert.ErrorIs(t, err, cache.ErrKeyNotFound)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestTwoWritersSerialized(t *testing.T) {
	c, _ := newTestCache(t)

	var g errgroup.Group
	g.Go(func() error { return c.Put("x", 1, 3600) })
	g.Go(func() error { return c.Put("x", 2, 3600) })
	require.NoError(t, g.Wait())

	got, err := c.Retrieve("x")
	require.NoError(t, err)
	assert.Contains(t, []any{float64(1), float64(2)}, got)
}

func TestComputeAndCache(t *testing.T) {
	c, _ := newTestCache(t)

	calls := 0
	fn := func() (any, error) {
		calls++
		return map[string]any{"n": 42}, nil
	}

	first, err := c.ComputeAndCache("Lookup", []string{"alpha"}, fn, 3600)
	require.NoError(t, err)

	second, err := c.ComputeAndCache("Lookup", []string{"alpha"}, fn, 3600)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, map[string]any{"n": float64(42)}, first)
}

func TestComputeAndCache_DistinctArgs(t *testing.T) {
	c, _ := newTestCache(t)

	calls := 0
	fn := func() (any, error) {
		calls++
		return calls, nil
	}

	_, err := c.ComputeAndCache("Lookup", []string{"10"}, fn, 3600)
	require.NoError(t, err)

	// Same meaning, different formatting, different key.
	_, err = c.ComputeAndCache("Lookup", []string{"10.0"}, fn, 3600)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestComputeAndCache_ErrorNotCached(t *testing.T) {
	c, _ := newTestCache(t)

	boom := errors.New("boom")
	calls := 0
	fn := func() (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return "ok", nil
	}

	_, err := c.ComputeAndCache("Flaky", nil, fn, 3600)
	assert.ErrorIs(t, err, boom)

	got, err := c.ComputeAndCache("Flaky", nil, fn, 3600)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}
