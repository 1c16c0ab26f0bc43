// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package filed coordinates workers through a run-scoped directory on a
// shared filesystem. Slots are atomically written files and locks are
// flock(2) files, so any process that knows the run id participates.
package filed

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/staranto/runcachego/internal/cache"
)

type Coordinator struct {
	dir string

	mu   sync.Mutex
	held map[string]*heldLock
}

// heldLock tracks one acquired flock and how many times this worker has
// re-acquired it. The file handle stays open until the depth drains.
type heldLock struct {
	fl    *flock.Flock
	depth int
}

type Option func(*Coordinator)

// FromRunID scopes the coordination directory to one run. Every worker of
// the run must use the same id.
func FromRunID(runID string) Option {
	return func(c *Coordinator) {
		c.dir = filepath.Join(os.TempDir(), "runcache-"+runID)
	}
}

// WithDir uses an explicit coordination directory instead of the run-scoped
// default.
func WithDir(dir string) Option {
	return func(c *Coordinator) {
		c.dir = dir
	}
}

// NewCoordinator builds a coordinator modeling one worker process. Instances
// sharing a directory coordinate with each other; reentrancy is tracked per
// instance.
func NewCoordinator(opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		held: map[string]*heldLock{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dir == "" {
		return nil, fmt.Errorf("no coordination directory, set a run id")
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create coordination directory %s: %w", c.dir, err)
	}

	return c, nil
}

func (c *Coordinator) GetSlot(name string) (cache.Snapshot, bool, error) {
	raw, err := os.ReadFile(c.slotPath(name))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot %s: %w", name, err)
	}

	snap, err := cache.UnmarshalSnapshot(raw)
	if err != nil {
		return nil, false, fmt.Errorf("slot %s holds unreadable content: %w", name, err)
	}

	return snap, true, nil
}

func (c *Coordinator) SetSlot(name string, snap cache.Snapshot) error {
	raw, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal slot %s: %w", name, err)
	}

	if err := atomic.WriteFile(c.slotPath(name), bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", name, err)
	}

	return nil
}

// Acquire blocks until the named lock is held. Re-acquiring a name this
// instance already holds just deepens it.
func (c *Coordinator) Acquire(name string) error {
	c.mu.Lock()
	if h, ok := c.held[name]; ok {
		h.depth++
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	fl := flock.New(filepath.Join(c.dir, name+".lock"))
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}

	c.mu.Lock()
	c.held[name] = &heldLock{fl: fl, depth: 1}
	c.mu.Unlock()

	return nil
}

func (c *Coordinator) Release(name string) error {
	c.mu.Lock()
	h, ok := c.held[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("lock %s is not held", name)
	}

	h.depth--
	if h.depth > 0 {
		c.mu.Unlock()
		return nil
	}
	delete(c.held, name)
	c.mu.Unlock()

	// The lock file itself stays behind. Removing it would race a competing
	// worker that already opened it.
	if err := h.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}

	return nil
}

func (c *Coordinator) slotPath(name string) string {
	return filepath.Join(c.dir, "slot-"+name+".json")
}
