// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package memory coordinates workers within a single process. Slots live in
// a map of marshaled snapshots and locks are plain named mutexes, so holders
// within one process are indistinguishable and must not re-acquire a name
// they already hold.
package memory

import (
	"fmt"
	"sync"

	"github.com/staranto/runcachego/internal/cache"
)

type Coordinator struct {
	mu    sync.Mutex
	slots map[string][]byte
	locks map[string]*sync.Mutex
	held  map[string]bool
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		slots: map[string][]byte{},
		locks: map[string]*sync.Mutex{},
		held:  map[string]bool{},
	}
}

// GetSlot returns the snapshot published under name. Snapshots are kept in
// their marshaled form so callers always get a private copy.
func (c *Coordinator) GetSlot(name string) (cache.Snapshot, bool, error) {
	c.mu.Lock()
	raw, ok := c.slots[name]
	c.mu.Unlock()

	if !ok {
		return nil, false, nil
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

	c.mu.Lock()
	c.slots[name] = raw
	c.mu.Unlock()

	return nil
}

// Acquire blocks until the named lock is free.
func (c *Coordinator) Acquire(name string) error {
	c.named(name).Lock()

	c.mu.Lock()
	c.held[name] = true
	c.mu.Unlock()

	return nil
}

func (c *Coordinator) Release(name string) error {
	c.mu.Lock()
	if !c.held[name] {
		c.mu.Unlock()
		return fmt.Errorf("lock %s is not held", name)
	}
	delete(c.held, name)
	c.mu.Unlock()

	c.named(name).Unlock()

	return nil
}

func (c *Coordinator) named(name string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.locks[name]
	if !ok {
		m = &sync.Mutex{}
		c.locks[name] = m
	}

	return m
}
