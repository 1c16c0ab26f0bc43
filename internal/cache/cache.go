// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultSlotKey is the fixed name of the distributed slot holding the
	// shared snapshot for a run.
	DefaultSlotKey = "runcache"
	// DefaultEditLock is the fixed name of the global mutation lock.
	DefaultEditLock = "runcache-edit"
	// DefaultTTL is the time-to-live, in seconds, applied when a caller does
	// not choose one.
	DefaultTTL = 3600
)

// ErrKeyNotFound is returned by Retrieve when a key is absent or expired.
var ErrKeyNotFound = errors.New("key not found")

// Slot is the distributed slot provider: a named shared mutable value visible
// identically to every worker process in a run. A slot that no worker has set
// yet reports initialized=false.
type Slot interface {
	GetSlot(name string) (snap Snapshot, initialized bool, err error)
	SetSlot(name string, snap Snapshot) error
}

// Locker is the named mutual-exclusion provider. Acquire blocks until the
// lock is held; both calls are safe from any worker, and implementations are
// reentrant per holder.
type Locker interface {
	Acquire(name string) error
	Release(name string) error
}

// Store is the durable snapshot store. Load never fails on missing or
// malformed content; it resets the document to empty instead and only errors
// when the storage itself is unavailable.
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
	// Path identifies the backing document for diagnostics and lock scoping.
	Path() string
}

// Cache coordinates the slot, the lock manager, and the durable store into
// one consistent view for all workers.
type Cache struct {
	slot     Slot
	locks    Locker
	store    Store
	slotKey  string
	editLock string
}

type Option func(*Cache)

// WithSlotKey overrides the distributed slot name.
func WithSlotKey(key string) Option {
	return func(c *Cache) { c.slotKey = key }
}

// WithEditLock overrides the global mutation lock name.
func WithEditLock(name string) Option {
	return func(c *Cache) { c.editLock = name }
}

func New(slot Slot, locks Locker, store Store, opts ...Option) *Cache {
	c := &Cache{
		slot:     slot,
		locks:    locks,
		store:    store,
		slotKey:  DefaultSlotKey,
		editLock: DefaultEditLock,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the cache's durable store.
func (c *Cache) Store() Store {
	return c.store
}

// Retrieve returns the value cached under key. Absent and expired keys both
// come back as ErrKeyNotFound; an expired entry is removed under the edit
// lock before the miss is reported. Pure reads never take the edit lock.
func (c *Cache) Retrieve(key string) (any, error) {
	snap, err := c.Materialize()
	if err != nil {
		return nil, err
	}

	entry, ok := snap[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	// Materialize already filtered, but the entry may have crossed its
	// expiration between the filter and here. Evict it for everyone rather
	// than just ignoring it locally.
	if entry.IsExpired(time.Now()) {
		if err := c.Remove(key); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}

	return entry.Value, nil
}

// Put inserts or silently overwrites the entry for key with the given
// time-to-live. Last writer wins.
func (c *Cache) Put(key string, value any, ttlSeconds int) error {
	var snap Snapshot
	err := c.withEditLock(func() error {
		var err error
		snap, err = c.Materialize()
		if err != nil {
			return err
		}

		snap[key] = NewEntry(value, ttlSeconds)
		return c.slot.SetSlot(c.slotKey, snap)
	})
	if err != nil {
		return err
	}

	// The slow durable write happens after the lock is gone. The store
	// serializes racing writers on its own path-scoped lock.
	return c.store.Save(snap)
}

// Remove deletes key if present. Removing an absent key is a no-op and
// publishes nothing.
func (c *Cache) Remove(key string) error {
	var snap Snapshot
	removed := false
	err := c.withEditLock(func() error {
		var err error
		snap, err = c.Materialize()
		if err != nil {
			return err
		}

		if _, ok := snap[key]; !ok {
			return nil
		}

		delete(snap, key)
		removed = true
		return c.slot.SetSlot(c.slotKey, snap)
	})
	if err != nil || !removed {
		return err
	}

	return c.store.Save(snap)
}

// Reset replaces the whole cache with an empty snapshot.
func (c *Cache) Reset() error {
	empty := Snapshot{}
	if err := c.withEditLock(func() error {
		return c.slot.SetSlot(c.slotKey, empty)
	}); err != nil {
		return err
	}

	return c.store.Save(empty)
}

// Materialize builds the current authoritative snapshot: the slot if any
// worker has initialized it this run, else the durable store. Expired entries
// are dropped and the filtered result is pushed back to both places so the
// cleanup is shared instead of being redone by every worker.
func (c *Cache) Materialize() (Snapshot, error) {
	snap, initialized, err := c.slot.GetSlot(c.slotKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", c.slotKey, err)
	}

	if !initialized {
		snap, err = c.store.Load()
		if err != nil {
			return nil, err
		}
		log.Debugf("slot %s empty, loaded %d entries from %s", c.slotKey, len(snap), c.store.Path())
	}

	filtered := snap.Filter(time.Now())
	if dropped := len(snap) - len(filtered); dropped > 0 {
		log.Debugf("dropped %d expired entries", dropped)
	}

	if err := c.slot.SetSlot(c.slotKey, filtered); err != nil {
		return nil, fmt.Errorf("failed to publish slot %s: %w", c.slotKey, err)
	}
	if err := c.store.Save(filtered); err != nil {
		return nil, err
	}

	return filtered, nil
}

// withEditLock runs fn while holding the global mutation lock. The lock is
// released on every exit path, and a failed release surfaces as the call's
// error when fn itself succeeded.
func (c *Cache) withEditLock(fn func() error) (err error) {
	if err := c.locks.Acquire(c.editLock); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", c.editLock, err)
	}
	defer func() {
		if rerr := c.locks.Release(c.editLock); rerr != nil && err == nil {
			err = fmt.Errorf("failed to release lock %s: %w", c.editLock, rerr)
		}
	}()

	return fn()
}
