// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apex/log"
)

// ComputeFunc produces a value worth caching. It is invoked only on a miss.
type ComputeFunc func() (any, error)

// ComputeAndCache returns the cached value for the key derived from name and
// args, computing and storing it first when absent or expired. The compute
// function runs at most once per key within a TTL window. The value handed
// back is always in its cached shape, so a fresh compute and a later hit are
// indistinguishable to the caller.
func (c *Cache) ComputeAndCache(name string, args []string, fn ComputeFunc, ttlSeconds int) (any, error) {
	key := DeriveKey(name, args...)

	value, err := c.Retrieve(key)
	if err == nil {
		log.Debugf("cache hit for %s", key)
		return value, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	log.Debugf("cache miss for %s, computing", key)
	computed, err := fn()
	if err != nil {
		return nil, fmt.Errorf("compute for %s failed: %w", key, err)
	}

	normalized, err := normalizeValue(computed)
	if err != nil {
		return nil, fmt.Errorf("compute for %s produced an uncacheable value: %w", key, err)
	}

	if err := c.Put(key, normalized, ttlSeconds); err != nil {
		return nil, err
	}

	return normalized, nil
}

// normalizeValue round-trips a value through its serialized form so callers
// see the same shapes (float64 numbers, []any sequences, map[string]any
// mappings) on a fresh compute as on a cache hit.
func normalizeValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
