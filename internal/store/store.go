// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"

	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/seal"
)

const (
	// DefaultFileName is the durable document written to the working
	// directory when no path is chosen.
	DefaultFileName = "runcache.json"
	// DefaultWarnBytes is the document size past which reads log a runaway
	// growth warning.
	DefaultWarnBytes = 500_000
)

// errUnreadable marks content that failed to parse and may be reset to an
// empty document. Seal failures never carry it.
var errUnreadable = errors.New("unreadable cache document")

// options holds optional overrides shared by the store kinds.
type options struct {
	warnBytes int64
	sealer    *seal.Sealer
	region    string
	profile   string
}

type Option func(*options)

// WithWarnBytes overrides the size warning threshold.
func WithWarnBytes(n int64) Option {
	return func(o *options) { o.warnBytes = n }
}

// WithSealer encrypts the document at rest. Reads of a sealed document
// require it.
func WithSealer(s *seal.Sealer) Option {
	return func(o *options) { o.sealer = s }
}

func newOptions(opts []Option) options {
	o := options{warnBytes: DefaultWarnBytes}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FileStore persists snapshots to a JSON document on the local filesystem.
type FileStore struct {
	path      string
	locks     cache.Locker
	warnBytes int64
	sealer    *seal.Sealer
}

// NewFile builds a store for the document at path. Cross-process exclusivity
// comes from the shared lock manager, not from filesystem locking.
func NewFile(path string, locks cache.Locker, opts ...Option) *FileStore {
	o := newOptions(opts)
	return &FileStore{
		path:      path,
		locks:     locks,
		warnBytes: o.warnBytes,
		sealer:    o.sealer,
	}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load reads the durable document. A missing or unparsable file is reset to
// empty and reported as such, never as an error. A sealed document that will
// not open is the one exception, that error always propagates.
func (s *FileStore) Load() (cache.Snapshot, error) {
	var snap cache.Snapshot
	err := s.withLock(func() error {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			log.Debugf("no cache file at %s, starting empty", s.path)
			if err := s.write(emptyDocument(s.sealer)); err != nil {
				return err
			}
			snap = cache.Snapshot{}
			return nil
		}

		snap, err = decode(raw, s.sealer, s.path)
		if errors.Is(err, errUnreadable) {
			log.Warnf("resetting unreadable cache file %s", s.path)
			if err := s.write(emptyDocument(s.sealer)); err != nil {
				return err
			}
			snap = cache.Snapshot{}
			return nil
		}
		if err != nil {
			return err
		}

		warnSize(s.path, int64(len(raw)), s.warnBytes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

// Save overwrites the durable document with snap.
func (s *FileStore) Save(snap cache.Snapshot) error {
	raw, err := encode(snap, s.sealer, s.path)
	if err != nil {
		return err
	}

	return s.withLock(func() error {
		return s.write(raw)
	})
}

func (s *FileStore) write(raw []byte) error {
	if err := atomic.WriteFile(s.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}

// withLock serializes document I/O on a lock scoped to the file path, so
// racing writers to the same path never interleave partial writes.
func (s *FileStore) withLock(fn func() error) (err error) {
	name := "file-" + s.path
	if err := s.locks.Acquire(name); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	defer func() {
		if rerr := s.locks.Release(name); rerr != nil && err == nil {
			err = fmt.Errorf("failed to release lock %s: %w", name, rerr)
		}
	}()

	return fn()
}

// decode applies the seal rules and parses the document. Seal failures are
// fatal. Parse failures come back wrapped in errUnreadable so callers can
// heal them.
func decode(raw []byte, sealer *seal.Sealer, source string) (cache.Snapshot, error) {
	if seal.IsSealed(raw) {
		if sealer == nil {
			return nil, fmt.Errorf("%s is sealed and %w", source, seal.ErrNoPassphrase)
		}
		plain, err := sealer.Open(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", source, err)
		}
		raw = plain
	}

	snap, err := cache.UnmarshalSnapshot(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUnreadable, err)
	}

	return snap, nil
}

func encode(snap cache.Snapshot, sealer *seal.Sealer, source string) ([]byte, error) {
	raw, err := snap.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache for %s: %w", source, err)
	}

	if sealer != nil {
		raw, err = sealer.Seal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to seal cache for %s: %w", source, err)
		}
	}

	return raw, nil
}

func emptyDocument(sealer *seal.Sealer) []byte {
	raw, _ := cache.Snapshot{}.Marshal()
	if sealer != nil {
		if sealed, err := sealer.Seal(raw); err == nil {
			return sealed
		}
	}
	return raw
}

func warnSize(source string, size, warnBytes int64) {
	if warnBytes > 0 && size > warnBytes {
		log.Warnf("cache %s is %s, past the %s warning threshold",
			source, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(warnBytes)))
	}
}
