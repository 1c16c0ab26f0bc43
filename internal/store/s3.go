// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/apex/log"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	awsx "github.com/staranto/runcachego/internal/aws"
	"github.com/staranto/runcachego/internal/cache"
	"github.com/staranto/runcachego/internal/seal"
)

// WithRegion overrides the AWS region for S3-backed stores.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithProfile selects an AWS shared config profile for S3-backed stores.
func WithProfile(profile string) Option {
	return func(o *options) { o.profile = profile }
}

// S3Store persists snapshots to a single S3 object named by an s3:// URL, so
// workers spread across hosts still share one durable document.
type S3Store struct {
	ctx       context.Context
	client    *s3v2.Client
	bucket    string
	key       string
	url       string
	locks     cache.Locker
	warnBytes int64
	sealer    *seal.Sealer
}

// NewS3 builds a store for the object at rawURL, shaped s3://bucket/key.
func NewS3(ctx context.Context, rawURL string, locks cache.Locker, opts ...Option) (*S3Store, error) {
	o := newOptions(opts)

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad store url %q: %w", rawURL, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return nil, fmt.Errorf("bad store url %q: want s3://bucket/key", rawURL)
	}

	var awsOpts []awsx.Option
	if o.region != "" {
		awsOpts = append(awsOpts, awsx.WithRegion(o.region))
	}
	if o.profile != "" {
		awsOpts = append(awsOpts, awsx.WithProfile(o.profile))
	}

	cfg, err := awsx.LoadAWSConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Store{
		ctx:       ctx,
		client:    awsx.NewS3(cfg),
		bucket:    u.Host,
		key:       key,
		url:       rawURL,
		locks:     locks,
		warnBytes: o.warnBytes,
		sealer:    o.sealer,
	}, nil
}

func (s *S3Store) Path() string {
	return s.url
}

// Load reads the durable object, healing a missing or unparsable one to
// empty. Bucket-level failures propagate, a reachable-but-empty store and an
// unreachable one are different things.
func (s *S3Store) Load() (cache.Snapshot, error) {
	var snap cache.Snapshot
	err := s.withLock(func() error {
		out, err := s.client.GetObject(s.ctx, &s3v2.GetObjectInput{
			Bucket: awsv2.String(s.bucket),
			Key:    awsv2.String(s.key),
		})
		if err != nil {
			var noKey *types.NoSuchKey
			if !errors.As(err, &noKey) {
				return fmt.Errorf("failed to get %s: %w", s.url, err)
			}

			log.Debugf("no object at %s, starting empty", s.url)
			if err := s.write(emptyDocument(s.sealer)); err != nil {
				return err
			}
			snap = cache.Snapshot{}
			return nil
		}
		defer out.Body.Close()

		raw, err := io.ReadAll(out.Body)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", s.url, err)
		}

		snap, err = decode(raw, s.sealer, s.url)
		if errors.Is(err, errUnreadable) {
			log.Warnf("resetting unreadable cache object %s", s.url)
			if err := s.write(emptyDocument(s.sealer)); err != nil {
				return err
			}
			snap = cache.Snapshot{}
			return nil
		}
		if err != nil {
			return err
		}

		warnSize(s.url, int64(len(raw)), s.warnBytes)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *S3Store) Save(snap cache.Snapshot) error {
	raw, err := encode(snap, s.sealer, s.url)
	if err != nil {
		return err
	}

	return s.withLock(func() error {
		return s.write(raw)
	})
}

func (s *S3Store) write(raw []byte) error {
	_, err := s.client.PutObject(s.ctx, &s3v2.PutObjectInput{
		Bucket:      awsv2.String(s.bucket),
		Key:         awsv2.String(s.key),
		Body:        bytes.NewReader(raw),
		ContentType: awsv2.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", s.url, err)
	}
	return nil
}

func (s *S3Store) withLock(fn func() error) (err error) {
	name := "file-" + s.url
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
