// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package remote coordinates workers through a runcache server. Each
// coordinator instance identifies itself to the server with a fresh owner
// id, which is what makes lock reentrancy work across requests.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/oklog/ulid/v2"

	"github.com/staranto/runcachego/internal/cache"
)

const (
	pollFloor = 1 * time.Millisecond
	pollCeil  = 25 * time.Millisecond
)

type Coordinator struct {
	Ctx    context.Context
	base   string
	token  string
	owner  string
	client *http.Client
}

type Option func(*Coordinator)

// WithToken sends a bearer token with every request.
func WithToken(token string) Option {
	return func(c *Coordinator) {
		c.token = token
	}
}

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Coordinator) {
		c.client = client
	}
}

// WithOwner overrides the generated owner id.
func WithOwner(owner string) Option {
	return func(c *Coordinator) {
		c.owner = owner
	}
}

func NewCoordinator(ctx context.Context, rawURL string, opts ...Option) (*Coordinator, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad coordinator url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("bad coordinator url %q: scheme must be http or https", rawURL)
	}

	c := &Coordinator{
		Ctx:    ctx,
		base:   strings.TrimRight(u.String(), "/"),
		owner:  ulid.Make().String(),
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}

	log.Debugf("remote coordinator %s as owner %s", c.base, c.owner)

	return c, nil
}

// Owner returns the id this instance locks under.
func (c *Coordinator) Owner() string {
	return c.owner
}

func (c *Coordinator) GetSlot(name string) (cache.Snapshot, bool, error) {
	status, body, err := c.do(http.MethodGet, "/v1/slot/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, false, err
	}

	switch status {
	case http.StatusNotFound:
		return nil, false, nil
	case http.StatusOK:
		snap, err := cache.UnmarshalSnapshot(body)
		if err != nil {
			return nil, false, fmt.Errorf("slot %s holds unreadable content: %w", name, err)
		}
		return snap, true, nil
	}

	return nil, false, fmt.Errorf("failed to read slot %s: %s", name, strings.TrimSpace(string(body)))
}

func (c *Coordinator) SetSlot(name string, snap cache.Snapshot) error {
	raw, err := snap.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal slot %s: %w", name, err)
	}

	status, body, err := c.do(http.MethodPut, "/v1/slot/"+url.PathEscape(name), raw)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("failed to write slot %s: %s", name, strings.TrimSpace(string(body)))
	}

	return nil
}

// Acquire polls the server until it grants the lock. The server answers 409
// while another owner holds it.
func (c *Coordinator) Acquire(name string) error {
	payload, _ := json.Marshal(map[string]string{"owner": c.owner})

	delay := pollFloor
	for {
		status, body, err := c.do(http.MethodPost, "/v1/locks/"+url.PathEscape(name)+"/acquire", payload)
		if err != nil {
			return err
		}

		switch status {
		case http.StatusOK, http.StatusNoContent:
			return nil
		case http.StatusConflict:
			// Held elsewhere. Back off and go again.
		default:
			return fmt.Errorf("failed to acquire lock %s: %s", name, strings.TrimSpace(string(body)))
		}

		select {
		case <-c.Ctx.Done():
			return fmt.Errorf("failed to acquire lock %s: %w", name, c.Ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > pollCeil {
			delay = pollCeil
		}
	}
}

func (c *Coordinator) Release(name string) error {
	payload, _ := json.Marshal(map[string]string{"owner": c.owner})

	status, body, err := c.do(http.MethodPost, "/v1/locks/"+url.PathEscape(name)+"/release", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("failed to release lock %s: %s", name, strings.TrimSpace(string(body)))
	}

	return nil
}

func (c *Coordinator) do(method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(c.Ctx, method, c.base+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("coordinator unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, body, nil
}
