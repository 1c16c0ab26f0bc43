// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package server implements the coordination service behind the remote
// coordinator. It keeps named slots and named locks for workers that share
// nothing but a URL. State is in memory only and scoped to the server's
// lifetime, which matches a run.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 5 * time.Second

// maxSlotBytes bounds a single slot publish.
const maxSlotBytes = 16 << 20

type Server struct {
	token string

	mu    sync.Mutex
	slots map[string][]byte
	locks map[string]*lockState
}

// lockState is one held lock. Same-owner acquires nest, so depth drains
// before the lock frees.
type lockState struct {
	owner string
	depth int
}

type Option func(*Server)

// WithToken requires a matching bearer token on every request.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

func New(opts ...Option) *Server {
	s := &Server{
		slots: map[string][]byte{},
		locks: map[string]*lockState{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes the coordination API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/slot/{name}", s.getSlot)
	mux.HandleFunc("PUT /v1/slot/{name}", s.putSlot)
	mux.HandleFunc("POST /v1/locks/{name}/acquire", s.acquire)
	mux.HandleFunc("POST /v1/locks/{name}/release", s.release)

	return s.authed(mux)
}

// ListenAndServe runs the service until ctx is canceled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("coordination server listening on %s", addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) authed(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getSlot(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	s.mu.Lock()
	raw, ok := s.slots[name]
	s.mu.Unlock()

	if !ok {
		http.Error(w, fmt.Sprintf("slot %s is not initialized", name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Server) putSlot(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSlotBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if !json.Valid(raw) {
		http.Error(w, "body is not valid JSON", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.slots[name] = raw
	s.mu.Unlock()

	log.Debugf("slot %s updated, %d bytes", name, len(raw))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) acquire(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	owner, err := readOwner(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held, ok := s.locks[name]
	if ok && held.owner != owner {
		http.Error(w, fmt.Sprintf("lock %s held by %s", name, held.owner), http.StatusConflict)
		return
	}

	if !ok {
		held = &lockState{owner: owner}
		s.locks[name] = held
	}
	held.depth++

	log.Debugf("lock %s acquired by %s, depth %d", name, owner, held.depth)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"owner": held.owner, "depth": held.depth})
}

func (s *Server) release(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	owner, err := readOwner(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held, ok := s.locks[name]
	if !ok || held.owner != owner {
		http.Error(w, fmt.Sprintf("lock %s is not held by %s", name, owner), http.StatusConflict)
		return
	}

	held.depth--
	if held.depth == 0 {
		delete(s.locks, name)
	}

	log.Debugf("lock %s released by %s, depth %d", name, owner, held.depth)
	w.WriteHeader(http.StatusNoContent)
}

func readOwner(r *http.Request) (string, error) {
	var payload struct {
		Owner string `json:"owner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Owner == "" {
		return "", errors.New("owner is required")
	}
	return payload.Owner, nil
}
