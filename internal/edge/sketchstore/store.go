// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sketchstore implements the edge-resident bounded map of
// endpoint-id to EndpointSketch. Eviction keys off the sketch's own
// last_seen timestamp rather than a generic TTL or LRU clock: the endpoint
// least recently observed on the wire is the one that goes.
package sketchstore

import (
	"sync"

	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

// Store is a capacity-bounded cache of endpoint sketches. A single writer
// is expected (the edge ingestion task); Snapshot gives readers a stable
// slice of the current entries without blocking the writer for longer than
// the copy. The sketches in that slice are the stored ones, not copies.
type Store struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*endpoint.Sketch

	evictions uint64
}

// New creates a store bounded at capacity (typically 500 endpoints).
func New(capacity int) *Store {
	return &Store{
		capacity: capacity,
		entries:  make(map[string]*endpoint.Sketch, capacity),
	}
}

// GetOrCreate returns the existing sketch for endpointID, or inserts and
// returns a new one, evicting the oldest-last_seen entry first if the store
// is already at capacity.
func (s *Store) GetOrCreate(endpointID, switchID string, params endpoint.Params) *endpoint.Sketch {
	endpointID = clarion.NormalizeEndpointID(endpointID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if sk, ok := s.entries[endpointID]; ok {
		return sk
	}

	if len(s.entries) >= s.capacity {
		s.evictLocked()
	}

	sk := endpoint.New(endpointID, switchID, params)
	s.entries[endpointID] = sk
	return sk
}

// Put inserts or replaces sk, evicting if at capacity and sk is new.
func (s *Store) Put(sk *endpoint.Sketch) {
	key := clarion.NormalizeEndpointID(sk.EndpointID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.capacity {
		s.evictLocked()
	}
	s.entries[key] = sk
}

// Get returns the sketch for endpointID, if present.
func (s *Store) Get(endpointID string) (*endpoint.Sketch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sk, ok := s.entries[clarion.NormalizeEndpointID(endpointID)]
	return sk, ok
}

// Delete removes endpointID from the store, if present.
func (s *Store) Delete(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, clarion.NormalizeEndpointID(endpointID))
}

// Len reports the current number of stored endpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Evictions reports the lifetime count of entries evicted for capacity.
func (s *Store) Evictions() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evictions
}

// Snapshot returns a stable, independent slice of the sketches currently
// stored. The sketches themselves remain owned by the store; callers must
// not mutate them concurrently with the writer.
func (s *Store) Snapshot() []*endpoint.Sketch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*endpoint.Sketch, 0, len(s.entries))
	for _, sk := range s.entries {
		out = append(out, sk)
	}
	return out
}

// evictLocked removes the entry with the smallest LastSeen, breaking ties
// by the lexicographically smallest endpoint id. Caller must hold s.mu.
func (s *Store) evictLocked() {
	var victim string
	first := true
	for id, sk := range s.entries {
		if first {
			victim = id
			first = false
			continue
		}
		cur := s.entries[victim]
		if sk.LastSeen.Before(cur.LastSeen) || (sk.LastSeen.Equal(cur.LastSeen) && id < victim) {
			victim = id
		}
	}
	if !first {
		delete(s.entries, victim)
		s.evictions++
	}
}
