// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lifecycle

import (
	"sync"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

// MemoryStore is an in-process Store implementation, used by tests; the
// pipeline supplies its own storage-backed Store.
type MemoryStore struct {
	mu          sync.Mutex
	sgts        map[int]model.SGTRegistryEntry
	memberships map[string]model.SGTMembership
	history     map[string][]model.SGTAssignmentHistory
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sgts:        map[int]model.SGTRegistryEntry{},
		memberships: map[string]model.SGTMembership{},
		history:     map[string][]model.SGTAssignmentHistory{},
	}
}

func (s *MemoryStore) GetSGT(sgtValue int) (model.SGTRegistryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sgts[sgtValue]
	return e, ok
}

func (s *MemoryStore) PutSGT(entry model.SGTRegistryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sgts[entry.SGTValue] = entry
}

func (s *MemoryStore) ListSGTs(activeOnly bool) []model.SGTRegistryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SGTRegistryEntry, 0, len(s.sgts))
	for _, e := range s.sgts {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *MemoryStore) GetMembership(endpointID string) (model.SGTMembership, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[endpointID]
	return m, ok
}

func (s *MemoryStore) PutMembership(m model.SGTMembership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m.EndpointID] = m
}

func (s *MemoryStore) DeleteMembership(endpointID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, endpointID)
}

func (s *MemoryStore) ListMembershipsBySGT(sgtValue int) []model.SGTMembership {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SGTMembership
	for _, m := range s.memberships {
		if m.SGTValue == sgtValue {
			out = append(out, m)
		}
	}
	return out
}

func (s *MemoryStore) AppendHistory(h model.SGTAssignmentHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.history[h.EndpointID]
	h.ID = int64(len(rows) + 1)
	s.history[h.EndpointID] = append(rows, h)
}

// CloseHistory stamps unassignedAt on the still-open row for
// (endpointID, sgtValue), mirroring the SQLite store's UPDATE semantics.
func (s *MemoryStore) CloseHistory(endpointID string, sgtValue int, unassignedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.history[endpointID]
	for i := range rows {
		if rows[i].SGTValue == sgtValue && rows[i].UnassignedAt == nil {
			rows[i].UnassignedAt = &unassignedAt
			return
		}
	}
}

func (s *MemoryStore) HistoryFor(endpointID string) []model.SGTAssignmentHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SGTAssignmentHistory(nil), s.history[endpointID]...)
}
