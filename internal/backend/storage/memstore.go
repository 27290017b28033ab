// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"sync"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

// MemStore is an in-process Interface implementation for tests; it carries
// no durability guarantees.
type MemStore struct {
	mu sync.Mutex

	sketches   map[string]clarion.SketchSummary
	identities map[string]IdentityRecord
	sgts       map[int]model.SGTRegistryEntry
	members    map[string]model.SGTMembership
	history    map[string][]model.SGTAssignmentHistory
	centroids  map[int]model.ClusterCentroid
	labels     map[int]model.ClusterLabel
	explain    map[int]string
	cells      map[[2]int]model.MatrixCell
	policies   map[[2]int]model.SGACLPolicy
}

var _ Interface = (*MemStore)(nil)

// NewMemStore constructs an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		sketches:   map[string]clarion.SketchSummary{},
		identities: map[string]IdentityRecord{},
		sgts:       map[int]model.SGTRegistryEntry{},
		members:    map[string]model.SGTMembership{},
		history:    map[string][]model.SGTAssignmentHistory{},
		centroids:  map[int]model.ClusterCentroid{},
		labels:     map[int]model.ClusterLabel{},
		explain:    map[int]string{},
		cells:      map[[2]int]model.MatrixCell{},
		policies:   map[[2]int]model.SGACLPolicy{},
	}
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) UpsertSketchSummary(s clarion.SketchSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sketches[s.EndpointID] = s
	return nil
}

func (m *MemStore) ListSketchesBySwitch(switchID string) ([]clarion.SketchSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []clarion.SketchSummary
	for _, s := range m.sketches {
		if s.SwitchID == switchID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemStore) GetSketchSummary(endpointID string) (clarion.SketchSummary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sketches[endpointID]
	return s, ok, nil
}

func (m *MemStore) UpsertIdentityRecord(r IdentityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[r.EndpointID] = r
	return nil
}

func (m *MemStore) GetIdentityRecord(endpointID string) (IdentityRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.identities[endpointID]
	return r, ok, nil
}

func (m *MemStore) CreateSGT(entry model.SGTRegistryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sgts[entry.SGTValue] = entry
	return nil
}

func (m *MemStore) UpdateSGT(entry model.SGTRegistryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sgts[entry.SGTValue] = entry
	return nil
}

func (m *MemStore) GetSGT(sgtValue int) (model.SGTRegistryEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sgts[sgtValue]
	return e, ok, nil
}

func (m *MemStore) ListSGTs(activeOnly bool) ([]model.SGTRegistryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SGTRegistryEntry
	for _, e := range m.sgts {
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemStore) UpsertMembership(mem model.SGTMembership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[mem.EndpointID] = mem
	return nil
}

func (m *MemStore) CloseMembership(endpointID string, unassignedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members, endpointID)
	return nil
}

func (m *MemStore) GetMembership(endpointID string) (model.SGTMembership, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[endpointID]
	return mem, ok, nil
}

func (m *MemStore) ListMembershipsBySGT(sgtValue int) ([]model.SGTMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SGTMembership
	for _, mem := range m.members {
		if mem.SGTValue == sgtValue {
			out = append(out, mem)
		}
	}
	return out, nil
}

func (m *MemStore) AppendHistory(h model.SGTAssignmentHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history[h.EndpointID] = append(m.history[h.EndpointID], h)
	return nil
}

func (m *MemStore) CloseHistory(endpointID string, sgtValue int, unassignedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.history[endpointID]
	for i := range rows {
		if rows[i].SGTValue == sgtValue && rows[i].UnassignedAt == nil {
			rows[i].UnassignedAt = &unassignedAt
			return nil
		}
	}
	return nil
}

func (m *MemStore) HistoryFor(endpointID string) ([]model.SGTAssignmentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SGTAssignmentHistory, len(m.history[endpointID]))
	copy(out, m.history[endpointID])
	return out, nil
}

func (m *MemStore) StoreCentroid(c model.ClusterCentroid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.centroids[c.ClusterID] = c
	return nil
}

func (m *MemStore) GetCentroid(clusterID int) (model.ClusterCentroid, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.centroids[clusterID]
	return c, ok, nil
}

func (m *MemStore) ListCentroids() ([]model.ClusterCentroid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ClusterCentroid, 0, len(m.centroids))
	for _, c := range m.centroids {
		out = append(out, c)
	}
	return out, nil
}

func (m *MemStore) StoreClusterLabel(label model.ClusterLabel, explanation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels[label.ClusterID] = label
	m.explain[label.ClusterID] = explanation
	return nil
}

func (m *MemStore) GetClusterLabel(clusterID int) (model.ClusterLabel, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.labels[clusterID]
	return l, m.explain[clusterID], ok, nil
}

func (m *MemStore) StoreMatrixCell(cell model.MatrixCell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cells[[2]int{cell.SrcSGT, cell.DstSGT}] = cell
	return nil
}

func (m *MemStore) ListMatrixCells() ([]model.MatrixCell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MatrixCell, 0, len(m.cells))
	for _, c := range m.cells {
		out = append(out, c)
	}
	return out, nil
}

func (m *MemStore) StoreSGACLPolicy(policy model.SGACLPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[[2]int{policy.SrcSGT, policy.DstSGT}] = policy
	return nil
}

func (m *MemStore) ListSGACLPolicies() ([]model.SGACLPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SGACLPolicy, 0, len(m.policies))
	for _, p := range m.policies {
		out = append(out, p)
	}
	return out, nil
}
