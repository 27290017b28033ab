// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lifecycle implements SGT lifecycle management: a stable
// registry of SGT definitions plus dynamic endpoint-to-SGT membership, with every assignment change preserved in an
// audit-trail history.
package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/backend/confidence"
	"github.com/sgerhart/clarion-sub001/internal/backend/model"
	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
)

// Store is the persistence seam the lifecycle manager reads and writes
// through. internal/backend/storage provides a durable implementation;
// tests and the in-process pipeline can use NewMemoryStore.
type Store interface {
	GetSGT(sgtValue int) (model.SGTRegistryEntry, bool)
	PutSGT(entry model.SGTRegistryEntry)
	ListSGTs(activeOnly bool) []model.SGTRegistryEntry

	GetMembership(endpointID string) (model.SGTMembership, bool)
	PutMembership(m model.SGTMembership)
	DeleteMembership(endpointID string)
	ListMembershipsBySGT(sgtValue int) []model.SGTMembership

	AppendHistory(h model.SGTAssignmentHistory)
	CloseHistory(endpointID string, sgtValue int, unassignedAt time.Time)
	HistoryFor(endpointID string) []model.SGTAssignmentHistory
}

// ClusterConfidenceLookup resolves the confidence of the clustering run
// that produced a given (endpointID, clusterID) assignment, when known.
type ClusterConfidenceLookup func(endpointID string, clusterID int) (float64, bool)

// Manager is the SGT lifecycle manager: registry CRUD, membership
// assignment/unassignment, and history queries.
type Manager struct {
	store  Store
	lookup ClusterConfidenceLookup
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClusterConfidenceLookup supplies the function used to look up a
// cluster assignment's confidence when AssignEndpoint isn't given one
// explicitly.
func WithClusterConfidenceLookup(f ClusterConfidenceLookup) Option {
	return func(m *Manager) { m.lookup = f }
}

// WithClock overrides the manager's time source; tests use this to make
// assignment timestamps deterministic.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New constructs a Manager over store.
func New(store Store, opts ...Option) *Manager {
	m := &Manager{store: store, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateSGT adds a new registry entry. Returns clarionerr.ErrDuplicateSGT
// if an active entry already occupies sgtValue.
func (m *Manager) CreateSGT(sgtValue int, name string, category model.SGTCategory, description string) (model.SGTRegistryEntry, error) {
	if existing, ok := m.store.GetSGT(sgtValue); ok && existing.IsActive {
		return model.SGTRegistryEntry{}, fmt.Errorf("%w: %d (%s)", clarionerr.ErrDuplicateSGT, sgtValue, existing.SGTName)
	}

	now := m.now()
	entry := model.SGTRegistryEntry{
		SGTValue:    sgtValue,
		SGTName:     name,
		Category:    category,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.store.PutSGT(entry)
	return entry, nil
}

// GetSGT looks up one registry entry.
func (m *Manager) GetSGT(sgtValue int) (model.SGTRegistryEntry, bool) {
	return m.store.GetSGT(sgtValue)
}

// ListSGTs returns registry entries, optionally filtering to active ones.
func (m *Manager) ListSGTs(activeOnly bool) []model.SGTRegistryEntry {
	entries := m.store.ListSGTs(activeOnly)
	sort.Slice(entries, func(i, j int) bool { return entries[i].SGTValue < entries[j].SGTValue })
	return entries
}

// DeactivateSGT soft-deletes sgtValue: existing memberships are untouched,
// but future AssignEndpoint calls against it fail.
func (m *Manager) DeactivateSGT(sgtValue int) error {
	entry, ok := m.store.GetSGT(sgtValue)
	if !ok {
		return fmt.Errorf("%w: %d", clarionerr.ErrUnknownSGT, sgtValue)
	}
	entry.IsActive = false
	entry.UpdatedAt = m.now()
	m.store.PutSGT(entry)
	return nil
}

// AssignEndpoint describes one endpoint-to-SGT assignment request.
// ClusterID is optional context for confidence derivation. When
// HasConfidence is false, the manager derives Confidence from the
// originating cluster's confidence (via the lookup function) and the
// endpoint's assignment-history length; "manual" assignments always get
// confidence 1.0 regardless of HasConfidence.
type AssignEndpoint struct {
	EndpointID    string
	SGTValue      int
	AssignedBy    string
	Confidence    float64
	HasConfidence bool
	ClusterID     *int
}

// AssignEndpoint assigns endpointID to an SGT, closing out any prior
// membership into history before recording the new one. Returns
// clarionerr.ErrUnknownSGT / clarionerr.ErrInactiveSGT if the target SGT
// doesn't exist or has been deactivated.
func (m *Manager) AssignEndpoint(req AssignEndpoint) (model.SGTMembership, error) {
	sgt, ok := m.store.GetSGT(req.SGTValue)
	if !ok {
		return model.SGTMembership{}, fmt.Errorf("%w: %d", clarionerr.ErrUnknownSGT, req.SGTValue)
	}
	if !sgt.IsActive {
		return model.SGTMembership{}, fmt.Errorf("%w: %d", clarionerr.ErrInactiveSGT, req.SGTValue)
	}

	conf := req.Confidence
	if !req.HasConfidence {
		conf = m.deriveConfidence(req)
	}
	if req.AssignedBy == "manual" {
		conf = 1.0
	}

	now := m.now()
	if prior, had := m.store.GetMembership(req.EndpointID); had {
		m.closeHistory(prior, now)
	}

	membership := model.SGTMembership{
		EndpointID:         req.EndpointID,
		SGTValue:           req.SGTValue,
		AssignedAt:         now,
		AssignedBy:         req.AssignedBy,
		Confidence:         conf,
		OriginatingCluster: req.ClusterID,
	}
	m.store.PutMembership(membership)
	m.store.AppendHistory(model.SGTAssignmentHistory{
		EndpointID: req.EndpointID,
		SGTValue:   req.SGTValue,
		AssignedAt: now,
		AssignedBy: req.AssignedBy,
	})

	return membership, nil
}

func (m *Manager) deriveConfidence(req AssignEndpoint) float64 {
	clusterConfidence := 0.7
	if req.ClusterID != nil && m.lookup != nil {
		if c, ok := m.lookup(req.EndpointID, *req.ClusterID); ok {
			clusterConfidence = c
		}
	}
	historyCount := len(m.store.HistoryFor(req.EndpointID))
	return confidence.ForSGTAssignment(clusterConfidence, nil, historyCount)
}

// closeHistory stamps UnassignedAt on the still-open history row for
// prior's (endpoint, sgt), leaving every earlier row untouched. This goes
// through the store's dedicated close operation rather than re-appending,
// since AppendHistory is an insert-only operation.
func (m *Manager) closeHistory(prior model.SGTMembership, when time.Time) {
	m.store.CloseHistory(prior.EndpointID, prior.SGTValue, when)
}

// GetEndpointSGT returns endpointID's current membership, if any.
func (m *Manager) GetEndpointSGT(endpointID string) (model.SGTMembership, bool) {
	return m.store.GetMembership(endpointID)
}

// UnassignEndpoint removes endpointID's current membership and closes its
// history row. No-op if the endpoint has no membership.
func (m *Manager) UnassignEndpoint(endpointID string) {
	prior, ok := m.store.GetMembership(endpointID)
	if !ok {
		return
	}
	m.closeHistory(prior, m.now())
	m.store.DeleteMembership(endpointID)
}

// ListEndpointsBySGT returns every current membership for sgtValue.
func (m *Manager) ListEndpointsBySGT(sgtValue int) []model.SGTMembership {
	return m.store.ListMembershipsBySGT(sgtValue)
}

// AssignmentHistory returns endpointID's full history, most recent first.
func (m *Manager) AssignmentHistory(endpointID string) []model.SGTAssignmentHistory {
	h := append([]model.SGTAssignmentHistory(nil), m.store.HistoryFor(endpointID)...)
	sort.Slice(h, func(i, j int) bool { return h[i].AssignedAt.After(h[j].AssignedAt) })
	return h
}

// BulkResult summarizes an AssignEndpointsBulk call.
type BulkResult struct {
	AssignedCount int
	TotalCount    int
	Errors        []BulkError
}

// BulkError names the endpoint an AssignEndpointsBulk entry failed for.
type BulkError struct {
	EndpointID string
	Err        error
}

// AssignEndpointsBulk assigns every request in order, collecting failures
// instead of aborting the batch on the first error.
func (m *Manager) AssignEndpointsBulk(requests []AssignEndpoint) BulkResult {
	result := BulkResult{TotalCount: len(requests)}
	for _, req := range requests {
		if _, err := m.AssignEndpoint(req); err != nil {
			result.Errors = append(result.Errors, BulkError{EndpointID: req.EndpointID, Err: err})
			continue
		}
		result.AssignedCount++
	}
	return result
}

// SGTSummary aggregates one SGT's current membership.
type SGTSummary struct {
	SGT               model.SGTRegistryEntry
	MemberCount       int
	AverageConfidence float64
	AssignmentsBySource map[string]int
}

// GetSGTSummary builds a membership summary for sgtValue, or false if the
// SGT doesn't exist.
func (m *Manager) GetSGTSummary(sgtValue int) (SGTSummary, bool) {
	sgt, ok := m.store.GetSGT(sgtValue)
	if !ok {
		return SGTSummary{}, false
	}
	members := m.store.ListMembershipsBySGT(sgtValue)

	bySource := map[string]int{}
	var sum float64
	for _, mm := range members {
		bySource[mm.AssignedBy]++
		sum += mm.Confidence
	}
	avg := 0.0
	if len(members) > 0 {
		avg = sum / float64(len(members))
	}

	return SGTSummary{
		SGT:                 sgt,
		MemberCount:         len(members),
		AverageConfidence:   avg,
		AssignmentsBySource: bySource,
	}, true
}
