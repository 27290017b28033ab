// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package storage implements the persistence boundary: the
// fixed set of capabilities every backend component reads and writes
// through. The interface is the contract; Store is the sqlite reference
// implementation, with sqlx for execution, squirrel for query
// construction, and golang-migrate for schema evolution.
package storage

import (
	"time"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

// IdentityRecord is the enrichment the identity resolver attaches to
// an endpoint, persisted alongside the sketch summary it was derived from.
type IdentityRecord struct {
	EndpointID string
	Username   string
	ADGroups   []string
	ISEProfile string
	DeviceType string
	Confidence float64
	UpdatedAt  time.Time
}

// Interface is the persistence boundary every backend component depends
// on. The core calls only these methods; the concrete store
// is replaceable.
type Interface interface {
	// Sketch summaries, the edge sync landing zone every analysis reads.
	UpsertSketchSummary(s clarion.SketchSummary) error
	ListSketchesBySwitch(switchID string) ([]clarion.SketchSummary, error)
	GetSketchSummary(endpointID string) (clarion.SketchSummary, bool, error)

	// Identity enrichment.
	UpsertIdentityRecord(r IdentityRecord) error
	GetIdentityRecord(endpointID string) (IdentityRecord, bool, error)

	// SGT registry.
	CreateSGT(entry model.SGTRegistryEntry) error
	GetSGT(sgtValue int) (model.SGTRegistryEntry, bool, error)
	ListSGTs(activeOnly bool) ([]model.SGTRegistryEntry, error)
	UpdateSGT(entry model.SGTRegistryEntry) error

	// SGT membership: one active row per endpoint.
	UpsertMembership(m model.SGTMembership) error
	CloseMembership(endpointID string, unassignedAt time.Time) error
	GetMembership(endpointID string) (model.SGTMembership, bool, error)
	ListMembershipsBySGT(sgtValue int) ([]model.SGTMembership, error)

	// SGT assignment history: append-only audit trail. AppendHistory
	// always inserts a new row; CloseHistory stamps unassignedAt on the
	// still-open row for (endpointID, sgtValue) without touching any other
	// row, so reassignment never mutates history by re-inserting it.
	AppendHistory(h model.SGTAssignmentHistory) error
	CloseHistory(endpointID string, sgtValue int, unassignedAt time.Time) error
	HistoryFor(endpointID string) ([]model.SGTAssignmentHistory, error)

	// Cluster centroids, the incremental assignment cache.
	StoreCentroid(c model.ClusterCentroid) error
	GetCentroid(clusterID int) (model.ClusterCentroid, bool, error)
	ListCentroids() ([]model.ClusterCentroid, error)

	// Cluster labels, stored with the free-text explanation the labeler
	// renders for each one.
	StoreClusterLabel(label model.ClusterLabel, explanation string) error
	GetClusterLabel(clusterID int) (model.ClusterLabel, string, bool, error)

	// Policy matrix cells and SGACL policies, rebuilt each run.
	StoreMatrixCell(cell model.MatrixCell) error
	ListMatrixCells() ([]model.MatrixCell, error)
	StoreSGACLPolicy(policy model.SGACLPolicy) error
	ListSGACLPolicies() ([]model.SGACLPolicy, error)

	Close() error
}
