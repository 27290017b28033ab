// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package incremental

import (
	"testing"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

func seedStore() *Store {
	return NewStore([]model.ClusterCentroid{
		{ClusterID: 0, Vector: []float64{0, 0}, MemberCount: 10},
		{ClusterID: 1, Vector: []float64{10, 10}, MemberCount: 10},
	})
}

func TestAssign_NearestCentroid(t *testing.T) {
	s := seedStore()
	label := Assign([]float64{0.5, 0.5}, s.Snapshot(), DefaultConfig(5))
	if label != 0 {
		t.Errorf("label = %d, want 0", label)
	}
}

func TestAssign_BeyondThresholdIsNoise(t *testing.T) {
	s := seedStore()
	label := Assign([]float64{100, 100}, s.Snapshot(), DefaultConfig(5))
	if label != -1 {
		t.Errorf("label = %d, want -1 (noise, beyond threshold)", label)
	}
}

func TestAssign_NoCentroidsIsNoise(t *testing.T) {
	s := NewStore(nil)
	label := Assign([]float64{1, 1}, s.Snapshot(), DefaultConfig(5))
	if label != -1 {
		t.Errorf("label = %d, want -1 with no centroids", label)
	}
}

func TestAssignAndUpdate_RecomputesCentroidAsRunningMean(t *testing.T) {
	s := seedStore()
	cfg := DefaultConfig(5)

	label := AssignAndUpdate(s, "e1", []float64{2, 2}, cfg)
	if label != 0 {
		t.Fatalf("label = %d, want 0", label)
	}

	updated, _, ok := s.get(0)
	if !ok {
		t.Fatal("expected cluster 0 centroid present")
	}
	if updated.MemberCount != 11 {
		t.Errorf("member_count = %d, want 11", updated.MemberCount)
	}
	wantX := (0.0*10 + 2.0) / 11
	if diff := updated.Vector[0] - wantX; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("centroid.x = %v, want %v", updated.Vector[0], wantX)
	}
}

func TestAssignBulk_UpdatesEachAffectedCentroidOnce(t *testing.T) {
	s := seedStore()
	cfg := DefaultConfig(5)

	ids := []string{"e1", "e2", "e3"}
	vectors := [][]float64{{0.1, 0.1}, {0.2, 0.2}, {100, 100}}

	res := AssignBulk(s, ids, vectors, cfg)
	if res.NNoise != 1 {
		t.Errorf("n_noise = %d, want 1", res.NNoise)
	}
	if res.Labels[0] != 0 || res.Labels[1] != 0 {
		t.Errorf("expected both near points assigned to cluster 0, got %v", res.Labels)
	}

	updated, _, ok := s.get(0)
	if !ok {
		t.Fatal("expected cluster 0 present")
	}
	if updated.MemberCount != 12 {
		t.Errorf("member_count = %d, want 12 (10 + 2 new members)", updated.MemberCount)
	}
}
