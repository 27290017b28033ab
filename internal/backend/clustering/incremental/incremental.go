// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package incremental implements the backend incremental clusterer:
// nearest-centroid assignment for endpoints arriving between batch
// clustering runs, reading a snapshot of stored
// centroids and writing updated centroids back under a single-writer
// discipline.
package incremental

import (
	"math"
	"sync"

	"github.com/sgerhart/clarion-sub001/internal/backend/clustering/batch"
	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

// Config controls assignment.
type Config struct {
	MaxDistanceThreshold float64
	Metric               batch.Metric
	// RecomputeCentroid updates the assigned cluster's centroid as the
	// running mean of its members after each assignment.
	RecomputeCentroid bool
}

// DefaultConfig picks a Euclidean metric and leaves centroid recomputation
// on.
func DefaultConfig(threshold float64) Config {
	return Config{MaxDistanceThreshold: threshold, Metric: batch.Euclidean, RecomputeCentroid: true}
}

// Store holds the in-memory centroid snapshot read at the start of a batch
// and serializes writes of updated centroids.
type Store struct {
	mu        sync.RWMutex
	centroids []model.ClusterCentroid
}

// NewStore seeds a Store from persisted centroids.
func NewStore(centroids []model.ClusterCentroid) *Store {
	return &Store{centroids: append([]model.ClusterCentroid(nil), centroids...)}
}

// Snapshot returns an independent copy of the current centroids for
// concurrent readers.
func (s *Store) Snapshot() []model.ClusterCentroid {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ClusterCentroid(nil), s.centroids...)
}

func (s *Store) get(clusterID int) (model.ClusterCentroid, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, c := range s.centroids {
		if c.ClusterID == clusterID {
			return c, i, true
		}
	}
	return model.ClusterCentroid{}, -1, false
}

func (s *Store) update(c model.ClusterCentroid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.centroids {
		if s.centroids[i].ClusterID == c.ClusterID {
			s.centroids[i] = c
			return
		}
	}
	s.centroids = append(s.centroids, c)
}

// Assign projects one endpoint's feature vector onto the nearest centroid
// in the snapshot. Returns -1 (noise) if the nearest distance exceeds
// cfg.MaxDistanceThreshold or there are no centroids at all.
func Assign(vector []float64, snapshot []model.ClusterCentroid, cfg Config) int {
	if len(snapshot) == 0 {
		return -1
	}
	metric := cfg.Metric
	if metric == nil {
		metric = batch.Euclidean
	}

	best := -1
	bestDist := math.MaxFloat64
	for _, c := range snapshot {
		d := metric(vector, c.Vector)
		if d < bestDist {
			bestDist = d
			best = c.ClusterID
		}
	}

	if bestDist > cfg.MaxDistanceThreshold {
		return -1
	}
	return best
}

// AssignAndUpdate assigns endpointID's vector against the Store's current
// snapshot, and if cfg.RecomputeCentroid is set and assignment succeeded,
// folds the vector into that cluster's running-mean centroid.
func AssignAndUpdate(s *Store, endpointID string, vector []float64, cfg Config) int {
	snapshot := s.Snapshot()
	label := Assign(vector, snapshot, cfg)
	if label == -1 || !cfg.RecomputeCentroid {
		return label
	}

	centroid, _, ok := s.get(label)
	if !ok {
		centroid = model.ClusterCentroid{ClusterID: label, Vector: append([]float64(nil), vector...), MemberCount: 1}
		s.update(centroid)
		return label
	}

	n := centroid.MemberCount
	newVector := make([]float64, len(centroid.Vector))
	for i := range newVector {
		newVector[i] = (centroid.Vector[i]*float64(n) + vector[i]) / float64(n+1)
	}
	centroid.Vector = newVector
	centroid.MemberCount = n + 1
	s.update(centroid)
	return label
}

// AssignBulk applies Assign to every (endpointID, vector) pair against one
// fixed snapshot, then -- if cfg.RecomputeCentroid is set -- recomputes
// each affected cluster's centroid once as the mean of its new members.
func AssignBulk(s *Store, endpointIDs []string, vectors [][]float64, cfg Config) *model.ClusterResult {
	snapshot := s.Snapshot()
	labels := make([]int, len(vectors))
	sums := map[int][]float64{}
	counts := map[int]int{}

	for i, v := range vectors {
		l := Assign(v, snapshot, cfg)
		labels[i] = l
		if l == -1 {
			continue
		}
		if _, ok := sums[l]; !ok {
			sums[l] = make([]float64, len(v))
		}
		for j, x := range v {
			sums[l][j] += x
		}
		counts[l]++
	}

	if cfg.RecomputeCentroid {
		for clusterID, sum := range sums {
			centroid, _, ok := s.get(clusterID)
			if !ok {
				centroid = model.ClusterCentroid{ClusterID: clusterID}
			}
			n := centroid.MemberCount + counts[clusterID]
			mean := make([]float64, len(sum))
			for j := range mean {
				base := 0.0
				if centroid.MemberCount > 0 {
					base = centroid.Vector[j] * float64(centroid.MemberCount)
				}
				mean[j] = (base + sum[j]) / float64(n)
			}
			centroid.Vector = mean
			centroid.MemberCount = n
			s.update(centroid)
		}
	}

	sizes := map[int]int{}
	nNoise := 0
	for _, l := range labels {
		if l == -1 {
			nNoise++
		} else {
			sizes[l]++
		}
	}

	return &model.ClusterResult{
		EndpointIDs:  append([]string(nil), endpointIDs...),
		Labels:       labels,
		NClusters:    len(sizes),
		NNoise:       nNoise,
		ClusterSizes: sizes,
	}
}
