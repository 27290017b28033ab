// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package batch implements the backend batch clusterer: density-based
// clustering over the standardized feature matrix. It needs no target k,
// marks sparse regions as noise (-1), and reports a quality metric. The
// core algorithm is DBSCAN with an automatically estimated neighborhood
// radius, followed by a min-cluster-size pass that folds undersized
// clusters back into noise; min_cluster_size and min_samples are the only
// knobs.
package batch

import (
	"math"
	"sort"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

// Config controls the clustering run.
type Config struct {
	MinClusterSize int
	MinSamples     int
	Metric         Metric
}

// Metric computes the distance between two feature vectors.
type Metric func(a, b []float64) float64

// Euclidean is the default distance metric.
func Euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// DefaultConfig suits batches of a few thousand endpoints.
func DefaultConfig() Config {
	return Config{MinClusterSize: 50, MinSamples: 10, Metric: Euclidean}
}

// Cluster runs density-based clustering over rows, one per endpointID at
// the same index. Empty input returns an empty result; input with fewer
// points than MinClusterSize produces all noise.
func Cluster(endpointIDs []string, rows [][]float64, cfg Config) *model.ClusterResult {
	n := len(rows)
	if n == 0 {
		return &model.ClusterResult{ClusterSizes: map[int]int{}}
	}
	if cfg.Metric == nil {
		cfg.Metric = Euclidean
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	if n < cfg.MinClusterSize {
		return finalize(endpointIDs, rows, labels, cfg)
	}

	eps := estimateEpsilon(rows, cfg.MinSamples, cfg.Metric)
	dbscan(rows, eps, cfg.MinSamples, cfg.Metric, labels)
	enforceMinClusterSize(labels, cfg.MinClusterSize)

	return finalize(endpointIDs, rows, labels, cfg)
}

// estimateEpsilon picks a neighborhood radius from the median distance to
// each point's k-th nearest neighbor (k = minSamples), the standard
// DBSCAN "k-distance" heuristic, so callers do not have to hand-tune eps
// per feature space.
func estimateEpsilon(rows [][]float64, minSamples int, metric Metric) float64 {
	n := len(rows)
	k := minSamples
	if k >= n {
		k = n - 1
	}
	if k < 1 {
		return 0
	}

	kDistances := make([]float64, 0, n)
	for i, row := range rows {
		dists := make([]float64, 0, n-1)
		for j, other := range rows {
			if i == j {
				continue
			}
			dists = append(dists, metric(row, other))
		}
		sort.Float64s(dists)
		if len(dists) >= k {
			kDistances = append(kDistances, dists[k-1])
		}
	}
	if len(kDistances) == 0 {
		return 0
	}

	sort.Float64s(kDistances)
	return kDistances[len(kDistances)/2] // median k-distance
}

// dbscan labels points in-place: cluster ids starting at 0, -1 for noise.
func dbscan(rows [][]float64, eps float64, minSamples int, metric Metric, labels []int) {
	n := len(rows)
	visited := make([]bool, n)
	nextCluster := 0

	neighbors := func(i int) []int {
		var out []int
		for j := range rows {
			if j != i && metric(rows[i], rows[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neigh := neighbors(i)
		if len(neigh)+1 < minSamples {
			continue // stays noise (-1) unless later absorbed by another core point's expansion
		}

		labels[i] = nextCluster
		queue := append([]int(nil), neigh...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if !visited[j] {
				visited[j] = true
				jNeigh := neighbors(j)
				if len(jNeigh)+1 >= minSamples {
					queue = append(queue, jNeigh...)
				}
			}
			if labels[j] == -1 {
				labels[j] = nextCluster
			}
		}
		nextCluster++
	}
}

// enforceMinClusterSize folds any cluster with fewer than minSize members
// back into noise.
func enforceMinClusterSize(labels []int, minSize int) {
	counts := map[int]int{}
	for _, l := range labels {
		if l >= 0 {
			counts[l]++
		}
	}
	for i, l := range labels {
		if l >= 0 && counts[l] < minSize {
			labels[i] = -1
		}
	}
}

func finalize(endpointIDs []string, rows [][]float64, labels []int, cfg Config) *model.ClusterResult {
	sizes := map[int]int{}
	nNoise := 0
	clusterIDs := map[int]bool{}
	for _, l := range labels {
		if l == -1 {
			nNoise++
			continue
		}
		sizes[l]++
		clusterIDs[l] = true
	}

	result := &model.ClusterResult{
		EndpointIDs:  append([]string(nil), endpointIDs...),
		Labels:       append([]int(nil), labels...),
		NClusters:    len(clusterIDs),
		NNoise:       nNoise,
		ClusterSizes: sizes,
	}

	if result.NClusters >= 2 {
		s := silhouette(rows, labels, cfg.Metric)
		result.Silhouette = &s
	}

	return result
}

// silhouette computes the mean silhouette coefficient over non-noise
// points: for each point, (b-a)/max(a,b) where a is the mean intra-cluster
// distance and b is the mean distance to the nearest other cluster.
func silhouette(rows [][]float64, labels []int, metric Metric) float64 {
	byCluster := map[int][]int{}
	for i, l := range labels {
		if l >= 0 {
			byCluster[l] = append(byCluster[l], i)
		}
	}

	var total float64
	var count int
	for i, l := range labels {
		if l < 0 {
			continue
		}
		members := byCluster[l]
		a := meanDistanceTo(rows, i, members, metric, true)

		b := math.MaxFloat64
		for other, idxs := range byCluster {
			if other == l {
				continue
			}
			d := meanDistanceTo(rows, i, idxs, metric, false)
			if d < b {
				b = d
			}
		}
		if b == math.MaxFloat64 {
			continue
		}

		s := 0.0
		if m := math.Max(a, b); m > 0 {
			s = (b - a) / m
		}
		total += s
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func meanDistanceTo(rows [][]float64, i int, members []int, metric Metric, excludeSelf bool) float64 {
	var sum float64
	n := 0
	for _, j := range members {
		if excludeSelf && j == i {
			continue
		}
		sum += metric(rows[i], rows[j])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
