// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batch

import "testing"

func TestCluster_EmptyInput(t *testing.T) {
	res := Cluster(nil, nil, DefaultConfig())
	if res.NClusters != 0 || res.NNoise != 0 {
		t.Errorf("expected empty result for empty input, got %+v", res)
	}
}

func TestCluster_BelowMinClusterSizeIsAllNoise(t *testing.T) {
	ids := []string{"e1", "e2", "e3"}
	rows := [][]float64{{0, 0}, {0.1, 0.1}, {0.2, 0}}
	res := Cluster(ids, rows, Config{MinClusterSize: 50, MinSamples: 2, Metric: Euclidean})
	if res.NClusters != 0 {
		t.Errorf("n_clusters = %d, want 0 (below min_cluster_size)", res.NClusters)
	}
	if res.NNoise != 3 {
		t.Errorf("n_noise = %d, want 3", res.NNoise)
	}
}

func densePoints(center []float64, n int, jitter float64) [][]float64 {
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, len(center))
		sign := 1.0
		if i%2 == 0 {
			sign = -1.0
		}
		for j, c := range center {
			row[j] = c + sign*jitter*float64(i%3)/10.0
		}
		out[i] = row
	}
	return out
}

func TestCluster_SeparatesTwoDenseGroups(t *testing.T) {
	group1 := densePoints([]float64{0, 0}, 20, 0.05)
	group2 := densePoints([]float64{20, 20}, 20, 0.05)
	rows := append(append([][]float64{}, group1...), group2...)
	ids := make([]string, len(rows))
	for i := range ids {
		ids[i] = string(rune('a' + i%26))
	}

	res := Cluster(ids, rows, Config{MinClusterSize: 10, MinSamples: 3, Metric: Euclidean})
	if res.NClusters < 1 {
		t.Fatalf("expected at least 1 cluster found, got %d (noise=%d)", res.NClusters, res.NNoise)
	}
	first := res.Labels[0]
	last := res.Labels[len(res.Labels)-1]
	if first != -1 && last != -1 && first == last {
		t.Errorf("expected the two far-apart dense groups in different clusters, got first=%d last=%d", first, last)
	}
}

func TestCluster_SilhouettePresentWithMultipleClusters(t *testing.T) {
	group1 := densePoints([]float64{0, 0}, 15, 0.05)
	group2 := densePoints([]float64{30, 30}, 15, 0.05)
	rows := append(append([][]float64{}, group1...), group2...)
	ids := make([]string, len(rows))
	for i := range ids {
		ids[i] = string(rune('a' + i%26))
	}

	res := Cluster(ids, rows, Config{MinClusterSize: 10, MinSamples: 3, Metric: Euclidean})
	if res.NClusters >= 2 && res.Silhouette == nil {
		t.Error("expected silhouette to be reported with >= 2 clusters")
	}
}
