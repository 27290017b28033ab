// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kmeans implements the edge-resident clusterer: a memory-frugal
// k-means with k-means++ initialization that runs directly over the
// switch's own feature matrix, using only pure floating-point arithmetic
// so the edge process never pulls in a math/BLAS dependency.
package kmeans

import (
	"math"

	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
)

// Result is the outcome of a Fit call: per-point cluster labels and the
// final centroid vectors, one per label.
type Result struct {
	Labels    []int
	Centroids [][]float64
}

// Config controls the clustering run.
type Config struct {
	K          int
	MaxIter    int
	RandSource func() float64 // uniform [0,1); injected so runs are reproducible in tests
}

// DefaultConfig caps iteration at 10 rounds and leaves RandSource nil, so
// Fit derives a deterministic pseudo-random source from the matrix itself
// and an edge process never needs a system entropy source for clustering.
func DefaultConfig(k int) Config {
	return Config{K: k, MaxIter: 10, RandSource: nil}
}

// Fit clusters the rows of x (n points by f features) into at most k
// clusters. If n < k, each point becomes its own singleton cluster and no
// iteration runs.
func Fit(x [][]float64, cfg Config) (*Result, error) {
	n := len(x)
	if n == 0 {
		return &Result{Labels: nil, Centroids: nil}, nil
	}
	if cfg.K <= 0 {
		return nil, clarionerr.ErrInvalidInput
	}

	if n < cfg.K {
		centroids := make([][]float64, n)
		labels := make([]int, n)
		for i, row := range x {
			centroids[i] = append([]float64(nil), row...)
			labels[i] = i
		}
		return &Result{Labels: labels, Centroids: centroids}, nil
	}

	rnd := cfg.RandSource
	if rnd == nil {
		rnd = deterministicSource(x)
	}

	centroids := initPlusPlus(x, cfg.K, rnd)
	labels := make([]int, n)
	maxIter := cfg.MaxIter
	if maxIter <= 0 {
		maxIter = 10
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range x {
			best := nearestCentroid(row, centroids)
			if best != labels[i] {
				labels[i] = best
				changed = true
			}
		}

		centroids = recomputeCentroids(x, labels, cfg.K, len(x[0]))
		if !changed {
			break
		}
	}

	return &Result{Labels: labels, Centroids: centroids}, nil
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		d := squaredDistance(row, c)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// initPlusPlus picks k initial centroids via k-means++: the first uniformly
// at random, each subsequent one with probability proportional to its
// squared distance to the nearest centroid already chosen.
func initPlusPlus(x [][]float64, k int, rnd func() float64) [][]float64 {
	n := len(x)
	centroids := make([][]float64, 0, k)

	first := int(rnd() * float64(n))
	if first >= n {
		first = n - 1
	}
	centroids = append(centroids, append([]float64(nil), x[first]...))

	dist := make([]float64, n)
	for len(centroids) < k {
		var total float64
		for i, row := range x {
			d := squaredDistance(row, centroids[len(centroids)-1])
			if len(centroids) == 1 || d < dist[i] {
				dist[i] = d
			}
			total += dist[i]
		}

		if total == 0 {
			// All remaining points coincide with chosen centroids; pad with
			// repeats rather than loop forever.
			centroids = append(centroids, append([]float64(nil), x[len(centroids)%n]...))
			continue
		}

		target := rnd() * total
		var cum float64
		chosen := n - 1
		for i, d := range dist {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), x[chosen]...))
	}

	return centroids
}

func recomputeCentroids(x [][]float64, labels []int, k, f int) [][]float64 {
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, f)
	}
	for i, row := range x {
		l := labels[i]
		counts[l]++
		for j, v := range row {
			sums[l][j] += v
		}
	}

	centroids := make([][]float64, k)
	for i := range centroids {
		centroids[i] = make([]float64, f)
		if counts[i] == 0 {
			continue
		}
		for j := range centroids[i] {
			centroids[i][j] = sums[i][j] / float64(counts[i])
		}
	}
	return centroids
}

// deterministicSource derives a reproducible pseudo-random sequence from the
// input matrix itself (every coordinate's bit pattern folded into the
// seed), so that repeated
// Fit calls over the same data produce the same clustering without needing
// an entropy source on the switch.
func deterministicSource(x [][]float64) func() float64 {
	var seed uint64 = 0x9e3779b97f4a7c15
	for _, row := range x {
		for _, v := range row {
			bits := math.Float64bits(v)
			seed ^= bits
			seed *= 0xff51afd7ed558ccd
		}
	}
	state := seed
	return func() float64 {
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		return float64(state%1_000_000) / 1_000_000.0
	}
}
