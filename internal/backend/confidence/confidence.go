// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package confidence implements the shared confidence-scoring functions:
// normalizing distance, probability, cluster-size, and silhouette signals
// into a single 0.0-1.0 score, and classifying that score into a
// human-facing band.
package confidence

// Class is a human-facing confidence band.
type Class string

const (
	ClassVeryHigh Class = "very_high"
	ClassHigh     Class = "high"
	ClassMedium   Class = "medium"
	ClassLow      Class = "low"
	ClassVeryLow  Class = "very_low"
)

// Weights controls Combined's weighted average. The zero value is invalid;
// use DefaultWeights.
type Weights struct {
	Probability float64
	Distance    float64
	Size        float64
	Silhouette  float64
}

// DefaultWeights gives probability the largest share; it comes straight
// from the clustering algorithm.
func DefaultWeights() Weights {
	return Weights{Probability: 0.4, Distance: 0.3, Size: 0.2, Silhouette: 0.1}
}

// FromDistance maps a centroid distance to confidence via linear decay:
// 1.0 at distance 0, 0.0 at or beyond threshold.
func FromDistance(distance, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	if distance > threshold {
		return 0
	}
	c := 1.0 - (distance / threshold)
	if c < 0 {
		c = 0
	}
	return c
}

// FromProbability clamps an HDBSCAN-style membership probability to [0,1].
func FromProbability(probability float64) float64 {
	return clamp01(probability)
}

// FromClusterSize rewards clusters at or above minSize with full
// confidence, penalizes undersized clusters proportionally, and slightly
// discounts clusters at or beyond maxSize as potentially too heterogeneous.
func FromClusterSize(size, minSize, maxSize int) float64 {
	if size < minSize {
		ratio := float64(size) / float64(minSize)
		if ratio > 0.7 {
			ratio = 0.7
		}
		return ratio
	}
	if size >= maxSize {
		return 0.9
	}
	return 1.0
}

// FromSilhouetteScore maps a [-1,1] silhouette score onto [0,1].
func FromSilhouetteScore(silhouette float64) float64 {
	return clamp01((silhouette + 1.0) / 2.0)
}

// Scores holds the optional sub-scores Combined averages; a nil field is
// omitted from the weighted average entirely (not treated as zero).
type Scores struct {
	Distance    *float64
	Probability *float64
	Size        *float64
	Silhouette  *float64
}

// Combined folds the present sub-scores into one weighted average,
// renormalizing over only the weights of the scores that were supplied.
// Returns 0.5 if nothing was supplied.
func Combined(s Scores, w Weights) float64 {
	var weightedSum, totalWeight float64
	add := func(v *float64, weight float64) {
		if v == nil {
			return
		}
		weightedSum += *v * weight
		totalWeight += weight
	}
	add(s.Probability, w.Probability)
	add(s.Distance, w.Distance)
	add(s.Size, w.Size)
	add(s.Silhouette, w.Silhouette)

	if totalWeight == 0 {
		return 0.5
	}
	return clamp01(weightedSum / totalWeight)
}

// ClusterAssignmentInput carries the metrics available for one cluster
// assignment; any may be left nil/unset.
type ClusterAssignmentInput struct {
	ClusterID   int
	Distance    *float64
	Probability *float64
	ClusterSize *int
	Silhouette  *float64
}

// ForClusterAssignment derives a single confidence score for a cluster
// assignment. Noise (ClusterID == -1) always scores 0.2 regardless of the
// other inputs, matching the noise-label confidence floor used elsewhere.
func ForClusterAssignment(in ClusterAssignmentInput) float64 {
	if in.ClusterID == -1 {
		return 0.2
	}

	var scores Scores
	var present int
	var only float64

	if in.Distance != nil {
		v := FromDistance(*in.Distance, 2.0)
		scores.Distance = &v
		only, present = v, present+1
	}
	if in.Probability != nil {
		v := FromProbability(*in.Probability)
		scores.Probability = &v
		only, present = v, present+1
	}
	if in.ClusterSize != nil {
		v := FromClusterSize(*in.ClusterSize, 10, 1000)
		scores.Size = &v
		only, present = v, present+1
	}
	if in.Silhouette != nil {
		v := FromSilhouetteScore(*in.Silhouette)
		scores.Silhouette = &v
		only, present = v, present+1
	}

	if present == 0 {
		return 0.5
	}
	if present == 1 {
		return only
	}
	return Combined(scores, DefaultWeights())
}

// ForSGTAssignment derives an SGT-membership confidence from the
// originating cluster's confidence, an optional SGT-mapping confidence,
// and assignment-history length as a stability signal.
func ForSGTAssignment(clusterConfidence float64, sgtConfidence *float64, historyCount int) float64 {
	stabilityBoost := float64(historyCount) * 0.01
	if stabilityBoost > 0.1 {
		stabilityBoost = 0.1
	}

	if sgtConfidence != nil {
		combined := (clusterConfidence + *sgtConfidence) / 2.0
		return min1(combined + stabilityBoost)
	}
	return min1(clusterConfidence + stabilityBoost)
}

// Classify buckets a confidence score into a human-facing band.
func Classify(c float64) Class {
	switch {
	case c >= 0.9:
		return ClassVeryHigh
	case c >= 0.8:
		return ClassHigh
	case c >= 0.6:
		return ClassMedium
	case c >= 0.4:
		return ClassLow
	default:
		return ClassVeryLow
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min1(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
