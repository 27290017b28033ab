// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package confidence

import "testing"

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestFromDistance_LinearDecay(t *testing.T) {
	if c := FromDistance(0, 2.0); !approxEqual(c, 1.0) {
		t.Errorf("distance 0 -> %v, want 1.0", c)
	}
	if c := FromDistance(1.0, 2.0); !approxEqual(c, 0.5) {
		t.Errorf("distance 1 of 2 -> %v, want 0.5", c)
	}
	if c := FromDistance(3.0, 2.0); c != 0 {
		t.Errorf("distance beyond threshold -> %v, want 0", c)
	}
	if c := FromDistance(1.0, 0); c != 0 {
		t.Errorf("zero threshold -> %v, want 0", c)
	}
}

func TestFromClusterSize(t *testing.T) {
	if c := FromClusterSize(5, 10, 1000); !approxEqual(c, 0.5) {
		t.Errorf("undersized cluster -> %v, want 0.5", c)
	}
	if c := FromClusterSize(100, 10, 1000); c != 1.0 {
		t.Errorf("mid cluster -> %v, want 1.0", c)
	}
	if c := FromClusterSize(2000, 10, 1000); c != 0.9 {
		t.Errorf("oversized cluster -> %v, want 0.9", c)
	}
}

func TestFromSilhouetteScore(t *testing.T) {
	if c := FromSilhouetteScore(1.0); c != 1.0 {
		t.Errorf("silhouette 1.0 -> %v, want 1.0", c)
	}
	if c := FromSilhouetteScore(-1.0); c != 0.0 {
		t.Errorf("silhouette -1.0 -> %v, want 0.0", c)
	}
	if c := FromSilhouetteScore(0.0); !approxEqual(c, 0.5) {
		t.Errorf("silhouette 0.0 -> %v, want 0.5", c)
	}
}

func TestForClusterAssignment_NoiseAlwaysLow(t *testing.T) {
	d := 0.1
	if c := ForClusterAssignment(ClusterAssignmentInput{ClusterID: -1, Distance: &d}); c != 0.2 {
		t.Errorf("noise confidence = %v, want 0.2", c)
	}
}

func TestForClusterAssignment_NoMetricsDefaultsToHalf(t *testing.T) {
	if c := ForClusterAssignment(ClusterAssignmentInput{ClusterID: 0}); c != 0.5 {
		t.Errorf("no metrics confidence = %v, want 0.5", c)
	}
}

func TestForClusterAssignment_SingleMetricPassesThrough(t *testing.T) {
	p := 0.77
	if c := ForClusterAssignment(ClusterAssignmentInput{ClusterID: 0, Probability: &p}); !approxEqual(c, 0.77) {
		t.Errorf("single-metric confidence = %v, want 0.77", c)
	}
}

func TestForClusterAssignment_CombinesMultipleMetrics(t *testing.T) {
	p := 1.0
	s := 10
	c := ForClusterAssignment(ClusterAssignmentInput{ClusterID: 0, Probability: &p, ClusterSize: &s})
	if c <= 0 || c > 1 {
		t.Errorf("combined confidence out of range: %v", c)
	}
}

func TestForSGTAssignment_ManualOverrideIsCallerResponsibility(t *testing.T) {
	c := ForSGTAssignment(0.6, nil, 0)
	if !approxEqual(c, 0.6) {
		t.Errorf("confidence = %v, want 0.6 (no stability boost yet)", c)
	}
}

func TestForSGTAssignment_StabilityBoostCapsAtPointOne(t *testing.T) {
	c := ForSGTAssignment(0.5, nil, 50)
	if !approxEqual(c, 0.6) {
		t.Errorf("confidence = %v, want 0.6 (boost capped at 0.1)", c)
	}
}

func TestForSGTAssignment_AveragesWithSGTConfidence(t *testing.T) {
	sgt := 0.9
	c := ForSGTAssignment(0.7, &sgt, 0)
	if !approxEqual(c, 0.8) {
		t.Errorf("confidence = %v, want 0.8", c)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		score float64
		want  Class
	}{
		{0.95, ClassVeryHigh},
		{0.85, ClassHigh},
		{0.65, ClassMedium},
		{0.45, ClassLow},
		{0.1, ClassVeryLow},
	}
	for _, tc := range cases {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}
