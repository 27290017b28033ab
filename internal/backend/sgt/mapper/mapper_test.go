// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mapper

import (
	"testing"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

func buildResult(ids []string, labels []int) *model.ClusterResult {
	return &model.ClusterResult{EndpointIDs: ids, Labels: labels}
}

func TestGenerateTaxonomy_SkipsNoiseAndBelowMinSize(t *testing.T) {
	result := buildResult(
		[]string{"e1", "e2", "e3", "e4", "e5"},
		[]int{-1, 0, 0, 1, 1},
	)
	labels := map[int]model.ClusterLabel{
		-1: {ClusterID: -1, DisplayName: "Unclustered", MemberCount: 1, Confidence: 0.2},
		0:  {ClusterID: 0, DisplayName: "Corporate Laptops", MemberCount: 2, Confidence: 0.9},
		1:  {ClusterID: 1, DisplayName: "Mixed Cluster", MemberCount: 2, Confidence: 0.4},
	}

	m := New(Config{BaseSGTValue: 2, MinClusterSize: 2})
	tax := m.GenerateTaxonomy(result, labels)

	if tax.NSGTs != 2 {
		t.Fatalf("n_sgts = %d, want 2", tax.NSGTs)
	}
	if tax.TotalEndpoints != 5 {
		t.Errorf("total_endpoints = %d, want 5", tax.TotalEndpoints)
	}
	if tax.CoveredEndpoints != 4 {
		t.Errorf("covered_endpoints = %d, want 4", tax.CoveredEndpoints)
	}
	if tax.UncoveredEndpoints != 1 {
		t.Errorf("uncovered_endpoints = %d, want 1", tax.UncoveredEndpoints)
	}
}

func TestGenerateTaxonomy_TemplateNameAndCategory(t *testing.T) {
	result := buildResult([]string{"e1", "e2"}, []int{0, 0})
	labels := map[int]model.ClusterLabel{
		0: {ClusterID: 0, DisplayName: "Corporate Laptops", MemberCount: 2, Confidence: 0.8},
	}

	m := New(Config{BaseSGTValue: 2, MinClusterSize: 2})
	tax := m.GenerateTaxonomy(result, labels)

	if len(tax.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(tax.Recommendations))
	}
	rec := tax.Recommendations[0]
	if rec.SGTName != "Corporate_Laptops" {
		t.Errorf("sgt_name = %q, want Corporate_Laptops", rec.SGTName)
	}
	if rec.Category != model.CategoryUsers {
		t.Errorf("category = %q, want users", rec.Category)
	}
	if rec.SGTValue < 2 || rec.SGTValue > 9 {
		t.Errorf("sgt_value = %d, want in [2,9]", rec.SGTValue)
	}
}

func TestGenerateTaxonomy_MobileDevicesAllocateFromUsersRange(t *testing.T) {
	result := buildResult([]string{"e1", "e2"}, []int{0, 0})
	labels := map[int]model.ClusterLabel{
		0: {ClusterID: 0, DisplayName: "Mobile Devices", MemberCount: 2, Confidence: 0.8},
	}

	m := New(Config{BaseSGTValue: 2, MinClusterSize: 2})
	tax := m.GenerateTaxonomy(result, labels)

	if len(tax.Recommendations) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(tax.Recommendations))
	}
	rec := tax.Recommendations[0]
	if rec.Category != model.CategoryUsers {
		t.Errorf("category = %q, want users", rec.Category)
	}
	if rec.SGTValue < 2 || rec.SGTValue > 9 {
		t.Errorf("sgt_value = %d, want in [2,9]", rec.SGTValue)
	}
}

func TestGenerateTaxonomy_UnknownLabelFallsBackToBehavioral(t *testing.T) {
	result := buildResult([]string{"e1", "e2"}, []int{0, 0})
	labels := map[int]model.ClusterLabel{
		0: {
			ClusterID:   0,
			DisplayName: "Something Unrecognized",
			MemberCount: 2,
			Confidence:  0.5,
			Behavioral:  model.BehavioralSummary{IsServerCluster: true},
		},
	}

	m := New(Config{BaseSGTValue: 2, MinClusterSize: 2})
	tax := m.GenerateTaxonomy(result, labels)

	rec := tax.Recommendations[0]
	if rec.SGTName != "Servers" {
		t.Errorf("sgt_name = %q, want Servers", rec.SGTName)
	}
	if rec.Category != model.CategoryServers {
		t.Errorf("category = %q, want servers", rec.Category)
	}
	if rec.SGTValue < 10 || rec.SGTValue > 19 {
		t.Errorf("sgt_value = %d, want in [10,19]", rec.SGTValue)
	}
}

func TestGenerateTaxonomy_NameConflictGetsSuffixed(t *testing.T) {
	result := buildResult([]string{"e1", "e2", "e3", "e4"}, []int{0, 0, 1, 1})
	labels := map[int]model.ClusterLabel{
		0: {ClusterID: 0, DisplayName: "Corporate Laptops", MemberCount: 2, Confidence: 0.9},
		1: {ClusterID: 1, DisplayName: "Corporate Laptops", MemberCount: 2, Confidence: 0.7},
	}

	m := New(Config{BaseSGTValue: 2, MinClusterSize: 2})
	tax := m.GenerateTaxonomy(result, labels)

	if len(tax.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(tax.Recommendations))
	}
	names := map[string]bool{}
	for _, r := range tax.Recommendations {
		if names[r.SGTName] {
			t.Fatalf("duplicate sgt name %q", r.SGTName)
		}
		names[r.SGTName] = true
	}
	if !names["Corporate_Laptops"] || !names["Corporate_Laptops-2"] {
		t.Errorf("expected Corporate_Laptops and Corporate_Laptops-2, got %v", names)
	}
}

func TestGenerateTaxonomy_CategoryOverflowsIntoSpecial(t *testing.T) {
	labels := map[int]model.ClusterLabel{}
	ids := []string{}
	clusterLabels := []int{}
	for i := 0; i < 9; i++ {
		id := i
		labels[id] = model.ClusterLabel{ClusterID: id, DisplayName: "Corporate Laptops", MemberCount: 2, Confidence: 0.9}
		ids = append(ids, string(rune('a'+i))+"1", string(rune('a'+i))+"2")
		clusterLabels = append(clusterLabels, id, id)
	}
	result := buildResult(ids, clusterLabels)

	m := New(Config{BaseSGTValue: 2, MinClusterSize: 2})
	tax := m.GenerateTaxonomy(result, labels)

	overflowed := false
	for _, r := range tax.Recommendations {
		if r.Category == model.CategorySpecial {
			overflowed = true
		}
	}
	if !overflowed {
		t.Error("expected the 9th+ users-category cluster to overflow into special")
	}
}

func TestGenerateTaxonomy_ResetsCountersAcrossCalls(t *testing.T) {
	result := buildResult([]string{"e1", "e2"}, []int{0, 0})
	labels := map[int]model.ClusterLabel{
		0: {ClusterID: 0, DisplayName: "Corporate Laptops", MemberCount: 2, Confidence: 0.9},
	}

	m := New(Config{BaseSGTValue: 2, MinClusterSize: 2})
	first := m.GenerateTaxonomy(result, labels)
	second := m.GenerateTaxonomy(result, labels)

	if first.Recommendations[0].SGTValue != second.Recommendations[0].SGTValue {
		t.Errorf("expected identical allocation across independent runs, got %d and %d",
			first.Recommendations[0].SGTValue, second.Recommendations[0].SGTValue)
	}
}

func TestGenerateTaxonomy_EmptyLabels(t *testing.T) {
	m := New(Config{BaseSGTValue: 2, MinClusterSize: 2})
	tax := m.GenerateTaxonomy(buildResult(nil, nil), map[int]model.ClusterLabel{})
	if tax.NSGTs != 0 {
		t.Errorf("n_sgts = %d, want 0", tax.NSGTs)
	}
	if tax.AvgConfidence != 0 {
		t.Errorf("avg_confidence = %v, want 0", tax.AvgConfidence)
	}
}
