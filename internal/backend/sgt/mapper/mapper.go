// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mapper implements the SGT mapper:
// turning a batch clustering run's labeled clusters into a proposed SGT
// taxonomy, allocating values from fixed category ranges and deriving
// names from a template table with behavioral fallback.
package mapper

import (
	"fmt"
	"sort"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

// sgtRange is an inclusive [low, high] band of SGT values reserved for one
// category.
type sgtRange struct{ low, high int }

// categoryRanges: users 2-9, servers 10-19, devices 20-29, special
// 30-39. Anything a category can't hold overflows into special.
var categoryRanges = map[model.SGTCategory]sgtRange{
	model.CategoryUsers:   {2, 9},
	model.CategoryServers: {10, 19},
	model.CategoryDevices: {20, 29},
	model.CategorySpecial: {30, 39},
}

// template is one entry of the fixed name/category table, keyed by the
// ClusterLabel.DisplayName the labeler produces.
type template struct {
	name     string
	category model.SGTCategory
}

// templates maps cluster display names the labeler is known to emit to a
// canonical SGT name and allocation category.
var templates = map[string]template{
	"Corporate Laptops":  {"Corporate_Laptops", model.CategoryUsers},
	"Mobile Devices":     {"Mobile_Devices", model.CategoryUsers},
	"IoT Devices":        {"IoT_Devices", model.CategoryDevices},
	"Servers":            {"Servers", model.CategoryServers},
	"Server-like Cluster": {"Server_Like_Endpoints", model.CategoryServers},
	"Printers":           {"Printers", model.CategoryDevices},
	"Security Cameras":   {"Security_Cameras", model.CategoryDevices},
}

// Config controls taxonomy generation.
type Config struct {
	// BaseSGTValue is the first value considered for the "users" category
	// when it lies inside that band (2-9); otherwise users start at 2. The
	// other categories' lower bounds follow categoryRanges regardless.
	BaseSGTValue int
	// MinClusterSize is the minimum member count for a cluster to receive
	// an SGT recommendation at all; smaller clusters are left uncovered.
	MinClusterSize int
}

func DefaultConfig() Config {
	return Config{BaseSGTValue: 2, MinClusterSize: 10}
}

// Mapper allocates SGT values with per-category counters. GenerateTaxonomy
// resets the counters on every call, so each taxonomy is allocated from the
// bottom of each band.
type Mapper struct {
	cfg     Config
	nextSGT map[model.SGTCategory]int
}

// New constructs a Mapper and resets its per-category counters to the
// bottom of each range.
func New(cfg Config) *Mapper {
	m := &Mapper{cfg: cfg}
	m.resetCounters()
	return m
}

func (m *Mapper) resetCounters() {
	usersStart := categoryRanges[model.CategoryUsers].low
	if b := m.cfg.BaseSGTValue; b > usersStart && b <= categoryRanges[model.CategoryUsers].high {
		usersStart = b
	}
	m.nextSGT = map[model.SGTCategory]int{
		model.CategoryUsers:   usersStart,
		model.CategoryServers: categoryRanges[model.CategoryServers].low,
		model.CategoryDevices: categoryRanges[model.CategoryDevices].low,
		model.CategorySpecial: categoryRanges[model.CategorySpecial].low,
	}
}

// GenerateTaxonomy builds an SGTTaxonomy from one clustering result and its
// per-cluster labels, skipping the noise cluster (-1) and any cluster below
// cfg.MinClusterSize. Clusters are processed in ascending cluster ID order
// so repeated runs over the same input allocate SGT values identically.
func (m *Mapper) GenerateTaxonomy(result *model.ClusterResult, labels map[int]model.ClusterLabel) model.SGTTaxonomy {
	m.resetCounters()
	usedNames := map[string]bool{}

	clusterIDs := make([]int, 0, len(labels))
	for id := range labels {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)

	var recs []model.SGTRecommendation
	covered := 0
	for _, clusterID := range clusterIDs {
		if clusterID == -1 {
			continue
		}
		label := labels[clusterID]
		if label.MemberCount < m.cfg.MinClusterSize {
			continue
		}
		rec := m.createRecommendation(clusterID, label, result, usedNames)
		recs = append(recs, rec)
		covered += rec.EndpointCount
		usedNames[rec.SGTName] = true
	}

	total := 0
	if result != nil {
		total = len(result.EndpointIDs)
	}
	uncovered := total - covered

	var avgConfidence float64
	if len(recs) > 0 {
		var sum float64
		for _, r := range recs {
			sum += r.Confidence
		}
		avgConfidence = sum / float64(len(recs))
	}

	return model.SGTTaxonomy{
		Recommendations:    recs,
		TotalEndpoints:     total,
		CoveredEndpoints:   covered,
		UncoveredEndpoints: uncovered,
		NSGTs:              len(recs),
		AvgConfidence:      avgConfidence,
	}
}

func (m *Mapper) createRecommendation(clusterID int, label model.ClusterLabel, result *model.ClusterResult, usedNames map[string]bool) model.SGTRecommendation {
	name, category := m.determineSGTName(label, usedNames)
	sgtValue, category := m.allocateSGTValue(category)

	var sample []string
	if result != nil {
		members := result.Members(clusterID)
		if len(members) > 10 {
			members = members[:10]
		}
		sample = members
	}

	return model.SGTRecommendation{
		ClusterID:       clusterID,
		SGTValue:        sgtValue,
		SGTName:         name,
		Category:        category,
		ClusterLabel:    label.DisplayName,
		ClusterSize:     label.MemberCount,
		Confidence:      label.Confidence,
		Justification:   justification(label),
		EndpointCount:   label.MemberCount,
		SampleEndpoints: sample,
	}
}

// determineSGTName picks a base name and category from the template table,
// falling back to behavioral heuristics for labels the table doesn't
// recognize, then disambiguates against usedNames by appending -2, -3, ...
func (m *Mapper) determineSGTName(label model.ClusterLabel, usedNames map[string]bool) (string, model.SGTCategory) {
	var baseName string
	var category model.SGTCategory

	if t, ok := templates[label.DisplayName]; ok {
		baseName, category = t.name, t.category
	} else {
		switch {
		case label.Behavioral.IsServerCluster:
			baseName, category = "Servers", model.CategoryServers
		case label.Behavioral.AvgInOutRatio > 0.6:
			baseName, category = "Receivers", model.CategoryServers
		default:
			baseName, category = "Users", model.CategoryUsers
		}
	}

	name := baseName
	for counter := 2; usedNames[name]; counter++ {
		name = fmt.Sprintf("%s-%d", baseName, counter)
	}
	return name, category
}

// allocateSGTValue returns the next unused value in category's range and
// the category it was drawn from, overflowing into "special" once the
// category's own band is exhausted.
func (m *Mapper) allocateSGTValue(category model.SGTCategory) (int, model.SGTCategory) {
	r, ok := categoryRanges[category]
	if !ok {
		category = model.CategorySpecial
		r = categoryRanges[category]
	}

	v := m.nextSGT[category]
	if v > r.high && category != model.CategorySpecial {
		category = model.CategorySpecial
		v = m.nextSGT[category]
	}
	m.nextSGT[category] = v + 1
	return v, category
}

func justification(label model.ClusterLabel) string {
	return fmt.Sprintf("%s (confidence %.2f, %d members)", label.PrimaryReason, label.Confidence, label.MemberCount)
}
