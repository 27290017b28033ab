// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package labeler

import (
	"strings"
	"testing"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

func TestExplain_ClusterProse(t *testing.T) {
	label := model.ClusterLabel{
		ClusterID:     2,
		DisplayName:   "Corporate Laptops",
		PrimaryReason: "Dominant device type: laptop",
		Confidence:    0.85,
		TopDeviceType: []model.SignalRatio{{Value: "laptop", Ratio: 0.9}},
		TopADGroups:   []model.SignalRatio{{Value: "Corp-Users", Ratio: 0.8}},
		Behavioral:    model.BehavioralSummary{AvgPeerDiversity: 12.5, AvgInOutRatio: 0.25},
		MemberCount:   40,
	}

	text := Explain(label)
	for _, want := range []string{
		"Dominant device type: laptop",
		"device types laptop (90%)",
		"AD groups Corp-Users (80%)",
		"client-like behavior",
		"All 40 members",
		"85%",
		"strong evidence",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("explanation missing %q:\n%s", want, text)
		}
	}
}

func TestExplain_ServerClusterPattern(t *testing.T) {
	label := model.ClusterLabel{
		ClusterID:  5,
		Confidence: 0.55,
		Behavioral: model.BehavioralSummary{IsServerCluster: true, AvgInOutRatio: 0.8, AvgPeerDiversity: 30},
	}
	text := Explain(label)
	if !strings.Contains(text, "server-like behavior") {
		t.Errorf("expected server-like pattern in %q", text)
	}
	if !strings.Contains(text, "good evidence") {
		t.Errorf("expected medium confidence assessment in %q", text)
	}
}

func TestExplain_NoiseReasons(t *testing.T) {
	label := model.ClusterLabel{
		ClusterID:   -1,
		MemberCount: 7,
		Behavioral:  model.BehavioralSummary{AvgPeerDiversity: 80, AvgInOutRatio: 0.5},
	}
	text := Explain(label)
	if !strings.Contains(text, "did not fit any cluster") {
		t.Errorf("expected noise framing in %q", text)
	}
	if !strings.Contains(text, "high peer diversity") {
		t.Errorf("expected high-diversity reason in %q", text)
	}
	if !strings.Contains(text, "lack identity markers") {
		t.Errorf("expected missing-identity reason in %q", text)
	}
}

func TestExplain_NoiseFallbackReason(t *testing.T) {
	label := model.ClusterLabel{
		ClusterID:   -1,
		MemberCount: 2,
		Behavioral:  model.BehavioralSummary{AvgPeerDiversity: 10, AvgInOutRatio: 0.5},
		TopADGroups: []model.SignalRatio{{Value: "Corp-Users", Ratio: 0.5}},
	}
	text := Explain(label)
	if !strings.Contains(text, "matches no established cluster") {
		t.Errorf("expected fallback outlier reason in %q", text)
	}
}
