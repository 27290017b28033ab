// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package labeler

import (
	"fmt"
	"strings"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

// Explain renders a human-readable explanation of why a cluster's members
// are grouped together: the primary reason, the supporting identity
// evidence, the behavioral pattern, and a confidence assessment. The noise
// cluster (-1) instead gets an explanation of why its members did NOT
// group. The result is stored alongside the label as its free-text
// explanation.
func Explain(label model.ClusterLabel) string {
	if label.ClusterID == -1 {
		return explainNoise(label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Primary reason: %s. ", label.PrimaryReason)

	if ev := evidence(label); ev != "" {
		fmt.Fprintf(&b, "Supporting evidence: %s. ", ev)
	}

	switch {
	case label.Behavioral.IsServerCluster:
		fmt.Fprintf(&b, "Members show server-like behavior (avg in/out ratio %.2f, avg peer diversity %.1f). ",
			label.Behavioral.AvgInOutRatio, label.Behavioral.AvgPeerDiversity)
	case label.Behavioral.AvgInOutRatio < 0.3:
		fmt.Fprintf(&b, "Members show client-like behavior (avg in/out ratio %.2f, avg peer diversity %.1f). ",
			label.Behavioral.AvgInOutRatio, label.Behavioral.AvgPeerDiversity)
	default:
		fmt.Fprintf(&b, "Members show a balanced communication pattern (avg in/out ratio %.2f, avg peer diversity %.1f). ",
			label.Behavioral.AvgInOutRatio, label.Behavioral.AvgPeerDiversity)
	}

	fmt.Fprintf(&b, "All %d members will share the same SGT and SGACL policies. Confidence: %.0f%% (%s).",
		label.MemberCount, label.Confidence*100, confidenceAssessment(label.Confidence))
	return b.String()
}

// evidence summarizes the top identity signals, strongest family first.
func evidence(label model.ClusterLabel) string {
	var parts []string
	if s := topSignals("device types", label.TopDeviceType); s != "" {
		parts = append(parts, s)
	}
	if s := topSignals("ISE profiles", label.TopISEProfile); s != "" {
		parts = append(parts, s)
	}
	if s := topSignals("AD groups", label.TopADGroups); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

func topSignals(family string, rs []model.SignalRatio) string {
	if len(rs) == 0 {
		return ""
	}
	n := len(rs)
	if n > 3 {
		n = 3
	}
	rendered := make([]string, 0, n)
	for _, r := range rs[:n] {
		rendered = append(rendered, fmt.Sprintf("%s (%.0f%%)", r.Value, r.Ratio*100))
	}
	return family + " " + strings.Join(rendered, ", ")
}

func confidenceAssessment(c float64) string {
	switch {
	case c >= 0.7:
		return "strong evidence for this grouping"
	case c >= 0.5:
		return "good evidence for this grouping"
	default:
		return "limited evidence, may need review"
	}
}

// explainNoise describes why the noise cluster's members did not group:
// high peer diversity, unusual traffic direction, low activity, mixed
// device types, or missing identity context.
func explainNoise(label model.ClusterLabel) string {
	var reasons []string
	if label.Behavioral.AvgPeerDiversity > 50 {
		reasons = append(reasons, fmt.Sprintf(
			"high peer diversity (avg %.1f) makes their behavior hard to categorize",
			label.Behavioral.AvgPeerDiversity))
	}
	if label.Behavioral.AvgInOutRatio < 0.2 {
		reasons = append(reasons, "they mostly send traffic but don't match typical client patterns")
	} else if label.Behavioral.AvgInOutRatio > 0.8 {
		reasons = append(reasons, "they mostly receive traffic but don't match typical server patterns")
	}
	if label.Behavioral.AvgPeerDiversity < 5 {
		reasons = append(reasons, fmt.Sprintf(
			"very limited activity (avg %.1f peers) gives little to group on",
			label.Behavioral.AvgPeerDiversity))
	}
	if len(label.TopDeviceType) > 1 {
		reasons = append(reasons, "they mix multiple device types")
	}
	if len(label.TopADGroups) == 0 && len(label.TopISEProfile) == 0 {
		reasons = append(reasons, "they lack identity markers (AD groups, ISE profiles)")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "their behavior matches no established cluster")
	}

	return fmt.Sprintf(
		"These %d endpoints did not fit any cluster: %s. They receive no automatic SGT; review each to assign one manually, create a new SGT for them, or leave them unclustered.",
		label.MemberCount, strings.Join(reasons, "; "))
}
