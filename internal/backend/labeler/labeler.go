// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package labeler derives cluster labels: a display name, primary reason,
// and confidence for each non-noise cluster from the dominant enrichment
// or behavioral signal among its members.
package labeler

import (
	"fmt"
	"sort"

	"github.com/sgerhart/clarion-sub001/internal/backend/identity"
	"github.com/sgerhart/clarion-sub001/internal/backend/model"
	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
)

// DominanceThreshold is the minimum ratio a signal must reach to be chosen
// as the primary reason.
const DominanceThreshold = 0.5

// Member pairs one cluster member's sketch with its resolved enrichment.
type Member struct {
	Sketch     *endpoint.Sketch
	Enrichment identity.Enrichment
}

// Label derives a ClusterLabel for one cluster's members. clusterID == -1
// is handled as the dedicated noise label.
func Label(clusterID int, members []Member) model.ClusterLabel {
	if clusterID == -1 {
		return noiseLabel(members)
	}
	if len(members) == 0 {
		return model.ClusterLabel{ClusterID: clusterID, DisplayName: "Empty Cluster", PrimaryReason: "No members", Confidence: 0.2}
	}

	deviceTypes := ratios(members, func(m Member) string { return m.Enrichment.DeviceType })
	iseProfiles := ratios(members, func(m Member) string { return m.Sketch.ISEProfile })
	adGroups := ratiosMulti(members, func(m Member) []string { return m.Enrichment.ADGroups })

	var primaryReason, displayName string
	var confidence float64

	switch {
	case topRatio(deviceTypes) >= DominanceThreshold:
		top := deviceTypes[0]
		primaryReason = fmt.Sprintf("Dominant device type: %s", top.Value)
		displayName = displayNameForDeviceType(top.Value)
		confidence = top.Ratio
	case topRatio(iseProfiles) >= DominanceThreshold:
		top := iseProfiles[0]
		primaryReason = fmt.Sprintf("Dominant ISE profile: %s", top.Value)
		displayName = top.Value
		confidence = top.Ratio
	case topRatio(adGroups) >= DominanceThreshold:
		top := adGroups[0]
		primaryReason = fmt.Sprintf("Dominant AD group: %s", top.Value)
		displayName = top.Value
		confidence = top.Ratio
	default:
		avgRatio := avgInOutRatio(members)
		if avgRatio > 0.6 {
			primaryReason = "Server-like behavior"
			displayName = "Server-like Cluster"
		} else {
			primaryReason = "Mixed behavior"
			displayName = "Mixed Cluster"
		}
		confidence = avgRatio
	}

	confidence = clamp(confidence, 0.2, 1.0)
	avgPeer := avgPeerDiversity(members)
	avgInOut := avgInOutRatio(members)

	return model.ClusterLabel{
		ClusterID:     clusterID,
		DisplayName:   displayName,
		PrimaryReason: primaryReason,
		Confidence:    confidence,
		TopADGroups:   adGroups,
		TopISEProfile: iseProfiles,
		TopDeviceType: deviceTypes,
		Behavioral: model.BehavioralSummary{
			AvgPeerDiversity: avgPeer,
			AvgInOutRatio:    avgInOut,
			IsServerCluster:  avgInOut > 0.6,
		},
		MemberCount: len(members),
	}
}

// noiseLabel describes why a set of points did not form a cluster, picking
// the most plausible explanation among high diversity, low activity, lack
// of identity, and mixed device types.
func noiseLabel(members []Member) model.ClusterLabel {
	n := len(members)
	if n == 0 {
		return model.ClusterLabel{ClusterID: -1, DisplayName: "Noise", PrimaryReason: "No members", Confidence: 0.2}
	}

	var highDiversity, lowActivity, noIdentity int
	deviceTypes := map[string]int{}
	for _, m := range members {
		if m.Sketch.PeerDiversity() > 200 {
			highDiversity++
		}
		if m.Sketch.FlowCount < 5 {
			lowActivity++
		}
		if m.Enrichment.Username == "" {
			noIdentity++
		}
		if m.Enrichment.DeviceType != "" {
			deviceTypes[m.Enrichment.DeviceType]++
		}
	}

	reason := "Mixed device types and behaviors"
	switch {
	case float64(noIdentity)/float64(n) >= DominanceThreshold:
		reason = "Lack of resolvable identity"
	case float64(highDiversity)/float64(n) >= DominanceThreshold:
		reason = "High peer/service diversity prevented stable grouping"
	case float64(lowActivity)/float64(n) >= DominanceThreshold:
		reason = "Insufficient activity to establish a behavioral pattern"
	case len(deviceTypes) > 1:
		reason = "Mixed device types"
	}

	return model.ClusterLabel{
		ClusterID:     -1,
		DisplayName:   "Unclustered",
		PrimaryReason: reason,
		Confidence:    0.2,
		Behavioral: model.BehavioralSummary{
			AvgPeerDiversity: avgPeerDiversity(members),
			AvgInOutRatio:    avgInOutRatio(members),
		},
		MemberCount: n,
	}
}

func ratios(members []Member, key func(Member) string) []model.SignalRatio {
	counts := map[string]int{}
	total := 0
	for _, m := range members {
		v := key(m)
		if v == "" {
			continue
		}
		counts[v]++
		total++
	}
	return toRatios(counts, total)
}

func ratiosMulti(members []Member, key func(Member) []string) []model.SignalRatio {
	counts := map[string]int{}
	total := 0
	for _, m := range members {
		vs := key(m)
		if len(vs) == 0 {
			continue
		}
		total++
		for _, v := range vs {
			counts[v]++
		}
	}
	return toRatios(counts, total)
}

func toRatios(counts map[string]int, total int) []model.SignalRatio {
	if total == 0 {
		return nil
	}
	out := make([]model.SignalRatio, 0, len(counts))
	for v, c := range counts {
		out = append(out, model.SignalRatio{Value: v, Ratio: float64(c) / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ratio != out[j].Ratio {
			return out[i].Ratio > out[j].Ratio
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func topRatio(rs []model.SignalRatio) float64 {
	if len(rs) == 0 {
		return 0
	}
	return rs[0].Ratio
}

func avgPeerDiversity(members []Member) float64 {
	var sum float64
	for _, m := range members {
		sum += float64(m.Sketch.PeerDiversity())
	}
	return sum / float64(len(members))
}

func avgInOutRatio(members []Member) float64 {
	var sum float64
	for _, m := range members {
		sum += m.Sketch.InOutRatio()
	}
	return sum / float64(len(members))
}

func displayNameForDeviceType(deviceType string) string {
	switch deviceType {
	case "laptop":
		return "Corporate Laptops"
	case "server":
		return "Servers"
	case "phone":
		return "Mobile Devices"
	case "iot":
		return "IoT Devices"
	default:
		return deviceType
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
