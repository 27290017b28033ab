// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package impact implements the enforcement-impact analyzer: classifying
// traffic a would-be SGACL deployment would block, by risk level, into a
// consumable ImpactReport.
package impact

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/units"
)

// Config controls the volume thresholds used by risk classification.
type Config struct {
	// CriticalThreshold: any port at or above this flow count is "high"
	// risk even if it isn't a well-known operational port.
	CriticalThreshold int
	// HighThreshold: any port at or above this flow count is "medium"
	// risk even if it isn't a well-known port.
	HighThreshold int
}

func DefaultConfig() Config {
	return Config{CriticalThreshold: 100, HighThreshold: 50}
}

// Analyze classifies, for every matrix cell with observed traffic, the
// flows a policy's permit rules would NOT cover. A cell with no policy at
// all is a default-deny baseline: every flow in it is blocked.
func Analyze(cells []model.MatrixCell, policies map[[2]int]model.SGACLPolicy, cfg Config) model.ImpactReport {
	report := model.ImpactReport{}

	sorted := append([]model.MatrixCell(nil), cells...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].SrcSGT != sorted[j].SrcSGT {
			return sorted[i].SrcSGT < sorted[j].SrcSGT
		}
		return sorted[i].DstSGT < sorted[j].DstSGT
	})

	for _, cell := range sorted {
		if cell.TotalFlows == 0 {
			continue
		}
		permitted := permittedPorts(policies[[2]int{cell.SrcSGT, cell.DstSGT}])

		ports := make([]string, 0, len(cell.ObservedPorts))
		for p := range cell.ObservedPorts {
			ports = append(ports, p)
		}
		sort.Strings(ports)

		for _, portKey := range ports {
			count := cell.ObservedPorts[portKey]
			if permitted[portKey] {
				continue
			}
			risk := classify(portKey, count, cfg)
			report.Blocked = append(report.Blocked, model.BlockedTraffic{
				SrcSGT:         cell.SrcSGT,
				DstSGT:         cell.DstSGT,
				PortKey:        portKey,
				FlowCount:      uint64(count),
				BytesCount:     estimateBytes(cell, portKey, count),
				Reason:         reasonFor(cell, policies, portKey),
				RiskLevel:      risk,
				Recommendation: recommendationFor(risk, portKey),
			})
			switch risk {
			case model.RiskCritical:
				report.CriticalCount++
			case model.RiskHigh:
				report.HighCount++
			case model.RiskMedium:
				report.MediumCount++
			case model.RiskLow:
				report.LowCount++
			}
		}
	}

	report.AffectedSGTs = affectedSGTs(report.Blocked)
	report.FlowsPermitted, report.FlowsBlocked, report.TotalFlowsAnalyzed = Totals(cells, report)
	report.DeploymentNotes = deploymentNotes(report)
	return report
}

// affectedSGTs returns the sorted, deduplicated set of SGT values (source
// or destination) appearing in at least one blocked-traffic entry.
func affectedSGTs(blocked []model.BlockedTraffic) []int {
	seen := map[int]bool{}
	for _, b := range blocked {
		seen[b.SrcSGT] = true
		seen[b.DstSGT] = true
	}
	out := make([]int, 0, len(seen))
	for sgt := range seen {
		out = append(out, sgt)
	}
	sort.Ints(out)
	return out
}

// permittedPorts collects the "proto/port" keys a policy's permit rules
// cover. A missing policy (cell absent entirely) yields an empty set,
// which Analyze treats as "every flow in this cell is blocked."
func permittedPorts(policy model.SGACLPolicy) map[string]bool {
	out := map[string]bool{}
	for _, r := range policy.Rules {
		if r.Action != model.ActionPermit || r.DstPort == nil {
			continue
		}
		out[r.Protocol+"/"+strconv.FormatUint(uint64(*r.DstPort), 10)] = true
	}
	return out
}

// classify walks the risk ladder from critical down.
func classify(portKey string, count int, cfg Config) model.RiskLevel {
	port, ok := parsePort(portKey)
	if !ok {
		return model.RiskLow
	}

	if clarion.CriticalPorts[port] {
		return model.RiskCritical
	}
	if clarion.OperationalPorts[port] && count >= cfg.HighThreshold {
		return model.RiskHigh
	}
	if count >= cfg.CriticalThreshold {
		return model.RiskHigh
	}
	if clarion.WellKnownPorts[port] != "" && count >= 1 {
		return model.RiskMedium
	}
	if count >= cfg.HighThreshold {
		return model.RiskMedium
	}
	return model.RiskLow
}

func parsePort(portKey string) (uint16, bool) {
	idx := strings.IndexByte(portKey, '/')
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(portKey[idx+1:], 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// estimateBytes prorates a cell's total bytes across its observed ports by
// flow-count share; the matrix cell doesn't track per-port byte counts.
func estimateBytes(cell model.MatrixCell, portKey string, count int) uint64 {
	if cell.TotalFlows == 0 {
		return 0
	}
	share := float64(count) / float64(cell.TotalFlows)
	return uint64(share * float64(cell.TotalBytes))
}

func reasonFor(cell model.MatrixCell, policies map[[2]int]model.SGACLPolicy, portKey string) string {
	if _, ok := policies[[2]int{cell.SrcSGT, cell.DstSGT}]; !ok {
		return fmt.Sprintf("no policy exists for sgt %d -> sgt %d; default-deny baseline", cell.SrcSGT, cell.DstSGT)
	}
	return fmt.Sprintf("%s not covered by any permit rule in the generated policy", aliasedPort(portKey))
}

func recommendationFor(risk model.RiskLevel, portKey string) string {
	alias := aliasedPort(portKey)
	switch risk {
	case model.RiskCritical:
		return fmt.Sprintf("Review before deployment: blocking %s may break core infrastructure services.", alias)
	case model.RiskHigh:
		return fmt.Sprintf("Investigate %s before deployment; high observed volume suggests active dependency.", alias)
	case model.RiskMedium:
		return fmt.Sprintf("Confirm %s is no longer needed before relying on the default deny.", alias)
	default:
		return fmt.Sprintf("Low observed volume for %s; default deny is likely safe.", alias)
	}
}

func aliasedPort(portKey string) string {
	if port, ok := parsePort(portKey); ok {
		if alias := clarion.PortAlias(port); alias != "" {
			return fmt.Sprintf("%s (%s)", portKey, alias)
		}
	}
	return portKey
}

func deploymentNotes(report model.ImpactReport) []string {
	if len(report.Blocked) == 0 {
		return []string{"No blocked traffic detected; policies are safe to deploy as generated."}
	}
	var notes []string
	if report.CriticalCount > 0 {
		notes = append(notes, fmt.Sprintf("%d critical block(s) detected; deployment should be held pending review.", report.CriticalCount))
		for _, b := range report.Blocked {
			if b.RiskLevel == model.RiskCritical {
				notes = append(notes, fmt.Sprintf("  sgt %d -> sgt %d: %s blocked (%s, %s)",
					b.SrcSGT, b.DstSGT, aliasedPort(b.PortKey),
					units.FormatCount(b.FlowCount, units.Flows), units.FormatBytes(b.BytesCount)))
			}
		}
	}
	if report.HighCount > 0 {
		notes = append(notes, fmt.Sprintf("%d high-risk block(s) detected; recommend staged rollout.", report.HighCount))
	}
	return notes
}

// Totals returns (flows_permitted, flows_blocked, total) across every
// analyzed cell; permitted plus blocked always equals total.
func Totals(cells []model.MatrixCell, report model.ImpactReport) (permitted, blocked, total uint64) {
	for _, c := range cells {
		total += c.TotalFlows
	}
	for _, b := range report.Blocked {
		blocked += b.FlowCount
	}
	if blocked > total {
		blocked = total
	}
	permitted = total - blocked
	return permitted, blocked, total
}
