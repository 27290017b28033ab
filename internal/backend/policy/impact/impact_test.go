// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package impact

import (
	"testing"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

// A policy permitting tcp/443 and tcp/8080 against a cell that also saw
// tcp/22 blocks exactly that port: one entry, 50 flows, risk "high"
// (operational port at volume), and no critical issues.
func TestAnalyze_BlocksUnpermittedOperationalPort(t *testing.T) {
	port443 := uint16(443)
	port8080 := uint16(8080)
	cell := model.MatrixCell{
		SrcSGT: 2,
		DstSGT: 10,
		ObservedPorts: map[string]int{
			"tcp/443":  500,
			"tcp/22":   50,
			"tcp/8080": 5,
		},
		TotalFlows: 555,
		FirstSeen:  time.Unix(0, 0),
		LastSeen:   time.Unix(1, 0),
	}
	policy := model.SGACLPolicy{
		SrcSGT: 2,
		DstSGT: 10,
		Rules: []model.SGACLRule{
			{Action: model.ActionPermit, Protocol: "tcp", DstPort: &port443},
			{Action: model.ActionPermit, Protocol: "tcp", DstPort: &port8080},
			{Action: model.ActionDeny, Protocol: "ip", Log: true},
		},
	}

	report := Analyze(
		[]model.MatrixCell{cell},
		map[[2]int]model.SGACLPolicy{{2, 10}: policy},
		DefaultConfig(),
	)

	if len(report.Blocked) != 1 {
		t.Fatalf("expected exactly 1 blocked entry, got %d: %+v", len(report.Blocked), report.Blocked)
	}
	b := report.Blocked[0]
	if b.PortKey != "tcp/22" {
		t.Errorf("PortKey = %q, want tcp/22", b.PortKey)
	}
	if b.FlowCount != 50 {
		t.Errorf("FlowCount = %d, want 50", b.FlowCount)
	}
	if b.RiskLevel != model.RiskHigh {
		t.Errorf("RiskLevel = %q, want high", b.RiskLevel)
	}
	if report.HasCriticalIssues() {
		t.Errorf("HasCriticalIssues() = true, want false")
	}
}

func TestAnalyze_NoPolicyBlocksEverything(t *testing.T) {
	cell := model.MatrixCell{
		SrcSGT:        3,
		DstSGT:        11,
		ObservedPorts: map[string]int{"tcp/443": 10},
		TotalFlows:    10,
	}
	report := Analyze([]model.MatrixCell{cell}, map[[2]int]model.SGACLPolicy{}, DefaultConfig())
	if len(report.Blocked) != 1 || report.Blocked[0].FlowCount != 10 {
		t.Fatalf("expected the entire cell blocked under default-deny baseline, got %+v", report.Blocked)
	}
}

func TestAnalyze_CriticalPortAlwaysCritical(t *testing.T) {
	cell := model.MatrixCell{
		SrcSGT:        1,
		DstSGT:        2,
		ObservedPorts: map[string]int{"tcp/443": 1},
		TotalFlows:    1,
	}
	report := Analyze([]model.MatrixCell{cell}, nil, DefaultConfig())
	if len(report.Blocked) != 1 || report.Blocked[0].RiskLevel != model.RiskCritical {
		t.Fatalf("expected tcp/443 (https, in CriticalPorts) to classify critical, got %+v", report.Blocked)
	}
	if !report.HasCriticalIssues() {
		t.Errorf("HasCriticalIssues() = false, want true")
	}
}

func TestTotals_PermittedPlusBlockedEqualsAnalyzed(t *testing.T) {
	cells := []model.MatrixCell{
		{SrcSGT: 2, DstSGT: 10, ObservedPorts: map[string]int{"tcp/443": 500, "tcp/22": 50, "tcp/8080": 5}, TotalFlows: 555},
	}
	port443 := uint16(443)
	port8080 := uint16(8080)
	policy := model.SGACLPolicy{
		Rules: []model.SGACLRule{
			{Action: model.ActionPermit, Protocol: "tcp", DstPort: &port443},
			{Action: model.ActionPermit, Protocol: "tcp", DstPort: &port8080},
		},
	}
	report := Analyze(cells, map[[2]int]model.SGACLPolicy{{2, 10}: policy}, DefaultConfig())

	permitted, blocked, total := Totals(cells, report)
	if permitted+blocked != total {
		t.Errorf("permitted(%d) + blocked(%d) != total(%d)", permitted, blocked, total)
	}
	if total != 555 {
		t.Errorf("total = %d, want 555", total)
	}
	if blocked != 50 {
		t.Errorf("blocked = %d, want 50", blocked)
	}

	// The report itself folds totals and the affected-SGT set in, not
	// just the free Totals() helper.
	if report.TotalFlowsAnalyzed != total || report.FlowsBlocked != blocked || report.FlowsPermitted != permitted {
		t.Errorf("report totals %d/%d/%d do not match Totals() %d/%d/%d",
			report.FlowsPermitted, report.FlowsBlocked, report.TotalFlowsAnalyzed, permitted, blocked, total)
	}
	if len(report.AffectedSGTs) != 2 || report.AffectedSGTs[0] != 2 || report.AffectedSGTs[1] != 10 {
		t.Errorf("AffectedSGTs = %v, want [2 10]", report.AffectedSGTs)
	}
}

func TestAnalyze_PerRiskLevelCounts(t *testing.T) {
	cell := model.MatrixCell{
		SrcSGT: 2,
		DstSGT: 10,
		ObservedPorts: map[string]int{
			"tcp/443":  1,   // critical (well-known, in CriticalPorts)
			"tcp/8000": 60,  // not well-known, >= CriticalThreshold(100)? no -> medium via HighThreshold path
			"tcp/9999": 1,   // not well-known, low volume -> low
		},
		TotalFlows: 62,
	}
	report := Analyze([]model.MatrixCell{cell}, nil, DefaultConfig())

	if report.CriticalCount != 1 {
		t.Errorf("CriticalCount = %d, want 1", report.CriticalCount)
	}
	if report.MediumCount != 1 {
		t.Errorf("MediumCount = %d, want 1", report.MediumCount)
	}
	if report.LowCount != 1 {
		t.Errorf("LowCount = %d, want 1", report.LowCount)
	}
	if report.TotalFlowsAnalyzed != 62 {
		t.Errorf("TotalFlowsAnalyzed = %d, want 62", report.TotalFlowsAnalyzed)
	}
}
