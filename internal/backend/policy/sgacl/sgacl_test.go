// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sgacl

import (
	"testing"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

// tcp/22 at 20 of 1000 flows clears neither threshold, so the policy
// permits tcp/443 then tcp/80, denies the rest, and covers 0.98.
func TestGenerate_PermitsSignificantPortsInOrder(t *testing.T) {
	cell := model.MatrixCell{
		SrcSGT: 2,
		DstSGT: 10,
		ObservedPorts: map[string]int{
			"tcp/443": 900,
			"tcp/80":  80,
			"tcp/22":  20,
		},
		TotalFlows: 1000,
	}
	cfg := Config{MinFlowCount: 50, MinFlowRatio: 0.05}

	policy := Generate(cell, cfg, map[int]string{2: "Users", 10: "Servers"})

	if len(policy.Rules) != 3 {
		t.Fatalf("expected 3 rules (2 permit + terminal deny), got %d: %+v", len(policy.Rules), policy.Rules)
	}
	if policy.Rules[0].Action != model.ActionPermit || *policy.Rules[0].DstPort != 443 {
		t.Errorf("rule 0 = %+v, want permit tcp/443", policy.Rules[0])
	}
	if policy.Rules[1].Action != model.ActionPermit || *policy.Rules[1].DstPort != 80 {
		t.Errorf("rule 1 = %+v, want permit tcp/80", policy.Rules[1])
	}
	last := policy.Rules[2]
	if last.Action != model.ActionDeny || last.Protocol != "ip" || !last.Log {
		t.Errorf("terminal rule = %+v, want deny ip log", last)
	}
	for _, r := range policy.Rules {
		if r.Protocol == "tcp" && r.DstPort != nil && *r.DstPort == 22 {
			t.Errorf("tcp/22 should not have its own rule: %+v", r)
		}
	}

	if policy.CoveredFlows != 980 {
		t.Errorf("CoveredFlows = %d, want 980", policy.CoveredFlows)
	}
	if got := policy.Coverage(); got != 0.98 {
		t.Errorf("Coverage() = %v, want 0.98", got)
	}
	if policy.Name != "SGACL_Users_to_Servers" {
		t.Errorf("Name = %q, want SGACL_Users_to_Servers", policy.Name)
	}
}

func TestGenerate_EmptyCellDeniesEverything(t *testing.T) {
	cell := model.MatrixCell{SrcSGT: 0, DstSGT: 0, ObservedPorts: map[string]int{}, TotalFlows: 0}
	policy := Generate(cell, DefaultConfig(), nil)
	if len(policy.Rules) != 1 || policy.Rules[0].Action != model.ActionDeny {
		t.Fatalf("expected single terminal deny rule, got %+v", policy.Rules)
	}
	if policy.Coverage() != 1.0 {
		t.Errorf("Coverage() on zero-flow cell = %v, want 1.0 (nothing observed)", policy.Coverage())
	}
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"Corp-Users":  "Corp_Users",
		"IoT Devices": "IoT_Devices",
		"":            "Unknown",
		"--":          "Unknown",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestName(t *testing.T) {
	if got := Name("Corp-Users", "DB Servers"); got != "SGACL_Corp_Users_to_DB_Servers" {
		t.Errorf("Name() = %q", got)
	}
}
