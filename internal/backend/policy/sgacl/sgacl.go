// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sgacl implements the SGACL generator: synthesizing permit/deny
// rule sets from policy-matrix cells.
package sgacl

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
)

// Config controls significance thresholds and rendering.
type Config struct {
	// MinFlowCount is the minimum absolute observed count for a port to
	// be considered significant enough to warrant its own permit rule.
	MinFlowCount int
	// MinFlowRatio is the minimum fraction of a cell's total flows a
	// port must account for to be considered significant.
	MinFlowRatio float64
	// Log marks generated permit rules for logging; the terminal deny
	// rule is always logged regardless of this setting.
	Log bool
}

func DefaultConfig() Config {
	return Config{MinFlowCount: 50, MinFlowRatio: 0.05, Log: false}
}

// portCount is one (proto/port, count) pair with its already-parsed port
// number, carried through sorting before rule emission.
type portCount struct {
	key   string
	proto string
	port  uint16
	count int
}

// Generate synthesizes an SGACLPolicy for one matrix cell: a permit rule
// per significant observed port (descending by count), then a terminal
// deny rule. sgtNames resolves an SGT value to its registry name for
// Name(); a missing or empty entry renders as "Unknown".
func Generate(cell model.MatrixCell, cfg Config, sgtNames map[int]string) model.SGACLPolicy {
	total := cell.TotalFlows

	var candidates []portCount
	for key, count := range cell.ObservedPorts {
		proto, port, ok := splitPortKey(key)
		if !ok {
			continue
		}
		candidates = append(candidates, portCount{key: key, proto: proto, port: port, count: count})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].key < candidates[j].key
	})

	var rules []model.SGACLRule
	var covered uint64
	for _, c := range candidates {
		if !isSignificant(c.count, total, cfg) {
			continue
		}
		port := c.port
		confidence := 0.0
		if total > 0 {
			confidence = float64(c.count) / float64(total)
		}
		rules = append(rules, model.SGACLRule{
			Action:       model.ActionPermit,
			Protocol:     c.proto,
			DstPort:      &port,
			Log:          cfg.Log,
			MatchedFlows: uint64(c.count),
			Confidence:   confidence,
		})
		covered += uint64(c.count)
	}

	rules = append(rules, model.SGACLRule{
		Action:       model.ActionDeny,
		Protocol:     "ip",
		Log:          true,
		MatchedFlows: total - covered,
		Confidence:   1.0,
	})

	return model.SGACLPolicy{
		SrcSGT:        cell.SrcSGT,
		DstSGT:        cell.DstSGT,
		Name:          Name(sgtNames[cell.SrcSGT], sgtNames[cell.DstSGT]),
		Rules:         rules,
		DefaultAction: model.ActionDeny,
		ObservedFlows: total,
		CoveredFlows:  covered,
	}
}

// isSignificant requires a port's count to clear both the absolute and
// ratio thresholds.
func isSignificant(count int, total uint64, cfg Config) bool {
	if count < cfg.MinFlowCount {
		return false
	}
	if total == 0 {
		return false
	}
	return float64(count)/float64(total) >= cfg.MinFlowRatio
}

// Name derives a policy name from two SGT names: ASCII-only rendering with
// non-alphanumerics collapsed to "_", prefixed "SGACL_", joined "_to_".
func Name(srcName, dstName string) string {
	return "SGACL_" + sanitize(srcName) + "_to_" + sanitize(dstName)
}

func sanitize(name string) string {
	if name == "" {
		name = "Unknown"
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		isASCIIAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if isASCIIAlnum {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "Unknown"
	}
	return out
}

// splitPortKey parses a "proto/port" token (clarion.PortKey's format) back
// into its protocol and numeric port. Tokens that don't match (e.g. the
// synthetic "listen:proto/port" form) are rejected.
func splitPortKey(key string) (proto string, port uint16, ok bool) {
	idx := strings.IndexByte(key, '/')
	if idx < 0 {
		return "", 0, false
	}
	proto = key[:idx]
	if strings.ContainsRune(proto, ':') {
		return "", 0, false
	}
	n, err := strconv.ParseUint(key[idx+1:], 10, 16)
	if err != nil {
		return "", 0, false
	}
	return proto, uint16(n), true
}
