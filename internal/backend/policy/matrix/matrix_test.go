// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package matrix

import (
	"testing"
	"time"

	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

func TestBuild_ResolvesKnownEndpointServiceAndUnknown(t *testing.T) {
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	dir := Directory{
		EndpointCluster: map[string]int{
			"aa:bb:cc:dd:ee:01": 1,
			"aa:bb:cc:dd:ee:02": 2,
		},
		ClusterSGT: map[int]int{1: 5, 2: 20},
		IPToEndpoint: map[string]string{
			"10.0.0.2": "aa:bb:cc:dd:ee:02",
		},
		IPToService: map[string]string{
			"10.0.0.9": "dns-server",
		},
	}

	flows := []Flow{
		{SrcMAC: "aa:bb:cc:dd:ee:01", DstIP: "10.0.0.2", DstPort: 443, Proto: clarion.ProtoTCP, Bytes: 1000, Timestamp: base},
		{SrcMAC: "aa:bb:cc:dd:ee:01", DstIP: "10.0.0.9", DstPort: 53, Proto: clarion.ProtoUDP, Bytes: 200, Timestamp: base.Add(time.Minute)},
		{SrcMAC: "aa:bb:cc:dd:ee:01", DstIP: "10.0.0.250", DstPort: 9999, Proto: clarion.ProtoTCP, Bytes: 50, Timestamp: base.Add(2 * time.Minute)},
		// Unknown source is dropped entirely.
		{SrcMAC: "unknown-mac", DstIP: "10.0.0.2", DstPort: 443, Proto: clarion.ProtoTCP, Bytes: 1, Timestamp: base},
	}

	cells := Build(flows, dir)
	if len(cells) != 3 {
		t.Fatalf("expected 3 cells, got %d: %+v", len(cells), cells)
	}

	byDst := map[int]int{}
	for _, c := range cells {
		if c.SrcSGT != 5 {
			t.Errorf("cell %+v: expected src_sgt 5 for every cell (only one known source)", c)
		}
		byDst[c.DstSGT] = c.ObservedPorts["tcp/443"] + c.ObservedPorts["udp/53"] + c.ObservedPorts["tcp/9999"]
	}
	if _, ok := byDst[20]; !ok {
		t.Errorf("expected a cell for dst_sgt=20 (known endpoint's cluster sgt)")
	}
	if _, ok := byDst[ServersSGT]; !ok {
		t.Errorf("expected a cell for dst_sgt=%d (known service)", ServersSGT)
	}
	if _, ok := byDst[UnknownSGT]; !ok {
		t.Errorf("expected a cell for dst_sgt=%d (unresolvable destination)", UnknownSGT)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	dir := Directory{
		EndpointCluster: map[string]int{"ep1": 1},
		ClusterSGT:      map[int]int{1: 5},
	}
	flows := []Flow{
		{SrcMAC: "ep1", DstIP: "10.0.0.1", DstPort: 80, Proto: clarion.ProtoTCP, Bytes: 10, Timestamp: time.Unix(0, 0)},
	}
	a := Build(flows, dir)
	b := Build(flows, dir)
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected one cell each run")
	}
	if a[0].SrcSGT != b[0].SrcSGT || a[0].DstSGT != b[0].DstSGT || a[0].TotalFlows != b[0].TotalFlows {
		t.Errorf("Build is not deterministic across identical runs: %+v vs %+v", a[0], b[0])
	}
}
