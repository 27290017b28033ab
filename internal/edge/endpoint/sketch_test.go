// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package endpoint

import (
	"testing"
	"time"

	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

func TestRecordOutbound_TypicalClientWorkload(t *testing.T) {
	s := New("aa:bb:cc:dd:ee:ff", "switch-1", DefaultParams())

	ts := time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		dstIP := "10.0.1." + itoa(i%10)
		port := uint16(443)
		if i%2 == 1 {
			port = 80
		}
		s.RecordOutbound(dstIP, port, clarion.ProtoTCP, 1000, 1, ts, "")
	}

	if s.FlowCount != 100 {
		t.Errorf("flow_count = %d, want 100", s.FlowCount)
	}
	if s.BytesOut != 100000 {
		t.Errorf("bytes_out = %d, want 100000", s.BytesOut)
	}
	if pd := s.PeerDiversity(); pd < 8 || pd > 12 {
		t.Errorf("peer_diversity = %d, want in [8,12]", pd)
	}
	if s.PortDiversity() < 2 {
		t.Errorf("port_diversity = %d, want >= 2", s.PortDiversity())
	}
	if s.ActiveHours&(1<<10) == 0 {
		t.Errorf("active_hours bit 10 not set: %024b", s.ActiveHours)
	}
	// bytes_in/(bytes_in+bytes_out) with outbound-only traffic is 0.0;
	// the 0.5 fallback applies only when both directions are zero.
	if s.InOutRatio() != 0.0 {
		t.Errorf("in_out_ratio = %v, want 0.0 (outbound only, no inbound)", s.InOutRatio())
	}
}

func TestRecordInbound_ListenToken(t *testing.T) {
	s := New("aa:bb:cc:dd:ee:ff", "switch-1", DefaultParams())
	ts := time.Now()
	for i := 0; i < 20; i++ {
		s.RecordInbound("10.0.0.5", 51000, 443, clarion.ProtoTCP, 500, 1, ts)
	}
	if got := s.PortFrequency.Count(clarion.ListenKey(clarion.ProtoTCP, 443)); got < 20 {
		t.Errorf("listen token frequency = %d, want >= 20", got)
	}
	if s.BytesIn != 10000 {
		t.Errorf("bytes_in = %d, want 10000", s.BytesIn)
	}
}

func TestIsLikelyServer(t *testing.T) {
	s := New("srv", "sw", DefaultParams())
	ts := time.Now()
	for i := 0; i < 5; i++ {
		s.RecordInbound("10.0.0.1", 50000, 443, clarion.ProtoTCP, 9000, 10, ts)
	}
	s.RecordOutbound("10.0.0.1", 443, clarion.ProtoTCP, 1000, 1, ts, "")
	if !s.IsLikelyServer() {
		t.Errorf("expected inbound-heavy low-diversity endpoint to be flagged server-like, ratio=%v peers=%d", s.InOutRatio(), s.PeerDiversity())
	}
}

func TestMerge_RequiresSameEndpoint(t *testing.T) {
	a := New("e1", "sw1", DefaultParams())
	b := New("e2", "sw1", DefaultParams())
	if err := a.Merge(b); err == nil {
		t.Fatal("expected endpoint mismatch error")
	}
}

func TestMerge_SumsCountersAndUnionsHours(t *testing.T) {
	a := New("e1", "sw1", DefaultParams())
	b := New("e1", "sw2", DefaultParams())

	a.RecordOutbound("10.0.0.1", 443, clarion.ProtoTCP, 100, 1, time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), "")
	b.RecordOutbound("10.0.0.2", 80, clarion.ProtoTCP, 200, 1, time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC), "")
	b.DeviceType = "laptop"

	versionBefore := a.Version
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}

	if a.FlowCount != 2 {
		t.Errorf("flow_count after merge = %d, want 2", a.FlowCount)
	}
	if a.BytesOut != 300 {
		t.Errorf("bytes_out after merge = %d, want 300", a.BytesOut)
	}
	if a.ActiveHours&(1<<9) == 0 || a.ActiveHours&(1<<14) == 0 {
		t.Errorf("active_hours after merge = %024b, want bits 9 and 14 set", a.ActiveHours)
	}
	if a.DeviceType != "laptop" {
		t.Errorf("device_type after merge = %q, want adopted from other", a.DeviceType)
	}
	if a.Version <= versionBefore {
		t.Errorf("version did not increase after merge")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	s := New("aa:bb:cc:dd:ee:ff", "switch-1", DefaultParams())
	ts := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		s.RecordOutbound("10.0.2."+itoa(i%20), 443, clarion.ProtoTCP, 500, 1, ts, "https")
	}
	s.RecordInbound("10.0.0.9", 40000, 22, clarion.ProtoTCP, 300, 1, ts)
	s.Username = "jdoe"
	s.ADGroups = []string{"corp-laptops", "vpn-users"}
	s.DeviceType = "laptop"

	data := s.Serialize()
	back, err := Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}

	if back.EndpointID != s.EndpointID || back.FlowCount != s.FlowCount ||
		back.BytesIn != s.BytesIn || back.BytesOut != s.BytesOut ||
		back.ActiveHours != s.ActiveHours || back.Username != s.Username ||
		back.DeviceType != s.DeviceType {
		t.Fatalf("round-trip mismatch: got %+v, want fields matching %+v", back, s)
	}
	if back.PeerDiversity() != s.PeerDiversity() {
		t.Errorf("peer diversity mismatch after round-trip: %d vs %d", back.PeerDiversity(), s.PeerDiversity())
	}
	if back.InOutRatio() != s.InOutRatio() {
		t.Errorf("in_out_ratio mismatch after round-trip")
	}
	if len(back.ADGroups) != len(s.ADGroups) {
		t.Errorf("ad_groups mismatch after round-trip: %v vs %v", back.ADGroups, s.ADGroups)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
