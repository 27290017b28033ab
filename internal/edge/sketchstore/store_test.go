// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sketchstore

import (
	"testing"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

func TestGetOrCreate_ReturnsSameSketchOnRepeat(t *testing.T) {
	s := New(10)
	a := s.GetOrCreate("e1", "sw1", endpoint.DefaultParams())
	b := s.GetOrCreate("e1", "sw1", endpoint.DefaultParams())
	if a != b {
		t.Fatal("expected the same sketch pointer on repeated GetOrCreate")
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

// Inserting at capacity evicts the endpoint with the minimum LastSeen, and
// the store never exceeds capacity.
func TestEvictionInvariant(t *testing.T) {
	s := New(3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	touch := func(id string, offset time.Duration) {
		sk := s.GetOrCreate(id, "sw1", endpoint.DefaultParams())
		sk.RecordOutbound("10.0.0.1", 443, clarion.ProtoTCP, 10, 1, base.Add(offset), "")
	}

	touch("e1", 0*time.Minute)
	touch("e2", 1*time.Minute)
	touch("e3", 2*time.Minute)

	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}

	// e4 should evict e1 (smallest LastSeen).
	touch("e4", 3*time.Minute)

	if s.Len() != 3 {
		t.Fatalf("len after eviction = %d, want 3 (capacity bound)", s.Len())
	}
	if _, ok := s.Get("e1"); ok {
		t.Error("expected e1 (oldest last_seen) to have been evicted")
	}
	for _, id := range []string{"e2", "e3", "e4"} {
		if _, ok := s.Get(id); !ok {
			t.Errorf("expected %s to remain in store", id)
		}
	}
	if s.Evictions() != 1 {
		t.Errorf("evictions = %d, want 1", s.Evictions())
	}
}

func TestEvictionInvariant_TieBreakByEndpointID(t *testing.T) {
	s := New(2)
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	touch := func(id string) {
		sk := s.GetOrCreate(id, "sw1", endpoint.DefaultParams())
		sk.RecordOutbound("10.0.0.1", 443, clarion.ProtoTCP, 10, 1, ts, "")
	}

	// Both "b" and "a" share the identical LastSeen timestamp.
	touch("b")
	touch("a")
	touch("c") // forces an eviction among b and a, both tied on LastSeen.

	if _, ok := s.Get("a"); ok {
		t.Error("expected lexicographically smallest id 'a' to be evicted on tie")
	}
	if _, ok := s.Get("b"); !ok {
		t.Error("expected 'b' to remain")
	}
	if _, ok := s.Get("c"); !ok {
		t.Error("expected 'c' to remain")
	}
}

func TestSnapshot_ReflectsCurrentEntriesIndependently(t *testing.T) {
	s := New(5)
	s.GetOrCreate("e1", "sw1", endpoint.DefaultParams())
	s.GetOrCreate("e2", "sw1", endpoint.DefaultParams())

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(snap))
	}

	s.GetOrCreate("e3", "sw1", endpoint.DefaultParams())
	if len(snap) != 2 {
		t.Errorf("prior snapshot mutated after later insert: len = %d, want 2", len(snap))
	}
	if s.Len() != 3 {
		t.Errorf("store len = %d, want 3", s.Len())
	}
}

func TestGetOrCreate_CaseInsensitiveEndpointID(t *testing.T) {
	s := New(5)
	upper := s.GetOrCreate("AA:BB:CC:DD:EE:FF", "sw1", endpoint.DefaultParams())
	lower := s.GetOrCreate("aa:bb:cc:dd:ee:ff", "sw1", endpoint.DefaultParams())
	if upper != lower {
		t.Error("expected the same sketch regardless of endpoint id case")
	}
	if s.Len() != 1 {
		t.Errorf("store len = %d, want 1", s.Len())
	}
}

func TestDelete(t *testing.T) {
	s := New(5)
	s.GetOrCreate("e1", "sw1", endpoint.DefaultParams())
	s.Delete("e1")
	if _, ok := s.Get("e1"); ok {
		t.Error("expected e1 removed after Delete")
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}
