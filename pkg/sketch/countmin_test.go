// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sketch

import (
	"fmt"
	"testing"
)

func TestCountMin_OneSidedError(t *testing.T) {
	cms := NewCountMin(2000, 4)
	truth := map[string]uint64{}
	for i := 0; i < 300; i++ {
		item := fmt.Sprintf("item-%d", i%50)
		n := uint64(1 + i%3)
		cms.Add(item, n)
		truth[item] += n
	}

	for item, want := range truth {
		got := cms.Count(item)
		if got < want {
			t.Fatalf("count(%s) = %d < true frequency %d (violates one-sided error)", item, got, want)
		}
	}
}

func TestCountMin_ExactWhenNoCollision(t *testing.T) {
	cms := NewCountMin(10000, 5)
	cms.Add("tcp/443", 7)
	if got := cms.Count("tcp/443"); got != 7 {
		t.Fatalf("count = %d, want exact 7 with a sparse sketch", got)
	}
}

func TestCountMin_MergeCommutativeAssociative(t *testing.T) {
	build := func(items map[string]uint64) *CountMin {
		c := NewCountMin(500, 4)
		for k, v := range items {
			c.Add(k, v)
		}
		return c
	}

	a := build(map[string]uint64{"a": 3})
	b := build(map[string]uint64{"b": 2})
	c := build(map[string]uint64{"c": 1})

	ab := build(map[string]uint64{"a": 3})
	if err := ab.Merge(b); err != nil {
		t.Fatal(err)
	}
	ba := build(map[string]uint64{"b": 2})
	if err := ba.Merge(a); err != nil {
		t.Fatal(err)
	}
	if !equalCounters(ab, ba) {
		t.Fatal("merge(a,b) != merge(b,a)")
	}

	abc1 := cloneCMS(ab)
	if err := abc1.Merge(c); err != nil {
		t.Fatal(err)
	}

	bc := build(map[string]uint64{"b": 2})
	if err := bc.Merge(c); err != nil {
		t.Fatal(err)
	}
	abc2 := cloneCMS(a)
	if err := abc2.Merge(bc); err != nil {
		t.Fatal(err)
	}

	if !equalCounters(abc1, abc2) {
		t.Fatal("merge(merge(a,b),c) != merge(a,merge(b,c))")
	}
}

func TestCountMin_MergeIncompatibleDims(t *testing.T) {
	a := NewCountMin(500, 4)
	b := NewCountMin(400, 4)
	if err := a.Merge(b); err == nil {
		t.Fatal("expected incompatible-dimensions error")
	}
}

func TestCountMin_SerializeRoundTrip(t *testing.T) {
	cms := NewCountMin(500, 4)
	cms.Add("tcp/443", 9)
	cms.Add("tcp/80", 2)
	data := cms.Serialize()
	back, err := DeserializeCountMin(data)
	if err != nil {
		t.Fatal(err)
	}
	if !equalCounters(cms, back) {
		t.Fatal("round-trip counters mismatch")
	}
}

func equalCounters(a, b *CountMin) bool {
	if a.Width != b.Width || a.Depth != b.Depth {
		return false
	}
	for row := range a.counters {
		for col := range a.counters[row] {
			if a.counters[row][col] != b.counters[row][col] {
				return false
			}
		}
	}
	return true
}

func cloneCMS(c *CountMin) *CountMin {
	out := NewCountMin(c.Width, c.Depth)
	for row := range c.counters {
		copy(out.counters[row], c.counters[row])
	}
	return out
}
