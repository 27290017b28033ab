// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sketch

import (
	"fmt"
	"math"
	"testing"
)

func TestHLL_CountsDistinctItems(t *testing.T) {
	h := NewHLL(12)
	h.Add("10.0.0.1")
	h.Add("10.0.0.2")
	h.Add("10.0.0.1")

	count := h.Count()
	if count < 2 || count > 3 {
		t.Fatalf("count() = %d, want in [2,3]", count)
	}
}

func TestHLL_AccuracyWithinTenPercent(t *testing.T) {
	for _, n := range []int{100, 1000, 10000} {
		h := NewHLL(12)
		for i := 0; i < n; i++ {
			h.Add(fmt.Sprintf("item-%d", i))
		}
		got := float64(h.Count())
		want := float64(n)
		relErr := math.Abs(got-want) / want
		if relErr > 0.10 {
			t.Errorf("n=%d: count()=%v, relative error %v exceeds 0.10", n, got, relErr)
		}
	}
}

func TestHLL_MergeCommutativeAssociative(t *testing.T) {
	build := func(items ...string) *HLL {
		h := NewHLL(12)
		for _, it := range items {
			h.Add(it)
		}
		return h
	}

	a := build("a1", "a2", "a3")
	b := build("b1", "b2")
	c := build("c1")

	ab := build("a1", "a2", "a3")
	if err := ab.Merge(b); err != nil {
		t.Fatal(err)
	}
	ba := build("b1", "b2")
	if err := ba.Merge(a); err != nil {
		t.Fatal(err)
	}
	if !equalRegisters(ab, ba) {
		t.Fatal("merge(a,b) != merge(b,a)")
	}

	abThenC := cloneHLL(ab)
	if err := abThenC.Merge(c); err != nil {
		t.Fatal(err)
	}

	bc := build("b1", "b2")
	if err := bc.Merge(c); err != nil {
		t.Fatal(err)
	}
	aThenBC := cloneHLL(a)
	if err := aThenBC.Merge(bc); err != nil {
		t.Fatal(err)
	}

	if !equalRegisters(abThenC, aThenBC) {
		t.Fatal("merge(merge(a,b),c) != merge(a,merge(b,c))")
	}
}

func TestHLL_MergeIncompatiblePrecision(t *testing.T) {
	a := NewHLL(12)
	b := NewHLL(14)
	if err := a.Merge(b); err == nil {
		t.Fatal("expected incompatible-precision error")
	}
}

func TestHLL_SerializeRoundTrip(t *testing.T) {
	h := NewHLL(12)
	for i := 0; i < 500; i++ {
		h.Add(fmt.Sprintf("x-%d", i))
	}
	data := h.Serialize()
	back, err := DeserializeHLL(data)
	if err != nil {
		t.Fatal(err)
	}
	if !equalRegisters(h, back) {
		t.Fatal("round-trip register mismatch")
	}
	if h.Count() != back.Count() {
		t.Fatal("round-trip count mismatch")
	}
}

func TestHLL_DeserializeInvalidFormat(t *testing.T) {
	if _, err := DeserializeHLL([]byte{0xff, 12}); err == nil {
		t.Fatal("expected invalid format error for bad magic")
	}
	if _, err := DeserializeHLL([]byte{hllMagic, 12, 0, 0}); err == nil {
		t.Fatal("expected invalid format error for short register array")
	}
}

func equalRegisters(a, b *HLL) bool {
	if a.Precision != b.Precision {
		return false
	}
	for i := range a.registers {
		if a.registers[i] != b.registers[i] {
			return false
		}
	}
	return true
}

func cloneHLL(h *HLL) *HLL {
	c := NewHLL(h.Precision)
	copy(c.registers, h.registers)
	return c
}
