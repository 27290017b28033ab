// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package features

import (
	"testing"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/backend/identity"
	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

func buildSketch() *endpoint.Sketch {
	sk := endpoint.New("e1", "sw1", endpoint.DefaultParams())
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		sk.RecordOutbound("10.0.0."+string(rune('0'+i%9)), 443, clarion.ProtoTCP, 500, 1, ts, "")
	}
	return sk
}

func TestExtract_ProducesFixedWidthVector(t *testing.T) {
	sk := buildSketch()
	enr := identity.Enrichment{Username: "jdoe", ADGroups: []string{"g1"}, DeviceType: "laptop"}
	f := Extract(sk, enr)
	if len(f) != numFeatures {
		t.Fatalf("feature count = %d, want %d", len(f), numFeatures)
	}
	if f[10] != 1 {
		t.Errorf("has_user flag = %v, want 1 (username set)", f[10])
	}
	if f[13] != 1 {
		t.Errorf("device_type_laptop one-hot = %v, want 1", f[13])
	}
	for i, name := range []string{"device_type_server", "device_type_phone", "device_type_iot"} {
		_ = name
		if f[14+i] != 0 {
			t.Errorf("expected only laptop one-hot set, index %d is %v", 14+i, f[14+i])
		}
	}
}

func TestExtract_NoIdentity(t *testing.T) {
	sk := buildSketch()
	f := Extract(sk, identity.Enrichment{})
	if f[10] != 0 {
		t.Errorf("has_user flag = %v, want 0 with no identity", f[10])
	}
	if f[12] != 0 {
		t.Errorf("privileged flag = %v, want 0 with no identity", f[12])
	}
}

func TestScaler_FitsOnceAndFreezes(t *testing.T) {
	rows := [][numFeatures]float64{
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3},
	}
	var s Scaler
	s.Fit(rows)
	if !s.Fitted() {
		t.Fatal("expected scaler fit after first Fit call")
	}
	meanBefore := s.Mean

	// A second batch with very different stats must NOT change the frozen params.
	s.Fit([][numFeatures]float64{{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100}})
	if s.Mean != meanBefore {
		t.Error("scaler mean changed after second Fit call; standardization must freeze on first batch")
	}
}

func TestScaler_Standardize(t *testing.T) {
	rows := [][numFeatures]float64{
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2},
	}
	var s Scaler
	s.Fit(rows)
	out := s.Standardize(rows[0])
	if out[0] != -1 {
		t.Errorf("standardized value = %v, want -1 for the low end of a 2-point spread", out[0])
	}
}
