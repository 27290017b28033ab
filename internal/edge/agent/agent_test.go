// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package agent

import (
	"context"
	"testing"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/internal/edge/sketchstore"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

func simpleExtractor(sk *endpoint.Sketch) []float64 {
	return []float64{float64(sk.PeerDiversity()), sk.InOutRatio()}
}

func TestAgent_RecordFlow_CreatesSketch(t *testing.T) {
	store := sketchstore.New(10)
	a, err := New(DefaultConfig("sw1"), store, endpoint.DefaultParams(), simpleExtractor, nil)
	if err != nil {
		t.Fatal(err)
	}

	a.RecordFlow(clarion.FlowRecord{
		SrcMAC: "aa:bb:cc:dd:ee:ff",
		DstIP:  "10.0.0.1",
		DstPort: 443,
		Proto:   clarion.ProtoTCP,
		Bytes:   100,
		Packets: 1,
		Time:    time.Now(),
		SwitchID: "sw1",
	})

	sk, ok := store.Get("aa:bb:cc:dd:ee:ff")
	if !ok {
		t.Fatal("expected sketch created on first flow")
	}
	if sk.FlowCount != 1 {
		t.Errorf("flow_count = %d, want 1", sk.FlowCount)
	}
}

func TestAgent_ClusterTick_AssignsLocalClusterID(t *testing.T) {
	store := sketchstore.New(10)
	a, err := New(DefaultConfig("sw1"), store, endpoint.DefaultParams(), simpleExtractor, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		ep := store.GetOrCreate(itoa(i), "sw1", endpoint.DefaultParams())
		ep.RecordOutbound("10.0.0.1", 443, clarion.ProtoTCP, 100, 1, time.Now(), "")
	}

	a.runClusterTick(context.Background())

	for _, sk := range store.Snapshot() {
		if sk.LocalClusterID < 0 {
			t.Errorf("expected endpoint %s to receive a local cluster id, got %d", sk.EndpointID, sk.LocalClusterID)
		}
	}
}

func itoa(n int) string {
	return string(rune('0' + n))
}
