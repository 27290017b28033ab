// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgerhart/clarion-sub001/internal/backend/storage"
	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

func TestHandleEnvelope_UpsertsSketchesAndTracksSwitch(t *testing.T) {
	store := storage.NewMemStore()
	l := New(store)

	sk := endpoint.New("aa:bb:cc:dd:ee:ff", "switch-1", endpoint.DefaultParams())
	sk.RecordOutbound("10.0.0.5", 443, clarion.ProtoTCP, 1000, 5, sk.LastSeen, "")

	env := clarion.SyncEnvelope{
		SwitchID:    "switch-1",
		SequenceNum: 1,
		SketchCount: 1,
		Sketches:    []clarion.SketchSummary{{EndpointID: sk.EndpointID, SwitchID: "switch-1", Sketch: sk.Serialize()}},
	}

	l.handleEnvelope(env.EncodeBinary())

	received, dropped := l.Stats()
	require.Equal(t, 1, received)
	require.Equal(t, 0, dropped)
	require.Equal(t, []string{"switch-1"}, l.SwitchIDs())

	got, ok, err := store.GetSketchSummary(sk.EndpointID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "switch-1", got.SwitchID)
}

func TestHandleEnvelope_DropsMalformedEnvelope(t *testing.T) {
	store := storage.NewMemStore()
	l := New(store)

	l.handleEnvelope([]byte{0x01, 0x02})

	received, dropped := l.Stats()
	require.Equal(t, 0, received)
	require.Equal(t, 1, dropped)
}
