// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingest receives the binary sync envelopes edge agents publish
// (internal/edge/sync's NATSTransport) and persists each decoded sketch
// summary into storage, so the periodic pipeline run always has the
// latest sketches on hand. It is the backend counterpart of C5, grounded
// in the same natsbus subscription pattern internal/backend/eventbus uses.
package ingest

import (
	"sync"

	"github.com/sgerhart/clarion-sub001/internal/backend/storage"
	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clog"
	"github.com/sgerhart/clarion-sub001/pkg/natsbus"
)

// Subject is the wildcard NATS subject edge agents publish sync envelopes
// on; each switch publishes to "clarion.sync.<switch-id>".
const Subject = "clarion.sync.*"

// Listener subscribes to Subject and upserts every sketch it decodes.
type Listener struct {
	store storage.Interface
	log   clog.Logger

	mu       sync.Mutex
	switches map[string]struct{}
	received int
	dropped  int
}

// New builds a Listener writing into store.
func New(store storage.Interface) *Listener {
	return &Listener{
		store:    store,
		log:      clog.WithFields(clog.Fields{"component": "backend-ingest"}),
		switches: map[string]struct{}{},
	}
}

// SwitchIDs returns every switch id a sync envelope has been received from
// so far, for the periodic pipeline run to scope its sketch load to.
func (l *Listener) SwitchIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.switches))
	for id := range l.switches {
		out = append(out, id)
	}
	return out
}

// Start subscribes on client, applying handleEnvelope to every message.
func (l *Listener) Start(client *natsbus.Client) error {
	return client.Subscribe(Subject, func(_ string, data []byte) {
		l.handleEnvelope(data)
	})
}

func (l *Listener) handleEnvelope(data []byte) {
	switchID, _, _, sketches, err := clarion.DecodeBinary(data)
	if err != nil {
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
		l.log.Warnf("decode sync envelope: %v", err)
		return
	}

	l.mu.Lock()
	l.switches[switchID] = struct{}{}
	l.mu.Unlock()

	for _, raw := range sketches {
		sk, err := endpoint.Deserialize(raw)
		if err != nil {
			l.mu.Lock()
			l.dropped++
			l.mu.Unlock()
			l.log.Warnf("decode sketch from switch %s: %v", switchID, err)
			continue
		}
		if err := l.store.UpsertSketchSummary(sk.ToSummary()); err != nil {
			l.mu.Lock()
			l.dropped++
			l.mu.Unlock()
			l.log.Warnf("store sketch summary for %s: %v", sk.EndpointID, err)
			continue
		}
		l.mu.Lock()
		l.received++
		l.mu.Unlock()
	}
}

// Stats reports lifetime counters for observability.
func (l *Listener) Stats() (received, dropped int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.received, l.dropped
}
