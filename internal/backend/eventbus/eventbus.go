// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package eventbus fans out backend pipeline stage-completion events over
// the same NATS connection the edge sync client uses to reach the backend
// (internal/edge/sync), so operators can watch a run progress (ingest ->
// enrich -> cluster -> label -> policy) without polling the storage layer.
// It is a thin, typed wrapper over pkg/natsbus -- not a new transport.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sgerhart/clarion-sub001/pkg/natsbus"
)

// Subject names for each pipeline stage transition.
const (
	SubjectIngestComplete  = "clarion.pipeline.ingest.complete"
	SubjectEnrichComplete  = "clarion.pipeline.enrich.complete"
	SubjectClusterComplete = "clarion.pipeline.cluster.complete"
	SubjectLabelComplete   = "clarion.pipeline.label.complete"
	SubjectPolicyComplete  = "clarion.pipeline.policy.complete"
	SubjectRunComplete     = "clarion.pipeline.run.complete"
)

// StageEvent is the payload published on every stage-completion subject.
type StageEvent struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Bus publishes and subscribes to pipeline stage events.
type Bus struct {
	client *natsbus.Client
}

// New wraps an already-connected natsbus.Client.
func New(client *natsbus.Client) *Bus {
	return &Bus{client: client}
}

// Publish emits a StageEvent on subject. A nil Bus (no NATS connection
// configured) is a silent no-op -- event publication is an observability
// aid, never load-bearing for pipeline correctness.
func (b *Bus) Publish(subject string, ev StageEvent) error {
	if b == nil || b.client == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("eventbus: marshal %s event: %w", subject, err)
	}
	return b.client.Publish(subject, data)
}

// Subscribe registers handler for subject, decoding each message as a
// StageEvent. Malformed payloads are dropped; eventbus is observability,
// not a source of truth.
func (b *Bus) Subscribe(subject string, handler func(StageEvent)) error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Subscribe(subject, func(_ string, data []byte) {
		var ev StageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		handler(ev)
	})
}
