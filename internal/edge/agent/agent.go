// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package agent wires the edge-resident tasks together: flow ingestion,
// the sketch store, the periodic local clusterer, and the periodic sync
// client. A gocron.Scheduler hosts exactly two recurring jobs, the
// clusterer tick and the sync tick; everything else is event-driven.
package agent

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/internal/edge/kmeans"
	"github.com/sgerhart/clarion-sub001/internal/edge/sketchstore"
	syncclient "github.com/sgerhart/clarion-sub001/internal/edge/sync"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clog"
)

// Config controls the agent's periodic tasks.
type Config struct {
	SwitchID        string
	ClusterInterval time.Duration
	SyncInterval    time.Duration
	ClusterK        int
	ShutdownGrace   time.Duration
}

// DefaultConfig clusters every 30s and syncs every 60s, with k=8 and a 5s
// shutdown grace period.
func DefaultConfig(switchID string) Config {
	return Config{
		SwitchID:        switchID,
		ClusterInterval: 30 * time.Second,
		SyncInterval:    60 * time.Second,
		ClusterK:        8,
		ShutdownGrace:   5 * time.Second,
	}
}

// Agent owns the sketch store and drives the clusterer and sync client on
// a schedule. Reads of the store for clustering/sync happen via Snapshot;
// RecordFlow is the only writer, serialized by sketchstore's own lock.
type Agent struct {
	cfg       Config
	store     *sketchstore.Store
	params    endpoint.Params
	extractor func(*endpoint.Sketch) []float64
	syncer    *syncclient.Client

	scheduler gocron.Scheduler
	log       clog.Logger
}

// New builds an Agent. extractor projects a sketch to the feature vector
// the edge clusterer operates on: log-scaled and normalized, without the
// backend's frozen standardization, since local clustering never needs
// cross-batch comparability.
func New(cfg Config, store *sketchstore.Store, params endpoint.Params, extractor func(*endpoint.Sketch) []float64, syncer *syncclient.Client) (*Agent, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Agent{
		cfg:       cfg,
		store:     store,
		params:    params,
		extractor: extractor,
		syncer:    syncer,
		scheduler: s,
		log:       clog.WithFields(clog.Fields{"component": "edge-agent", "switch_id": cfg.SwitchID}),
	}, nil
}

// RecordFlow applies one decoded flow record to the endpoint's sketch,
// creating it if new. Records with an empty SrcMAC are rejected by the
// caller before this is reached.
func (a *Agent) RecordFlow(f clarion.FlowRecord) {
	sk := a.store.GetOrCreate(f.SrcMAC, f.SwitchID, a.params)
	if f.DstIP != "" {
		sk.RecordOutbound(f.DstIP, f.DstPort, f.Proto, f.Bytes, f.Packets, f.Time, "")
	}
}

// Start registers the clusterer and sync jobs and starts the scheduler.
func (a *Agent) Start(ctx context.Context) error {
	if _, err := a.scheduler.NewJob(
		gocron.DurationJob(a.cfg.ClusterInterval),
		gocron.NewTask(func() { a.runClusterTick(ctx) }),
	); err != nil {
		return err
	}

	if a.syncer != nil {
		if _, err := a.scheduler.NewJob(
			gocron.DurationJob(a.cfg.SyncInterval),
			gocron.NewTask(func() { a.runSyncTick(ctx) }),
		); err != nil {
			return err
		}
	}

	a.scheduler.Start()
	return nil
}

// Shutdown stops the scheduler, waiting up to cfg.ShutdownGrace for
// in-flight jobs to quiesce.
func (a *Agent) Shutdown() error {
	done := make(chan error, 1)
	go func() { done <- a.scheduler.Shutdown() }()

	select {
	case err := <-done:
		return err
	case <-time.After(a.cfg.ShutdownGrace):
		a.log.Warnf("shutdown grace period elapsed before scheduler quiesced")
		return nil
	}
}

func (a *Agent) runClusterTick(ctx context.Context) {
	snap := a.store.Snapshot()
	if len(snap) == 0 {
		return
	}

	x := make([][]float64, len(snap))
	for i, sk := range snap {
		x[i] = a.extractor(sk)
	}

	select {
	case <-ctx.Done():
		return
	default:
	}

	res, err := kmeans.Fit(x, kmeans.DefaultConfig(a.cfg.ClusterK))
	if err != nil {
		a.log.Errorf("local cluster fit failed: %v", err)
		return
	}

	for i, sk := range snap {
		sk.LocalClusterID = res.Labels[i]
	}
	a.log.Debugf("local cluster tick: %d endpoints, %d clusters", len(snap), len(res.Centroids))
}

func (a *Agent) runSyncTick(ctx context.Context) {
	snap := a.store.Snapshot()
	if len(snap) == 0 {
		return
	}

	summaries := make([]clarion.SketchSummary, len(snap))
	for i, sk := range snap {
		summaries[i] = sk.ToSummary()
	}

	results, retained := a.syncer.Sync(ctx, summaries)
	a.log.Debugf("sync tick: %d batches, %d summaries retained", len(results), len(retained))
}
