// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command clarion-edge runs the switch-resident agent: sketch ingestion,
// local clustering, and periodic sync to the backend, all in one
// single-binary process suitable for a switch's application container.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sgerhart/clarion-sub001/internal/config"
	"github.com/sgerhart/clarion-sub001/internal/edge/agent"
	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/internal/edge/sketchstore"
	syncclient "github.com/sgerhart/clarion-sub001/internal/edge/sync"
	"github.com/sgerhart/clarion-sub001/internal/metrics"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clog"
	"github.com/sgerhart/clarion-sub001/pkg/natsbus"
)

// FlowSource is implemented by whatever upstream collector decodes NetFlow,
// sFlow or equivalent wire formats into clarion.FlowRecord values; decoding
// that wire format is out of scope here. main does not read from a
// FlowSource; decoded records reach a sketch through agent.Agent.RecordFlow.
type FlowSource interface {
	Flows() <-chan clarion.FlowRecord
}

func main() {
	var configPath, switchID, metricsAddr string
	flag.StringVar(&configPath, "config", "./edge-config.json", "path to edge config JSON, overriding defaults")
	flag.StringVar(&switchID, "switch-id", "", "identifier for this switch (required)")
	flag.StringVar(&metricsAddr, "metrics-addr", ":9100", "address to serve /metrics on")
	flag.Parse()

	log := clog.WithFields(clog.Fields{"component": "clarion-edge"})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("loading .env: %v", err)
	}

	if switchID == "" {
		if env := os.Getenv("CLARION_SWITCH_ID"); env != "" {
			switchID = env
		} else {
			log.Errorf("-switch-id is required")
			os.Exit(1)
		}
	}

	cfg, err := config.LoadEdgeConfig(configPath, switchID)
	if err != nil {
		log.Errorf("loading edge config: %v", err)
		os.Exit(1)
	}

	store := sketchstore.New(cfg.StoreCapacity)
	params := endpoint.Params{
		HLLPrecision: cfg.HLLPrecision,
		CMSWidth:     uint32(cfg.CMSWidth),
		CMSDepth:     uint32(cfg.CMSDepth),
	}

	var syncer *syncclient.Client
	if cfg.NATSAddress != "" {
		client, err := natsbus.Connect(natsbus.Config{Address: cfg.NATSAddress})
		if err != nil {
			log.Warnf("nats connect failed, sync disabled: %v", err)
		} else {
			transport := syncclient.NewNATSTransport(client, "clarion.sync."+switchID)
			syncer = syncclient.New(transport, syncclient.Config{
				BatchSize:  cfg.SyncBatchSize,
				MaxRetries: cfg.SyncMaxRetries,
				RetryDelay: parseDurationOr(cfg.SyncRetryDelay, 5*time.Second),
			}, switchID)
			defer client.Close()
		}
	}

	agentCfg := agent.DefaultConfig(switchID)
	agentCfg.ClusterInterval = parseDurationOr(cfg.ClusterInterval, agentCfg.ClusterInterval)
	agentCfg.SyncInterval = parseDurationOr(cfg.SyncInterval, agentCfg.SyncInterval)
	agentCfg.ClusterK = cfg.ClusterK
	agentCfg.ShutdownGrace = parseDurationOr(cfg.ShutdownGrace, agentCfg.ShutdownGrace)

	a, err := agent.New(agentCfg, store, params, endpoint.Extract, syncer)
	if err != nil {
		log.Errorf("building agent: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.Start(ctx); err != nil {
		log.Errorf("starting agent: %v", err)
		os.Exit(1)
	}

	metricsSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnf("metrics server: %v", err)
		}
	}()

	go pollStoreEvictions(ctx, store)
	if syncer != nil {
		go pollSyncErrors(ctx, syncer)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Infof("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	if err := a.Shutdown(); err != nil {
		log.Warnf("agent shutdown: %v", err)
	}
	log.Infof("shutdown complete")
}

// pollStoreEvictions mirrors the store's lifetime eviction counter into the
// process-wide prometheus counter every few seconds; the store itself stays
// free of a metrics dependency.
func pollStoreEvictions(ctx context.Context, store *sketchstore.Store) {
	var last uint64
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := store.Evictions()
			if cur > last {
				metrics.StoreEvictions.Add(float64(cur - last))
				last = cur
			}
		}
	}
}

// pollSyncErrors mirrors the sync client's lifetime retry-exhaustion count
// into the process-wide prometheus counter every few seconds.
func pollSyncErrors(ctx context.Context, syncer *syncclient.Client) {
	var last int
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := syncer.RetriedBatches()
			if cur > last {
				metrics.SyncErrors.Add(float64(cur - last))
				last = cur
			}
		}
	}
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
