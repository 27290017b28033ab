// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command clarion-backend runs the categorization engine: it receives
// synced sketches over NATS, and on a schedule runs the full
// enrich-cluster-label-policy-impact pipeline over everything it has seen,
// producing a deployment package for the ISE deployment tooling.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sgerhart/clarion-sub001/internal/backend/eventbus"
	"github.com/sgerhart/clarion-sub001/internal/backend/identity"
	"github.com/sgerhart/clarion-sub001/internal/backend/ingest"
	"github.com/sgerhart/clarion-sub001/internal/backend/pipeline"
	"github.com/sgerhart/clarion-sub001/internal/backend/policy/matrix"
	"github.com/sgerhart/clarion-sub001/internal/backend/storage"
	"github.com/sgerhart/clarion-sub001/internal/config"
	"github.com/sgerhart/clarion-sub001/internal/metrics"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clog"
	"github.com/sgerhart/clarion-sub001/pkg/natsbus"
)

// FlowSource is implemented by whatever upstream collector supplies
// flow-level detail (protocol, destination, byte/packet counts) for the
// policy matrix builder; decoding NetFlow or equivalent wire formats is
// out of scope here. Without one wired in, each run builds its policy
// matrix from zero observed flows; identity,
// clustering, labeling and SGT assignment still proceed normally.
type FlowSource interface {
	Flows() []clarion.FlowRecord
}

func main() {
	var configPath, metricsAddr string
	var runInterval time.Duration
	flag.StringVar(&configPath, "config", "./backend-config.json", "path to backend config JSON, overriding defaults")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (overrides config)")
	flag.DurationVar(&runInterval, "run-interval", 5*time.Minute, "how often to run the full categorization pipeline")
	flag.Parse()

	log := clog.WithFields(clog.Fields{"component": "clarion-backend"})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("loading .env: %v", err)
	}

	cfg, err := config.LoadBackendConfig(configPath)
	if err != nil {
		log.Errorf("loading backend config: %v", err)
		os.Exit(1)
	}
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}

	store, err := storage.Open(cfg.StorageDSN)
	if err != nil {
		log.Errorf("opening storage at %s: %v", cfg.StorageDSN, err)
		os.Exit(1)
	}
	defer store.Close()

	var bus *eventbus.Bus
	var natsClient *natsbus.Client
	listener := ingest.New(store)
	if cfg.NATSAddress != "" {
		natsClient, err = natsbus.Connect(natsbus.Config{Address: cfg.NATSAddress})
		if err != nil {
			log.Warnf("nats connect failed, running without sync ingestion: %v", err)
		} else {
			bus = eventbus.New(natsClient)
			if err := listener.Start(natsClient); err != nil {
				log.Warnf("starting sync listener: %v", err)
			}
			defer natsClient.Close()
		}
	}

	pipelineCfg := pipeline.DefaultConfig()
	pipelineCfg.WorkerPoolSize = cfg.WorkerPoolSize
	pipelineCfg.Batch.MinClusterSize = cfg.BatchMinClusterSize
	pipelineCfg.Batch.MinSamples = cfg.BatchMinSamples
	pipelineCfg.IncrementalMaxDistance = cfg.IncrementalMaxDistance
	pipelineCfg.Mapper.MinClusterSize = cfg.SGTMinClusterSize
	pipelineCfg.SGACL.MinFlowCount = cfg.SGACLMinFlowCount
	pipelineCfg.SGACL.MinFlowRatio = cfg.SGACLMinFlowRatio
	pipelineCfg.Impact.CriticalThreshold = cfg.ImpactCriticalThreshold
	pipelineCfg.Impact.HighThreshold = cfg.ImpactHighThreshold

	pl := pipeline.New(pipelineCfg, store, identity.NullDirectory{}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Errorf("building scheduler: %v", err)
		os.Exit(1)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(runInterval),
		gocron.NewTask(func() { runOnce(log, pl, listener) }),
	)
	if err != nil {
		log.Errorf("scheduling pipeline run: %v", err)
		os.Exit(1)
	}
	scheduler.Start()

	metricsSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warnf("metrics server: %v", err)
		}
	}()

	go pollDroppedRecords(ctx, listener)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Infof("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	if err := scheduler.Shutdown(); err != nil {
		log.Warnf("scheduler shutdown: %v", err)
	}
	log.Infof("shutdown complete")
}

// runOnce runs one full pipeline pass over every switch seen so far and
// logs a short summary of the resulting deployment package. Failures are
// logged, not fatal -- the next scheduled tick tries again.
func runOnce(log clog.Logger, pl *pipeline.Pipeline, listener *ingest.Listener) {
	switchIDs := listener.SwitchIDs()
	if len(switchIDs) == 0 {
		log.Debugf("pipeline run skipped: no switches have synced sketches yet")
		return
	}

	pkgResult, err := pl.Run(switchIDs, nil, matrix.Directory{})
	if err != nil {
		log.Errorf("pipeline run failed: %v", err)
		return
	}

	b, _ := json.Marshal(pkgResult)
	log.Infof("pipeline run complete: %d sgts, %d policies, %d critical blocks (%d bytes deployment package)",
		len(pkgResult.SGTs), len(pkgResult.Policies), pkgResult.Impact.CriticalCount, len(b))
}

func pollDroppedRecords(ctx context.Context, listener *ingest.Listener) {
	var last int
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, dropped := listener.Stats()
			if dropped > last {
				metrics.DroppedRecords.Add(float64(dropped - last))
				last = dropped
			}
		}
	}
}
