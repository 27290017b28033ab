// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics exposes Clarion's ops counters via the standard
// prometheus client: sync_errors (edge sync client retry
// exhaustion), store_evictions (sketch store capacity evictions), and
// dropped_records (malformed or unroutable flow records rejected before
// reaching a sketch). Both cmd/clarion-edge and cmd/clarion-backend
// register this set and serve it over promhttp.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SyncErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clarion_sync_errors_total",
		Help: "Sync batches that exhausted all retries and were retained.",
	})

	StoreEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clarion_store_evictions_total",
		Help: "Endpoint sketches evicted from a switch's sketch store for capacity.",
	})

	DroppedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clarion_dropped_records_total",
		Help: "Flow records rejected before being applied to a sketch.",
	})
)

// Registry returns a fresh registry with Clarion's counters registered, for
// cmd/clarion-edge and cmd/clarion-backend to serve via promhttp.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(SyncErrors, StoreEvictions, DroppedRecords)
	return reg
}
