// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates the two top-level configuration
// structs Clarion's processes run from:
// EdgeConfig for the switch-resident agent, BackendConfig for the
// categorization engine. Defaults live as struct literals; an optional
// JSON file overrides them and is validated against an embedded JSON
// Schema before being decoded in.
package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*
var schemaFiles embed.FS

const embedFSScheme = "embedFS://"

// loadEmbedded resolves an "embedFS://schemas/foo.schema.json" reference
// against schemaFiles. The scheme is stripped directly; the schema set is
// always a flat embedFS path, never a general URL.
func loadEmbedded(s string) (io.ReadCloser, error) {
	return schemaFiles.Open(strings.TrimPrefix(s, embedFSScheme))
}

func init() {
	jsonschema.Loaders["embedfs"] = loadEmbedded
}

func compile(path string) (*jsonschema.Schema, error) {
	return jsonschema.Compile("embedFS://" + path)
}

// EdgeConfig controls one edge agent process.
type EdgeConfig struct {
	SwitchID             string `json:"switch_id"`
	StoreCapacity        int    `json:"store_capacity"`
	HLLPrecision         uint8  `json:"hll_precision"`
	CMSWidth             int    `json:"cms_width"`
	CMSDepth             int    `json:"cms_depth"`
	ClusterK             int    `json:"cluster_k"`
	ClusterMaxIterations int    `json:"cluster_max_iterations"`
	ClusterInterval      string `json:"cluster_interval"`
	SyncInterval         string `json:"sync_interval"`
	SyncBatchSize        int    `json:"sync_batch_size"`
	SyncMaxRetries       int    `json:"sync_max_retries"`
	SyncRetryDelay       string `json:"sync_retry_delay"`
	SyncTimeout          string `json:"sync_timeout"`
	ShutdownGrace        string `json:"shutdown_grace"`
	NATSAddress          string `json:"nats_address"`
}

// DefaultEdgeConfig bounds the store at 500 endpoints, with precision-14 HLL
// and 1000x5 Count-Min sub-sketches: about 129 KB of sub-sketch state per
// endpoint (three 16384-byte HLL register arrays, two 40000-byte uint64
// counter matrices), about 65 MB for a full store.
func DefaultEdgeConfig(switchID string) EdgeConfig {
	return EdgeConfig{
		SwitchID:             switchID,
		StoreCapacity:        500,
		HLLPrecision:         14,
		CMSWidth:             1000,
		CMSDepth:             5,
		ClusterK:             8,
		ClusterMaxIterations: 10,
		ClusterInterval:      "30s",
		SyncInterval:         "60s",
		SyncBatchSize:        100,
		SyncMaxRetries:       3,
		SyncRetryDelay:       "5s",
		SyncTimeout:          "30s",
		ShutdownGrace:        "5s",
		NATSAddress:          "nats://127.0.0.1:4222",
	}
}

// BackendConfig controls the backend categorization engine.
type BackendConfig struct {
	StorageDSN              string  `json:"storage_dsn"`
	NATSAddress             string  `json:"nats_address"`
	WorkerPoolSize          int     `json:"worker_pool_size"`
	BatchMinClusterSize     int     `json:"batch_min_cluster_size"`
	BatchMinSamples         int     `json:"batch_min_samples"`
	IncrementalMaxDistance  float64 `json:"incremental_max_distance"`
	SGTMinClusterSize       int     `json:"sgt_min_cluster_size"`
	SGACLMinFlowCount       int     `json:"sgacl_min_flow_count"`
	SGACLMinFlowRatio       float64 `json:"sgacl_min_flow_ratio"`
	ImpactCriticalThreshold int     `json:"impact_critical_threshold"`
	ImpactHighThreshold     int     `json:"impact_high_threshold"`
	MetricsAddr             string  `json:"metrics_addr"`
}

// DefaultBackendConfig carries each analysis stage's default thresholds.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		StorageDSN:              "file:clarion.db?cache=shared&_fk=1",
		NATSAddress:             "nats://127.0.0.1:4222",
		WorkerPoolSize:          8,
		BatchMinClusterSize:     5,
		BatchMinSamples:         5,
		IncrementalMaxDistance:  2.0,
		SGTMinClusterSize:       10,
		SGACLMinFlowCount:       50,
		SGACLMinFlowRatio:       0.05,
		ImpactCriticalThreshold: 100,
		ImpactHighThreshold:     50,
		MetricsAddr:             ":9090",
	}
}

// LoadEdgeConfig starts from DefaultEdgeConfig(switchID) and applies the
// JSON file at path, if it exists. A missing file is not an error; the
// defaults stand.
func LoadEdgeConfig(path, switchID string) (EdgeConfig, error) {
	cfg := DefaultEdgeConfig(switchID)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	schema, err := compile("schemas/edge-config.schema.json")
	if err != nil {
		return cfg, fmt.Errorf("config: compile edge schema: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return cfg, fmt.Errorf("config: validate %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBackendConfig starts from DefaultBackendConfig() and applies the JSON
// file at path, if it exists.
func LoadBackendConfig(path string) (BackendConfig, error) {
	cfg := DefaultBackendConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	schema, err := compile("schemas/backend-config.schema.json")
	if err != nil {
		return cfg, fmt.Errorf("config: compile backend schema: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return cfg, fmt.Errorf("config: validate %s: %w", path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
