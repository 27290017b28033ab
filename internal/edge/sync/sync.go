// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sync implements the edge sync client: transport-agnostic,
// batched, retrying delivery of endpoint sketch summaries to the backend.
// The retry/backpressure loop reports per-batch results as values; a batch
// that exhausts its retries is returned to the caller for the next cycle,
// never silently dropped.
package sync

import (
	"context"
	"time"

	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clog"
)

// Transport delivers one already-built envelope to the backend. Structured
// (JSON) and binary transports both implement this; see HTTPTransport and
// NATSTransport.
type Transport interface {
	SendBatch(ctx context.Context, env clarion.SyncEnvelope) error
}

// Config controls batching, retry, and backpressure behavior.
type Config struct {
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfig sizes batches and retries for a single switch's sync cycle.
func DefaultConfig() Config {
	return Config{BatchSize: 200, MaxRetries: 3, RetryDelay: 2 * time.Second}
}

// BatchResult reports the outcome of delivering one batch.
type BatchResult struct {
	SketchCount int
	Attempts    int
	Err         error
}

// Client drives sync cycles for one switch against a Transport.
type Client struct {
	transport Transport
	cfg       Config
	switchID  string
	seq       uint64
	log       clog.Logger

	retryCount int
}

// New builds a sync client for switchID using transport.
func New(transport Transport, cfg Config, switchID string) *Client {
	return &Client{
		transport: transport,
		cfg:       cfg,
		switchID:  switchID,
		log:       clog.WithFields(clog.Fields{"component": "edge-sync", "switch_id": switchID}),
	}
}

// Sync splits summaries into batches of at most cfg.BatchSize, delivers each
// with up to cfg.MaxRetries attempts (cfg.RetryDelay apart), and returns one
// BatchResult per batch plus the summaries that must be retained for the
// next cycle (the concatenation of every batch that never succeeded).
// Cancellation of ctx is checked before each batch and during the wait
// between retry attempts; ctx is also passed to the transport on each
// attempt.
func (c *Client) Sync(ctx context.Context, summaries []clarion.SketchSummary) ([]BatchResult, []clarion.SketchSummary) {
	var results []BatchResult
	var retained []clarion.SketchSummary

	for start := 0; start < len(summaries); start += c.cfg.BatchSize {
		select {
		case <-ctx.Done():
			retained = append(retained, summaries[start:]...)
			return results, retained
		default:
		}

		end := start + c.cfg.BatchSize
		if end > len(summaries) {
			end = len(summaries)
		}
		batch := summaries[start:end]

		res := c.sendWithRetry(ctx, batch)
		results = append(results, res)
		if res.Err != nil {
			c.retryCount++
			retained = append(retained, batch...)
			c.log.Warnf("batch of %d retained after %d attempts: %v", res.SketchCount, res.Attempts, res.Err)
		}
	}

	return results, retained
}

func (c *Client) sendWithRetry(ctx context.Context, batch []clarion.SketchSummary) BatchResult {
	c.seq++
	env := clarion.SyncEnvelope{
		SwitchID:    c.switchID,
		Timestamp:   time.Now().Unix(),
		SequenceNum: c.seq,
		SketchCount: len(batch),
		Sketches:    batch,
	}

	maxRetries := c.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := c.transport.SendBatch(ctx, env)
		if err == nil {
			return BatchResult{SketchCount: len(batch), Attempts: attempt}
		}
		lastErr = err
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return BatchResult{SketchCount: len(batch), Attempts: attempt, Err: ctx.Err()}
			case <-time.After(c.cfg.RetryDelay):
			}
		}
	}

	return BatchResult{SketchCount: len(batch), Attempts: maxRetries, Err: lastErr}
}

// RetriedBatches reports the lifetime count of batches that exhausted all
// retries and were retained for backpressure.
func (c *Client) RetriedBatches() int { return c.retryCount }
