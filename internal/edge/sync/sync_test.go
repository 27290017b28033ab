// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

type fakeTransport struct {
	calls     int32
	failUntil int32 // fail calls numbered 1 through failUntil
	always    bool
}

func (f *fakeTransport) SendBatch(_ context.Context, _ clarion.SyncEnvelope) error {
	n := atomic.AddInt32(&f.calls, 1)
	if f.always || n <= f.failUntil {
		return errors.New("simulated transport failure")
	}
	return nil
}

func summaries(n int) []clarion.SketchSummary {
	out := make([]clarion.SketchSummary, n)
	for i := range out {
		out[i] = clarion.SketchSummary{EndpointID: "e"}
	}
	return out
}

func TestSync_SplitsIntoBatches(t *testing.T) {
	ft := &fakeTransport{}
	c := New(ft, Config{BatchSize: 10, MaxRetries: 1, RetryDelay: time.Millisecond}, "sw1")

	results, retained := c.Sync(context.Background(), summaries(25))
	if len(results) != 3 {
		t.Fatalf("expected 3 batches (10,10,5), got %d", len(results))
	}
	if len(retained) != 0 {
		t.Errorf("expected no retained summaries on success, got %d", len(retained))
	}
	if ft.calls != 3 {
		t.Errorf("expected 3 transport calls, got %d", ft.calls)
	}
}

func TestSync_RetriesThenSucceeds(t *testing.T) {
	ft := &fakeTransport{failUntil: 2} // first two calls fail, third succeeds
	c := New(ft, Config{BatchSize: 100, MaxRetries: 3, RetryDelay: time.Millisecond}, "sw1")

	results, retained := c.Sync(context.Background(), summaries(5))
	if len(results) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("expected eventual success, got %v", results[0].Err)
	}
	if results[0].Attempts != 3 {
		t.Errorf("attempts = %d, want 3", results[0].Attempts)
	}
	if len(retained) != 0 {
		t.Errorf("expected no retained summaries, got %d", len(retained))
	}
}

func TestSync_BackpressureRetainsBatchOnExhaustedRetries(t *testing.T) {
	ft := &fakeTransport{always: true}
	c := New(ft, Config{BatchSize: 100, MaxRetries: 2, RetryDelay: time.Millisecond}, "sw1")

	results, retained := c.Sync(context.Background(), summaries(5))
	if len(results) != 1 || results[0].Err == nil {
		t.Fatalf("expected a failed batch result, got %+v", results)
	}
	if len(retained) != 5 {
		t.Fatalf("expected all 5 summaries retained, got %d", len(retained))
	}
	if c.RetriedBatches() != 1 {
		t.Errorf("retried batch count = %d, want 1", c.RetriedBatches())
	}
}

func TestSync_CancellationBetweenBatches(t *testing.T) {
	ft := &fakeTransport{}
	c := New(ft, Config{BatchSize: 5, MaxRetries: 1, RetryDelay: time.Millisecond}, "sw1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // already cancelled before the first batch attempt

	results, retained := c.Sync(ctx, summaries(15))
	if len(results) != 0 {
		t.Errorf("expected no batches sent after cancellation, got %d", len(results))
	}
	if len(retained) != 15 {
		t.Errorf("expected all summaries retained after cancellation, got %d", len(retained))
	}
}
