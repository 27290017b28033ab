// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package endpoint implements the per-endpoint behavioral fingerprint:
// cardinality and frequency sub-sketches plus counters, temporal bitmaps, and derived behavioral
// queries. It is imported by both the edge agent (which builds it from raw
// flows) and the backend ingest path (which rebuilds and merges it from
// synced summaries), so it lives under internal/edge but carries no
// edge-only state.
package endpoint

// Params fixes the structural parameters every sub-sketch in an
// EndpointSketch shares. All sketches merged together must have been built
// with identical Params.
type Params struct {
	HLLPrecision uint8
	CMSWidth     uint32
	CMSDepth     uint32
}

// DefaultParams uses precision-12 HLL (three 4096-byte register arrays) and
// 1000x4 Count-Min with uint64 counters (two 32000-byte matrices): about
// 76 KB of sub-sketch state per endpoint. No per-endpoint memory cap is
// enforced.
func DefaultParams() Params {
	return Params{
		HLLPrecision: 12,
		CMSWidth:     1000,
		CMSDepth:     4,
	}
}
