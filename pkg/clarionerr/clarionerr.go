// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package clarionerr defines the error-kind taxonomy shared by every
// Clarion component. Kinds are sentinel errors wrapped with fmt.Errorf at
// the call site and unwrapped with errors.Is/errors.As; this keeps retry
// and recovery logic (edge sync, SGT lifecycle) a matter of comparing
// error kinds instead of string matching or language-level exceptions.
package clarionerr

import "errors"

var (
	// ErrInvalidInput marks a malformed flow record or a NaN feature. The
	// caller drops the offending record, bumps a counter, and continues.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIncompatibleSketch marks a merge between sketches built with
	// different structural parameters (HLL precision, CMS width/depth).
	// Programmer error: never expected in steady-state operation.
	ErrIncompatibleSketch = errors.New("incompatible sketch parameters")

	// ErrInvalidFormat marks a sketch deserialization whose embedded
	// parameters don't match what the caller expected.
	ErrInvalidFormat = errors.New("invalid sketch wire format")

	// ErrEndpointMismatch marks an EndpointSketch.Merge call against a
	// sketch for a different endpoint id.
	ErrEndpointMismatch = errors.New("endpoint id mismatch")

	// ErrStoreFull is defined for completeness; the store never returns
	// it; a full store triggers eviction instead (see sketchstore).
	ErrStoreFull = errors.New("sketch store at capacity")

	// ErrTransportUnavailable marks a sync attempt that could not reach
	// the backend at all (connection refused, DNS failure, ...).
	ErrTransportUnavailable = errors.New("sync transport unavailable")

	// ErrTransportTimeout marks a sync attempt that exceeded its deadline.
	ErrTransportTimeout = errors.New("sync transport timeout")

	// ErrUnknownSGT marks a reference to an SGT value absent from the
	// registry.
	ErrUnknownSGT = errors.New("unknown sgt")

	// ErrInactiveSGT marks a reference to a deactivated SGT.
	ErrInactiveSGT = errors.New("inactive sgt")

	// ErrDuplicateSGT marks creation of an SGT value that is already
	// active in the registry.
	ErrDuplicateSGT = errors.New("duplicate sgt")

	// ErrInsufficientData is not a failure: batch clustering over zero or
	// near-zero input returns an empty result carrying this as context,
	// never as a propagated error.
	ErrInsufficientData = errors.New("insufficient data for clustering")
)
