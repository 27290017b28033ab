// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package clarion

import (
	"encoding/binary"
	"fmt"

	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
)

// SketchSummary carries every EndpointSketch attribute that survives JSON
// encoding, plus the sketch-derived counts a backend needs before it has
// rebuilt the underlying HLL/CMS sketches.
type SketchSummary struct {
	EndpointID  string   `json:"endpoint_id"`
	SwitchID    string   `json:"switch_id"`
	DeviceID    string   `json:"device_id,omitempty"`
	BytesIn     uint64   `json:"bytes_in"`
	BytesOut    uint64   `json:"bytes_out"`
	PacketsIn   uint64   `json:"packets_in"`
	PacketsOut  uint64   `json:"packets_out"`
	FlowCount   uint64   `json:"flow_count"`
	FirstSeen   int64    `json:"first_seen"`
	LastSeen    int64    `json:"last_seen"`
	ActiveHours uint32   `json:"active_hours"`
	Version     uint64   `json:"version"`

	UniquePeersCount    uint64 `json:"unique_peers_count"`
	UniquePortsCount    uint64 `json:"unique_ports_count"`
	UniqueServicesCount uint64 `json:"unique_services_count"`

	Username    string   `json:"username,omitempty"`
	ADGroups    []string `json:"ad_groups,omitempty"`
	ISEProfile  string   `json:"ise_profile,omitempty"`
	DeviceType  string   `json:"device_type,omitempty"`

	// Sketch carries the full serialized sub-sketches so the backend can
	// merge bit-exactly instead of re-deriving counts from the summary
	// fields alone. Present in both the structured and binary envelope;
	// the structured form base64-encodes it via the default []byte JSON
	// marshaling.
	Sketch []byte `json:"sketch"`
}

// SyncEnvelope is the structured (JSON-compatible) form of a sync batch.
type SyncEnvelope struct {
	SwitchID    string          `json:"switch_id"`
	Timestamp   int64           `json:"timestamp"`
	SequenceNum uint64          `json:"sequence_num"`
	SketchCount int             `json:"sketch_count"`
	Sketches    []SketchSummary `json:"sketches"`
}

// EncodeBinary frames the envelope as a 4-byte little-endian sketch
// count, then for each sketch a 4-byte length prefix followed by its
// serialized bytes. The switch id, timestamp, and sequence number travel as
// a small fixed header ahead of the count so a single frame is
// self-describing without an external envelope.
func (e SyncEnvelope) EncodeBinary() []byte {
	switchIDBytes := []byte(e.SwitchID)

	header := make([]byte, 4+len(switchIDBytes)+8+8+4)
	off := 0
	binary.LittleEndian.PutUint32(header[off:], uint32(len(switchIDBytes)))
	off += 4
	copy(header[off:], switchIDBytes)
	off += len(switchIDBytes)
	binary.LittleEndian.PutUint64(header[off:], uint64(e.Timestamp))
	off += 8
	binary.LittleEndian.PutUint64(header[off:], e.SequenceNum)
	off += 8
	binary.LittleEndian.PutUint32(header[off:], uint32(len(e.Sketches)))

	out := header
	for _, s := range e.Sketches {
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(len(s.Sketch)))
		out = append(out, lenBuf...)
		out = append(out, s.Sketch...)
	}
	return out
}

// DecodeBinary reverses EncodeBinary. Per-sketch payloads are returned as
// raw byte slices (endpoint identity and derived counts travel inside the
// serialized sketch itself, decoded by the caller).
func DecodeBinary(data []byte) (switchID string, timestamp int64, seq uint64, sketches [][]byte, err error) {
	if len(data) < 4 {
		return "", 0, 0, nil, fmt.Errorf("%w: binary envelope too short", clarionerr.ErrInvalidInput)
	}
	off := 0
	idLen := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	if len(data) < off+idLen+8+8+4 {
		return "", 0, 0, nil, fmt.Errorf("%w: binary envelope truncated header", clarionerr.ErrInvalidInput)
	}
	switchID = string(data[off : off+idLen])
	off += idLen
	timestamp = int64(binary.LittleEndian.Uint64(data[off:]))
	off += 8
	seq = binary.LittleEndian.Uint64(data[off:])
	off += 8
	count := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4

	sketches = make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		if len(data) < off+4 {
			return "", 0, 0, nil, fmt.Errorf("%w: binary envelope truncated at sketch %d", clarionerr.ErrInvalidInput, i)
		}
		l := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if len(data) < off+l {
			return "", 0, 0, nil, fmt.Errorf("%w: binary envelope sketch %d payload truncated", clarionerr.ErrInvalidInput, i)
		}
		sketches = append(sketches, data[off:off+l])
		off += l
	}
	return switchID, timestamp, seq, sketches, nil
}
