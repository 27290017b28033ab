// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package clarion holds the wire-level contract types shared across the
// edge/backend process boundary: decoded flow records, the sync envelope
// the edge ships to the backend, and the deployment artifact the backend
// hands to the (out-of-scope) ISE deployment client. Component-local types
// (feature vectors, cluster results, SGT records, policy artifacts) live
// next to the component that owns them under internal/backend/model.
package clarion

import (
	"strings"
	"time"
)

// Protocol is the small closed set of L4 protocols Clarion reasons about.
type Protocol string

const (
	ProtoTCP  Protocol = "tcp"
	ProtoUDP  Protocol = "udp"
	ProtoICMP Protocol = "icmp"
)

// FlowRecord is a decoded NetFlow record as handed to the edge by the
// (out-of-scope) collector. Records with an empty SrcMAC are dropped by
// the caller before they reach any Clarion component.
type FlowRecord struct {
	SrcMAC   string
	SrcIP    string
	DstIP    string
	SrcPort  uint16
	DstPort  uint16
	Proto    Protocol
	Bytes    uint64
	Packets  uint64
	Time     time.Time
	SwitchID string
}

// Valid reports whether a FlowRecord is well-formed enough to feed into an
// EndpointSketch: non-empty SrcMAC and a recognized protocol.
func (f FlowRecord) Valid() bool {
	if f.SrcMAC == "" {
		return false
	}
	switch f.Proto {
	case ProtoTCP, ProtoUDP, ProtoICMP:
		return true
	default:
		return false
	}
}

// NormalizeEndpointID canonicalizes an endpoint identifier (typically a
// MAC address) for use as a map or storage key. Identifier equality is
// case-insensitive, so every component keys on the lowercased form.
func NormalizeEndpointID(id string) string {
	return strings.ToLower(id)
}

// PortKey renders the "proto/port" token used throughout the system as the
// key for port/service frequency sketches and matrix-cell port tallies.
func PortKey(proto Protocol, port uint16) string {
	return string(proto) + "/" + uitoa(uint64(port))
}

// ListenKey renders the synthetic "listen:proto/port" token recorded for
// inbound flows so server-like behavior is discoverable from port
// frequency alone.
func ListenKey(proto Protocol, port uint16) string {
	return "listen:" + PortKey(proto, port)
}

func uitoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
