// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
	"github.com/sgerhart/clarion-sub001/pkg/sketch"
)

// Sketch is the per-endpoint behavioral fingerprint: identity, cardinality
// and frequency sub-sketches, counters, temporal state, local clustering
// state, and identity enrichment.
type Sketch struct {
	EndpointID string
	SwitchID   string
	DeviceID   string

	UniquePeers    *sketch.HLL
	UniqueServices *sketch.HLL
	UniquePorts    *sketch.HLL

	PortFrequency    *sketch.CountMin
	ServiceFrequency *sketch.CountMin

	BytesIn, BytesOut     uint64
	PacketsIn, PacketsOut uint64
	FlowCount             uint64

	FirstSeen, LastSeen time.Time
	// ActiveHours is a 24-bit bitmap; bit h is set iff any flow was
	// observed in local hour h.
	ActiveHours uint32

	// LocalClusterID is the edge-local k-means assignment; -1 means
	// unassigned.
	LocalClusterID int
	// Version increases on every mutating call and never decreases.
	Version uint64

	Username   string
	ADGroups   []string
	ISEProfile string
	DeviceType string

	params Params
}

// New creates an empty Sketch for endpointID, observed first on switchID.
func New(endpointID, switchID string, params Params) *Sketch {
	return &Sketch{
		EndpointID:       endpointID,
		SwitchID:         switchID,
		UniquePeers:      sketch.NewHLL(params.HLLPrecision),
		UniqueServices:   sketch.NewHLL(params.HLLPrecision),
		UniquePorts:      sketch.NewHLL(params.HLLPrecision),
		PortFrequency:    sketch.NewCountMin(params.CMSWidth, params.CMSDepth),
		ServiceFrequency: sketch.NewCountMin(params.CMSWidth, params.CMSDepth),
		LocalClusterID:   -1,
		params:           params,
	}
}

func (s *Sketch) touch(ts time.Time) {
	if s.FirstSeen.IsZero() || ts.Before(s.FirstSeen) {
		s.FirstSeen = ts
	}
	if ts.After(s.LastSeen) {
		s.LastSeen = ts
	}
	s.ActiveHours |= 1 << uint(ts.Hour()%24)
	s.Version++
}

// RecordOutbound updates the sketch for one outbound flow.
func (s *Sketch) RecordOutbound(dstIP string, dstPort uint16, proto clarion.Protocol, bytes, packets uint64, ts time.Time, service string) {
	s.UniquePeers.Add(dstIP)
	portKey := clarion.PortKey(proto, dstPort)
	s.UniquePorts.Add(portKey)
	s.PortFrequency.Add(portKey, 1)

	if service != "" {
		s.UniqueServices.Add(service)
		s.ServiceFrequency.Add(service, 1)
	}

	s.BytesOut += bytes
	s.PacketsOut += packets
	s.FlowCount++
	s.touch(ts)
}

// RecordInbound updates the sketch for one inbound flow. A
// synthetic "listen:proto/port" token is added to PortFrequency so server
// behavior is discoverable even though unique_peers only tracks outbound
// destinations.
func (s *Sketch) RecordInbound(srcIP string, srcPort, dstPort uint16, proto clarion.Protocol, bytes, packets uint64, ts time.Time) {
	s.PortFrequency.Add(clarion.ListenKey(proto, dstPort), 1)

	s.BytesIn += bytes
	s.PacketsIn += packets
	s.FlowCount++
	s.touch(ts)
}

// Merge folds other into s: sub-sketches merge, counters sum, active hours
// union, temporal bounds take min/max, and enrichment fields are adopted
// from other only where s's are empty. Requires equal
// endpoint id.
func (s *Sketch) Merge(other *Sketch) error {
	if !strings.EqualFold(s.EndpointID, other.EndpointID) {
		return fmt.Errorf("%w: %s vs %s", clarionerr.ErrEndpointMismatch, s.EndpointID, other.EndpointID)
	}

	if err := s.UniquePeers.Merge(other.UniquePeers); err != nil {
		return err
	}
	if err := s.UniqueServices.Merge(other.UniqueServices); err != nil {
		return err
	}
	if err := s.UniquePorts.Merge(other.UniquePorts); err != nil {
		return err
	}
	if err := s.PortFrequency.Merge(other.PortFrequency); err != nil {
		return err
	}
	if err := s.ServiceFrequency.Merge(other.ServiceFrequency); err != nil {
		return err
	}

	s.BytesIn += other.BytesIn
	s.BytesOut += other.BytesOut
	s.PacketsIn += other.PacketsIn
	s.PacketsOut += other.PacketsOut
	s.FlowCount += other.FlowCount
	s.ActiveHours |= other.ActiveHours

	if other.FirstSeen.Before(s.FirstSeen) || s.FirstSeen.IsZero() {
		s.FirstSeen = other.FirstSeen
	}
	if other.LastSeen.After(s.LastSeen) {
		s.LastSeen = other.LastSeen
	}

	if s.Username == "" {
		s.Username = other.Username
	}
	if len(s.ADGroups) == 0 {
		s.ADGroups = other.ADGroups
	}
	if s.ISEProfile == "" {
		s.ISEProfile = other.ISEProfile
	}
	if s.DeviceType == "" {
		s.DeviceType = other.DeviceType
	}
	if s.DeviceID == "" {
		s.DeviceID = other.DeviceID
	}

	s.Version++
	return nil
}

// PeerDiversity is the estimated count of distinct destination IPs.
func (s *Sketch) PeerDiversity() uint64 { return s.UniquePeers.Count() }

// PortDiversity is the estimated count of distinct "proto/port" tokens.
func (s *Sketch) PortDiversity() uint64 { return s.UniquePorts.Count() }

// ServiceDiversity is the estimated count of distinct resolved services.
func (s *Sketch) ServiceDiversity() uint64 { return s.UniqueServices.Count() }

// InOutRatio is bytes_in / (bytes_in + bytes_out), 0.5 when both are zero.
func (s *Sketch) InOutRatio() float64 {
	total := s.BytesIn + s.BytesOut
	if total == 0 {
		return 0.5
	}
	return float64(s.BytesIn) / float64(total)
}

// IsLikelyServer flags endpoints with inbound-heavy, low-diversity traffic.
func (s *Sketch) IsLikelyServer() bool {
	return s.InOutRatio() > 0.6 && s.PeerDiversity() < 100
}

// BusinessHoursRatio is the fraction of active hours that fall in 08:00-17:00.
func (s *Sketch) BusinessHoursRatio() float64 {
	total := popcount24(s.ActiveHours)
	if total == 0 {
		return 0
	}
	businessMask := uint32(0)
	for h := 8; h <= 17; h++ {
		businessMask |= 1 << uint(h)
	}
	business := popcount24(s.ActiveHours & businessMask)
	return float64(business) / float64(total)
}

func popcount24(bits uint32) int {
	n := 0
	for h := 0; h < 24; h++ {
		if bits&(1<<uint(h)) != 0 {
			n++
		}
	}
	return n
}
