// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package endpoint

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
	"github.com/sgerhart/clarion-sub001/pkg/sketch"
)

const wireMagic = 0x45 // 'E'
const wireVersion = 1

func putString(buf *[]byte, s string) {
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(s)))
	*buf = append(*buf, lenBuf...)
	*buf = append(*buf, s...)
}

func putBytes(buf *[]byte, b []byte) {
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(b)))
	*buf = append(*buf, lenBuf...)
	*buf = append(*buf, b...)
}

func getString(data []byte, off int) (string, int, error) {
	if len(data) < off+4 {
		return "", 0, fmt.Errorf("%w: truncated string length", clarionerr.ErrInvalidFormat)
	}
	l := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	if len(data) < off+l {
		return "", 0, fmt.Errorf("%w: truncated string body", clarionerr.ErrInvalidFormat)
	}
	return string(data[off : off+l]), off + l, nil
}

func getBytes(data []byte, off int) ([]byte, int, error) {
	s, next, err := getString(data, off)
	return []byte(s), next, err
}

func putUint64(buf *[]byte, v uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	*buf = append(*buf, b...)
}

func getUint64(data []byte, off int) (uint64, int, error) {
	if len(data) < off+8 {
		return 0, 0, fmt.Errorf("%w: truncated uint64", clarionerr.ErrInvalidFormat)
	}
	return binary.LittleEndian.Uint64(data[off:]), off + 8, nil
}

// Serialize produces a self-describing wire form carrying structural
// parameters, identity, counters, temporal state, enrichment, and every
// sub-sketch's own serialized bytes.
func (s *Sketch) Serialize() []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, wireMagic, wireVersion, s.params.HLLPrecision)

	widthDepth := make([]byte, 8)
	binary.LittleEndian.PutUint32(widthDepth[0:4], s.params.CMSWidth)
	binary.LittleEndian.PutUint32(widthDepth[4:8], s.params.CMSDepth)
	buf = append(buf, widthDepth...)

	putString(&buf, s.EndpointID)
	putString(&buf, s.SwitchID)
	putString(&buf, s.DeviceID)

	putUint64(&buf, s.BytesIn)
	putUint64(&buf, s.BytesOut)
	putUint64(&buf, s.PacketsIn)
	putUint64(&buf, s.PacketsOut)
	putUint64(&buf, s.FlowCount)
	putUint64(&buf, uint64(s.FirstSeen.Unix()))
	putUint64(&buf, uint64(s.LastSeen.Unix()))
	putUint64(&buf, uint64(s.ActiveHours))
	putUint64(&buf, uint64(int64(s.LocalClusterID)))
	putUint64(&buf, s.Version)

	putString(&buf, s.Username)
	putString(&buf, strings.Join(s.ADGroups, ","))
	putString(&buf, s.ISEProfile)
	putString(&buf, s.DeviceType)

	putBytes(&buf, s.UniquePeers.Serialize())
	putBytes(&buf, s.UniqueServices.Serialize())
	putBytes(&buf, s.UniquePorts.Serialize())
	putBytes(&buf, s.PortFrequency.Serialize())
	putBytes(&buf, s.ServiceFrequency.Serialize())

	return buf
}

// Deserialize reconstructs a Sketch from Serialize's output.
func Deserialize(data []byte) (*Sketch, error) {
	if len(data) < 11 || data[0] != wireMagic {
		return nil, fmt.Errorf("%w: bad endpoint sketch header", clarionerr.ErrInvalidFormat)
	}
	if data[1] != wireVersion {
		return nil, fmt.Errorf("%w: unsupported endpoint sketch wire version %d", clarionerr.ErrInvalidFormat, data[1])
	}
	precision := data[2]
	width := binary.LittleEndian.Uint32(data[3:7])
	depth := binary.LittleEndian.Uint32(data[7:11])
	off := 11

	endpointID, off, err := getString(data, off)
	if err != nil {
		return nil, err
	}
	switchID, off, err := getString(data, off)
	if err != nil {
		return nil, err
	}
	deviceID, off, err := getString(data, off)
	if err != nil {
		return nil, err
	}

	s := New(endpointID, switchID, Params{HLLPrecision: precision, CMSWidth: width, CMSDepth: depth})
	s.DeviceID = deviceID

	var bytesIn, bytesOut, packetsIn, packetsOut, flowCount, firstSeen, lastSeen, activeHours, clusterID, version uint64
	for _, dst := range []*uint64{&bytesIn, &bytesOut, &packetsIn, &packetsOut, &flowCount, &firstSeen, &lastSeen, &activeHours, &clusterID, &version} {
		*dst, off, err = getUint64(data, off)
		if err != nil {
			return nil, err
		}
	}
	s.BytesIn, s.BytesOut = bytesIn, bytesOut
	s.PacketsIn, s.PacketsOut = packetsIn, packetsOut
	s.FlowCount = flowCount
	s.FirstSeen = time.Unix(int64(firstSeen), 0)
	s.LastSeen = time.Unix(int64(lastSeen), 0)
	s.ActiveHours = uint32(activeHours)
	s.LocalClusterID = int(int64(clusterID))
	s.Version = version

	username, off, err := getString(data, off)
	if err != nil {
		return nil, err
	}
	adGroupsJoined, off, err := getString(data, off)
	if err != nil {
		return nil, err
	}
	iseProfile, off, err := getString(data, off)
	if err != nil {
		return nil, err
	}
	deviceType, off, err := getString(data, off)
	if err != nil {
		return nil, err
	}
	s.Username = username
	if adGroupsJoined != "" {
		s.ADGroups = strings.Split(adGroupsJoined, ",")
	}
	s.ISEProfile = iseProfile
	s.DeviceType = deviceType

	peersBytes, off, err := getBytes(data, off)
	if err != nil {
		return nil, err
	}
	if s.UniquePeers, err = sketch.DeserializeHLL(peersBytes); err != nil {
		return nil, err
	}
	servicesBytes, off, err := getBytes(data, off)
	if err != nil {
		return nil, err
	}
	if s.UniqueServices, err = sketch.DeserializeHLL(servicesBytes); err != nil {
		return nil, err
	}
	portsBytes, off, err := getBytes(data, off)
	if err != nil {
		return nil, err
	}
	if s.UniquePorts, err = sketch.DeserializeHLL(portsBytes); err != nil {
		return nil, err
	}
	portFreqBytes, off, err := getBytes(data, off)
	if err != nil {
		return nil, err
	}
	if s.PortFrequency, err = sketch.DeserializeCountMin(portFreqBytes); err != nil {
		return nil, err
	}
	serviceFreqBytes, _, err := getBytes(data, off)
	if err != nil {
		return nil, err
	}
	if s.ServiceFrequency, err = sketch.DeserializeCountMin(serviceFreqBytes); err != nil {
		return nil, err
	}

	return s, nil
}

// ToSummary projects the sketch into the wire-level summary sent in a sync
// envelope, embedding the full serialized sketch so the
// backend can merge bit-exactly rather than re-deriving counts.
func (s *Sketch) ToSummary() clarion.SketchSummary {
	return clarion.SketchSummary{
		EndpointID:          s.EndpointID,
		SwitchID:            s.SwitchID,
		DeviceID:            s.DeviceID,
		BytesIn:             s.BytesIn,
		BytesOut:            s.BytesOut,
		PacketsIn:           s.PacketsIn,
		PacketsOut:          s.PacketsOut,
		FlowCount:           s.FlowCount,
		FirstSeen:           s.FirstSeen.Unix(),
		LastSeen:            s.LastSeen.Unix(),
		ActiveHours:         s.ActiveHours,
		Version:             s.Version,
		UniquePeersCount:    s.PeerDiversity(),
		UniquePortsCount:    s.PortDiversity(),
		UniqueServicesCount: s.ServiceDiversity(),
		Username:            s.Username,
		ADGroups:            s.ADGroups,
		ISEProfile:          s.ISEProfile,
		DeviceType:          s.DeviceType,
		Sketch:              s.Serialize(),
	}
}
