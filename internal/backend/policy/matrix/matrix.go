// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package matrix implements the policy matrix builder: folding a batch
// of observed flows into the SGT-by-SGT cells the SGACL generator
// (internal/backend/policy/sgacl) consumes.
package matrix

import (
	"sort"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
)

// UnknownSGT is the SGT value used for a destination that resolves to
// neither a known endpoint nor a known service.
const UnknownSGT = 0

// ServersSGT is the category value used for a destination that isn't a
// known endpoint but is a known service.
const ServersSGT = 10

// Flow is one observed flow as consumed by the matrix builder. It mirrors
// clarion.FlowRecord's fields the builder actually needs; callers
// typically build one from a decoded clarion.FlowRecord plus its DstIP.
type Flow struct {
	SrcMAC    string
	DstIP     string
	DstPort   uint16
	Proto     clarion.Protocol
	Bytes     uint64
	Timestamp time.Time
}

// Directory resolves the inputs the builder needs beyond the flow stream
// itself: endpoint-to-cluster, cluster-to-SGT, and IP-to-service maps. A
// zero Directory is valid; every lookup then misses and destinations fall
// through to ServersSGT/UnknownSGT.
type Directory struct {
	// EndpointCluster maps an endpoint id to its assigned cluster.
	EndpointCluster map[string]int
	// ClusterSGT maps a cluster id to its assigned SGT value.
	ClusterSGT map[int]int
	// IPToEndpoint maps a destination IP to the endpoint id that owns it,
	// when the destination is itself a known endpoint.
	IPToEndpoint map[string]string
	// IPToService maps a destination IP to a resolved service name, when
	// the destination is a known service rather than an endpoint.
	IPToService map[string]string
}

func (d Directory) clusterSGT(clusterID int) (int, bool) {
	if d.ClusterSGT == nil {
		return 0, false
	}
	v, ok := d.ClusterSGT[clusterID]
	return v, ok
}

// sgtForEndpoint resolves an endpoint id to its current SGT via the
// endpoint->cluster and cluster->SGT maps. Missing at any step is a miss.
func (d Directory) sgtForEndpoint(endpointID string) (int, bool) {
	if d.EndpointCluster == nil {
		return 0, false
	}
	clusterID, ok := d.EndpointCluster[endpointID]
	if !ok {
		return 0, false
	}
	return d.clusterSGT(clusterID)
}

// resolveDst resolves a flow's destination SGT:
// (a) dst_ip is a known endpoint -> its cluster's SGT
// (b) dst_ip is a known service -> ServersSGT
// (c) otherwise -> UnknownSGT
func (d Directory) resolveDst(dstIP string) (sgt int, service string) {
	if d.IPToEndpoint != nil {
		if epID, ok := d.IPToEndpoint[dstIP]; ok {
			if sgt, ok := d.sgtForEndpoint(epID); ok {
				return sgt, ""
			}
		}
	}
	if d.IPToService != nil {
		if name, ok := d.IPToService[dstIP]; ok {
			return ServersSGT, name
		}
	}
	return UnknownSGT, ""
}

// cellAccum is the builder's working state for one (src,dst) cell,
// carrying the per-cell endpoint sets the final pass folds into
// model.MatrixCell.UniqueSrcEndpoints/UniqueDstEndpoints.
type cellAccum struct {
	cell        model.MatrixCell
	srcEndpoints map[string]struct{}
	dstEndpoints map[string]struct{}
	services     map[string]struct{}
}

// Build aggregates flows into SGT×SGT matrix cells. Flows whose src_mac has
// no resolvable SGT (unknown endpoint) are skipped; every other flow
// contributes to exactly one cell. The returned slice is sorted by
// (src_sgt, dst_sgt) so repeated runs over the same input are stable.
func Build(flows []Flow, dir Directory) []model.MatrixCell {
	cells := map[[2]int]*cellAccum{}

	for _, f := range flows {
		srcSGT, ok := dir.sgtForEndpoint(f.SrcMAC)
		if !ok {
			continue
		}
		dstSGT, service := dir.resolveDst(f.DstIP)

		key := [2]int{srcSGT, dstSGT}
		acc, ok := cells[key]
		if !ok {
			acc = &cellAccum{
				cell: model.MatrixCell{
					SrcSGT:        srcSGT,
					DstSGT:        dstSGT,
					ObservedPorts: map[string]int{},
					FirstSeen:     f.Timestamp,
					LastSeen:      f.Timestamp,
				},
				srcEndpoints: map[string]struct{}{},
				dstEndpoints: map[string]struct{}{},
				services:     map[string]struct{}{},
			}
			cells[key] = acc
		}

		portKey := clarion.PortKey(f.Proto, f.DstPort)
		acc.cell.ObservedPorts[portKey]++
		acc.cell.TotalBytes += f.Bytes
		acc.cell.TotalFlows++
		if f.Timestamp.Before(acc.cell.FirstSeen) {
			acc.cell.FirstSeen = f.Timestamp
		}
		if f.Timestamp.After(acc.cell.LastSeen) {
			acc.cell.LastSeen = f.Timestamp
		}
		acc.srcEndpoints[f.SrcMAC] = struct{}{}
		if dir.IPToEndpoint != nil {
			if epID, ok := dir.IPToEndpoint[f.DstIP]; ok {
				acc.dstEndpoints[epID] = struct{}{}
			}
		}
		if service != "" {
			acc.services[service] = struct{}{}
		}
	}

	out := make([]model.MatrixCell, 0, len(cells))
	for _, acc := range cells {
		acc.cell.UniqueSrcEndpoints = len(acc.srcEndpoints)
		acc.cell.UniqueDstEndpoints = len(acc.dstEndpoints)
		acc.cell.Services = sortedKeys(acc.services)
		out = append(out, acc.cell)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SrcSGT != out[j].SrcSGT {
			return out[i].SrcSGT < out[j].SrcSGT
		}
		return out[i].DstSGT < out[j].DstSGT
	})
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
