// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package model holds the backend's shared row and artifact types.
// Field tags carry json for API/export surfaces and db for the
// sqlx/squirrel storage layer.
package model

import "time"

// FeatureVector is the fixed-width, ordered projection of an EndpointSketch
// used by both clustering paths. Ordering is part of the contract -- the
// batch and incremental clusterers, and the frozen standardization
// parameters, all assume this exact layout.
type FeatureVector struct {
	EndpointID string    `json:"endpointId" db:"endpoint_id"`
	Values     []float64 `json:"values" db:"-"`
}

// FeatureNames documents FeatureVector.Values' fixed ordering.
var FeatureNames = []string{
	"log_peer_diversity",
	"log_port_diversity",
	"log_service_diversity",
	"in_out_ratio",
	"log_total_bytes",
	"log_total_flows",
	"active_hours_ratio",
	"business_hours_ratio",
	"log_bytes_per_flow",
	"server_likeness",
	"has_user",
	"group_count",
	"privileged",
	"device_type_laptop",
	"device_type_server",
	"device_type_phone",
	"device_type_iot",
	"device_type_other",
}

// ClusterResult is one batch or incremental clustering run's output.
type ClusterResult struct {
	EndpointIDs   []string  `json:"endpointIds"`
	Labels        []int     `json:"labels"`
	NClusters     int       `json:"nClusters"`
	NNoise        int       `json:"nNoise"`
	ClusterSizes  map[int]int `json:"clusterSizes"`
	Silhouette    *float64  `json:"silhouette,omitempty"`
	Probabilities []float64 `json:"probabilities,omitempty"`
}

// Members returns the endpoint IDs labeled with clusterID, in the order
// they appear in EndpointIDs.
func (r ClusterResult) Members(clusterID int) []string {
	var out []string
	for i, l := range r.Labels {
		if l == clusterID {
			out = append(out, r.EndpointIDs[i])
		}
	}
	return out
}

// ClusterCentroid is the feature-space mean of one non-noise cluster's
// members, used by the incremental assignment path.
type ClusterCentroid struct {
	ClusterID   int       `json:"clusterId" db:"cluster_id"`
	Vector      []float64 `json:"vector" db:"-"`
	MemberCount int       `json:"memberCount" db:"member_count"`
	SGTValue    *int      `json:"sgtValue,omitempty" db:"sgt_value"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// SignalRatio is one enrichment signal's share of a cluster's membership,
// e.g. {"corp-laptops": 0.82}.
type SignalRatio struct {
	Value string  `json:"value"`
	Ratio float64 `json:"ratio"`
}

// BehavioralSummary aggregates derived sketch metrics across a cluster.
type BehavioralSummary struct {
	AvgPeerDiversity float64 `json:"avgPeerDiversity"`
	AvgInOutRatio    float64 `json:"avgInOutRatio"`
	IsServerCluster  bool    `json:"isServerCluster"`
}

// ClusterLabel is the semantic label derived for one cluster.
type ClusterLabel struct {
	ClusterID     int               `json:"clusterId" db:"cluster_id"`
	DisplayName   string            `json:"displayName" db:"display_name"`
	PrimaryReason string            `json:"primaryReason" db:"primary_reason"`
	Confidence    float64           `json:"confidence" db:"confidence"`
	TopADGroups   []SignalRatio     `json:"topAdGroups"`
	TopISEProfile []SignalRatio     `json:"topIseProfiles"`
	TopDeviceType []SignalRatio     `json:"topDeviceTypes"`
	Behavioral    BehavioralSummary `json:"behavioral"`
	MemberCount   int               `json:"memberCount" db:"member_count"`
}

// SGTCategory is the allocation band an SGT value falls into.
type SGTCategory string

const (
	CategoryUsers   SGTCategory = "users"
	CategoryServers SGTCategory = "servers"
	CategoryDevices SGTCategory = "devices"
	CategorySpecial SGTCategory = "special"
)

// SGTRegistryEntry is a stable SGT definition.
type SGTRegistryEntry struct {
	SGTValue    int         `json:"sgtValue" db:"sgt_value"`
	SGTName     string      `json:"sgtName" db:"sgt_name"`
	Category    SGTCategory `json:"category,omitempty" db:"category"`
	Description string      `json:"description" db:"description"`
	IsActive    bool        `json:"isActive" db:"is_active"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at"`
}

// SGTMembership is an endpoint's single active SGT assignment.
type SGTMembership struct {
	EndpointID        string    `json:"endpointId" db:"endpoint_id"`
	SGTValue          int       `json:"sgtValue" db:"sgt_value"`
	AssignedAt        time.Time `json:"assignedAt" db:"assigned_at"`
	AssignedBy        string    `json:"assignedBy" db:"assigned_by"`
	Confidence        float64   `json:"confidence" db:"confidence"`
	OriginatingCluster *int     `json:"originatingClusterId,omitempty" db:"originating_cluster_id"`
}

// SGTAssignmentHistory is one closed or still-open membership interval.
type SGTAssignmentHistory struct {
	ID           int64      `json:"id" db:"id"`
	EndpointID   string     `json:"endpointId" db:"endpoint_id"`
	SGTValue     int        `json:"sgtValue" db:"sgt_value"`
	AssignedAt   time.Time  `json:"assignedAt" db:"assigned_at"`
	UnassignedAt *time.Time `json:"unassignedAt,omitempty" db:"unassigned_at"`
	AssignedBy   string     `json:"assignedBy" db:"assigned_by"`
}

// MatrixCell aggregates observed flows between one (src_sgt, dst_sgt) pair.
type MatrixCell struct {
	SrcSGT             int            `json:"srcSgt" db:"src_sgt"`
	DstSGT             int            `json:"dstSgt" db:"dst_sgt"`
	ObservedPorts      map[string]int `json:"observedPorts" db:"-"`
	TotalBytes         uint64         `json:"totalBytes" db:"total_bytes"`
	TotalFlows         uint64         `json:"totalFlows" db:"total_flows"`
	UniqueSrcEndpoints int            `json:"uniqueSrcEndpoints" db:"unique_src_endpoints"`
	UniqueDstEndpoints int            `json:"uniqueDstEndpoints" db:"unique_dst_endpoints"`
	FirstSeen          time.Time      `json:"firstSeen" db:"first_seen"`
	LastSeen           time.Time      `json:"lastSeen" db:"last_seen"`
	Services           []string       `json:"services" db:"-"`
}

// SGACLAction is permit or deny.
type SGACLAction string

const (
	ActionPermit SGACLAction = "permit"
	ActionDeny   SGACLAction = "deny"
)

// SGACLRule is one ordered rule within an SGACLPolicy.
type SGACLRule struct {
	Action        SGACLAction `json:"action" db:"action"`
	Protocol      string      `json:"protocol" db:"protocol"`
	DstPort       *uint16     `json:"dstPort,omitempty" db:"dst_port"`
	SrcPort       *uint16     `json:"srcPort,omitempty" db:"src_port"`
	Log           bool        `json:"log" db:"log"`
	MatchedFlows  uint64      `json:"matchedFlows" db:"matched_flows"`
	Confidence    float64     `json:"confidence" db:"confidence"`
}

// SGACLPolicy is the ordered, first-match-wins rule set for one (src_sgt,
// dst_sgt) pair plus its coverage statistics.
type SGACLPolicy struct {
	SrcSGT         int         `json:"srcSgt" db:"src_sgt"`
	DstSGT         int         `json:"dstSgt" db:"dst_sgt"`
	Name           string      `json:"name" db:"name"`
	Rules          []SGACLRule `json:"rules"`
	DefaultAction  SGACLAction `json:"defaultAction" db:"default_action"`
	ObservedFlows  uint64      `json:"observedFlows" db:"observed_flows"`
	CoveredFlows   uint64      `json:"coveredFlows" db:"covered_flows"`
}

// Coverage is CoveredFlows / ObservedFlows, 1.0 when nothing was observed.
func (p SGACLPolicy) Coverage() float64 {
	if p.ObservedFlows == 0 {
		return 1.0
	}
	return float64(p.CoveredFlows) / float64(p.ObservedFlows)
}

// RiskLevel classifies the impact of a blocked traffic pattern.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// BlockedTraffic is one flow pattern an SGACL's default deny would block.
type BlockedTraffic struct {
	SrcSGT         int       `json:"srcSgt" db:"src_sgt"`
	DstSGT         int       `json:"dstSgt" db:"dst_sgt"`
	PortKey        string    `json:"portKey" db:"port_key"`
	FlowCount      uint64    `json:"flowCount" db:"flow_count"`
	BytesCount     uint64    `json:"bytesCount" db:"bytes_count"`
	Reason         string    `json:"reason" db:"reason"`
	RiskLevel      RiskLevel `json:"riskLevel" db:"risk_level"`
	Recommendation string    `json:"recommendation" db:"recommendation"`
}

// ImpactReport aggregates BlockedTraffic entries across an entire policy
// run: totals, per-risk-level counts, and the SGTs a deployment would
// disturb.
type ImpactReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	Blocked     []BlockedTraffic `json:"blocked"`

	// Per-risk-level counts, one per model.RiskLevel value.
	CriticalCount int `json:"criticalCount"`
	HighCount     int `json:"highCount"`
	MediumCount   int `json:"mediumCount"`
	LowCount      int `json:"lowCount"`

	// Totals across every analyzed cell. FlowsPermitted + FlowsBlocked
	// always equals TotalFlowsAnalyzed.
	TotalFlowsAnalyzed uint64 `json:"totalFlowsAnalyzed"`
	FlowsPermitted     uint64 `json:"flowsPermitted"`
	FlowsBlocked       uint64 `json:"flowsBlocked"`

	// AffectedSGTs is the set of SGT values (source or destination) that
	// appear in at least one blocked-traffic entry.
	AffectedSGTs []int `json:"affectedSgts"`

	DeploymentNotes []string `json:"deploymentNotes"`
}

// HasCriticalIssues reports whether any blocked-traffic entry is risk-critical.
func (r ImpactReport) HasCriticalIssues() bool {
	return r.CriticalCount > 0
}

// DeploymentPackage is the exported, post-analysis artifact consumed by
// external ISE-deployment tooling.
type DeploymentPackage struct {
	GeneratedAt time.Time           `json:"generatedAt"`
	SGTs        []SGTRegistryEntry  `json:"sgts"`
	Policies    []SGACLPolicy       `json:"policies"`
	Bindings    []SGTBinding        `json:"bindings"`
	Impact      ImpactReport        `json:"impact"`
	GuideNotes  []string            `json:"guideNotes"`
}

// SGTBinding is one SGT-to-SGT policy binding entry in the deployment package.
type SGTBinding struct {
	SrcSGT int    `json:"srcSgt"`
	DstSGT int    `json:"dstSgt"`
	Policy string `json:"policy"`
}

// SGTRecommendation is one proposed SGT allocation for a cluster, emitted
// by the SGT mapper before any registry row is created.
type SGTRecommendation struct {
	ClusterID      int      `json:"clusterId"`
	SGTValue       int      `json:"sgtValue"`
	SGTName        string   `json:"sgtName"`
	Category       SGTCategory `json:"category"`
	ClusterLabel   string   `json:"clusterLabel"`
	ClusterSize    int      `json:"clusterSize"`
	Confidence     float64  `json:"confidence"`
	Justification  string   `json:"justification"`
	EndpointCount  int      `json:"endpointCount"`
	SampleEndpoints []string `json:"sampleEndpoints"`
}

// SGTTaxonomy is the full set of recommendations produced for one
// clustering run, plus coverage statistics.
type SGTTaxonomy struct {
	Recommendations   []SGTRecommendation `json:"recommendations"`
	TotalEndpoints    int                 `json:"totalEndpoints"`
	CoveredEndpoints  int                 `json:"coveredEndpoints"`
	UncoveredEndpoints int                `json:"uncoveredEndpoints"`
	NSGTs             int                 `json:"nSgts"`
	AvgConfidence     float64             `json:"avgConfidence"`
}

// CoverageRatio is CoveredEndpoints / TotalEndpoints, 0 when there were no
// endpoints to cover.
func (t SGTTaxonomy) CoverageRatio() float64 {
	if t.TotalEndpoints == 0 {
		return 0
	}
	return float64(t.CoveredEndpoints) / float64(t.TotalEndpoints)
}
