// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pipeline wires the backend stages into one full analysis run:
// identity enrichment and feature extraction over a bounded worker pool,
// batch or incremental clustering behind a single-writer mutex, labeling,
// SGT taxonomy generation and lifecycle assignment, policy matrix
// construction, SGACL generation, impact analysis, and the final
// deployment package.
package pipeline

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sgerhart/clarion-sub001/internal/backend/clustering/batch"
	"github.com/sgerhart/clarion-sub001/internal/backend/clustering/incremental"
	"github.com/sgerhart/clarion-sub001/internal/backend/confidence"
	"github.com/sgerhart/clarion-sub001/internal/backend/eventbus"
	"github.com/sgerhart/clarion-sub001/internal/backend/features"
	"github.com/sgerhart/clarion-sub001/internal/backend/identity"
	"github.com/sgerhart/clarion-sub001/internal/backend/labeler"
	"github.com/sgerhart/clarion-sub001/internal/backend/model"
	"github.com/sgerhart/clarion-sub001/internal/backend/policy/impact"
	"github.com/sgerhart/clarion-sub001/internal/backend/policy/matrix"
	"github.com/sgerhart/clarion-sub001/internal/backend/policy/sgacl"
	"github.com/sgerhart/clarion-sub001/internal/backend/sgt/lifecycle"
	"github.com/sgerhart/clarion-sub001/internal/backend/sgt/mapper"
	"github.com/sgerhart/clarion-sub001/internal/backend/storage"
	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clog"
	"github.com/sgerhart/clarion-sub001/pkg/units"
)

// Config controls the per-stage thresholds a run applies. Fields mirror
// internal/config.BackendConfig one-to-one; cmd/clarion-backend builds one
// of these from a loaded BackendConfig.
type Config struct {
	WorkerPoolSize         int
	Batch                  batch.Config
	IncrementalMaxDistance float64
	Mapper                 mapper.Config
	SGACL                  sgacl.Config
	Impact                 impact.Config
}

// DefaultConfig matches internal/config.DefaultBackendConfig's thresholds.
func DefaultConfig() Config {
	return Config{
		WorkerPoolSize:         8,
		Batch:                  batch.Config{MinClusterSize: 5, MinSamples: 5, Metric: batch.Euclidean},
		IncrementalMaxDistance: 2.0,
		Mapper:                 mapper.Config{BaseSGTValue: 2, MinClusterSize: 10},
		SGACL:                  sgacl.DefaultConfig(),
		Impact:                 impact.DefaultConfig(),
	}
}

// Pipeline runs full analysis passes over sketch summaries synced from the
// edge, producing a model.DeploymentPackage each time.
type Pipeline struct {
	cfg      Config
	store    storage.Interface
	resolver *identity.Resolver
	bus      *eventbus.Bus
	log      clog.Logger

	mu        sync.Mutex // guards scaler, runCount and the last-run stats; not held for lifecycle calls
	scaler    features.Scaler
	lifecycle *lifecycle.Manager
	runCount  int

	lastSilhouette    *float64
	lastClusterSizes  map[int]int
}

// New builds a Pipeline over store, resolving endpoint identity through
// dir. bus may be nil, in which case stage events are silently dropped.
func New(cfg Config, store storage.Interface, dir identity.Directory, bus *eventbus.Bus) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		store:    store,
		resolver: identity.New(dir),
		bus:      bus,
		log:      clog.WithFields(clog.Fields{"component": "pipeline"}),
	}
	adapter := &lifecycleStore{store: store, log: p.log}
	p.lifecycle = lifecycle.New(adapter, lifecycle.WithClusterConfidenceLookup(p.clusterConfidence))
	return p
}

// endpointWork is one unit of the enrichment/feature-extraction worker pool.
type endpointWork struct {
	index   int
	summary clarion.SketchSummary
}

// endpointResult is one completed unit's output, written back at its
// original index so downstream ordering stays deterministic regardless of
// which worker finished first.
type endpointResult struct {
	sketch *endpoint.Sketch
	enr    identity.Enrichment
	raw    [18]float64
	ok     bool
}

// Run executes one full pipeline pass over every sketch summary known for
// switchIDs, folding flows into the policy matrix, and returns the
// resulting deployment package. A nil matrix.Directory IP/service seed is
// valid; destinations then resolve through EndpointCluster/ClusterSGT alone.
func (p *Pipeline) Run(switchIDs []string, flows []clarion.FlowRecord, dirSeed matrix.Directory) (*model.DeploymentPackage, error) {
	summaries, err := p.loadSummaries(switchIDs)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load summaries: %w", err)
	}
	p.publish(eventbus.SubjectIngestComplete, len(summaries), "")

	results := p.enrichAndExtract(summaries)
	p.publish(eventbus.SubjectEnrichComplete, len(results), "")

	clusterResult, centroids, err := p.cluster(results)
	if err != nil {
		return nil, fmt.Errorf("pipeline: cluster: %w", err)
	}
	p.publish(eventbus.SubjectClusterComplete, clusterResult.NClusters, fmt.Sprintf("noise=%d", clusterResult.NNoise))

	p.mu.Lock()
	p.lastSilhouette = clusterResult.Silhouette
	p.lastClusterSizes = clusterResult.ClusterSizes
	p.mu.Unlock()

	labels := p.label(clusterResult, results)
	for id, label := range labels {
		explanation := labeler.Explain(label)
		if err := p.store.StoreClusterLabel(label, explanation); err != nil {
			p.log.Errorf("store cluster label %d: %v", id, err)
		}
	}
	for _, c := range centroids {
		if err := p.store.StoreCentroid(c); err != nil {
			p.log.Errorf("store centroid %d: %v", c.ClusterID, err)
		}
	}
	p.publish(eventbus.SubjectLabelComplete, len(labels), "")

	taxonomy := p.cfg.mapperOrDefault().GenerateTaxonomy(clusterResult, labels)
	endpointCluster := p.assignSGTs(taxonomy, clusterResult)

	clusterSGT := map[int]int{}
	for _, rec := range taxonomy.Recommendations {
		clusterSGT[rec.ClusterID] = rec.SGTValue
	}
	dirSeed.EndpointCluster = endpointCluster
	dirSeed.ClusterSGT = clusterSGT

	cells := matrix.Build(toMatrixFlows(flows), dirSeed)
	for _, cell := range cells {
		if err := p.store.StoreMatrixCell(cell); err != nil {
			p.log.Errorf("store matrix cell %d->%d: %v", cell.SrcSGT, cell.DstSGT, err)
		}
	}

	sgtNames := p.sgtNames()
	policies := map[[2]int]model.SGACLPolicy{}
	for _, cell := range cells {
		policy := sgacl.Generate(cell, p.cfg.SGACL, sgtNames)
		policies[[2]int{cell.SrcSGT, cell.DstSGT}] = policy
		if err := p.store.StoreSGACLPolicy(policy); err != nil {
			p.log.Errorf("store sgacl policy %s: %v", policy.Name, err)
		}
	}
	p.publish(eventbus.SubjectPolicyComplete, len(policies), "")

	report := impact.Analyze(cells, policies, p.cfg.Impact)
	report.GeneratedAt = time.Now()

	pkg := p.assemble(sgtNames, policies, report)
	p.publish(eventbus.SubjectRunComplete, len(pkg.Policies), fmt.Sprintf("critical=%d high=%d", report.CriticalCount, report.HighCount))

	p.mu.Lock()
	p.runCount++
	p.mu.Unlock()

	return &pkg, nil
}

func (cfg Config) mapperOrDefault() *mapper.Mapper {
	return mapper.New(cfg.Mapper)
}

func (p *Pipeline) publish(subject string, count int, note string) {
	if err := p.bus.Publish(subject, eventbus.StageEvent{Stage: subject, Count: count, Timestamp: time.Now(), Note: note}); err != nil {
		p.log.Errorf("publish %s: %v", subject, err)
	}
}

func (p *Pipeline) loadSummaries(switchIDs []string) ([]clarion.SketchSummary, error) {
	seen := map[string]clarion.SketchSummary{}
	for _, sw := range switchIDs {
		sketches, err := p.store.ListSketchesBySwitch(sw)
		if err != nil {
			return nil, err
		}
		for _, s := range sketches {
			seen[s.EndpointID] = s
		}
	}
	out := make([]clarion.SketchSummary, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndpointID < out[j].EndpointID })
	return out, nil
}

// enrichAndExtract runs identity resolution and feature extraction across a
// bounded worker pool, one goroutine set reading off a buffered channel of
// work items and writing each result back to its own index slot -- no
// shared-state locking needed since slots never collide.
func (p *Pipeline) enrichAndExtract(summaries []clarion.SketchSummary) []endpointResult {
	results := make([]endpointResult, len(summaries))
	workers := p.cfg.WorkerPoolSize
	if workers <= 0 {
		workers = 1
	}

	work := make(chan endpointWork, len(summaries))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				results[item.index] = p.processOne(item.summary)
			}
		}()
	}
	for i, s := range summaries {
		work <- endpointWork{index: i, summary: s}
	}
	close(work)
	wg.Wait()

	return results
}

func (p *Pipeline) processOne(summary clarion.SketchSummary) endpointResult {
	sk, err := endpoint.Deserialize(summary.Sketch)
	if err != nil {
		p.log.Errorf("deserialize sketch for %s: %v", summary.EndpointID, err)
		return endpointResult{}
	}

	enr := p.resolver.Resolve(summary.EndpointID)
	if err := p.store.UpsertIdentityRecord(storage.IdentityRecord{
		EndpointID: summary.EndpointID,
		Username:   enr.Username,
		ADGroups:   enr.ADGroups,
		ISEProfile: enr.ISEProfile,
		DeviceType: enr.DeviceType,
		Confidence: enr.Confidence,
		UpdatedAt:  time.Now(),
	}); err != nil {
		p.log.Errorf("upsert identity record %s: %v", summary.EndpointID, err)
	}

	return endpointResult{sketch: sk, enr: enr, raw: features.Extract(sk, enr), ok: true}
}

// cluster runs batch clustering when no centroids are persisted yet, and
// incremental nearest-centroid assignment against the stored snapshot
// otherwise. Feature scaling is fit exactly once, under p.mu, so
// concurrent runs never refit mid-flight.
func (p *Pipeline) cluster(results []endpointResult) (*model.ClusterResult, []model.ClusterCentroid, error) {
	ids := make([]string, 0, len(results))
	raws := make([][18]float64, 0, len(results))
	for _, r := range results {
		if !r.ok {
			continue
		}
		ids = append(ids, r.sketch.EndpointID)
		raws = append(raws, r.raw)
	}

	p.mu.Lock()
	if !p.scaler.Fitted() {
		p.scaler.Fit(raws)
	}
	rows := make([][]float64, len(raws))
	for i, raw := range raws {
		rows[i] = features.ToSlice(p.scaler.Standardize(raw))
	}
	p.mu.Unlock()

	existing, err := p.store.ListCentroids()
	if err != nil {
		return nil, nil, err
	}

	if len(existing) == 0 {
		result := batch.Cluster(ids, rows, p.cfg.Batch)
		centroids := centroidsFromResult(result, rows)
		return result, centroids, nil
	}

	incCfg := incremental.Config{MaxDistanceThreshold: p.cfg.IncrementalMaxDistance, Metric: batch.Euclidean, RecomputeCentroid: true}
	incStore := incremental.NewStore(existing)
	result := incremental.AssignBulk(incStore, ids, rows, incCfg)
	return result, incStore.Snapshot(), nil
}

func centroidsFromResult(result *model.ClusterResult, rows [][]float64) []model.ClusterCentroid {
	sums := map[int][]float64{}
	counts := map[int]int{}
	for i, l := range result.Labels {
		if l == -1 {
			continue
		}
		if _, ok := sums[l]; !ok {
			sums[l] = make([]float64, len(rows[i]))
		}
		for j, v := range rows[i] {
			sums[l][j] += v
		}
		counts[l]++
	}

	ids := make([]int, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]model.ClusterCentroid, 0, len(ids))
	for _, id := range ids {
		n := counts[id]
		vector := make([]float64, len(sums[id]))
		for j, s := range sums[id] {
			vector[j] = s / float64(n)
		}
		out = append(out, model.ClusterCentroid{ClusterID: id, Vector: vector, MemberCount: n, UpdatedAt: time.Now()})
	}
	return out
}

// label derives a ClusterLabel for every cluster id present in result,
// including noise (-1), keyed by cluster id.
func (p *Pipeline) label(result *model.ClusterResult, results []endpointResult) map[int]model.ClusterLabel {
	byEndpoint := map[string]endpointResult{}
	for _, r := range results {
		if r.ok {
			byEndpoint[r.sketch.EndpointID] = r
		}
	}

	membersByCluster := map[int][]labeler.Member{}
	for i, l := range result.Labels {
		epID := result.EndpointIDs[i]
		r, ok := byEndpoint[epID]
		if !ok {
			continue
		}
		membersByCluster[l] = append(membersByCluster[l], labeler.Member{Sketch: r.sketch, Enrichment: r.enr})
	}

	out := map[int]model.ClusterLabel{}
	for clusterID, members := range membersByCluster {
		out[clusterID] = labeler.Label(clusterID, members)
	}
	return out
}

// assignSGTs creates or updates one SGT registry entry per taxonomy
// recommendation and assigns every member endpoint to it, returning the
// resulting endpoint -> cluster map the matrix builder needs.
func (p *Pipeline) assignSGTs(taxonomy model.SGTTaxonomy, result *model.ClusterResult) map[string]int {
	endpointCluster := map[string]int{}
	for i, epID := range result.EndpointIDs {
		endpointCluster[epID] = result.Labels[i]
	}

	for _, rec := range taxonomy.Recommendations {
		if _, ok := p.lifecycle.GetSGT(rec.SGTValue); !ok {
			if _, err := p.lifecycle.CreateSGT(rec.SGTValue, rec.SGTName, rec.Category, rec.Justification); err != nil {
				p.log.Errorf("create sgt %d: %v", rec.SGTValue, err)
				continue
			}
		}

		clusterID := rec.ClusterID
		requests := make([]lifecycle.AssignEndpoint, 0, len(result.Members(clusterID)))
		for _, epID := range result.Members(clusterID) {
			cid := clusterID
			requests = append(requests, lifecycle.AssignEndpoint{
				EndpointID: epID,
				SGTValue:   rec.SGTValue,
				AssignedBy: "clustering",
				ClusterID:  &cid,
			})
		}
		bulk := p.lifecycle.AssignEndpointsBulk(requests)
		for _, e := range bulk.Errors {
			p.log.Errorf("assign endpoint %s to sgt %d: %v", e.EndpointID, rec.SGTValue, e.Err)
		}
	}

	return endpointCluster
}

// clusterConfidence derives an SGT assignment's starting confidence from
// the most recent clustering run's per-cluster size and overall silhouette
// score, supplying lifecycle.Manager's
// ClusterConfidenceLookup hook.
func (p *Pipeline) clusterConfidence(_ string, clusterID int) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size, ok := p.lastClusterSizes[clusterID]
	if !ok {
		return 0, false
	}
	in := confidence.ClusterAssignmentInput{ClusterID: clusterID, ClusterSize: &size, Silhouette: p.lastSilhouette}
	return confidence.ForClusterAssignment(in), true
}

func (p *Pipeline) sgtNames() map[int]string {
	entries, err := p.store.ListSGTs(false)
	if err != nil {
		p.log.Errorf("list sgts: %v", err)
		return nil
	}
	out := make(map[int]string, len(entries))
	for _, e := range entries {
		out[e.SGTValue] = e.SGTName
	}
	return out
}

func (p *Pipeline) assemble(sgtNames map[int]string, policies map[[2]int]model.SGACLPolicy, report model.ImpactReport) model.DeploymentPackage {
	entries, err := p.store.ListSGTs(true)
	if err != nil {
		p.log.Errorf("list active sgts: %v", err)
	}

	policyList := make([]model.SGACLPolicy, 0, len(policies))
	bindings := make([]model.SGTBinding, 0, len(policies))
	for _, policy := range policies {
		policyList = append(policyList, policy)
		bindings = append(bindings, model.SGTBinding{SrcSGT: policy.SrcSGT, DstSGT: policy.DstSGT, Policy: policy.Name})
	}
	sort.Slice(policyList, func(i, j int) bool {
		if policyList[i].SrcSGT != policyList[j].SrcSGT {
			return policyList[i].SrcSGT < policyList[j].SrcSGT
		}
		return policyList[i].DstSGT < policyList[j].DstSGT
	})
	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].SrcSGT != bindings[j].SrcSGT {
			return bindings[i].SrcSGT < bindings[j].SrcSGT
		}
		return bindings[i].DstSGT < bindings[j].DstSGT
	})

	return model.DeploymentPackage{
		GeneratedAt: time.Now(),
		SGTs:        entries,
		Policies:    policyList,
		Bindings:    bindings,
		Impact:      report,
		GuideNotes:  deploymentGuideNotes(report, sgtNames),
	}
}

// deploymentGuideNotes renders one line per critical blocked-traffic entry
// with its SGT names resolved.
func deploymentGuideNotes(report model.ImpactReport, sgtNames map[int]string) []string {
	if !report.HasCriticalIssues() {
		return []string{"No critical blocks detected; policies are ready for staged deployment."}
	}
	notes := make([]string, 0, report.CriticalCount+1)
	notes = append(notes, fmt.Sprintf("%d critical block(s) require review before ISE deployment:", report.CriticalCount))
	for _, b := range report.Blocked {
		if b.RiskLevel != model.RiskCritical {
			continue
		}
		notes = append(notes, fmt.Sprintf("%s -> %s blocks %s (%s, %s): %s",
			sgtLabel(sgtNames, b.SrcSGT), sgtLabel(sgtNames, b.DstSGT), b.PortKey,
			units.FormatCount(b.FlowCount, units.Flows), units.FormatBytes(b.BytesCount), b.Recommendation))
	}
	return notes
}

func sgtLabel(names map[int]string, sgt int) string {
	if name, ok := names[sgt]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("SGT-%d", sgt)
}

func toMatrixFlows(flows []clarion.FlowRecord) []matrix.Flow {
	out := make([]matrix.Flow, 0, len(flows))
	for _, f := range flows {
		if !f.Valid() {
			continue
		}
		out = append(out, matrix.Flow{
			SrcMAC:    f.SrcMAC,
			DstIP:     f.DstIP,
			DstPort:   f.DstPort,
			Proto:     f.Proto,
			Bytes:     f.Bytes,
			Timestamp: f.Time,
		})
	}
	return out
}

// lifecycleStore adapts storage.Interface (error-returning) to
// lifecycle.Store (panic-free, error-swallowing) -- the lifecycle manager's
// contract predates the durable store and logs failures instead of
// threading errors through every call.
type lifecycleStore struct {
	store storage.Interface
	log   clog.Logger
}

var _ lifecycle.Store = (*lifecycleStore)(nil)

func (a *lifecycleStore) GetSGT(sgtValue int) (model.SGTRegistryEntry, bool) {
	entry, ok, err := a.store.GetSGT(sgtValue)
	if err != nil {
		a.log.Errorf("get sgt %d: %v", sgtValue, err)
	}
	return entry, ok
}

func (a *lifecycleStore) PutSGT(entry model.SGTRegistryEntry) {
	var err error
	if _, ok, _ := a.store.GetSGT(entry.SGTValue); ok {
		err = a.store.UpdateSGT(entry)
	} else {
		err = a.store.CreateSGT(entry)
	}
	if err != nil {
		a.log.Errorf("put sgt %d: %v", entry.SGTValue, err)
	}
}

func (a *lifecycleStore) ListSGTs(activeOnly bool) []model.SGTRegistryEntry {
	entries, err := a.store.ListSGTs(activeOnly)
	if err != nil {
		a.log.Errorf("list sgts: %v", err)
	}
	return entries
}

func (a *lifecycleStore) GetMembership(endpointID string) (model.SGTMembership, bool) {
	m, ok, err := a.store.GetMembership(endpointID)
	if err != nil {
		a.log.Errorf("get membership %s: %v", endpointID, err)
	}
	return m, ok
}

func (a *lifecycleStore) PutMembership(m model.SGTMembership) {
	if err := a.store.UpsertMembership(m); err != nil {
		a.log.Errorf("put membership %s: %v", m.EndpointID, err)
	}
}

func (a *lifecycleStore) DeleteMembership(endpointID string) {
	if err := a.store.CloseMembership(endpointID, time.Now()); err != nil {
		a.log.Errorf("delete membership %s: %v", endpointID, err)
	}
}

func (a *lifecycleStore) ListMembershipsBySGT(sgtValue int) []model.SGTMembership {
	out, err := a.store.ListMembershipsBySGT(sgtValue)
	if err != nil {
		a.log.Errorf("list memberships for sgt %d: %v", sgtValue, err)
	}
	return out
}

func (a *lifecycleStore) AppendHistory(h model.SGTAssignmentHistory) {
	if err := a.store.AppendHistory(h); err != nil {
		a.log.Errorf("append history %s: %v", h.EndpointID, err)
	}
}

func (a *lifecycleStore) CloseHistory(endpointID string, sgtValue int, unassignedAt time.Time) {
	if err := a.store.CloseHistory(endpointID, sgtValue, unassignedAt); err != nil {
		a.log.Errorf("close history %s/%d: %v", endpointID, sgtValue, err)
	}
}

func (a *lifecycleStore) HistoryFor(endpointID string) []model.SGTAssignmentHistory {
	out, err := a.store.HistoryFor(endpointID)
	if err != nil {
		a.log.Errorf("history for %s: %v", endpointID, err)
	}
	return out
}
