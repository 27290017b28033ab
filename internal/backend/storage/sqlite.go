// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	"github.com/sgerhart/clarion-sub001/internal/backend/model"
	"github.com/sgerhart/clarion-sub001/pkg/clarion"
	"github.com/sgerhart/clarion-sub001/pkg/clog"
)

// queryHooks times every query through the sqlite driver and logs it at
// debug level.
type queryHooks struct {
	log clog.Logger
}

type queryTimingKey struct{}

func (h *queryHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	h.log.Debugf("query %s %v", query, args)
	return context.WithValue(ctx, queryTimingKey{}, time.Now()), nil
}

func (h *queryHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(queryTimingKey{}).(time.Time); ok {
		h.log.Debugf("took %s", time.Since(begin))
	}
	return ctx, nil
}

var registerHooksOnce sync.Once

// driverName registers the sqlhooks-wrapped sqlite3 driver once per
// process and returns its name.
func driverName() string {
	const name = "sqlite3WithHooks"
	registerHooksOnce.Do(func() {
		sql.Register(name, sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &queryHooks{
			log: clog.WithFields(clog.Fields{"component": "storage"}),
		}))
	})
	return name
}

// Store is the sqlite reference implementation of Interface: a shared
// *sqlx.DB with squirrel for query building, capped to a single connection
// since sqlite doesn't benefit from pooling under concurrent writers --
// matrix rebuilds and SGT lifecycle writes are already serialized by the
// backend's single-writer locks.
type Store struct {
	db  *sqlx.DB
	log clog.Logger
}

var _ Interface = (*Store)(nil)

// Open connects to the sqlite database at dsn and brings its schema up to
// date via the embedded migrations.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open(driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, log: clog.WithFields(clog.Fields{"component": "storage"})}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func joinCSV(ss []string) string { return strings.Join(ss, ",") }

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// --- sketch summaries -------------------------------------------------

func (s *Store) UpsertSketchSummary(sk clarion.SketchSummary) error {
	_, err := s.db.Exec(`
		INSERT INTO sketch_summary (
			endpoint_id, switch_id, device_id, bytes_in, bytes_out, packets_in, packets_out,
			flow_count, first_seen, last_seen, active_hours, version,
			unique_peers_count, unique_ports_count, unique_services_count,
			username, ad_groups, ise_profile, device_type, sketch
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(endpoint_id) DO UPDATE SET
			switch_id=excluded.switch_id, device_id=excluded.device_id,
			bytes_in=excluded.bytes_in, bytes_out=excluded.bytes_out,
			packets_in=excluded.packets_in, packets_out=excluded.packets_out,
			flow_count=excluded.flow_count, first_seen=excluded.first_seen,
			last_seen=excluded.last_seen, active_hours=excluded.active_hours,
			version=excluded.version,
			unique_peers_count=excluded.unique_peers_count,
			unique_ports_count=excluded.unique_ports_count,
			unique_services_count=excluded.unique_services_count,
			username=excluded.username, ad_groups=excluded.ad_groups,
			ise_profile=excluded.ise_profile, device_type=excluded.device_type,
			sketch=excluded.sketch
	`,
		sk.EndpointID, sk.SwitchID, sk.DeviceID, sk.BytesIn, sk.BytesOut, sk.PacketsIn, sk.PacketsOut,
		sk.FlowCount, sk.FirstSeen, sk.LastSeen, sk.ActiveHours, sk.Version,
		sk.UniquePeersCount, sk.UniquePortsCount, sk.UniqueServicesCount,
		sk.Username, joinCSV(sk.ADGroups), sk.ISEProfile, sk.DeviceType, sk.Sketch,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert sketch summary %s: %w", sk.EndpointID, err)
	}
	return nil
}

func (s *Store) scanSketchSummary(row *sql.Rows) (clarion.SketchSummary, error) {
	var sk clarion.SketchSummary
	var adGroups string
	if err := row.Scan(
		&sk.EndpointID, &sk.SwitchID, &sk.DeviceID, &sk.BytesIn, &sk.BytesOut, &sk.PacketsIn, &sk.PacketsOut,
		&sk.FlowCount, &sk.FirstSeen, &sk.LastSeen, &sk.ActiveHours, &sk.Version,
		&sk.UniquePeersCount, &sk.UniquePortsCount, &sk.UniqueServicesCount,
		&sk.Username, &adGroups, &sk.ISEProfile, &sk.DeviceType, &sk.Sketch,
	); err != nil {
		return sk, err
	}
	sk.ADGroups = splitCSV(adGroups)
	return sk, nil
}

const sketchSummaryColumns = `endpoint_id, switch_id, device_id, bytes_in, bytes_out, packets_in, packets_out,
	flow_count, first_seen, last_seen, active_hours, version,
	unique_peers_count, unique_ports_count, unique_services_count,
	username, ad_groups, ise_profile, device_type, sketch`

func (s *Store) ListSketchesBySwitch(switchID string) ([]clarion.SketchSummary, error) {
	rows, err := s.db.Query(`SELECT `+sketchSummaryColumns+` FROM sketch_summary WHERE switch_id = ?`, switchID)
	if err != nil {
		return nil, fmt.Errorf("storage: list sketches for %s: %w", switchID, err)
	}
	defer rows.Close()

	var out []clarion.SketchSummary
	for rows.Next() {
		sk, err := s.scanSketchSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

func (s *Store) GetSketchSummary(endpointID string) (clarion.SketchSummary, bool, error) {
	rows, err := s.db.Query(`SELECT `+sketchSummaryColumns+` FROM sketch_summary WHERE endpoint_id = ?`, endpointID)
	if err != nil {
		return clarion.SketchSummary{}, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return clarion.SketchSummary{}, false, rows.Err()
	}
	sk, err := s.scanSketchSummary(rows)
	return sk, err == nil, err
}

// --- identity -----------------------------------------------------------

func (s *Store) UpsertIdentityRecord(r IdentityRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO identity_record (endpoint_id, username, ad_groups, ise_profile, device_type, confidence, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(endpoint_id) DO UPDATE SET
			username=excluded.username, ad_groups=excluded.ad_groups,
			ise_profile=excluded.ise_profile, device_type=excluded.device_type,
			confidence=excluded.confidence, updated_at=excluded.updated_at
	`, r.EndpointID, r.Username, joinCSV(r.ADGroups), r.ISEProfile, r.DeviceType, r.Confidence, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: upsert identity record %s: %w", r.EndpointID, err)
	}
	return nil
}

func (s *Store) GetIdentityRecord(endpointID string) (IdentityRecord, bool, error) {
	var r IdentityRecord
	var adGroups string
	row := s.db.QueryRow(`SELECT endpoint_id, username, ad_groups, ise_profile, device_type, confidence, updated_at FROM identity_record WHERE endpoint_id = ?`, endpointID)
	err := row.Scan(&r.EndpointID, &r.Username, &adGroups, &r.ISEProfile, &r.DeviceType, &r.Confidence, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return IdentityRecord{}, false, nil
	}
	if err != nil {
		return IdentityRecord{}, false, err
	}
	r.ADGroups = splitCSV(adGroups)
	return r, true, nil
}

// --- SGT registry ---------------------------------------------------------

func (s *Store) CreateSGT(entry model.SGTRegistryEntry) error {
	q, args, err := psql().Insert("sgt_registry").
		Columns("sgt_value", "sgt_name", "category", "description", "is_active", "created_at", "updated_at").
		Values(entry.SGTValue, entry.SGTName, string(entry.Category), entry.Description, entry.IsActive, entry.CreatedAt, entry.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(q, args...); err != nil {
		return fmt.Errorf("storage: create sgt %d: %w", entry.SGTValue, err)
	}
	return nil
}

func (s *Store) UpdateSGT(entry model.SGTRegistryEntry) error {
	q, args, err := psql().Update("sgt_registry").
		Set("sgt_name", entry.SGTName).
		Set("category", string(entry.Category)).
		Set("description", entry.Description).
		Set("is_active", entry.IsActive).
		Set("updated_at", entry.UpdatedAt).
		Where(sq.Eq{"sgt_value": entry.SGTValue}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(q, args...); err != nil {
		return fmt.Errorf("storage: update sgt %d: %w", entry.SGTValue, err)
	}
	return nil
}

func scanSGT(row interface{ Scan(...interface{}) error }) (model.SGTRegistryEntry, error) {
	var e model.SGTRegistryEntry
	var category, description sql.NullString
	if err := row.Scan(&e.SGTValue, &e.SGTName, &category, &description, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return e, err
	}
	e.Category = model.SGTCategory(category.String)
	e.Description = description.String
	return e, nil
}

func (s *Store) GetSGT(sgtValue int) (model.SGTRegistryEntry, bool, error) {
	row := s.db.QueryRow(`SELECT sgt_value, sgt_name, category, description, is_active, created_at, updated_at FROM sgt_registry WHERE sgt_value = ?`, sgtValue)
	e, err := scanSGT(row)
	if err == sql.ErrNoRows {
		return model.SGTRegistryEntry{}, false, nil
	}
	if err != nil {
		return model.SGTRegistryEntry{}, false, fmt.Errorf("storage: get sgt %d: %w", sgtValue, err)
	}
	return e, true, nil
}

func (s *Store) ListSGTs(activeOnly bool) ([]model.SGTRegistryEntry, error) {
	query := `SELECT sgt_value, sgt_name, category, description, is_active, created_at, updated_at FROM sgt_registry`
	args := []interface{}{}
	if activeOnly {
		query += ` WHERE is_active = ?`
		args = append(args, true)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list sgts: %w", err)
	}
	defer rows.Close()

	var out []model.SGTRegistryEntry
	for rows.Next() {
		e, err := scanSGT(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- SGT membership --------------------------------------------------------

func (s *Store) UpsertMembership(m model.SGTMembership) error {
	_, err := s.db.Exec(`
		INSERT INTO sgt_membership (endpoint_id, sgt_value, assigned_at, assigned_by, confidence, originating_cluster_id)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(endpoint_id) DO UPDATE SET
			sgt_value=excluded.sgt_value, assigned_at=excluded.assigned_at,
			assigned_by=excluded.assigned_by, confidence=excluded.confidence,
			originating_cluster_id=excluded.originating_cluster_id
	`, m.EndpointID, m.SGTValue, m.AssignedAt, m.AssignedBy, m.Confidence, m.OriginatingCluster)
	if err != nil {
		return fmt.Errorf("storage: upsert membership %s: %w", m.EndpointID, err)
	}
	return nil
}

func (s *Store) CloseMembership(endpointID string, unassignedAt time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM sgt_membership WHERE endpoint_id = ?`, endpointID); err != nil {
		return fmt.Errorf("storage: close membership %s: %w", endpointID, err)
	}
	return nil
}

func scanMembership(row interface{ Scan(...interface{}) error }) (model.SGTMembership, error) {
	var m model.SGTMembership
	var cluster sql.NullInt64
	if err := row.Scan(&m.EndpointID, &m.SGTValue, &m.AssignedAt, &m.AssignedBy, &m.Confidence, &cluster); err != nil {
		return m, err
	}
	if cluster.Valid {
		v := int(cluster.Int64)
		m.OriginatingCluster = &v
	}
	return m, nil
}

func (s *Store) GetMembership(endpointID string) (model.SGTMembership, bool, error) {
	row := s.db.QueryRow(`SELECT endpoint_id, sgt_value, assigned_at, assigned_by, confidence, originating_cluster_id FROM sgt_membership WHERE endpoint_id = ?`, endpointID)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return model.SGTMembership{}, false, nil
	}
	if err != nil {
		return model.SGTMembership{}, false, err
	}
	return m, true, nil
}

func (s *Store) ListMembershipsBySGT(sgtValue int) ([]model.SGTMembership, error) {
	rows, err := s.db.Query(`SELECT endpoint_id, sgt_value, assigned_at, assigned_by, confidence, originating_cluster_id FROM sgt_membership WHERE sgt_value = ?`, sgtValue)
	if err != nil {
		return nil, fmt.Errorf("storage: list memberships for sgt %d: %w", sgtValue, err)
	}
	defer rows.Close()

	var out []model.SGTMembership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- SGT history ------------------------------------------------------------

func (s *Store) AppendHistory(h model.SGTAssignmentHistory) error {
	_, err := s.db.Exec(`
		INSERT INTO sgt_history (endpoint_id, sgt_value, assigned_at, unassigned_at, assigned_by)
		VALUES (?,?,?,?,?)
	`, h.EndpointID, h.SGTValue, h.AssignedAt, h.UnassignedAt, h.AssignedBy)
	if err != nil {
		return fmt.Errorf("storage: append history for %s: %w", h.EndpointID, err)
	}
	return nil
}

// CloseHistory stamps unassignedAt on the still-open history row for
// (endpointID, sgtValue), leaving every earlier row untouched. It is an
// UPDATE, not an INSERT -- AssignEndpoint's close-then-reassign sequence
// must produce exactly one new history row per reassignment, not two.
func (s *Store) CloseHistory(endpointID string, sgtValue int, unassignedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE sgt_history SET unassigned_at = ?
		WHERE endpoint_id = ? AND sgt_value = ? AND unassigned_at IS NULL
	`, unassignedAt, endpointID, sgtValue)
	if err != nil {
		return fmt.Errorf("storage: close history for %s/%d: %w", endpointID, sgtValue, err)
	}
	return nil
}

func (s *Store) HistoryFor(endpointID string) ([]model.SGTAssignmentHistory, error) {
	rows, err := s.db.Query(`SELECT id, endpoint_id, sgt_value, assigned_at, unassigned_at, assigned_by FROM sgt_history WHERE endpoint_id = ? ORDER BY assigned_at ASC`, endpointID)
	if err != nil {
		return nil, fmt.Errorf("storage: history for %s: %w", endpointID, err)
	}
	defer rows.Close()

	var out []model.SGTAssignmentHistory
	for rows.Next() {
		var h model.SGTAssignmentHistory
		var unassigned sql.NullTime
		if err := rows.Scan(&h.ID, &h.EndpointID, &h.SGTValue, &h.AssignedAt, &unassigned, &h.AssignedBy); err != nil {
			return nil, err
		}
		if unassigned.Valid {
			h.UnassignedAt = &unassigned.Time
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// --- cluster centroids -------------------------------------------------------

func (s *Store) StoreCentroid(c model.ClusterCentroid) error {
	vec, err := json.Marshal(c.Vector)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO cluster_centroid (cluster_id, vector, member_count, sgt_value, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(cluster_id) DO UPDATE SET
			vector=excluded.vector, member_count=excluded.member_count,
			sgt_value=excluded.sgt_value, updated_at=excluded.updated_at
	`, c.ClusterID, string(vec), c.MemberCount, c.SGTValue, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: store centroid %d: %w", c.ClusterID, err)
	}
	return nil
}

func scanCentroid(row interface{ Scan(...interface{}) error }) (model.ClusterCentroid, error) {
	var c model.ClusterCentroid
	var vec string
	var sgt sql.NullInt64
	if err := row.Scan(&c.ClusterID, &vec, &c.MemberCount, &sgt, &c.UpdatedAt); err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(vec), &c.Vector); err != nil {
		return c, err
	}
	if sgt.Valid {
		v := int(sgt.Int64)
		c.SGTValue = &v
	}
	return c, nil
}

func (s *Store) GetCentroid(clusterID int) (model.ClusterCentroid, bool, error) {
	row := s.db.QueryRow(`SELECT cluster_id, vector, member_count, sgt_value, updated_at FROM cluster_centroid WHERE cluster_id = ?`, clusterID)
	c, err := scanCentroid(row)
	if err == sql.ErrNoRows {
		return model.ClusterCentroid{}, false, nil
	}
	if err != nil {
		return model.ClusterCentroid{}, false, err
	}
	return c, true, nil
}

func (s *Store) ListCentroids() ([]model.ClusterCentroid, error) {
	rows, err := s.db.Query(`SELECT cluster_id, vector, member_count, sgt_value, updated_at FROM cluster_centroid`)
	if err != nil {
		return nil, fmt.Errorf("storage: list centroids: %w", err)
	}
	defer rows.Close()

	var out []model.ClusterCentroid
	for rows.Next() {
		c, err := scanCentroid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- cluster labels ----------------------------------------------------------

func (s *Store) StoreClusterLabel(label model.ClusterLabel, explanation string) error {
	adGroups, err := json.Marshal(label.TopADGroups)
	if err != nil {
		return err
	}
	iseProfiles, err := json.Marshal(label.TopISEProfile)
	if err != nil {
		return err
	}
	deviceTypes, err := json.Marshal(label.TopDeviceType)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO cluster_label (
			cluster_id, display_name, primary_reason, confidence, member_count,
			top_ad_groups, top_ise_profiles, top_device_types,
			avg_peer_diversity, avg_in_out_ratio, is_server_cluster, explanation
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(cluster_id) DO UPDATE SET
			display_name=excluded.display_name, primary_reason=excluded.primary_reason,
			confidence=excluded.confidence, member_count=excluded.member_count,
			top_ad_groups=excluded.top_ad_groups, top_ise_profiles=excluded.top_ise_profiles,
			top_device_types=excluded.top_device_types,
			avg_peer_diversity=excluded.avg_peer_diversity, avg_in_out_ratio=excluded.avg_in_out_ratio,
			is_server_cluster=excluded.is_server_cluster, explanation=excluded.explanation
	`, label.ClusterID, label.DisplayName, label.PrimaryReason, label.Confidence, label.MemberCount,
		string(adGroups), string(iseProfiles), string(deviceTypes),
		label.Behavioral.AvgPeerDiversity, label.Behavioral.AvgInOutRatio, label.Behavioral.IsServerCluster, explanation)
	if err != nil {
		return fmt.Errorf("storage: store cluster label %d: %w", label.ClusterID, err)
	}
	return nil
}

func (s *Store) GetClusterLabel(clusterID int) (model.ClusterLabel, string, bool, error) {
	var label model.ClusterLabel
	var adGroups, iseProfiles, deviceTypes, explanation string
	row := s.db.QueryRow(`
		SELECT cluster_id, display_name, primary_reason, confidence, member_count,
			top_ad_groups, top_ise_profiles, top_device_types,
			avg_peer_diversity, avg_in_out_ratio, is_server_cluster, explanation
		FROM cluster_label WHERE cluster_id = ?`, clusterID)
	err := row.Scan(&label.ClusterID, &label.DisplayName, &label.PrimaryReason, &label.Confidence, &label.MemberCount,
		&adGroups, &iseProfiles, &deviceTypes,
		&label.Behavioral.AvgPeerDiversity, &label.Behavioral.AvgInOutRatio, &label.Behavioral.IsServerCluster, &explanation)
	if err == sql.ErrNoRows {
		return model.ClusterLabel{}, "", false, nil
	}
	if err != nil {
		return model.ClusterLabel{}, "", false, err
	}
	_ = json.Unmarshal([]byte(adGroups), &label.TopADGroups)
	_ = json.Unmarshal([]byte(iseProfiles), &label.TopISEProfile)
	_ = json.Unmarshal([]byte(deviceTypes), &label.TopDeviceType)
	return label, explanation, true, nil
}

// --- matrix cells --------------------------------------------------------

func (s *Store) StoreMatrixCell(cell model.MatrixCell) error {
	ports, err := json.Marshal(cell.ObservedPorts)
	if err != nil {
		return err
	}
	services, err := json.Marshal(cell.Services)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO matrix_cell (
			src_sgt, dst_sgt, observed_ports, total_bytes, total_flows,
			unique_src_endpoints, unique_dst_endpoints, first_seen, last_seen, services
		) VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(src_sgt, dst_sgt) DO UPDATE SET
			observed_ports=excluded.observed_ports, total_bytes=excluded.total_bytes,
			total_flows=excluded.total_flows, unique_src_endpoints=excluded.unique_src_endpoints,
			unique_dst_endpoints=excluded.unique_dst_endpoints,
			first_seen=excluded.first_seen, last_seen=excluded.last_seen, services=excluded.services
	`, cell.SrcSGT, cell.DstSGT, string(ports), cell.TotalBytes, cell.TotalFlows,
		cell.UniqueSrcEndpoints, cell.UniqueDstEndpoints, cell.FirstSeen, cell.LastSeen, string(services))
	if err != nil {
		return fmt.Errorf("storage: store matrix cell (%d,%d): %w", cell.SrcSGT, cell.DstSGT, err)
	}
	return nil
}

func (s *Store) ListMatrixCells() ([]model.MatrixCell, error) {
	rows, err := s.db.Query(`
		SELECT src_sgt, dst_sgt, observed_ports, total_bytes, total_flows,
			unique_src_endpoints, unique_dst_endpoints, first_seen, last_seen, services
		FROM matrix_cell`)
	if err != nil {
		return nil, fmt.Errorf("storage: list matrix cells: %w", err)
	}
	defer rows.Close()

	var out []model.MatrixCell
	for rows.Next() {
		var c model.MatrixCell
		var ports, services string
		if err := rows.Scan(&c.SrcSGT, &c.DstSGT, &ports, &c.TotalBytes, &c.TotalFlows,
			&c.UniqueSrcEndpoints, &c.UniqueDstEndpoints, &c.FirstSeen, &c.LastSeen, &services); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(ports), &c.ObservedPorts)
		_ = json.Unmarshal([]byte(services), &c.Services)
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- SGACL policies ----------------------------------------------------------

func (s *Store) StoreSGACLPolicy(policy model.SGACLPolicy) error {
	rules, err := json.Marshal(policy.Rules)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO sgacl_policy (src_sgt, dst_sgt, name, rules, default_action, observed_flows, covered_flows)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(src_sgt, dst_sgt) DO UPDATE SET
			name=excluded.name, rules=excluded.rules, default_action=excluded.default_action,
			observed_flows=excluded.observed_flows, covered_flows=excluded.covered_flows
	`, policy.SrcSGT, policy.DstSGT, policy.Name, string(rules), string(policy.DefaultAction),
		policy.ObservedFlows, policy.CoveredFlows)
	if err != nil {
		return fmt.Errorf("storage: store sgacl policy %q: %w", policy.Name, err)
	}
	return nil
}

func (s *Store) ListSGACLPolicies() ([]model.SGACLPolicy, error) {
	rows, err := s.db.Query(`SELECT src_sgt, dst_sgt, name, rules, default_action, observed_flows, covered_flows FROM sgacl_policy`)
	if err != nil {
		return nil, fmt.Errorf("storage: list sgacl policies: %w", err)
	}
	defer rows.Close()

	var out []model.SGACLPolicy
	for rows.Next() {
		var p model.SGACLPolicy
		var rules, defaultAction string
		if err := rows.Scan(&p.SrcSGT, &p.DstSGT, &p.Name, &rules, &defaultAction, &p.ObservedFlows, &p.CoveredFlows); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(rules), &p.Rules)
		p.DefaultAction = model.SGACLAction(defaultAction)
		out = append(out, p)
	}
	return out, rows.Err()
}
