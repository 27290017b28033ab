// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package identity implements the backend identity resolver: composing
// four read-only directory lookups into a graded enrichment for one
// endpoint. Resolution walks MAC -> endpoint -> session -> user -> groups;
// failures at any step are silent, never fatal -- fields stay empty and
// the confidence grade reflects how far the chain got.
package identity

// EndpointRecord is the device-inventory record keyed by MAC.
type EndpointRecord struct {
	DeviceID   string
	DeviceType string
}

// Session is the most recent session record keyed by MAC.
type Session struct {
	Username   string
	ISEProfile string
}

// User is an Active Directory user record.
type User struct {
	Username string
	Groups   []string
}

// Directory is the external-collaborator interface: four read-only lookup
// capabilities. The core depends only on these signatures and on
// SessionByMAC returning the most recent session.
type Directory interface {
	EndpointByMAC(mac string) (EndpointRecord, bool)
	SessionByMAC(mac string) (Session, bool)
	UserByName(username string) (User, bool)
	GroupsOfUser(username string) ([]string, bool)
}

// privilegedGroups marks the AD groups whose membership sets the
// feature vector's privileged flag.
var privilegedGroups = map[string]bool{
	"Privileged-IT":  true,
	"Network-Admins": true,
	"DevOps":         true,
	"privileged-it":  true,
	"network-admins": true,
	"devops":         true,
}

// Enrichment is the resolved identity context for one endpoint.
type Enrichment struct {
	DeviceID   string
	DeviceType string
	Username   string
	ISEProfile string
	ADGroups   []string
	Privileged bool
	Confidence float64
}

// Resolver composes a Directory's four lookups into graded Enrichment.
type Resolver struct {
	dir Directory
}

// New builds a Resolver over dir.
func New(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve performs the full MAC -> endpoint -> session -> user -> groups
// chain for one endpoint, grading confidence at each step reached:
// 0.3 device record only, 0.8 session but no AD user, 1.0 full chain.
func (r *Resolver) Resolve(endpointID string) Enrichment {
	var enr Enrichment

	if ep, ok := r.dir.EndpointByMAC(endpointID); ok {
		enr.DeviceID = ep.DeviceID
		enr.DeviceType = ep.DeviceType
		enr.Confidence = 0.3
	}

	sess, ok := r.dir.SessionByMAC(endpointID)
	if !ok {
		return enr
	}
	enr.ISEProfile = sess.ISEProfile
	if sess.Username == "" {
		return enr
	}
	enr.Username = sess.Username
	enr.Confidence = 0.8

	user, ok := r.dir.UserByName(sess.Username)
	if !ok {
		return enr
	}
	enr.Confidence = 1.0

	groups := user.Groups
	if fresh, ok := r.dir.GroupsOfUser(sess.Username); ok {
		groups = fresh
	}
	enr.ADGroups = groups
	enr.Privileged = isPrivileged(groups)

	return enr
}

func isPrivileged(groups []string) bool {
	for _, g := range groups {
		if privilegedGroups[g] {
			return true
		}
	}
	return false
}
