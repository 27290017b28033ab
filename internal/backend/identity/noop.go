// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package identity

// NullDirectory implements Directory with no records at all. It is the
// default wired into cmd/clarion-backend when no ISE/pxGrid or AD client is
// configured -- resolving every endpoint at the lowest confidence tier
// rather than failing the run. A real deployment replaces it with a
// Directory backed by pxGrid/AD.
type NullDirectory struct{}

func (NullDirectory) EndpointByMAC(string) (EndpointRecord, bool) { return EndpointRecord{}, false }
func (NullDirectory) SessionByMAC(string) (Session, bool)         { return Session{}, false }
func (NullDirectory) UserByName(string) (User, bool)              { return User{}, false }
func (NullDirectory) GroupsOfUser(string) ([]string, bool)        { return nil, false }
