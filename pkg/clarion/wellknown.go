// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package clarion

// WellKnownPorts aliases common TCP/UDP service ports to a short name.
// The alias is for rendering only, never for rule identity.
var WellKnownPorts = map[uint16]string{
	22:   "ssh",
	53:   "dns",
	80:   "http",
	88:   "kerberos",
	123:  "ntp",
	389:  "ldap",
	443:  "https",
	445:  "smb",
	464:  "kpasswd",
	636:  "ldaps",
	3389: "rdp",
}

// CriticalPorts are destinations whose blockage is always flagged critical
// regardless of volume.
var CriticalPorts = map[uint16]bool{
	53:  true,
	88:  true,
	123: true,
	389: true,
	443: true,
	636: true,
}

// OperationalPorts are well-known ports whose blockage is "high" risk when
// volume is high.
var OperationalPorts = map[uint16]bool{
	22:   true,
	80:   true,
	445:  true,
	464:  true,
	3389: true,
}

// PortAlias returns the human-readable alias for port, or "" if none.
func PortAlias(port uint16) string {
	return WellKnownPorts[port]
}
