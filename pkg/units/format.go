// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package units

import "fmt"

// FormatBytes renders a byte count with a binary prefix, e.g. 1536 -> "1.5 KiB".
func FormatBytes(v uint64) string {
	return format(float64(v), Bytes, binaryPrefixes)
}

// FormatCount renders a flow, packet or endpoint count with a decimal
// prefix, e.g. 12500 flows -> "12.5K flows".
func FormatCount(v uint64, m Measure) string {
	prefix, scaled := pickPrefix(float64(v), decimalPrefixes)
	if prefix == Base {
		return fmt.Sprintf("%.0f %s", scaled, m.Short())
	}
	return fmt.Sprintf("%.1f%s %s", scaled, prefix.Short(), m.Short())
}

func format(v float64, m Measure, ladder []struct {
	p    Prefix
	data PrefixData
}) string {
	prefix, scaled := pickPrefix(v, ladder)
	short := m.Short()
	if prefix == Base {
		return fmt.Sprintf("%.0f %s", scaled, short)
	}
	return fmt.Sprintf("%.1f %s%s", scaled, prefix.Short(), short)
}
