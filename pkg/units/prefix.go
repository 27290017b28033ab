// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package units

// Prefix is a scale factor applied to a Measure. Byte counts use binary
// prefixes (Kibi, Mebi, ...); flow, packet and endpoint counts use decimal
// ones. The prefix family is a property of the measure, not global.
type Prefix float64

const (
	InvalidPrefix Prefix = iota
	Base                 = 1
	Kilo                 = 1e3
	Mega                 = 1e6
	Giga                 = 1e9
	Tera                 = 1e12
	Kibi                 = 1024
	Mebi                 = 1024 * 1024
	Gibi                 = 1024 * 1024 * 1024
	Tebi                 = 1024 * 1024 * 1024 * 1024
)

type PrefixData struct {
	Long  string
	Short string
}

var decimalPrefixes = []struct {
	p    Prefix
	data PrefixData
}{
	{Tera, PrefixData{"Tera", "T"}},
	{Giga, PrefixData{"Giga", "G"}},
	{Mega, PrefixData{"Mega", "M"}},
	{Kilo, PrefixData{"Kilo", "K"}},
	{Base, PrefixData{"", ""}},
}

var binaryPrefixes = []struct {
	p    Prefix
	data PrefixData
}{
	{Tebi, PrefixData{"Tebi", "Ti"}},
	{Gibi, PrefixData{"Gibi", "Gi"}},
	{Mebi, PrefixData{"Mebi", "Mi"}},
	{Kibi, PrefixData{"Kibi", "Ki"}},
	{Base, PrefixData{"", ""}},
}

// String returns the long name for the prefix, e.g. 'Kilo' or 'Mebi'.
func (p Prefix) String() string {
	for _, e := range decimalPrefixes {
		if e.p == p {
			return e.data.Long
		}
	}
	for _, e := range binaryPrefixes {
		if e.p == p {
			return e.data.Long
		}
	}
	return InvalidMeasureLong
}

// Short returns the short name for the prefix, e.g. 'K' or 'Mi'.
func (p Prefix) Short() string {
	for _, e := range decimalPrefixes {
		if e.p == p {
			return e.data.Short
		}
	}
	for _, e := range binaryPrefixes {
		if e.p == p {
			return e.data.Short
		}
	}
	return InvalidMeasureShort
}

// pickPrefix walks a prefix ladder (largest first) and returns the first
// entry whose scale brings v into [1, 1000) / [1, 1024), along with the
// scaled value. Falls back to Base for values under the smallest step.
func pickPrefix(v float64, ladder []struct {
	p    Prefix
	data PrefixData
}) (Prefix, float64) {
	for _, e := range ladder {
		if e.p == Base {
			continue
		}
		if v >= float64(e.p) {
			return e.p, v / float64(e.p)
		}
	}
	return Base, v
}
