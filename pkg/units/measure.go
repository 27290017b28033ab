// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package units renders raw counters (bytes, flows, packets) as
// human-readable strings for deployment guides and impact reports,
// carrying only the measures Clarion actually counts.
package units

import "regexp"

type Measure int

const (
	InvalidMeasure Measure = iota
	Bytes
	Flows
	Packets
	Endpoints
)

type MeasureData struct {
	Long  string
	Short string
	Regex string
}

var InvalidMeasureLong string = "Invalid"
var InvalidMeasureShort string = "inval"

var MeasuresMap map[Measure]MeasureData = map[Measure]MeasureData{
	Bytes: {
		Long:  "Byte",
		Short: "B",
		Regex: "^([bB][yY]?[tT]?[eE]?[sS]?)",
	},
	Flows: {
		Long:  "Flows",
		Short: "flows",
		Regex: "^([fF][lL][oO][wW][sS]?)",
	},
	Packets: {
		Long:  "Packets",
		Short: "pkts",
		Regex: "^([pP][aA]?[cC]?[kK][eE]?[tT][sS]?)",
	},
	Endpoints: {
		Long:  "Endpoints",
		Short: "endpoints",
		Regex: "^([eE][nN][dD][pP][oO][iI][nN][tT][sS]?)",
	},
}

// String returns the long name for the measure, e.g. 'Byte' or 'Flows'.
func (m *Measure) String() string {
	if data, ok := MeasuresMap[*m]; ok {
		return data.Long
	}
	return InvalidMeasureLong
}

// Short returns the short name for the measure, e.g. 'B' or 'flows'.
func (m *Measure) Short() string {
	if data, ok := MeasuresMap[*m]; ok {
		return data.Short
	}
	return InvalidMeasureShort
}

// NewMeasure resolves a measure from a unit string like "bytes" or "pkts".
// The whole string must match one measure's pattern; anything else yields
// InvalidMeasure.
func NewMeasure(s string) Measure {
	for m, data := range MeasuresMap {
		regex := regexp.MustCompile(data.Regex)
		if loc := regex.FindStringIndex(s); loc != nil && loc[1] == len(s) {
			return m
		}
	}
	return InvalidMeasure
}
