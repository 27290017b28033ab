// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package features implements the backend feature extractor: a
// deterministic projection from an EndpointSketch plus its
// identity enrichment into the fixed-width FeatureVector both clustering
// paths share, with standardization parameters fit once on the first batch
// and frozen for every later call.
package features

import (
	"math"

	"github.com/sgerhart/clarion-sub001/internal/backend/identity"
	"github.com/sgerhart/clarion-sub001/internal/edge/endpoint"
)

// numFeatures matches len(model.FeatureNames); the Extract body assigns
// every index. FeatureNames is a slice variable, so the compiler does not
// check that the two lengths agree.
const numFeatures = 18

// Scaler holds the mean/stddev pairs fit on the first batch. A zero-value
// Scaler is "unfit"; call Fit once before Standardize.
type Scaler struct {
	Mean   [numFeatures]float64
	StdDev [numFeatures]float64
	fit    bool
}

// Fit computes per-feature mean and standard deviation over rows and
// freezes them. Calling Fit again after the first successful fit is a
// no-op: parameters are fit on the first batch and frozen thereafter.
func (s *Scaler) Fit(rows [][numFeatures]float64) {
	if s.fit || len(rows) == 0 {
		return
	}

	var sum [numFeatures]float64
	for _, row := range rows {
		for i, v := range row {
			sum[i] += v
		}
	}
	n := float64(len(rows))
	for i := range s.Mean {
		s.Mean[i] = sum[i] / n
	}

	var sqDiff [numFeatures]float64
	for _, row := range rows {
		for i, v := range row {
			d := v - s.Mean[i]
			sqDiff[i] += d * d
		}
	}
	for i := range s.StdDev {
		variance := sqDiff[i] / n
		s.StdDev[i] = math.Sqrt(variance)
		if s.StdDev[i] == 0 {
			s.StdDev[i] = 1 // avoid division by zero for constant features
		}
	}
	s.fit = true
}

// Fitted reports whether Fit has run.
func (s *Scaler) Fitted() bool { return s.fit }

// Standardize applies zero-mean, unit-variance scaling using the frozen
// parameters. If the scaler has never been fit, the raw vector is returned
// unchanged.
func (s *Scaler) Standardize(row [numFeatures]float64) [numFeatures]float64 {
	if !s.fit {
		return row
	}
	var out [numFeatures]float64
	for i, v := range row {
		out[i] = (v - s.Mean[i]) / s.StdDev[i]
	}
	return out
}

// Extract projects a sketch and its identity enrichment into the raw
// (pre-standardization) feature vector, in the fixed order model.FeatureNames
// documents.
func Extract(sk *endpoint.Sketch, enr identity.Enrichment) [numFeatures]float64 {
	var f [numFeatures]float64

	f[0] = log1p(float64(sk.PeerDiversity()))
	f[1] = log1p(float64(sk.PortDiversity()))
	f[2] = log1p(float64(sk.ServiceDiversity()))
	f[3] = sk.InOutRatio()
	f[4] = log1p(float64(sk.BytesIn + sk.BytesOut))
	f[5] = log1p(float64(sk.FlowCount))
	f[6] = activeHoursRatio(sk.ActiveHours)
	f[7] = sk.BusinessHoursRatio()
	f[8] = bytesPerFlow(sk)
	f[9] = boolFloat(sk.IsLikelyServer())
	f[10] = boolFloat(enr.Username != "")
	f[11] = log1p(float64(len(enr.ADGroups)))
	f[12] = boolFloat(enr.Privileged)

	switch enr.DeviceType {
	case "laptop":
		f[13] = 1
	case "server":
		f[14] = 1
	case "phone":
		f[15] = 1
	case "iot":
		f[16] = 1
	default:
		if enr.DeviceType != "" {
			f[17] = 1
		}
	}

	return f
}

func log1p(v float64) float64 {
	if v < 0 {
		v = 0
	}
	return math.Log1p(v)
}

func activeHoursRatio(bits uint32) float64 {
	n := 0
	for h := 0; h < 24; h++ {
		if bits&(1<<uint(h)) != 0 {
			n++
		}
	}
	return float64(n) / 24.0
}

func bytesPerFlow(sk *endpoint.Sketch) float64 {
	if sk.FlowCount == 0 {
		return 0
	}
	return log1p(float64(sk.BytesIn+sk.BytesOut) / float64(sk.FlowCount))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ToSlice converts the fixed-size array to a []float64 for consumption by
// the clustering packages, which operate on variable-width matrices.
func ToSlice(row [numFeatures]float64) []float64 {
	return append([]float64(nil), row[:]...)
}
