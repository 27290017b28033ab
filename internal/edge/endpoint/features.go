// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package endpoint

import "math"

// Extract projects a sketch into the lightweight feature vector the edge's
// local k-means clusterer operates on: diversity, volume and timing
// signals only, since the switch has no identity enrichment to draw on and
// no cross-batch standardization to stay consistent with -- unlike
// features.Extract on the backend, this is recomputed fresh every tick.
func Extract(sk *Sketch) []float64 {
	return []float64{
		log1p(float64(sk.PeerDiversity())),
		log1p(float64(sk.PortDiversity())),
		log1p(float64(sk.ServiceDiversity())),
		sk.InOutRatio(),
		log1p(float64(sk.BytesIn + sk.BytesOut)),
		log1p(float64(sk.FlowCount)),
		sk.BusinessHoursRatio(),
	}
}

func log1p(v float64) float64 {
	if v < 0 {
		v = 0
	}
	return math.Log1p(v)
}
