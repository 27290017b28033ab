// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sketch

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
)

const hllMagic = 0x48 // 'H'

// HLL is a HyperLogLog cardinality estimator. The register array has
// 2^Precision single-byte registers; each holds the largest rank (1 +
// trailing zero count) seen among items hashed into it.
type HLL struct {
	Precision uint8
	registers []uint8
}

// NewHLL builds an empty estimator at the given precision (recommended
// 12-14: 2^12=4096 to 2^14=16384 registers).
func NewHLL(precision uint8) *HLL {
	return &HLL{
		Precision: precision,
		registers: make([]uint8, 1<<precision),
	}
}

func (h *HLL) m() int { return 1 << h.Precision }

// Add hashes item into the sketch, updating the owning register via max.
func (h *HLL) Add(item string) {
	p := uint64(h.Precision)
	hv := hash64(0xc1a12100, []byte(item))

	idx := hv >> (64 - p)
	remaining := hv << p >> p // keep the low (64-p) bits

	tz := bits.TrailingZeros64(remaining)
	if tz > int(64-p) {
		tz = int(64 - p)
	}
	rank := uint8(tz + 1)

	if rank > h.registers[idx] {
		h.registers[idx] = rank
	}
}

// alpha returns the HyperLogLog bias-correction constant for m registers.
func alpha(m int) float64 {
	switch m {
	case 16:
		return 0.673
	case 32:
		return 0.697
	case 64:
		return 0.709
	default:
		return 0.7213 / (1 + 1.079/float64(m))
	}
}

// Count returns the bias-corrected cardinality estimate. Small cardinalities
// (raw estimate within 2.5x of m, with empty registers present) fall back to
// linear counting, which is far more accurate in that regime than the raw
// harmonic-mean estimator.
func (h *HLL) Count() uint64 {
	m := h.m()
	sum := 0.0
	zeros := 0
	for _, r := range h.registers {
		sum += 1.0 / float64(uint64(1)<<r)
		if r == 0 {
			zeros++
		}
	}

	raw := alpha(m) * float64(m) * float64(m) / sum

	if raw <= 2.5*float64(m) && zeros > 0 {
		return uint64(math.Round(float64(m) * math.Log(float64(m)/float64(zeros))))
	}
	return uint64(math.Round(raw))
}

// Merge folds other into h register-wise (max), requiring equal precision.
func (h *HLL) Merge(other *HLL) error {
	if h.Precision != other.Precision {
		return fmt.Errorf("%w: hll precision %d vs %d", clarionerr.ErrIncompatibleSketch, h.Precision, other.Precision)
	}
	for i, r := range other.registers {
		if r > h.registers[i] {
			h.registers[i] = r
		}
	}
	return nil
}

// Serialize produces a compact wire form: [magic][precision][registers...].
func (h *HLL) Serialize() []byte {
	buf := make([]byte, 2+len(h.registers))
	buf[0] = hllMagic
	buf[1] = h.Precision
	copy(buf[2:], h.registers)
	return buf
}

// DeserializeHLL reconstructs an HLL from Serialize's output, failing with
// ErrInvalidFormat if the magic byte or register count don't line up with
// the embedded precision.
func DeserializeHLL(data []byte) (*HLL, error) {
	if len(data) < 2 || data[0] != hllMagic {
		return nil, fmt.Errorf("%w: bad hll header", clarionerr.ErrInvalidFormat)
	}
	precision := data[1]
	want := 1 << precision
	if len(data)-2 != want {
		return nil, fmt.Errorf("%w: expected %d registers, got %d", clarionerr.ErrInvalidFormat, want, len(data)-2)
	}
	h := &HLL{Precision: precision, registers: make([]uint8, want)}
	copy(h.registers, data[2:])
	return h, nil
}
