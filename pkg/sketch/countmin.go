// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sketch

import (
	"encoding/binary"
	"fmt"

	"github.com/sgerhart/clarion-sub001/pkg/clarionerr"
)

const cmsMagic = 0x43 // 'C'

// CountMin is a Count-Min sketch frequency estimator: Width x Depth
// counters, Depth independent hash rows. count() always overestimates or
// is exact; it never underestimates.
type CountMin struct {
	Width, Depth uint32
	counters     [][]uint64 // [Depth][Width]
}

// NewCountMin builds an empty sketch. Typical defaults are width 500-1000,
// depth 4-5.
func NewCountMin(width, depth uint32) *CountMin {
	counters := make([][]uint64, depth)
	for i := range counters {
		counters[i] = make([]uint64, width)
	}
	return &CountMin{Width: width, Depth: depth, counters: counters}
}

func (c *CountMin) rowIndex(item string, row uint32) uint32 {
	h := hash64(0x0c5100000+uint64(row), []byte(item))
	return uint32(h % uint64(c.Width))
}

// Add increments the counter for item by n in every row.
func (c *CountMin) Add(item string, n uint64) {
	for row := uint32(0); row < c.Depth; row++ {
		idx := c.rowIndex(item, row)
		c.counters[row][idx] += n
	}
}

// Count returns the minimum counter across rows: an overestimate of the
// true frequency, exact when no hash collisions occurred for item.
func (c *CountMin) Count(item string) uint64 {
	min := uint64(0)
	for row := uint32(0); row < c.Depth; row++ {
		idx := c.rowIndex(item, row)
		v := c.counters[row][idx]
		if row == 0 || v < min {
			min = v
		}
	}
	return min
}

// Merge adds other's counters into c element-wise, requiring equal
// dimensions.
func (c *CountMin) Merge(other *CountMin) error {
	if c.Width != other.Width || c.Depth != other.Depth {
		return fmt.Errorf("%w: cms dims %dx%d vs %dx%d", clarionerr.ErrIncompatibleSketch, c.Width, c.Depth, other.Width, other.Depth)
	}
	for row := uint32(0); row < c.Depth; row++ {
		for col := uint32(0); col < c.Width; col++ {
			c.counters[row][col] += other.counters[row][col]
		}
	}
	return nil
}

// Serialize produces [magic][width][depth][counters row-major, little-endian uint64].
func (c *CountMin) Serialize() []byte {
	buf := make([]byte, 9+8*int(c.Width)*int(c.Depth))
	buf[0] = cmsMagic
	binary.LittleEndian.PutUint32(buf[1:5], c.Width)
	binary.LittleEndian.PutUint32(buf[5:9], c.Depth)
	off := 9
	for row := uint32(0); row < c.Depth; row++ {
		for col := uint32(0); col < c.Width; col++ {
			binary.LittleEndian.PutUint64(buf[off:off+8], c.counters[row][col])
			off += 8
		}
	}
	return buf
}

// DeserializeCountMin reconstructs a CountMin from Serialize's output.
func DeserializeCountMin(data []byte) (*CountMin, error) {
	if len(data) < 9 || data[0] != cmsMagic {
		return nil, fmt.Errorf("%w: bad cms header", clarionerr.ErrInvalidFormat)
	}
	width := binary.LittleEndian.Uint32(data[1:5])
	depth := binary.LittleEndian.Uint32(data[5:9])
	want := 9 + 8*int(width)*int(depth)
	if len(data) != want {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", clarionerr.ErrInvalidFormat, want, len(data))
	}
	c := NewCountMin(width, depth)
	off := 9
	for row := uint32(0); row < depth; row++ {
		for col := uint32(0); col < width; col++ {
			c.counters[row][col] = binary.LittleEndian.Uint64(data[off : off+8])
			off += 8
		}
	}
	return c, nil
}
