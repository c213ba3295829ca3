// Copyright © 2024-2026 The harrier authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package dp

import "math"

// CloudMatrixLinear is the three-row ring matrix used by the cloud search
// passes. One row per anti-diagonal being computed, indexed modulo 3.
type CloudMatrixLinear struct {
	Rows [3][]float64

	ProfileLength int
}

// Reuse prepares the matrix for a profile of the given length, growing the
// rows when needed.
func (cm *CloudMatrixLinear) Reuse(profileLength int) {
	n := profileLength + 1
	for r := 0; r < 3; r++ {
		if cap(cm.Rows[r]) < n {
			cm.Rows[r] = make([]float64, n)
		} else {
			cm.Rows[r] = cm.Rows[r][:n]
		}
		for j := range cm.Rows[r] {
			cm.Rows[r][j] = math.Inf(-1)
		}
	}
	cm.ProfileLength = profileLength
}

// Set stores a value for profile column j on anti-diagonal d.
func (cm *CloudMatrixLinear) Set(d, j int, v float64) {
	cm.Rows[d%3][j] = v
}

// Get returns the value for profile column j on anti-diagonal d.
func (cm *CloudMatrixLinear) Get(d, j int) float64 {
	return cm.Rows[d%3][j]
}

// Capacity returns the current row capacity, for growth inspection.
func (cm *CloudMatrixLinear) Capacity() int {
	return cap(cm.Rows[0])
}

// DpMatrixSparse is a row-bounded dynamic programming matrix: it stores
// values only for cells within the RowBounds it was last reused with.
// The flat backing slice grows to fit the largest band seen and is never
// shrunk. Cells outside the band read as -Inf.
type DpMatrixSparse struct {
	values []float64

	// per-row offsets into values, indexed by target row
	rowOffsets []int

	targetStart, targetEnd int
	profileStarts          []int
	profileEnds            []int
}

// Reuse prepares the matrix for the given row bounds, growing the backing
// slice when needed. All in-band cells are reset to -Inf.
func (m *DpMatrixSparse) Reuse(targetLength, profileLength int, rb *RowBounds) {
	nRows := targetLength + 1
	if cap(m.rowOffsets) < nRows {
		m.rowOffsets = make([]int, nRows)
		m.profileStarts = make([]int, nRows)
		m.profileEnds = make([]int, nRows)
	} else {
		m.rowOffsets = m.rowOffsets[:nRows]
		m.profileStarts = m.profileStarts[:nRows]
		m.profileEnds = m.profileEnds[:nRows]
	}

	m.targetStart = rb.TargetStart
	m.targetEnd = rb.TargetEnd

	cells := 0
	for i := rb.TargetStart; i <= rb.TargetEnd; i++ {
		m.rowOffsets[i] = cells
		m.profileStarts[i] = rb.ProfileStarts[i]
		m.profileEnds[i] = rb.ProfileEnds[i]
		cells += rb.ProfileEnds[i] - rb.ProfileStarts[i] + 1
	}

	if cap(m.values) < cells {
		m.values = make([]float64, cells)
	} else {
		m.values = m.values[:cells]
	}
	for i := range m.values {
		m.values[i] = math.Inf(-1)
	}
}

// InBand reports whether cell (i, j) lies within the current band.
func (m *DpMatrixSparse) InBand(i, j int) bool {
	return i >= m.targetStart && i <= m.targetEnd &&
		j >= m.profileStarts[i] && j <= m.profileEnds[i]
}

// Set stores a value at cell (i, j). The cell must be in band.
func (m *DpMatrixSparse) Set(i, j int, v float64) {
	m.values[m.rowOffsets[i]+j-m.profileStarts[i]] = v
}

// Get returns the value at cell (i, j), or -Inf for out-of-band cells.
func (m *DpMatrixSparse) Get(i, j int) float64 {
	if !m.InBand(i, j) {
		return math.Inf(-1)
	}
	return m.values[m.rowOffsets[i]+j-m.profileStarts[i]]
}

// Capacity returns the current cell capacity, for growth inspection.
func (m *DpMatrixSparse) Capacity() int {
	return cap(m.values)
}
