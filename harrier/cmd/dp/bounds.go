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

// CloudBound is the pair of boundary cells of one anti-diagonal of the
// cloud. Left is the cell with the largest target index (bottom-left),
// Right the cell with the smallest (top-right). For every bound,
// LeftTargetIdx+LeftProfileIdx == RightTargetIdx+RightProfileIdx.
type CloudBound struct {
	LeftTargetIdx   int
	LeftProfileIdx  int
	RightTargetIdx  int
	RightProfileIdx int
}

// CloudBoundGroup holds the boundary cells of the cloud, one CloudBound per
// anti-diagonal index d = targetIdx + profileIdx. The bounds slice grows to
// fit the largest (target, profile) pair seen and never shrinks.
type CloudBoundGroup struct {
	Bounds []CloudBound

	TargetLength  int
	ProfileLength int

	MinAntiDiagonalIdx int
	MaxAntiDiagonalIdx int
}

// Reuse prepares the group for a job against the given lengths, growing
// the bounds slice when needed.
func (bg *CloudBoundGroup) Reuse(targetLength, profileLength int) {
	n := targetLength + profileLength + 1
	if cap(bg.Bounds) < n {
		bg.Bounds = make([]CloudBound, n)
	} else {
		bg.Bounds = bg.Bounds[:n]
		for i := range bg.Bounds {
			bg.Bounds[i] = CloudBound{}
		}
	}
	bg.TargetLength = targetLength
	bg.ProfileLength = profileLength
	bg.MinAntiDiagonalIdx = 0
	bg.MaxAntiDiagonalIdx = -1
}

// Set records the boundary cells of one anti-diagonal. leftTarget is the
// largest target index on the anti-diagonal, rightTarget the smallest.
func (bg *CloudBoundGroup) Set(d, leftTarget, rightTarget int) {
	bg.Bounds[d] = CloudBound{
		LeftTargetIdx:   leftTarget,
		LeftProfileIdx:  d - leftTarget,
		RightTargetIdx:  rightTarget,
		RightProfileIdx: d - rightTarget,
	}
	if bg.MaxAntiDiagonalIdx < 0 {
		bg.MinAntiDiagonalIdx = d
		bg.MaxAntiDiagonalIdx = d
		return
	}
	if d < bg.MinAntiDiagonalIdx {
		bg.MinAntiDiagonalIdx = d
	}
	if d > bg.MaxAntiDiagonalIdx {
		bg.MaxAntiDiagonalIdx = d
	}
}

// Valid reports whether the group describes a usable cloud: a non-empty
// anti-diagonal range whose every bound covers at least one in-range cell.
func (bg *CloudBoundGroup) Valid() bool {
	if bg.MaxAntiDiagonalIdx < bg.MinAntiDiagonalIdx {
		return false
	}
	for d := bg.MinAntiDiagonalIdx; d <= bg.MaxAntiDiagonalIdx; d++ {
		b := &bg.Bounds[d]
		if b.LeftTargetIdx < b.RightTargetIdx {
			return false
		}
		if b.LeftTargetIdx < 1 || b.LeftTargetIdx > bg.TargetLength ||
			b.RightProfileIdx < 1 || b.RightProfileIdx > bg.ProfileLength {
			return false
		}
	}
	return true
}

// JoinBounds merges the backward cloud into the forward cloud: on
// anti-diagonals covered by both, the union of cells is kept; anti-diagonals
// covered by one side only are carried over unchanged.
func JoinBounds(fwd, bwd *CloudBoundGroup) {
	if bwd.MaxAntiDiagonalIdx < bwd.MinAntiDiagonalIdx {
		return
	}
	if fwd.MaxAntiDiagonalIdx < fwd.MinAntiDiagonalIdx {
		fwd.MinAntiDiagonalIdx = bwd.MinAntiDiagonalIdx
		fwd.MaxAntiDiagonalIdx = bwd.MaxAntiDiagonalIdx
		copy(fwd.Bounds[bwd.MinAntiDiagonalIdx:bwd.MaxAntiDiagonalIdx+1],
			bwd.Bounds[bwd.MinAntiDiagonalIdx:bwd.MaxAntiDiagonalIdx+1])
		return
	}

	for d := bwd.MinAntiDiagonalIdx; d <= bwd.MaxAntiDiagonalIdx; d++ {
		b := &bwd.Bounds[d]
		if d < fwd.MinAntiDiagonalIdx || d > fwd.MaxAntiDiagonalIdx {
			fwd.Bounds[d] = *b
			continue
		}
		f := &fwd.Bounds[d]
		if b.LeftTargetIdx > f.LeftTargetIdx {
			f.LeftTargetIdx = b.LeftTargetIdx
			f.LeftProfileIdx = b.LeftProfileIdx
		}
		if b.RightTargetIdx < f.RightTargetIdx {
			f.RightTargetIdx = b.RightTargetIdx
			f.RightProfileIdx = b.RightProfileIdx
		}
	}
	if bwd.MinAntiDiagonalIdx < fwd.MinAntiDiagonalIdx {
		fwd.MinAntiDiagonalIdx = bwd.MinAntiDiagonalIdx
	}
	if bwd.MaxAntiDiagonalIdx > fwd.MaxAntiDiagonalIdx {
		fwd.MaxAntiDiagonalIdx = bwd.MaxAntiDiagonalIdx
	}
}

// TrimWings shaves cells protruding from the cloud: along successive
// anti-diagonals a boundary index may advance by at most one cell, anything
// beyond that is slack left over from joining the two search passes.
func (bg *CloudBoundGroup) TrimWings() {
	for d := bg.MinAntiDiagonalIdx + 1; d <= bg.MaxAntiDiagonalIdx; d++ {
		prev := &bg.Bounds[d-1]
		cur := &bg.Bounds[d]

		// left wing: target index grows by at most 1
		if cur.LeftTargetIdx > prev.LeftTargetIdx+1 {
			cur.LeftTargetIdx = prev.LeftTargetIdx + 1
			cur.LeftProfileIdx = d - cur.LeftTargetIdx
		}
		// right wing: profile index grows by at most 1
		if cur.RightProfileIdx > prev.RightProfileIdx+1 {
			cur.RightProfileIdx = prev.RightProfileIdx + 1
			cur.RightTargetIdx = d - cur.RightProfileIdx
		}
	}
	for d := bg.MaxAntiDiagonalIdx - 1; d >= bg.MinAntiDiagonalIdx; d-- {
		next := &bg.Bounds[d+1]
		cur := &bg.Bounds[d]

		if cur.LeftProfileIdx > next.LeftProfileIdx+1 {
			cur.LeftProfileIdx = next.LeftProfileIdx + 1
			cur.LeftTargetIdx = d - cur.LeftProfileIdx
		}
		if cur.RightTargetIdx > next.RightTargetIdx+1 {
			cur.RightTargetIdx = next.RightTargetIdx + 1
			cur.RightProfileIdx = d - cur.RightTargetIdx
		}
	}
}

// RowBounds hold, per target row, the profile column span the bounded DP
// passes may touch. Derived from a joined CloudBoundGroup. Slices grow to
// the largest target length seen and never shrink.
type RowBounds struct {
	TargetStart int
	TargetEnd   int

	// per-row column spans, indexed by target row
	ProfileStarts []int
	ProfileEnds   []int
}

// Reuse prepares the row bounds for a target of the given length, growing
// the per-row slices when needed.
func (rb *RowBounds) Reuse(targetLength int) {
	n := targetLength + 1
	if cap(rb.ProfileStarts) < n {
		rb.ProfileStarts = make([]int, n)
		rb.ProfileEnds = make([]int, n)
	} else {
		rb.ProfileStarts = rb.ProfileStarts[:n]
		rb.ProfileEnds = rb.ProfileEnds[:n]
		for i := range rb.ProfileStarts {
			rb.ProfileStarts[i] = 0
			rb.ProfileEnds[i] = 0
		}
	}
	rb.TargetStart = 0
	rb.TargetEnd = -1
}

// SetFromCloud derives per-row column bounds from the anti-diagonal bounds.
func (rb *RowBounds) SetFromCloud(bg *CloudBoundGroup) {
	rb.Reuse(bg.TargetLength)

	first, last := -1, -1
	for d := bg.MinAntiDiagonalIdx; d <= bg.MaxAntiDiagonalIdx; d++ {
		b := &bg.Bounds[d]
		for i := b.RightTargetIdx; i <= b.LeftTargetIdx; i++ {
			j := d - i
			if i < 1 || i > bg.TargetLength || j < 1 || j > bg.ProfileLength {
				continue
			}
			if rb.ProfileStarts[i] == 0 || j < rb.ProfileStarts[i] {
				rb.ProfileStarts[i] = j
			}
			if j > rb.ProfileEnds[i] {
				rb.ProfileEnds[i] = j
			}
			if first == -1 || i < first {
				first = i
			}
			if i > last {
				last = i
			}
		}
	}
	if first == -1 {
		return // stays invalid
	}
	rb.TargetStart = first
	rb.TargetEnd = last
}

// Valid reports whether the row bounds describe a usable band: a non-empty
// contiguous row range with a non-empty column span on every row.
func (rb *RowBounds) Valid() bool {
	if rb.TargetStart < 1 || rb.TargetEnd < rb.TargetStart {
		return false
	}
	for i := rb.TargetStart; i <= rb.TargetEnd; i++ {
		if rb.ProfileStarts[i] < 1 || rb.ProfileEnds[i] < rb.ProfileStarts[i] {
			return false
		}
	}
	return true
}
