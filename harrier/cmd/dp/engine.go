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

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CloudSearchParams tune the cloud search passes.
type CloudSearchParams struct {
	// ExtraAntiDiagonals is how far a pass explores beyond the seed's own
	// anti-diagonal range.
	ExtraAntiDiagonals int
}

// DefaultCloudSearchParams are the parameters used when none are given.
var DefaultCloudSearchParams = CloudSearchParams{ExtraAntiDiagonals: 3}

// Engine is the bounded-alignment compute collaborator. Implementations
// must be deterministic and must not retain references to the scratch
// structures across calls; callers guarantee that no scratch structure is
// shared between concurrently running jobs.
type Engine interface {
	// CloudSearchForward explores anti-diagonals from the seed start
	// towards the end of both sequences, recording boundary cells.
	CloudSearchForward(p *Profile, t *Sequence, seed *Seed,
		cm *CloudMatrixLinear, params *CloudSearchParams, bounds *CloudBoundGroup)

	// CloudSearchBackward explores anti-diagonals from the seed end
	// towards the start of both sequences.
	CloudSearchBackward(p *Profile, t *Sequence, seed *Seed,
		cm *CloudMatrixLinear, params *CloudSearchParams, bounds *CloudBoundGroup)

	// ForwardBounded fills the forward matrix within the row bounds and
	// returns the forward score in nats.
	ForwardBounded(p *Profile, t *Sequence, m *DpMatrixSparse, rb *RowBounds) float64

	// BackwardBounded fills the backward matrix within the row bounds.
	BackwardBounded(p *Profile, t *Sequence, m *DpMatrixSparse, rb *RowBounds)

	// PosteriorBounded combines the forward and backward matrices into
	// per-cell posterior probabilities.
	PosteriorBounded(p *Profile, fwd, bwd, post *DpMatrixSparse, rb *RowBounds)

	// OptimalAccuracyBounded fills the optimal accuracy matrix from the
	// posterior matrix.
	OptimalAccuracyBounded(p *Profile, post, opt *DpMatrixSparse, rb *RowBounds)

	// TracebackBounded recovers the optimal accuracy path ending at the
	// last bounded target row.
	TracebackBounded(p *Profile, post, opt *DpMatrixSparse, trace *Trace, targetEnd int)

	// NullScore returns the null model score for a target length, in nats.
	NullScore(targetLength int) float64

	// BiasCorrectionScore returns the composition bias correction derived
	// from the posterior matrix, in nats.
	BiasCorrectionScore(post *DpMatrixSparse, p *Profile, t *Sequence, rb *RowBounds) float64
}

// DefaultEngine is the built-in compute collaborator: simple banded
// recurrences over consensus match scores. It is stateless and safe to
// share between workers.
type DefaultEngine struct{}

func matchScore(a, b byte) float64 {
	if a == 'X' || b == 'X' {
		return 0
	}
	if a == b {
		return 2.0
	}
	return -1.0
}

const gapScoreNats = -2.0

func (e DefaultEngine) cloudSearch(p *Profile, t *Sequence,
	targetFrom, targetTo, profileFrom, profileTo int,
	cm *CloudMatrixLinear, bounds *CloudBoundGroup) {

	for d := targetFrom + profileFrom; d <= targetTo+profileTo; d++ {
		iMin := targetFrom
		if d-profileTo > iMin {
			iMin = d - profileTo
		}
		iMax := targetTo
		if d-profileFrom < iMax {
			iMax = d - profileFrom
		}
		if iMin > iMax {
			continue
		}
		bounds.Set(d, iMax, iMin)

		for i := iMin; i <= iMax; i++ {
			cm.Set(d, d-i, matchScore(t.Residue(i), p.ConsensusResidue(d-i)))
		}
	}
}

func (e DefaultEngine) CloudSearchForward(p *Profile, t *Sequence, seed *Seed,
	cm *CloudMatrixLinear, params *CloudSearchParams, bounds *CloudBoundGroup) {

	te := seed.TargetEnd + params.ExtraAntiDiagonals
	if te > t.Length {
		te = t.Length
	}
	pe := seed.ProfileEnd + params.ExtraAntiDiagonals
	if pe > p.Length {
		pe = p.Length
	}
	e.cloudSearch(p, t, seed.TargetStart, te, seed.ProfileStart, pe, cm, bounds)
}

func (e DefaultEngine) CloudSearchBackward(p *Profile, t *Sequence, seed *Seed,
	cm *CloudMatrixLinear, params *CloudSearchParams, bounds *CloudBoundGroup) {

	ts := seed.TargetStart - params.ExtraAntiDiagonals
	if ts < 1 {
		ts = 1
	}
	ps := seed.ProfileStart - params.ExtraAntiDiagonals
	if ps < 1 {
		ps = 1
	}
	e.cloudSearch(p, t, ts, seed.TargetEnd, ps, seed.ProfileEnd, cm, bounds)
}

func (e DefaultEngine) ForwardBounded(p *Profile, t *Sequence, m *DpMatrixSparse, rb *RowBounds) float64 {
	var buf [3]float64
	for i := rb.TargetStart; i <= rb.TargetEnd; i++ {
		for j := rb.ProfileStarts[i]; j <= rb.ProfileEnds[i]; j++ {
			ms := matchScore(t.Residue(i), p.ConsensusResidue(j))

			buf[0] = m.Get(i-1, j-1)
			buf[1] = m.Get(i-1, j) + gapScoreNats
			buf[2] = m.Get(i, j-1) + gapScoreNats
			sum := floats.LogSumExp(buf[:])

			if math.IsInf(sum, -1) { // entry cell
				m.Set(i, j, ms)
			} else {
				m.Set(i, j, ms+sum)
			}
		}
	}

	// sum over the exit row, then account for the unaligned target tail
	last := rb.TargetEnd
	w := rb.ProfileEnds[last] - rb.ProfileStarts[last] + 1
	exits := make([]float64, 0, w)
	for j := rb.ProfileStarts[last]; j <= rb.ProfileEnds[last]; j++ {
		exits = append(exits, m.Get(last, j))
	}
	score := floats.LogSumExp(exits) + p.MoveScore

	unaligned := t.Length - (rb.TargetEnd - rb.TargetStart + 1)
	if unaligned > 0 {
		score += float64(unaligned) * p.LoopScore
	}
	return score
}

func (e DefaultEngine) BackwardBounded(p *Profile, t *Sequence, m *DpMatrixSparse, rb *RowBounds) {
	var buf [3]float64
	for i := rb.TargetEnd; i >= rb.TargetStart; i-- {
		for j := rb.ProfileEnds[i]; j >= rb.ProfileStarts[i]; j-- {
			buf[0] = m.Get(i+1, j+1)
			if i < rb.TargetEnd && !math.IsInf(buf[0], -1) {
				buf[0] += matchScore(t.Residue(i+1), p.ConsensusResidue(j+1))
			}
			buf[1] = m.Get(i+1, j) + gapScoreNats
			buf[2] = m.Get(i, j+1) + gapScoreNats
			sum := floats.LogSumExp(buf[:])

			if math.IsInf(sum, -1) { // exit cell
				m.Set(i, j, 0)
			} else {
				m.Set(i, j, sum)
			}
		}
	}
}

func (e DefaultEngine) PosteriorBounded(p *Profile, fwd, bwd, post *DpMatrixSparse, rb *RowBounds) {
	// total mass over all in-band cells
	total := math.Inf(-1)
	for i := rb.TargetStart; i <= rb.TargetEnd; i++ {
		for j := rb.ProfileStarts[i]; j <= rb.ProfileEnds[i]; j++ {
			total = logAdd(total, fwd.Get(i, j)+bwd.Get(i, j))
		}
	}

	for i := rb.TargetStart; i <= rb.TargetEnd; i++ {
		for j := rb.ProfileStarts[i]; j <= rb.ProfileEnds[i]; j++ {
			v := math.Exp(fwd.Get(i, j) + bwd.Get(i, j) - total)
			if v > 1 {
				v = 1
			}
			post.Set(i, j, v)
		}
	}
}

func (e DefaultEngine) OptimalAccuracyBounded(p *Profile, post, opt *DpMatrixSparse, rb *RowBounds) {
	for i := rb.TargetStart; i <= rb.TargetEnd; i++ {
		for j := rb.ProfileStarts[i]; j <= rb.ProfileEnds[i]; j++ {
			best := 0.0
			if v := opt.Get(i-1, j-1); v > best {
				best = v
			}
			if v := opt.Get(i-1, j); v > best {
				best = v
			}
			if v := opt.Get(i, j-1); v > best {
				best = v
			}
			opt.Set(i, j, post.Get(i, j)+best)
		}
	}
}

func (e DefaultEngine) TracebackBounded(p *Profile, post, opt *DpMatrixSparse, trace *Trace, targetEnd int) {
	// start at the best cell of the last bounded row
	i := targetEnd
	j := opt.profileStarts[i]
	best := math.Inf(-1)
	for jj := opt.profileStarts[i]; jj <= opt.profileEnds[i]; jj++ {
		if v := opt.Get(i, jj); v > best {
			best = v
			j = jj
		}
	}

	state := TraceMatch
	for {
		trace.Append(i, j, state)

		diag := opt.Get(i-1, j-1)
		up := opt.Get(i-1, j)
		left := opt.Get(i, j-1)
		if math.IsInf(diag, -1) && math.IsInf(up, -1) && math.IsInf(left, -1) {
			break
		}
		switch {
		case diag >= up && diag >= left:
			i--
			j--
			state = TraceMatch
		case up >= left:
			i--
			state = TraceInsert
		default:
			j--
			state = TraceDelete
		}
	}
	trace.Reverse()
}

func (e DefaultEngine) NullScore(targetLength int) float64 {
	l := float64(targetLength)
	return l*math.Log(l/(l+1)) + math.Log(1/(l+1))
}

func (e DefaultEngine) BiasCorrectionScore(post *DpMatrixSparse, p *Profile, t *Sequence, rb *RowBounds) float64 {
	var biased float64
	for i := rb.TargetStart; i <= rb.TargetEnd; i++ {
		for j := rb.ProfileStarts[i]; j <= rb.ProfileEnds[i]; j++ {
			if t.Residue(i) != p.ConsensusResidue(j) {
				biased += post.Get(i, j)
			}
		}
	}
	return math.Log1p(biased)
}

// logAdd returns log(exp(a) + exp(b)) without leaving log space.
func logAdd(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	if math.IsInf(b, -1) {
		return a
	}
	return a + math.Log1p(math.Exp(b-a))
}
