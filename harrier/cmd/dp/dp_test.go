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
	"testing"
)

func TestSequenceFromDigital(t *testing.T) {
	s, err := NewSequenceFromDigital("s1", []byte{0, 1, 2, 3, 200})
	if err != nil {
		t.Fatal(err)
	}
	if string(s.Residues) != "ACDEX" {
		t.Errorf("expected ACDEX, got %s", s.Residues)
	}
	if s.Residue(1) != 'A' || s.Residue(5) != 'X' {
		t.Errorf("1-based residue access broken")
	}

	if _, err = NewSequenceFromDigital("empty", nil); err != ErrEmptySequence {
		t.Errorf("expected ErrEmptySequence, got %v", err)
	}
}

func TestConfigureForTargetLength(t *testing.T) {
	p, err := NewProfile("P1", "ACC1", []byte("ACDE"))
	if err != nil {
		t.Fatal(err)
	}
	p.ConfigureForTargetLength(100)
	if p.TargetLength != 100 {
		t.Errorf("target length not set")
	}
	if p.MoveScore >= 0 || p.LoopScore >= 0 {
		t.Errorf("transition scores should be negative log probabilities")
	}

	clone := p.Clone()
	clone.ConfigureForTargetLength(200)
	if p.TargetLength != 100 {
		t.Errorf("clone mutation leaked into the original")
	}
	clone.Consensus[0] = 'W'
	if p.Consensus[0] != 'A' {
		t.Errorf("clone shares consensus storage with the original")
	}
}

func TestScratchGrowthMonotonicity(t *testing.T) {
	// capacities must be non-decreasing across a job stream
	var cm CloudMatrixLinear
	var bg CloudBoundGroup
	var rb RowBounds
	var m DpMatrixSparse

	jobs := [][2]int{{10, 8}, {50, 40}, {5, 3}, {100, 90}, {7, 7}}

	lastCm, lastM := 0, 0
	for _, job := range jobs {
		tlen, plen := job[0], job[1]

		cm.Reuse(plen)
		if cm.Capacity() < lastCm {
			t.Errorf("cloud matrix capacity shrank: %d -> %d", lastCm, cm.Capacity())
		}
		lastCm = cm.Capacity()

		bg.Reuse(tlen, plen)
		bg.Set(2, 1, 1)
		bg.Set(tlen+plen, tlen, tlen)

		rb.Reuse(tlen)
		rb.TargetStart = 1
		rb.TargetEnd = tlen
		for i := 1; i <= tlen; i++ {
			rb.ProfileStarts[i] = 1
			rb.ProfileEnds[i] = plen
		}

		m.Reuse(tlen, plen, &rb)
		if m.Capacity() < lastM {
			t.Errorf("dp matrix capacity shrank: %d -> %d", lastM, m.Capacity())
		}
		lastM = m.Capacity()
	}
}

func TestCloudBoundValidity(t *testing.T) {
	var bg CloudBoundGroup
	bg.Reuse(10, 10)
	if bg.Valid() {
		t.Errorf("empty bound group should be invalid")
	}

	bg.Set(4, 2, 2) // cell (2, 2)
	bg.Set(5, 3, 2) // cells (2,3) and (3,2)
	if !bg.Valid() {
		t.Errorf("bound group should be valid")
	}

	bg.Reuse(10, 10)
	bg.Set(4, 2, 3) // left above right: inconsistent
	if bg.Valid() {
		t.Errorf("inconsistent bound should be invalid")
	}
}

func TestJoinBounds(t *testing.T) {
	var fwd, bwd CloudBoundGroup
	fwd.Reuse(10, 10)
	bwd.Reuse(10, 10)

	fwd.Set(6, 4, 2)
	fwd.Set(7, 5, 2)
	bwd.Set(5, 3, 2)
	bwd.Set(6, 5, 3)

	JoinBounds(&fwd, &bwd)

	if fwd.MinAntiDiagonalIdx != 5 || fwd.MaxAntiDiagonalIdx != 7 {
		t.Fatalf("joined range is %d..%d, expected 5..7",
			fwd.MinAntiDiagonalIdx, fwd.MaxAntiDiagonalIdx)
	}
	// anti-diagonal 6 widens to the union of both sides
	b := fwd.Bounds[6]
	if b.LeftTargetIdx != 5 || b.RightTargetIdx != 2 {
		t.Errorf("join did not take the union on the shared anti-diagonal: %+v", b)
	}
	if !fwd.Valid() {
		t.Errorf("joined bounds should be valid")
	}
}

func TestRowBoundsFromCloud(t *testing.T) {
	var bg CloudBoundGroup
	bg.Reuse(10, 10)
	bg.Set(4, 2, 2)
	bg.Set(5, 3, 2)
	bg.Set(6, 3, 3)

	var rb RowBounds
	rb.SetFromCloud(&bg)
	if !rb.Valid() {
		t.Fatalf("row bounds should be valid")
	}
	if rb.TargetStart != 2 || rb.TargetEnd != 3 {
		t.Errorf("row range is %d..%d, expected 2..3", rb.TargetStart, rb.TargetEnd)
	}
	if rb.ProfileStarts[2] != 2 || rb.ProfileEnds[2] != 3 {
		t.Errorf("row 2 span is %d..%d, expected 2..3", rb.ProfileStarts[2], rb.ProfileEnds[2])
	}
	if rb.ProfileStarts[3] != 2 || rb.ProfileEnds[3] != 3 {
		t.Errorf("row 3 span is %d..%d, expected 2..3", rb.ProfileStarts[3], rb.ProfileEnds[3])
	}
}

func runJob(t *testing.T, p *Profile, target *Sequence, seed *Seed) *Alignment {
	t.Helper()

	engine := DefaultEngine{}
	params := DefaultCloudSearchParams

	var cm CloudMatrixLinear
	var fwdBounds, bwdBounds CloudBoundGroup
	var fwd, bwd, post, opt DpMatrixSparse
	var rb RowBounds
	var trace Trace

	p.ConfigureForTargetLength(target.Length)
	cm.Reuse(p.Length)
	fwdBounds.Reuse(target.Length, p.Length)
	bwdBounds.Reuse(target.Length, p.Length)

	engine.CloudSearchForward(p, target, seed, &cm, &params, &fwdBounds)
	engine.CloudSearchBackward(p, target, seed, &cm, &params, &bwdBounds)
	JoinBounds(&fwdBounds, &bwdBounds)
	if !fwdBounds.Valid() {
		t.Fatalf("joined bounds invalid for seed %s", seed)
	}
	fwdBounds.TrimWings()
	rb.SetFromCloud(&fwdBounds)
	if !rb.Valid() {
		t.Fatalf("row bounds invalid for seed %s", seed)
	}

	fwd.Reuse(target.Length, p.Length, &rb)
	bwd.Reuse(target.Length, p.Length, &rb)
	post.Reuse(target.Length, p.Length, &rb)
	opt.Reuse(target.Length, p.Length, &rb)

	params2 := NewScoreParams(1)
	params2.ForwardScoreNats = engine.ForwardBounded(p, target, &fwd, &rb)
	engine.BackwardBounded(p, target, &bwd, &rb)
	engine.PosteriorBounded(p, &fwd, &bwd, &post, &rb)
	params2.NullScoreNats = engine.NullScore(target.Length)
	params2.BiasCorrectionScoreNats = engine.BiasCorrectionScore(&post, p, target, &rb)
	engine.OptimalAccuracyBounded(p, &post, &opt, &rb)

	trace.Reuse(target.Length, p.Length)
	engine.TracebackBounded(p, &post, &opt, &trace, rb.TargetEnd)

	return AlignmentFromTrace(&trace, p, target, params2)
}

func TestEngineDeterminism(t *testing.T) {
	p, _ := NewProfile("P1", "ACC1", []byte("ACDEFGHIKLMNPQRS"))
	target, _ := NewSequence("t1", []byte("MMACDEFGHIKLMNPQRSMM"))
	seed := &Seed{TargetName: "t1", TargetStart: 3, TargetEnd: 18, ProfileStart: 1, ProfileEnd: 16}

	a1 := runJob(t, p, target, seed)
	a2 := runJob(t, p, target, seed)

	if a1.TabString() != a2.TabString() {
		t.Errorf("engine is not deterministic:\n%s\n%s", a1.TabString(), a2.TabString())
	}
	if a1.TargetStart < 1 || a1.TargetEnd > target.Length {
		t.Errorf("alignment out of target range: %s", a1.TabString())
	}
	if math.IsNaN(a1.BitScore) || math.IsNaN(a1.Evalue) {
		t.Errorf("scores must not be NaN: %s", a1.TabString())
	}
}

func TestPosteriorInRange(t *testing.T) {
	p, _ := NewProfile("P1", "ACC1", []byte("ACDE"))
	target, _ := NewSequence("t1", []byte("ACDE"))
	seed := &Seed{TargetName: "t1", TargetStart: 1, TargetEnd: 4, ProfileStart: 1, ProfileEnd: 4}

	engine := DefaultEngine{}
	params := DefaultCloudSearchParams

	var cm CloudMatrixLinear
	var fwdBounds, bwdBounds CloudBoundGroup
	var fwd, bwd, post DpMatrixSparse
	var rb RowBounds

	p.ConfigureForTargetLength(target.Length)
	cm.Reuse(p.Length)
	fwdBounds.Reuse(target.Length, p.Length)
	bwdBounds.Reuse(target.Length, p.Length)
	engine.CloudSearchForward(p, target, seed, &cm, &params, &fwdBounds)
	engine.CloudSearchBackward(p, target, seed, &cm, &params, &bwdBounds)
	JoinBounds(&fwdBounds, &bwdBounds)
	fwdBounds.TrimWings()
	rb.SetFromCloud(&fwdBounds)

	fwd.Reuse(target.Length, p.Length, &rb)
	bwd.Reuse(target.Length, p.Length, &rb)
	post.Reuse(target.Length, p.Length, &rb)
	engine.ForwardBounded(p, target, &fwd, &rb)
	engine.BackwardBounded(p, target, &bwd, &rb)
	engine.PosteriorBounded(p, &fwd, &bwd, &post, &rb)

	for i := rb.TargetStart; i <= rb.TargetEnd; i++ {
		for j := rb.ProfileStarts[i]; j <= rb.ProfileEnds[i]; j++ {
			v := post.Get(i, j)
			if v < 0 || v > 1 {
				t.Errorf("posterior out of range at (%d, %d): %f", i, j, v)
			}
		}
	}
}

func TestEvalueFiltering(t *testing.T) {
	params := NewScoreParams(100)
	params.ForwardScoreNats = 10
	params.NullScoreNats = -5
	params.BiasCorrectionScoreNats = 0

	p, _ := NewProfile("P1", "ACC1", []byte("ACDE"))
	target, _ := NewSequence("t1", []byte("ACDE"))
	var trace Trace
	trace.Append(1, 1, TraceMatch)
	trace.Append(4, 4, TraceMatch)

	a := AlignmentFromTrace(&trace, p, target, params)
	expectedBits := 15.0 / math.Ln2
	if math.Abs(a.BitScore-expectedBits) > 1e-9 {
		t.Errorf("bit score: expected %f, got %f", expectedBits, a.BitScore)
	}
	expectedEvalue := 100 * math.Exp2(-expectedBits)
	if math.Abs(a.Evalue-expectedEvalue) > 1e-12 {
		t.Errorf("evalue: expected %g, got %g", expectedEvalue, a.Evalue)
	}
}
