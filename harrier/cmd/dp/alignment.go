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
	"fmt"
	"math"
)

// TraceState is the state of one trace cell.
type TraceState uint8

const (
	TraceMatch TraceState = iota
	TraceInsert
	TraceDelete
)

// TraceCell is one step of an alignment traceback.
type TraceCell struct {
	TargetIdx  int
	ProfileIdx int
	State      TraceState
}

// Trace is the cell path recovered by the traceback pass. The backing
// slice grows and is reused across jobs.
type Trace struct {
	Cells []TraceCell
}

// Reuse empties the trace, keeping its capacity.
func (t *Trace) Reuse(targetLength, profileLength int) {
	n := targetLength + profileLength
	if cap(t.Cells) < n {
		t.Cells = make([]TraceCell, 0, n)
	} else {
		t.Cells = t.Cells[:0]
	}
}

// Append adds one cell to the trace.
func (t *Trace) Append(i, j int, state TraceState) {
	t.Cells = append(t.Cells, TraceCell{TargetIdx: i, ProfileIdx: j, State: state})
}

// Reverse reverses the cell order in place. Tracebacks collect cells from
// the end of the alignment, so the trace is reversed once at the end.
func (t *Trace) Reverse() {
	for i, j := 0, len(t.Cells)-1; i < j; i, j = i+1, j-1 {
		t.Cells[i], t.Cells[j] = t.Cells[j], t.Cells[i]
	}
}

// ScoreParams carries the per-job raw scores that combine into the final
// bit score: the forward score of the bounded pass, the null model score,
// and the composition bias correction. All in nats.
type ScoreParams struct {
	TargetCount int

	ForwardScoreNats        float64
	NullScoreNats           float64
	BiasCorrectionScoreNats float64
}

// NewScoreParams creates score parameters for a database of the given size.
func NewScoreParams(targetCount int) *ScoreParams {
	return &ScoreParams{TargetCount: targetCount}
}

// Alignment is the scored result of one (profile, seed) job.
type Alignment struct {
	ProfileName string
	TargetName  string

	ProfileStart int
	ProfileEnd   int
	TargetStart  int
	TargetEnd    int

	BitScore float64
	Evalue   float64
}

// AlignmentFromTrace derives the aligned spans from a trace and combines
// the job's raw scores into a bit score and an e-value.
func AlignmentFromTrace(trace *Trace, profile *Profile, target *Sequence, params *ScoreParams) *Alignment {
	a := &Alignment{
		ProfileName: profile.Name,
		TargetName:  target.Name,
	}

	if len(trace.Cells) > 0 {
		first := trace.Cells[0]
		last := trace.Cells[len(trace.Cells)-1]
		a.TargetStart = first.TargetIdx
		a.ProfileStart = first.ProfileIdx
		a.TargetEnd = last.TargetIdx
		a.ProfileEnd = last.ProfileIdx
	}

	nats := params.ForwardScoreNats - params.NullScoreNats - params.BiasCorrectionScoreNats
	a.BitScore = nats / math.Ln2
	a.Evalue = float64(params.TargetCount) * math.Exp2(-a.BitScore)
	return a
}

// TabString formats the alignment as one line of the tabular output:
// profile, target, profile span, target span, bit score, e-value.
func (a *Alignment) TabString() string {
	return fmt.Sprintf("%s\t%s\t%d\t%d\t%d\t%d\t%.2f\t%.2e",
		a.ProfileName, a.TargetName,
		a.ProfileStart, a.ProfileEnd,
		a.TargetStart, a.TargetEnd,
		a.BitScore, a.Evalue)
}
