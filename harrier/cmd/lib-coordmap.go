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

package cmd

import (
	"github.com/pkg/errors"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
)

// Two derivations of the same profile consensus may disagree on which
// columns exist (one tool keeps an insert column the other drops). A
// coordMap translates a 1-based column index of the first derivation into
// the corresponding column of the second: index 0 is reserved, and a
// column deleted from the second derivation maps to the last preceding
// column that survived (possibly 0, see MapStart).
type coordMap []int

// buildCoordMap globally aligns the two consensus sequences and derives
// the column translation table from the alignment path.
func buildCoordMap(from, to *dp.Sequence) (coordMap, error) {
	steps := alignGlobal(from.Residues, to.Residues)

	m := make(coordMap, from.Length+1)
	f, t := 0, 0
	for _, s := range steps {
		switch s {
		case stepMatch:
			f++
			t++
			m[f] = t
		case stepGapInTo:
			f++
			m[f] = t
		case stepGapInFrom:
			t++
		}
	}
	if f != from.Length || t != to.Length {
		return nil, errors.Errorf(
			"coordmap: alignment of %s and %s covers %d of %d and %d of %d columns",
			from.Name, to.Name, f, from.Length, t, to.Length)
	}
	return m, nil
}

// MapStart translates an interval start, clamping the reserved index 0 up
// to the first column so a start never lands before the profile.
func (m coordMap) MapStart(i int) int {
	j := m[i]
	if j < 1 {
		j = 1
	}
	return j
}

// MapEnd translates an interval end.
func (m coordMap) MapEnd(i int) int {
	return m[i]
}

type alignStep byte

const (
	stepMatch     alignStep = iota // consumes a column of both sequences
	stepGapInFrom                  // consumes a column of the second only
	stepGapInTo                    // consumes a column of the first only
)

const (
	nwMatchScore    = 2
	nwMismatchScore = -1
	nwGapScore      = -2
)

// alignGlobal is a plain Needleman-Wunsch global alignment without free
// end gaps, returning the alignment path from the start of both sequences
// to the end of both. Ties prefer the diagonal.
func alignGlobal(a, b []byte) []alignStep {
	r, c := len(a)+1, len(b)+1
	table := make([]int, r*c)

	for j := 1; j < c; j++ {
		table[j] = j * nwGapScore
	}
	for i := 1; i < r; i++ {
		table[i*c] = i * nwGapScore
	}

	var sdiag, sup, sleft int
	for i := 1; i < r; i++ {
		i2 := (i - 1) * c
		i3 := i * c
		for j := 1; j < c; j++ {
			sdiag = table[i2+j-1] + substScore(a[i-1], b[j-1])
			sup = table[i2+j] + nwGapScore
			sleft = table[i3+j-1] + nwGapScore
			switch {
			case sdiag >= sup && sdiag >= sleft:
				table[i3+j] = sdiag
			case sup >= sleft:
				table[i3+j] = sup
			default:
				table[i3+j] = sleft
			}
		}
	}

	steps := make([]alignStep, 0, r+c)
	i, j := r-1, c-1
	for i > 0 && j > 0 {
		sdiag = table[(i-1)*c+j-1] + substScore(a[i-1], b[j-1])
		sup = table[(i-1)*c+j] + nwGapScore
		switch {
		case table[i*c+j] == sdiag:
			i--
			j--
			steps = append(steps, stepMatch)
		case table[i*c+j] == sup:
			i--
			steps = append(steps, stepGapInTo)
		default:
			j--
			steps = append(steps, stepGapInFrom)
		}
	}
	for ; i > 0; i-- {
		steps = append(steps, stepGapInTo)
	}
	for ; j > 0; j-- {
		steps = append(steps, stepGapInFrom)
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}

func substScore(x, y byte) int {
	if x == y {
		return nwMatchScore
	}
	return nwMismatchScore
}
