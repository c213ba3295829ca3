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
	"testing"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
)

func mustSeq(t *testing.T, name, residues string) *dp.Sequence {
	t.Helper()
	s, err := dp.NewSequence(name, []byte(residues))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCoordMapIdentity(t *testing.T) {
	from := mustSeq(t, "a", "ACDEFGHIKL")
	to := mustSeq(t, "b", "ACDEFGHIKL")

	m, err := buildCoordMap(from, to)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= from.Length; i++ {
		if m[i] != i {
			t.Errorf("identity map broken at %d: %d", i, m[i])
		}
	}
}

func TestCoordMapDeletedColumn(t *testing.T) {
	from := mustSeq(t, "a", "ACDE")
	to := mustSeq(t, "b", "ACE")

	m, err := buildCoordMap(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if m[2] != 2 {
		t.Errorf("column 2 should map to 2, got %d", m[2])
	}
	// column 3 (D) has no counterpart, it maps back to the last survivor
	if m[3] != 2 {
		t.Errorf("column 3 should map to 2, got %d", m[3])
	}
	if m[4] != 3 {
		t.Errorf("column 4 should map to 3, got %d", m[4])
	}
}

func TestCoordMapStartClamp(t *testing.T) {
	// the leading column of from precedes every column of to
	from := mustSeq(t, "a", "WACD")
	to := mustSeq(t, "b", "ACD")

	m, err := buildCoordMap(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if m[1] != 0 {
		t.Fatalf("leading deleted column should map to 0, got %d", m[1])
	}
	if m.MapStart(1) != 1 {
		t.Errorf("MapStart must clamp 0 to 1, got %d", m.MapStart(1))
	}
	if m.MapEnd(4) != 3 {
		t.Errorf("MapEnd(4) should be 3, got %d", m.MapEnd(4))
	}
}

func TestCoordMapInsertedColumns(t *testing.T) {
	from := mustSeq(t, "a", "ACE")
	to := mustSeq(t, "b", "ACDE")

	m, err := buildCoordMap(from, to)
	if err != nil {
		t.Fatal(err)
	}
	if m[1] != 1 || m[2] != 2 || m[3] != 4 {
		t.Errorf("unexpected map: %v", m)
	}
}
