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
	"os"
	"path/filepath"
	"testing"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
)

func writeSeedTable(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "align.tsv")
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestParseSeedTable(t *testing.T) {
	file := writeSeedTable(t,
		"acc1\tt1\t2\t5\t10\t20\t1e-5\n"+
			"acc1\tt2\t1\t4\t3\t9\t1e-4\n"+
			"acc2\tt1\t1\t3\t1\t8\t1e-3\n")

	accToName := map[string]string{"acc1": "fam1", "acc2": "fam2"}
	// fam1's column 1 was dropped by the aligner's consensus derivation
	coordMaps := map[string]coordMap{
		"acc1": {0, 0, 1, 2, 3, 4},
	}

	seedMap, err := parseSeedTable(file, accToName, coordMaps)
	if err != nil {
		t.Fatal(err)
	}
	if len(seedMap["fam1"]) != 2 || len(seedMap["fam2"]) != 1 {
		t.Fatalf("unexpected grouping: %v", seedMap)
	}

	s := seedMap["fam1"][0]
	if s.TargetName != "t1" || s.TargetStart != 10 || s.TargetEnd != 20 {
		t.Errorf("target coordinates wrong: %s", s)
	}
	if s.ProfileStart != 1 || s.ProfileEnd != 4 {
		t.Errorf("profile coordinates not translated: %s", s)
	}

	// column 1 maps to 0 and must be clamped to 1
	s = seedMap["fam1"][1]
	if s.ProfileStart != 1 || s.ProfileEnd != 3 {
		t.Errorf("start clamp broken: %s", s)
	}

	// no coordinate map: coordinates pass through
	s = seedMap["fam2"][0]
	if s.ProfileStart != 1 || s.ProfileEnd != 3 || s.TargetStart != 1 || s.TargetEnd != 8 {
		t.Errorf("untranslated seed wrong: %s", s)
	}
}

func TestParseSeedTableUnknownKey(t *testing.T) {
	file := writeSeedTable(t, "ghost\tt1\t1\t2\t3\t4\t1e-5\n")

	_, err := parseSeedTable(file, map[string]string{"acc1": "fam1"}, nil)
	if err == nil {
		t.Errorf("expected an error for an unknown profile key")
	}
}

func TestParseSeedTableBadNumber(t *testing.T) {
	file := writeSeedTable(t, "acc1\tt1\t1\toops\t3\t4\t1e-5\n")

	_, err := parseSeedTable(file, map[string]string{"acc1": "fam1"}, nil)
	if err == nil {
		t.Errorf("expected an error for an unparsable coordinate")
	}
}

func TestNormalizeSeed(t *testing.T) {
	s := &dp.Seed{TargetName: "t1", TargetStart: 9, TargetEnd: 3, ProfileStart: 5, ProfileEnd: 2}
	normalizeSeed(s)
	if s.TargetStart != 3 || s.TargetEnd != 9 || s.ProfileStart != 2 || s.ProfileEnd != 5 {
		t.Errorf("reversed intervals not normalized: %s", s)
	}

	s = &dp.Seed{TargetName: "t1", TargetStart: 0, TargetEnd: 2, ProfileStart: 0, ProfileEnd: 2}
	normalizeSeed(s)
	if s.TargetStart != 1 || s.ProfileStart != 1 {
		t.Errorf("starts not clamped to 1: %s", s)
	}
}

func TestSeedMapRoundTrip(t *testing.T) {
	file := filepath.Join(t.TempDir(), "seeds.json")
	in := SeedMap{
		"fam1": {
			{TargetName: "t1", TargetStart: 1, TargetEnd: 9, ProfileStart: 2, ProfileEnd: 8},
		},
	}
	if err := writeSeedMap(file, in); err != nil {
		t.Fatal(err)
	}
	out, err := readSeedMap(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(out["fam1"]) != 1 || *out["fam1"][0] != *in["fam1"][0] {
		t.Errorf("seed map changed across persistence: %v", out)
	}
}
