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
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
)

func mustProfile(t *testing.T, name, consensus string) *dp.Profile {
	t.Helper()
	p, err := dp.NewProfile(name, "", []byte(consensus))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func schedulerFixtures(t *testing.T) (map[string]*dp.Profile, map[string]*dp.Sequence, SeedMap) {
	t.Helper()

	profiles := map[string]*dp.Profile{
		"fam1": mustProfile(t, "fam1", "ACDEFGHIKL"),
		"fam2": mustProfile(t, "fam2", "MNPQRSTVWY"),
	}
	targets := map[string]*dp.Sequence{
		"t1": mustSeq(t, "t1", "GGACDEFGHIKLGG"),
		"t2": mustSeq(t, "t2", "MNPQRSTVWYAAAA"),
		"t3": mustSeq(t, "t3", "AAMNPQRSTVWYACDEFGHIKL"),
	}
	seedMap := SeedMap{
		"fam1": {
			{TargetName: "t1", TargetStart: 3, TargetEnd: 12, ProfileStart: 1, ProfileEnd: 10},
			{TargetName: "t3", TargetStart: 13, TargetEnd: 22, ProfileStart: 1, ProfileEnd: 10},
		},
		"fam2": {
			{TargetName: "t2", TargetStart: 1, TargetEnd: 10, ProfileStart: 1, ProfileEnd: 10},
			{TargetName: "t3", TargetStart: 3, TargetEnd: 12, ProfileStart: 1, ProfileEnd: 10},
		},
	}
	return profiles, targets, seedMap
}

func runScheduler(t *testing.T, opt *AlignOptions) ([]string, *alignStats) {
	t.Helper()

	profiles, targets, seedMap := schedulerFixtures(t)
	outFile := filepath.Join(t.TempDir(), "out.tsv")

	stats, err := alignSeeds(opt, dp.DefaultEngine{}, profiles, targets, seedMap, outFile)
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	sort.Strings(lines)
	return lines, stats
}

func TestSchedulerWorkerCountEquivalence(t *testing.T) {
	configs := []*AlignOptions{
		{Threads: 1, Partition: PartitionByProfile, Output: OutputShared, MaxEvalue: 1e300},
		{Threads: 4, Partition: PartitionByProfile, Output: OutputShared, MaxEvalue: 1e300},
		{Threads: 4, Partition: PartitionFlat, Output: OutputShared, MaxEvalue: 1e300},
		{Threads: 4, Partition: PartitionByProfile, Output: OutputPerWorker, MaxEvalue: 1e300},
		{Threads: 4, Partition: PartitionFlat, Output: OutputPerWorker, MaxEvalue: 1e300},
		{Threads: 4, Partition: PartitionFlat, Output: OutputShared, MaxEvalue: 1e300, SortOutput: true},
	}

	reference, refStats := runScheduler(t, configs[0])
	if refStats.Jobs != 4 {
		t.Fatalf("expected 4 jobs, got %d", refStats.Jobs)
	}
	if len(reference) == 0 {
		t.Fatalf("reference run wrote nothing")
	}

	for _, opt := range configs[1:] {
		lines, stats := runScheduler(t, opt)
		if !reflect.DeepEqual(lines, reference) {
			t.Errorf("%s/%s with %d workers differs from the single-worker run:\n%v\nvs\n%v",
				opt.Partition, opt.Output, opt.Threads, lines, reference)
		}
		if stats.Jobs != refStats.Jobs || stats.Written != refStats.Written {
			t.Errorf("%s/%s with %d workers: %d jobs / %d written, expected %d / %d",
				opt.Partition, opt.Output, opt.Threads,
				stats.Jobs, stats.Written, refStats.Jobs, refStats.Written)
		}
	}
}

func TestSchedulerEvalueFilter(t *testing.T) {
	lines, stats := runScheduler(t, &AlignOptions{
		Threads:   2,
		Partition: PartitionByProfile,
		Output:    OutputShared,
		MaxEvalue: 1e-300,
	})
	if len(lines) != 0 {
		t.Errorf("expected all alignments filtered, got %d records", len(lines))
	}
	if stats.Written != 0 || stats.Filtered == 0 {
		t.Errorf("filter counters wrong: %+v", stats)
	}
}

func TestSchedulerMissingTarget(t *testing.T) {
	profiles, targets, seedMap := schedulerFixtures(t)
	seedMap["fam1"] = append(seedMap["fam1"],
		&dp.Seed{TargetName: "ghost", TargetStart: 1, TargetEnd: 5, ProfileStart: 1, ProfileEnd: 5})

	opt := &AlignOptions{Threads: 2, Partition: PartitionByProfile, Output: OutputShared, MaxEvalue: 10}
	_, err := alignSeeds(opt, dp.DefaultEngine{}, profiles, targets, seedMap,
		filepath.Join(t.TempDir(), "out.tsv"))
	if err == nil {
		t.Errorf("expected an error for a seed naming an unknown target")
	}
}

func TestSchedulerMissingProfile(t *testing.T) {
	profiles, targets, seedMap := schedulerFixtures(t)
	seedMap["ghost"] = seedMap["fam1"]

	opt := &AlignOptions{Threads: 2, Partition: PartitionByProfile, Output: OutputShared, MaxEvalue: 10}
	_, err := alignSeeds(opt, dp.DefaultEngine{}, profiles, targets, seedMap,
		filepath.Join(t.TempDir(), "out.tsv"))
	if err == nil {
		t.Errorf("expected an error for seeds naming an unknown profile")
	}
}
