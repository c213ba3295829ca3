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
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
	"github.com/twotwotwo/sorts"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
)

// Partitioning policies of the alignment scheduler.
const (
	// PartitionByProfile hands whole profiles to workers from a shared
	// channel. A profile is owned by exactly one worker, so it is never
	// cloned.
	PartitionByProfile = "by-profile"

	// PartitionFlat flattens all (profile, seed) pairs into one list and
	// splits it round-robin into one bucket per worker. Seeds of one
	// profile may land in several buckets, so workers align against their
	// own profile clones.
	PartitionFlat = "flat"
)

// Output modes of the alignment scheduler.
const (
	// OutputShared writes all records to one sink, one mutex acquisition
	// per formatted record.
	OutputShared = "shared"

	// OutputPerWorker gives each worker its own part file; the parts are
	// concatenated into the final output and removed after the run.
	OutputPerWorker = "per-worker"
)

// AlignOptions control the alignment scheduler.
type AlignOptions struct {
	Threads   int
	Partition string
	Output    string

	MaxEvalue  float64
	SortOutput bool

	Verbose bool
}

// alignStats count what the scheduler did.
type alignStats struct {
	Jobs           int64
	Written        int64
	Filtered       int64
	CloudBoundFail int64
	RowBoundFail   int64
}

// scratchState is the reusable per-worker working memory of the bounded
// aligner. It grows to fit the largest job its worker has seen and is
// never shared between workers.
type scratchState struct {
	cloudMatrix dp.CloudMatrixLinear

	fwdBounds dp.CloudBoundGroup
	bwdBounds dp.CloudBoundGroup
	rowBounds dp.RowBounds

	fwd  dp.DpMatrixSparse
	bwd  dp.DpMatrixSparse
	post dp.DpMatrixSparse
	opt  dp.DpMatrixSparse

	trace dp.Trace
}

// alignJob runs the full bounded-alignment pass for one (profile, seed)
// pair. A nil alignment with a nil error means the job was skipped for
// unusable bounds; the counters record which kind.
func alignJob(engine dp.Engine, params *dp.CloudSearchParams, scratch *scratchState,
	profile *dp.Profile, target *dp.Sequence, seed *dp.Seed,
	targetCount int, stats *alignStats) *dp.Alignment {

	profile.ConfigureForTargetLength(target.Length)

	scratch.cloudMatrix.Reuse(profile.Length)
	scratch.fwdBounds.Reuse(target.Length, profile.Length)
	scratch.bwdBounds.Reuse(target.Length, profile.Length)

	engine.CloudSearchForward(profile, target, seed, &scratch.cloudMatrix, params, &scratch.fwdBounds)
	engine.CloudSearchBackward(profile, target, seed, &scratch.cloudMatrix, params, &scratch.bwdBounds)

	dp.JoinBounds(&scratch.fwdBounds, &scratch.bwdBounds)
	if !scratch.fwdBounds.Valid() {
		atomic.AddInt64(&stats.CloudBoundFail, 1)
		log.Warningf("skipping %s vs %s: unusable cloud bounds", profile.Name, seed)
		return nil
	}
	scratch.fwdBounds.TrimWings()

	scratch.rowBounds.SetFromCloud(&scratch.fwdBounds)
	if !scratch.rowBounds.Valid() {
		atomic.AddInt64(&stats.RowBoundFail, 1)
		log.Warningf("skipping %s vs %s: unusable row bounds", profile.Name, seed)
		return nil
	}

	rb := &scratch.rowBounds
	scratch.fwd.Reuse(target.Length, profile.Length, rb)
	scratch.bwd.Reuse(target.Length, profile.Length, rb)
	scratch.post.Reuse(target.Length, profile.Length, rb)
	scratch.opt.Reuse(target.Length, profile.Length, rb)

	scoreParams := dp.NewScoreParams(targetCount)
	scoreParams.ForwardScoreNats = engine.ForwardBounded(profile, target, &scratch.fwd, rb)
	engine.BackwardBounded(profile, target, &scratch.bwd, rb)
	engine.PosteriorBounded(profile, &scratch.fwd, &scratch.bwd, &scratch.post, rb)
	scoreParams.NullScoreNats = engine.NullScore(target.Length)
	scoreParams.BiasCorrectionScoreNats = engine.BiasCorrectionScore(&scratch.post, profile, target, rb)
	engine.OptimalAccuracyBounded(profile, &scratch.post, &scratch.opt, rb)

	scratch.trace.Reuse(target.Length, profile.Length)
	engine.TracebackBounded(profile, &scratch.post, &scratch.opt, &scratch.trace, rb.TargetEnd)

	return dp.AlignmentFromTrace(&scratch.trace, profile, target, scoreParams)
}

// alignSink receives formatted alignment records from workers.
type alignSink interface {
	// WriteRecord appends one record. worker identifies the calling
	// worker for per-worker sinks.
	WriteRecord(worker int, line string) error

	// Finish flushes everything into the final output file.
	Finish() error
}

// outWriter is the final output file, gzip compressed for a ".gz" name,
// stdout for "-".
type outWriter struct {
	fh *os.File
	bw *bufio.Writer
	gw *pgzip.Writer
	w  io.Writer
}

func newOutWriter(file string) (*outWriter, error) {
	o := &outWriter{}
	if isStdin(file) {
		o.fh = os.Stdout
	} else {
		var err error
		o.fh, err = os.Create(file)
		if err != nil {
			return nil, err
		}
	}
	o.bw = bufio.NewWriter(o.fh)
	o.w = o.bw
	if strings.HasSuffix(strings.ToLower(file), ".gz") {
		o.gw = pgzip.NewWriter(o.bw)
		o.w = o.gw
	}
	return o, nil
}

func (o *outWriter) Close() error {
	if o.gw != nil {
		if err := o.gw.Close(); err != nil {
			return err
		}
	}
	if err := o.bw.Flush(); err != nil {
		return err
	}
	if o.fh == os.Stdout {
		return nil
	}
	return o.fh.Close()
}

// sharedSink serializes all workers into one output writer. With sorting
// enabled it collects records in memory and writes them once at the end.
type sharedSink struct {
	mu    sync.Mutex
	out   *outWriter
	sort  bool
	lines []string
}

func newSharedSink(file string, sortOutput bool) (*sharedSink, error) {
	out, err := newOutWriter(file)
	if err != nil {
		return nil, err
	}
	return &sharedSink{out: out, sort: sortOutput}, nil
}

func (s *sharedSink) WriteRecord(worker int, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sort {
		s.lines = append(s.lines, line)
		return nil
	}
	_, err := fmt.Fprintln(s.out.w, line)
	return err
}

func (s *sharedSink) Finish() error {
	if s.sort {
		sorts.Quicksort(sort.StringSlice(s.lines))
		for _, line := range s.lines {
			if _, err := fmt.Fprintln(s.out.w, line); err != nil {
				return err
			}
		}
	}
	return s.out.Close()
}

// perWorkerSink gives each worker its own plain part file and
// concatenates them into the final output when the run is over.
type perWorkerSink struct {
	file  string
	parts []string
	fhs   []*os.File
	bws   []*bufio.Writer
}

func newPerWorkerSink(file string, workers int) (*perWorkerSink, error) {
	s := &perWorkerSink{
		file:  file,
		parts: make([]string, workers),
		fhs:   make([]*os.File, workers),
		bws:   make([]*bufio.Writer, workers),
	}
	for w := 0; w < workers; w++ {
		s.parts[w] = fmt.Sprintf("%s.part%d", file, w)
		fh, err := os.Create(s.parts[w])
		if err != nil {
			return nil, err
		}
		s.fhs[w] = fh
		s.bws[w] = bufio.NewWriter(fh)
	}
	return s, nil
}

func (s *perWorkerSink) WriteRecord(worker int, line string) error {
	_, err := fmt.Fprintln(s.bws[worker], line)
	return err
}

func (s *perWorkerSink) Finish() error {
	out, err := newOutWriter(s.file)
	if err != nil {
		return err
	}
	for w := range s.parts {
		if err = s.bws[w].Flush(); err != nil {
			return err
		}
		if err = s.fhs[w].Close(); err != nil {
			return err
		}

		fh, err := os.Open(s.parts[w])
		if err != nil {
			return err
		}
		if _, err = io.Copy(out.w, fh); err != nil {
			fh.Close()
			return err
		}
		fh.Close()
		if err = os.Remove(s.parts[w]); err != nil {
			return err
		}
	}
	return out.Close()
}

// alignSeeds schedules one bounded-alignment job per (profile, seed) pair
// of the seed map across a fixed-size worker pool and writes the passing
// alignments to outFile.
func alignSeeds(opt *AlignOptions, engine dp.Engine,
	profiles map[string]*dp.Profile, targets map[string]*dp.Sequence,
	seedMap SeedMap, outFile string) (*alignStats, error) {

	// every referenced profile and target must exist before any work starts
	total := 0
	for name, seeds := range seedMap {
		if _, ok := profiles[name]; !ok {
			return nil, errors.Errorf("align: no profile named %s", name)
		}
		for _, seed := range seeds {
			if _, ok := targets[seed.TargetName]; !ok {
				return nil, errors.Errorf("align: no target sequence named %s", seed.TargetName)
			}
		}
		total += len(seeds)
	}

	workers := opt.Threads
	if workers < 1 {
		workers = 1
	}

	// per-worker sorting would interleave parts, collect-then-sort instead
	var sink alignSink
	var err error
	if opt.Output == OutputPerWorker && !opt.SortOutput {
		sink, err = newPerWorkerSink(outFile, workers)
	} else {
		sink, err = newSharedSink(outFile, opt.SortOutput)
	}
	if err != nil {
		return nil, err
	}

	var pbs *mpb.Progress
	var bar *mpb.Bar
	if opt.Verbose {
		pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
		bar = pbs.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name("aligned seeds: ", decor.WC{W: len("aligned seeds: "), C: decor.DindentRight}),
				decor.Name("", decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.Name(""), ". done"),
			),
		)
	}

	stats := &alignStats{}
	params := dp.DefaultCloudSearchParams
	targetCount := len(targets)

	var errMu sync.Mutex
	var firstErr error
	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		errMu.Unlock()
	}
	failed := func() bool {
		errMu.Lock()
		defer errMu.Unlock()
		return firstErr != nil
	}

	runOne := func(worker int, scratch *scratchState, profile *dp.Profile, seed *dp.Seed) {
		atomic.AddInt64(&stats.Jobs, 1)
		defer func() {
			if bar != nil {
				bar.Increment()
			}
		}()

		target := targets[seed.TargetName]
		a := alignJob(engine, &params, scratch, profile, target, seed, targetCount, stats)
		if a == nil {
			return
		}
		if a.Evalue > opt.MaxEvalue {
			atomic.AddInt64(&stats.Filtered, 1)
			return
		}
		if err := sink.WriteRecord(worker, a.TabString()); err != nil {
			fail(err)
			return
		}
		atomic.AddInt64(&stats.Written, 1)
	}

	var wg sync.WaitGroup
	switch opt.Partition {
	case PartitionFlat:
		type flatJob struct {
			profile *dp.Profile
			seed    *dp.Seed
		}
		buckets := make([][]flatJob, workers)
		i := 0
		for name, seeds := range seedMap {
			profile := profiles[name]
			for _, seed := range seeds {
				w := i % workers
				buckets[w] = append(buckets[w], flatJob{profile: profile, seed: seed})
				i++
			}
		}

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				var scratch scratchState
				clones := make(map[string]*dp.Profile, 8)
				for _, job := range buckets[w] {
					if failed() {
						return
					}
					clone, ok := clones[job.profile.Name]
					if !ok {
						clone = job.profile.Clone()
						clones[job.profile.Name] = clone
					}
					runOne(w, &scratch, clone, job.seed)
				}
			}(w)
		}

	case PartitionByProfile:
		ch := make(chan string, workers)
		go func() {
			for name := range seedMap {
				ch <- name
			}
			close(ch)
		}()

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				var scratch *scratchState // allocated on the first job
				for name := range ch {
					if failed() {
						return
					}
					if scratch == nil {
						scratch = &scratchState{}
					}
					profile := profiles[name]
					for _, seed := range seedMap[name] {
						runOne(w, scratch, profile, seed)
					}
				}
			}(w)
		}

	default:
		return nil, errors.Errorf("align: unknown partition policy: %s", opt.Partition)
	}
	wg.Wait()

	if pbs != nil {
		bar.SetCurrent(int64(total))
		pbs.Wait()
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err = sink.Finish(); err != nil {
		return nil, err
	}
	return stats, nil
}
