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
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Compute precise alignments within the seeded regions",
	Long: `Compute precise alignments within the seeded regions

For every seed collected by "harrier seed", a banded alignment restricted
to the seed's neighborhood is computed: cloud search narrows the region to
a band, then bounded forward/backward/posterior passes score it and an
optimal accuracy traceback recovers the alignment. Seeds whose band
collapses are skipped and counted.

Output is tab-delimited with 1-based positions:

    1. profile,  profile name.
    2. target,   target sequence ID.
    3. pstart,   start of alignment in profile columns.
    4. pend,     end of alignment in profile columns.
    5. tstart,   start of alignment in target sequence.
    6. tend,     end of alignment in target sequence.
    7. bits,     bit score.
    8. evalue,   expect value.

The order of output records depends on scheduling; use --sort for a
deterministic order.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		outputLog := opt.Verbose || opt.Log2File
		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		dir := getFlagString(cmd, "prep-dir")
		targetFile := getFlagString(cmd, "target")
		if dir == "" || targetFile == "" {
			checkError(fmt.Errorf("flags -d/--prep-dir and -t/--target are both needed"))
		}
		outFile := getFlagString(cmd, "out-file")

		aopt, err := getAlignOptions(cmd, opt, prepDir(dir))
		checkError(err)

		stats, err := runAlignStage(opt, prepDir(dir), targetFile, aopt, outFile)
		checkError(err)

		if outputLog {
			logAlignStats(stats)
		}
	},
}

// getAlignOptions merges the scheduler flags with the config file:
// a flag left at its default yields to the config.
func getAlignOptions(cmd *cobra.Command, opt *Options, dir prepDir) (*AlignOptions, error) {
	cfg, err := loadConfig(dir)
	if err != nil {
		return nil, err
	}

	aopt := &AlignOptions{
		Threads:    opt.NumCPUs,
		Partition:  cfg.Partition,
		Output:     cfg.Output,
		MaxEvalue:  cfg.MaxEvalue,
		SortOutput: cfg.SortOutput,
		Verbose:    opt.Verbose,
	}
	if cmd.Flags().Changed("max-evalue") {
		aopt.MaxEvalue = getFlagPositiveFloat64(cmd, "max-evalue")
	}
	if cmd.Flags().Changed("partition") {
		aopt.Partition = getFlagString(cmd, "partition")
	}
	if cmd.Flags().Changed("output-mode") {
		aopt.Output = getFlagString(cmd, "output-mode")
	}
	if cmd.Flags().Changed("sort") {
		aopt.SortOutput = getFlagBool(cmd, "sort")
	}

	if aopt.Partition != PartitionByProfile && aopt.Partition != PartitionFlat {
		return nil, fmt.Errorf("invalid partition policy: %s", aopt.Partition)
	}
	if aopt.Output != OutputShared && aopt.Output != OutputPerWorker {
		return nil, fmt.Errorf("invalid output mode: %s", aopt.Output)
	}
	return aopt, nil
}

// runAlignStage loads profiles, targets and seeds, and runs the
// scheduler.
func runAlignStage(opt *Options, dir prepDir, targetFile string,
	aopt *AlignOptions, outFile string) (*alignStats, error) {

	profiles, err := readQueryProfiles(dir.QueryHMM())
	if err != nil {
		return nil, err
	}
	targets, err := readTargetSequences(targetFile)
	if err != nil {
		return nil, err
	}
	seedMap, err := readSeedMap(dir.SeedsJSON())
	if err != nil {
		return nil, err
	}

	if opt.Verbose {
		log.Infof("%d profiles, %d target sequences, seeds for %d profiles",
			len(profiles), len(targets), len(seedMap))
	}

	return alignSeeds(aopt, dp.DefaultEngine{}, profiles, targets, seedMap, outFile)
}

// readTargetSequences loads a (gzipped) FASTA file, keyed by sequence ID.
func readTargetSequences(file string) (map[string]*dp.Sequence, error) {
	reader, err := fastx.NewReader(nil, file, "")
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	targets := make(map[string]*dp.Sequence, 1<<10)
	var record *fastx.Record
	for {
		record, err = reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		s, err := dp.NewSequence(string(record.ID), record.Seq.Seq)
		if err != nil {
			return nil, err
		}
		targets[s.Name] = s
	}
	return targets, nil
}

func logAlignStats(stats *alignStats) {
	log.Infof("%d alignments written from %d seeds", stats.Written, stats.Jobs)
	if stats.Filtered > 0 {
		log.Infof("%d alignments above the e-value cutoff", stats.Filtered)
	}
	if stats.CloudBoundFail > 0 || stats.RowBoundFail > 0 {
		log.Infof("skipped seeds: %d with unusable cloud bounds, %d with unusable row bounds",
			stats.CloudBoundFail, stats.RowBoundFail)
	}
}

func init() {
	RootCmd.AddCommand(alignCmd)

	alignCmd.Flags().StringP("prep-dir", "d", "",
		formatFlagUsage(`Prep directory holding query.hmm and seeds.json.`))

	alignCmd.Flags().StringP("target", "t", "",
		formatFlagUsage("Target sequence file (FASTA)."))

	alignCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	alignCmd.Flags().Float64P("max-evalue", "e", 10,
		formatFlagUsage("Only output alignments with an e-value below this."))

	alignCmd.Flags().StringP("partition", "", PartitionByProfile,
		formatFlagUsage(`How seeds are split over workers: "by-profile" (workers own whole profiles) or "flat" (all seeds split round-robin).`))

	alignCmd.Flags().StringP("output-mode", "", OutputShared,
		formatFlagUsage(`How workers write: "shared" (one locked sink) or "per-worker" (part files merged afterwards).`))

	alignCmd.Flags().BoolP("sort", "", false,
		formatFlagUsage("Collect all records and sort them before writing, for deterministic output."))

	alignCmd.SetUsageTemplate(usageTemplate(""))
}
