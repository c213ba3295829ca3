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
	"os"
	"time"

	"github.com/shenwei356/bio/seq"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search query profiles against target sequences (prep + seed + align)",
	Long: `Search query profiles against target sequences (prep + seed + align)

Runs the whole pipeline in one go:

  1. prep   build the profile databases in the prep directory.
  2. seed   run the coarse filter, collect candidate alignment regions.
  3. align  compute precise alignments within those regions.

See the help of the individual commands for details. The prep directory
is kept, so later runs against other targets can reuse it with
"harrier seed" and "harrier align".

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

		queryFile := getFlagString(cmd, "query")
		targetFile := getFlagString(cmd, "target")
		dir := getFlagString(cmd, "prep-dir")
		if queryFile == "" || targetFile == "" || dir == "" {
			checkError(fmt.Errorf("flags -q/--query, -t/--target and -d/--prep-dir are all needed"))
		}
		outFile := getFlagString(cmd, "out-file")
		force := getFlagBool(cmd, "force")
		seedEvalue := getFlagPositiveFloat64(cmd, "seed-max-evalue")

		aopt, err := getAlignOptions(cmd, opt, prepDir(dir))
		checkError(err)

		makeOutDir(dir, force, "prep directory", opt.Verbose)

		checkError(runPrepStage(opt, prepDir(dir), queryFile, targetFile))

		_, err = runSeedStage(opt, prepDir(dir), seedEvalue)
		checkError(err)

		stats, err := runAlignStage(opt, prepDir(dir), targetFile, aopt, outFile)
		checkError(err)

		if outputLog {
			logAlignStats(stats)
		}
	},
}

func init() {
	RootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("query", "q", "",
		formatFlagUsage("Query file: FASTA, Stockholm MSA, or HMMER3 profiles."))

	searchCmd.Flags().StringP("target", "t", "",
		formatFlagUsage("Target sequence file (FASTA)."))

	searchCmd.Flags().StringP("prep-dir", "d", "",
		formatFlagUsage("Directory for the profile databases and all intermediate files."))

	searchCmd.Flags().BoolP("force", "", false,
		formatFlagUsage("Overwrite an existing, non-empty prep directory."))

	searchCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))

	searchCmd.Flags().Float64P("seed-max-evalue", "", 1e-2,
		formatFlagUsage("E-value cutoff of the coarse filter."))

	searchCmd.Flags().Float64P("max-evalue", "e", 10,
		formatFlagUsage("Only output alignments with an e-value below this."))

	searchCmd.Flags().StringP("partition", "", PartitionByProfile,
		formatFlagUsage(`How seeds are split over workers: "by-profile" or "flat".`))

	searchCmd.Flags().StringP("output-mode", "", OutputShared,
		formatFlagUsage(`How workers write: "shared" or "per-worker".`))

	searchCmd.Flags().BoolP("sort", "", false,
		formatFlagUsage("Collect all records and sort them before writing, for deterministic output."))

	searchCmd.SetUsageTemplate(usageTemplate(""))
}
