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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var prepCmd = &cobra.Command{
	Use:   "prep",
	Short: "Build the profile databases for a search",
	Long: `Build the profile databases for a search

Two representations of the query profiles are built in the prep directory:
an MMseqs2 profile database (queryDB) for the coarse filter, and a HMMER3
profile file (query.hmm) for the aligner. The target sequences are indexed
into an MMseqs2 sequence database (targetDB).

The query file format is detected from its first bytes:
  >            FASTA sequences
  # STOCKHOLM  a Stockholm multiple sequence alignment
  HMMER        prebuilt HMMER3 profiles (queryDB must already exist,
               built from the same alignment)

External programs "mmseqs" and "hmmbuild" must be in $PATH.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

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
		force := getFlagBool(cmd, "force")
		if queryFile == "" || targetFile == "" || dir == "" {
			checkError(fmt.Errorf("flags -q/--query, -t/--target and -d/--prep-dir are all needed"))
		}

		makeOutDir(dir, force, "prep directory", opt.Verbose)

		checkError(runPrepStage(opt, prepDir(dir), queryFile, targetFile))

		if outputLog {
			log.Infof("profile databases saved to: %s", dir)
		}
	},
}

// runPrepStage builds queryDB, query.hmm and targetDB in the prep
// directory.
func runPrepStage(opt *Options, dir prepDir, queryFile, targetFile string) error {
	format, err := sniffQueryFormat(queryFile)
	if err != nil {
		return err
	}
	if opt.Verbose {
		log.Infof("query file format: %s", format)
	}

	switch format {
	case QueryFormatFasta:
		if err = mmseqsCreateDB(opt.Verbose, queryFile, dir.QueryDB()); err != nil {
			return err
		}
		if err = hmmbuild(opt.Verbose, dir.QueryHMM(), queryFile); err != nil {
			return err
		}
	case QueryFormatStockholm:
		if err = mmseqsConvertMSA(opt.Verbose, queryFile, dir.QueryMSADB()); err != nil {
			return err
		}
		if err = mmseqsMSA2Profile(opt.Verbose, dir.QueryMSADB(), dir.QueryDB()); err != nil {
			return err
		}
		if err = hmmbuild(opt.Verbose, dir.QueryHMM(), queryFile); err != nil {
			return err
		}
	case QueryFormatHMM:
		if err = copyFile(queryFile, dir.QueryHMM()); err != nil {
			return err
		}
		if _, err = os.Stat(dir.QueryDB()); err != nil {
			return errors.Errorf(
				"prep: a HMMER3 query needs an existing %s for the coarse filter, build it from the source alignment first",
				dir.QueryDB())
		}
	}

	return mmseqsCreateDB(opt.Verbose, targetFile, dir.TargetDB())
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func init() {
	RootCmd.AddCommand(prepCmd)

	prepCmd.Flags().StringP("query", "q", "",
		formatFlagUsage("Query file: FASTA, Stockholm MSA, or HMMER3 profiles."))

	prepCmd.Flags().StringP("target", "t", "",
		formatFlagUsage("Target sequence file (FASTA)."))

	prepCmd.Flags().StringP("prep-dir", "d", "",
		formatFlagUsage("Directory for the profile databases and all intermediate files."))

	prepCmd.Flags().BoolP("force", "", false,
		formatFlagUsage("Overwrite an existing, non-empty prep directory."))

	prepCmd.SetUsageTemplate(usageTemplate(""))
}
