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
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// prepDir is the working directory of one pipeline run, holding all the
// intermediate databases between the stages.
type prepDir string

func (p prepDir) QueryMSADB() string         { return filepath.Join(string(p), "msaDB") }
func (p prepDir) QueryDB() string            { return filepath.Join(string(p), "queryDB") }
func (p prepDir) QueryDBIndex() string       { return filepath.Join(string(p), "queryDB.index") }
func (p prepDir) QueryDBHeader() string      { return filepath.Join(string(p), "queryDB_h") }
func (p prepDir) QueryDBHeaderIndex() string { return filepath.Join(string(p), "queryDB_h.index") }
func (p prepDir) QueryDBType() string        { return filepath.Join(string(p), "queryDB.dbtype") }
func (p prepDir) TargetDB() string           { return filepath.Join(string(p), "targetDB") }
func (p prepDir) PrefilterDB() string        { return filepath.Join(string(p), "prefilterDB") }
func (p prepDir) AlignDB() string            { return filepath.Join(string(p), "alignDB") }
func (p prepDir) AlignTSV() string           { return filepath.Join(string(p), "align.tsv") }
func (p prepDir) QueryHMM() string           { return filepath.Join(string(p), "query.hmm") }
func (p prepDir) SeedsJSON() string          { return filepath.Join(string(p), "seeds.json") }

// runCommand runs an external program, capturing stderr for the error
// message.
func runCommand(verbose bool, name string, args ...string) error {
	if verbose {
		log.Infof("running: %s %s", name, strings.Join(args, " "))
	}
	command := exec.Command(name, args...)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	if err := command.Run(); err != nil {
		return errors.Wrapf(err, "%s %s: %s",
			name, strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return nil
}

// The coarse-filter parameters below are pinned: they define which seed
// candidates the aligner sees, so changing them changes results.

func mmseqsConvertMSA(verbose bool, msaFile, msaDB string) error {
	return runCommand(verbose, "mmseqs", "convertmsa", msaFile, msaDB)
}

func mmseqsMSA2Profile(verbose bool, msaDB, queryDB string) error {
	return runCommand(verbose, "mmseqs", "msa2profile", msaDB, queryDB,
		"--match-mode", "1")
}

func mmseqsCreateDB(verbose bool, seqFile, db string) error {
	return runCommand(verbose, "mmseqs", "createdb", seqFile, db)
}

func mmseqsPrefilter(verbose bool, queryDB, targetDB, prefilterDB string) error {
	return runCommand(verbose, "mmseqs", "prefilter", queryDB, targetDB, prefilterDB,
		"--k-score", "80",
		"--min-ungapped-score", "15",
		"--max-seqs", "1000")
}

func mmseqsAlign(verbose bool, queryDB, targetDB, prefilterDB, alignDB string, maxEvalue float64) error {
	return runCommand(verbose, "mmseqs", "align", queryDB, targetDB, prefilterDB, alignDB,
		"-e", fmt.Sprintf("%g", maxEvalue),
		"--alt-ali", "0",
		"-a", "1")
}

func mmseqsConvertAlis(verbose bool, queryDB, targetDB, alignDB, tsvFile string) error {
	return runCommand(verbose, "mmseqs", "convertalis", queryDB, targetDB, alignDB, tsvFile,
		"--format-output", "query,target,qstart,qend,tstart,tend,evalue")
}

func hmmbuild(verbose bool, hmmFile, msaFile string) error {
	return runCommand(verbose, "hmmbuild", hmmFile, msaFile)
}

// Query file formats the prep stage accepts.
const (
	QueryFormatFasta     = "fasta"
	QueryFormatStockholm = "stockholm"
	QueryFormatHMM       = "hmm"
)

// sniffQueryFormat peeks at the first line of a query file: ">" means
// FASTA, "# STOCKHOLM" a Stockholm MSA, "HMMER" a HMMER3 profile file.
func sniffQueryFormat(file string) (string, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	buf := make([]byte, 16)
	n, err := fh.Read(buf)
	if n == 0 {
		return "", errors.Wrapf(err, "sniffing query format of %s", file)
	}
	head := buf[:n]

	switch {
	case head[0] == '>':
		return QueryFormatFasta, nil
	case bytes.HasPrefix(head, []byte("# STOCKHOLM")):
		return QueryFormatStockholm, nil
	case bytes.HasPrefix(head, []byte("HMMER")):
		return QueryFormatHMM, nil
	}
	return "", errors.Errorf("unrecognized query file format: %s", file)
}

// mmseqs .dbtype first byte
const (
	dbTypeAmino   = 0
	dbTypeProfile = 2
)

// readDBType returns the first byte of an mmseqs .dbtype file.
func readDBType(file string) (byte, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, errors.Errorf("empty dbtype file: %s", file)
	}
	return data[0], nil
}
