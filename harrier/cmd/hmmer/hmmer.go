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

// Package hmmer reads HMMER3 ASCII profile files. Only the fields this
// pipeline needs are recovered: name, accession, model length, and the
// per-column consensus residue from the match-line annotation.
package hmmer

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// ErrNotHMMFormat means the file does not start with a HMMER3 save header.
var ErrNotHMMFormat = errors.New("hmmer: not a HMMER3 profile file")

// Model is one profile read from a HMMER3 file.
type Model struct {
	Name      string
	Accession string
	Length    int // number of model columns

	// Consensus residue per column, Consensus[j-1] for column j,
	// uppercased.
	Consensus []byte
}

// match-line annotation field order: node, 20 emissions, MAP, CONS, RF, MM, CS
const consField = 22

// ReadModels reads all profiles from a HMMER3 ASCII file. The file may be
// gzip compressed.
func ReadModels(file string) ([]*Model, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)

	var models []*Model
	var m *Model
	inModel := false // past the HMM line of the current profile
	lineNo := 0
	skip := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if skip > 0 {
			skip--
			continue
		}

		if m == nil {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !strings.HasPrefix(line, "HMMER3") {
				return nil, errors.Wrapf(ErrNotHMMFormat, "%s: line %d", file, lineNo)
			}
			m = &Model{}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		if !inModel {
			switch fields[0] {
			case "NAME":
				if len(fields) > 1 {
					m.Name = fields[1]
				}
			case "ACC":
				if len(fields) > 1 {
					m.Accession = fields[1]
				}
			case "LENG":
				if len(fields) > 1 {
					m.Length, err = strconv.Atoi(fields[1])
					if err != nil {
						return nil, errors.Wrapf(err, "%s: line %d: LENG", file, lineNo)
					}
				}
			case "HMM":
				inModel = true
				skip = 1 // transition order line
			}
			continue
		}

		if fields[0] == "//" {
			if m.Length != len(m.Consensus) {
				return nil, errors.Errorf(
					"hmmer: %s: profile %s: %d consensus columns, LENG says %d",
					file, m.Name, len(m.Consensus), m.Length)
			}
			models = append(models, m)
			m = nil
			inModel = false
			continue
		}

		// a match line starts with its node number; the COMPO line and
		// the begin node's insert and transition lines do not
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		if len(fields) <= consField {
			return nil, errors.Errorf(
				"hmmer: %s: line %d: truncated match line", file, lineNo)
		}
		res := strings.ToUpper(fields[consField])[0]
		m.Consensus = append(m.Consensus, res)
		skip = 2 // insert emission and transition lines
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}
	if m != nil {
		return nil, errors.Errorf("hmmer: %s: unterminated profile %s", file, m.Name)
	}
	return models, nil
}
