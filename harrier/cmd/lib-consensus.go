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

	"github.com/pkg/errors"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
	"github.com/harrier-bio/harrier/harrier/cmd/flatstore"
)

// Layout of a packed profile-column record in the primary store: one
// column per 23-byte stride, the consensus residue (digital) at byte 21.
const (
	profileColumnStride    = 23
	consensusResidueOffset = 21
)

// extractConsensusSequences reads every record pair of the header and
// primary stores and returns one consensus sequence per record id, named
// by the accession from the header record. Header record ids correlate
// positionally with primary record ids. A trailing partial stride of a
// primary record is discarded.
func extractConsensusSequences(header, primary *flatstore.Store) ([]*dp.Sequence, error) {
	if header.NumRecords() != primary.NumRecords() {
		return nil, errors.Errorf(
			"consensus: header store has %d records, primary store has %d",
			header.NumRecords(), primary.NumRecords())
	}

	seqs := make([]*dp.Sequence, 0, primary.NumRecords())
	var hbuf, pbuf, digital []byte
	for id := 0; id < header.NumRecords(); id++ {
		hrec, err := header.ReadRecord(id, &hbuf)
		if err != nil {
			return nil, err
		}
		w := bytes.IndexAny(hrec, " \t\r\n")
		if w <= 0 {
			return nil, errors.Errorf(
				"consensus: record %d: no accession prefix in header record", id)
		}
		acc := string(hrec[:w])

		prec, err := primary.ReadRecord(id, &pbuf)
		if err != nil {
			return nil, err
		}
		n := len(prec) / profileColumnStride
		digital = digital[:0]
		for k := 0; k < n; k++ {
			digital = append(digital, prec[k*profileColumnStride+consensusResidueOffset])
		}

		s, err := dp.NewSequenceFromDigital(acc, digital)
		if err != nil {
			return nil, errors.Wrapf(err, "consensus: record %d (%s)", id, acc)
		}
		seqs = append(seqs, s)
	}
	return seqs, nil
}
