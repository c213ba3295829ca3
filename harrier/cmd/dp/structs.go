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

// Package dp holds the data model of the bounded alignment stage: profiles,
// sequences, seeds, the reusable scratch matrices, and the compute engine
// that fills them. Scratch structures grow to fit the largest job seen so
// far and are never shrunk, so a long stream of jobs amortizes allocation.
package dp

import (
	"errors"
	"fmt"
	"math"
)

// AminoAlphabet maps a digital residue (an index byte in a packed profile
// record) back to its one-letter code. Index 20 is the unknown residue.
var AminoAlphabet = []byte("ACDEFGHIKLMNPQRSTVWYX")

// ErrEmptySequence means a sequence with no residues was given.
var ErrEmptySequence = errors.New("dp: empty sequence")

// Sequence is an immutable named residue sequence.
// Residue positions are 1-based in all coordinates of this package.
type Sequence struct {
	Name     string
	Residues []byte
	Length   int
}

// NewSequence creates a Sequence from one-letter residue codes.
func NewSequence(name string, residues []byte) (*Sequence, error) {
	if len(residues) == 0 {
		return nil, ErrEmptySequence
	}
	r := make([]byte, len(residues))
	copy(r, residues)
	return &Sequence{Name: name, Residues: r, Length: len(r)}, nil
}

// NewSequenceFromDigital creates a Sequence from digital residues, i.e.,
// alphabet indices. Out-of-range indices decode as the unknown residue.
func NewSequenceFromDigital(name string, digital []byte) (*Sequence, error) {
	if len(digital) == 0 {
		return nil, ErrEmptySequence
	}
	r := make([]byte, len(digital))
	for i, d := range digital {
		if int(d) < len(AminoAlphabet) {
			r[i] = AminoAlphabet[d]
		} else {
			r[i] = 'X'
		}
	}
	return &Sequence{Name: name, Residues: r, Length: len(r)}, nil
}

// Residue returns the residue at a 1-based position.
func (s *Sequence) Residue(i int) byte {
	return s.Residues[i-1]
}

func (s *Sequence) String() string {
	return fmt.Sprintf("%s, %d residues", s.Name, s.Length)
}

// Profile is a positional model of a sequence family with one consensus
// residue per model column. The identifier pair (Accession, Name) is stable
// after construction; the target-length dependent transition scores are not,
// see ConfigureForTargetLength.
type Profile struct {
	Name      string
	Accession string
	Length    int // number of model columns

	// Consensus residue per column, Consensus[j-1] for column j.
	Consensus []byte

	// target-length dependent parameters, set per job
	TargetLength int
	LoopScore    float64
	MoveScore    float64
}

// NewProfile creates a profile from its identifiers and consensus residues.
// The model length equals the consensus length.
func NewProfile(name, accession string, consensus []byte) (*Profile, error) {
	if len(consensus) == 0 {
		return nil, fmt.Errorf("dp: profile %s: empty consensus", name)
	}
	c := make([]byte, len(consensus))
	copy(c, consensus)
	return &Profile{
		Name:      name,
		Accession: accession,
		Length:    len(c),
		Consensus: c,
	}, nil
}

// ConfigureForTargetLength sets the target-length dependent transition
// scores. It mutates the profile in place, so a profile being aligned must
// not be shared between concurrently running jobs.
func (p *Profile) ConfigureForTargetLength(length int) {
	p.TargetLength = length
	pMove := 2.0 / float64(length+2)
	p.MoveScore = math.Log(pMove)
	p.LoopScore = math.Log(1.0 - pMove)
}

// Clone returns a deep copy, for partitioning policies under which seeds of
// one profile may be processed by more than one worker.
func (p *Profile) Clone() *Profile {
	c := make([]byte, len(p.Consensus))
	copy(c, p.Consensus)
	clone := *p
	clone.Consensus = c
	return &clone
}

// ConsensusResidue returns the consensus residue of a 1-based model column.
func (p *Profile) ConsensusResidue(j int) byte {
	return p.Consensus[j-1]
}

// Seed is a coordinate hint indicating where a full alignment of a profile
// and a target likely lies. All coordinates are 1-based and inclusive;
// ProfileStart/ProfileEnd are in the profile's own column space.
type Seed struct {
	TargetName   string `json:"target_name"`
	TargetStart  int    `json:"target_start"`
	TargetEnd    int    `json:"target_end"`
	ProfileStart int    `json:"profile_start"`
	ProfileEnd   int    `json:"profile_end"`
}

func (s Seed) String() string {
	return fmt.Sprintf("%s:%d-%d/%d-%d",
		s.TargetName, s.TargetStart, s.TargetEnd, s.ProfileStart, s.ProfileEnd)
}
