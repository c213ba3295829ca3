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

// Package flatstore provides random access to records of an indexed
// flat-file database, i.e., a binary data file paired with a text index
// file in which each line gives a record's id, byte offset and length.
// The format is the one produced by MMseqs2 createdb and friends.
package flatstore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/shenwei356/xopen"
)

// ErrMalformedIndex means a line of the index file does not consist of
// exactly three unsigned integers.
var ErrMalformedIndex = errors.New("flat store: malformed index line")

// ErrDiscontinuousIds means the record ids in the index file do not form
// the contiguous range 0..n-1.
var ErrDiscontinuousIds = errors.New("flat store: record ids not contiguous")

// ErrRecordOutOfRange means a record id is out of the range of the index.
var ErrRecordOutOfRange = errors.New("flat store: record id out of range")

// ErrShortRecord means fewer bytes than the indexed record length could
// be read from the data file.
var ErrShortRecord = errors.New("flat store: short record read")

// Entry is the location of one record in the data file.
type Entry struct {
	Offset uint64
	Length uint32
}

// Store is a random-access reader over a (data file, index file) pair.
// It performs no caching of record bytes; every ReadRecord call reads
// from the data file.
type Store struct {
	dataFile  string
	indexFile string

	fh      *os.File
	entries []Entry
	seen    []bool
}

// Open opens the data file and parses the whole index file.
// Entries are placed by the id carried on each index line, so index lines
// do not have to be sorted by id; the ids must however form the
// contiguous range 0..n-1.
func Open(dataFile string, indexFile string) (*Store, error) {
	s := &Store{
		dataFile:  dataFile,
		indexFile: indexFile,
		entries:   make([]Entry, 0, 1024),
		seen:      make([]bool, 0, 1024),
	}

	fh, err := xopen.Ropen(indexFile)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open index file: %s", indexFile)
	}

	scanner := bufio.NewScanner(fh)
	var line string
	var fields []string
	var id, offset, length uint64
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line = strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		fields = strings.Fields(line)
		if len(fields) != 3 {
			fh.Close()
			return nil, pkgerrors.Wrapf(ErrMalformedIndex, "%s: line %d: %s", indexFile, lineNum, line)
		}

		id, err = strconv.ParseUint(fields[0], 10, 64)
		if err == nil {
			offset, err = strconv.ParseUint(fields[1], 10, 64)
		}
		if err == nil {
			length, err = strconv.ParseUint(fields[2], 10, 32)
		}
		if err != nil {
			fh.Close()
			return nil, pkgerrors.Wrapf(ErrMalformedIndex, "%s: line %d: %s", indexFile, lineNum, line)
		}

		for uint64(len(s.entries)) <= id {
			s.entries = append(s.entries, Entry{})
			s.seen = append(s.seen, false)
		}
		s.entries[id] = Entry{Offset: offset, Length: uint32(length)}
		s.seen[id] = true
	}
	if err = scanner.Err(); err != nil {
		fh.Close()
		return nil, pkgerrors.Wrapf(err, "failed to read index file: %s", indexFile)
	}
	fh.Close()

	for id, ok := range s.seen {
		if !ok {
			return nil, pkgerrors.Wrapf(ErrDiscontinuousIds, "%s: missing record id %d", indexFile, id)
		}
	}

	s.fh, err = os.Open(dataFile)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open data file: %s", dataFile)
	}
	return s, nil
}

// NumRecords returns the number of records in the store.
func (s *Store) NumRecords() int {
	return len(s.entries)
}

// Entry returns the index entry of a record.
func (s *Store) Entry(id int) (Entry, error) {
	if id < 0 || id >= len(s.entries) {
		return Entry{}, pkgerrors.Wrapf(ErrRecordOutOfRange, "%s: record %d of %d", s.indexFile, id, len(s.entries))
	}
	return s.entries[id], nil
}

// ReadRecord reads the bytes of one record, exactly Entry(id).Length of
// them. The buffer is reused when it is big enough.
func (s *Store) ReadRecord(id int, buf *[]byte) ([]byte, error) {
	if id < 0 || id >= len(s.entries) {
		return nil, pkgerrors.Wrapf(ErrRecordOutOfRange, "%s: record %d of %d", s.indexFile, id, len(s.entries))
	}
	e := s.entries[id]

	var b []byte
	if buf == nil || cap(*buf) < int(e.Length) {
		b = make([]byte, e.Length)
		if buf != nil {
			*buf = b
		}
	} else {
		b = (*buf)[:e.Length]
	}

	n, err := s.fh.ReadAt(b, int64(e.Offset))
	if err != nil && err != io.EOF {
		return nil, pkgerrors.Wrapf(err, "%s: failed to read record %d", s.dataFile, id)
	}
	if n < int(e.Length) {
		return nil, pkgerrors.Wrapf(ErrShortRecord,
			"%s: record %d: read %d of %d bytes at offset %d", s.dataFile, id, n, e.Length, e.Offset)
	}
	return b, nil
}

// Close closes the underlying data file.
func (s *Store) Close() error {
	return s.fh.Close()
}

func (s *Store) String() string {
	return fmt.Sprintf("flat store: %s, %d records", s.dataFile, len(s.entries))
}
