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
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/xopen"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
)

// SeedMap groups the candidate alignment regions of one coarse-filter run
// by profile display name.
type SeedMap map[string][]*dp.Seed

// parseSeedTable reads the tabular output of the coarse filter: one row
// per candidate region, fields profile_key, target, qstart, qend, tstart,
// tend; extra fields are ignored. Profile keys are resolved to display
// names through accToName; an unresolvable key is an error. When a
// coordinate map exists for a profile, its profile-space coordinates are
// translated into the aligner's column space.
func parseSeedTable(file string, accToName map[string]string,
	coordMaps map[string]coordMap) (SeedMap, error) {

	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	seedMap := make(SeedMap, len(accToName))

	scanner := bufio.NewScanner(fh)
	lineNo := 0
	var nums [4]int
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 6 {
			return nil, errors.Errorf(
				"seeds: %s: line %d: %d fields, at least 6 needed", file, lineNo, len(fields))
		}
		for k := 0; k < 4; k++ {
			nums[k], err = strconv.Atoi(fields[k+2])
			if err != nil {
				return nil, errors.Wrapf(err, "seeds: %s: line %d: field %d", file, lineNo, k+3)
			}
		}

		key := fields[0]
		name, ok := accToName[key]
		if !ok {
			return nil, errors.Errorf(
				"seeds: %s: line %d: unknown profile key: %s", file, lineNo, key)
		}

		seed := &dp.Seed{
			TargetName:   fields[1],
			ProfileStart: nums[0],
			ProfileEnd:   nums[1],
			TargetStart:  nums[2],
			TargetEnd:    nums[3],
		}
		if m, ok := coordMaps[key]; ok {
			seed.ProfileStart = m.MapStart(seed.ProfileStart)
			seed.ProfileEnd = m.MapEnd(seed.ProfileEnd)
		}
		normalizeSeed(seed)

		seedMap[name] = append(seedMap[name], seed)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}
	return seedMap, nil
}

// normalizeSeed restores the start <= end invariants, which coordinate
// translation can break when columns collapse.
func normalizeSeed(s *dp.Seed) {
	if s.TargetStart > s.TargetEnd {
		s.TargetStart, s.TargetEnd = s.TargetEnd, s.TargetStart
	}
	if s.ProfileStart > s.ProfileEnd {
		s.ProfileStart, s.ProfileEnd = s.ProfileEnd, s.ProfileStart
	}
	if s.TargetStart < 1 {
		s.TargetStart = 1
	}
	if s.ProfileStart < 1 {
		s.ProfileStart = 1
	}
}

// writeSeedMap persists a seed map as JSON, for handing seeds from the
// seed stage to the align stage.
func writeSeedMap(file string, seedMap SeedMap) error {
	fh, err := xopen.Wopen(file)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(fh)
	if err = enc.Encode(seedMap); err != nil {
		fh.Close()
		return errors.Wrapf(err, "writing %s", file)
	}
	return fh.Close()
}

// readSeedMap loads a seed map written by writeSeedMap.
func readSeedMap(file string) (SeedMap, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var seedMap SeedMap
	dec := json.NewDecoder(fh)
	if err = dec.Decode(&seedMap); err != nil {
		return nil, errors.Wrapf(err, "reading %s", file)
	}
	return seedMap, nil
}
