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

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/harrier-bio/harrier/harrier/cmd/dp"
	"github.com/harrier-bio/harrier/harrier/cmd/flatstore"
	"github.com/harrier-bio/harrier/harrier/cmd/hmmer"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run the coarse filter and collect candidate alignment regions",
	Long: `Run the coarse filter and collect candidate alignment regions

The MMseqs2 coarse filter (prefilter + align + convertalis) is run over
the databases built by "harrier prep". Its hits become seeds: candidate
regions in which the aligner will look for a precise alignment.

MMseqs2 and HMMER derive the profile's consensus columns differently, so
seed coordinates in MMseqs2 column space are translated into HMMER column
space through an alignment of the two consensus sequences.

The seeds are saved as seeds.json in the prep directory, to be consumed
by "harrier align".

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

		dir := getFlagString(cmd, "prep-dir")
		if dir == "" {
			checkError(fmt.Errorf("flag -d/--prep-dir needed"))
		}
		maxEvalue := getFlagPositiveFloat64(cmd, "max-evalue")

		seedMap, err := runSeedStage(opt, prepDir(dir), maxEvalue)
		checkError(err)

		if outputLog {
			n := 0
			for _, seeds := range seedMap {
				n += len(seeds)
			}
			log.Infof("%d seeds for %d profiles saved to: %s",
				n, len(seedMap), prepDir(dir).SeedsJSON())
		}
	},
}

// runSeedStage runs the coarse filter, translates the hit coordinates,
// and persists the resulting seed map.
func runSeedStage(opt *Options, dir prepDir, maxEvalue float64) (SeedMap, error) {
	if dbtype, err := readDBType(dir.QueryDBType()); err == nil && opt.Verbose {
		switch dbtype {
		case dbTypeProfile:
			log.Infof("query database type: profile")
		case dbTypeAmino:
			log.Infof("query database type: amino acid")
		}
	}

	if err := mmseqsPrefilter(opt.Verbose, dir.QueryDB(), dir.TargetDB(), dir.PrefilterDB()); err != nil {
		return nil, err
	}
	if err := mmseqsAlign(opt.Verbose, dir.QueryDB(), dir.TargetDB(), dir.PrefilterDB(),
		dir.AlignDB(), maxEvalue); err != nil {
		return nil, err
	}
	if err := mmseqsConvertAlis(opt.Verbose, dir.QueryDB(), dir.TargetDB(), dir.AlignDB(),
		dir.AlignTSV()); err != nil {
		return nil, err
	}

	profiles, err := readQueryProfiles(dir.QueryHMM())
	if err != nil {
		return nil, err
	}

	accToName, coordMaps, err := buildCoordMaps(dir, profiles, opt.Verbose)
	if err != nil {
		return nil, err
	}

	seedMap, err := parseSeedTable(dir.AlignTSV(), accToName, coordMaps)
	if err != nil {
		return nil, err
	}
	if err = writeSeedMap(dir.SeedsJSON(), seedMap); err != nil {
		return nil, err
	}
	return seedMap, nil
}

// readQueryProfiles loads the HMMER3 profile file into aligner profiles,
// keyed by profile name.
func readQueryProfiles(file string) (map[string]*dp.Profile, error) {
	models, err := hmmer.ReadModels(file)
	if err != nil {
		return nil, err
	}
	profiles := make(map[string]*dp.Profile, len(models))
	for _, m := range models {
		p, err := dp.NewProfile(m.Name, m.Accession, m.Consensus)
		if err != nil {
			return nil, err
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// buildCoordMaps extracts the MMseqs2 consensus of every query profile
// from the flat store and aligns it against the HMMER consensus, yielding
// per-profile column translation tables. The returned accToName map
// resolves the coarse filter's profile keys (the accession prefix of the
// flat store header) to profile names.
func buildCoordMaps(dir prepDir, profiles map[string]*dp.Profile,
	verbose bool) (map[string]string, map[string]coordMap, error) {

	header, err := flatstore.Open(dir.QueryDBHeader(), dir.QueryDBHeaderIndex())
	if err != nil {
		return nil, nil, err
	}
	defer header.Close()

	primary, err := flatstore.Open(dir.QueryDB(), dir.QueryDBIndex())
	if err != nil {
		return nil, nil, err
	}
	defer primary.Close()

	consensuses, err := extractConsensusSequences(header, primary)
	if err != nil {
		return nil, nil, err
	}

	// accessions must resolve by profile name first, accession second
	byAcc := make(map[string]*dp.Profile, len(profiles))
	for _, p := range profiles {
		if p.Accession != "" {
			byAcc[p.Accession] = p
		}
	}

	accToName := make(map[string]string, len(consensuses))
	coordMaps := make(map[string]coordMap, len(consensuses))
	for _, c := range consensuses {
		p, ok := profiles[c.Name]
		if !ok {
			p, ok = byAcc[c.Name]
		}
		if !ok {
			return nil, nil, errors.Errorf(
				"seeds: no profile in %s matches store accession %s", dir.QueryHMM(), c.Name)
		}
		accToName[c.Name] = p.Name

		hmmConsensus, err := dp.NewSequence(p.Name, p.Consensus)
		if err != nil {
			return nil, nil, err
		}
		m, err := buildCoordMap(c, hmmConsensus)
		if err != nil {
			return nil, nil, err
		}
		coordMaps[c.Name] = m

		if verbose && c.Length != p.Length {
			log.Infof("profile %s: %d coarse-filter columns mapped onto %d model columns",
				p.Name, c.Length, p.Length)
		}
	}
	return accToName, coordMaps, nil
}

func init() {
	RootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringP("prep-dir", "d", "",
		formatFlagUsage(`Prep directory built by "harrier prep".`))

	seedCmd.Flags().Float64P("max-evalue", "e", 1e-2,
		formatFlagUsage("E-value cutoff of the coarse filter."))

	seedCmd.SetUsageTemplate(usageTemplate(""))
}
