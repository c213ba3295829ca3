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
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// configFileName is looked up in the prep directory first, then as a
// dot file in the home directory.
const configFileName = "harrier.toml"

// Config holds pipeline defaults that would otherwise be repeated on the
// command line for every run.
type Config struct {
	MaxEvalue  float64 `toml:"max_evalue"`
	Partition  string  `toml:"partition"`
	Output     string  `toml:"output"`
	SortOutput bool    `toml:"sort_output"`
}

func defaultConfig() *Config {
	return &Config{
		MaxEvalue:  10,
		Partition:  PartitionByProfile,
		Output:     OutputShared,
		SortOutput: false,
	}
}

// loadConfig returns the defaults overlaid with the first config file
// found: <prepDir>/harrier.toml, then ~/.harrier.toml. No file at all is
// not an error.
func loadConfig(dir prepDir) (*Config, error) {
	cfg := defaultConfig()

	candidates := make([]string, 0, 2)
	if dir != "" {
		candidates = append(candidates, filepath.Join(string(dir), configFileName))
	}
	if home, err := homedir.Dir(); err == nil {
		candidates = append(candidates, filepath.Join(home, "."+configFileName))
	}

	for _, file := range candidates {
		data, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "reading config %s", file)
		}
		if err = toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config %s", file)
		}
		return cfg, nil
	}
	return cfg, nil
}
