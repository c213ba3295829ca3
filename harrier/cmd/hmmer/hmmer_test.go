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

package hmmer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const scores20 = "  1.0  1.0  1.0  1.0  1.0  1.0  1.0  1.0  1.0  1.0" +
	"  1.0  1.0  1.0  1.0  1.0  1.0  1.0  1.0  1.0  1.0"

func matchLine(node int, cons byte) string {
	return "  " + itoa(node) + scores20 + "  " + itoa(node) + " " + string(cons) + " - - -"
}

func itoa(i int) string {
	if i < 10 {
		return string('0' + byte(i))
	}
	return string('0'+byte(i/10)) + string('0'+byte(i%10))
}

func writeTestHMM(t *testing.T) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("HMMER3/f [3.3.2 | Nov 2020]\n")
	b.WriteString("NAME  fam1\n")
	b.WriteString("ACC   HF00001.1\n")
	b.WriteString("LENG  3\n")
	b.WriteString("ALPH  amino\n")
	b.WriteString("HMM          A        C        D\n")
	b.WriteString("            m->m     m->i     m->d     i->m     i->i     d->m     d->d\n")
	b.WriteString("  COMPO" + scores20 + "\n")
	b.WriteString(scores20 + "\n")
	b.WriteString("  0.01  0.01  0.01  0.01  0.01  0.00  *\n")
	for i, c := range []byte("acd") {
		b.WriteString(matchLine(i+1, c) + "\n")
		b.WriteString(scores20 + "\n")
		b.WriteString("  0.01  0.01  0.01  0.01  0.01  0.00  *\n")
	}
	b.WriteString("//\n")

	b.WriteString("HMMER3/f [3.3.2 | Nov 2020]\n")
	b.WriteString("NAME  fam2\n")
	b.WriteString("ACC   HF00002.1\n")
	b.WriteString("LENG  2\n")
	b.WriteString("HMM          A        C        D\n")
	b.WriteString("            m->m     m->i     m->d     i->m     i->i     d->m     d->d\n")
	for i, c := range []byte("WY") {
		b.WriteString(matchLine(i+1, c) + "\n")
		b.WriteString(scores20 + "\n")
		b.WriteString("  0.01  0.01  0.01  0.01  0.01  0.00  *\n")
	}
	b.WriteString("//\n")

	file := filepath.Join(t.TempDir(), "query.hmm")
	if err := os.WriteFile(file, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return file
}

func TestReadModels(t *testing.T) {
	file := writeTestHMM(t)

	models, err := ReadModels(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(models))
	}

	m := models[0]
	if m.Name != "fam1" || m.Accession != "HF00001.1" || m.Length != 3 {
		t.Errorf("header fields wrong: %+v", m)
	}
	// consensus is uppercased
	if string(m.Consensus) != "ACD" {
		t.Errorf("expected consensus ACD, got %s", m.Consensus)
	}

	m = models[1]
	if m.Name != "fam2" || m.Length != 2 || string(m.Consensus) != "WY" {
		t.Errorf("second profile wrong: %+v", m)
	}
}

func TestReadModelsNotHMM(t *testing.T) {
	file := filepath.Join(t.TempDir(), "query.fasta")
	if err := os.WriteFile(file, []byte(">seq1\nACDE\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadModels(file)
	if !errors.Is(err, ErrNotHMMFormat) {
		t.Errorf("expected ErrNotHMMFormat, got %v", err)
	}
}

func TestReadModelsLengthMismatch(t *testing.T) {
	text := "HMMER3/f [3.3.2 | Nov 2020]\n" +
		"NAME  bad\n" +
		"LENG  5\n" +
		"HMM          A        C        D\n" +
		"            m->m     m->i     m->d     i->m     i->i     d->m     d->d\n" +
		matchLine(1, 'A') + "\n" +
		scores20 + "\n" +
		"  0.01  0.01  0.01  0.01  0.01  0.00  *\n" +
		"//\n"
	file := filepath.Join(t.TempDir(), "bad.hmm")
	if err := os.WriteFile(file, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadModels(file); err == nil {
		t.Errorf("expected an error for LENG/consensus mismatch")
	}
}
