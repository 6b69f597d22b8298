// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shenwei356/compomat/compomat/adjust"
	"github.com/shenwei356/compomat/compomat/align"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/shenwei356/compomat/compomat/rescore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, text string) string {
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(text), 0644))
	return file
}

func TestReadHitTables(t *testing.T) {
	file := writeFile(t, "hits.tsv", `query	subject	qstart	qend	sstart	send	score
q1	s1	1	32	5	36	150
q1	s2	3	10	3	10	20.5

q1	s1	6	11	10	15	30	extra
`)
	pairs, n, err := readHitTables(file)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, pairs, 2)

	assert.Equal(t, "s1", pairs[0].Subject)
	require.Len(t, pairs[0].Hits, 2)
	h := pairs[0].Hits[0]
	assert.Equal(t, [5]int{0, 31, 4, 35, 150}, [5]int{h.QBegin, h.QEnd, h.SBegin, h.SEnd, h.Score})
	assert.Equal(t, 30, pairs[0].Hits[1].Score)
	assert.Equal(t, 20, pairs[1].Hits[0].Score)

	_, _, err = readHitTables(writeFile(t, "bad.tsv", "header\nq1\ts1\t1\t2\n"))
	assert.Error(t, err)
	_, _, err = readHitTables(writeFile(t, "bad2.tsv", "header\nq1\ts1\t1\tx\t1\t2\t3\n"))
	assert.Error(t, err)
}

func TestReadProteins(t *testing.T) {
	file := writeFile(t, "seqs.fasta", ">p1 desc\nMKTAYIAKQR\nQISFVKSHFS\n>p2\nGGGG\n")
	proteins, err := readProteins(file)
	require.NoError(t, err)
	require.Len(t, proteins, 2)
	assert.Equal(t, "p1", proteins[0].ID)
	assert.Equal(t, "MKTAYIAKQRQISFVKSHFS", string(proteins[0].Seq))
	assert.Equal(t, 20, proteins[0].Comp.Length())
	assert.Equal(t, 4, proteins[1].Comp.Count('G'))

	m := proteinMap(append(proteins, &Protein{ID: "p1"}))
	assert.Len(t, m, 2)
	assert.Equal(t, 20, len(m["p1"].Seq))
}

func TestFormatAlignments(t *testing.T) {
	m, err := matrix.Base("BLOSUM62")
	require.NoError(t, err)

	q := &Protein{ID: "q", Seq: []byte("MKTAYIAKQRQISFVKSHFSRQLEERLGLIEV")}
	s := &Protein{ID: "s", Seq: []byte("GGGGMKTAYIAKQRQISFVKSHFSRQLEERLGLIEVGGGG")}
	r := &rescore.Result{
		Hits: []*rescore.Hit{
			{QBegin: 0, QEnd: 31, SBegin: 4, SEnd: 35, Score: 155},
			{QBegin: 0, QEnd: 40, SBegin: 4, SEnd: 35, Score: 1}, // skipped
		},
		Adjustment: &adjust.Adjustment{Mode: adjust.NoAdjustment{Reason: "short sequence"}},
	}

	var buf bytes.Buffer
	alg := align.NewAligner(&align.AlignOptions{GapOpen: 11, GapExtend: 1, SaveAlignments: true})
	formatAlignments(&buf, q, s, r, m, alg)

	text := buf.String()
	assert.Contains(t, text, "Matrix = BLOSUM62, mode = none, outcome = unadjusted")
	assert.Contains(t, text, " HSP #1\n")
	assert.NotContains(t, text, " HSP #2\n")
	assert.Contains(t, text, "Identities = 32/32 (100.0%), Gaps = 0/32")
	assert.Contains(t, text, "Query  1   MKTAYIAKQRQISFVKSHFSRQLEERLGLIEV  32\n")
	assert.Contains(t, text, "Sbjct  5   MKTAYIAKQRQISFVKSHFSRQLEERLGLIEV  36\n")
	assert.Equal(t, 1, strings.Count(text, "Query  "))
}

func TestScoreChanges(t *testing.T) {
	base, err := matrix.Base("BLOSUM62")
	require.NoError(t, err)
	m := base.Clone()
	m.Set(0, 1, base.At(0, 1)+3)

	d := newScoreChanges(base, m)
	c, r := d.Dims()
	assert.Equal(t, [2]int{matrix.TrueAA, matrix.TrueAA}, [2]int{c, r})
	assert.Equal(t, 3.0, d.Z(1, 0))
	assert.Equal(t, 0.0, d.Z(0, 1))
	assert.Equal(t, float64(matrix.TrueAA-1), d.Y(0))
	assert.Equal(t, 3.0, d.maxAbs())

	file := filepath.Join(t.TempDir(), "changes.svg")
	require.NoError(t, plotScoreChanges(base, m, "test", file))
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
