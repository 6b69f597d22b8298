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

package matrix

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/zeebo/wyhash"
)

// ScoreMatrix is an integer substitution matrix over the extended alphabet.
type ScoreMatrix struct {
	Name string
	// Scale is the factor applied to the scores relative to
	// the units of the base matrix, 1 for base matrices.
	Scale float64

	scores [Size][Size]int
}

// NewScoreMatrix creates a matrix from the scores of the true amino acids.
// Scores of the ambiguity codes are left as zeros, see FillAmbiguous.
func NewScoreMatrix(name string, block *[TrueAA][TrueAA]int) *ScoreMatrix {
	m := &ScoreMatrix{Name: name, Scale: 1}
	for i := 0; i < TrueAA; i++ {
		copy(m.scores[i][:TrueAA], block[i][:])
	}
	return m
}

// At returns the score of two alphabet indexes.
func (m *ScoreMatrix) At(i, j int) int {
	return m.scores[i][j]
}

// Set sets the score of two alphabet indexes.
func (m *ScoreMatrix) Set(i, j, s int) {
	m.scores[i][j] = s
}

// Score returns the score of two residues. Unrecognized bytes are scored as X.
func (m *ScoreMatrix) Score(a, b byte) int {
	i, j := letter2idx[a], letter2idx[b]
	if i < 0 {
		i = IdxX
	}
	if j < 0 {
		j = IdxX
	}
	return m.scores[i][j]
}

// Block returns a copy of the scores of the true amino acids.
func (m *ScoreMatrix) Block() [TrueAA][TrueAA]int {
	var b [TrueAA][TrueAA]int
	for i := 0; i < TrueAA; i++ {
		copy(b[i][:], m.scores[i][:TrueAA])
	}
	return b
}

// Clone returns a deep copy.
func (m *ScoreMatrix) Clone() *ScoreMatrix {
	m2 := *m
	return &m2
}

// Equal tells whether two matrices have the same scores.
func (m *ScoreMatrix) Equal(o *ScoreMatrix) bool {
	return m.scores == o.scores
}

// MinMax returns the minimum and maximum scores of the true amino acids.
func (m *ScoreMatrix) MinMax() (min, max int) {
	min, max = math.MaxInt, math.MinInt
	var s int
	for i := 0; i < TrueAA; i++ {
		for j := 0; j < TrueAA; j++ {
			s = m.scores[i][j]
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
	}
	return
}

// ScaleBy returns a new matrix with all scores multiplied by ratio and rounded.
// The score of a stop codon against itself is kept.
func (m *ScoreMatrix) ScaleBy(ratio float64) *ScoreMatrix {
	m2 := &ScoreMatrix{Name: m.Name, Scale: m.Scale * ratio}
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			m2.scores[i][j] = int(math.Round(float64(m.scores[i][j]) * ratio))
		}
	}
	m2.scores[IdxStop][IdxStop] = m.scores[IdxStop][IdxStop]
	return m2
}

// members of the ambiguity codes
var ambiguity = [Size - TrueAA - 1][]int{
	{2, 3}, // B: N, D
	{5, 6}, // Z: Q, E
	nil,    // X: all
	{4},    // U: C
	{11},   // O: K
}

// expand returns the true residues represented by an alphabet index and
// their weights, proportional to freqs.
func expand(idx int, freqs []float64) ([]int, []float64) {
	if idx < TrueAA {
		return []int{idx}, []float64{1}
	}
	members := ambiguity[idx-TrueAA]
	if members == nil {
		members = make([]int, TrueAA)
		for i := range members {
			members[i] = i
		}
	}
	weights := make([]float64, len(members))
	var sum float64
	for k, i := range members {
		weights[k] = freqs[i]
		sum += freqs[i]
	}
	for k := range weights {
		if sum > 0 {
			weights[k] /= sum
		} else {
			weights[k] = 1 / float64(len(members))
		}
	}
	return members, weights
}

// FillAmbiguous computes the scores of the ambiguity codes from the scores
// of the true amino acids: B, Z and X are averages of the scores of the
// residues they stand for, weighted by rowFreqs for the row residue and
// colFreqs for the column residue, and X never scores above -1. U and O
// take the scores of C and K. A stop scores the minimum of the matrix
// against anything but itself, and 1 against itself.
func (m *ScoreMatrix) FillAmbiguous(rowFreqs, colFreqs []float64) {
	min, _ := m.MinMax()

	var rows [Size][]int
	var rowWeights [Size][]float64
	var cols [Size][]int
	var colWeights [Size][]float64
	for a := 0; a < IdxStop; a++ {
		rows[a], rowWeights[a] = expand(a, rowFreqs)
		cols[a], colWeights[a] = expand(a, colFreqs)
	}

	var v float64
	for a := 0; a < Size; a++ {
		for b := 0; b < Size; b++ {
			if a < TrueAA && b < TrueAA {
				continue
			}
			if a == IdxStop || b == IdxStop {
				if a == b {
					m.scores[a][b] = 1
				} else {
					m.scores[a][b] = min
				}
				continue
			}

			v = 0
			for k, i := range rows[a] {
				for l, j := range cols[b] {
					v += rowWeights[a][k] * colWeights[b][l] * float64(m.scores[i][j])
				}
			}
			if (a == IdxX || b == IdxX) && v > -1 {
				v = -1
			}
			m.scores[a][b] = int(math.Round(v))
		}
	}
}

// Fingerprint returns a hash value of all the scores.
func (m *ScoreMatrix) Fingerprint() uint64 {
	buf := make([]byte, Size*Size*4)
	var k int
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			binary.LittleEndian.PutUint32(buf[k:k+4], uint32(int32(m.scores[i][j])))
			k += 4
		}
	}
	return wyhash.Hash(buf, 1)
}

// Write writes the matrix in the NCBI text format.
func (m *ScoreMatrix) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# %s\n", m.Name)
	bw.WriteString(" ")
	for j := 0; j < Size; j++ {
		fmt.Fprintf(bw, " %3c", Alphabet[j])
	}
	bw.WriteByte('\n')

	for i := 0; i < Size; i++ {
		bw.WriteByte(Alphabet[i])
		for j := 0; j < Size; j++ {
			fmt.Fprintf(bw, " %3d", m.scores[i][j])
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}
