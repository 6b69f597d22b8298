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

// Package align implements local alignment of protein sequences with a
// substitution matrix and affine gap penalties.
package align

import (
	"bytes"
	"fmt"
	"sync"
)

// Pointer is for saving where the maximum score of current position comes from.
type Pointer uint8

const (
	None Pointer = iota // No data, the start of a local alignment.
	Top
	Left
	Mismatch
	Match
)

func (p Pointer) String() string {
	switch p {
	case Match:
		return "↘︎"
	case Mismatch:
		return "⇘"
	case Top:
		return "↓"
	case Left:
		return "→"
	case None:
		return "×"
	}
	return "■"
}

// Scorer returns the substitution score of two residues.
type Scorer interface {
	Score(a, b byte) int
}

// Aligner implements the Smith-Waterman-Gotoh algorithm.
// An Aligner is not safe for concurrent use.
type Aligner struct {
	Options *AlignOptions

	// reusable variables
	scores   []int        // best scores
	gapsA    []int        // best scores ending with a gap in seq A
	gapsB    []int        // best scores ending with a gap in seq B
	pointers []Pointer    // pointer matrix of scores
	extA     []bool       // whether the gap in seq A is extended from the left cell
	extB     []bool       // whether the gap in seq B is extended from the top cell
	buf      bytes.Buffer // only for print the matrix
}

// AlignOptions contains all alignment options.
type AlignOptions struct {
	// a gap of length L costs GapOpen + L * GapExtend
	GapOpen   int
	GapExtend int

	// save alignment strings
	// AW-HE
	// || ||
	// AWGHE
	SaveAlignments bool
	// save matrix in the bytes buffer
	SaveMatrix bool
}

// DefaultAlignOptions is the default AlignOptions.
var DefaultAlignOptions = AlignOptions{
	GapOpen:   11,
	GapExtend: 1,

	SaveAlignments: false,
	SaveMatrix:     false,
}

// AlignResult holds the details of the alignment.
type AlignResult struct {
	Score   int // simply the score
	Len     int // length of alignment
	Matches int // number of matches
	Gaps    int // number of gaps

	// 0-based, inclusive. The ends are -1 for an empty alignment.
	QBegin, QEnd int
	TBegin, TEnd int

	AlignA []byte // Alignment string for seq A
	AlignM []byte // Matching symbols, "|" for match, "+" for positive scores, " " for others
	AlignB []byte // Alignment string for seq B

	Matrix []byte // Matrix text, note that it's not thread-safe, only for debugging.
}

// Reset resets all the values.
func (r *AlignResult) Reset() {
	r.Score = 0
	r.Len = 0
	r.Matches = 0
	r.Gaps = 0
	r.QBegin, r.QEnd = 0, -1
	r.TBegin, r.TEnd = 0, -1

	if r.AlignA != nil {
		r.AlignA = r.AlignA[:0]
	}
	if r.AlignM != nil {
		r.AlignM = r.AlignM[:0]
	}
	if r.AlignB != nil {
		r.AlignB = r.AlignB[:0]
	}
	r.Matrix = nil
}

var poolAlignResult = &sync.Pool{New: func() interface{} {
	r := &AlignResult{}
	// they are inilialized the might not be used when SaveAlignments is false.
	r.AlignA = make([]byte, 0, 1024)
	r.AlignB = make([]byte, 0, 1024)
	r.AlignM = make([]byte, 0, 1024)
	return r
}}

// NewAligner returns an aligner.
func NewAligner(options *AlignOptions) *Aligner {
	if options == nil {
		options = &DefaultAlignOptions
	}
	alg := &Aligner{
		Options: options,
	}
	return alg
}

// RecycleAlignResult recycles an alignment result.
func RecycleAlignResult(r *AlignResult) {
	poolAlignResult.Put(r)
}

// minScore is low enough to never win, and high enough to never overflow.
const minScore = -(1 << 30)

func growInts(s []int, n int) []int {
	if n <= cap(s) {
		return s[:n]
	}
	return make([]int, n)
}

func growBools(s []bool, n int) []bool {
	if n <= cap(s) {
		return s[:n]
	}
	return make([]bool, n)
}

func growPointers(s []Pointer, n int) []Pointer {
	if n <= cap(s) {
		return s[:n]
	}
	return make([]Pointer, n)
}

// Local aligns two sequences with local alignment, scoring residue pairs
// with m. The highest scoring cell found first in row-major order ends the
// alignment.
// Please remember to recycle the result after using
// by calling RecycleAlignResult.
func (alg *Aligner) Local(a, b []byte, m Scorer) *AlignResult {
	h := len(a) + 1 // height of the matrix
	w := len(b) + 1 // width of the matrix

	// ---------------------------------------------------
	// initialize

	var i, j, k int

	n := h * w
	alg.scores = growInts(alg.scores, n)
	alg.gapsA = growInts(alg.gapsA, n)
	alg.gapsB = growInts(alg.gapsB, n)
	alg.pointers = growPointers(alg.pointers, n)
	alg.extA = growBools(alg.extA, n)
	alg.extB = growBools(alg.extB, n)
	scores, gapsA, gapsB := alg.scores, alg.gapsA, alg.gapsB
	pointers, extA, extB := alg.pointers, alg.extA, alg.extB

	// the first column
	for i = 0; i < h; i++ {
		k = idx(i, 0, w)
		scores[k] = 0
		gapsA[k], gapsB[k] = minScore, minScore
		pointers[k] = None
	}
	// the first row
	for j = 1; j < w; j++ {
		scores[j] = 0
		gapsA[j], gapsB[j] = minScore, minScore
		pointers[j] = None
	}

	open := alg.Options.GapOpen + alg.Options.GapExtend
	extend := alg.Options.GapExtend

	// ---------------------------------------------------
	// compute

	var max, sOpen, sExt, best, bi, bj int
	var p Pointer
	for i = 1; i < h; i++ {
		for j = 1; j < w; j++ {
			k = idx(i, j, w)

			// a gap in seq A, from the left
			sOpen = scores[k-1] - open
			sExt = gapsA[k-1] - extend
			if sExt > sOpen {
				gapsA[k], extA[k] = sExt, true
			} else {
				gapsA[k], extA[k] = sOpen, false
			}

			// a gap in seq B, from the top
			sOpen = scores[k-w] - open
			sExt = gapsB[k-w] - extend
			if sExt > sOpen {
				gapsB[k], extB[k] = sExt, true
			} else {
				gapsB[k], extB[k] = sOpen, false
			}

			p = Mismatch
			if a[i-1] == b[j-1] {
				p = Match
			}
			max = scores[k-w-1] + m.Score(a[i-1], b[j-1])

			if gapsB[k] > max {
				max = gapsB[k]
				p = Top
			}
			if gapsA[k] > max {
				max = gapsA[k]
				p = Left
			}
			if max <= 0 {
				max = 0
				p = None
			}

			pointers[k] = p
			scores[k] = max

			if max > best {
				best, bi, bj = max, i, j
			}
		}
	}

	// ---------------------------------------------------
	// traceback

	r := poolAlignResult.Get().(*AlignResult)
	r.Reset()

	if alg.Options.SaveMatrix {
		r.Matrix = alg.printMatrix(a, b, scores, pointers)
	}

	if best == 0 {
		return r
	}
	r.Score = best
	r.QEnd, r.TEnd = bi-1, bj-1

	save := alg.Options.SaveAlignments
	state := None // in a gap of seq B (Top), of seq A (Left), or not (None)
	var ext bool
	i, j = bi, bj
	for i > 0 && j > 0 {
		k = idx(i, j, w)

		switch state {
		case Top:
			if save {
				r.AlignA = append(r.AlignA, a[i-1])
				r.AlignB = append(r.AlignB, '-')
				r.AlignM = append(r.AlignM, ' ')
			}
			r.Len++
			r.Gaps++
			ext = extB[k]
			i--
			if !ext {
				state = None
			}
			continue
		case Left:
			if save {
				r.AlignA = append(r.AlignA, '-')
				r.AlignB = append(r.AlignB, b[j-1])
				r.AlignM = append(r.AlignM, ' ')
			}
			r.Len++
			r.Gaps++
			ext = extA[k]
			j--
			if !ext {
				state = None
			}
			continue
		}

		p = pointers[k]
		if p == None {
			break
		}

		switch p {
		case Mismatch:
			if save {
				r.AlignA = append(r.AlignA, a[i-1])
				r.AlignB = append(r.AlignB, b[j-1])
				if m.Score(a[i-1], b[j-1]) > 0 {
					r.AlignM = append(r.AlignM, '+')
				} else {
					r.AlignM = append(r.AlignM, ' ')
				}
			}
			r.Len++
			i--
			j--
		case Match:
			if save {
				r.AlignA = append(r.AlignA, a[i-1])
				r.AlignB = append(r.AlignB, b[j-1])
				r.AlignM = append(r.AlignM, '|')
			}
			r.Len++
			r.Matches++
			i--
			j--
		case Top, Left:
			state = p
		}
	}
	r.QBegin, r.TBegin = i, j

	if save {
		reverse(r.AlignA)
		reverse(r.AlignB)
		reverse(r.AlignM)
	}

	return r
}

func (alg *Aligner) printMatrix(a, b []byte, scores []int, pointers []Pointer) []byte {
	h := len(a) + 1
	w := len(b) + 1
	var i, j, k int
	buf := &alg.buf

	buf.Reset()

	// b
	buf.WriteString(fmt.Sprintf("%c  %s%-3s", ' ', " ", " "))
	for j = 0; j < len(b); j++ {
		buf.WriteString(fmt.Sprintf("  %s%3c", " ", b[j]))
	}
	buf.WriteByte('\n')

	for i = 0; i < h; i++ {
		if i == 0 {
			buf.WriteString(fmt.Sprintf("%c", ' '))
		} else {
			buf.WriteString(fmt.Sprintf("%c", a[i-1]))
		}

		for j = 0; j < w; j++ {
			k = idx(i, j, w)
			buf.WriteString(fmt.Sprintf("  %s%3d", pointers[k], scores[k]))
		}
		buf.WriteByte('\n')
	}

	return append([]byte(nil), buf.Bytes()...)
}

func idx(i, j, w int) int {
	return (i * w) + j
}

func reverse(s []byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
