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

// Package rescore re-extends and re-scores alignment hits of a pair of
// sequences with the score matrix adjusted for that pair.
package rescore

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrOutOfRange means the positions of a hit are outside its sequences.
var ErrOutOfRange = errors.New("rescore: hit positions out of range")

// Hit is a local alignment between a query and a subject.
type Hit struct {
	QueryID   string
	SubjectID string

	// 0-based, inclusive
	QBegin, QEnd int
	SBegin, SEnd int

	Score    int
	AlignLen int
	Matches  int
	Gaps     int

	Evalue   float64
	BitScore float64
}

// Clone returns a copy of the hit.
func (h *Hit) Clone() *Hit {
	h2 := *h
	return &h2
}

func (h *Hit) String() string {
	return fmt.Sprintf("%s:%d-%d vs %s:%d-%d, score: %d",
		h.QueryID, h.QBegin+1, h.QEnd+1, h.SubjectID, h.SBegin+1, h.SEnd+1, h.Score)
}

// check checks the positions of a hit against the sequence lengths.
func (h *Hit) check(qlen, slen int) error {
	if h.QBegin < 0 || h.QBegin > h.QEnd || h.QEnd >= qlen ||
		h.SBegin < 0 || h.SBegin > h.SEnd || h.SEnd >= slen {
		return errors.Wrapf(ErrOutOfRange, "%s, query length: %d, subject length: %d", h, qlen, slen)
	}
	return nil
}

// contains tells whether o lies within h on both sequences.
func (h *Hit) contains(o *Hit) bool {
	return h.QBegin <= o.QBegin && o.QEnd <= h.QEnd &&
		h.SBegin <= o.SBegin && o.SEnd <= h.SEnd
}

// sharesEnd tells whether two hits start or end at the same pair of positions.
func (h *Hit) sharesEnd(o *Hit) bool {
	return (h.QBegin == o.QBegin && h.SBegin == o.SBegin) ||
		(h.QEnd == o.QEnd && h.SEnd == o.SEnd)
}

// Hits sorts hits by score in descending order, then by positions.
type Hits []*Hit

func (s Hits) Len() int      { return len(s) }
func (s Hits) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s Hits) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.QBegin != b.QBegin {
		return a.QBegin < b.QBegin
	}
	if a.SBegin != b.SBegin {
		return a.SBegin < b.SBegin
	}
	if a.QEnd != b.QEnd {
		return a.QEnd < b.QEnd
	}
	return a.SEnd < b.SEnd
}
