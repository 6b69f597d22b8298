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

package rescore

import (
	"math"

	"github.com/rdleal/intervalst/interval"
	"github.com/shenwei356/compomat/compomat/adjust"
	"github.com/twotwotwo/sorts"
)

// KarlinParams are the Karlin-Altschul parameters of the scoring system,
// in the units of the base matrix.
type KarlinParams struct {
	Lambda float64
	K      float64
}

// Options contains the options of rescoring.
type Options struct {
	// for E-values and bit scores, nil for not computing them
	Karlin *KarlinParams
	// hits with E-values above it are removed, non-positive for no limit
	MaxEvalue float64
	// effective length of the subject side of the search space,
	// non-positive for the subject length
	DBLength int

	// keep hits contained in or sharing ends with higher scoring hits
	KeepRedundant bool
}

// DefaultOptions is the default Options,
// with the gapped parameters of BLOSUM62 with gap costs 11/1.
var DefaultOptions = Options{
	Karlin:    &KarlinParams{Lambda: 0.267, K: 0.041},
	MaxEvalue: 10,
}

// Result is the rescoring result of a pair of sequences.
type Result struct {
	Hits []*Hit

	Input    int // number of input hits
	Dropped  int // hits failed to be re-extended
	Purged   int // redundant hits
	Filtered int // hits with large E-values

	Adjustment *adjust.Adjustment
	States     []State
}

// Adjusted tells whether the hits are rescored with a new matrix.
func (r *Result) Adjusted() bool {
	return r.Adjustment.Adjusted()
}

// RedoAlignments re-extends the hits of a pair of sequences with the
// adjusted matrix. If no new matrix is made for the pair (adj is nil, no
// adjustment is chosen, or the adjustment fell back), it returns copies
// of the hits unchanged.
//
// Otherwise hits with positions outside the sequences or failing to be
// re-extended are dropped. The re-extended hits are sorted by score,
// those contained in or sharing an end with a higher scoring hit are
// removed, and E-values and bit scores are computed if Karlin-Altschul
// parameters are given. Without an Extender all hits are dropped.
func RedoAlignments(hits []*Hit, adj *adjust.Adjustment, query, subject []byte,
	ext Extender, options *Options) *Result {

	if options == nil {
		options = &DefaultOptions
	}

	r := &Result{
		Input:      len(hits),
		Adjustment: adj,
		States:     trace(adj),
	}

	if !adj.Adjusted() {
		r.Hits = make([]*Hit, len(hits))
		for i, h := range hits {
			r.Hits[i] = h.Clone()
		}
		return r
	}

	if ext == nil {
		r.Dropped = len(hits)
		r.Hits = []*Hit{}
		return r
	}

	m := adj.Matrix
	redone := make([]*Hit, 0, len(hits))
	for _, h := range hits {
		if err := h.check(len(query), len(subject)); err != nil {
			r.Dropped++
			continue
		}
		h2, err := ext.Extend(query, subject, h, m)
		if err != nil || h2 == nil {
			r.Dropped++
			continue
		}
		redone = append(redone, h2)
	}

	sorts.Quicksort(Hits(redone))

	if !options.KeepRedundant {
		var purged int
		redone, purged = purge(redone)
		r.Purged = purged
	}

	if options.Karlin != nil {
		// scores of scaled matrices are in units of 1/Scale of the base matrix
		lambda := options.Karlin.Lambda / m.Scale
		qlen := float64(len(query))
		slen := float64(len(subject))
		if options.DBLength > 0 {
			slen = float64(options.DBLength)
		}

		kept := redone[:0]
		for _, h := range redone {
			h.Evalue = options.Karlin.K * qlen * slen * math.Exp(-lambda*float64(h.Score))
			h.BitScore = (lambda*float64(h.Score) - math.Log(options.Karlin.K)) / math.Ln2
			if options.MaxEvalue > 0 && h.Evalue > options.MaxEvalue {
				r.Filtered++
				continue
			}
			kept = append(kept, h)
		}
		redone = kept
	}

	r.Hits = redone
	return r
}

// purge removes hits contained in or sharing an end with a higher scoring
// hit. Hits should be sorted by score in descending order.
func purge(hits []*Hit) ([]*Hit, int) {
	cmpFn := func(x, y int) int { return x - y }
	// single-residue hits are point intervals
	tree := interval.NewSearchTreeWithOptions[[2]int, int](cmpFn, interval.TreeWithIntervalPoint())
	kept := make(map[[2]int][]*Hit, len(hits))

	var purged int
	var key [2]int
	var redundant bool
	result := hits[:0]
	for _, h := range hits {
		redundant = false
		if keys, ok := tree.AllIntersections(h.QBegin, h.QEnd); ok {
		CHECK:
			for _, key = range keys {
				for _, k := range kept[key] {
					if k.contains(h) || k.sharesEnd(h) {
						redundant = true
						break CHECK
					}
				}
			}
		}
		if redundant {
			purged++
			continue
		}

		key = [2]int{h.QBegin, h.QEnd}
		if _, ok := kept[key]; !ok {
			if err := tree.Insert(h.QBegin, h.QEnd, key); err != nil {
				// an end before the start, rejected by check
				purged++
				continue
			}
		}
		kept[key] = append(kept[key], h)
		result = append(result, h)
	}

	return result, purged
}
