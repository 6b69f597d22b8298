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
	"sync"

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/align"
	"github.com/shenwei356/compomat/compomat/matrix"
)

// ErrNoAlignment means no positive-scoring alignment is found.
var ErrNoAlignment = errors.New("rescore: no positive-scoring alignment")

// Extender re-extends a hit with a score matrix and returns the new hit.
type Extender interface {
	Extend(query, subject []byte, hit *Hit, m *matrix.ScoreMatrix) (*Hit, error)
}

// AlignExtender re-aligns the region of a hit, widened by Window residues
// on each side, with local alignment. It is safe for concurrent use.
type AlignExtender struct {
	Window int

	pool *sync.Pool
}

// NewAlignExtender creates an AlignExtender.
func NewAlignExtender(options *align.AlignOptions, window int) *AlignExtender {
	if options == nil {
		options = &align.DefaultAlignOptions
	}
	opt := *options
	opt.SaveAlignments = false
	opt.SaveMatrix = false

	if window < 0 {
		window = 0
	}

	return &AlignExtender{
		Window: window,
		pool: &sync.Pool{New: func() interface{} {
			return align.NewAligner(&opt)
		}},
	}
}

// Extend re-aligns the region of a hit.
func (e *AlignExtender) Extend(query, subject []byte, hit *Hit, m *matrix.ScoreMatrix) (*Hit, error) {
	qs := max(0, hit.QBegin-e.Window)
	qe := min(len(query), hit.QEnd+1+e.Window)
	ss := max(0, hit.SBegin-e.Window)
	se := min(len(subject), hit.SEnd+1+e.Window)
	if qs >= qe || ss >= se {
		return nil, errors.Wrapf(ErrOutOfRange, "%s", hit)
	}

	alg := e.pool.Get().(*align.Aligner)
	r := alg.Local(query[qs:qe], subject[ss:se], m)
	e.pool.Put(alg)
	defer align.RecycleAlignResult(r)

	if r.Score <= 0 {
		return nil, errors.Wrapf(ErrNoAlignment, "%s", hit)
	}

	h := hit.Clone()
	h.QBegin, h.QEnd = qs+r.QBegin, qs+r.QEnd
	h.SBegin, h.SEnd = ss+r.TBegin, ss+r.TEnd
	h.Score = r.Score
	h.AlignLen = r.Len
	h.Matches = r.Matches
	h.Gaps = r.Gaps
	h.Evalue, h.BitScore = 0, 0
	return h, nil
}
