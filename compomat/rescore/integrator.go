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
	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/adjust"
)

// Pair is a query and a subject sequence with their hits.
type Pair struct {
	QueryID   string
	SubjectID string
	Query     []byte
	Subject   []byte

	// computed from the sequences if nil
	QueryComposition   *adjust.Composition
	SubjectComposition *adjust.Composition

	Hits []*Hit
}

// Integrator adjusts the matrix for pairs of sequences and rescores their
// hits. It is safe for concurrent use.
type Integrator struct {
	engine  *adjust.Engine // nil for no adjustment
	ext     Extender
	options Options

	stats Stats
}

// NewIntegrator creates an Integrator. A nil engine, e.g., for a matrix
// without frequency data, leaves all hits unchanged.
func NewIntegrator(engine *adjust.Engine, ext Extender, options *Options) (*Integrator, error) {
	if engine != nil && ext == nil {
		return nil, errors.New("rescore: an extender is needed")
	}
	if options == nil {
		options = &DefaultOptions
	}
	return &Integrator{
		engine:  engine,
		ext:     ext,
		options: *options,
	}, nil
}

// Process adjusts the matrix for a pair and rescores its hits.
// An error is only returned when the adjustment itself errs.
func (it *Integrator) Process(p *Pair) (*Result, error) {
	var adj *adjust.Adjustment
	if it.engine != nil {
		qc, sc := p.QueryComposition, p.SubjectComposition
		if qc == nil {
			qc = adjust.NewComposition(p.Query)
		}
		if sc == nil {
			sc = adjust.NewComposition(p.Subject)
		}

		var err error
		adj, err = it.engine.Adjust(qc, sc)
		if err != nil {
			return nil, errors.Wrapf(err, "%s vs %s", p.QueryID, p.SubjectID)
		}
	}

	r := RedoAlignments(p.Hits, adj, p.Query, p.Subject, it.ext, &it.options)
	it.stats.Add(r)
	return r, nil
}

// Stats returns the accumulated diagnostics.
func (it *Integrator) Stats() *Stats {
	return &it.stats
}
