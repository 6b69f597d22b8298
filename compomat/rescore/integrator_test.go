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
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/adjust"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegratorUnsupportedMatrix(t *testing.T) {
	_, err := adjust.NewEngine("UNSUPPORTED_MATRIX_X", nil)
	require.True(t, errors.Is(err, matrix.ErrUnsupportedMatrix))

	// no engine, scores stay the same
	it, err := NewIntegrator(nil, nil, nil)
	require.NoError(t, err)

	hits := testHits()
	r, err := it.Process(&Pair{QueryID: "q", SubjectID: "s", Query: query, Subject: subject, Hits: hits})
	require.NoError(t, err)
	require.Len(t, r.Hits, len(hits))
	for i, h := range r.Hits {
		assert.Equal(t, hits[i].Score, h.Score)
	}
	assert.Equal(t, []State{StateStart, StateModeSelected, StateUnadjusted, StateRescored, StateDone}, r.States)

	s := it.Stats().Summary()
	assert.Equal(t, uint64(1), s.Pairs)
	assert.Equal(t, uint64(1), s.Unadjusted)
	assert.Equal(t, uint64(3), s.Hits)
	assert.Equal(t, uint64(3), s.Output)
}

func TestIntegrator(t *testing.T) {
	_, err := NewIntegrator(&adjust.Engine{}, nil, nil)
	assert.Error(t, err)

	e, err := adjust.NewEngine("BLOSUM62", &adjust.Options{
		Policy:       adjust.CompoForceFull,
		Pseudocounts: 20,
		Scale:        1,
	})
	require.NoError(t, err)
	it, err := NewIntegrator(e, NewAlignExtender(nil, 0), &Options{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := it.Process(&Pair{QueryID: "q", SubjectID: "s", Query: query, Subject: subject, Hits: testHits()})
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, adjust.Converged, r.Adjustment.Outcome)
		assert.Equal(t, []State{StateStart, StateModeSelected, StateOptimizing, StateConverged, StateRescored, StateDone}, r.States)
		assert.Equal(t, results[0].Hits, r.Hits)
		assert.Equal(t, 1, r.Dropped)
	}

	s := it.Stats().Summary()
	assert.Equal(t, uint64(4), s.Pairs)
	assert.Equal(t, uint64(4), s.Converged)
	assert.Equal(t, uint64(12), s.Hits)
	assert.Equal(t, uint64(4), s.Dropped)
}

func TestTrace(t *testing.T) {
	tests := []struct {
		adj    *adjust.Adjustment
		states []State
	}{
		{
			&adjust.Adjustment{Mode: adjust.NoAdjustment{}, Outcome: adjust.Unadjusted},
			[]State{StateStart, StateModeSelected, StateUnadjusted, StateRescored, StateDone},
		},
		{
			&adjust.Adjustment{Mode: adjust.ScaleOldMatrix{}, Outcome: adjust.Rescaled},
			[]State{StateStart, StateModeSelected, StateRescaling, StateRescaled, StateRescored, StateDone},
		},
		{
			&adjust.Adjustment{Mode: adjust.ScaleOldMatrix{}, Outcome: adjust.FellBack},
			[]State{StateStart, StateModeSelected, StateRescaling, StateFellBack, StateRescored, StateDone},
		},
		{
			&adjust.Adjustment{Mode: adjust.ForcedOptimize{}, Outcome: adjust.FellBack},
			[]State{StateStart, StateModeSelected, StateOptimizing, StateFellBack, StateRescored, StateDone},
		},
	}
	for i, test := range tests {
		states := trace(test.adj)
		assert.Equal(t, test.states, states, "#%d", i)
	}

	assert.Equal(t, "fell-back", StateFellBack.String())
	assert.Equal(t, "unknown", State(100).String())
}
