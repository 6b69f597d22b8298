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
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/adjust"
	"github.com/shenwei356/compomat/compomat/align"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	query   = []byte("MKTAYIAKQRQISFVKSHFSRQLEERLGLIEV")
	subject = []byte("GGGGMKTAYIAKQRQISFVKSHFSRQLEERLGLIEVGGGG")
)

func testHits() []*Hit {
	return []*Hit{
		{QueryID: "q", SubjectID: "s", QBegin: 0, QEnd: 31, SBegin: 4, SEnd: 35, Score: 150},
		{QueryID: "q", SubjectID: "s", QBegin: 5, QEnd: 10, SBegin: 9, SEnd: 14, Score: 30},
		{QueryID: "q", SubjectID: "s", QBegin: 20, QEnd: 40, SBegin: 24, SEnd: 35, Score: 20},
	}
}

func converged(t *testing.T) *adjust.Adjustment {
	m, err := matrix.Base("BLOSUM62")
	require.NoError(t, err)
	return &adjust.Adjustment{
		Mode:        adjust.OptimizeMatrix{},
		Outcome:     adjust.Converged,
		Matrix:      m,
		LambdaRatio: 1,
	}
}

func TestRedoAlignmentsNoop(t *testing.T) {
	m, err := matrix.Base("BLOSUM62")
	require.NoError(t, err)

	adjs := []*adjust.Adjustment{
		nil,
		{Mode: adjust.NoAdjustment{Reason: "short sequence"}, Outcome: adjust.Unadjusted, Matrix: m},
		{Mode: adjust.OptimizeMatrix{}, Outcome: adjust.FellBack, Matrix: m, Err: errors.New("failed")},
	}
	ext := NewAlignExtender(nil, 0)

	for i, adj := range adjs {
		hits := testHits()
		r := RedoAlignments(hits, adj, query, subject, ext, nil)

		if !reflect.DeepEqual(r.Hits, hits) {
			t.Errorf("#%d: hits should be unchanged", i)
		}
		for j := range hits {
			if r.Hits[j] == hits[j] {
				t.Errorf("#%d: hits should be copied", i)
			}
		}
		assert.False(t, r.Adjusted())
		assert.Equal(t, 3, r.Input)
		assert.Zero(t, r.Dropped+r.Purged+r.Filtered)
	}
}

func TestRedoAlignments(t *testing.T) {
	options := &Options{Karlin: &KarlinParams{Lambda: 0.267, K: 0.041}, MaxEvalue: 10}
	r := RedoAlignments(testHits(), converged(t), query, subject, NewAlignExtender(nil, 0), options)

	assert.Equal(t, 3, r.Input)
	assert.Equal(t, 1, r.Dropped) // out of range
	assert.Equal(t, 1, r.Purged)  // contained in the first one
	assert.Equal(t, 0, r.Filtered)
	require.Len(t, r.Hits, 1)

	h := r.Hits[0]
	assert.Equal(t, 155, h.Score)
	assert.Equal(t, [4]int{0, 31, 4, 35}, [4]int{h.QBegin, h.QEnd, h.SBegin, h.SEnd})
	assert.Equal(t, 32, h.AlignLen)
	assert.Equal(t, 32, h.Matches)
	assert.Equal(t, 0, h.Gaps)

	evalue := 0.041 * 32 * 40 * math.Exp(-0.267*155)
	assert.InEpsilon(t, evalue, h.Evalue, 1e-9)
	assert.InDelta(t, 64.314167, h.BitScore, 1e-5)

	// the evalue threshold
	options.MaxEvalue = 1e-20
	r = RedoAlignments(testHits(), converged(t), query, subject, NewAlignExtender(nil, 0), options)
	assert.Equal(t, 1, r.Filtered)
	assert.Empty(t, r.Hits)

	// redundant hits kept, sorted by score
	options = &Options{KeepRedundant: true}
	r = RedoAlignments(testHits(), converged(t), query, subject, NewAlignExtender(nil, 0), options)
	require.Len(t, r.Hits, 2)
	assert.Greater(t, r.Hits[0].Score, r.Hits[1].Score)
	assert.Equal(t, 5, r.Hits[1].QBegin)
	assert.Zero(t, r.Hits[0].Evalue)
}

type extendFunc func(query, subject []byte, hit *Hit, m *matrix.ScoreMatrix) (*Hit, error)

func (f extendFunc) Extend(query, subject []byte, hit *Hit, m *matrix.ScoreMatrix) (*Hit, error) {
	return f(query, subject, hit, m)
}

func TestRedoAlignmentsExtensionFailure(t *testing.T) {
	// every second hit fails
	var n int
	ext := extendFunc(func(query, subject []byte, hit *Hit, m *matrix.ScoreMatrix) (*Hit, error) {
		n++
		if n%2 == 0 {
			return nil, ErrNoAlignment
		}
		h := hit.Clone()
		h.Score *= 2
		return h, nil
	})

	hits := []*Hit{
		{QBegin: 0, QEnd: 3, SBegin: 0, SEnd: 3, Score: 10},
		{QBegin: 10, QEnd: 13, SBegin: 10, SEnd: 13, Score: 10},
		{QBegin: 20, QEnd: 23, SBegin: 20, SEnd: 23, Score: 10},
	}
	r := RedoAlignments(hits, converged(t), query, subject, ext, &Options{})
	assert.Equal(t, 1, r.Dropped)
	require.Len(t, r.Hits, 2)
	assert.Equal(t, 20, r.Hits[0].Score)
	assert.Equal(t, 0, r.Hits[0].QBegin)
	assert.Equal(t, 20, r.Hits[1].QBegin)

	r = RedoAlignments(hits, converged(t), query, subject, nil, &Options{})
	assert.Equal(t, 3, r.Dropped)
	assert.Empty(t, r.Hits)
}

func TestRedoAlignmentsSingleResidue(t *testing.T) {
	ext := NewAlignExtender(&align.DefaultAlignOptions, 50)
	q := []byte("PPPPPPPWPPPPPPP")
	s := []byte("CCCCCCCCCWCCCCCC")
	hits := []*Hit{{QBegin: 7, QEnd: 7, SBegin: 9, SEnd: 9, Score: 11}}

	r := RedoAlignments(hits, converged(t), q, s, ext, &Options{})
	assert.Equal(t, 0, r.Dropped)
	assert.Equal(t, 0, r.Purged)
	require.Len(t, r.Hits, 1)
	assert.Equal(t, [4]int{7, 7, 9, 9}, [4]int{r.Hits[0].QBegin, r.Hits[0].QEnd, r.Hits[0].SBegin, r.Hits[0].SEnd})
	assert.Equal(t, 11, r.Hits[0].Score)
}

func TestPurge(t *testing.T) {
	hits := []*Hit{
		{QBegin: 0, QEnd: 50, SBegin: 0, SEnd: 50, Score: 100},
		{QBegin: 0, QEnd: 50, SBegin: 100, SEnd: 150, Score: 90}, // same query interval, another place
		{QBegin: 10, QEnd: 20, SBegin: 10, SEnd: 20, Score: 50},  // contained
		{QBegin: 0, QEnd: 30, SBegin: 0, SEnd: 35, Score: 40},    // same start
		{QBegin: 40, QEnd: 80, SBegin: 40, SEnd: 80, Score: 30},  // overlapping only
	}
	kept, purged := purge(hits)
	assert.Equal(t, 2, purged)
	require.Len(t, kept, 3)
	assert.Equal(t, []int{100, 90, 30}, []int{kept[0].Score, kept[1].Score, kept[2].Score})

	// single-residue hits
	hits = []*Hit{
		{QBegin: 7, QEnd: 7, SBegin: 9, SEnd: 9, Score: 11},
		{QBegin: 7, QEnd: 7, SBegin: 20, SEnd: 20, Score: 11},
		{QBegin: 7, QEnd: 7, SBegin: 9, SEnd: 9, Score: 5},
	}
	kept, purged = purge(hits)
	assert.Equal(t, 1, purged)
	require.Len(t, kept, 2)
	assert.Equal(t, 20, kept[1].SBegin)
}

func TestAlignExtender(t *testing.T) {
	m, err := matrix.Base("BLOSUM62")
	require.NoError(t, err)

	// the window covers the whole sequences
	ext := NewAlignExtender(&align.DefaultAlignOptions, 50)
	h, err := ext.Extend(query, subject, &Hit{QBegin: 5, QEnd: 10, SBegin: 9, SEnd: 14, Score: 1}, m)
	require.NoError(t, err)
	assert.Equal(t, 155, h.Score)
	assert.Equal(t, [4]int{0, 31, 4, 35}, [4]int{h.QBegin, h.QEnd, h.SBegin, h.SEnd})

	// no positive alignment
	_, err = ext.Extend([]byte("AAAA"), []byte("WWWW"), &Hit{QBegin: 0, QEnd: 3, SBegin: 0, SEnd: 3}, m)
	assert.True(t, errors.Is(err, ErrNoAlignment))

	// concurrent use
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := ext.Extend(query, subject, &Hit{QBegin: 0, QEnd: 31, SBegin: 4, SEnd: 35}, m)
			if err != nil || h.Score != 155 {
				t.Errorf("score 155 expected, got %v, %v", h, err)
			}
		}()
	}
	wg.Wait()
}

func TestHitsOrder(t *testing.T) {
	a := &Hit{QBegin: 3, SBegin: 0, Score: 10}
	b := &Hit{QBegin: 1, SBegin: 5, Score: 10}
	c := &Hit{QBegin: 9, SBegin: 9, Score: 20}
	hits := Hits{a, b, c}
	assert.True(t, hits.Less(2, 0))
	assert.True(t, hits.Less(1, 0))
	assert.False(t, hits.Less(0, 1))

	assert.Error(t, (&Hit{QBegin: 0, QEnd: 32, SBegin: 0, SEnd: 1}).check(len(query), len(subject)))
	assert.NoError(t, (&Hit{QBegin: 0, QEnd: 31, SBegin: 0, SEnd: 39}).check(len(query), len(subject)))
}
