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

package adjust

import (
	"math"
	"reflect"
	"testing"

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skewed returns the background frequencies of BLOSUM62 reweighted
// by a deterministic pattern, normalized.
func skewed(t *testing.T, f1 float64, f2 int) []float64 {
	bg, err := matrix.BackgroundFrequencies("BLOSUM62")
	require.NoError(t, err)

	var sum float64
	p := make([]float64, len(bg))
	for i, v := range bg {
		p[i] = v * (1 + f1*float64((i*f2)%5)/4)
		sum += p[i]
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}

func checkMarginals(t *testing.T, r *TargetFreqs, rows, cols []float64) {
	assert.InDeltaSlice(t, rows, r.RowSums(), 1e-6)
	assert.InDeltaSlice(t, cols, r.ColSums(), 1e-6)
	for k, v := range r.Freqs {
		if !(v > 0) {
			t.Errorf("non-positive target frequency at %d: %v", k, v)
		}
	}
}

func TestOptimizeUniform(t *testing.T) {
	n := matrix.TrueAA
	base := make([]float64, n*n)
	for k := range base {
		base[k] = 1.0 / float64(n*n)
	}
	rows := make([]float64, n)
	cols := make([]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = 1.0 / float64(n)
		cols[i] = 0.5 / float64(n-1)
	}
	cols[0] = 0.5

	r, err := OptimizeTargetFreqs(base, rows, cols, Unconstrained())
	require.NoError(t, err)
	checkMarginals(t, r, rows, cols)
	assert.Less(t, r.Residual, tolerance)
	assert.LessOrEqual(t, r.Iterations, 5)

	// the closest matrix to a uniform one is the product of the marginals
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.InDelta(t, rows[i]*cols[j], r.At(i, j), 1e-9)
		}
	}
}

func TestOptimizeRelEntropy(t *testing.T) {
	f, err := matrix.Lookup("BLOSUM62")
	require.NoError(t, err)
	rows, cols := skewed(t, 1, 3), skewed(t, 2, 7)

	targets := []RelEntropyTarget{
		Unconstrained(),
		ConstrainRelEntropy(f.RelEntropy()),
		ConstrainRelEntropy(0.3),
		ConstrainRelEntropy(0.7),
	}
	for _, target := range targets {
		r, err := OptimizeTargetFreqs(f.Joint(), rows, cols, target)
		require.NoError(t, err, "target: %+v", target)

		checkMarginals(t, r, rows, cols)
		if target.Constrained {
			h := r.RelEntropy(rows, cols)
			if math.Abs(h-target.Value) > 1e-6 {
				t.Errorf("relative entropy %f expected, %f returned", target.Value, h)
			}
		}
		t.Logf("target: %+v, iterations: %d, residual: %g", target, r.Iterations, r.Residual)
	}
}

func TestOptimizeOwnContext(t *testing.T) {
	f, err := matrix.Lookup("BLOSUM62")
	require.NoError(t, err)
	joint := f.Joint()

	r, err := OptimizeTargetFreqs(joint, f.RowSums(), f.ColSums(), ConstrainRelEntropy(f.RelEntropy()))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Iterations)
	assert.InDeltaSlice(t, joint, r.Freqs, 1e-9)
}

func TestOptimizeDeterministic(t *testing.T) {
	f, err := matrix.Lookup("PAM250")
	require.NoError(t, err)
	rows, cols := skewed(t, 1.5, 2), skewed(t, 0.5, 3)

	r1, err := OptimizeTargetFreqs(f.Joint(), rows, cols, ConstrainRelEntropy(f.RelEntropy()))
	require.NoError(t, err)
	r2, err := OptimizeTargetFreqs(f.Joint(), rows, cols, ConstrainRelEntropy(f.RelEntropy()))
	require.NoError(t, err)

	if !reflect.DeepEqual(r1, r2) {
		t.Errorf("results of identical inputs differ")
	}
}

func TestOptimizeInfeasible(t *testing.T) {
	f, err := matrix.Lookup("BLOSUM62")
	require.NoError(t, err)
	rows, cols := skewed(t, 1, 3), skewed(t, 2, 7)

	r, err := OptimizeTargetFreqs(f.Joint(), rows, cols, ConstrainRelEntropy(5))
	assert.Nil(t, r)

	var nce *NonConvergenceError
	require.True(t, errors.As(err, &nce), "NonConvergenceError expected, got %v", err)
	assert.NotEqual(t, ReasonInvalidInput, nce.Reason)
	assert.LessOrEqual(t, nce.Iterations, iterationLimit)
	t.Log(err)
}

func TestOptimizeInvalidInput(t *testing.T) {
	f, err := matrix.Lookup("BLOSUM62")
	require.NoError(t, err)
	joint, rows, cols := f.Joint(), f.RowSums(), f.ColSums()

	zero := append([]float64(nil), rows...)
	zero[0] += zero[1]
	zero[1] = 0

	unnormalized := append([]float64(nil), cols...)
	unnormalized[3] += 0.1

	tests := []struct {
		name             string
		base, rows, cols []float64
		target           RelEntropyTarget
	}{
		{"short base", joint[:100], rows, cols, Unconstrained()},
		{"mismatched marginals", joint, rows, cols[:10], Unconstrained()},
		{"zero frequency", joint, zero, cols, Unconstrained()},
		{"unnormalized", joint, rows, unnormalized, Unconstrained()},
		{"negative target", joint, rows, cols, ConstrainRelEntropy(-1)},
		{"single residue", []float64{1}, []float64{1}, []float64{1}, Unconstrained()},
	}
	for _, test := range tests {
		r, err := OptimizeTargetFreqs(test.base, test.rows, test.cols, test.target)
		if r != nil {
			t.Errorf("%s: no result expected", test.name)
		}
		var nce *NonConvergenceError
		if !errors.As(err, &nce) || nce.Reason != ReasonInvalidInput {
			t.Errorf("%s: invalid input error expected, got %v", test.name, err)
		}
	}
}

func TestScoresFromFreqs(t *testing.T) {
	for _, name := range matrix.Names() {
		f, err := matrix.Lookup(name)
		require.NoError(t, err)
		base, err := matrix.Base(name)
		require.NoError(t, err)

		bg := f.Background()
		block, err := ScoresFromFreqs(f.Joint(), bg, bg, f.Lambda(), 1)
		require.NoError(t, err)
		if *block != base.Block() {
			t.Errorf("%s: the joint probabilities do not give back the matrix", name)
		}
	}

	_, err := ScoresFromFreqs(make([]float64, 10), nil, nil, 0.3, 1)
	assert.Error(t, err)
}
