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

package linalg

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestShapes(t *testing.T) {
	_, err := NewDense(0, 3)
	assert.True(t, errors.Is(err, ErrBadShape))
	_, err = NewSymDense(-1)
	assert.True(t, errors.Is(err, ErrBadShape))
	_, err = NewLowerTriangular(0)
	assert.True(t, errors.Is(err, ErrBadShape))

	d, err := NewDense(2, 3)
	require.NoError(t, err)
	r, c := d.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, 0.0, d.At(1, 2))

	l, err := NewLowerTriangular(4)
	require.NoError(t, err)
	n, kind := l.Triangle()
	assert.Equal(t, 4, n)
	assert.Equal(t, mat.Lower, kind)
}

func TestFactorizeAndSolve(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		4, 12, -16,
		12, 37, -43,
		-16, -43, 98,
	})

	f, err := Factorize(a)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Size())

	// the classic example: L = [2 0 0; 6 1 0; -8 5 3]
	expected := [][]float64{{2, 0, 0}, {6, 1, 0}, {-8, 5, 3}}
	L := f.L()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, expected[i][j], L.At(i, j), 1e-12)
		}
	}

	want := []float64{1, -2, 3}
	b := make([]float64, 3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			b[i] += a.At(i, j) * want[j]
		}
	}
	require.NoError(t, f.SolveInPlace(b))
	for i := range want {
		assert.InDelta(t, want[i], b[i], 1e-9)
	}

	err = f.SolveInPlace(make([]float64, 2))
	assert.True(t, errors.Is(err, ErrBadShape))
}

func TestNotPositiveDefinite(t *testing.T) {
	a := mat.NewSymDense(2, []float64{
		1, 2,
		2, 1,
	})
	_, err := Factorize(a)
	if !errors.Is(err, ErrNotPositiveDefinite) {
		t.Errorf("ErrNotPositiveDefinite expected, got %v", err)
	}
}

func TestIllConditioned(t *testing.T) {
	a := mat.NewSymDense(2, []float64{
		1, 0,
		0, 1e-20,
	})
	f, err := Factorize(a)
	require.NoError(t, err)

	err = f.SolveInPlace([]float64{1, 1})
	if !errors.Is(err, ErrIllConditioned) {
		t.Errorf("ErrIllConditioned expected, got %v", err)
	}
}

func TestVectorPrimitives(t *testing.T) {
	assert.InDelta(t, 5, Norm([]float64{3, 4}), 1e-15)
	assert.Equal(t, 0.0, Norm([]float64{0, 0, 0}))

	y := []float64{1, 1}
	AddScaled(y, 2, []float64{1, -1})
	assert.Equal(t, []float64{3, -1}, y)
}

func TestMaxFeasibleStep(t *testing.T) {
	tests := []struct {
		x, dir   []float64
		maxBound float64
		step     float64
	}{
		{[]float64{1, 2}, []float64{1, 1}, 10, 10},
		{[]float64{1, 2}, []float64{-1, 1}, 10, 1},
		{[]float64{1, 2}, []float64{-4, -1}, 10, 0.25},
		{[]float64{1, 2}, []float64{-1, -1}, 0.5, 0.5},
		{[]float64{0, 2}, []float64{-1, 0}, 1 / 0.95, 0},
		{[]float64{0, 2}, []float64{0, -1}, 10, 2},
		{[]float64{2, 0}, []float64{-1, -3}, 10, 0},
	}
	for i, test := range tests {
		s := MaxFeasibleStep(test.x, test.dir, test.maxBound)
		if math.Abs(s-test.step) > 1e-15 {
			t.Errorf("#%d: step %f expected, %f returned", i, test.step, s)
		}
	}
}
