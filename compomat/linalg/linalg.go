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

// Package linalg provides the dense linear algebra needed by the
// composition adjustment: matrix allocation, Cholesky factorization and
// solving, and a few vector primitives, on top of gonum.
package linalg

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrBadShape means a non-positive or mismatched dimension.
	ErrBadShape = errors.New("linalg: bad matrix shape")
	// ErrNotPositiveDefinite means the Cholesky factorization met a
	// non-positive pivot.
	ErrNotPositiveDefinite = errors.New("linalg: matrix is not positive definite")
	// ErrIllConditioned means the factorized matrix is too close to
	// singular to give a trustworthy solution.
	ErrIllConditioned = errors.New("linalg: matrix is ill-conditioned")
)

// NewDense returns a zero rows x cols matrix.
func NewDense(rows, cols int) (*mat.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrBadShape, "%d x %d", rows, cols)
	}
	return mat.NewDense(rows, cols, nil), nil
}

// NewSymDense returns a zero n x n symmetric matrix.
func NewSymDense(n int) (*mat.SymDense, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrBadShape, "%d x %d", n, n)
	}
	return mat.NewSymDense(n, nil), nil
}

// NewLowerTriangular returns a zero n x n lower triangular matrix.
func NewLowerTriangular(n int) (*mat.TriDense, error) {
	if n <= 0 {
		return nil, errors.Wrapf(ErrBadShape, "%d x %d", n, n)
	}
	return mat.NewTriDense(n, mat.Lower, nil), nil
}

// Factor is the Cholesky factorization of a symmetric positive definite
// matrix, A = L * L^T.
type Factor struct {
	n    int
	chol mat.Cholesky
}

// Factorize computes the Cholesky factorization of a.
func Factorize(a *mat.SymDense) (*Factor, error) {
	n := a.SymmetricDim()
	if n <= 0 {
		return nil, errors.Wrap(ErrBadShape, "empty matrix")
	}
	f := &Factor{n: n}
	if ok := f.chol.Factorize(a); !ok {
		return nil, ErrNotPositiveDefinite
	}
	return f, nil
}

// Size returns the dimension of the factorized matrix.
func (f *Factor) Size() int { return f.n }

// L returns a copy of the lower triangular factor.
func (f *Factor) L() *mat.TriDense {
	var t mat.TriDense
	f.chol.LTo(&t)
	return &t
}

// SolveInPlace solves A * y = x by forward and back substitution
// and stores y in x.
func (f *Factor) SolveInPlace(x []float64) error {
	if len(x) != f.n {
		return errors.Wrapf(ErrBadShape, "vector of length %d for a %d x %d system", len(x), f.n, f.n)
	}
	v := mat.NewVecDense(f.n, x)
	if err := f.chol.SolveVecTo(v, v); err != nil {
		var c mat.Condition
		if errors.As(err, &c) {
			return errors.Wrapf(ErrIllConditioned, "condition number %g", float64(c))
		}
		return err
	}
	return nil
}

// Norm returns the Euclidean norm of x.
func Norm(x []float64) float64 {
	return floats.Norm(x, 2)
}

// AddScaled performs y += alpha * x. The lengths must be equal.
func AddScaled(y []float64, alpha float64, x []float64) {
	floats.AddScaled(y, alpha, x)
}

// MaxFeasibleStep returns the largest t in [0, maxBound] for which
// x + t*dir stays non-negative, given x >= 0. It returns maxBound when no
// component of dir is negative, and 0 when a zero component of x has a
// negative direction.
func MaxFeasibleStep(x, dir []float64, maxBound float64) float64 {
	t := maxBound
	var s float64
	for i, d := range dir {
		if d < 0 {
			s = -x[i] / d
			if s < t {
				t = s
			}
		}
	}
	return t
}
