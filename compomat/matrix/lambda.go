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

package matrix

import (
	"math"

	"github.com/pkg/errors"
)

// ErrNoLambda means the ungapped lambda does not exist for the given
// scores and residue frequencies: the expected score is not negative or no
// positive score is reachable.
var ErrNoLambda = errors.New("matrix: no positive root for ungapped lambda")

const (
	lambdaTolerance = 1e-12
	lambdaMaxIter   = 200
)

// UngappedLambda solves the Karlin-Altschul ungapped lambda, the unique
// positive root of
//
//	sum_ij p1[i] * p2[j] * exp(lambda * s[i][j]) = 1,
//
// for the true-amino-acid block of a score matrix.
// The root is bracketed and then found by bisection.
func UngappedLambda(s *[TrueAA][TrueAA]int, p1, p2 []float64) (float64, error) {
	if len(p1) != TrueAA || len(p2) != TrueAA {
		return 0, errors.Errorf("matrix: frequency vectors of length %d and %d, %d expected",
			len(p1), len(p2), TrueAA)
	}

	var expected float64
	var maxScore = math.MinInt
	var i, j int
	var pp float64
	for i = 0; i < TrueAA; i++ {
		for j = 0; j < TrueAA; j++ {
			pp = p1[i] * p2[j]
			if pp <= 0 {
				continue
			}
			expected += pp * float64(s[i][j])
			if s[i][j] > maxScore {
				maxScore = s[i][j]
			}
		}
	}
	if expected >= 0 {
		return 0, errors.Wrapf(ErrNoLambda, "expected score %f", expected)
	}
	if maxScore <= 0 {
		return 0, errors.Wrapf(ErrNoLambda, "maximum score %d", maxScore)
	}

	f := func(lambda float64) float64 {
		var sum float64
		for i := 0; i < TrueAA; i++ {
			for j := 0; j < TrueAA; j++ {
				sum += p1[i] * p2[j] * math.Exp(lambda*float64(s[i][j]))
			}
		}
		return sum - 1
	}

	// f(0) = 0, f'(0) < 0, and f grows without bound,
	// so f(lambda) < 0 on (0, root) and > 0 after it.
	lo, hi := 0.0, 0.5
	for k := 0; f(hi) <= 0; k++ {
		if k == 64 {
			return 0, errors.Wrap(ErrNoLambda, "failed to bracket the root")
		}
		lo = hi
		hi *= 2
	}

	var mid float64
	for k := 0; k < lambdaMaxIter && hi-lo > lambdaTolerance*hi; k++ {
		mid = (lo + hi) / 2
		if f(mid) < 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}

// RelativeEntropy returns the relative entropy (in nats) of the target
// frequencies implied by a score matrix under the given residue
// frequencies: sum_ij t_ij * lambda * s_ij, with
// t_ij = p1[i] * p2[j] * exp(lambda * s_ij).
func RelativeEntropy(s *[TrueAA][TrueAA]int, p1, p2 []float64, lambda float64) float64 {
	var h, t, ls float64
	for i := 0; i < TrueAA; i++ {
		for j := 0; j < TrueAA; j++ {
			ls = lambda * float64(s[i][j])
			t = p1[i] * p2[j] * math.Exp(ls)
			h += t * ls
		}
	}
	return h
}

// normalize returns a copy of p scaled to sum 1.
func normalize(p []float64) []float64 {
	var sum float64
	for _, v := range p {
		sum += v
	}
	q := make([]float64, len(p))
	if sum <= 0 {
		return q
	}
	for i, v := range p {
		q[i] = v / sum
	}
	return q
}
