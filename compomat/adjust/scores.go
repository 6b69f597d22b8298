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

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/matrix"
)

// ScoresFromFreqs converts target frequencies of the true amino acids
// (row-major) to integer scores,
//
//	s_ij = round(scale * ln(x_ij / (q1_i * q2_j)) / lambda),
//
// where q1 and q2 are the row and column compositions and lambda is the
// ungapped lambda of the base matrix.
func ScoresFromFreqs(freqs, q1, q2 []float64, lambda, scale float64) (*[matrix.TrueAA][matrix.TrueAA]int, error) {
	n := matrix.TrueAA
	if len(freqs) != n*n || len(q1) != n || len(q2) != n {
		return nil, errors.Errorf("adjust: frequencies of size %d, %d, %d, expected %d, %d, %d",
			len(freqs), len(q1), len(q2), n*n, n, n)
	}
	if !(lambda > 0) || !(scale > 0) {
		return nil, errors.Errorf("adjust: lambda and scale should be positive: %v, %v", lambda, scale)
	}

	var block [matrix.TrueAA][matrix.TrueAA]int
	var v float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v = scale * math.Log(freqs[i*n+j]/(q1[i]*q2[j])) / lambda
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Errorf("adjust: invalid score at (%d, %d): %v", i, j, v)
			}
			block[i][j] = int(math.Round(v))
		}
	}
	return &block, nil
}
