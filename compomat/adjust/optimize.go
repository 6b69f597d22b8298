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
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/linalg"
	"gonum.org/v1/gonum/mat"
)

const (
	tolerance      = 1e-8 // on the norm of all residuals
	iterationLimit = 100
	stepFraction   = 0.95 // of the step to the boundary x >= 0
	sumTolerance   = 1e-6 // of input probability vectors
)

// RelEntropyTarget tells whether and to what value the relative entropy
// of the optimized frequencies is constrained.
type RelEntropyTarget struct {
	Constrained bool
	Value       float64 // in nats
}

// Unconstrained only constrains the marginals.
func Unconstrained() RelEntropyTarget { return RelEntropyTarget{} }

// ConstrainRelEntropy constrains the relative entropy to h.
func ConstrainRelEntropy(h float64) RelEntropyTarget {
	return RelEntropyTarget{Constrained: true, Value: h}
}

// TargetFreqs is the result of a converged optimization.
type TargetFreqs struct {
	N          int       // number of residue types
	Freqs      []float64 // N x N, row-major
	Iterations int       // Newton steps taken
	Residual   float64   // norm of the final residuals
}

// At returns the target frequency of the residue pair (i, j).
func (t *TargetFreqs) At(i, j int) float64 {
	return t.Freqs[i*t.N+j]
}

// RowSums returns the row marginals.
func (t *TargetFreqs) RowSums() []float64 {
	s := make([]float64, t.N)
	for i := 0; i < t.N; i++ {
		for j := 0; j < t.N; j++ {
			s[i] += t.Freqs[i*t.N+j]
		}
	}
	return s
}

// ColSums returns the column marginals.
func (t *TargetFreqs) ColSums() []float64 {
	s := make([]float64, t.N)
	for i := 0; i < t.N; i++ {
		for j := 0; j < t.N; j++ {
			s[j] += t.Freqs[i*t.N+j]
		}
	}
	return s
}

// RelEntropy returns the relative entropy of the frequencies
// to the product of the given marginals.
func (t *TargetFreqs) RelEntropy(rowSums, colSums []float64) float64 {
	var h, x float64
	for i := 0; i < t.N; i++ {
		for j := 0; j < t.N; j++ {
			x = t.Freqs[i*t.N+j]
			h += x * math.Log(x/(rowSums[i]*colSums[j]))
		}
	}
	return h
}

// NonConvergenceReason tells why an optimization failed.
type NonConvergenceReason uint8

const (
	ReasonInvalidInput NonConvergenceReason = iota
	ReasonIterationLimit
	ReasonNotPositiveDefinite
	ReasonIllConditioned
	ReasonNonFinite
	ReasonInfeasibleMultiplier
)

var reasonNames = [...]string{
	"invalid input",
	"iteration limit reached",
	"Newton system not positive definite",
	"Newton system ill-conditioned",
	"non-finite value",
	"infeasible relative entropy multiplier",
}

func (r NonConvergenceReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return fmt.Sprintf("NonConvergenceReason(%d)", uint8(r))
}

// NonConvergenceError is returned when the optimization does not converge.
// No frequencies are returned along with it.
type NonConvergenceError struct {
	Reason     NonConvergenceReason
	Iterations int
	Residual   float64
	Err        error // the underlying error, if any
}

func (e *NonConvergenceError) Error() string {
	s := fmt.Sprintf("adjust: optimization not converged after %d iteration(s), residual %g: %s",
		e.Iterations, e.Residual, e.Reason)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *NonConvergenceError) Unwrap() error { return e.Err }

// OptimizeTargetFreqs finds the N x N target frequencies x closest to base
// in relative entropy, minimizing sum_k x_k ln(x_k / base_k), subject to
// row sums equal to rowSums, column sums equal to colSums and, when
// target is constrained,
//
//	sum_ij x_ij ln(x_ij / (rowSums_i colSums_j)) = target.Value.
//
// It runs a primal-dual Newton iteration from x = base. Each Newton system
// is reduced to the multipliers and solved by Cholesky factorization.
// The last column constraint follows from the others and is dropped to
// keep the system positive definite.
//
// On failure a *NonConvergenceError and no frequencies are returned.
func OptimizeTargetFreqs(base, rowSums, colSums []float64, target RelEntropyTarget) (*TargetFreqs, error) {
	if err := checkInput(base, rowSums, colSums, target); err != nil {
		return nil, &NonConvergenceError{Reason: ReasonInvalidInput, Err: err}
	}

	n := len(rowSums)
	nn := n * n
	m := 2*n - 1 // marginal constraints
	dim := m
	if target.Constrained {
		dim++
	}

	x := append([]float64(nil), base...)
	z := make([]float64, m) // multipliers of the marginal constraints
	var eta float64         // multiplier of the relative entropy constraint

	var p, g []float64
	if target.Constrained {
		p = make([]float64, nn)
		g = make([]float64, nn)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				p[i*n+j] = rowSums[i] * colSums[j]
			}
		}
	}

	rx := make([]float64, nn)
	rz := make([]float64, dim)
	w := make([]float64, nn)
	dx := make([]float64, nn)
	dz := make([]float64, dim)

	fail := func(reason NonConvergenceReason, iter int, norm float64, err error) (*TargetFreqs, error) {
		return nil, &NonConvergenceError{Reason: reason, Iterations: iter, Residual: norm, Err: err}
	}

	var i, j, k, iter int
	var norm, v, wg, alpha float64
	var M *mat.SymDense
	var f *linalg.Factor
	var err error
	for iter = 0; ; iter++ {
		// ------------------------------------------------------------
		// residuals

		for i = 0; i < n; i++ {
			for j = 0; j < n; j++ {
				k = i*n + j
				v = math.Log(x[k]/base[k]) + 1 - z[i]
				if j < n-1 {
					v -= z[n+j]
				}
				if target.Constrained {
					g[k] = math.Log(x[k]/p[k]) + 1
					v += eta * g[k]
				}
				rx[k] = v
			}
		}

		for i = 0; i < dim; i++ {
			rz[i] = 0
		}
		for i = 0; i < n; i++ {
			for j = 0; j < n; j++ {
				k = i*n + j
				rz[i] += x[k]
				if j < n-1 {
					rz[n+j] += x[k]
				}
				if target.Constrained {
					rz[m] += x[k] * (g[k] - 1)
				}
			}
		}
		for i = 0; i < n; i++ {
			rz[i] -= rowSums[i]
		}
		for j = 0; j < n-1; j++ {
			rz[n+j] -= colSums[j]
		}
		if target.Constrained {
			rz[m] -= target.Value
		}

		norm = math.Hypot(linalg.Norm(rx), linalg.Norm(rz))
		if math.IsNaN(norm) || math.IsInf(norm, 0) {
			return fail(ReasonNonFinite, iter, norm, nil)
		}
		if norm < tolerance {
			break
		}
		if iter >= iterationLimit {
			return fail(ReasonIterationLimit, iter, norm, nil)
		}

		// ------------------------------------------------------------
		// Newton system: (A W A^T) dz = A W rx - rz, W = x / (1 + eta)

		for k = 0; k < nn; k++ {
			w[k] = x[k] / (1 + eta)
		}

		M, err = linalg.NewSymDense(dim)
		if err != nil {
			return nil, err
		}
		for i = 0; i < dim; i++ {
			dz[i] = -rz[i]
		}
		for i = 0; i < n; i++ {
			for j = 0; j < n; j++ {
				k = i*n + j
				addSym(M, i, i, w[k])
				dz[i] += w[k] * rx[k]
				if j < n-1 {
					addSym(M, i, n+j, w[k])
					addSym(M, n+j, n+j, w[k])
					dz[n+j] += w[k] * rx[k]
				}
				if target.Constrained {
					wg = w[k] * g[k]
					addSym(M, i, m, wg)
					if j < n-1 {
						addSym(M, n+j, m, wg)
					}
					addSym(M, m, m, wg*g[k])
					dz[m] += wg * rx[k]
				}
			}
		}

		f, err = linalg.Factorize(M)
		if err != nil {
			return fail(ReasonNotPositiveDefinite, iter, norm, err)
		}
		if err = f.SolveInPlace(dz); err != nil {
			if errors.Is(err, linalg.ErrIllConditioned) {
				return fail(ReasonIllConditioned, iter, norm, err)
			}
			return nil, err
		}

		// ------------------------------------------------------------
		// step: dx = W (A^T dz - rx)

		for i = 0; i < n; i++ {
			for j = 0; j < n; j++ {
				k = i*n + j
				v = dz[i]
				if j < n-1 {
					v += dz[n+j]
				}
				if target.Constrained {
					v += g[k] * dz[m]
				}
				dx[k] = w[k] * (v - rx[k])
			}
		}
		if !finite(dx) || !finite(dz) {
			return fail(ReasonNonFinite, iter, norm, nil)
		}

		alpha = stepFraction * linalg.MaxFeasibleStep(x, dx, 1/stepFraction)
		linalg.AddScaled(x, alpha, dx)
		linalg.AddScaled(z, alpha, dz[:m])
		if target.Constrained {
			eta -= alpha * dz[m]
			if eta <= -1 {
				return fail(ReasonInfeasibleMultiplier, iter+1, norm, nil)
			}
		}
	}

	return &TargetFreqs{N: n, Freqs: x, Iterations: iter, Residual: norm}, nil
}

func addSym(M *mat.SymDense, i, j int, v float64) {
	M.SetSym(i, j, M.At(i, j)+v)
}

func finite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func checkInput(base, rowSums, colSums []float64, target RelEntropyTarget) error {
	n := len(rowSums)
	if n < 2 {
		return errors.Errorf("at least 2 residue types needed, %d given", n)
	}
	if len(colSums) != n {
		return errors.Errorf("row sums of length %d and column sums of length %d", n, len(colSums))
	}
	if len(base) != n*n {
		return errors.Errorf("base frequencies of length %d, %d expected", len(base), n*n)
	}
	for _, s := range []struct {
		name string
		v    []float64
	}{{"base frequencies", base}, {"row sums", rowSums}, {"column sums", colSums}} {
		var sum float64
		for _, v := range s.v {
			if !(v > 0) || math.IsInf(v, 0) {
				return errors.Errorf("%s should be positive and finite: %v", s.name, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > sumTolerance {
			return errors.Errorf("%s sum to %f", s.name, sum)
		}
	}
	if target.Constrained && (!(target.Value > 0) || math.IsInf(target.Value, 0)) {
		return errors.Errorf("invalid relative entropy target: %v", target.Value)
	}
	return nil
}
