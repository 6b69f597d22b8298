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

// Package adjust adjusts amino acid score matrices to the residue
// compositions of the two sequences being compared.
package adjust

import (
	"math"

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/matrix"
)

// Options contains the options of an Engine.
type Options struct {
	Policy CompoAdjustMode
	Rule   RelEntropyRule // used by CompoConditional

	// target relative entropy in nats, non-positive for the
	// relative entropy of the base matrix
	RelEntropy float64

	Pseudocounts float64 // weight of the background in compositions
	Scale        float64 // scale of the optimized scores
}

// DefaultOptions is the default Options.
var DefaultOptions = Options{
	Policy:       CompoConditional,
	Rule:         UserSpecifiedRelEntropy,
	RelEntropy:   0,
	Pseudocounts: 20,
	Scale:        1,
}

// Outcome is what happened to the matrix of a pair.
type Outcome uint8

const (
	// Unadjusted means the base matrix is used as chosen.
	Unadjusted Outcome = iota
	// Rescaled means the base matrix is scaled.
	Rescaled
	// Converged means a new matrix is optimized.
	Converged
	// FellBack means the adjustment failed and the base matrix is used.
	FellBack
)

var outcomeNames = [...]string{"unadjusted", "rescaled", "converged", "fell-back"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Adjustment is the matrix to use for a pair of sequences.
type Adjustment struct {
	Mode    Mode
	Outcome Outcome

	Matrix *matrix.ScoreMatrix // the base matrix unless Adjusted()

	LambdaRatio float64 // of Rescaled
	RelEntropy  float64 // target of Converged, 0 when unconstrained
	Iterations  int     // Newton steps of Converged or FellBack

	Err error // why the adjustment FellBack
}

// Adjusted tells whether Matrix is a new matrix.
func (a *Adjustment) Adjusted() bool {
	return a != nil && (a.Outcome == Rescaled || a.Outcome == Converged)
}

// Engine adjusts a base matrix to pairs of compositions.
// It is immutable and safe for concurrent use.
type Engine struct {
	options Options
	freqs   *matrix.Frequencies
	base    *matrix.ScoreMatrix
	block   [matrix.TrueAA][matrix.TrueAA]int
}

// NewEngine creates an engine for a catalog matrix.
func NewEngine(name string, options *Options) (*Engine, error) {
	if options == nil {
		options = &DefaultOptions
	}
	if options.Pseudocounts < 0 {
		return nil, errors.Errorf("adjust: negative pseudocounts: %f", options.Pseudocounts)
	}
	if !(options.Scale > 0) {
		return nil, errors.Errorf("adjust: scale should be positive: %f", options.Scale)
	}

	freqs, err := matrix.Lookup(name)
	if err != nil {
		return nil, errors.Wrap(err, "adjust")
	}
	base, err := matrix.Base(name)
	if err != nil {
		return nil, errors.Wrap(err, "adjust")
	}

	return &Engine{
		options: *options,
		freqs:   freqs,
		base:    base,
		block:   base.Block(),
	}, nil
}

// Options returns the options of the engine.
func (e *Engine) Options() Options { return e.options }

// Frequencies returns the frequency data of the base matrix.
func (e *Engine) Frequencies() *matrix.Frequencies { return e.freqs }

// Matrix returns a copy of the base matrix.
func (e *Engine) Matrix() *matrix.ScoreMatrix { return e.base.Clone() }

// Adjust chooses and computes the matrix for a pair of sequences,
// with the query as rows and the subject as columns.
//
// A failed optimization or rescaling is not an error: the returned
// adjustment has the outcome FellBack and the base matrix.
func (e *Engine) Adjust(query, subject *Composition) (*Adjustment, error) {
	in := ModeInput{
		QueryLen:   query.Length(),
		SubjectLen: subject.Length(),
		Matrix:     e.freqs.Name(),
		Policy:     e.options.Policy,
		Rule:       e.options.Rule,
		UserTarget: e.options.RelEntropy,
	}
	// missing compositions are left nil
	in.Query, _ = query.Frequencies()
	in.Subject, _ = subject.Frequencies()

	mode := ChooseMode(in)

	switch mode := mode.(type) {
	case NoAdjustment:
		return e.unadjusted(mode, Unadjusted, nil), nil
	case ScaleOldMatrix:
		return e.rescale(mode, query, subject)
	case OptimizeMatrix:
		return e.optimize(mode, mode.Rule, mode.Target, query, subject)
	case ForcedOptimize:
		return e.optimize(mode, UserSpecifiedRelEntropy, mode.Target, query, subject)
	}
	return nil, errors.Errorf("adjust: unknown mode: %s", mode)
}

func (e *Engine) unadjusted(mode Mode, outcome Outcome, err error) *Adjustment {
	return &Adjustment{
		Mode:        mode,
		Outcome:     outcome,
		Matrix:      e.base.Clone(),
		LambdaRatio: 1,
		Err:         err,
	}
}

func (e *Engine) compositions(query, subject *Composition) ([]float64, []float64, error) {
	bg := e.freqs.Background()
	q1, err := query.WithPseudocounts(bg, e.options.Pseudocounts)
	if err != nil {
		return nil, nil, err
	}
	q2, err := subject.WithPseudocounts(bg, e.options.Pseudocounts)
	if err != nil {
		return nil, nil, err
	}
	return q1, q2, nil
}

// rescale scales the base matrix by min(1, lambda' / lambda), where
// lambda' is the ungapped lambda of the base scores under the pair's
// compositions.
func (e *Engine) rescale(mode Mode, query, subject *Composition) (*Adjustment, error) {
	q1, q2, err := e.compositions(query, subject)
	if err != nil {
		return nil, err
	}

	lambda, err := matrix.UngappedLambda(&e.block, q1, q2)
	if err != nil {
		return e.unadjusted(mode, FellBack, err), nil
	}

	ratio := math.Min(1, lambda/e.freqs.Lambda())

	m := e.base.ScaleBy(ratio)
	// the smaller scores are meant to be read in the units of the base matrix
	m.Scale = e.base.Scale
	return &Adjustment{
		Mode:        mode,
		Outcome:     Rescaled,
		Matrix:      m,
		LambdaRatio: ratio,
	}, nil
}

// target returns the relative entropy constraint of a rule.
func (e *Engine) target(rule RelEntropyRule, userTarget float64, q1, q2 []float64) (RelEntropyTarget, error) {
	switch rule {
	case UnconstrainedRelEntropy:
		return Unconstrained(), nil
	case RelEntropyOldMatrixOldContext:
		return ConstrainRelEntropy(e.freqs.RelEntropy()), nil
	case RelEntropyOldMatrixNewContext:
		lambda, err := matrix.UngappedLambda(&e.block, q1, q2)
		if err != nil {
			return RelEntropyTarget{}, err
		}
		return ConstrainRelEntropy(matrix.RelativeEntropy(&e.block, q1, q2, lambda)), nil
	case UserSpecifiedRelEntropy:
		if userTarget > 0 {
			return ConstrainRelEntropy(userTarget), nil
		}
		return ConstrainRelEntropy(e.freqs.RelEntropy()), nil
	}
	return RelEntropyTarget{}, errors.Errorf("adjust: unknown relative entropy rule: %s", rule)
}

func (e *Engine) optimize(mode Mode, rule RelEntropyRule, userTarget float64,
	query, subject *Composition) (*Adjustment, error) {

	q1, q2, err := e.compositions(query, subject)
	if err != nil {
		return nil, err
	}

	target, err := e.target(rule, userTarget, q1, q2)
	if err != nil {
		if errors.Is(err, matrix.ErrNoLambda) {
			return e.unadjusted(mode, FellBack, err), nil
		}
		return nil, err
	}

	result, err := OptimizeTargetFreqs(e.freqs.Joint(), q1, q2, target)
	if err != nil {
		var nce *NonConvergenceError
		if errors.As(err, &nce) {
			a := e.unadjusted(mode, FellBack, err)
			a.Iterations = nce.Iterations
			return a, nil
		}
		return nil, err
	}

	block, err := ScoresFromFreqs(result.Freqs, q1, q2, e.freqs.Lambda(), e.options.Scale)
	if err != nil {
		return nil, err
	}
	m := matrix.NewScoreMatrix(e.freqs.Name(), block)
	m.Scale = e.options.Scale
	m.FillAmbiguous(q1, q2)

	a := &Adjustment{
		Mode:        mode,
		Outcome:     Converged,
		Matrix:      m,
		LambdaRatio: 1,
		Iterations:  result.Iterations,
	}
	if target.Constrained {
		a.RelEntropy = target.Value
	}
	return a, nil
}
