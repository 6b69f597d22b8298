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
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrUnsupportedMatrix means the matrix name is not in the catalog.
var ErrUnsupportedMatrix = errors.New("matrix: unsupported score matrix")

// Frequencies is the immutable probability data of a catalog matrix.
// All accessors return copies.
type Frequencies struct {
	name string

	joint      [TrueAA * TrueAA]float64 // row-major, sums to 1
	rowSums    [TrueAA]float64
	colSums    [TrueAA]float64
	background [TrueAA]float64

	lambda     float64 // ungapped lambda of the integer matrix
	relEntropy float64 // in nats
}

// Name returns the matrix name.
func (f *Frequencies) Name() string { return f.name }

// Lambda returns the ungapped lambda of the matrix under its background.
func (f *Frequencies) Lambda() float64 { return f.lambda }

// RelEntropy returns the relative entropy of the joint probabilities
// to the product of their marginals.
func (f *Frequencies) RelEntropy() float64 { return f.relEntropy }

// Joint returns the joint probabilities in row-major order.
func (f *Frequencies) Joint() []float64 {
	return append([]float64(nil), f.joint[:]...)
}

// RowSums returns the row marginals of the joint probabilities.
func (f *Frequencies) RowSums() []float64 {
	return append([]float64(nil), f.rowSums[:]...)
}

// ColSums returns the column marginals of the joint probabilities.
func (f *Frequencies) ColSums() []float64 {
	return append([]float64(nil), f.colSums[:]...)
}

// Background returns the normalized background frequencies.
func (f *Frequencies) Background() []float64 {
	return append([]float64(nil), f.background[:]...)
}

type entry struct {
	name       string
	scores     *[TrueAA][TrueAA]int
	background *[TrueAA]float64

	once  sync.Once
	freqs *Frequencies
	base  *ScoreMatrix
	err   error
}

var catalog = map[string]*entry{
	"BLOSUM62": {name: "BLOSUM62", scores: &blosum62, background: &robinsonFreqs},
	"BLOSUM50": {name: "BLOSUM50", scores: &blosum50, background: &robinsonFreqs},
	"PAM250":   {name: "PAM250", scores: &pam250, background: &robinsonFreqs},
}

func (e *entry) load() {
	bg := normalize(e.background[:])

	lambda, err := UngappedLambda(e.scores, bg, bg)
	if err != nil {
		e.err = errors.Wrapf(err, "%s", e.name)
		return
	}

	f := &Frequencies{name: e.name, lambda: lambda}
	copy(f.background[:], bg)

	var i, j, k int
	var v, sum float64
	for i = 0; i < TrueAA; i++ {
		for j = 0; j < TrueAA; j++ {
			v = bg[i] * bg[j] * math.Exp(lambda*float64(e.scores[i][j]))
			f.joint[i*TrueAA+j] = v
			sum += v
		}
	}
	for k = range f.joint {
		f.joint[k] /= sum
	}

	for i = 0; i < TrueAA; i++ {
		for j = 0; j < TrueAA; j++ {
			v = f.joint[i*TrueAA+j]
			f.rowSums[i] += v
			f.colSums[j] += v
		}
	}

	for i = 0; i < TrueAA; i++ {
		for j = 0; j < TrueAA; j++ {
			v = f.joint[i*TrueAA+j]
			f.relEntropy += v * math.Log(v/(f.rowSums[i]*f.colSums[j]))
		}
	}

	base := NewScoreMatrix(e.name, e.scores)
	base.FillAmbiguous(bg, bg)

	e.freqs = f
	e.base = base
}

func get(name string) (*entry, error) {
	e, ok := catalog[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedMatrix, "%q", name)
	}
	e.once.Do(e.load)
	if e.err != nil {
		return nil, e.err
	}
	return e, nil
}

// Lookup returns the frequency data of a matrix.
// Names are case-sensitive.
func Lookup(name string) (*Frequencies, error) {
	e, err := get(name)
	if err != nil {
		return nil, err
	}
	return e.freqs, nil
}

// JointProbabilities returns the joint probabilities of a matrix
// as a TrueAA x TrueAA table, with its row and column sums.
func JointProbabilities(name string) (joint [][]float64, rowSums, colSums []float64, err error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, nil, nil, err
	}
	joint = make([][]float64, TrueAA)
	for i := range joint {
		joint[i] = append([]float64(nil), f.joint[i*TrueAA:(i+1)*TrueAA]...)
	}
	return joint, f.RowSums(), f.ColSums(), nil
}

// BackgroundFrequencies returns the normalized background frequencies
// of a matrix.
func BackgroundFrequencies(name string) ([]float64, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return f.Background(), nil
}

// Base returns a copy of the integer matrix over the extended alphabet.
func Base(name string) (*ScoreMatrix, error) {
	e, err := get(name)
	if err != nil {
		return nil, err
	}
	return e.base.Clone(), nil
}

// Supported tells whether a matrix is in the catalog.
func Supported(name string) bool {
	_, ok := catalog[name]
	return ok
}

// Names returns the names of all supported matrices, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
