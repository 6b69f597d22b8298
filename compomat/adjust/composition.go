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
	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/matrix"
)

// ErrEmptyComposition means a sequence has no true amino acids,
// so no frequency vector can be formed.
var ErrEmptyComposition = errors.New("adjust: no true amino acids in the sequence")

// Composition holds residue counts of a sequence over the extended alphabet.
type Composition struct {
	counts  [matrix.Size]int
	unknown int // unrecognized bytes
	length  int
}

// NewComposition counts the residues of a sequence.
func NewComposition(s []byte) *Composition {
	c := &Composition{length: len(s)}
	var i int
	for _, b := range s {
		i = matrix.Index(b)
		if i < 0 {
			c.unknown++
			continue
		}
		c.counts[i]++
	}
	return c
}

// Count returns the count of a residue.
func (c *Composition) Count(r byte) int {
	i := matrix.Index(r)
	if i < 0 {
		return 0
	}
	return c.counts[i]
}

// Length returns the number of residues read.
func (c *Composition) Length() int { return c.length }

// Unknown returns the number of unrecognized bytes.
func (c *Composition) Unknown() int { return c.unknown }

// TrueCount returns the number of true amino acids.
func (c *Composition) TrueCount() int {
	var n int
	for i := 0; i < matrix.TrueAA; i++ {
		n += c.counts[i]
	}
	return n
}

// Frequencies returns the frequencies of the true amino acids.
func (c *Composition) Frequencies() ([]float64, error) {
	n := c.TrueCount()
	if n == 0 {
		return nil, ErrEmptyComposition
	}
	p := make([]float64, matrix.TrueAA)
	for i := range p {
		p[i] = float64(c.counts[i]) / float64(n)
	}
	return p, nil
}

// WithPseudocounts mixes the observed frequencies with background
// frequencies, weighting the background as pseudocounts observations:
//
//	p_i = (n * f_i + mu * b_i) / (n + mu)
func (c *Composition) WithPseudocounts(background []float64, pseudocounts float64) ([]float64, error) {
	if len(background) != matrix.TrueAA {
		return nil, errors.Errorf("adjust: background of length %d, %d expected", len(background), matrix.TrueAA)
	}
	if pseudocounts < 0 {
		return nil, errors.Errorf("adjust: negative pseudocounts: %f", pseudocounts)
	}
	f, err := c.Frequencies()
	if err != nil {
		return nil, err
	}

	var sum float64
	for _, v := range background {
		sum += v
	}
	n := float64(c.TrueCount())
	w := 1 / (n + pseudocounts)
	for i := range f {
		f[i] = w * (n*f[i] + pseudocounts*background[i]/sum)
	}
	return f, nil
}
