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

package cmd

import (
	"math"

	"github.com/shenwei356/compomat/compomat/matrix"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// scoreChanges is the score differences of two matrices over the true
// amino acids, as a plotter.GridXYZ. Row 0 is drawn on the top.
type scoreChanges [matrix.TrueAA][matrix.TrueAA]float64

func newScoreChanges(base, adjusted *matrix.ScoreMatrix) *scoreChanges {
	var d scoreChanges
	for i := 0; i < matrix.TrueAA; i++ {
		for j := 0; j < matrix.TrueAA; j++ {
			d[i][j] = float64(adjusted.At(i, j) - base.At(i, j))
		}
	}
	return &d
}

func (d *scoreChanges) Dims() (c, r int)   { return matrix.TrueAA, matrix.TrueAA }
func (d *scoreChanges) Z(c, r int) float64 { return d[r][c] }
func (d *scoreChanges) X(c int) float64    { return float64(c) }
func (d *scoreChanges) Y(r int) float64    { return float64(matrix.TrueAA - 1 - r) }

// maxAbs returns the largest absolute change, at least 1.
func (d *scoreChanges) maxAbs() float64 {
	v := 1.0
	for i := range d {
		for _, x := range d[i] {
			v = math.Max(v, math.Abs(x))
		}
	}
	return v
}

// plotScoreChanges draws the heat map of adjusted minus base scores,
// the format is decided by the file extension: png, svg, pdf, etc.
func plotScoreChanges(base, adjusted *matrix.ScoreMatrix, title string, file string) error {
	d := newScoreChanges(base, adjusted)

	h := plotter.NewHeatMap(d, moreland.SmoothBlueRed().Palette(255))
	v := d.maxAbs()
	h.Min, h.Max = -v, v

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "subject residue"
	p.Y.Label.Text = "query residue"
	p.Add(h)

	labelsX := make([]string, matrix.TrueAA)
	labelsY := make([]string, matrix.TrueAA)
	for i := 0; i < matrix.TrueAA; i++ {
		labelsX[i] = string(matrix.Alphabet[i])
		labelsY[i] = string(matrix.Alphabet[matrix.TrueAA-1-i])
	}
	p.NominalX(labelsX...)
	p.NominalY(labelsY...)

	return p.Save(6*vg.Inch, 6*vg.Inch, file)
}
