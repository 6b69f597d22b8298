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
	"reflect"
	"testing"

	"github.com/shenwei356/compomat/compomat/matrix"
	"github.com/stretchr/testify/assert"
)

func oneHot(r byte) []float64 {
	p := make([]float64, matrix.TrueAA)
	p[matrix.Index(r)] = 1
	return p
}

func TestChooseMode(t *testing.T) {
	bg, _ := matrix.BackgroundFrequencies("BLOSUM62")
	a, w := oneHot('A'), oneHot('W')

	tests := []struct {
		name string
		in   ModeInput
		mode Mode
	}{
		{
			"disabled",
			ModeInput{QueryLen: 100, SubjectLen: 100, Query: bg, Subject: bg, Matrix: "BLOSUM62", Policy: NoCompoAdjust},
			NoAdjustment{Reason: "disabled"},
		},
		{
			"unsupported matrix",
			ModeInput{QueryLen: 100, SubjectLen: 100, Query: bg, Subject: bg, Matrix: "UNSUPPORTED_MATRIX_X", Policy: CompoConditional},
			NoAdjustment{Reason: "unsupported matrix"},
		},
		{
			"missing composition",
			ModeInput{QueryLen: 100, SubjectLen: 100, Query: nil, Subject: bg, Matrix: "BLOSUM62", Policy: CompoForceFull},
			NoAdjustment{Reason: "composition unavailable"},
		},
		{
			"short query",
			ModeInput{QueryLen: MinInformativeLength - 1, SubjectLen: 100, Query: bg, Subject: bg, Matrix: "BLOSUM62", Policy: CompoConditional},
			NoAdjustment{Reason: "short sequence"},
		},
		{
			"scale only",
			ModeInput{QueryLen: 100, SubjectLen: 100, Query: bg, Subject: bg, Matrix: "BLOSUM62", Policy: CompoScaleOnly},
			ScaleOldMatrix{},
		},
		{
			"forced",
			ModeInput{QueryLen: 100, SubjectLen: 100, Query: bg, Subject: bg, Matrix: "PAM250", Policy: CompoForceFull, UserTarget: 0.5},
			ForcedOptimize{Target: 0.5},
		},
		{
			"similar compositions",
			ModeInput{QueryLen: 100, SubjectLen: 1000, Query: bg, Subject: bg, Matrix: "BLOSUM62", Policy: CompoConditional},
			OptimizeMatrix{Rule: UserSpecifiedRelEntropy},
		},
		{
			"dissimilar compositions, balanced lengths",
			ModeInput{QueryLen: 100, SubjectLen: 200, Query: a, Subject: w, Matrix: "BLOSUM62", Policy: CompoConditional},
			OptimizeMatrix{Rule: UserSpecifiedRelEntropy},
		},
		{
			"dissimilar compositions, unbalanced lengths",
			ModeInput{QueryLen: 400, SubjectLen: 100, Query: a, Subject: w, Matrix: "BLOSUM62", Policy: CompoConditional},
			ScaleOldMatrix{},
		},
		{
			"explicit rule",
			ModeInput{QueryLen: 100, SubjectLen: 100, Query: bg, Subject: bg, Matrix: "BLOSUM50", Policy: CompoConditional,
				Rule: RelEntropyOldMatrixNewContext},
			OptimizeMatrix{Rule: RelEntropyOldMatrixNewContext},
		},
	}

	for _, test := range tests {
		mode := ChooseMode(test.in)
		if !reflect.DeepEqual(mode, test.mode) {
			t.Errorf("%s: %#v expected, %#v returned", test.name, test.mode, mode)
		}
		// deterministic
		if mode2 := ChooseMode(test.in); !reflect.DeepEqual(mode, mode2) {
			t.Errorf("%s: not deterministic", test.name)
		}
	}
}

func TestParseModes(t *testing.T) {
	for _, m := range []CompoAdjustMode{NoCompoAdjust, CompoScaleOnly, CompoConditional, CompoForceFull} {
		m2, err := ParseCompoAdjustMode(m.String())
		assert.NoError(t, err)
		assert.Equal(t, m, m2)
	}
	_, err := ParseCompoAdjustMode("always")
	assert.Error(t, err)

	for _, r := range []RelEntropyRule{UserSpecifiedRelEntropy, UnconstrainedRelEntropy,
		RelEntropyOldMatrixNewContext, RelEntropyOldMatrixOldContext} {
		r2, err := ParseRelEntropyRule(r.String())
		assert.NoError(t, err)
		assert.Equal(t, r, r2)
	}
	_, err = ParseRelEntropyRule("")
	assert.Error(t, err)

	assert.Equal(t, "optimize:old-matrix-old-context", OptimizeMatrix{Rule: RelEntropyOldMatrixOldContext}.String())
}

func TestAngleAndDistance(t *testing.T) {
	a, w := oneHot('A'), oneHot('W')
	assert.InDelta(t, 90, angle(a, w), 1e-12)
	assert.InDelta(t, 0, angle(a, a), 1e-6)
	assert.InDelta(t, 1.4142135623730951, distance(a, w), 1e-12)
	assert.Equal(t, 0.0, distance(w, w))
}
