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
	"strings"

	"github.com/pkg/errors"
	"github.com/shenwei356/compomat/compomat/matrix"
)

// CompoAdjustMode is the configured policy of composition adjustment.
type CompoAdjustMode uint8

const (
	// NoCompoAdjust never adjusts.
	NoCompoAdjust CompoAdjustMode = iota
	// CompoScaleOnly only rescales the base matrix.
	CompoScaleOnly
	// CompoConditional decides per pair, see ChooseMode.
	CompoConditional
	// CompoForceFull always optimizes a new matrix.
	CompoForceFull
)

var compoAdjustModeNames = [...]string{"none", "scale", "conditional", "force"}

func (m CompoAdjustMode) String() string {
	if int(m) < len(compoAdjustModeNames) {
		return compoAdjustModeNames[m]
	}
	return fmt.Sprintf("CompoAdjustMode(%d)", uint8(m))
}

// ParseCompoAdjustMode parses a policy name: none, scale, conditional or force.
func ParseCompoAdjustMode(s string) (CompoAdjustMode, error) {
	s = strings.ToLower(s)
	for i, name := range compoAdjustModeNames {
		if s == name {
			return CompoAdjustMode(i), nil
		}
	}
	return 0, errors.Errorf("adjust: invalid composition adjustment mode: %q, available: %s",
		s, strings.Join(compoAdjustModeNames[:], ", "))
}

// RelEntropyRule tells how the target relative entropy of an optimized
// matrix is chosen.
type RelEntropyRule uint8

const (
	// UserSpecifiedRelEntropy uses the configured target, or the relative
	// entropy of the base matrix when none is configured.
	UserSpecifiedRelEntropy RelEntropyRule = iota
	// UnconstrainedRelEntropy only constrains the marginals.
	UnconstrainedRelEntropy
	// RelEntropyOldMatrixNewContext uses the relative entropy of the base
	// matrix scores under the compositions of the pair.
	RelEntropyOldMatrixNewContext
	// RelEntropyOldMatrixOldContext uses the relative entropy of the
	// base joint probabilities.
	RelEntropyOldMatrixOldContext
)

var relEntropyRuleNames = [...]string{"user", "unconstrained", "old-matrix-new-context", "old-matrix-old-context"}

func (r RelEntropyRule) String() string {
	if int(r) < len(relEntropyRuleNames) {
		return relEntropyRuleNames[r]
	}
	return fmt.Sprintf("RelEntropyRule(%d)", uint8(r))
}

// ParseRelEntropyRule parses a rule name.
func ParseRelEntropyRule(s string) (RelEntropyRule, error) {
	s = strings.ToLower(s)
	for i, name := range relEntropyRuleNames {
		if s == name {
			return RelEntropyRule(i), nil
		}
	}
	return 0, errors.Errorf("adjust: invalid relative entropy rule: %q, available: %s",
		s, strings.Join(relEntropyRuleNames[:], ", "))
}

// Mode is the adjustment chosen for a pair of sequences. It is one of
// NoAdjustment, ScaleOldMatrix, OptimizeMatrix and ForcedOptimize.
type Mode interface {
	fmt.Stringer
	isMode()
}

// NoAdjustment keeps the base matrix.
type NoAdjustment struct {
	Reason string
}

// ScaleOldMatrix scales the base matrix by the ratio of lambdas.
type ScaleOldMatrix struct{}

// OptimizeMatrix optimizes a new matrix with the target relative entropy
// chosen by Rule. Target is only used by UserSpecifiedRelEntropy,
// and a non-positive value means the relative entropy of the base matrix.
type OptimizeMatrix struct {
	Rule   RelEntropyRule
	Target float64
}

// ForcedOptimize always optimizes a new matrix, constraining the relative
// entropy to Target, or the relative entropy of the base matrix when
// Target is not positive.
type ForcedOptimize struct {
	Target float64
}

func (NoAdjustment) isMode()   {}
func (ScaleOldMatrix) isMode() {}
func (OptimizeMatrix) isMode() {}
func (ForcedOptimize) isMode() {}

func (m NoAdjustment) String() string   { return "none" }
func (m ScaleOldMatrix) String() string { return "scale" }
func (m OptimizeMatrix) String() string { return "optimize:" + m.Rule.String() }
func (m ForcedOptimize) String() string { return "force" }

// MinInformativeLength is the length below which a sequence is too
// short for its composition to be trusted.
const MinInformativeLength = 30

// thresholds of the conditional rule
const (
	maxDistance    = 0.16
	maxLengthRatio = 3.0
	maxAngle       = 70.0 // degrees
)

// ModeInput is the information ChooseMode decides on.
type ModeInput struct {
	QueryLen   int
	SubjectLen int

	// frequencies of the true amino acids, nil when not available
	Query   []float64
	Subject []float64

	Matrix string

	Policy     CompoAdjustMode
	Rule       RelEntropyRule // for CompoConditional
	UserTarget float64
}

// ChooseMode decides how to adjust the matrix for a pair of sequences.
//
// Nothing is adjusted when the policy disables it, the matrix is not
// supported, a composition is unavailable or a sequence is shorter than
// MinInformativeLength. Otherwise CompoScaleOnly and CompoForceFull give
// ScaleOldMatrix and ForcedOptimize. CompoConditional gives ScaleOldMatrix
// when the two compositions are far apart (Euclidean distance > 0.16 and
// angle > 70 degrees) and the lengths are unbalanced (ratio > 3),
// and OptimizeMatrix in all other cases.
func ChooseMode(in ModeInput) Mode {
	if in.Policy == NoCompoAdjust {
		return NoAdjustment{Reason: "disabled"}
	}
	if !matrix.Supported(in.Matrix) {
		return NoAdjustment{Reason: "unsupported matrix"}
	}
	if len(in.Query) != matrix.TrueAA || len(in.Subject) != matrix.TrueAA {
		return NoAdjustment{Reason: "composition unavailable"}
	}
	if in.QueryLen < MinInformativeLength || in.SubjectLen < MinInformativeLength {
		return NoAdjustment{Reason: "short sequence"}
	}

	switch in.Policy {
	case CompoScaleOnly:
		return ScaleOldMatrix{}
	case CompoForceFull:
		return ForcedOptimize{Target: in.UserTarget}
	case CompoConditional:
	default:
		return NoAdjustment{Reason: "unknown policy"}
	}

	lenRatio := float64(in.QueryLen) / float64(in.SubjectLen)
	if lenRatio < 1 {
		lenRatio = 1 / lenRatio
	}
	if lenRatio > maxLengthRatio &&
		distance(in.Query, in.Subject) > maxDistance &&
		angle(in.Query, in.Subject) > maxAngle {
		return ScaleOldMatrix{}
	}

	return OptimizeMatrix{Rule: in.Rule, Target: in.UserTarget}
}

func distance(a, b []float64) float64 {
	var d, s float64
	for i := range a {
		d = a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// angle returns the angle between two vectors, in degrees.
func angle(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 90
	}
	cos := dot / math.Sqrt(na*nb)
	if cos > 1 {
		cos = 1
	}
	return math.Acos(cos) * 180 / math.Pi
}
