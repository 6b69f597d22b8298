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

package rescore

import (
	"sync/atomic"

	"github.com/shenwei356/compomat/compomat/adjust"
)

// State is a step of processing a pair of sequences.
//
//	Start -> ModeSelected -> Unadjusted                      -> Rescored -> Done
//	                      -> Rescaling  -> Rescaled | FellBack -> ...
//	                      -> Optimizing -> Converged | FellBack -> ...
type State uint8

const (
	StateStart State = iota
	StateModeSelected
	StateUnadjusted
	StateRescaling
	StateRescaled
	StateOptimizing
	StateConverged
	StateFellBack
	StateRescored
	StateDone
)

var stateNames = [...]string{
	"start",
	"mode-selected",
	"unadjusted",
	"rescaling",
	"rescaled",
	"optimizing",
	"converged",
	"fell-back",
	"rescored",
	"done",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// trace returns the states a pair went through with an adjustment.
// A nil adjustment means no engine, e.g., for an unsupported matrix.
func trace(a *adjust.Adjustment) []State {
	states := make([]State, 0, 6)
	states = append(states, StateStart, StateModeSelected)

	if a == nil {
		return append(states, StateUnadjusted, StateRescored, StateDone)
	}

	var working State
	switch a.Mode.(type) {
	case adjust.ScaleOldMatrix:
		working = StateRescaling
	default:
		working = StateOptimizing
	}

	switch a.Outcome {
	case adjust.Unadjusted:
		states = append(states, StateUnadjusted)
	case adjust.Rescaled:
		states = append(states, working, StateRescaled)
	case adjust.Converged:
		states = append(states, working, StateConverged)
	case adjust.FellBack:
		states = append(states, working, StateFellBack)
	}
	return append(states, StateRescored, StateDone)
}

// Stats accumulates diagnostics of processed pairs.
// It is safe for concurrent use.
type Stats struct {
	pairs      atomic.Uint64
	unadjusted atomic.Uint64
	rescaled   atomic.Uint64
	converged  atomic.Uint64
	fellBack   atomic.Uint64

	hits     atomic.Uint64 // input hits
	output   atomic.Uint64 // output hits
	dropped  atomic.Uint64
	purged   atomic.Uint64
	filtered atomic.Uint64
}

// StatsSummary is a snapshot of Stats.
type StatsSummary struct {
	Pairs      uint64
	Unadjusted uint64
	Rescaled   uint64
	Converged  uint64
	FellBack   uint64

	Hits     uint64
	Output   uint64
	Dropped  uint64
	Purged   uint64
	Filtered uint64
}

// Add adds the result of a pair.
func (s *Stats) Add(r *Result) {
	s.pairs.Add(1)

	var outcome adjust.Outcome
	if r.Adjustment != nil {
		outcome = r.Adjustment.Outcome
	}
	switch outcome {
	case adjust.Unadjusted:
		s.unadjusted.Add(1)
	case adjust.Rescaled:
		s.rescaled.Add(1)
	case adjust.Converged:
		s.converged.Add(1)
	case adjust.FellBack:
		s.fellBack.Add(1)
	}

	s.hits.Add(uint64(r.Input))
	s.output.Add(uint64(len(r.Hits)))
	s.dropped.Add(uint64(r.Dropped))
	s.purged.Add(uint64(r.Purged))
	s.filtered.Add(uint64(r.Filtered))
}

// Summary returns a snapshot of the counters.
func (s *Stats) Summary() StatsSummary {
	return StatsSummary{
		Pairs:      s.pairs.Load(),
		Unadjusted: s.unadjusted.Load(),
		Rescaled:   s.rescaled.Load(),
		Converged:  s.converged.Load(),
		FellBack:   s.fellBack.Load(),

		Hits:     s.hits.Load(),
		Output:   s.output.Load(),
		Dropped:  s.dropped.Load(),
		Purged:   s.purged.Load(),
		Filtered: s.filtered.Load(),
	}
}
