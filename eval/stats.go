package eval

import (
	"sync"

	"github.com/rwcarlsen/madsgo/bbo"
)

// TrialPointStats holds the per-evalType counters of spec §3: "current"
// resets each iteration, "total" accumulates for the whole run. Merging a
// child's current stats into a parent's total+current happens under a
// mutex so parallel sub-algorithms sharing a parent don't race.
type TrialPointStats struct {
	mu sync.Mutex

	totalGenerated   map[bbo.EvalType]int
	currentGenerated map[bbo.EvalType]int
	totalEvals       map[bbo.EvalType]int
	currentEvals     map[bbo.EvalType]int
}

// NewTrialPointStats returns a zeroed stats tracker.
func NewTrialPointStats() *TrialPointStats {
	return &TrialPointStats{
		totalGenerated:   map[bbo.EvalType]int{},
		currentGenerated: map[bbo.EvalType]int{},
		totalEvals:       map[bbo.EvalType]int{},
		currentEvals:     map[bbo.EvalType]int{},
	}
}

// AddGenerated records n newly generated trial points of evalType et.
func (s *TrialPointStats) AddGenerated(et bbo.EvalType, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentGenerated[et] += n
	s.totalGenerated[et] += n
}

// AddEvals records n completed evaluations of evalType et.
func (s *TrialPointStats) AddEvals(et bbo.EvalType, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentEvals[et] += n
	s.totalEvals[et] += n
}

// CurrentGenerated/CurrentEvals/TotalGenerated/TotalEvals are read
// accessors for a given evalType.
func (s *TrialPointStats) CurrentGenerated(et bbo.EvalType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentGenerated[et]
}
func (s *TrialPointStats) CurrentEvals(et bbo.EvalType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentEvals[et]
}
func (s *TrialPointStats) TotalGenerated(et bbo.EvalType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalGenerated[et]
}
func (s *TrialPointStats) TotalEvals(et bbo.EvalType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalEvals[et]
}

// ResetCurrent zeroes the "current" counters, called when a new iteration
// starts.
func (s *TrialPointStats) ResetCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentGenerated = map[bbo.EvalType]int{}
	s.currentEvals = map[bbo.EvalType]int{}
}

// MergeInto merges s's current counters into parent's total and current
// counters, under parent's lock, matching spec §3's parent-child merge
// protocol. Called from a step's end().
func (s *TrialPointStats) MergeInto(parent *TrialPointStats) {
	s.mu.Lock()
	gen := make(map[bbo.EvalType]int, len(s.currentGenerated))
	for k, v := range s.currentGenerated {
		gen[k] = v
	}
	evals := make(map[bbo.EvalType]int, len(s.currentEvals))
	for k, v := range s.currentEvals {
		evals[k] = v
	}
	s.mu.Unlock()

	parent.mu.Lock()
	defer parent.mu.Unlock()
	for et, n := range gen {
		parent.currentGenerated[et] += n
		parent.totalGenerated[et] += n
	}
	for et, n := range evals {
		parent.currentEvals[et] += n
		parent.totalEvals[et] += n
	}
}
