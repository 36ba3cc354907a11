// Package params implements the external parameter surface of spec §6: a
// single typed struct grouping Problem/Run/Cache-Display parameters,
// grounded on scen.Scenario's flat exported-field configuration struct
// rather than a generic string-keyed map or a flag/file parser (the
// explicit non-goal on parameter-file parsing).
package params

import (
	"fmt"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/control"
)

// DirectionType selects the poll-direction generation rule of §4.6.
type DirectionType int

const (
	Compass2N DirectionType = iota
	CompassNp1
	RandomN
)

// Problem groups the search-space definition of §6.
type Problem struct {
	Dimension       int
	X0              [][]float64
	LowerBound      []float64
	UpperBound      []float64
	FixedVariable   []bool
	Granularity     []float64
	BBInputType     []string // e.g. "R", "I", "B" per coordinate; informational, enforced via Granularity
	BBOutputType    bbo.TypeList
	InitialFrameSize []float64
	InitialMeshSize  []float64
	MinFrameSize     []float64
	MinMeshSize      []float64

	// LinearConstraintA/B declare an optional linear feasible region
	// Ax <= b that VNS shake points are repaired against before being
	// queued for evaluation, rather than discovering the violation only
	// after a wasted blackbox call. Nil means no linear region is
	// declared; EB/PB outputs remain the only feasibility mechanism.
	LinearConstraintA [][]float64
	LinearConstraintB []float64
}

// Run groups the run-control parameters of §6.
type Run struct {
	MaxIterations  int
	MaxTime        float64 // seconds; 0 = unbounded
	MaxBBEval      int
	MaxEval        int
	MaxBlockEval   int
	MaxModelEval   int
	SubproblemMaxBBEval int

	HMax0 float64
	HNorm bbo.HNormType

	AnisotropicMesh  bool
	AnisotropyFactor float64
	OrthoMeshRefineFreq int

	StopIfFeasible          bool
	StopIfPhaseOneSolution  bool

	OpportunisticEval bool
	EvalQueueClear    bool
	EvalQueueSort     control.SortType
	EvalUseCache      bool
	FrameCenterUseCache bool

	HotRestartReadFiles  []string
	HotRestartWriteFile  string
	HotRestartOnUserInterrupt bool

	Seed int64

	UserCallsEnabled bool

	SpeculativeSearch bool
	LHSearch          bool
	NMSearch          bool
	VNSMadsSearch     bool
	VNSTrigger        float64
	QuadModelSearch   bool
	SGTELIBModelSearch bool

	DirectionType DirectionType

	DMultiMADSOptimization bool
	DMultiIncumbentSelectionThreshold int

	DiscoMADS              bool
	DiscoExclusionRadius   float64
}

// CacheDisplay groups the cache-and-output parameters of §6. Display
// formatting is explicitly out of core scope (§1 non-goals); the fields
// are retained so a caller wiring up an outer CLI/dashboard has somewhere
// to put the settings, but nothing in this module interprets DisplayDegree
// or SolFormat itself.
type CacheDisplay struct {
	CacheFile    string
	CacheSizeMax int
	HistoryFile  string
	SolutionFile string
	StatsFile    string

	DisplayDegree int
	DisplayAllEval bool
	DisplayHeader  bool
	SolFormat      string
}

// Params is the full external parameter surface.
type Params struct {
	Problem
	Run
	CacheDisplay
}

// NewDefault returns a Params with every numeric/bool field at the
// conservative defaults spec §6 implies (unbounded budgets unless capped,
// L2 h-norm, opportunism on, cache on), matching the teacher's
// scen.Scenario.Load pattern of a value built first, then overridden field
// by field by the caller rather than through a parser.
func NewDefault(dimension int) Params {
	return Params{
		Problem: Problem{
			Dimension: dimension,
		},
		Run: Run{
			HNorm:               bbo.L2,
			AnisotropyFactor:    0.1,
			OrthoMeshRefineFreq: 1,
			OpportunisticEval:   true,
			EvalUseCache:        true,
			FrameCenterUseCache: true,
			DirectionType:       Compass2N,
		},
		CacheDisplay: CacheDisplay{
			CacheSizeMax: 0, // unbounded
		},
	}
}

// Validate checks the structural invariants §6 implies: dimension
// consistency across per-coordinate slices, bound ordering, and that
// FIXED_VARIABLE, when given, has one entry per coordinate.
func (p *Params) Validate() error {
	n := p.Dimension
	if n <= 0 {
		return fmt.Errorf("params: DIMENSION must be positive, got %d", n)
	}
	for _, x0 := range p.X0 {
		if len(x0) != n {
			return fmt.Errorf("params: X0 point has %d coords, want %d", len(x0), n)
		}
	}
	if err := checkLen("LOWER_BOUND", p.LowerBound, n); err != nil {
		return err
	}
	if err := checkLen("UPPER_BOUND", p.UpperBound, n); err != nil {
		return err
	}
	if p.LowerBound != nil && p.UpperBound != nil {
		for i := 0; i < n; i++ {
			if p.LowerBound[i] > p.UpperBound[i] {
				return fmt.Errorf("params: LOWER_BOUND[%d]=%v exceeds UPPER_BOUND[%d]=%v", i, p.LowerBound[i], i, p.UpperBound[i])
			}
		}
	}
	if err := checkLen("GRANULARITY", p.Granularity, n); err != nil {
		return err
	}
	if p.FixedVariable != nil && len(p.FixedVariable) != n {
		return fmt.Errorf("params: FIXED_VARIABLE has length %d, want %d", len(p.FixedVariable), n)
	}
	return nil
}

func checkLen(name string, s []float64, n int) error {
	if s != nil && len(s) != n {
		return fmt.Errorf("params: %s has length %d, want %d", name, len(s), n)
	}
	return nil
}
