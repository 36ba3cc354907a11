// Package stopreason implements the strongly-typed stop-reason taxonomy of
// spec §3: each step carries a shared-lifetime pointer to its algorithm's
// Reasons so any descendant can raise a stop, mirroring how the teacher's
// optim.Solver threads a single err field through Next() but generalized to
// a richer, still-flat enum rather than a bare error.
package stopreason

// Reason is one member of the stop-reason taxonomy.
type Reason int

const (
	Started Reason = iota // sentinel: a step has begun and not yet stopped

	// Global
	CtrlC
	MaxTime
	HotRestart
	UserGlobalStop

	// Per-main-thread
	MaxBBEval
	MaxEval
	MaxBlockEval
	MaxModelEval
	SubproblemMax
	LapMax
	OpportunisticSuccess
	AllPointsEvaluated

	// Iteration
	MaxIter
	StopOnFeas
	UserIterStop
	PhaseOneCompleted

	// MADS-specific
	MeshPrecReached
	GranularMeshPrecReached
	X0Fail
	PoneSearchFailed

	// NM-specific
	NMInitialFailed

	// Model-specific
	ModelNotEnoughPoints
	ModelOptimizationFail
)

func (r Reason) String() string {
	names := map[Reason]string{
		Started:                 "STARTED",
		CtrlC:                   "CTRL_C",
		MaxTime:                 "MAX_TIME",
		HotRestart:              "HOT_RESTART",
		UserGlobalStop:          "USER_GLOBAL_STOP",
		MaxBBEval:               "MAX_BB_EVAL",
		MaxEval:                 "MAX_EVAL",
		MaxBlockEval:            "MAX_BLOCK_EVAL",
		MaxModelEval:            "MAX_MODEL_EVAL",
		SubproblemMax:           "SUBPROBLEM_MAX",
		LapMax:                  "LAP_MAX",
		OpportunisticSuccess:    "OPPORTUNISTIC_SUCCESS",
		AllPointsEvaluated:      "ALL_POINTS_EVALUATED",
		MaxIter:                 "MAX_ITER",
		StopOnFeas:              "STOP_ON_FEAS",
		UserIterStop:            "USER_ITER_STOP",
		PhaseOneCompleted:       "PHASE_ONE_COMPLETED",
		MeshPrecReached:         "MESH_PREC_REACHED",
		GranularMeshPrecReached: "GRANULAR_MESH_PREC_REACHED",
		X0Fail:                  "X0_FAIL",
		PoneSearchFailed:        "PONE_SEARCH_FAILED",
		NMInitialFailed:         "INITIAL_FAILED",
		ModelNotEnoughPoints:    "NOT_ENOUGH_POINTS",
		ModelOptimizationFail:   "MODEL_OPTIMIZATION_FAIL",
	}
	if n, ok := names[r]; ok {
		return n
	}
	return "UNKNOWN_STOP_REASON"
}

// IsGlobal reports whether r belongs to the global category, which once set
// should propagate to and halt every main thread, not just the one that
// raised it.
func (r Reason) IsGlobal() bool {
	switch r {
	case CtrlC, MaxTime, HotRestart, UserGlobalStop:
		return true
	}
	return false
}

// Terminal reports whether r represents an actual stop (as opposed to the
// Started sentinel).
func (r Reason) Terminal() bool { return r != Started }

// Reasons is the shared-lifetime stop-reasons object one Algorithm (and all
// of its descendant Steps) hold a pointer to. It records at most one
// reason at a time; raising a new reason over an existing non-global one is
// allowed (later stages can upgrade the reason), but a global reason, once
// set, can't be overwritten -- it must win over anything a sub-algorithm
// raises locally.
type Reasons struct {
	current Reason
}

// New returns a fresh Reasons in the Started state.
func New() *Reasons { return &Reasons{current: Started} }

// Set raises r, unless a global reason is already latched.
func (s *Reasons) Set(r Reason) {
	if s.current.IsGlobal() {
		return
	}
	s.current = r
}

// Get returns the current reason.
func (s *Reasons) Get() Reason { return s.current }

// Reset returns the object to the Started state, used when an algorithm's
// start() runs.
func (s *Reasons) Reset() { s.current = Started }

// ShouldStop reports whether any non-Started reason has been latched.
func (s *Reasons) ShouldStop() bool { return s.current.Terminal() }
