// Package step implements the step spine of spec §4.1: a small lifecycle
// interface (start/run/end), parent/child navigation, and a callback
// registry, shared by every algorithm, iteration, and search/poll method.
//
// The teacher has no deep-inheritance call tree to generalize from
// (cloudlus's Job/Worker/Server are flat, not a virtual hierarchy), so the
// lifecycle template here is original to this layer; its shape follows the
// teacher's preference for concrete structs embedding a common base
// (scen.Scenario-style composition) over interface-heavy designs. Because
// Go has no virtual-call mechanism, Base invokes the "virtual" Start/Run/End
// implementations through a Lifecycle interface captured at construction
// time (the standard Go substitute for the source's virtual dispatch,
// sometimes called the "self" or "impl" pattern).
package step

import (
	"github.com/rwcarlsen/madsgo/barrier"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/stopreason"
)

// CallbackType enumerates the hook points of §4.1.
type CallbackType int

const (
	IterationEnd CallbackType = iota
	MegaIterationStart
	MegaIterationEnd
	EvalOpportunisticCheck
	EvalFailCheck
	EvalStopCheck
	PreEvalUpdate
	PostEvalUpdate
	PostprocessingCheck
	HotRestartCallback
	UserMethodSearch
	UserMethodPoll
)

// CallbackFunc is a registered hook. stop is an out-parameter: setting
// *stop = true requests a stop, which the framework turns into
// USER_GLOBAL_STOP (algorithm-level callbacks) or USER_ITER_STOP
// (iteration-level callbacks) depending on where it fires.
type CallbackFunc func(s Step, stop *bool)

// Lifecycle is the set of methods a concrete step must supply; Base calls
// these from its own Start/Run/End after doing the default bookkeeping
// §4.1 specifies.
type Lifecycle interface {
	StartImp()
	RunImp() bool
	EndImp()
}

// Step is the lifecycle + navigation contract every node in the algorithm
// call tree satisfies.
type Step interface {
	Start()
	Run() bool
	End()
	Parent() Step
	StopReasons() *stopreason.Reasons
	Stats() *eval.TrialPointStats
	RunCallback(ct CallbackType, stop *bool)
	RegisterCallback(ct CallbackType, fn CallbackFunc)
	Success() barrier.SuccessType
	SetSuccess(barrier.SuccessType)
}

// Base implements Step's default bookkeeping; concrete steps embed Base and
// set Impl to themselves (see New).
type Base struct {
	Impl   Lifecycle
	parent Step
	name   string

	reasons *stopreason.Reasons
	stats   *eval.TrialPointStats
	success barrier.SuccessType

	callbacks map[CallbackType][]CallbackFunc
}

// New builds a Base step named name, child of parent (nil for a root
// algorithm). impl supplies the StartImp/RunImp/EndImp hooks. If parent is
// non-nil, the new step shares the parent's stop-reasons object; a root
// step gets a fresh *stopreason.Reasons. Every step gets its own
// *eval.TrialPointStats and its own callback registry (RegisterCallback
// only ever appends to the owning step's map). Sub-algorithms that need
// stop reasons independent of their parent's (§4.7) replace the shared
// object afterwards via SetReasons.
func New(name string, parent Step, impl Lifecycle) *Base {
	b := &Base{Impl: impl, parent: parent, name: name}
	if parent != nil {
		b.reasons = parent.StopReasons()
	} else {
		b.reasons = stopreason.New()
	}
	b.stats = eval.NewTrialPointStats()
	return b
}

// SetReasons overrides the stop-reasons object this step (and everything
// that looks it up via StopReasons) shares -- used by sub-algorithms (§4.7)
// that must have their own stop reasons independent of their parent's.
func (b *Base) SetReasons(r *stopreason.Reasons) { b.reasons = r }

func (b *Base) Name() string { return b.name }

func (b *Base) Parent() Step                         { return b.parent }
func (b *Base) StopReasons() *stopreason.Reasons      { return b.reasons }
func (b *Base) Stats() *eval.TrialPointStats          { return b.stats }
func (b *Base) Success() barrier.SuccessType          { return b.success }
func (b *Base) SetSuccess(s barrier.SuccessType)      { b.success = s }

// Start performs the default bookkeeping of §4.1 -- reset success to
// Unsuccessful, reset this step's current stats, mark the stop reason as
// STARTED -- then calls the concrete StartImp.
func (b *Base) Start() {
	b.success = barrier.Unsuccessful
	b.stats.ResetCurrent()
	b.reasons.Reset()
	b.Impl.StartImp()
}

// Run calls RunImp and returns its "something improving happened" result
// unmodified.
func (b *Base) Run() bool {
	return b.Impl.RunImp()
}

// End calls EndImp, then propagates success and merges stats into the
// parent (if any), per §4.1's RAII-style teardown. End does not recover
// panics; it runs while a panic unwinds only if the caller deferred End()
// right after Start().
func (b *Base) End() {
	b.Impl.EndImp()
	if b.parent == nil {
		return
	}
	if b.success > b.parent.Success() {
		b.parent.SetSuccess(b.success)
	}
	b.stats.MergeInto(b.parent.Stats())
}

// RunCallback invokes every callback registered for ct on this step,
// walking no further than this step's own registry (per §4.1, callbacks
// are looked up on the owning step, typically the nearest Algorithm
// ancestor -- callers that want algorithm-wide callbacks register them on
// the algorithm step and pass that step's RunCallback down explicitly).
// Unregistered callback types are a no-op, matching the spec's "callbacks
// are optional".
func (b *Base) RunCallback(ct CallbackType, stop *bool) {
	for _, fn := range b.callbacks[ct] {
		fn(nil, stop)
		if stop != nil && *stop {
			return
		}
	}
}

// RegisterCallback appends fn to the list of callbacks invoked for ct.
func (b *Base) RegisterCallback(ct CallbackType, fn CallbackFunc) {
	if b.callbacks == nil {
		b.callbacks = map[CallbackType][]CallbackFunc{}
	}
	b.callbacks[ct] = append(b.callbacks[ct], fn)
}

// FindAncestor walks the parent chain starting at s (inclusive) and
// returns the first step for which match returns true, or nil. This is the
// spec's "typed ancestor lookup" generalized with a predicate instead of a
// target subclass, since Go has no dynamic-cast shortcut: callers supply
// a type assertion inside match, e.g.
//
//	var mi *MegaIteration
//	step.FindAncestor(s, func(s Step) bool { m, ok := s.(*MegaIteration); mi = m; return ok })
func FindAncestor(s Step, match func(Step) bool) Step {
	for cur := s; cur != nil; cur = cur.Parent() {
		if match(cur) {
			return cur
		}
	}
	return nil
}
