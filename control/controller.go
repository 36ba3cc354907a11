package control

import (
	"container/heap"
	"context"
	"sort"
	"sync"

	"github.com/rwcarlsen/madsgo/barrier"
	"github.com/rwcarlsen/madsgo/bbeval"
	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/cache"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
	"github.com/rwcarlsen/madsgo/stopreason"
)

// Budgets is the per-main-thread counter bundle of §4.5.
type Budgets struct {
	BBEval      int
	NbEval      int
	LapBBEval   int
	SurrogateEval int
	ModelEval   int
	SubBBEval   int
	BlockEval   int

	MaxBBEval    int
	MaxEval      int
	MaxBlockEval int
	MaxModelEval int
	SubproblemMax int
	LapMax        int
}

func (b *Budgets) checkLocked(sr *stopreason.Reasons) {
	if b.MaxBBEval > 0 && b.BBEval >= b.MaxBBEval {
		sr.Set(stopreason.MaxBBEval)
	}
	if b.MaxEval > 0 && b.NbEval >= b.MaxEval {
		sr.Set(stopreason.MaxEval)
	}
	if b.MaxBlockEval > 0 && b.BlockEval >= b.MaxBlockEval {
		sr.Set(stopreason.MaxBlockEval)
	}
	if b.MaxModelEval > 0 && b.ModelEval >= b.MaxModelEval {
		sr.Set(stopreason.MaxModelEval)
	}
	if b.SubproblemMax > 0 && b.SubBBEval >= b.SubproblemMax {
		sr.Set(stopreason.SubproblemMax)
	}
	if b.LapMax > 0 && b.LapBBEval >= b.LapMax {
		sr.Set(stopreason.LapMax)
	}
}

// MainThread holds the per-main-thread state of §4.5: the active
// evaluator/compute-type, the barrier it drives opportunism against, its
// budgets, stop reasons, and the bookkeeping the controller needs to route
// queue pops and results back to it.
type MainThread struct {
	ID            int
	Evaluator     bbo.EvalType
	ComputeType   bbo.ComputeType
	SortType      SortType
	Opportunistic bool
	Barrier       *barrier.Progressive
	Budgets       Budgets
	StopReasons   *stopreason.Reasons

	LastSuccessDirFeas *scalarpt.Direction
	LastSuccessDirInf  *scalarpt.Direction

	evaluated []*eval.Point
	pending   int
}

// Evaluated drains and returns the points evaluated for this main thread
// since the last call.
func (m *MainThread) Evaluated() []*eval.Point {
	out := m.evaluated
	m.evaluated = nil
	return out
}

// Controller is the evaluator control of §4.5: a shared priority queue plus
// a registry of MainThread state, both protected by a single lock so that
// lookups/inserts/updates appear atomic to callers (§4.4/§4.5's
// concurrency requirement).
type Controller struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   queueHeap
	staging []*EvalQueuePoint
	locked  bool
	seq     int

	threads map[int]*MainThread

	Cache *cache.Cache
}

// NewController builds a Controller backed by c (the process-wide eval
// cache).
func NewController(c *cache.Cache) *Controller {
	ctl := &Controller{threads: map[int]*MainThread{}, Cache: c}
	ctl.cond = sync.NewCond(&ctl.mu)
	return ctl
}

// Register installs (or replaces) the MainThread state for id.
func (c *Controller) Register(m *MainThread) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threads[m.ID] = m
}

// Thread returns the MainThread for id, or nil.
func (c *Controller) Thread(id int) *MainThread {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.threads[id]
}

// LockQueue begins a staging phase: subsequent Enqueue calls accumulate in
// a staging buffer instead of landing in the live heap, mirroring §4.5's
// "when the queue is locked, callers accumulate points in a staging
// buffer".
func (c *Controller) LockQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = true
}

// UnlockQueue atomically merges the staging buffer into the live queue,
// computing each point's sort key under sortType, then wakes any parked
// workers.
func (c *Controller) UnlockQueue(sortType SortType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = false
	for _, p := range c.staging {
		p.SortKey = sortKeyFor(p, c.threads[p.MainThread], sortType)
		c.seq++
		p.seq = c.seq
		heap.Push(&c.queue, p)
	}
	c.staging = nil
	c.cond.Broadcast()
}

// Enqueue submits points for evaluation on behalf of mainThread. If the
// queue is currently locked (staging phase), points land in the staging
// buffer; otherwise they are pushed directly.
func (c *Controller) Enqueue(mainThread int, points []*eval.Point, sortType SortType, fixedVarCtx interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := c.threads[mainThread]
	if mt != nil {
		mt.pending += len(points)
	}
	for _, p := range points {
		qp := &EvalQueuePoint{Point: p, MainThread: mainThread, FixedVarCtx: fixedVarCtx}
		if c.locked {
			c.staging = append(c.staging, qp)
			continue
		}
		qp.SortKey = sortKeyFor(qp, mt, sortType)
		c.seq++
		qp.seq = c.seq
		heap.Push(&c.queue, qp)
	}
	c.cond.Broadcast()
}

func sortKeyFor(p *EvalQueuePoint, mt *MainThread, sortType SortType) float64 {
	switch sortType {
	case SortDirLastSuccess:
		if mt == nil || p.Point.PointFrom == nil {
			return 0
		}
		dir := scalarpt.FromPoints(p.Point.PointFrom, p.Point.Coords)
		var ref *scalarpt.Direction
		if mt.LastSuccessDirFeas != nil {
			ref = mt.LastSuccessDirFeas
		} else if mt.LastSuccessDirInf != nil {
			ref = mt.LastSuccessDirInf
		}
		if ref == nil {
			return 0 // fall back to insertion order, per §9 open question
		}
		return dir.Dot(ref)
	default:
		return 0
	}
}

// activeLocked reports whether mainThread m should still receive
// evaluations: not stopped, and (if opportunistic) not yet opportunistically
// succeeded.
func activeLocked(m *MainThread) bool {
	return m != nil && !m.StopReasons.ShouldStop()
}

// pop removes and returns the highest-priority queue entry whose owning
// main thread is still active, skipping (and dropping) entries for
// inactive threads. Returns nil if no eligible entry exists.
func (c *Controller) popLocked() *EvalQueuePoint {
	var skipped []*EvalQueuePoint
	var found *EvalQueuePoint
	for c.queue.Len() > 0 {
		e := heap.Pop(&c.queue).(*EvalQueuePoint)
		mt := c.threads[e.MainThread]
		if activeLocked(mt) {
			found = e
			break
		}
		skipped = append(skipped, e) // inactive thread: drop from queue
	}
	for _, s := range skipped {
		if mt := c.threads[s.MainThread]; mt != nil {
			mt.pending--
		}
	}
	return found
}

// popBlockLocked pops the highest-priority eligible entry plus up to
// maxSize-1 further entries belonging to the same main thread, for batched
// dispatch through a BlockEvaluator per §4.1's BB_MAX_BLOCK_SIZE. Entries
// for other main threads encountered while draining are pushed back rather
// than folded into the block out of priority order.
func (c *Controller) popBlockLocked(maxSize int) []*EvalQueuePoint {
	first := c.popLocked()
	if first == nil || maxSize <= 1 {
		if first == nil {
			return nil
		}
		return []*EvalQueuePoint{first}
	}
	block := []*EvalQueuePoint{first}
	var deferred []*EvalQueuePoint
	for len(block) < maxSize && c.queue.Len() > 0 {
		e := heap.Pop(&c.queue).(*EvalQueuePoint)
		mt := c.threads[e.MainThread]
		if !activeLocked(mt) {
			if mt != nil {
				mt.pending--
			}
			continue
		}
		if e.MainThread != first.MainThread {
			deferred = append(deferred, e)
			continue
		}
		block = append(block, e)
	}
	for _, e := range deferred {
		heap.Push(&c.queue, e)
	}
	return block
}

// RunWorker runs one worker's pull loop: pop the highest-priority eligible
// point (or, when ev implements BlockEvaluator, a block of up to
// MaxBlockSize points for the same main thread), smart-insert it into the
// cache, evaluate it if this goroutine won the right to, write the result
// back, and notify. It returns when ctx is canceled and the queue is
// empty, grounded on cloudlus.Worker.Run's loop-until-nothing-to-do shape.
func (c *Controller) RunWorker(ctx context.Context, ev bbeval.Evaluator, hMaxHint scalarpt.Scalar) {
	be, _ := ev.(bbeval.BlockEvaluator)

	// cond.Wait has no native way to observe context cancellation, so a
	// watcher goroutine translates ctx.Done() into a broadcast that wakes
	// every parked worker to re-check ctx.Err().
	go func() {
		<-ctx.Done()
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	}()
	for {
		c.mu.Lock()
		for c.queue.Len() == 0 && ctx.Err() == nil {
			c.cond.Wait()
		}
		if ctx.Err() != nil && c.queue.Len() == 0 {
			c.mu.Unlock()
			return
		}
		var block []*EvalQueuePoint
		if be != nil && be.MaxBlockSize() > 1 {
			block = c.popBlockLocked(be.MaxBlockSize())
		} else if e := c.popLocked(); e != nil {
			block = []*EvalQueuePoint{e}
		}
		c.mu.Unlock()
		if len(block) == 0 {
			continue
		}

		if len(block) > 1 {
			c.evalBlock(ctx, be, block, hMaxHint)
		} else {
			mt := c.Thread(block[0].MainThread)
			c.evalOne(ctx, ev, block[0], mt, hMaxHint)
		}
	}
}

func (c *Controller) evalOne(ctx context.Context, ev bbeval.Evaluator, e *EvalQueuePoint, mt *MainThread, hMaxHint scalarpt.Scalar) {
	defer func() {
		c.mu.Lock()
		if mt != nil {
			mt.pending--
		}
		c.cond.Broadcast()
		c.mu.Unlock()
	}()

	et := bbo.EvalBB
	if mt != nil {
		et = mt.Evaluator
	}

	if !c.Cache.SmartInsert(e.Point, et) {
		// another thread owns this evaluation (or it's already done);
		// caller will read the result back out of the cache.
		return
	}

	err := ev.Eval(ctx, e.Point, hMaxHint)
	rec := e.Point.EnsureRecord(et)
	if err != nil {
		rec.Status = eval.Failed
	} else if rec.Status == eval.InProgress {
		rec.Status = eval.OK
	}
	c.Cache.Update(e.Point, et, rec)

	if mt != nil {
		c.mu.Lock()
		mt.evaluated = append(mt.evaluated, e.Point)
		c.mu.Unlock()
		c.checkOpportunism(mt, e.Point)
		c.accountBudget(mt, et, 1)
	}
}

// evalBlock dispatches block through be.EvalBlock in a single call,
// smart-inserting each point first so only the points this worker won the
// right to evaluate are actually sent to the evaluator, then writes each
// result back and accounts the whole block's budget, including
// Budgets.BlockEval (the counter MAX_BLOCK_EVAL checks, previously declared
// but never incremented since evaluation always went one point at a time).
func (c *Controller) evalBlock(ctx context.Context, be bbeval.BlockEvaluator, block []*EvalQueuePoint, hMaxHint scalarpt.Scalar) {
	mt := c.Thread(block[0].MainThread)
	et := bbo.EvalBB
	if mt != nil {
		et = mt.Evaluator
	}

	defer func() {
		c.mu.Lock()
		if mt != nil {
			mt.pending -= len(block)
		}
		c.cond.Broadcast()
		c.mu.Unlock()
	}()

	owned := make([]*eval.Point, 0, len(block))
	for _, e := range block {
		if c.Cache.SmartInsert(e.Point, et) {
			owned = append(owned, e.Point)
		}
	}
	if len(owned) == 0 {
		return
	}

	err := be.EvalBlock(ctx, owned, hMaxHint)
	for _, p := range owned {
		rec := p.EnsureRecord(et)
		if err != nil {
			rec.Status = eval.Failed
		} else if rec.Status == eval.InProgress {
			rec.Status = eval.OK
		}
		c.Cache.Update(p, et, rec)
	}

	if mt == nil {
		return
	}
	c.mu.Lock()
	mt.evaluated = append(mt.evaluated, owned...)
	c.mu.Unlock()
	for _, p := range owned {
		c.checkOpportunism(mt, p)
	}
	c.accountBudget(mt, et, len(owned))
	c.mu.Lock()
	mt.Budgets.BlockEval += len(owned)
	mt.Budgets.checkLocked(mt.StopReasons)
	c.mu.Unlock()
}

func (c *Controller) accountBudget(mt *MainThread, et bbo.EvalType, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch et {
	case bbo.EvalBB:
		mt.Budgets.BBEval += n
		mt.Budgets.LapBBEval += n
	case bbo.EvalSurrogate:
		mt.Budgets.SurrogateEval += n
	case bbo.EvalModel:
		mt.Budgets.ModelEval += n
	}
	mt.Budgets.NbEval += n
	mt.Budgets.checkLocked(mt.StopReasons)
}

// checkOpportunism implements §4.5's opportunism step: if p is a
// FULL_SUCCESS against mt's barrier and mt is opportunistic, raise
// OPPORTUNISTIC_SUCCESS so workers stop pulling mt's remaining points.
func (c *Controller) checkOpportunism(mt *MainThread, p *eval.Point) {
	if !mt.Opportunistic || mt.Barrier == nil {
		return
	}
	var ref *eval.Point
	if p.IsFeasible(mt.ComputeType) {
		ref = mt.Barrier.RefBestFeas()
	} else {
		ref = mt.Barrier.RefBestInf()
	}
	if barrier.ClassifySuccess(p, ref, mt.ComputeType, mt.Barrier.HMax) == barrier.FullSuccess {
		mt.StopReasons.Set(stopreason.OpportunisticSuccess)
	}
}

// StartEvaluation blocks until mainThread's outstanding points all have
// results, or a stop reason has been raised for it, matching §4.5's
// "StartEvaluation() returns once its queue drains or aborts". It also
// returns the points evaluated since the last call.
func (c *Controller) StartEvaluation(mainThread int) []*eval.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	mt := c.threads[mainThread]
	if mt == nil {
		return nil
	}
	for mt.pending > 0 && !mt.StopReasons.ShouldStop() {
		c.cond.Wait()
	}
	return mt.Evaluated()
}

// PendingSorted returns a snapshot of currently queued points, sorted by
// priority, for diagnostics/tests; it does not mutate the queue.
func (c *Controller) PendingSorted() []*EvalQueuePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*EvalQueuePoint, len(c.queue))
	copy(out, c.queue)
	sort.SliceStable(out, func(i, j int) bool { return queueHeap(out).Less(i, j) })
	return out
}
