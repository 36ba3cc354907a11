package control

import (
	"container/heap"
	"context"
	"testing"
	"time"

	"github.com/rwcarlsen/madsgo/bbeval"
	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/cache"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
	"github.com/rwcarlsen/madsgo/stopreason"
)

func quadEvaluator() bbeval.FuncEvaluator {
	return bbeval.FuncEvaluator{
		Types: func() bbo.TypeList { return bbo.TypeList{bbo.Obj} },
		Fn: func(x []float64) ([]float64, bool) {
			s := 0.0
			for _, v := range x {
				s += v * v
			}
			return []float64{s}, true
		},
	}
}

func newTestController() (*Controller, *MainThread) {
	c := NewController(cache.New(0))
	mt := &MainThread{
		ID:          1,
		Evaluator:   bbo.EvalBB,
		ComputeType: bbo.Default(),
		StopReasons: stopreason.New(),
	}
	c.Register(mt)
	return c, mt
}

func TestEnqueueAndDrain(t *testing.T) {
	c, mt := newTestController()
	pts := []*eval.Point{
		eval.NewPoint(scalarpt.NewPoint(1, 1)),
		eval.NewPoint(scalarpt.NewPoint(2, 2)),
	}
	c.Enqueue(mt.ID, pts, SortLexicographical, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ev := quadEvaluator()
	done := make(chan struct{})
	go func() {
		c.RunWorker(ctx, ev, scalarpt.Undefined())
		close(done)
	}()

	evaluated := c.StartEvaluation(mt.ID)
	if len(evaluated) != 2 {
		t.Fatalf("expected 2 evaluated points, got %d", len(evaluated))
	}
	for _, p := range evaluated {
		rec := p.Record(bbo.EvalBB)
		if rec == nil || rec.Status != eval.OK {
			t.Errorf("expected OK record, got %+v", rec)
		}
	}
	if mt.Budgets.BBEval != 2 {
		t.Errorf("expected BBEval budget 2, got %d", mt.Budgets.BBEval)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancel")
	}
}

func TestBudgetCapRaisesStopReason(t *testing.T) {
	c, mt := newTestController()
	mt.Budgets.MaxBBEval = 1
	pts := []*eval.Point{
		eval.NewPoint(scalarpt.NewPoint(1, 1)),
		eval.NewPoint(scalarpt.NewPoint(2, 2)),
	}
	c.Enqueue(mt.ID, pts, SortLexicographical, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ev := quadEvaluator()
	go c.RunWorker(ctx, ev, scalarpt.Undefined())

	c.StartEvaluation(mt.ID)
	if mt.StopReasons.Get() != stopreason.MaxBBEval {
		t.Errorf("expected MAX_BB_EVAL stop reason, got %v", mt.StopReasons.Get())
	}
}

func TestStagingBufferHoldsUntilUnlock(t *testing.T) {
	c, mt := newTestController()
	c.LockQueue()
	c.Enqueue(mt.ID, []*eval.Point{eval.NewPoint(scalarpt.NewPoint(1, 1))}, SortLexicographical, nil)

	if got := len(c.PendingSorted()); got != 0 {
		t.Fatalf("expected 0 live queue entries while locked, got %d", got)
	}
	c.UnlockQueue(SortLexicographical)
	if got := len(c.PendingSorted()); got != 1 {
		t.Errorf("expected 1 live queue entry after unlock, got %d", got)
	}
}

func TestPendingSortedOrdersBySortKeyThenInsertion(t *testing.T) {
	c, mt := newTestController()
	p1 := &EvalQueuePoint{Point: eval.NewPoint(scalarpt.NewPoint(1)), MainThread: mt.ID}
	p2 := &EvalQueuePoint{Point: eval.NewPoint(scalarpt.NewPoint(2)), MainThread: mt.ID}
	c.mu.Lock()
	c.seq++
	p1.seq = c.seq
	p1.SortKey = 1
	heap.Push(&c.queue, p1)
	c.seq++
	p2.seq = c.seq
	p2.SortKey = 2
	heap.Push(&c.queue, p2)
	c.mu.Unlock()

	out := c.PendingSorted()
	if len(out) != 2 || out[0].SortKey != 2 {
		t.Fatalf("expected higher sort key first, got %+v", out)
	}
}

func TestRunWorkerDispatchesBlocksToBlockEvaluator(t *testing.T) {
	c, mt := newTestController()
	pts := []*eval.Point{
		eval.NewPoint(scalarpt.NewPoint(1, 1)),
		eval.NewPoint(scalarpt.NewPoint(2, 2)),
		eval.NewPoint(scalarpt.NewPoint(3, 3)),
	}
	c.Enqueue(mt.ID, pts, SortLexicographical, nil)

	ctx, cancel := context.WithCancel(context.Background())
	ev := bbeval.FuncBlockEvaluator{FuncEvaluator: quadEvaluator(), BlockSize: 3}
	done := make(chan struct{})
	go func() {
		c.RunWorker(ctx, ev, scalarpt.Undefined())
		close(done)
	}()

	evaluated := c.StartEvaluation(mt.ID)
	if len(evaluated) != 3 {
		t.Fatalf("expected 3 evaluated points, got %d", len(evaluated))
	}
	for _, p := range evaluated {
		rec := p.Record(bbo.EvalBB)
		if rec == nil || rec.Status != eval.OK {
			t.Errorf("expected OK record, got %+v", rec)
		}
	}
	if mt.Budgets.BBEval != 3 {
		t.Errorf("expected BBEval budget 3, got %d", mt.Budgets.BBEval)
	}
	if mt.Budgets.BlockEval != 3 {
		t.Errorf("expected BlockEval budget 3, got %d", mt.Budgets.BlockEval)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after cancel")
	}
}

func TestMaxBlockEvalRaisesStopReason(t *testing.T) {
	c, mt := newTestController()
	mt.Budgets.MaxBlockEval = 2
	pts := []*eval.Point{
		eval.NewPoint(scalarpt.NewPoint(1, 1)),
		eval.NewPoint(scalarpt.NewPoint(2, 2)),
	}
	c.Enqueue(mt.ID, pts, SortLexicographical, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ev := bbeval.FuncBlockEvaluator{FuncEvaluator: quadEvaluator(), BlockSize: 2}
	go c.RunWorker(ctx, ev, scalarpt.Undefined())

	c.StartEvaluation(mt.ID)
	if mt.StopReasons.Get() != stopreason.MaxBlockEval {
		t.Errorf("expected MAX_BLOCK_EVAL stop reason, got %v", mt.StopReasons.Get())
	}
}
