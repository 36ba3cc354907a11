package cache

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

func TestSmartInsertFirstTimeTrue(t *testing.T) {
	c := New(0)
	p := eval.NewPoint(scalarpt.NewPoint(1, 2))
	if !c.SmartInsert(p, bbo.EvalBB) {
		t.Fatal("expected first SmartInsert to return true")
	}
}

func TestSmartInsertInProgressBlocksOthers(t *testing.T) {
	c := New(0)
	p1 := eval.NewPoint(scalarpt.NewPoint(1, 2))
	p2 := eval.NewPoint(scalarpt.NewPoint(1, 2))
	if !c.SmartInsert(p1, bbo.EvalBB) {
		t.Fatal("expected first insert true")
	}
	if c.SmartInsert(p2, bbo.EvalBB) {
		t.Fatal("expected second insert on same point (still in progress) to return false")
	}
}

func TestSmartInsertAfterOKReturnsFalseByDefault(t *testing.T) {
	c := New(0)
	p := eval.NewPoint(scalarpt.NewPoint(1, 2))
	c.SmartInsert(p, bbo.EvalBB)
	tl := bbo.TypeList{bbo.Obj}
	c.Update(p, bbo.EvalBB, &eval.Record{Output: bbo.NewOutput(tl, 3.0), Status: eval.OK})

	dup := eval.NewPoint(scalarpt.NewPoint(1, 2))
	if c.SmartInsert(dup, bbo.EvalBB) {
		t.Fatal("expected SmartInsert to return false for an already-OK point without reeval policy")
	}
}

func TestFindWaitsForInProgressThenReturns(t *testing.T) {
	c := New(0)
	p := eval.NewPoint(scalarpt.NewPoint(5, 5))
	c.SmartInsert(p, bbo.EvalBB)

	var wg sync.WaitGroup
	wg.Add(1)
	var found *eval.Point
	var ok bool
	go func() {
		defer wg.Done()
		found, ok = c.Find(scalarpt.NewPoint(5, 5), bbo.EvalBB, true)
	}()

	time.Sleep(20 * time.Millisecond)
	tl := bbo.TypeList{bbo.Obj}
	c.Update(p, bbo.EvalBB, &eval.Record{Output: bbo.NewOutput(tl, 1.0), Status: eval.OK})
	wg.Wait()

	if !ok || found == nil {
		t.Fatal("expected Find to eventually locate the point")
	}
	if found.Record(bbo.EvalBB).Status != eval.OK {
		t.Errorf("expected OK status after wait, got %v", found.Record(bbo.EvalBB).Status)
	}
}

func TestCacheUniqueness(t *testing.T) {
	c := New(0)
	p1 := eval.NewPoint(scalarpt.NewPoint(1, 1))
	p2 := eval.NewPoint(scalarpt.NewPoint(1, 1))
	c.SmartInsert(p1, bbo.EvalBB)
	c.SmartInsert(p2, bbo.EvalBB)
	if c.Size() != 1 {
		t.Errorf("expected cache to dedupe identical coordinates, got size %d", c.Size())
	}
}

func TestPurgeBoundsSize(t *testing.T) {
	c := New(3)
	for i := 0; i < 10; i++ {
		p := eval.NewPoint(scalarpt.NewPoint(float64(i), 0))
		c.SmartInsert(p, bbo.EvalBB)
	}
	if c.Size() > 3 {
		t.Errorf("expected cache size bounded to 3, got %d", c.Size())
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	c := New(0)
	p := eval.NewPoint(scalarpt.NewPoint(1, 2, 3))
	c.SmartInsert(p, bbo.EvalBB)
	tl := bbo.TypeList{bbo.Obj, bbo.PB}
	c.Update(p, bbo.EvalBB, &eval.Record{Output: bbo.NewOutput(tl, 4.5, 0.1), Status: eval.OK})

	var buf bytes.Buffer
	if err := c.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}

	c2 := New(0)
	n, err := ReadText(&buf, c2)
	if err != nil {
		t.Fatalf("ReadText: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry read, got %d", n)
	}
	if c2.Size() != 1 {
		t.Fatalf("expected round-tripped cache to have 1 entry, got %d", c2.Size())
	}
	got, ok := c2.Find(scalarpt.NewPoint(1, 2, 3), bbo.EvalBB, false)
	if !ok {
		t.Fatal("expected round-tripped point to be findable")
	}
	if got.Record(bbo.EvalBB).Status != eval.OK {
		t.Errorf("expected OK status preserved across round-trip, got %v", got.Record(bbo.EvalBB).Status)
	}
}
