// Package control implements the evaluation queue and controller of spec
// §4.5: a thread-cooperative priority queue of pending trial points, budget
// accounting, opportunism, and the worker pull loop.
//
// The dispatcher shape -- one structure owning all mutable scheduling state
// behind a single lock, with producers (main threads) and consumers
// (workers) interacting only through that lock -- is grounded on the
// teacher's cloudlus.Server.dispatcher(), which serializes exactly the
// same kind of submit/fetch/push traffic through a single select loop over
// channels. §4.5 calls for "a lock protects enqueue/dequeue" explicitly, so
// Controller uses a sync.Mutex + sync.Cond directly over that shared state
// rather than reproducing the channel-select loop verbatim; the worker
// pull loop itself (fetch next, evaluate, push result, repeat until no
// work) is grounded on cloudlus.Worker.Run/dojob.
package control

import (
	"container/heap"

	"github.com/rwcarlsen/madsgo/eval"
)

// SortType selects how pending trial points are ordered for evaluation.
type SortType int

const (
	SortDirLastSuccess SortType = iota
	SortLexicographical
	SortRandom
	SortSurrogate
	SortQuadraticModel
	SortUser
)

// EvalQueuePoint is one pending trial point in the shared priority queue.
type EvalQueuePoint struct {
	Point        *eval.Point
	MainThread   int
	SortKey      float64
	FixedVarCtx  interface{}
	seq          int // insertion sequence, used as a stable tiebreak
	index        int // heap bookkeeping
}

// queueHeap is a max-heap on SortKey (higher priority evaluates first),
// ties broken by insertion order -- the spec's open question on
// DIR_LAST_SUCCESS fallback ("falls back to insertion order") generalized
// to every sort policy's tiebreak.
type queueHeap []*EvalQueuePoint

func (h queueHeap) Len() int { return len(h) }
func (h queueHeap) Less(i, j int) bool {
	if h[i].SortKey != h[j].SortKey {
		return h[i].SortKey > h[j].SortKey
	}
	return h[i].seq < h[j].seq
}
func (h queueHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *queueHeap) Push(x interface{}) {
	p := x.(*EvalQueuePoint)
	p.index = len(*h)
	*h = append(*h, p)
}
func (h *queueHeap) Pop() interface{} {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.index = -1
	*h = old[:n-1]
	return p
}

var _ heap.Interface = (*queueHeap)(nil)
