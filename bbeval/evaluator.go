// Package bbeval implements the blackbox evaluator boundary of spec §4.2:
// the function signature a run is built around, plus the batch/external
// process evaluator grounded on the teacher's cloudlus.Job execution model.
package bbeval

import (
	"context"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// Evaluator runs one blackbox evaluation for p, writing the result onto
// p's record for the caller's evalType via p.SetRecord/EnsureRecord. hMax
// is passed through so evaluators that support early termination (e.g. an
// external process that can be told "any h above this is useless") can use
// it; implementations that don't care are free to ignore it.
type Evaluator interface {
	Eval(ctx context.Context, p *eval.Point, hMax scalarpt.Scalar) error
}

// BlockEvaluator evaluates a block of points together, for blackboxes that
// are cheaper run in batch (shared setup cost, vectorized runs). Per §4.1's
// BB_MAX_BLOCK_SIZE, the controller never builds blocks bigger than the
// evaluator asked for.
type BlockEvaluator interface {
	EvalBlock(ctx context.Context, pts []*eval.Point, hMax scalarpt.Scalar) error
	MaxBlockSize() int
}

// FuncEvaluator adapts a plain Go function into an Evaluator, for
// in-process objective functions (the common unit-test and library-embed
// case alongside the external-process ExecEvaluator).
type FuncEvaluator struct {
	Types TypeFunc
	Fn    func(x []float64) (vals []float64, ok bool)
}

// TypeFunc returns the output type list for a given evaluation, allowing
// the caller's function to report a fixed tuple shape.
type TypeFunc func() bbo.TypeList

func (e FuncEvaluator) Eval(ctx context.Context, p *eval.Point, hMax scalarpt.Scalar) error {
	vals, ok := e.Fn(p.Coords.Values())
	out := bbo.Output{Types: e.Types(), EvalOk: ok}
	out.Values = make([]scalarpt.Scalar, len(vals))
	for i, v := range vals {
		out.Values[i] = scalarpt.Of(v)
	}
	rec := p.EnsureRecord(bbo.EvalBB)
	rec.Output = out
	if !ok {
		rec.Status = eval.Failed
	} else {
		rec.Status = eval.OK
	}
	return nil
}

// FuncBlockEvaluator adapts a plain Go function into a BlockEvaluator,
// evaluating every point in the block through the same in-process function
// one at a time but as a single logical batch -- the in-process analogue
// of an external blackbox whose process-launch cost is amortized by taking
// several points per invocation, for tests and library embedding that want
// to exercise the controller's block-dispatch path (§4.1 BB_MAX_BLOCK_SIZE)
// without an external executable.
type FuncBlockEvaluator struct {
	FuncEvaluator
	BlockSize int
}

func (e FuncBlockEvaluator) EvalBlock(ctx context.Context, pts []*eval.Point, hMax scalarpt.Scalar) error {
	for _, p := range pts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.FuncEvaluator.Eval(ctx, p, hMax); err != nil {
			return err
		}
	}
	return nil
}

func (e FuncBlockEvaluator) MaxBlockSize() int {
	if e.BlockSize <= 0 {
		return 1
	}
	return e.BlockSize
}
