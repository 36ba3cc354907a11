package hotrestart

import (
	"bytes"
	"testing"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

func samplePoint(x, y, obj float64) *eval.Point {
	p := eval.NewPoint(scalarpt.NewPoint(x, y))
	rec := p.EnsureRecord(bbo.EvalBB)
	rec.Output = bbo.NewOutput(bbo.TypeList{bbo.Obj}, obj)
	rec.Status = eval.OK
	return p
}

func TestSaveLoadRoundTrip(t *testing.T) {
	in := State{
		IterationCount: 7,
		MeshA:          []float64{1, 2},
		MeshB:          []float64{-1, 0},
		MeshB0:         []float64{-2, -2},
		XFeas:          samplePoint(1, 2, 5),
		XInf:           samplePoint(3, 4, 25),
		HMax:           0.125,
		NbEval:         40,
		NbBBEval:       37,
		RNGSeed:        12345,
		RNGCalls:       88,
	}

	var buf bytes.Buffer
	if err := Save(&buf, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if out.IterationCount != in.IterationCount {
		t.Errorf("IterationCount = %d, want %d", out.IterationCount, in.IterationCount)
	}
	if out.HMax != in.HMax {
		t.Errorf("HMax = %v, want %v", out.HMax, in.HMax)
	}
	if out.NbEval != in.NbEval || out.NbBBEval != in.NbBBEval {
		t.Errorf("eval counters = (%d,%d), want (%d,%d)", out.NbEval, out.NbBBEval, in.NbEval, in.NbBBEval)
	}
	if out.RNGSeed != in.RNGSeed || out.RNGCalls != in.RNGCalls {
		t.Errorf("RNG state = (%d,%d), want (%d,%d)", out.RNGSeed, out.RNGCalls, in.RNGSeed, in.RNGCalls)
	}
	if len(out.MeshA) != 2 || out.MeshA[0] != 1 || out.MeshA[1] != 2 {
		t.Errorf("MeshA = %v, want [1 2]", out.MeshA)
	}
	if out.XFeas == nil || out.XFeas.Coords.Values()[0] != 1 {
		t.Fatalf("XFeas not round-tripped: %+v", out.XFeas)
	}
	if out.XInf == nil || out.XInf.Coords.Values()[0] != 3 {
		t.Fatalf("XInf not round-tripped: %+v", out.XInf)
	}
}

func TestLoadStopsAndUngetsUnknownTag(t *testing.T) {
	data := "ITERATION_COUNT 3\nSOME_FUTURE_TAG abc\nNB_EVAL 9\n"
	out, err := Load(bytes.NewBufferString(data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.IterationCount != 3 {
		t.Errorf("IterationCount = %d, want 3", out.IterationCount)
	}
	// NB_EVAL after the unknown tag must NOT be consumed -- Load stops at
	// the first unrecognized tag rather than skipping over it.
	if out.NbEval != 0 {
		t.Errorf("NbEval = %d, want 0 (stream should stop before it)", out.NbEval)
	}
}

func TestLoadWithNoIncumbents(t *testing.T) {
	var in State
	in.IterationCount = 1
	var buf bytes.Buffer
	if err := Save(&buf, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.XFeas != nil || out.XInf != nil {
		t.Errorf("expected nil incumbents, got XFeas=%v XInf=%v", out.XFeas, out.XInf)
	}
}
