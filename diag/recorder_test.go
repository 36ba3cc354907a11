package diag

import (
	"database/sql"
	"testing"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

func samplePoint(x, y float64) *eval.Point {
	p := eval.NewPoint(scalarpt.NewPoint(x, y))
	p.MainThread = 1
	p.StepKind = eval.StepPoll
	rec := p.EnsureRecord(bbo.EvalBB)
	rec.Output = bbo.Output{
		Types:  bbo.TypeList{bbo.Obj},
		EvalOk: true,
		Values: []scalarpt.Scalar{scalarpt.Of(x*x + y*y)},
	}
	rec.Status = eval.OK
	return p
}

func TestRecorderNilIsNoop(t *testing.T) {
	var r *Recorder
	if err := r.RecordPoint(0, samplePoint(1, 2), bbo.Default()); err != nil {
		t.Fatalf("nil recorder RecordPoint returned error: %v", err)
	}
	if err := r.RecordBatch(0, []*eval.Point{samplePoint(1, 2)}, bbo.Default()); err != nil {
		t.Fatalf("nil recorder RecordBatch returned error: %v", err)
	}
	if err := r.RecordStats(0, eval.NewTrialPointStats()); err != nil {
		t.Fatalf("nil recorder RecordStats returned error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("nil recorder Close returned error: %v", err)
	}
}

func TestRecorderRecordsHistoryAndStats(t *testing.T) {
	r, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	ct := bbo.Default()
	pts := []*eval.Point{samplePoint(1, 2), samplePoint(0, 0)}
	if err := r.RecordBatch(3, pts, ct); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}

	var count int
	if err := queryCount(r, "SELECT COUNT(*) FROM "+TblHistory, &count); err != nil {
		t.Fatalf("count history rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 history rows, got %d", count)
	}

	stats := eval.NewTrialPointStats()
	stats.AddGenerated(bbo.EvalBB, 5)
	stats.AddEvals(bbo.EvalBB, 4)
	if err := r.RecordStats(3, stats); err != nil {
		t.Fatalf("RecordStats: %v", err)
	}
	if err := queryCount(r, "SELECT COUNT(*) FROM "+TblStats, &count); err != nil {
		t.Fatalf("count stats rows: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stats row, got %d", count)
	}
}

func queryCount(r *Recorder, q string, dst *int) error {
	// reach through the unexported db field via a same-package helper so
	// the test can assert on what was actually persisted.
	row := r.queryRow(q)
	return row.Scan(dst)
}

func (r *Recorder) queryRow(q string) *sql.Row {
	return r.db.QueryRow(q)
}
