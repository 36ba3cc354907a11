// Package diag implements the optional history/stats sink of spec §6's
// HISTORY_FILE and STATS_FILE parameters: a sqlite-backed log of every
// evaluated trial point and periodic evaluation-count snapshots, grounded
// on the teacher's optim/pattern.go Method.initdb/updateDb (create tables
// if missing, batch inserts in a transaction) and optim/swarm.go's
// TblParticles family of per-iteration tables, adapted from those methods'
// own fixed schemas to the trial-point/stats shape this module produces.
package diag

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// TblHistory and TblStats are the table names Recorder creates, named in
// the plural-noun style of the teacher's TblPolls/TblInfo/TblParticles
// constants.
const (
	TblHistory = "history"
	TblStats   = "stats"
)

// Recorder is a nil-safe sqlite sink: a nil *Recorder's methods are no-ops,
// matching the teacher's "if m.Db == nil { return }" convention so callers
// don't need to branch on whether HISTORY_FILE/STATS_FILE were set.
type Recorder struct {
	db *sql.DB
}

// Open opens (creating if needed) a sqlite database at path and creates
// the history/stats tables if they don't already exist. path may be
// ":memory:" for a transient in-process recorder (used in tests).
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("diag: open %s: %w", path, err)
	}
	r := &Recorder{db: db}
	if err := r.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) initTables() error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + TblHistory + ` (
			iter INTEGER,
			mainthread INTEGER,
			stepkind INTEGER,
			feasible INTEGER,
			f REAL,
			h REAL,
			coords TEXT
		);`,
		"CREATE TABLE IF NOT EXISTS " + TblStats + ` (
			iter INTEGER,
			evaltype INTEGER,
			totalgenerated INTEGER,
			totalevals INTEGER
		);`,
	}
	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("diag: init tables: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database. A nil Recorder's Close is a no-op.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RecordPoint logs one evaluated trial point against ct, the HISTORY_FILE
// record spec §6 describes. A nil Recorder silently drops the record.
func (r *Recorder) RecordPoint(iter int, p *eval.Point, ct bbo.ComputeType) error {
	if r == nil || r.db == nil || p == nil {
		return nil
	}
	coords, err := json.Marshal(p.Coords.Values())
	if err != nil {
		return fmt.Errorf("diag: marshal coords: %w", err)
	}
	f, h := scalarValue(p.F(ct)), scalarValue(p.H(ct))
	_, err = r.db.Exec(
		"INSERT INTO "+TblHistory+" (iter,mainthread,stepkind,feasible,f,h,coords) VALUES (?,?,?,?,?,?,?);",
		iter, p.MainThread, int(p.StepKind), boolToInt(p.IsFeasible(ct)), f, h, string(coords),
	)
	if err != nil {
		return fmt.Errorf("diag: insert history row: %w", err)
	}
	return nil
}

// RecordBatch logs every point in pts in a single transaction, the batched
// form of RecordPoint grounded on Method.updateDb's tx.Prepare/loop/Commit
// pattern rather than one autocommit insert per point.
func (r *Recorder) RecordBatch(iter int, pts []*eval.Point, ct bbo.ComputeType) error {
	if r == nil || r.db == nil || len(pts) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("diag: begin history tx: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO " + TblHistory + " (iter,mainthread,stepkind,feasible,f,h,coords) VALUES (?,?,?,?,?,?,?);")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("diag: prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pts {
		coords, err := json.Marshal(p.Coords.Values())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("diag: marshal coords: %w", err)
		}
		f, h := scalarValue(p.F(ct)), scalarValue(p.H(ct))
		if _, err := stmt.Exec(iter, p.MainThread, int(p.StepKind), boolToInt(p.IsFeasible(ct)), f, h, string(coords)); err != nil {
			tx.Rollback()
			return fmt.Errorf("diag: insert history row: %w", err)
		}
	}
	return tx.Commit()
}

// RecordStats logs s's total generated/evaluated counters for every
// evalType that has a nonzero count, the STATS_FILE snapshot spec §6
// describes.
func (r *Recorder) RecordStats(iter int, s *eval.TrialPointStats) error {
	if r == nil || r.db == nil || s == nil {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("diag: begin stats tx: %w", err)
	}
	stmt, err := tx.Prepare("INSERT INTO " + TblStats + " (iter,evaltype,totalgenerated,totalevals) VALUES (?,?,?,?);")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("diag: prepare stats insert: %w", err)
	}
	defer stmt.Close()

	for _, et := range []bbo.EvalType{bbo.EvalBB, bbo.EvalModel, bbo.EvalSurrogate} {
		tg, te := s.TotalGenerated(et), s.TotalEvals(et)
		if tg == 0 && te == 0 {
			continue
		}
		if _, err := stmt.Exec(iter, int(et), tg, te); err != nil {
			tx.Rollback()
			return fmt.Errorf("diag: insert stats row: %w", err)
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scalarValue(s scalarpt.Scalar) float64 {
	if !s.IsDefined() {
		return 0
	}
	return s.Value()
}
