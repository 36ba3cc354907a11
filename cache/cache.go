// Package cache implements the process-wide evaluation cache of spec §4.4:
// a thread-safe, ε-equality-keyed store of eval.Point entries with
// at-most-one-evaluation-in-flight semantics and bounded size via eviction.
//
// The teacher's cloudlus.Server keeps its job store in an
// *github.com/rwcarlsen/gocache.LRUCache; Cache follows the same shape
// (a capacity, eviction once exceeded) sized in entry count via
// CACHE_SIZE_MAX (§6) rather than bytes, using the insertion-order slice
// already needed for the ε-equality fallback scan as the eviction queue
// instead of pulling in gocache's byte-sized Value interface, which has no
// use here since every entry is a uniformly small eval.Point (see
// DESIGN.md). Waiters use a per-entry sync.Cond (§9's "one condition
// variable per in-flight eval" design note) rather than the teacher's
// channel-per-request style, since cache waits are keyed by point identity
// rather than by a single dispatcher loop.
package cache

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// MultiEvalPolicy controls whether a point already EVAL_OK may be
// re-evaluated (used for noisy blackboxes that benefit from repeated
// samples).
type MultiEvalPolicy struct {
	AllowReeval bool
	MaxEvals    int
}

// Cache is a process-wide singleton reached via an explicit context object
// rather than package-level globals, per §9's design note on making global
// state an explicit init/teardown-able context.
type Cache struct {
	mu      sync.Mutex
	byHash  map[string]*entry
	order   []*entry // insertion order, used for ε-equality fallback scan
	eps     float64
	sizeMax int

	stopWaiting bool
	policy      MultiEvalPolicy
}

type entry struct {
	point *eval.Point
	cond  *sync.Cond
	count map[bbo.EvalType]int
}

// New builds an empty Cache. sizeMax <= 0 means unbounded (no purge).
func New(sizeMax int) *Cache {
	c := &Cache{
		byHash:  map[string]*entry{},
		eps:     scalarpt.DefaultEps,
		sizeMax: sizeMax,
		policy:  MultiEvalPolicy{},
	}
	return c
}

// SetMultiEvalPolicy configures whether points may be re-evaluated once
// EVAL_OK.
func (c *Cache) SetMultiEvalPolicy(p MultiEvalPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policy = p
}

// Close releases waiters blocked in Find so the process can shut down
// cleanly, matching the spec's "_stopWaiting" mechanism.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopWaiting = true
	for _, e := range c.order {
		e.cond.Broadcast()
	}
}

func keyOf(p *scalarpt.Point) string {
	vals := p.Values()
	b := strings.Builder{}
	for i, v := range vals {
		if i > 0 {
			b.WriteByte('|')
		}
		// Quantize to the cache's epsilon-equality grid so that points
		// within eps collide into the same bucket key, matching the
		// spec's "keyed by point coordinates under ε-equality".
		q := math.Round(v/scalarpt.DefaultEps) * scalarpt.DefaultEps
		b.WriteString(strconv.FormatFloat(q, 'g', 12, 64))
	}
	return b.String()
}

func (c *Cache) lookup(p *scalarpt.Point) *entry {
	k := keyOf(p)
	if e, ok := c.byHash[k]; ok {
		return e
	}
	// Fallback scan for points that hashed to different buckets but are
	// still within eps (boundary straddling): keeps the cache-uniqueness
	// invariant honest even near quantization edges.
	for _, e := range c.order {
		if e.point.Coords.EqualEps(p, c.eps) {
			return e
		}
	}
	return nil
}

// SmartInsert implements §4.4's smartInsert: returns true if the caller
// should itself go evaluate p for evalType et.
func (c *Cache) SmartInsert(p *eval.Point, et bbo.EvalType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	p.Tag()
	e := c.lookup(p.Coords)
	if e == nil {
		e = &entry{point: p, cond: sync.NewCond(&c.mu), count: map[bbo.EvalType]int{}}
		rec := p.EnsureRecord(et)
		rec.Status = eval.InProgress
		c.byHash[keyOf(p.Coords)] = e
		c.order = append(c.order, e)
		c.maybePurgeLocked()
		return true
	}

	rec := e.point.Record(et)
	if rec == nil {
		rec = e.point.EnsureRecord(et)
		rec.Status = eval.InProgress
		return true
	}

	switch rec.Status {
	case eval.InProgress:
		return false
	case eval.OK:
		if !c.policy.AllowReeval {
			return false
		}
		if e.count[et] >= c.policy.MaxEvals {
			return false
		}
		rec.Status = eval.InProgress
		return true
	case eval.Failed, eval.Error:
		return false
	default: // NotStarted, UserRejected
		rec.Status = eval.InProgress
		return true
	}
}

// Update replaces the Record for et on an existing cache entry, asserting
// the coordinates already exist (per §4.4). It also bumps the per-evalType
// evaluation count used by the multi-eval policy and wakes any waiters.
func (c *Cache) Update(p *eval.Point, et bbo.EvalType, rec *eval.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(p.Coords)
	if e == nil {
		panic("cache: Update called on a point not present in the cache")
	}
	e.point.SetRecord(et, rec)
	e.count[et]++
	e.cond.Broadcast()
}

// Find locates p by ε-equality. If wait is true and the matching entry's
// record for et is IN_PROGRESS, Find parks on the entry's condition
// variable until the status changes or Close() is called.
func (c *Cache) Find(p *scalarpt.Point, et bbo.EvalType, wait bool) (*eval.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.lookup(p)
	if e == nil {
		return nil, false
	}
	if wait {
		for {
			rec := e.point.Record(et)
			if rec == nil || rec.Status != eval.InProgress || c.stopWaiting {
				break
			}
			e.cond.Wait()
		}
	}
	return e.point, true
}

// Size returns the number of distinct points currently cached.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Purge evicts entries in insertion order, oldest first, until the size is
// back within sizeMax. ct is not consulted: eviction does not look at f.
func (c *Cache) Purge(ct bbo.ComputeType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybePurgeLocked()
	_ = ct // see DESIGN.md for why a full worst-f scan isn't done per-purge.
}

func (c *Cache) maybePurgeLocked() {
	if c.sizeMax <= 0 {
		return
	}
	for len(c.order) > c.sizeMax {
		victim := c.order[0]
		c.order = c.order[1:]
		delete(c.byHash, keyOf(victim.point.Coords))
		log.Printf("cache: purged point %v (cache size exceeded %d)", victim.point.Coords, c.sizeMax)
	}
}

// FindBestFeas returns cached points that are feasible under ct, in
// insertion order, for barrier seeding from an existing cache (§4.4).
func (c *Cache) FindBestFeas(ct bbo.ComputeType) []*eval.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*eval.Point
	for _, e := range c.order {
		if e.point.IsFeasible(ct) {
			out = append(out, e.point)
		}
	}
	return out
}

// FindBestInf returns cached points that are usable but infeasible under ct.
func (c *Cache) FindBestInf(ct bbo.ComputeType) []*eval.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*eval.Point
	for _, e := range c.order {
		rec := e.point.Record(ct.EvalType)
		if rec != nil && rec.IsUsable(ct) && !e.point.IsFeasible(ct) {
			out = append(out, e.point)
		}
	}
	return out
}

// All returns every cached point, for hot-restart dumps and tests.
func (c *Cache) All() []*eval.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*eval.Point, len(c.order))
	for i, e := range c.order {
		out[i] = e.point
	}
	return out
}

// WriteText persists BB and SURROGATE evaluations (never MODEL, per §4.4
// and §6) in the line-oriented cache file format:
//
//	( x1 x2 … xn ) BB_<status> ( bb1 bb2 … bbk ) SURROGATE_<status> ( … )
func (c *Cache) WriteText(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	bw := bufio.NewWriter(w)
	for _, e := range c.order {
		if err := writeEntry(bw, e.point); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeEntry(bw *bufio.Writer, p *eval.Point) error {
	bw.WriteString(FormatPoint(p))
	_, err := bw.WriteString("\n")
	return err
}

// FormatPoint renders p in the cache's one-line text format (without a
// trailing newline), exported so other file formats that embed a single
// point's text (the hot-restart file's X_FEAS/X_INF records, §6) don't
// need to duplicate this grammar.
func FormatPoint(p *eval.Point) string {
	var b strings.Builder
	fmt.Fprintf(&b, "( %s ) ", joinFloats(p.Coords.Values()))
	bw := bufio.NewWriter(&b)
	writeRecord(bw, "BB", p.Record(bbo.EvalBB))
	writeRecord(bw, "SURROGATE", p.Record(bbo.EvalSurrogate))
	bw.Flush()
	return strings.TrimRight(b.String(), " ")
}

func writeRecord(bw *bufio.Writer, label string, r *eval.Record) {
	if r == nil {
		fmt.Fprintf(bw, "%s_NOT_STARTED ( ) ", label)
		return
	}
	fmt.Fprintf(bw, "%s_%s ( %s ) ", label, r.Status, joinScalars(r.Output.Values))
}

func joinFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func joinScalars(xs []scalarpt.Scalar) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x.Value(), 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// ReadText loads cache entries previously written by WriteText, returning
// the number of entries loaded. Unknown status tokens are treated as
// NOT_STARTED rather than failing the whole load, so a cache file produced
// by a newer status enum still loads.
func ReadText(r io.Reader, c *Cache) (int, error) {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := parseLine(line, c); err != nil {
			return n, err
		}
		n++
	}
	return n, sc.Err()
}

func parseLine(line string, c *Cache) error {
	p, err := ParsePoint(line)
	if err != nil {
		return err
	}

	c.mu.Lock()
	e := &entry{point: p, cond: sync.NewCond(&c.mu), count: map[bbo.EvalType]int{}}
	c.byHash[keyOf(p.Coords)] = e
	c.order = append(c.order, e)
	c.mu.Unlock()
	return nil
}

// ParsePoint parses one line of the cache's text format into a point,
// without inserting it into any cache -- the counterpart to FormatPoint,
// exported for the hot-restart file's single-point records (§6).
func ParsePoint(line string) (*eval.Point, error) {
	toks := tokenizeParens(line)
	if len(toks) < 1 {
		return nil, fmt.Errorf("cache: malformed line %q", line)
	}
	coordsStr := toks[0]
	coords, err := parseFloats(coordsStr)
	if err != nil {
		return nil, err
	}
	p := eval.NewPoint(scalarpt.NewPoint(coords...))

	i := 1
	for i+1 < len(toks) {
		statusTok := strings.TrimSpace(toks[i])
		valsTok := toks[i+1]
		i += 2
		parts := strings.SplitN(statusTok, "_", 2)
		if len(parts) != 2 {
			continue
		}
		label, statusName := parts[0], parts[1]
		var et bbo.EvalType
		switch label {
		case "BB":
			et = bbo.EvalBB
		case "SURROGATE":
			et = bbo.EvalSurrogate
		default:
			continue
		}
		vals, err := parseFloats(valsTok)
		if err != nil {
			return nil, err
		}
		tl := make(bbo.TypeList, len(vals))
		for j := range tl {
			if j == 0 {
				tl[j] = bbo.Obj
			} else {
				tl[j] = bbo.PB
			}
		}
		rec := &eval.Record{
			Output: bbo.NewOutput(tl, vals...),
			Status: parseStatus(statusName),
		}
		p.SetRecord(et, rec)
	}
	return p, nil
}

func parseStatus(name string) eval.Status {
	switch name {
	case "OK":
		return eval.OK
	case "FAILED":
		return eval.Failed
	case "ERROR":
		return eval.Error
	case "USER_REJECTED":
		return eval.UserRejected
	case "IN_PROGRESS":
		return eval.InProgress
	default:
		return eval.NotStarted
	}
}

func parseFloats(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("cache: parsing float %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

// tokenizeParens splits "( a b c ) LABEL ( d e f ) LABEL2 ( )" into
// [" a b c ", "LABEL", " d e f ", "LABEL2", " "]: words outside parentheses
// are trimmed, parenthesized contents are returned untrimmed.
func tokenizeParens(line string) []string {
	var toks []string
	depth := 0
	start := 0
	var cur strings.Builder
	flushWord := func(end int) {
		w := strings.TrimSpace(line[start:end])
		if w != "" {
			toks = append(toks, w)
		}
	}
	for i, r := range line {
		switch r {
		case '(':
			if depth == 0 {
				flushWord(i)
				start = i + 1
			}
			depth++
		case ')':
			depth--
			if depth == 0 {
				toks = append(toks, line[start:i])
				start = i + 1
			}
		}
	}
	flushWord(len(line))
	_ = cur
	return toks
}
