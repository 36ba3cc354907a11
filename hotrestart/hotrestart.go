// Package hotrestart implements the hot-restart file format of spec §6: a
// free-form key-tagged stream capturing enough of a MADS run's state
// (mesh, barrier incumbents, iteration count, eval counters, RNG state) to
// resume it. The format is original to this layer -- the teacher has no
// hot-restart equivalent to generalize from (plain bufio line reading is
// the only reasonable tool here, not a pack library, per DESIGN.md) -- but
// reuses cache.FormatPoint/ParsePoint for the X_FEAS/X_INF point records
// rather than inventing a second point-text grammar.
package hotrestart

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rwcarlsen/madsgo/cache"
	"github.com/rwcarlsen/madsgo/eval"
)

// State is everything Save/Load round-trip.
type State struct {
	IterationCount int

	// MeshA/MeshB/MeshB0 are mesh.Granular.State()'s raw mantissa/exponent
	// triple.
	MeshA, MeshB, MeshB0 []float64

	XFeas, XInf *eval.Point // nil if the barrier has no such incumbent

	HMax float64

	NbEval, NbBBEval int

	// RNGSeed/RNGCalls let the caller rebuild an equivalent *rand.Rand via
	// rand.New(rand.NewSource(RNGSeed)) and fast-forward it RNGCalls draws,
	// a cheaper stand-in for exposing math/rand's private internal state.
	RNGSeed  int64
	RNGCalls int64
}

// reader wraps bufio.Reader with one-line pushback ("ungetting"): when Load
// hits a tag it doesn't recognize, it ungets the line so a caller chaining
// multiple sections (or a newer format with extra trailing tags) can still
// read the rest of the stream.
type reader struct {
	br   *bufio.Reader
	held *string
}

func newReader(r io.Reader) *reader { return &reader{br: bufio.NewReader(r)} }

func (rd *reader) next() (string, bool, error) {
	if rd.held != nil {
		line := *rd.held
		rd.held = nil
		return line, true, nil
	}
	line, err := rd.br.ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if err == io.EOF {
		if line == "" {
			return "", false, nil
		}
		return line, true, nil
	}
	if err != nil {
		return "", false, err
	}
	return line, true, nil
}

func (rd *reader) unget(line string) { rd.held = &line }

// Save writes s in the hot-restart key-tagged stream format.
func Save(w io.Writer, s State) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "MEGA_ITERATION %d\n", s.IterationCount)
	fmt.Fprintf(bw, "MAIN_MESH %s | %s | %s\n",
		joinFloats(s.MeshA), joinFloats(s.MeshB), joinFloats(s.MeshB0))
	fmt.Fprintf(bw, "ITERATION_COUNT %d\n", s.IterationCount)

	fmt.Fprintln(bw, "BARRIER")
	if s.XFeas != nil {
		fmt.Fprintf(bw, "X_FEAS %s\n", cache.FormatPoint(s.XFeas))
	}
	if s.XInf != nil {
		fmt.Fprintf(bw, "X_INF %s\n", cache.FormatPoint(s.XInf))
	}
	fmt.Fprintf(bw, "H_MAX %s\n", strconv.FormatFloat(s.HMax, 'g', -1, 64))

	fmt.Fprintf(bw, "NB_EVAL %d\n", s.NbEval)
	fmt.Fprintf(bw, "NB_BB_EVAL %d\n", s.NbBBEval)
	fmt.Fprintf(bw, "RNG %d %d 0\n", s.RNGSeed, s.RNGCalls)

	return bw.Flush()
}

// Load reads a hot-restart stream previously written by Save. Lines with
// an unrecognized tag are ungot and Load stops, returning the state
// accumulated so far -- a malformed or truncated tail doesn't lose
// everything read up to that point.
func Load(r io.Reader) (State, error) {
	var s State
	rd := newReader(r)

	for {
		line, ok, err := rd.next()
		if err != nil {
			return s, err
		}
		if !ok {
			return s, nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tag, rest := splitTag(line)
		switch tag {
		case "MEGA_ITERATION":
			// informational only; ITERATION_COUNT is authoritative.
		case "MAIN_MESH":
			a, b, b0, err := parseMesh(rest)
			if err != nil {
				return s, err
			}
			s.MeshA, s.MeshB, s.MeshB0 = a, b, b0
		case "ITERATION_COUNT":
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return s, fmt.Errorf("hotrestart: ITERATION_COUNT: %w", err)
			}
			s.IterationCount = n
		case "BARRIER":
			// section marker only; X_FEAS/X_INF/H_MAX follow.
		case "X_FEAS":
			p, err := cache.ParsePoint(strings.TrimSpace(rest))
			if err != nil {
				return s, fmt.Errorf("hotrestart: X_FEAS: %w", err)
			}
			s.XFeas = p
		case "X_INF":
			p, err := cache.ParsePoint(strings.TrimSpace(rest))
			if err != nil {
				return s, fmt.Errorf("hotrestart: X_INF: %w", err)
			}
			s.XInf = p
		case "H_MAX":
			v, err := strconv.ParseFloat(strings.TrimSpace(rest), 64)
			if err != nil {
				return s, fmt.Errorf("hotrestart: H_MAX: %w", err)
			}
			s.HMax = v
		case "NB_EVAL":
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return s, fmt.Errorf("hotrestart: NB_EVAL: %w", err)
			}
			s.NbEval = n
		case "NB_BB_EVAL":
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				return s, fmt.Errorf("hotrestart: NB_BB_EVAL: %w", err)
			}
			s.NbBBEval = n
		case "RNG":
			seed, calls, err := parseRNG(rest)
			if err != nil {
				return s, err
			}
			s.RNGSeed, s.RNGCalls = seed, calls
		default:
			rd.unget(line)
			return s, nil
		}
	}
}

func splitTag(line string) (tag, rest string) {
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return line, ""
	}
	return line[:i], line[i+1:]
}

func parseMesh(rest string) (a, b, b0 []float64, err error) {
	parts := strings.Split(rest, "|")
	if len(parts) != 3 {
		return nil, nil, nil, fmt.Errorf("hotrestart: malformed MAIN_MESH line %q", rest)
	}
	a, err = parseFloats(parts[0])
	if err != nil {
		return nil, nil, nil, err
	}
	b, err = parseFloats(parts[1])
	if err != nil {
		return nil, nil, nil, err
	}
	b0, err = parseFloats(parts[2])
	if err != nil {
		return nil, nil, nil, err
	}
	return a, b, b0, nil
}

func parseRNG(rest string) (seed, calls int64, err error) {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return 0, 0, fmt.Errorf("hotrestart: malformed RNG line %q", rest)
	}
	seed, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("hotrestart: RNG seed: %w", err)
	}
	calls, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("hotrestart: RNG calls: %w", err)
	}
	return seed, calls, nil
}

func joinFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("hotrestart: bad float %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}
