package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/params"
)

// Config is the flat, exported-field JSON scenario format the CLI driver
// loads, grounded on scen.Scenario's json.Unmarshal-onto-a-struct
// convention rather than a generic key-value parameter-file parser (the
// core module's explicit non-goal on parsing; this layer sits outside
// that boundary).
type Config struct {
	Dimension    int
	X0           [][]float64
	LowerBound   []float64
	UpperBound   []float64
	Granularity  []float64
	BBOutputType []string // "OBJ", "PB", "EB", "RPB", "STAT"

	InitialFrameSize []float64
	MinFrameSize     []float64

	BBExe  string
	BBArgs []string

	MaxBBEval     int
	MaxIterations int
	MaxTime       float64
	Seed          int64
	HMax0         float64

	OpportunisticEval bool
	EvalUseCache      bool

	SpeculativeSearch bool
	LHSearch          bool
	NMSearch          bool
	QuadModelSearch   bool
	VNSMadsSearch     bool
	VNSTrigger        float64

	StopIfFeasible bool

	LinearConstraintA [][]float64
	LinearConstraintB []float64

	CacheFile   string
	HistoryFile string
	StatsFile   string

	HotRestartReadFiles []string
	HotRestartWriteFile string
}

// Load reads fname as JSON into cfg and validates it, mirroring
// scen.Scenario.Load's read-then-validate shape. It fills in no defaults:
// any field the file leaves out stays zero.
func (cfg *Config) Load(fname string) error {
	data, err := ioutil.ReadFile(fname)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%s: %w", fname, err)
	}
	return cfg.validate()
}

func (cfg *Config) validate() error {
	if cfg.Dimension <= 0 {
		return fmt.Errorf("config: DIMENSION must be positive, got %d", cfg.Dimension)
	}
	if len(cfg.X0) == 0 {
		return fmt.Errorf("config: at least one X0 starting point is required")
	}
	if cfg.BBExe == "" {
		return fmt.Errorf("config: BBEXE is required (path to the blackbox executable)")
	}
	return nil
}

var outputTypeNames = map[string]bbo.OutputType{
	"OBJ":  bbo.Obj,
	"PB":   bbo.PB,
	"EB":   bbo.EB,
	"RPB":  bbo.RPB,
	"STAT": bbo.Stat,
	"CNT":  bbo.Cnt,
}

func parseOutputTypes(names []string) (bbo.TypeList, error) {
	if len(names) == 0 {
		return bbo.TypeList{bbo.Obj}, nil
	}
	out := make(bbo.TypeList, len(names))
	for i, n := range names {
		t, ok := outputTypeNames[n]
		if !ok {
			return nil, fmt.Errorf("config: unknown BB_OUTPUT_TYPE %q", n)
		}
		out[i] = t
	}
	return out, nil
}

// buildParams translates cfg into the core module's params.Params, the
// boundary between this CLI's JSON surface and the library's typed
// parameter struct.
func buildParams(cfg *Config) (params.Params, error) {
	p := params.NewDefault(cfg.Dimension)
	p.X0 = cfg.X0
	p.LowerBound = cfg.LowerBound
	p.UpperBound = cfg.UpperBound
	p.Granularity = cfg.Granularity
	p.InitialFrameSize = cfg.InitialFrameSize
	p.MinFrameSize = cfg.MinFrameSize

	types, err := parseOutputTypes(cfg.BBOutputType)
	if err != nil {
		return p, err
	}
	p.BBOutputType = types

	if cfg.MaxBBEval > 0 {
		p.MaxBBEval = cfg.MaxBBEval
	}
	if cfg.MaxIterations > 0 {
		p.MaxIterations = cfg.MaxIterations
	}
	if cfg.MaxTime > 0 {
		p.MaxTime = cfg.MaxTime
	}
	if cfg.HMax0 > 0 {
		p.HMax0 = cfg.HMax0
	}
	p.Seed = cfg.Seed

	p.OpportunisticEval = cfg.OpportunisticEval
	p.EvalUseCache = cfg.EvalUseCache
	p.SpeculativeSearch = cfg.SpeculativeSearch
	p.LHSearch = cfg.LHSearch
	p.NMSearch = cfg.NMSearch
	p.QuadModelSearch = cfg.QuadModelSearch
	p.VNSMadsSearch = cfg.VNSMadsSearch
	p.VNSTrigger = cfg.VNSTrigger
	p.StopIfFeasible = cfg.StopIfFeasible
	p.LinearConstraintA = cfg.LinearConstraintA
	p.LinearConstraintB = cfg.LinearConstraintB

	p.CacheFile = cfg.CacheFile
	p.HistoryFile = cfg.HistoryFile
	p.StatsFile = cfg.StatsFile
	p.HotRestartReadFiles = cfg.HotRestartReadFiles
	p.HotRestartWriteFile = cfg.HotRestartWriteFile

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
