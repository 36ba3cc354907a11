// Command madsgo runs a MADS optimization against an external blackbox
// executable, reading its problem/run configuration from a JSON scenario
// file -- the CLI surface around the core module, grounded on
// pswarmdriver's flat flag-parsed main (flag vars, log.SetFlags(0),
// signal-triggered early exit with a final summary) rather than the
// teacher's gRPC/dashboard job-queue server, which this module has no
// equivalent of.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rwcarlsen/madsgo/barrier"
	"github.com/rwcarlsen/madsgo/bbeval"
	"github.com/rwcarlsen/madsgo/cache"
	"github.com/rwcarlsen/madsgo/control"
	"github.com/rwcarlsen/madsgo/diag"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/hotrestart"
	"github.com/rwcarlsen/madsgo/mads"
	"github.com/rwcarlsen/madsgo/phaseone"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

var (
	configFile = flag.String("config", "problem.json", "JSON scenario file describing the problem/run parameters")
	workers    = flag.Int("workers", 1, "number of concurrent blackbox evaluation workers")
	seed       = flag.Int64("seed", 0, "RNG seed override (0 => use the value from -config)")
)

func init() {
	log.SetFlags(0)
	flag.Usage = func() {
		log.Printf("Usage: madsgo [opts]\n")
		log.Println("Runs a MADS optimization against an external blackbox executable.")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	cfg := &Config{}
	check(cfg.Load(*configFile))
	if *seed != 0 {
		cfg.Seed = *seed
	}

	p, err := buildParams(cfg)
	check(err)

	c := cache.New(0)
	if p.CacheFile != "" {
		if f, err := os.Open(p.CacheFile); err == nil {
			_, err := cache.ReadText(f, c)
			f.Close()
			check(err)
		}
	}

	ctl := control.NewController(c)
	ev := bbeval.NewExecEvaluator(p.BBOutputType, cfg.BBExe, cfg.BBArgs...)

	rec, err := openRecorder(p.HistoryFile)
	check(err)
	defer rec.Close()

	a := mads.NewAlgorithm(p, ctl, ev, 1, nil)
	applyHotRestart(a, p.HotRestartReadFiles)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctl.RunWorker(ctx, ev, scalarpt.PosInf())
		}()
	}

	start := time.Now()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Println("\n*** madsgo interrupted, saving hot-restart state ***")
		saveHotRestart(a, p.HotRestartWriteFile)
		report(a, start)
		cancel()
		wg.Wait()
		os.Exit(1)
	}()

	run(ctx, a, ctl, ev)
	cancel()
	wg.Wait()

	// The cache holds every trial point evaluated over the whole run with
	// its full record, so the history log is written from it in one pass
	// at the end rather than threaded through mads's iteration internals.
	rec.RecordBatch(a.IterationCount, c.All(), a.ComputeType)
	rec.RecordStats(a.IterationCount, a.Stats())

	if p.HotRestartWriteFile != "" {
		saveHotRestart(a, p.HotRestartWriteFile)
	}
	if p.CacheFile != "" {
		writeCache(c, p.CacheFile)
	}
	report(a, start)
}

// run drives a's lifecycle manually rather than through RunToCompletion,
// so an EB-infeasible starting point can be handed to a phase-one
// sub-algorithm before the main search loop begins -- mads can't do this
// itself since phaseone imports mads (the dependency only runs one way).
func run(ctx context.Context, a *mads.Algorithm, ctl *control.Controller, ev bbeval.Evaluator) {
	a.Start()

	if !a.StopReasons().ShouldStop() && !ebFeasible(a) {
		fmt.Println("starting point violates extreme-barrier constraints, running phase one")
		w := phaseone.NewWrapper(a, ctl, ev, a.MainThread+1000, a.Center.Coords.Values())
		w.Run()
		if bf := a.Barrier.BestFeas(); bf != nil {
			a.Center = bf
		}
	}

	ok := false
	if !a.StopReasons().ShouldStop() {
		ok = a.Run()
	}
	a.End()
	if ok {
		a.SetSuccess(barrier.FullSuccess)
	} else {
		a.SetSuccess(barrier.Unsuccessful)
	}
}

// ebFeasible reports whether a's current frame center satisfies every
// extreme-barrier constraint under the algorithm's (standard) compute
// type -- H collapses to +Inf the moment any EB constraint is violated.
func ebFeasible(a *mads.Algorithm) bool {
	if a.Center == nil {
		return false
	}
	h := a.Center.H(a.ComputeType)
	return h.IsDefined() && !math.IsInf(h.Value(), 1)
}

func openRecorder(path string) (*diag.Recorder, error) {
	if path == "" {
		return nil, nil
	}
	return diag.Open(path)
}

func applyHotRestart(a *mads.Algorithm, files []string) {
	for _, fname := range files {
		f, err := os.Open(fname)
		if err != nil {
			log.Printf("hot-restart: %v", err)
			continue
		}
		st, err := hotrestart.Load(f)
		f.Close()
		if err != nil {
			log.Printf("hot-restart: %v", err)
			continue
		}
		a.IterationCount = st.IterationCount
		if len(st.MeshA) == a.Mesh.N {
			a.Mesh.RestoreState(st.MeshA, st.MeshB, st.MeshB0)
		}
		a.Barrier.HMax = scalarpt.Of(st.HMax)
		if st.XFeas != nil {
			a.Barrier.UpdateWithPoints([]*eval.Point{st.XFeas}, false, true)
		}
		if st.XInf != nil {
			a.Barrier.UpdateWithPoints([]*eval.Point{st.XInf}, false, true)
		}
		a.RestoreRNG(st.RNGSeed, st.RNGCalls)
	}
}

func saveHotRestart(a *mads.Algorithm, fname string) {
	if fname == "" {
		return
	}
	f, err := os.Create(fname)
	if err != nil {
		log.Printf("hot-restart: %v", err)
		return
	}
	defer f.Close()

	meshA, meshB, meshB0 := a.Mesh.State()
	st := hotrestart.State{
		IterationCount: a.IterationCount,
		MeshA:          meshA,
		MeshB:          meshB,
		MeshB0:         meshB0,
		XFeas:          a.Barrier.BestFeas(),
		XInf:           a.Barrier.BestInf(),
		HMax:           a.Barrier.HMax.Value(),
		RNGSeed:        a.Params.Seed,
	}
	if mt := a.Ctl.Thread(a.MainThread); mt != nil {
		st.NbEval = mt.Budgets.NbEval
		st.NbBBEval = mt.Budgets.BBEval
	}
	if err := hotrestart.Save(f, st); err != nil {
		log.Printf("hot-restart: %v", err)
	}
}

func writeCache(c *cache.Cache, fname string) {
	f, err := os.Create(fname)
	if err != nil {
		log.Printf("cache: %v", err)
		return
	}
	defer f.Close()
	if err := c.WriteText(f); err != nil {
		log.Printf("cache: %v", err)
	}
}

func report(a *mads.Algorithm, start time.Time) {
	elapsed := time.Since(start)
	fmt.Printf("%v iterations, %v elapsed\n", a.IterationCount, elapsed)
	fmt.Printf("stop reason: %v\n", a.StopReasons().Get())
	if bf := a.Barrier.BestFeas(); bf != nil {
		fmt.Printf("best feasible: x=%v f=%v\n", bf.Coords.Values(), bf.F(a.ComputeType))
	} else {
		fmt.Println("best feasible: none found")
	}
	if bi := a.Barrier.BestInf(); bi != nil {
		fmt.Printf("best infeasible: x=%v f=%v h=%v\n", bi.Coords.Values(), bi.F(a.ComputeType), bi.H(a.ComputeType))
	}
}

func check(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
