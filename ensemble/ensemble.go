// Package ensemble implements the embarrassingly-parallel ensemble
// driver of component I: a worker pool draining phonon indices from a
// shared atomic cursor, one per-phonon random source seeded
// deterministically from (baseSeed, phononIndex), thread-local
// accumulators, and a single end-of-worker reduce.
package ensemble

import (
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/dispersion"
	"github.com/cwbudde/freepaths/geometry"
	"github.com/cwbudde/freepaths/observables"
	"github.com/cwbudde/freepaths/phonon"
	"github.com/cwbudde/freepaths/sampler"
	"github.com/cwbudde/freepaths/trajectory"
)

// RunResult bundles the ensemble's merged accumulators with the
// run-level metadata of §3's expanded data model.
type RunResult struct {
	Accumulator *observables.Accumulator
	Seed        int64
	Workers     int
	NumPhonons  int
	Elapsed     time.Duration
}

// Run drives cfg.NumPhonons (Planck mode) or 3*cfg.NumSweep (sweep
// mode, one lane per LA/TA/TA branch) independent flights across
// `workers` goroutines (0 selects runtime.GOMAXPROCS(0)), merging their
// thread-local accumulators into one RunResult. The random source for
// phonon i is always rand.New(rand.NewSource(baseSeed + i)), so a run
// with a fixed seed is reproducible independent of worker count
// (invariant 8 of §8).
func Run(cfg *config.Config, geom *geometry.Registry, tab *dispersion.Table, samp *sampler.Sampler, baseSeed int64, workers int) *RunResult {
	start := time.Now()

	branches := [3]dispersion.Branch{dispersion.LA, dispersion.TA, dispersion.TA}
	total := cfg.NumPhonons
	if cfg.SamplingMode == config.SweepMode {
		total = len(branches) * cfg.NumSweep
	}

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	var cursor atomic.Int64
	var mu sync.Mutex
	merged := observables.New(cfg)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := observables.New(cfg)

			for {
				i := cursor.Add(1) - 1
				if i >= int64(total) {
					break
				}

				rng := rand.New(rand.NewSource(baseSeed + i))

				var (
					p   *phonon.Phonon
					err error
				)
				if cfg.SamplingMode == config.SweepMode {
					branch := branches[int(i)/cfg.NumSweep]
					sweepIdx := int(i) % cfg.NumSweep
					p, err = samp.SampleSweep(rng, branch, sweepIdx, cfg.NumSweep)
				} else {
					p, err = samp.SamplePlanck(rng)
				}
				if err != nil {
					local.FailedFlights++
					continue
				}

				trajectory.Drive(cfg, geom, samp, p, local, rng)
			}

			mu.Lock()
			merged.Merge(local)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return &RunResult{
		Accumulator: merged,
		Seed:        baseSeed,
		Workers:     workers,
		NumPhonons:  total,
		Elapsed:     time.Since(start),
	}
}
