// Command kappa-fit searches a configuration's surface-roughness
// parameters for the combination that drives the sweep-mode
// conductivity estimate closest to a target value.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/mayfly"

	fitcommon "github.com/cwbudde/freepaths/internal/fitcommon"

	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/dispersion"
	"github.com/cwbudde/freepaths/ensemble"
	"github.com/cwbudde/freepaths/geometry"
	"github.com/cwbudde/freepaths/sampler"
)

// roughnessKnob names one Roughness field searchable by kappa-fit.
type roughnessKnob struct {
	name string
	get  func(*config.Roughness) *float64
}

var allKnobs = []roughnessKnob{
	{"wall", func(r *config.Roughness) *float64 { return &r.Wall }},
	{"hole", func(r *config.Roughness) *float64 { return &r.Hole }},
	{"pillar", func(r *config.Roughness) *float64 { return &r.Pillar }},
	{"top", func(r *config.Roughness) *float64 { return &r.Top }},
	{"bottom", func(r *config.Roughness) *float64 { return &r.Bottom }},
	{"pillar-top", func(r *config.Roughness) *float64 { return &r.PillarTop }},
}

func main() {
	targetKappa := flag.Float64("target-kappa", 150.0, "Target conductivity in W/(m*K)")
	params := flag.String("params", "wall,hole", "Comma-separated roughness knobs to search: wall,hole,pillar,top,bottom,pillar-top")
	maxRoughness := flag.Float64("max-roughness", 50e-9, "Upper bound of searched roughness values, meters")
	seed := flag.Int64("seed", 1, "Random seed")
	workers := flag.String("workers", "auto", "Parallel Mayfly workers (number or 'auto')")
	timeBudget := flag.Float64("time-budget", 30.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 400, "Maximum objective evaluations")
	numSweep := flag.Int("num-sweep", 80, "Dispersion-sweep intervals per branch used during search (kept small for speed)")
	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 8, "Male and female population size per Mayfly round")
	out := flag.String("out", "", "Optional path to write the best-fit report JSON")
	flag.Parse()

	if flag.NArg() != 1 {
		die("usage: kappa-fit [flags] <config.json>")
	}
	configPath := flag.Arg(0)

	knobs, err := resolveKnobs(*params)
	if err != nil {
		die("invalid --params: %v", err)
	}

	numWorkers, err := fitcommon.ParseWorkers(*workers)
	if err != nil {
		die("invalid --workers: %v", err)
	}
	if numWorkers == 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	baseCfg, err := config.LoadJSON(configPath)
	if err != nil {
		die("failed to load config %q: %v", configPath, err)
	}
	baseCfg.SamplingMode = config.SweepMode
	baseCfg.NumSweep = *numSweep

	tab, err := dispersion.Build(baseCfg.Dispersion, 2000)
	if err != nil {
		die("failed to build dispersion table: %v", err)
	}

	result, err := search(searchConfig{
		baseCfg:       baseCfg,
		tab:           tab,
		knobs:         knobs,
		maxRoughness:  *maxRoughness,
		targetKappa:   *targetKappa,
		seed:          *seed,
		timeBudget:    *timeBudget,
		maxEvals:      *maxEvals,
		mayflyVariant: strings.ToLower(*mayflyVariant),
		mayflyPop:     *mayflyPop,
		workers:       numWorkers,
	})
	if err != nil {
		die("search failed: %v", err)
	}

	fmt.Printf("Best fit after %d evals (%.1fs): kappa=%.3f target=%.3f |diff|=%.3f\n",
		result.Evals, result.Elapsed, result.Kappa, *targetKappa, math.Abs(result.Kappa-*targetKappa))
	for name, v := range result.Roughness {
		fmt.Printf("  %-12s %.3e m\n", name, v)
	}

	if *out != "" {
		b, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			die("failed to marshal report: %v", err)
		}
		if err := os.WriteFile(*out, b, 0o644); err != nil {
			die("failed to write report %q: %v", *out, err)
		}
	}
}

func resolveKnobs(raw string) ([]roughnessKnob, error) {
	names := strings.Split(raw, ",")
	out := make([]roughnessKnob, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		found := false
		for _, k := range allKnobs {
			if k.name == n {
				out = append(out, k)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown roughness knob %q", n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one knob is required")
	}
	return out, nil
}

type searchConfig struct {
	baseCfg       *config.Config
	tab           *dispersion.Table
	knobs         []roughnessKnob
	maxRoughness  float64
	targetKappa   float64
	seed          int64
	timeBudget    float64
	maxEvals      int
	mayflyVariant string
	mayflyPop     int
	workers       int
}

type searchResult struct {
	Roughness map[string]float64 `json:"roughness"`
	Kappa     float64            `json:"kappa"`
	Evals     int                `json:"evals"`
	Elapsed   float64            `json:"elapsed_seconds"`
}

// search runs independent Mayfly rounds across sc.workers goroutines,
// each evaluating candidates by running a small sweep-mode ensemble and
// scoring |kappa - target|, mirroring the reference implementation's
// worker-pool-of-Mayfly-rounds pattern.
func search(sc searchConfig) (*searchResult, error) {
	start := time.Now()
	deadline := start.Add(time.Duration(sc.timeBudget * float64(time.Second)))

	var evals int64
	var mu sync.Mutex
	bestScore := math.Inf(1)
	bestVals := make([]float64, len(sc.knobs))
	bestKappa := 0.0

	geom := geometry.Build(sc.baseCfg)

	evaluate := func(vals []float64) float64 {
		cfg := *sc.baseCfg
		for i, knob := range sc.knobs {
			*knob.get(&cfg.Roughness) = vals[i] * sc.maxRoughness
		}
		samp := sampler.New(&cfg, sc.tab)
		res := ensemble.Run(&cfg, geom, sc.tab, samp, sc.seed, 1)
		kappa := res.Accumulator.ConductivitySum
		score := math.Abs(kappa - sc.targetKappa)

		mu.Lock()
		if score < bestScore {
			bestScore = score
			copy(bestVals, vals)
			bestKappa = kappa
		}
		mu.Unlock()
		return score
	}

	var wg sync.WaitGroup
	var rounds int64
	for w := 0; w < sc.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				if time.Now().After(deadline) {
					return
				}
				if atomic.LoadInt64(&evals) >= int64(sc.maxEvals) {
					return
				}
				round := atomic.AddInt64(&rounds, 1)
				remaining := sc.maxEvals - int(atomic.LoadInt64(&evals))
				if remaining <= 0 {
					return
				}
				iters := fitcommon.MaxInt(1, fitcommon.MinInt(remaining, sc.mayflyPop*4)/(2*sc.mayflyPop))

				mc, err := newMayflyConfig(sc.mayflyVariant, sc.mayflyPop, len(sc.knobs), iters)
				if err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d setup failed: %v\n", round, err)
					return
				}
				mc.Rand = rand.New(rand.NewSource(sc.seed + round*7919))
				mc.ObjectiveFunc = func(pos []float64) float64 {
					if time.Now().After(deadline) || atomic.LoadInt64(&evals) >= int64(sc.maxEvals) {
						return math.Inf(1)
					}
					atomic.AddInt64(&evals, 1)
					clamped := make([]float64, len(pos))
					for i, v := range pos {
						clamped[i] = fitcommon.Clamp(v, 0, 1)
					}
					return evaluate(clamped)
				}

				if _, err := mayfly.Optimize(mc); err != nil {
					fmt.Fprintf(os.Stderr, "mayfly round %d failed: %v\n", round, err)
				}
			}
		}(w)
	}
	wg.Wait()

	roughness := make(map[string]float64, len(sc.knobs))
	for i, knob := range sc.knobs {
		roughness[knob.name] = bestVals[i] * sc.maxRoughness
	}

	return &searchResult{
		Roughness: roughness,
		Kappa:     bestKappa,
		Evals:     int(atomic.LoadInt64(&evals)),
		Elapsed:   time.Since(start).Seconds(),
	}, nil
}

func newMayflyConfig(variant string, pop, dims, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = fitcommon.MaxInt(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "kappa-fit: "+format+"\n", args...)
	os.Exit(1)
}
