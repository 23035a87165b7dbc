// Command freepaths runs one ensemble of phonon flights through a
// nanostructured thin-film configuration and writes the aggregate
// observables to an output directory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	fitcommon "github.com/cwbudde/freepaths/internal/fitcommon"

	"github.com/cwbudde/freepaths/analysis"
	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/dispersion"
	"github.com/cwbudde/freepaths/dsp"
	"github.com/cwbudde/freepaths/ensemble"
	"github.com/cwbudde/freepaths/geometry"
	"github.com/cwbudde/freepaths/observables"
	"github.com/cwbudde/freepaths/sampler"
	"github.com/cwbudde/freepaths/validate"
)

func main() {
	sampling := flag.String("sampling", "planck", "Phonon sampling mode: planck or sweep")
	seed := flag.Int64("seed", 1, "Base random seed")
	workers := flag.String("workers", "auto", "Parallel workers (number or 'auto')")
	diagnostics := flag.Bool("diagnostics", false, "Run the diffusive cross-check and distribution diagnostics")
	dispersionPoints := flag.Int("dispersion-points", 2000, "Number of k-grid points built for the dispersion table")
	smooth := flag.Float64("smooth", 0, "Zero-phase low-pass cutoff (cycles per map pixel, in (0, 0.5); 0 disables) applied to the written thermal map")
	out := flag.String("out", "out", "Output directory for result files")
	flag.Parse()

	if flag.NArg() != 1 {
		die("usage: freepaths [flags] <config.json>")
	}
	configPath := flag.Arg(0)

	numWorkers, err := fitcommon.ParseWorkers(*workers)
	if err != nil {
		die("invalid --workers: %v", err)
	}

	cfg, err := config.LoadJSON(configPath)
	if err != nil {
		die("failed to load config %q: %v", configPath, err)
	}

	switch *sampling {
	case "planck":
		cfg.SamplingMode = config.PlanckMode
	case "sweep":
		cfg.SamplingMode = config.SweepMode
	default:
		die("unknown --sampling %q (expected planck|sweep)", *sampling)
	}

	geom := geometry.Build(cfg)
	tab, err := dispersion.Build(cfg.Dispersion, *dispersionPoints)
	if err != nil {
		die("failed to build dispersion table: %v", err)
	}
	samp := sampler.New(cfg, tab)

	fmt.Printf("Running %d phonons (sampling=%s, workers=%s, seed=%d)...\n", cfg.NumPhonons, *sampling, *workers, *seed)

	result := ensemble.Run(cfg, geom, tab, samp, *seed, numWorkers)
	acc := result.Accumulator

	fmt.Printf("Done in %s: %d successful flights, %d failed\n", result.Elapsed, acc.SuccessfulFlights, acc.FailedFlights)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		die("failed to create output directory %q: %v", *out, err)
	}

	if err := writeThermalMap(filepath.Join(*out, "thermal_map.csv"), acc, float32(*smooth)); err != nil {
		die("failed to write thermal map: %v", err)
	}
	if err := writeProfiles(filepath.Join(*out, "profiles.csv"), acc); err != nil {
		die("failed to write profiles: %v", err)
	}
	if err := writeScatterEvents(filepath.Join(*out, "scattering_events.json"), acc); err != nil {
		die("failed to write scattering events: %v", err)
	}

	kappa := estimateConductivity(cfg, acc)

	summary := buildSummary(cfg, result, kappa)
	if *diagnostics {
		runDiagnostics(cfg, acc, kappa, summary)
	}

	if err := writeJSON(filepath.Join(*out, "summary.json"), summary); err != nil {
		die("failed to write summary: %v", err)
	}

	fmt.Printf("Wrote results to %s\n", *out)
}

type summaryDoc struct {
	Seed                int64   `json:"seed"`
	Workers             int     `json:"workers"`
	NumPhonons          int     `json:"num_phonons"`
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
	SuccessfulFlights   int64   `json:"successful_flights"`
	FailedFlights       int64   `json:"failed_flights"`
	ConductivitySum     float64 `json:"conductivity_sum_w_per_m_k,omitempty"`
	EstimatedKappa      float64 `json:"estimated_kappa_w_per_m_k,omitempty"`
	DiffusiveRatio      float64 `json:"diffusive_ratio,omitempty"`
	DiffusiveTimescale  float64 `json:"diffusive_timescale_s,omitempty"`
	FreePathKSDistance  float64 `json:"free_path_ks_distance,omitempty"`
	ThermalMapAutocorr8 float64 `json:"thermal_map_autocorr_lag8,omitempty"`
}

func buildSummary(cfg *config.Config, result *ensemble.RunResult, kappa float64) *summaryDoc {
	acc := result.Accumulator
	return &summaryDoc{
		Seed:              result.Seed,
		Workers:           result.Workers,
		NumPhonons:        result.NumPhonons,
		ElapsedSeconds:    result.Elapsed.Seconds(),
		SuccessfulFlights: acc.SuccessfulFlights,
		FailedFlights:     acc.FailedFlights,
		ConductivitySum:   acc.ConductivitySum,
		EstimatedKappa:    kappa,
	}
}

// estimateConductivity returns the sweep-mode conductivity estimate, or
// zero outside sweep mode (the contribution is zero for every phonon
// there, per observables.RecordFlight).
func estimateConductivity(cfg *config.Config, acc *observables.Accumulator) float64 {
	if cfg.SamplingMode != config.SweepMode {
		return 0
	}
	return acc.ConductivitySum
}

func runDiagnostics(cfg *config.Config, acc *observables.Accumulator, kappa float64, summary *summaryDoc) {
	if kappa > 0 {
		report, err := validate.Check(cfg, kappa)
		if err != nil {
			fmt.Fprintf(os.Stderr, "diagnostics: diffusive cross-check skipped: %v\n", err)
		} else {
			summary.DiffusiveRatio = report.Ratio
			summary.DiffusiveTimescale = report.DiffusiveTimescale
			fmt.Printf("Diffusive cross-check: timescale=%.3es simulated=%.3es ratio=%.3f\n", report.DiffusiveTimescale, report.SimulatedDuration, report.Ratio)
		}
	}

	if len(acc.FreePaths) > 0 {
		d, err := analysis.FreePathKSDistance(acc.FreePaths)
		if err != nil {
			fmt.Fprintf(os.Stderr, "diagnostics: free-path KS distance skipped: %v\n", err)
		} else {
			summary.FreePathKSDistance = d
			fmt.Printf("Free-path KS distance from exponential: %.4f\n", d)
		}
	}

	if len(acc.ThermalMap) > 0 {
		mid := acc.ThermalMap[len(acc.ThermalMap)/2]
		corr, err := analysis.Autocorrelation(mid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "diagnostics: thermal map autocorrelation skipped: %v\n", err)
		} else if len(corr) > 8 {
			summary.ThermalMapAutocorr8 = corr[8]
		}
	}
}

func writeThermalMap(path string, acc *observables.Accumulator, smoothCutoff float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, row := range acc.ThermalMap {
		out := row
		if smoothCutoff > 0 {
			out = dsp.SmoothRow(row, smoothCutoff)
		}
		for i, v := range out {
			if i > 0 {
				fmt.Fprint(f, ",")
			}
			fmt.Fprintf(f, "%g", v)
		}
		fmt.Fprint(f, "\n")
	}
	return nil
}

func writeProfiles(path string, acc *observables.Accumulator) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "node,frame,flux_x,temp_x,flux_y,temp_y")
	for i := range acc.FluxProfileX {
		for j := range acc.FluxProfileX[i] {
			fmt.Fprintf(f, "%d,%d,%g,%g,%g,%g\n", i, j, acc.FluxProfileX[i][j], acc.TempProfileX[i][j], acc.FluxProfileY[i][j], acc.TempProfileY[i][j])
		}
	}
	return nil
}

type scatterEventsDoc struct {
	WallSpecular      int64 `json:"wall_specular"`
	WallDiffuse       int64 `json:"wall_diffuse"`
	TopBottomSpecular int64 `json:"top_bottom_specular"`
	TopBottomDiffuse  int64 `json:"top_bottom_diffuse"`
	HoleSpecular      int64 `json:"hole_specular"`
	HoleDiffuse       int64 `json:"hole_diffuse"`
	PillarSpecular    int64 `json:"pillar_specular"`
	PillarDiffuse     int64 `json:"pillar_diffuse"`
	Reinit            int64 `json:"reinit"`
	Internal          int64 `json:"internal"`
}

func writeScatterEvents(path string, acc *observables.Accumulator) error {
	c := acc.ScatterEventCounts
	doc := scatterEventsDoc{
		WallSpecular:      c[observables.EvtWallSpecular],
		WallDiffuse:       c[observables.EvtWallDiffuse],
		TopBottomSpecular: c[observables.EvtTopBottomSpecular],
		TopBottomDiffuse:  c[observables.EvtTopBottomDiffuse],
		HoleSpecular:      c[observables.EvtHoleSpecular],
		HoleDiffuse:       c[observables.EvtHoleDiffuse],
		PillarSpecular:    c[observables.EvtPillarSpecular],
		PillarDiffuse:     c[observables.EvtPillarDiffuse],
		Reinit:            c[observables.EvtReinit],
		Internal:          c[observables.EvtInternal],
	}
	return writeJSON(path, doc)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "freepaths: "+format+"\n", args...)
	os.Exit(1)
}
