package observables

import (
	"math"
	"testing"

	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/phonon"
	"github.com/cwbudde/freepaths/scatter"
)

func TestDepositThermalIgnoresOutOfRange(t *testing.T) {
	cfg := config.NewDefault()
	a := New(cfg)
	a.DepositThermal(-cfg.Width, -1, 5e12) // wildly out of range
	if a.SumThermalMap() != 0 {
		t.Fatalf("expected no deposit for out-of-range position, got %g", a.SumThermalMap())
	}
}

// TestEnergyConservation is invariant 7 of §8: the sum of thermal_map
// equals N_successful_phonons * <h-bar*omega> within rounding, when
// every phonon deposits exactly once.
func TestEnergyConservation(t *testing.T) {
	cfg := config.NewDefault()
	a := New(cfg)

	freqs := []float64{1e12, 2e12, 3e12, 4e12}
	for _, f := range freqs {
		a.DepositThermal(0, cfg.Length/2, f)
	}

	var wantSum float64
	for _, f := range freqs {
		wantSum += hbar * twoPi * f
	}
	got := a.SumThermalMap()
	if math.Abs(got-wantSum)/wantSum > 1e-9 {
		t.Fatalf("thermal map sum %g != expected %g", got, wantSum)
	}
}

func TestRecordScatterEventIndices(t *testing.T) {
	cfg := config.NewDefault()
	a := New(cfg)
	a.RecordScatterEvent(scatter.ClassWall, scatter.Specular)
	a.RecordScatterEvent(scatter.ClassWall, scatter.Diffuse)
	a.RecordScatterEvent(scatter.ClassPillar, scatter.Diffuse)
	a.RecordReinit()
	a.RecordInternal()

	if a.ScatterEventCounts[EvtWallSpecular] != 1 {
		t.Fatal("expected one wall-specular event")
	}
	if a.ScatterEventCounts[EvtWallDiffuse] != 1 {
		t.Fatal("expected one wall-diffuse event")
	}
	if a.ScatterEventCounts[EvtPillarDiffuse] != 1 {
		t.Fatal("expected one pillar-diffuse event")
	}
	if a.ScatterEventCounts[EvtReinit] != 1 {
		t.Fatal("expected one reinit event")
	}
	if a.ScatterEventCounts[EvtInternal] != 1 {
		t.Fatal("expected one internal event")
	}
}

func TestMergeIsAdditiveAndCommutative(t *testing.T) {
	cfg := config.NewDefault()
	a := New(cfg)
	b := New(cfg)

	a.DepositThermal(0, cfg.Length/2, 1e12)
	b.DepositThermal(0, cfg.Length/2, 2e12)
	a.RecordScatterEvent(scatter.ClassHole, scatter.Specular)
	b.RecordScatterEvent(scatter.ClassHole, scatter.Specular)
	a.RecordFlight(&phonon.FlightRecord{Exited: true, FreePaths: []float64{1, 2}, Freq: 1e12, Vg: 6000})
	b.RecordFlight(&phonon.FlightRecord{Failed: true})

	merged := New(cfg)
	merged.Merge(a)
	merged.Merge(b)

	wantSum := hbar * twoPi * (1e12 + 2e12)
	if math.Abs(merged.SumThermalMap()-wantSum) > 1e-30 {
		t.Fatalf("merged thermal sum = %g, want %g", merged.SumThermalMap(), wantSum)
	}
	if merged.ScatterEventCounts[EvtHoleSpecular] != 2 {
		t.Fatal("expected merged hole-specular count of 2")
	}
	if merged.FailedFlights != 1 {
		t.Fatal("expected one failed flight after merge")
	}
	if merged.SuccessfulFlights != 1 {
		t.Fatal("expected one successful flight after merge")
	}
	if len(merged.FreePaths) != 2 {
		t.Fatalf("expected 2 free paths after merge, got %d", len(merged.FreePaths))
	}

	reversed := New(cfg)
	reversed.Merge(b)
	reversed.Merge(a)
	if reversed.SumThermalMap() != merged.SumThermalMap() {
		t.Fatalf("merge order changed thermal sum: %g vs %g", reversed.SumThermalMap(), merged.SumThermalMap())
	}
	if reversed.ScatterEventCounts != merged.ScatterEventCounts {
		t.Fatal("merge order changed scatter event counts")
	}
}

func TestConductivityContributionZeroForNonSweepPhonon(t *testing.T) {
	cfg := config.NewDefault()
	rec := &phonon.FlightRecord{Freq: 5e12, Vg: 6000, MeanFreePath: 1e-7}
	if c := conductivityContribution(cfg, rec); c != 0 {
		t.Fatalf("expected zero contribution without Dk, got %g", c)
	}
}

func TestConductivityContributionPositiveForSweepPhonon(t *testing.T) {
	cfg := config.NewDefault()
	rec := &phonon.FlightRecord{Freq: 5e12, Vg: 6000, MeanFreePath: 1e-7, K: 1e8, Dk: 1e6}
	c := conductivityContribution(cfg, rec)
	if c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
		t.Fatalf("expected positive finite contribution, got %g", c)
	}
}
