package validate

import (
	"math"
	"testing"

	"github.com/cwbudde/freepaths/config"
)

func TestCheckRejectsNonPositiveConductivity(t *testing.T) {
	cfg := config.NewDefault()
	if _, err := Check(cfg, 0); err == nil {
		t.Fatal("expected error for zero conductivity")
	}
	if _, err := Check(cfg, -5); err == nil {
		t.Fatal("expected error for negative conductivity")
	}
}

func TestCheckProducesFiniteReport(t *testing.T) {
	cfg := config.NewDefault()
	rep, err := Check(cfg, 150.0)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Diffusivity <= 0 || math.IsNaN(rep.Diffusivity) {
		t.Fatalf("bad diffusivity: %g", rep.Diffusivity)
	}
	if rep.SlowestEigenvalue <= 0 {
		t.Fatalf("expected a strictly positive eigenvalue, got %g", rep.SlowestEigenvalue)
	}
	if rep.DiffusiveTimescale <= 0 || math.IsInf(rep.DiffusiveTimescale, 0) {
		t.Fatalf("bad diffusive timescale: %g", rep.DiffusiveTimescale)
	}
	if rep.Ratio <= 0 {
		t.Fatalf("bad ratio: %g", rep.Ratio)
	}
}

func TestHigherConductivityGivesShorterTimescale(t *testing.T) {
	cfg := config.NewDefault()
	low, err := Check(cfg, 50.0)
	if err != nil {
		t.Fatal(err)
	}
	high, err := Check(cfg, 500.0)
	if err != nil {
		t.Fatal(err)
	}
	if high.DiffusiveTimescale >= low.DiffusiveTimescale {
		t.Fatalf("expected higher conductivity to shorten the diffusive timescale: low=%g high=%g", low.DiffusiveTimescale, high.DiffusiveTimescale)
	}
}
