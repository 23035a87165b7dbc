// Package validate implements the diffusive cross-check of component J:
// a finite-difference Dirichlet-boundary Laplacian eigen-spectrum over
// the slab's length gives the slowest-decaying diffusive mode, which is
// compared against the Monte Carlo run's conductivity converted to an
// equivalent diffusivity. It is a diagnostic, never a pass/fail gate —
// phonon transport in a nanostructured film is not strictly diffusive.
package validate

import (
	"fmt"

	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"

	"github.com/cwbudde/freepaths/config"
)

// Report summarizes the diffusive cross-check for one run.
type Report struct {
	Diffusivity        float64 // D = kappa / (rho * c_p), m^2/s
	SlowestEigenvalue  float64 // smallest positive Dirichlet eigenvalue of -d^2/dx^2
	DiffusiveTimescale float64 // 1 / (D * SlowestEigenvalue), s
	SimulatedDuration  float64 // N_timesteps * dt, s
	Ratio              float64 // SimulatedDuration / DiffusiveTimescale
}

// Check builds an n-point (cfg.NumNodes, or 64 if unset) Dirichlet
// finite-difference Laplacian spanning the slab length and reports how
// the Monte Carlo conductivity kappa compares to the diffusion
// equation's decay timescale on the same footprint.
func Check(cfg *config.Config, kappa float64) (*Report, error) {
	if kappa <= 0 {
		return nil, fmt.Errorf("validate: conductivity must be > 0, got %g", kappa)
	}
	if cfg.Density <= 0 || cfg.SpecificHeat <= 0 {
		return nil, fmt.Errorf("validate: density and specific heat must be > 0")
	}

	n := cfg.NumNodes
	if n < 2 {
		n = 64
	}
	h := cfg.Length / float64(n)

	eig := pdefd.Eigenvalues(n, h, pdepoisson.Dirichlet)
	if len(eig) == 0 {
		return nil, fmt.Errorf("validate: eigenvalue solve returned no modes")
	}

	lambdaMin := 0.0
	for _, v := range eig {
		if v > 0 {
			lambdaMin = v
			break
		}
	}
	if lambdaMin <= 0 {
		return nil, fmt.Errorf("validate: no strictly positive Dirichlet eigenvalue found")
	}

	diffusivity := kappa / (cfg.Density * cfg.SpecificHeat)
	timescale := 1 / (diffusivity * lambdaMin)
	simDuration := float64(cfg.NumTimesteps) * cfg.Timestep

	return &Report{
		Diffusivity:        diffusivity,
		SlowestEigenvalue:  lambdaMin,
		DiffusiveTimescale: timescale,
		SimulatedDuration:  simDuration,
		Ratio:              simDuration / timescale,
	}, nil
}
