// Package relax implements the internal (umklapp + impurity) relaxation
// clock of component E: a Matthiessen's-rule combined relaxation time,
// exponential time-to-scattering sampling, and isotropizing the phonon
// direction when the clock fires.
package relax

import (
	"fmt"
	"math"
	"math/rand"

	approx "github.com/cwbudde/algo-approx"

	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/phonon"
)

// Tau returns the combined relaxation time for a phonon of angular
// frequency omega at temperature T, via Matthiessen's rule over the
// impurity and umklapp channels (§4.E). If cfg.GrayApproximation is
// set, the frequency-independent gray relaxation time is returned
// instead.
func Tau(cfg *config.Config, omega, vg float64) (float64, error) {
	if cfg.GrayApproximation {
		if vg <= 0 {
			return 0, fmt.Errorf("relax: non-positive group velocity %g in gray approximation", vg)
		}
		return cfg.MFPGray / vg, nil
	}

	r := cfg.Relaxation
	invTauImp := r.AImpurity * omega * omega * omega * omega

	expArg := float32(-r.DebyeTemperature / cfg.Temperature)
	invTauUmk := r.AUmklapp * omega * omega * cfg.Temperature * float64(approx.FastExp(expArg))

	invTau := invTauImp + invTauUmk
	if invTau <= 0 || math.IsNaN(invTau) || math.IsInf(invTau, 0) {
		return 0, fmt.Errorf("relax: degenerate relaxation rate %g at omega=%g T=%g", invTau, omega, cfg.Temperature)
	}
	return 1 / invTau, nil
}

// DrawNextTime samples a new time-to-internal-scattering from the
// exponential distribution with mean tau, t_next = -ln(u)*tau with
// u ∈ (0, 1].
func DrawNextTime(rng *rand.Rand, tau float64) float64 {
	u := rng.Float64()
	for u <= 0 {
		u = rng.Float64()
	}
	return -math.Log(u) * tau
}

// Isotropize redraws a phonon's direction uniformly over the full solid
// angle, theta and phi both in (-pi, pi], matching the reference
// implementation's internal-scattering reinitialization (wider than the
// (-pi/2, pi/2] polar range used for surface emission).
func Isotropize(p *phonon.Phonon, rng *rand.Rand) {
	p.Theta = (2*rng.Float64() - 1) * math.Pi
	p.Phi = (2*rng.Float64() - 1) * math.Pi
}

// Fire checks whether the phonon's internal clock has elapsed and, if
// so, isotropizes its direction and draws a fresh scheduled time. It
// reports whether an internal-scattering event occurred this step.
func Fire(cfg *config.Config, p *phonon.Phonon, rng *rand.Rand) (fired bool, err error) {
	if !cfg.InternalScatteringEnabled {
		return false, nil
	}
	if p.ScheduledInternalTime <= 0 {
		tau, err := Tau(cfg, 2*math.Pi*p.Freq, p.Vg)
		if err != nil {
			return false, err
		}
		p.ScheduledInternalTime = DrawNextTime(rng, tau)
		return false, nil
	}
	if p.TimeSincePrevScatter <= p.ScheduledInternalTime {
		return false, nil
	}

	Isotropize(p, rng)
	p.TimeSincePrevScatter = 0

	tau, err := Tau(cfg, 2*math.Pi*p.Freq, p.Vg)
	if err != nil {
		return false, err
	}
	p.ScheduledInternalTime = DrawNextTime(rng, tau)
	return true, nil
}
