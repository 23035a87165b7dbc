// Package trajectory implements the per-phonon trajectory driver of
// component F: the per-timestep state machine sequencing the cold-side
// check, internal relaxation, source reinjection, the surface
// scattering pass, free-path bookkeeping, observable deposition, and
// position advance.
package trajectory

import (
	"math"
	"math/rand"

	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/geometry"
	"github.com/cwbudde/freepaths/observables"
	"github.com/cwbudde/freepaths/phonon"
	"github.com/cwbudde/freepaths/relax"
	"github.com/cwbudde/freepaths/sampler"
	"github.com/cwbudde/freepaths/scatter"
)

// Drive runs a single phonon's flight to completion (cold-side exit,
// timestep cap, or numerical failure), depositing its step-by-step
// contributions into acc and returning its write-once flight record.
// A failed flight is reported via FlightRecord.Failed, never as a
// returned error: per §7, numerical degeneracies abort one flight but
// never the ensemble.
func Drive(cfg *config.Config, geom *geometry.Registry, samp *sampler.Sampler, p *phonon.Phonon, acc *observables.Accumulator, rng *rand.Rand) *phonon.FlightRecord {
	rec := &phonon.FlightRecord{
		InitialTheta: p.Theta,
		Freq:         p.Freq,
		Vg:           p.Vg,
		Branch:       p.Branch,
		K:            p.K,
		Dk:           p.Dk,
	}

	var freePath, freePathY float64
	var elapsed float64

	for step := 0; step < cfg.NumTimesteps; step++ {
		if reachedCold(cfg, p) {
			rec.Exited = true
			rec.ExitTheta = p.Theta
			rec.TravelTime = elapsed
			recordDetectors(cfg, rec, p)
			rec.FreePaths = append(rec.FreePaths, freePath)
			rec.FreePathsAlongY = append(rec.FreePathsAlongY, freePathY)
			finish(rec)
			acc.RecordFlight(rec)
			return rec
		}

		internalFired, err := relax.Fire(cfg, p, rng)
		if err != nil {
			return fail(rec, acc)
		}
		if internalFired {
			acc.RecordInternal()
		}

		cosPhi := math.Abs(math.Cos(p.Phi))
		yTentative := p.Y + p.Vg*cfg.Timestep*math.Cos(p.Theta)*cosPhi
		reinjected := false
		if yTentative < 0 {
			if err := samp.Reinject(p, rng); err != nil {
				return fail(rec, acc)
			}
			reinjected = true
			acc.RecordReinit()
		}

		var surfaceEvent scatter.Outcome
		if !reinjected {
			out, err := scatter.TryScatter(cfg, geom, p, cfg.Timestep, rng)
			if err != nil {
				return fail(rec, acc)
			}
			surfaceEvent = out
			if out.Kind != scatter.NoEvent {
				acc.RecordScatterEvent(out.Class, out.Kind)
				p.Theta, p.Phi = out.Theta, out.Phi
			}
		}

		if !finiteState(p) {
			return fail(rec, acc)
		}

		// Any surface or internal event this step was diffuse resets the
		// free-path accumulator (§9's corrected "any diffuse" reading).
		diffuseOrReset := internalFired || reinjected || surfaceEvent.Kind == scatter.Diffuse
		segment := p.Vg * cfg.Timestep
		if diffuseOrReset {
			rec.FreePaths = append(rec.FreePaths, freePath)
			rec.FreePathsAlongY = append(rec.FreePathsAlongY, freePathY)
			freePath, freePathY = 0, 0
		} else {
			freePath += segment
			freePathY += segment * math.Abs(math.Cos(p.Phi)) * math.Abs(math.Cos(p.Theta))
		}

		acc.DepositThermal(p.X, p.Y, p.Freq)
		acc.DepositProfiles(p, step, cfg.NumTimesteps)

		cosPhi = math.Abs(math.Cos(p.Phi))
		p.X += segment * math.Sin(p.Theta) * cosPhi
		p.Y += segment * math.Cos(p.Theta) * cosPhi
		p.Z += segment * math.Sin(p.Phi)

		if !finiteState(p) {
			return fail(rec, acc)
		}

		p.TimeSincePrevScatter += cfg.Timestep
		elapsed += cfg.Timestep
	}

	// Timestep cap reached: an aborted flight, not an error. It keeps
	// its partial observable deposits but gets no exit_theta/travel_time.
	rec.FreePaths = append(rec.FreePaths, freePath)
	rec.FreePathsAlongY = append(rec.FreePathsAlongY, freePathY)
	finish(rec)
	acc.RecordFlight(rec)
	return rec
}

func fail(rec *phonon.FlightRecord, acc *observables.Accumulator) *phonon.FlightRecord {
	rec.Failed = true
	acc.RecordFlight(rec)
	return rec
}

func finish(rec *phonon.FlightRecord) {
	if len(rec.FreePaths) == 0 {
		return
	}
	var sum float64
	for _, v := range rec.FreePaths {
		sum += v
	}
	rec.MeanFreePath = sum / float64(len(rec.FreePaths))
}

func reachedCold(cfg *config.Config, p *phonon.Phonon) bool {
	c := cfg.ColdSide
	switch {
	case c.Top && p.Y >= cfg.Length:
		return true
	case c.Bottom && p.Y <= 0:
		return true
	case c.Right && p.X >= cfg.Width/2:
		return true
	case c.Left && p.X <= -cfg.Width/2:
		return true
	default:
		return false
	}
}

func recordDetectors(cfg *config.Config, rec *phonon.FlightRecord, p *phonon.Phonon) {
	for i, d := range cfg.Detectors {
		if d.Size <= 0 {
			continue
		}
		if math.Abs(p.X-d.CenterX) <= d.Size/2 {
			rec.DetectedFrequency[i] = p.Freq
		}
	}
}

func finiteState(p *phonon.Phonon) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsNaN(p.Z) &&
		!math.IsNaN(p.Theta) && !math.IsNaN(p.Phi) &&
		!math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) && !math.IsInf(p.Z, 0) &&
		!math.IsInf(p.Theta, 0) && !math.IsInf(p.Phi, 0)
}
