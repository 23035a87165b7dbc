// Package phonon defines the mutable per-flight phonon state and the
// write-once flight record it produces, per the data model of §3.
package phonon

import "github.com/cwbudde/freepaths/dispersion"

// Phonon is the mutable state of a single quasi-particle during its
// flight. It is created once by the sampler, mutated by the trajectory
// driver/scattering kernel/relaxation clock, and discarded at flight
// end.
type Phonon struct {
	X, Y, Z float64 // position, meters; Z measured from the slab midplane

	Theta float64 // azimuth in xy, (-pi, pi]
	Phi   float64 // polar out-of-plane, (-pi/2, pi/2)

	Freq   float64           // Hz
	Branch dispersion.Branch // LA or TA
	Vg     float64           // group speed, m/s

	TimeSincePrevScatter  float64
	ScheduledInternalTime float64

	// Sweep-mode-only fields: wavevector and its sweep-interval width,
	// carried alongside the phonon so the conductivity accumulator (§4.G)
	// can weight this phonon's contribution without re-deriving k from f.
	K, Dk float64
}

// Wavelength returns v_g / f, the derived quantity used by the
// specularity formula.
func (p *Phonon) Wavelength() float64 {
	return p.Vg / p.Freq
}

// FlightRecord is the write-once summary of one completed (or aborted)
// flight.
type FlightRecord struct {
	InitialTheta float64
	ExitTheta    float64
	Exited       bool // reached the cold side before the timestep cap
	Failed       bool // numerical degeneracy aborted the flight

	FreePaths       []float64
	FreePathsAlongY []float64
	TravelTime      float64

	// DetectedFrequency[i] is the frequency recorded at detector window
	// i if this phonon's exit point fell inside it, else 0.
	DetectedFrequency [3]float64

	MeanFreePath float64 // mean(FreePaths), computed at flight end

	Freq   float64
	Vg     float64
	Branch dispersion.Branch
	K, Dk  float64 // sweep-mode only
}
