// Package config holds the immutable simulation configuration record
// threaded through every core call, replacing the module-level globals
// of the reference implementation.
package config

import "math"

// Material identifies a bulk material's dispersion and relaxation
// coefficients.
type Material int

const (
	Silicon Material = iota
	Custom
)

// AngularDistribution tags the source's initial-direction sampling rule.
type AngularDistribution int

const (
	RandomUp AngularDistribution = iota
	RandomDown
	RandomRight
	RandomLeft
	Lambert
	Directional
)

// SamplingMode selects the phonon sampler's operating mode (§4.B).
type SamplingMode int

const (
	PlanckMode SamplingMode = iota
	SweepMode
)

// ObstacleKind tags the closed shape variant an Obstacle carries.
type ObstacleKind int

const (
	CircleHole ObstacleKind = iota
	RectHole
	TriDownHole
	TriUpHole
	CirclePillar
)

// Obstacle is one immutable entry in the geometry registry (§4.C).
// Only the fields relevant to Kind are meaningful; the zero value of the
// rest is ignored by the scattering kernel.
type Obstacle struct {
	Kind ObstacleKind

	CenterX, CenterY float64

	Radius float64 // CircleHole, CirclePillar

	Lx, Ly float64 // RectHole, TriDownHole, TriUpHole

	PillarHeight    float64 // CirclePillar
	PillarWallAngle float64 // CirclePillar
}

// SourceRect is the phonon emission rectangle on the hot side.
type SourceRect struct {
	X, Y   float64
	Wx, Wy float64
}

// Detector is one frequency-detection window centered at X with size
// Size, measured along the slab's width.
type Detector struct {
	CenterX float64
	Size    float64
}

// Sidewalls records which of the four bounding sides are walls (as
// opposed to open/cold/hot boundaries). The scattering kernel reflects
// phonons only at the Right and Left walls (x = ±Width/2); Top and
// Bottom are used only by Validate's side-role check.
type Sidewalls struct {
	Right, Left, Top, Bottom bool
}

// SidePosition flags which side of the slab a role (hot source or cold
// sink) is assigned to; exactly one should be set per role in a valid
// configuration.
type SidePosition struct {
	Top, Bottom, Right, Left bool
}

// Roughness collects the RMS roughness (meters) of every surface class
// used by the Ziman specularity formula (§4.D).
type Roughness struct {
	Wall      float64
	Hole      float64
	Pillar    float64
	Top       float64
	Bottom    float64
	PillarTop float64
}

// DispersionCoeffs are the polynomial fit coefficients of §4.A:
//
//	ω_LA(k) = |A1*k + A2*k^2 + A3*k^3|
//	ω_TA(k) = |B1*k + B2*k^2 + B3*k^3 + B4*k^4|
type DispersionCoeffs struct {
	LA1, LA2, LA3      float64
	TA1, TA2, TA3, TA4 float64
	KMax               float64 // upper bound of k sampled along Γ–X
	TAFreqCutoffHz     float64 // TA branch truncated above this frequency
}

// SiliconDispersion is the published polynomial fit used by the
// reference implementation (Ref. APL 95 161901 (2009)).
func SiliconDispersion() DispersionCoeffs {
	return DispersionCoeffs{
		LA1: 1369.42, LA2: -2.405e-8, LA3: -9.70e-19,
		TA1: 1081.74, TA2: -7.711e-8, TA3: 5.674e-19, TA4: 7.967e-29,
		KMax:           12e9,
		TAFreqCutoffHz: 4.5e12,
	}
}

// RelaxationCoeffs are the Matthiessen-rule relaxation-time coefficients
// of §4.E.
type RelaxationCoeffs struct {
	DebyeTemperature float64 // Θ_D, kelvin
	AImpurity        float64 // 1/τ_imp = AImpurity * ω^4
	AUmklapp         float64 // 1/τ_umk = AUmklapp * ω^2 * T * exp(-Θ_D/T)
}

// SiliconRelaxation is the reference implementation's silicon relaxation
// coefficient set (Ref. PRB 94, 174303 (2016)).
func SiliconRelaxation() RelaxationCoeffs {
	return RelaxationCoeffs{
		DebyeTemperature: 152,
		AImpurity:        2.95e-45,
		AUmklapp:         0.95e-19,
	}
}

// Config is the immutable simulation configuration record threaded
// through every core call (dispersion, sampler, geometry, scatter,
// relax, trajectory, observables). It is built once (by config.LoadJSON
// or config.NewDefault), may be adjusted by the caller before a run
// starts, and is not mutated while flights run.
type Config struct {
	// Dimensions (meters), temperature (K), timestep (s).
	Width, Length, Thickness float64
	Temperature              float64
	Timestep                 float64
	NumTimesteps             int
	NumPhonons               int
	NumNodes                 int

	Material     Material
	Density      float64 // ρ, kg/m^3
	SpecificHeat float64 // c_p, J/kg/K
	Dispersion   DispersionCoeffs
	Relaxation   RelaxationCoeffs

	Roughness Roughness
	Sidewalls Sidewalls

	Source              SourceRect
	AngularDistribution AngularDistribution

	HotSide  SidePosition
	ColdSide SidePosition

	HolesEnabled   bool
	PillarsEnabled bool
	Obstacles      []Obstacle

	InternalScatteringEnabled bool
	GrayApproximation         bool
	MFPGray                   float64

	MapNx, MapNy int
	NumFrames    int
	Detectors    [3]Detector

	SamplingMode SamplingMode
	NumSweep     int // dispersion-sweep intervals per branch
}

// NewDefault returns a configuration matching the reference
// implementation's demo run: a 400x400x50 nm silicon slab at 300 K, no
// obstacles, smooth surfaces, Planck sampling, random_up emission from
// the bottom edge toward the top.
func NewDefault() *Config {
	return &Config{
		Width:        400e-9,
		Length:       400e-9,
		Thickness:    50e-9,
		Temperature:  300.0,
		Timestep:     0.5e-12,
		NumTimesteps: 40000,
		NumPhonons:   1000,
		NumNodes:     400,

		Material:     Silicon,
		Density:      2330,
		SpecificHeat: 700,
		Dispersion:   SiliconDispersion(),
		Relaxation:   SiliconRelaxation(),

		Sidewalls: Sidewalls{Right: true, Left: true},

		Source: SourceRect{
			X: 0, Y: 0,
			Wx: 0.8 * 400e-9,
			Wy: 0,
		},
		AngularDistribution: RandomUp,

		HotSide:  SidePosition{Bottom: true},
		ColdSide: SidePosition{Top: true},

		HolesEnabled:   false,
		PillarsEnabled: false,

		InternalScatteringEnabled: true,
		GrayApproximation:         false,
		MFPGray:                  100e-9,

		MapNx:     40,
		MapNy:     40,
		NumFrames: 20,

		SamplingMode: PlanckMode,
		NumSweep:     500,
	}
}

// FPeak returns the Debye-peak reference frequency f_peak used as the
// envelope bound in the Planck rejection sampler (§4.B), computed from
// the reference speed v0 = 6000 m/s (the v0 factor cancels out of the
// reference implementation's formula; it is kept here for parity).
func FPeak(temperature float64) float64 {
	const (
		v0    = 6000.0
		kB    = 1.380649e-23
		hbar  = 1.054571817e-34
		twoPi = 2 * math.Pi
	)
	return v0 * (2.82 * kB * temperature) / (twoPi * hbar * v0)
}
