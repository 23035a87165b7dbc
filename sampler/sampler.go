// Package sampler draws a new phonon's initial state (component B):
// frequency and polarization from a Planck-weighted rejection sampler
// or a deterministic dispersion sweep, plus initial position and
// direction from the configured source geometry and angular
// distribution.
package sampler

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/dispersion"
	"github.com/cwbudde/freepaths/phonon"
)

const (
	kB     = 1.380649e-23
	hbar   = 1.054571817e-34
	twoPi  = 2 * math.Pi
	envGrid = 2000 // resolution of the envelope-bound search grid
)

// Sampler draws phonons against one dispersion table at one
// temperature. It is built once per run and is safe for concurrent use
// by multiple workers — all of its fields are read-only after New
// returns.
type Sampler struct {
	cfg *config.Config
	tab *dispersion.Table

	fPeak float64
	rhoMax float64
}

// New builds a Sampler for the given configuration and dispersion
// table, precomputing the Planck-density envelope bound used by the
// rejection sampler.
func New(cfg *config.Config, tab *dispersion.Table) *Sampler {
	s := &Sampler{cfg: cfg, tab: tab, fPeak: config.FPeak(cfg.Temperature)}
	s.rhoMax = s.searchEnvelopeMax()
	return s
}

// planckDensity returns the Debye-DOS-weighted Planckian energy density
// rho(f) = DOS(f) * hbar * 2*pi*f * n(f), DOS(f) ∝ f^2, per §4.B. The
// proportionality constant cancels in the rejection-sampling ratio
// rho(f)/rho_max, so DOS is taken as exactly f^2 here.
func planckDensity(f, temperature float64) float64 {
	if f <= 0 {
		return 0
	}
	omega := twoPi * f
	x := hbar * omega / (kB * temperature)
	if x > 700 {
		return 0 // exp(x) overflows; density is negligible here anyway
	}
	n := 1.0 / (math.Exp(x) - 1.0)
	return f * f * hbar * omega * n
}

func (s *Sampler) searchEnvelopeMax() float64 {
	upper := 5 * s.fPeak
	max := 0.0
	for i := 0; i <= envGrid; i++ {
		f := upper * float64(i) / float64(envGrid)
		if rho := planckDensity(f, s.cfg.Temperature); rho > max {
			max = rho
		}
	}
	if max <= 0 {
		max = 1
	}
	return max
}

// pickBranch draws a branch uniformly from {LA, TA, TA}, matching the
// reference implementation's two-TA-branch weighting.
func pickBranch(rng *rand.Rand) dispersion.Branch {
	if rng.Intn(3) == 0 {
		return dispersion.LA
	}
	return dispersion.TA
}

// fCut returns the highest frequency representable on branch br,
// derived from the dispersion table's tabulated maximum angular
// frequency. TA is additionally capped at 4.5 THz per §4.B.
func (s *Sampler) fCut(br dispersion.Branch) float64 {
	cut := s.tab.MaxOmega(br) / twoPi
	if br == dispersion.TA && cut > 4.5e12 {
		cut = 4.5e12
	}
	return cut
}

// SamplePlanck draws a new phonon's frequency, polarization and group
// velocity via Planck-weighted rejection sampling, then its initial
// position and direction from the source geometry.
func (s *Sampler) SamplePlanck(rng *rand.Rand) (*phonon.Phonon, error) {
	upper := 5 * s.fPeak
	var f float64
	var branch dispersion.Branch
	const maxAttempts = 1 << 20
	accepted := false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		branch = pickBranch(rng)
		cut := s.fCut(branch)
		candidate := upper * rng.Float64()
		if candidate >= cut {
			continue
		}
		rho := planckDensity(candidate, s.cfg.Temperature)
		if rng.Float64() < rho/s.rhoMax {
			f = candidate
			accepted = true
			break
		}
	}
	if !accepted {
		return nil, fmt.Errorf("sampler: rejection sampling failed to accept a frequency after %d attempts", maxAttempts)
	}

	j := s.tab.NearestIndex(branch, twoPi*f)
	vg := s.tab.GroupVelocity(branch, j)
	if vg <= 0 || math.IsNaN(vg) || math.IsInf(vg, 0) {
		return nil, fmt.Errorf("sampler: degenerate group velocity %g at branch=%v f=%g", vg, branch, f)
	}

	p := &phonon.Phonon{Freq: f, Branch: branch, Vg: vg}
	if err := s.placePosition(p, rng); err != nil {
		return nil, err
	}
	if err := s.placeAngles(p, rng); err != nil {
		return nil, err
	}
	p.ScheduledInternalTime = 0 // caller (relax) draws the first t_next
	return p, nil
}

// SampleSweep returns the phonon at sweep interval `index` of `total`
// equally spaced k-intervals on branch br, per the dispersion-sweep
// mode of §4.B. The returned phonon carries K and Dk for the
// conductivity accumulator.
func (s *Sampler) SampleSweep(rng *rand.Rand, br dispersion.Branch, index, total int) (*phonon.Phonon, error) {
	if total <= 0 {
		return nil, fmt.Errorf("sampler: total sweep intervals must be > 0")
	}
	if index < 0 || index >= total {
		return nil, fmt.Errorf("sampler: sweep index %d out of range [0,%d)", index, total)
	}
	dk := s.tab.KMax() / float64(total)
	kMid := dk*float64(index) + dk/2

	j := nearestKIndex(s.tab, kMid)
	omega := s.tab.Omega(br, j)
	f := omega / twoPi
	vg := s.tab.GroupVelocity(br, j)
	if vg <= 0 || math.IsNaN(vg) || math.IsInf(vg, 0) {
		return nil, fmt.Errorf("sampler: degenerate group velocity %g at branch=%v k=%g", vg, br, kMid)
	}

	p := &phonon.Phonon{Freq: f, Branch: br, Vg: vg, K: kMid, Dk: dk}
	if err := s.placePosition(p, rng); err != nil {
		return nil, err
	}
	if err := s.placeAngles(p, rng); err != nil {
		return nil, err
	}
	return p, nil
}

func nearestKIndex(tab *dispersion.Table, k float64) int {
	n := tab.NumPoints()
	dk := tab.KMax() / float64(n-1)
	j := int(k/dk + 0.5)
	if j < 0 {
		return 0
	}
	if j >= n {
		return n - 1
	}
	return j
}

// placePosition draws the initial position within the configured
// source rectangle: uniform in x and y about the rectangle's center
// with a small guard offset from the slab walls, and uniform in
// z ∈ ±0.4*thickness.
func (s *Sampler) placePosition(p *phonon.Phonon, rng *rand.Rand) error {
	const guard = 1e-12 // meters, matches the reference implementation's epsilon offset

	src := s.cfg.Source
	halfWx, halfWy := src.Wx/2, src.Wy/2
	x := src.X
	if halfWx > 0 {
		x = src.X + (2*rng.Float64()-1)*halfWx
	}
	y := src.Y
	if halfWy > 0 {
		y = src.Y + (2*rng.Float64()-1)*halfWy
	}

	if x <= -s.cfg.Width/2 {
		x = -s.cfg.Width/2 + guard
	}
	if x >= s.cfg.Width/2 {
		x = s.cfg.Width/2 - guard
	}
	if y <= 0 {
		y = guard
	}

	z := 0.4 * s.cfg.Thickness * (2*rng.Float64() - 1)

	p.X, p.Y, p.Z = x, y, z
	return nil
}

// placeAngles draws the initial (theta, phi) per the configured angular
// distribution tag.
func (s *Sampler) placeAngles(p *phonon.Phonon, rng *rand.Rand) error {
	theta, phi, err := SampleAngles(s.cfg.AngularDistribution, rng)
	if err != nil {
		return err
	}
	p.Theta, p.Phi = theta, phi
	return nil
}

// Reinject redraws a phonon's position and direction from the source
// geometry, preserving its frequency, branch and group velocity, per
// the trajectory driver's source-reinjection step (§4.F.3).
func (s *Sampler) Reinject(p *phonon.Phonon, rng *rand.Rand) error {
	if err := s.placePosition(p, rng); err != nil {
		return err
	}
	return s.placeAngles(p, rng)
}

// SampleAngles draws (theta, phi) for one of the recognized angular
// distribution tags of §6. It is exported separately from Sampler so
// the trajectory driver's source-reinjection step (§4.F.3) can redraw
// direction without constructing a new phonon.
func SampleAngles(dist config.AngularDistribution, rng *rand.Rand) (theta, phi float64, err error) {
	u := func() float64 { return rng.Float64() }
	halfPi := math.Pi / 2

	switch dist {
	case config.RandomUp:
		theta = (2*u() - 1) * halfPi
		phi = (2*u() - 1) * halfPi
	case config.RandomDown:
		theta = math.Pi + (2*u()-1)*halfPi
		phi = (2*u() - 1) * halfPi
	case config.RandomRight:
		theta = halfPi + (2*u()-1)*halfPi
		phi = (2*u() - 1) * halfPi
	case config.RandomLeft:
		theta = -halfPi + (2*u()-1)*halfPi
		phi = (2*u() - 1) * halfPi
	case config.Lambert:
		theta = math.Asin(2*u() - 1)
		phi = math.Asin(2*u() - 1)
	case config.Directional:
		theta = 0
		phi = 0
	default:
		return 0, 0, fmt.Errorf("sampler: unknown angular distribution tag %v", dist)
	}

	if math.IsNaN(theta) || math.IsNaN(phi) {
		return 0, 0, fmt.Errorf("sampler: NaN angle produced for distribution %v", dist)
	}
	return normalizeTheta(theta), phi, nil
}

// normalizeTheta folds theta into (-pi, pi].
func normalizeTheta(theta float64) float64 {
	for theta > math.Pi {
		theta -= 2 * math.Pi
	}
	for theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}
