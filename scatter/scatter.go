// Package scatter implements the surface scattering kernel of
// component D: the fixed-order obstacle/pillar/sidewall/top/bottom
// passes, the Ziman specularity formula shared by every surface class,
// and the specular-mirror and Lambert-cosine diffuse reflection rules.
package scatter

import (
	"fmt"
	"math"
	"math/rand"

	approx "github.com/cwbudde/algo-approx"

	"github.com/cwbudde/freepaths/config"
	"github.com/cwbudde/freepaths/geometry"
	"github.com/cwbudde/freepaths/phonon"
)

// EventKind classifies the outcome of a scattering test.
type EventKind int

const (
	NoEvent EventKind = iota
	Specular
	Diffuse
)

// Class identifies which surface category produced an event.
type Class int

const (
	ClassNone Class = iota
	ClassWall
	ClassTop
	ClassBottom
	ClassHole
	ClassPillar
)

// Outcome is the named result record of one try_scatter call (§9:
// "multiple return values by list" replaced with a named result).
type Outcome struct {
	Theta, Phi float64
	Kind       EventKind
	Class      Class
}

// Specularity evaluates the Ziman specularity probability
// exp(-16*pi^2*sigma^2*cos^2(alpha)/lambda^2), clamped to [0, 1] per
// invariant 2 of §8 (floating-point underflow for a very rough surface
// would otherwise round to exactly 0, which is already in range, but
// clamping documents the contract explicitly).
func Specularity(sigma, alpha, lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}
	cosAlpha := math.Cos(alpha)
	exponent := -16 * math.Pi * math.Pi * sigma * sigma * cosAlpha * cosAlpha / (lambda * lambda)
	p := float64(approx.FastExp(float32(exponent)))
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p
}

// mirrorTheta reflects an in-plane travel angle theta about a surface
// whose in-plane normal points at angle normalTheta, per the standard
// reflection-about-a-line formula theta' = 2*normalTheta - theta + pi.
func mirrorTheta(theta, normalTheta float64) float64 {
	return normalizeTheta(2*normalTheta - theta + math.Pi)
}

func normalizeTheta(theta float64) float64 {
	for theta > math.Pi {
		theta -= 2 * math.Pi
	}
	for theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}

// lambertVertical draws a diffuse direction off a surface whose normal
// lies in the xy-plane at angle normalTheta: the in-plane angle is
// Lambert-distributed about the normal, the polar angle is unaffected
// by a vertical surface and keeps the full Lambert spread.
func lambertVertical(normalTheta float64, rng *rand.Rand) (theta, phi float64) {
	theta = normalizeTheta(normalTheta + math.Asin(2*rng.Float64()-1))
	phi = math.Asin(2*rng.Float64() - 1)
	return theta, phi
}

// lambertHorizontal draws a diffuse direction off a surface whose
// normal points along +-z (top/bottom/pillar-top): the in-plane angle
// has no preferred direction, while the polar angle is Lambert
// distributed into the hemisphere away from the surface (sign < 0 for
// a downward-facing top surface, sign > 0 for an upward-facing bottom
// surface).
func lambertHorizontal(sign float64, rng *rand.Rand) (theta, phi float64) {
	theta = normalizeTheta(-math.Pi + 2*math.Pi*rng.Float64())
	phi = sign * math.Asin(rng.Float64())
	return theta, phi
}

func pickDirection(p *phonon.Phonon, specProb float64, rng *rand.Rand, normalTheta float64, horizontal bool, sign float64) (theta, phi float64, kind EventKind) {
	if rng.Float64() < specProb {
		if horizontal {
			return p.Theta, -p.Phi, Specular
		}
		return mirrorTheta(p.Theta, normalTheta), p.Phi, Specular
	}
	if horizontal {
		t, ph := lambertHorizontal(sign, rng)
		return t, ph, Diffuse
	}
	t, ph := lambertVertical(normalTheta, rng)
	return t, ph, Diffuse
}

// TryScatter runs the fixed-order scattering passes of §4.D against a
// tentative step from the phonon's current state. It does not mutate p;
// the caller applies the returned Outcome.
func TryScatter(cfg *config.Config, geom *geometry.Registry, p *phonon.Phonon, dt float64, rng *rand.Rand) (Outcome, error) {
	cosPhi := math.Abs(math.Cos(p.Phi))
	vx := math.Sin(p.Theta) * cosPhi
	vy := math.Cos(p.Theta) * cosPhi
	vz := math.Sin(p.Phi)

	step := p.Vg * dt
	if math.IsNaN(step) || math.IsInf(step, 0) {
		return Outcome{}, fmt.Errorf("scatter: non-finite step length %g", step)
	}

	xp := p.X + step*vx
	yp := p.Y + step*vy
	zp := p.Z + step*vz

	halfW := cfg.Width / 2
	halfH := cfg.Thickness / 2
	lambda := p.Wavelength()

	// 1. Obstacle pass.
	if cfg.HolesEnabled {
		for _, o := range geom.Obstacles {
			if o.Kind == config.CirclePillar {
				continue
			}
			if !geometry.Inside(o, xp, yp) {
				continue
			}
			return scatterHole(cfg, o, p, xp, yp, step, lambda, rng)
		}
	}

	// 2. Pillar pass.
	if cfg.PillarsEnabled {
		for _, o := range geom.Obstacles {
			if o.Kind != config.CirclePillar {
				continue
			}
			if out, hit, err := scatterPillar(cfg, o, p, xp, yp, zp, step, lambda, rng); hit {
				return out, err
			}
		}
	}

	// 3. Sidewall pass.
	if xp > halfW && geom.Sidewalls.Right {
		alpha := math.Acos(clampUnit(math.Cos(p.Phi) * math.Sin(math.Abs(p.Theta))))
		spec := Specularity(cfg.Roughness.Wall, alpha, lambda)
		theta, phi, kind := pickDirection(p, spec, rng, -math.Pi/2, false, 0)
		return Outcome{Theta: theta, Phi: phi, Kind: kind, Class: ClassWall}, nil
	}
	if xp < -halfW && geom.Sidewalls.Left {
		alpha := math.Acos(clampUnit(math.Cos(p.Phi) * math.Sin(math.Abs(p.Theta))))
		spec := Specularity(cfg.Roughness.Wall, alpha, lambda)
		theta, phi, kind := pickDirection(p, spec, rng, math.Pi/2, false, 0)
		return Outcome{Theta: theta, Phi: phi, Kind: kind, Class: ClassWall}, nil
	}

	// 4. Top pass (with pillar-top handling).
	topZ := halfH
	if cfg.PillarsEnabled {
		for _, o := range geom.Obstacles {
			if o.Kind != config.CirclePillar {
				continue
			}
			if geometry.Inside(o, xp, yp) {
				topZ = halfH + o.PillarHeight
				break
			}
		}
	}
	if zp > topZ {
		alpha := math.Pi/2 - p.Phi
		sigma := cfg.Roughness.Top
		if topZ != halfH {
			sigma = cfg.Roughness.PillarTop
		}
		spec := Specularity(sigma, alpha, lambda)
		theta, phi, kind := pickDirection(p, spec, rng, 0, true, -1)
		return Outcome{Theta: theta, Phi: phi, Kind: kind, Class: ClassTop}, nil
	}

	// 5. Bottom pass.
	if zp < -halfH {
		alpha := math.Pi/2 + p.Phi
		spec := Specularity(cfg.Roughness.Bottom, alpha, lambda)
		theta, phi, kind := pickDirection(p, spec, rng, 0, true, 1)
		return Outcome{Theta: theta, Phi: phi, Kind: kind, Class: ClassBottom}, nil
	}

	return Outcome{Theta: normalizeTheta(p.Theta), Phi: p.Phi, Kind: NoEvent, Class: ClassNone}, nil
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// scatterHole handles the obstacle pass for a non-pillar hole shape:
// circular, rectangular, or either triangle orientation, each with its
// own incidence-angle formula per §4.D.
func scatterHole(cfg *config.Config, o config.Obstacle, p *phonon.Phonon, xp, yp, step, lambda float64, rng *rand.Rand) (Outcome, error) {
	switch o.Kind {
	case config.CircleHole:
		dy := yp - o.CenterY
		tau := math.Atan2(xp-o.CenterX, dy)
		sign := 1.0
		if dy < 0 {
			sign = -1.0
		}
		alpha := math.Acos(clampUnit(math.Cos(p.Phi) * math.Cos(p.Theta+sign*tau)))
		spec := Specularity(cfg.Roughness.Hole, alpha, lambda)
		normalTheta := normalizeTheta(math.Atan2(xp-o.CenterX, dy))
		theta, phi, kind := pickDirection(p, spec, rng, normalTheta, false, 0)
		return Outcome{Theta: theta, Phi: phi, Kind: kind, Class: ClassHole}, nil

	case config.RectHole:
		dx, dy := xp-o.CenterX, yp-o.CenterY
		onSide := math.Abs(dx) >= math.Abs(dy)*(o.Lx/o.Ly) // nearer a vertical than horizontal edge
		var alpha, normalTheta float64
		if onSide {
			alpha = math.Acos(clampUnit(math.Cos(p.Phi) * math.Sin(math.Abs(p.Theta))))
			normalTheta = math.Pi / 2
			if dx < 0 {
				normalTheta = -math.Pi / 2
			}
		} else {
			alpha = math.Acos(clampUnit(math.Cos(p.Phi) * math.Cos(p.Theta)))
			normalTheta = 0
			if dy < 0 {
				normalTheta = math.Pi
			}
		}
		spec := Specularity(cfg.Roughness.Hole, alpha, lambda)
		theta, phi, kind := pickDirection(p, spec, rng, normalTheta, false, 0)
		return Outcome{Theta: theta, Phi: phi, Kind: kind, Class: ClassHole}, nil

	case config.TriDownHole, config.TriUpHole:
		beta := math.Atan(0.5 * o.Lx / o.Ly)
		side := geometry.TriDownSide(o, xp, yp, p.Theta, step)
		if o.Kind == config.TriUpHole {
			side = geometry.TriUpSide(o, xp, yp, p.Theta, step)
		}
		var alpha, normalTheta float64
		switch side {
		case geometry.SideFlat:
			alpha = math.Acos(clampUnit(math.Cos(p.Phi) * math.Cos(p.Theta)))
			normalTheta = math.Pi
			if o.Kind == config.TriDownHole {
				normalTheta = 0
			}
		case geometry.SideLeft:
			alpha = math.Acos(clampUnit(math.Cos(p.Phi) * math.Cos(p.Theta+(math.Pi/2-beta))))
			normalTheta = -(math.Pi/2 - beta)
		default: // SideRight
			alpha = math.Acos(clampUnit(math.Cos(p.Phi) * math.Cos(p.Theta-(math.Pi/2-beta))))
			normalTheta = math.Pi/2 - beta
		}
		spec := Specularity(cfg.Roughness.Hole, alpha, lambda)
		var theta, phi float64
		var kind EventKind
		if rng.Float64() < spec {
			if side == geometry.SideFlat {
				theta, phi, kind = mirrorTheta(p.Theta, normalTheta), p.Phi, Specular
			} else {
				sign := 1.0
				if side == geometry.SideLeft {
					sign = -1.0
				}
				theta, phi, kind = normalizeTheta(-p.Theta+sign*2*beta), p.Phi, Specular
			}
		} else {
			theta, phi = lambertVertical(normalTheta, rng)
			kind = Diffuse
		}
		return Outcome{Theta: theta, Phi: phi, Kind: kind, Class: ClassHole}, nil

	default:
		return Outcome{}, fmt.Errorf("scatter: obstacle kind %v is not a hole shape", o.Kind)
	}
}

// scatterPillar handles the pillar pass: a truncated-cone side wall hit
// when the tentative radial distance from the pillar axis crosses the
// cone's radius band at the phonon's current height, per §4.D.
func scatterPillar(cfg *config.Config, o config.Obstacle, p *phonon.Phonon, xp, yp, zp, step, lambda float64, rng *rand.Rand) (Outcome, bool, error) {
	halfH := cfg.Thickness / 2
	if zp <= halfH {
		return Outcome{}, false, nil
	}

	z := zp - halfH
	r := geometry.PillarConeRadius(o, z)

	dxPre, dyPre := p.X-o.CenterX, p.Y-o.CenterY
	preR2 := dxPre*dxPre + dyPre*dyPre
	dxPost, dyPost := xp-o.CenterX, yp-o.CenterY
	postR2 := dxPost*dxPost + dyPost*dyPost

	outerR := r + 2*step
	if postR2 < r*r || postR2 >= outerR*outerR {
		return Outcome{}, false, nil
	}

	tau := math.Atan2(dxPost, dyPost)
	sign := 1.0
	if dyPost < 0 {
		sign = -1.0
	}
	alpha := math.Acos(clampUnit(math.Cos(p.Phi) * math.Cos(p.Theta+sign*tau)))
	spec := Specularity(cfg.Roughness.Pillar, alpha, lambda)
	// Normal pointing back toward the pillar axis, into the pillar.
	normalTheta := normalizeTheta(math.Atan2(-dxPost, -dyPost))

	tilt := math.Pi/2 - o.PillarWallAngle
	var theta, phi float64
	var kind EventKind
	if rng.Float64() < spec {
		if preR2 < postR2 {
			// moving outward, toward the pillar wall.
			if p.Phi < math.Pi/2-2*o.PillarWallAngle {
				// grazing: passes along the cone without a theta flip.
				theta = p.Theta
			} else {
				theta = mirrorTheta(p.Theta, normalTheta)
			}
			phi = clampPhi(p.Phi - tilt)
		} else {
			// moving inward (overhang): theta unchanged, phi reflected
			// downward to -|phi| - 2*wall_angle.
			theta = p.Theta
			phi = clampPhi(-math.Abs(p.Phi) - 2*o.PillarWallAngle)
		}
		kind = Specular
	} else {
		theta, phi = lambertVertical(normalTheta, rng)
		kind = Diffuse
	}
	return Outcome{Theta: theta, Phi: phi, Kind: kind, Class: ClassPillar}, true, nil
}

func clampPhi(phi float64) float64 {
	const limit = math.Pi/2 - 1e-9
	if phi > limit {
		return limit
	}
	if phi < -limit {
		return -limit
	}
	return phi
}
