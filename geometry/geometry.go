// Package geometry implements the obstacle registry and shape-membership
// tests of component C: circular and rectangular holes, the two
// triangular hole orientations, and circular pillars, plus a plan-view
// bounds test for the slab.
package geometry

import (
	"math"

	"github.com/cwbudde/freepaths/config"
)

// Registry is the read-only geometry record built once from a
// config.Config and shared by every phonon flight.
type Registry struct {
	Width, Length float64
	Sidewalls     config.Sidewalls
	Obstacles     []config.Obstacle
}

// Build assembles a Registry from a configuration. Obstacles are
// included only when the corresponding config flag enables their
// category, mirroring the reference implementation's holes/pillars
// toggle.
func Build(cfg *config.Config) *Registry {
	r := &Registry{
		Width:     cfg.Width,
		Length:    cfg.Length,
		Sidewalls: cfg.Sidewalls,
	}
	for _, o := range cfg.Obstacles {
		switch o.Kind {
		case config.CirclePillar:
			if cfg.PillarsEnabled {
				r.Obstacles = append(r.Obstacles, o)
			}
		default:
			if cfg.HolesEnabled {
				r.Obstacles = append(r.Obstacles, o)
			}
		}
	}
	return r
}

// InBounds reports whether (x, y) lies within the slab's plan-view
// rectangle [-Width/2, Width/2] x [0, Length] (x is measured from the
// slab's center line, as everywhere else in the module).
func (r *Registry) InBounds(x, y float64) bool {
	return x >= -r.Width/2 && x <= r.Width/2 && y >= 0 && y <= r.Length
}

// Inside reports whether (x, y) falls within the closed shape of
// obstacle o (i.e. inside a hole, or inside/above a pillar's footprint).
func Inside(o config.Obstacle, x, y float64) bool {
	switch o.Kind {
	case config.CircleHole, config.CirclePillar:
		dx, dy := x-o.CenterX, y-o.CenterY
		return dx*dx+dy*dy <= o.Radius*o.Radius
	case config.RectHole:
		return math.Abs(x-o.CenterX) <= o.Lx/2 && math.Abs(y-o.CenterY) <= o.Ly/2
	case config.TriDownHole:
		return insideTriDown(o, x, y)
	case config.TriUpHole:
		return insideTriUp(o, x, y)
	default:
		return false
	}
}

// insideTriDown tests membership in a triangle with its flat side on
// top and apex pointing down, inscribed in the o.Lx x o.Ly bounding
// box centered at (o.CenterX, o.CenterY).
func insideTriDown(o config.Obstacle, x, y float64) bool {
	left := o.CenterX - o.Lx/2
	right := o.CenterX + o.Lx/2
	top := o.CenterY + o.Ly/2
	bottom := o.CenterY - o.Ly/2
	if x < left || x > right || y < bottom || y > top {
		return false
	}
	// Linear interpolation of the half-width at height y, shrinking
	// from Lx/2 at the top to 0 at the apex (bottom).
	frac := (y - bottom) / (top - bottom)
	halfWidth := (o.Lx / 2) * frac
	return math.Abs(x-o.CenterX) <= halfWidth
}

// insideTriUp tests membership in a triangle with its flat side on the
// bottom and apex pointing up.
func insideTriUp(o config.Obstacle, x, y float64) bool {
	left := o.CenterX - o.Lx/2
	right := o.CenterX + o.Lx/2
	top := o.CenterY + o.Ly/2
	bottom := o.CenterY - o.Ly/2
	if x < left || x > right || y < bottom || y > top {
		return false
	}
	frac := (top - y) / (top - bottom)
	halfWidth := (o.Lx / 2) * frac
	return math.Abs(x-o.CenterX) <= halfWidth
}

// Side identifies which edge of a triangular hole a point on its
// boundary lies closest to, used by the scattering kernel to pick the
// local surface normal.
type Side int

const (
	SideLeft Side = iota
	SideRight
	SideFlat
)

// TriDownSide classifies which edge of a tri-down hole the phonon at
// (x, y) travelling at angle theta, with step the distance covered per
// timestep, has struck: the flat top edge if (x, y) lies within one
// step below the top edge and the phonon is heading down toward the
// apex (|theta| > pi/2), i.e. it entered through that edge; the slanted
// sidewalls otherwise.
func TriDownSide(o config.Obstacle, x, y, theta, step float64) Side {
	top := o.CenterY + o.Ly/2
	if y+step > top && math.Abs(theta) > math.Pi/2 {
		return SideFlat
	}
	if x < o.CenterX {
		return SideLeft
	}
	return SideRight
}

// TriUpSide is the TriDownSide analogue for a tri-up hole: the flat
// bottom edge if (x, y) lies within one step above the bottom edge and
// the phonon is heading up toward the apex (|theta| < pi/2).
func TriUpSide(o config.Obstacle, x, y, theta, step float64) Side {
	bottom := o.CenterY - o.Ly/2
	if y-step < bottom && math.Abs(theta) < math.Pi/2 {
		return SideFlat
	}
	if x < o.CenterX {
		return SideLeft
	}
	return SideRight
}

// PillarConeRadius returns the radius of a truncated-cone pillar's
// cross-section at height z above the slab surface (z in [0,
// PillarHeight]): it shrinks linearly from o.Radius at z=0 according to
// the wall angle, per §4.D.
func PillarConeRadius(o config.Obstacle, z float64) float64 {
	if z <= 0 {
		return o.Radius
	}
	shrink := z / math.Tan(o.PillarWallAngle)
	r := o.Radius - shrink
	if r < 0 {
		return 0
	}
	return r
}
