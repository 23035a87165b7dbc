// Package dispersion builds the bulk phonon dispersion table (component
// A): polynomial fits for the LA and TA branches sampled onto a uniform
// wavevector grid, with nearest-index lookup and finite-difference group
// velocity, mirroring the reference implementation's precomputed
// k/omega/group-velocity arrays.
package dispersion

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/freepaths/config"
)

// Branch identifies one of the two acoustic phonon branches carried by
// the table.
type Branch int

const (
	LA Branch = iota
	TA
)

func (b Branch) String() string {
	if b == LA {
		return "LA"
	}
	return "TA"
}

// Table holds the two branches' (k, omega, group velocity) arrays,
// uniformly sampled in k from 0 to KMax.
type Table struct {
	k      []float64 // shared wavevector grid
	omega  [2][]float64
	vg     [2][]float64
	kMax   float64
	cutoff float64 // TA branch angular-frequency cutoff, rad/s (2*pi*TAFreqCutoffHz)
}

// Build discretizes the polynomial dispersion fits of §4.A onto n
// uniformly spaced k points from 0 to coeffs.KMax, and precomputes group
// velocity by central finite differences (forward/backward at the
// endpoints). n must be >= 2.
func Build(coeffs config.DispersionCoeffs, n int) (*Table, error) {
	if n < 2 {
		return nil, fmt.Errorf("dispersion: n must be >= 2, got %d", n)
	}
	if coeffs.KMax <= 0 {
		return nil, fmt.Errorf("dispersion: KMax must be > 0")
	}

	t := &Table{
		kMax:   coeffs.KMax,
		cutoff: 2 * math.Pi * coeffs.TAFreqCutoffHz,
	}
	t.k = make([]float64, n)
	t.omega[LA] = make([]float64, n)
	t.omega[TA] = make([]float64, n)

	dk := coeffs.KMax / float64(n-1)
	for i := 0; i < n; i++ {
		k := float64(i) * dk
		t.k[i] = k
		t.omega[LA][i] = math.Abs(coeffs.LA1*k + coeffs.LA2*k*k + coeffs.LA3*k*k*k)
		wTA := math.Abs(coeffs.TA1*k + coeffs.TA2*k*k + coeffs.TA3*k*k*k + coeffs.TA4*k*k*k*k)
		if 2*math.Pi*coeffs.TAFreqCutoffHz > 0 && wTA > 2*math.Pi*coeffs.TAFreqCutoffHz {
			wTA = 2 * math.Pi * coeffs.TAFreqCutoffHz
		}
		t.omega[TA][i] = wTA
	}

	for _, br := range []Branch{LA, TA} {
		t.vg[br] = groupVelocity(t.k, t.omega[br])
	}
	return t, nil
}

// groupVelocity computes d(omega)/dk by central differences, falling
// back to one-sided differences at the grid endpoints.
func groupVelocity(k, omega []float64) []float64 {
	n := len(k)
	vg := make([]float64, n)
	if n == 1 {
		return vg
	}
	vg[0] = (omega[1] - omega[0]) / (k[1] - k[0])
	vg[n-1] = (omega[n-1] - omega[n-2]) / (k[n-1] - k[n-2])
	for i := 1; i < n-1; i++ {
		vg[i] = (omega[i+1] - omega[i-1]) / (k[i+1] - k[i-1])
	}
	return vg
}

// NumPoints returns the number of k-grid points per branch.
func (t *Table) NumPoints() int { return len(t.k) }

// KMax returns the upper bound of the sampled wavevector grid.
func (t *Table) KMax() float64 { return t.kMax }

// Omega returns the angular frequency at grid index j on branch br.
func (t *Table) Omega(br Branch, j int) float64 { return t.omega[br][j] }

// GroupVelocity returns the finite-difference group velocity at grid
// index j on branch br.
func (t *Table) GroupVelocity(br Branch, j int) float64 { return t.vg[br][j] }

// K returns the wavevector magnitude at grid index j.
func (t *Table) K(j int) float64 { return t.k[j] }

// NearestIndex returns the grid index j on branch br whose angular
// frequency omega[j] is closest to the requested omega. The table's
// omega arrays are monotonically non-decreasing in k (the physical
// regime sampled here never folds back), so binary search applies.
func (t *Table) NearestIndex(br Branch, omega float64) int {
	arr := t.omega[br]
	j := sort.SearchFloat64s(arr, omega)
	switch {
	case j <= 0:
		return 0
	case j >= len(arr):
		return len(arr) - 1
	default:
		if omega-arr[j-1] <= arr[j]-omega {
			return j - 1
		}
		return j
	}
}

// MaxOmega returns the largest angular frequency tabulated for branch
// br (the value at the last grid point, since omega is monotone here).
func (t *Table) MaxOmega(br Branch) float64 {
	arr := t.omega[br]
	return arr[len(arr)-1]
}
