// Package analysis implements the distribution diagnostics of
// component K: FFT-based autocorrelation of a thermal-map slice (to
// surface periodicity introduced by a regular hole/pillar lattice) and
// a histogram-distance statistic between an observed free-path
// distribution and a reference exponential.
package analysis

import (
	"errors"
	"math"
	"sort"
	"sync"

	algofft "github.com/cwbudde/algo-fft"
)

var autocorrPlanCache sync.Map // map[int]*autocorrPlan

// autocorrPlan caches the forward/inverse real-FFT plans for one
// transform length, mirroring the fast-then-safe fallback pattern used
// for the teacher's lag-correlation plan.
type autocorrPlan struct {
	mu   sync.Mutex
	n    int
	fast *algofft.FastPlanReal64
	safe *algofft.PlanRealT[float64, complex128]

	spec []complex128
	out  []float64
}

func getAutocorrPlan(n int) (*autocorrPlan, error) {
	if v, ok := autocorrPlanCache.Load(n); ok {
		return v.(*autocorrPlan), nil
	}

	p := &autocorrPlan{
		n:    n,
		spec: make([]complex128, n/2+1),
		out:  make([]float64, n),
	}

	fast, err := algofft.NewFastPlanReal64(n)
	if err == nil {
		p.fast = fast
	} else if !errors.Is(err, algofft.ErrNotImplemented) {
		// Fall through to the safe plan below.
	}

	safe, err := algofft.NewPlanReal64(n)
	if err != nil {
		if p.fast == nil {
			return nil, err
		}
	} else {
		p.safe = safe
	}

	actual, _ := autocorrPlanCache.LoadOrStore(n, p)
	return actual.(*autocorrPlan), nil
}

func (p *autocorrPlan) forward(dst []complex128, src []float64) error {
	if p.fast != nil {
		p.fast.Forward(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Forward(dst, src)
	}
	return errors.New("analysis: missing autocorrelation FFT forward plan")
}

func (p *autocorrPlan) inverse(dst []float64, src []complex128) error {
	if p.fast != nil {
		p.fast.Inverse(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Inverse(dst, src)
	}
	return errors.New("analysis: missing autocorrelation FFT inverse plan")
}

// Autocorrelation computes the normalized autocorrelation of a
// thermal-map row or column via FFT convolution with its own
// time-reverse: a regular hole or pillar lattice shows up as periodic
// peaks away from lag zero. The returned slice has the same length as
// row, indexed by lag 0..len(row)-1; the row is zero-padded to at least
// twice its length before the FFT, so lags do not wrap around.
func Autocorrelation(row []float64) ([]float64, error) {
	n := nextPow2(2 * len(row))
	if n < 2 {
		return nil, errors.New("analysis: row too short for autocorrelation")
	}

	plan, err := getAutocorrPlan(n)
	if err != nil {
		return nil, err
	}

	plan.mu.Lock()
	defer plan.mu.Unlock()

	padded := make([]float64, n)
	copy(padded, row)

	if err := plan.forward(plan.spec, padded); err != nil {
		return nil, err
	}
	for i := range plan.spec {
		plan.spec[i] = plan.spec[i] * complexConj(plan.spec[i])
	}
	if err := plan.inverse(plan.out, plan.spec); err != nil {
		return nil, err
	}

	result := make([]float64, len(row))
	if plan.out[0] == 0 {
		return result, nil
	}
	norm := plan.out[0]
	for i := range result {
		result[i] = plan.out[i] / norm
	}
	return result, nil
}

func complexConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// FreePathKSDistance computes the one-sample Kolmogorov-Smirnov
// statistic between an observed free-path sample and the reference
// exponential distribution with the sample's own mean, used to check
// the gray-approximation scenario's free-path shape (S5).
func FreePathKSDistance(freePaths []float64) (float64, error) {
	if len(freePaths) == 0 {
		return 0, errors.New("analysis: no free paths supplied")
	}
	sorted := append([]float64(nil), freePaths...)
	sort.Float64s(sorted)

	var mean float64
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(len(sorted))
	if mean <= 0 {
		return 0, errors.New("analysis: non-positive mean free path")
	}

	n := float64(len(sorted))
	var maxDiff float64
	for i, v := range sorted {
		empirical := float64(i+1) / n
		reference := 1 - math.Exp(-v/mean)
		if d := math.Abs(empirical - reference); d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff, nil
}
