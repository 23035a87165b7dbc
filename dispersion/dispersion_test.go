package dispersion

import (
	"math"
	"testing"

	"github.com/cwbudde/freepaths/config"
)

func TestBuildRejectsBadInputs(t *testing.T) {
	coeffs := config.SiliconDispersion()
	if _, err := Build(coeffs, 1); err == nil {
		t.Fatal("expected error for n < 2")
	}
	bad := coeffs
	bad.KMax = 0
	if _, err := Build(bad, 100); err == nil {
		t.Fatal("expected error for non-positive KMax")
	}
}

func TestOmegaMonotonicAndNonNegative(t *testing.T) {
	tab, err := Build(config.SiliconDispersion(), 2000)
	if err != nil {
		t.Fatal(err)
	}
	for _, br := range []Branch{LA, TA} {
		prev := -1.0
		for j := 0; j < tab.NumPoints(); j++ {
			w := tab.Omega(br, j)
			if w < 0 {
				t.Fatalf("branch %v: negative omega at j=%d: %g", br, j, w)
			}
			if w < prev-1e-6 {
				t.Fatalf("branch %v: omega not monotone at j=%d: %g after %g", br, j, w, prev)
			}
			prev = w
		}
	}
}

// TestNearestIndexRoundTrip is the round-trip property of §8: for every
// grid index j, looking up the omega stored at j returns an index
// within one slot of j (exact equality isn't guaranteed only because
// two adjacent omegas can tie on distance).
func TestNearestIndexRoundTrip(t *testing.T) {
	tab, err := Build(config.SiliconDispersion(), 2000)
	if err != nil {
		t.Fatal(err)
	}
	for _, br := range []Branch{LA, TA} {
		for j := 0; j < tab.NumPoints(); j++ {
			w := tab.Omega(br, j)
			got := tab.NearestIndex(br, w)
			if diff := got - j; diff < -1 || diff > 1 {
				t.Fatalf("branch %v: round-trip failed at j=%d: got %d (omega=%g)", br, j, got, w)
			}
		}
	}
}

func TestNearestIndexClampsOutOfRange(t *testing.T) {
	tab, err := Build(config.SiliconDispersion(), 500)
	if err != nil {
		t.Fatal(err)
	}
	if j := tab.NearestIndex(LA, -1); j != 0 {
		t.Fatalf("expected clamp to 0 for negative omega, got %d", j)
	}
	huge := tab.MaxOmega(LA) * 10
	if j := tab.NearestIndex(LA, huge); j != tab.NumPoints()-1 {
		t.Fatalf("expected clamp to last index for huge omega, got %d", j)
	}
}

func TestGroupVelocityFinite(t *testing.T) {
	tab, err := Build(config.SiliconDispersion(), 1000)
	if err != nil {
		t.Fatal(err)
	}
	for _, br := range []Branch{LA, TA} {
		for j := 0; j < tab.NumPoints(); j++ {
			v := tab.GroupVelocity(br, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("branch %v: non-finite group velocity at j=%d", br, j)
			}
		}
	}
}

func TestTACutoffApplied(t *testing.T) {
	coeffs := config.SiliconDispersion()
	tab, err := Build(coeffs, 4000)
	if err != nil {
		t.Fatal(err)
	}
	maxAllowed := 2 * math.Pi * coeffs.TAFreqCutoffHz
	for j := 0; j < tab.NumPoints(); j++ {
		if tab.Omega(TA, j) > maxAllowed+1e-3 {
			t.Fatalf("TA omega at j=%d exceeds cutoff: %g > %g", j, tab.Omega(TA, j), maxAllowed)
		}
	}
}
