// Package dsp implements a small spatial low-pass filter used to smooth
// the thermal-map grid before it is written out, so
// Monte Carlo shot noise doesn't dominate a coarse-resolution plot.
package dsp

import "math"

// Biquad is a second-order IIR filter (no heap allocations in Process).
type Biquad struct {
	b0, b1, b2 float32
	a1, a2     float32

	x1, x2 float32
	y1, y2 float32
}

// NewBiquad creates a new biquad filter with the given coefficients.
func NewBiquad(b0, b1, b2, a1, a2 float32) *Biquad {
	return &Biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}

// Process runs one sample through the filter, Direct Form I.
func (b *Biquad) Process(input float32) float32 {
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return output
}

// Reset clears the filter state.
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// NewLowpass builds a biquad low-pass with cutoff and sampleRate given
// in the same unit (e.g. cycles and samples along a spatial axis).
func NewLowpass(cutoff, sampleRate, q float32) *Biquad {
	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	alpha := math.Sin(w0) / (2.0 * float64(q))
	cosw0 := math.Cos(w0)

	b0 := (1.0 - cosw0) / 2.0
	b1 := 1.0 - cosw0
	b2 := (1.0 - cosw0) / 2.0
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha

	return NewBiquad(
		float32(b0/a0),
		float32(b1/a0),
		float32(b2/a0),
		float32(a1/a0),
		float32(a2/a0),
	)
}

// SmoothRow applies a forward-backward (zero-phase) low-pass pass along
// a single thermal-map row, with cutoff expressed in cycles per sample
// (a fraction of the sampling rate), valid in (0, 0.5).
func SmoothRow(row []float64, cutoffFraction float32) []float64 {
	if len(row) < 4 || cutoffFraction <= 0 {
		out := make([]float64, len(row))
		copy(out, row)
		return out
	}

	f := NewLowpass(cutoffFraction, 1.0, 0.707)
	forward := make([]float32, len(row))
	for i, v := range row {
		forward[i] = f.Process(float32(v))
	}

	f.Reset()
	out := make([]float64, len(row))
	for i := len(forward) - 1; i >= 0; i-- {
		out[i] = float64(f.Process(forward[i]))
	}
	return out
}
