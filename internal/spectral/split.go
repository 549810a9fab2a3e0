// internal/spectral/split.go
// Package spectral wraps third-party real FFT libraries behind a plan
// interface that produces split-complex, packed half spectra.
package spectral

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/floats"
)

// Split holds the packed half spectrum of an N-point real transform as two
// parallel arrays of N/2 values each.
//
// Real[k] and Imag[k] hold bin k for 1 <= k < N/2. Bin 0 (DC) and bin N/2
// (Nyquist) are purely real, so Real[0] holds DC and Imag[0] is reused for
// the Nyquist value. All values are twice the textbook DFT: a unit cosine at
// bin k with phase p reads N*cos(2πp) + i*N*sin(2πp).
//
// Before a forward transform the same arrays hold the input in even/odd
// order, see SplitEvenOdd.
type Split struct {
	Real []float64
	Imag []float64
}

// NewSplit allocates a Split for an n-point transform.
func NewSplit(n int) *Split {
	half := n / 2
	buf := make([]float64, 2*half)
	return &Split{Real: buf[:half:half], Imag: buf[half:]}
}

// Len returns the number of real samples the Split represents (N).
func (s *Split) Len() int {
	return 2 * len(s.Real)
}

// Bins returns the number of unpacked frequency bins (N/2+1).
func (s *Split) Bins() int {
	return len(s.Real) + 1
}

// Bin returns the real and imaginary part of bin k, 0 <= k <= N/2, undoing
// the DC/Nyquist packing.
func (s *Split) Bin(k int) (re, im float64) {
	half := len(s.Real)
	switch k {
	case 0:
		return s.Real[0], 0
	case half:
		return s.Imag[0], 0
	default:
		return s.Real[k], s.Imag[k]
	}
}

// SplitEvenOdd copies x into dst with even-indexed samples in dst.Real and
// odd-indexed samples in dst.Imag. len(x) must equal dst.Len().
func SplitEvenOdd(dst *Split, x []float64) {
	for i := range dst.Real {
		dst.Real[i] = x[2*i]
		dst.Imag[i] = x[2*i+1]
	}
}

// Interleave is the inverse of SplitEvenOdd: it writes s back into x in
// sample order. len(x) must equal s.Len().
func Interleave(x []float64, s *Split) {
	for i := range s.Real {
		x[2*i] = s.Real[i]
		x[2*i+1] = s.Imag[i]
	}
}

// Power writes |X[k]|^2 for k = 0..N/2 into dst and returns it. A nil or
// short dst is replaced by a new slice.
func (s *Split) Power(dst []float64) []float64 {
	bins := s.Bins()
	if cap(dst) < bins {
		dst = make([]float64, bins)
	}
	dst = dst[:bins]

	half := len(s.Real)
	if half > 1 {
		vecmath.Power(dst[1:half], s.Real[1:half], s.Imag[1:half])
	}
	dst[0] = s.Real[0] * s.Real[0]
	dst[half] = s.Imag[0] * s.Imag[0]
	return dst
}

// RelativeError returns the root of the summed squared error between two
// packed spectra divided by the summed squared magnitude of expected.
// Both Splits must have the same length.
func RelativeError(expected, observed *Split) float64 {
	dRe := floats.Distance(expected.Real, observed.Real, 2)
	dIm := floats.Distance(expected.Imag, observed.Imag, 2)
	nRe := floats.Norm(expected.Real, 2)
	nIm := floats.Norm(expected.Imag, 2)

	errSq := dRe*dRe + dIm*dIm
	magSq := nRe*nRe + nIm*nIm
	if magSq == 0 {
		if errSq == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Sqrt(errSq / magSq)
}
