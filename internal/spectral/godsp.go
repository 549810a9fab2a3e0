// internal/spectral/godsp.go
package spectral

import (
	"sync/atomic"

	"github.com/mjibson/go-dsp/fft"
)

// godspPlan delegates to go-dsp, which keeps its own locked factor cache, so
// the plan holds no shared buffers.
type godspPlan struct {
	n      int
	closed atomic.Bool
}

func newGoDSPPlan(n int) (Plan, error) {
	// warm the factor cache so the first Forward is not the slow one
	fft.EnsureRadix2Factors(n)
	return &godspPlan{n: n}, nil
}

func (p *godspPlan) Len() int        { return p.n }
func (p *godspPlan) Backend() string { return BackendGoDSP }

func (p *godspPlan) Forward(buf *Split) error {
	if err := checkSplit(p.n, buf); err != nil {
		return err
	}
	if p.closed.Load() {
		return ErrClosed
	}

	x := make([]float64, p.n)
	Interleave(x, buf)
	packHalfSpectrum(buf, fft.FFTReal(x))
	return nil
}

func (p *godspPlan) Close() error {
	p.closed.Store(true)
	return nil
}

// godspComplexPlan relies on fft.FFT returning a fresh slice, so dst may
// alias src.
type godspComplexPlan struct {
	n      int
	closed atomic.Bool
}

func newGoDSPComplexPlan(n int) (ComplexPlan, error) {
	fft.EnsureRadix2Factors(n)
	return &godspComplexPlan{n: n}, nil
}

func (p *godspComplexPlan) Len() int        { return p.n }
func (p *godspComplexPlan) Backend() string { return BackendGoDSP }

func (p *godspComplexPlan) Forward(dst, src []complex128) error {
	if err := checkComplex(p.n, dst, src); err != nil {
		return err
	}
	if p.closed.Load() {
		return ErrClosed
	}

	copy(dst, fft.FFT(src))
	return nil
}

func (p *godspComplexPlan) Close() error {
	p.closed.Store(true)
	return nil
}
