// internal/spectral/gonum.go
package spectral

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// gonumPlan wraps a fourier.FFT, whose work arrays make it unsafe to share
// between goroutines without the lock.
type gonumPlan struct {
	mu     sync.Mutex
	n      int
	fft    *fourier.FFT
	seq    []float64
	coeffs []complex128
}

func newGonumPlan(n int) (Plan, error) {
	return &gonumPlan{
		n:      n,
		fft:    fourier.NewFFT(n),
		seq:    make([]float64, n),
		coeffs: make([]complex128, n/2+1),
	}, nil
}

func (p *gonumPlan) Len() int        { return p.n }
func (p *gonumPlan) Backend() string { return BackendGonum }

func (p *gonumPlan) Forward(buf *Split) error {
	if err := checkSplit(p.n, buf); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fft == nil {
		return ErrClosed
	}

	Interleave(p.seq, buf)
	p.coeffs = p.fft.Coefficients(p.coeffs, p.seq)
	packHalfSpectrum(buf, p.coeffs)
	return nil
}

func (p *gonumPlan) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fft = nil
	p.seq, p.coeffs = nil, nil
	return nil
}

type gonumComplexPlan struct {
	mu  sync.Mutex
	n   int
	fft *fourier.CmplxFFT
	seq []complex128
}

func newGonumComplexPlan(n int) (ComplexPlan, error) {
	return &gonumComplexPlan{
		n:   n,
		fft: fourier.NewCmplxFFT(n),
		seq: make([]complex128, n),
	}, nil
}

func (p *gonumComplexPlan) Len() int        { return p.n }
func (p *gonumComplexPlan) Backend() string { return BackendGonum }

func (p *gonumComplexPlan) Forward(dst, src []complex128) error {
	if err := checkComplex(p.n, dst, src); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fft == nil {
		return ErrClosed
	}

	copy(p.seq, src)
	p.fft.Coefficients(dst, p.seq)
	return nil
}

func (p *gonumComplexPlan) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fft = nil
	p.seq = nil
	return nil
}
