// internal/spectral/algofft.go
package spectral

import (
	"sync"

	algofft "github.com/cwbudde/algo-fft"
)

// realForward is the part of algo-fft's float64 real plan the backend uses
type realForward interface {
	Forward(spectrum []complex128, input []float64) error
}

// algofftPlan wraps an algo-fft real plan. The plan reuses internal scratch
// space, so Forward holds the lock for the whole transform.
type algofftPlan struct {
	mu     sync.Mutex
	n      int
	plan   realForward
	seq    []float64
	coeffs []complex128
}

func newAlgoFFTPlan(n int) (Plan, error) {
	plan, err := algofft.NewPlanReal64WithOptions(n, algofft.PlanOptions{
		Planner: algofft.PlannerEstimate,
	})
	if err != nil {
		return nil, err
	}

	return &algofftPlan{
		n:      n,
		plan:   plan,
		seq:    make([]float64, n),
		coeffs: make([]complex128, n/2+1),
	}, nil
}

func (p *algofftPlan) Len() int        { return p.n }
func (p *algofftPlan) Backend() string { return BackendAlgoFFT }

func (p *algofftPlan) Forward(buf *Split) error {
	if err := checkSplit(p.n, buf); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plan == nil {
		return ErrClosed
	}

	Interleave(p.seq, buf)
	if err := p.plan.Forward(p.coeffs, p.seq); err != nil {
		return err
	}
	packHalfSpectrum(buf, p.coeffs)
	return nil
}

func (p *algofftPlan) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plan = nil
	p.seq, p.coeffs = nil, nil
	return nil
}

// algofftComplexPlan copies src aside first so dst may alias it
type algofftComplexPlan struct {
	mu   sync.Mutex
	n    int
	plan *algofft.Plan[complex128]
	in   []complex128
}

func newAlgoFFTComplexPlan(n int) (ComplexPlan, error) {
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, err
	}
	return &algofftComplexPlan{n: n, plan: plan, in: make([]complex128, n)}, nil
}

func (p *algofftComplexPlan) Len() int        { return p.n }
func (p *algofftComplexPlan) Backend() string { return BackendAlgoFFT }

func (p *algofftComplexPlan) Forward(dst, src []complex128) error {
	if err := checkComplex(p.n, dst, src); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plan == nil {
		return ErrClosed
	}

	copy(p.in, src)
	return p.plan.Forward(dst, p.in)
}

func (p *algofftComplexPlan) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plan = nil
	p.in = nil
	return nil
}
