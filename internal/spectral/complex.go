// internal/spectral/complex.go
package spectral

import (
	"fmt"
)

// ComplexPlan is a prepared forward complex FFT of a fixed length. The
// output is the plain DFT, unscaled and unpacked. dst and src may be the
// same slice. All implementations are safe for concurrent use.
type ComplexPlan interface {
	Len() int
	Backend() string
	Forward(dst, src []complex128) error
	Close() error
}

var complexBackends = map[string]func(n int) (ComplexPlan, error){
	BackendAlgoFFT: newAlgoFFTComplexPlan,
	BackendGoDSP:   newGoDSPComplexPlan,
	BackendGonum:   newGonumComplexPlan,
}

// NewComplexPlan prepares an n-point forward complex transform on the named
// backend. An empty backend selects DefaultBackend.
func NewComplexPlan(backend string, n int) (ComplexPlan, error) {
	if backend == "" {
		backend = DefaultBackend
	}
	ctor, ok := complexBackends[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBackend, backend, Backends())
	}
	if !IsPowerOfTwo(n) || n < 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}

	plan, err := ctor(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %s complex backend, length %d: %w", ErrPlanInit, backend, n, err)
	}
	return plan, nil
}

func checkComplex(n int, dst, src []complex128) error {
	if len(dst) != n || len(src) != n {
		return fmt.Errorf("%w: got dst %d, src %d, want %d", ErrLengthMismatch, len(dst), len(src), n)
	}
	return nil
}
