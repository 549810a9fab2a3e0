// internal/spectral/plan.go
package spectral

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"
)

var (
	// ErrInvalidLength indicates the transform length is not a power of two >= 4
	ErrInvalidLength = errors.New("transform length must be a power of two and at least 4")
	// ErrUnknownBackend indicates no backend is registered under the requested name
	ErrUnknownBackend = errors.New("unknown transform backend")
	// ErrPlanInit indicates the underlying FFT library could not prepare a plan
	ErrPlanInit = errors.New("transform plan initialization failed")
	// ErrLengthMismatch indicates input or output buffers do not match the plan length
	ErrLengthMismatch = errors.New("buffer length does not match plan length")
	// ErrClosed indicates the plan was used after Close
	ErrClosed = errors.New("transform plan is closed")
)

const (
	// BackendAlgoFFT uses github.com/cwbudde/algo-fft
	BackendAlgoFFT = "algofft"
	// BackendGoDSP uses github.com/mjibson/go-dsp/fft
	BackendGoDSP = "godsp"
	// BackendGonum uses gonum.org/v1/gonum/dsp/fourier
	BackendGonum = "gonum"

	// DefaultBackend is used when no backend is configured
	DefaultBackend = BackendAlgoFFT
)

// Plan is a prepared forward real FFT of a fixed length. Plans are expensive
// to build: create one at startup, reuse it for every transform, and Close it
// on shutdown. All implementations are safe for concurrent use.
type Plan interface {
	// Len returns the number of real input samples (N).
	Len() int
	// Backend returns the name the plan was created under.
	Backend() string
	// Forward transforms buf in place. On entry buf holds N real samples in
	// even/odd order (see SplitEvenOdd); on return it holds the packed half
	// spectrum documented on Split.
	Forward(buf *Split) error
	// Close releases the plan. Forward fails with ErrClosed afterwards.
	Close() error
}

type planConstructor func(n int) (Plan, error)

var backends = map[string]planConstructor{
	BackendAlgoFFT: newAlgoFFTPlan,
	BackendGoDSP:   newGoDSPPlan,
	BackendGonum:   newGonumPlan,
}

// Backends returns the registered backend names in sorted order.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBackend reports whether name is a registered backend.
func IsBackend(name string) bool {
	_, ok := backends[name]
	return ok
}

// NewPlan prepares an n-point forward real transform on the named backend.
// An empty backend selects DefaultBackend.
func NewPlan(backend string, n int) (Plan, error) {
	if backend == "" {
		backend = DefaultBackend
	}
	ctor, ok := backends[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBackend, backend, Backends())
	}
	if !IsPowerOfTwo(n) || n < 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}

	plan, err := ctor(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %s backend, length %d: %w", ErrPlanInit, backend, n, err)
	}
	return plan, nil
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

// Transform copies samples into a new Split in even/odd order and runs plan
// over it.
func Transform(plan Plan, samples []float64) (*Split, error) {
	buf := NewSplit(len(samples))
	if err := TransformTo(plan, buf, samples); err != nil {
		return nil, err
	}
	return buf, nil
}

// TransformTo is Transform into a caller-owned Split. samples is not
// modified.
func TransformTo(plan Plan, dst *Split, samples []float64) error {
	if len(samples) != plan.Len() {
		return fmt.Errorf("%w: %d samples, plan length %d", ErrLengthMismatch, len(samples), plan.Len())
	}
	if err := checkSplit(plan.Len(), dst); err != nil {
		return err
	}
	SplitEvenOdd(dst, samples)
	return plan.Forward(dst)
}

// checkSplit validates a Forward buffer against an n-point plan
func checkSplit(n int, buf *Split) error {
	if buf == nil || len(buf.Real) != n/2 || len(buf.Imag) != n/2 {
		return fmt.Errorf("%w: split does not hold %d samples", ErrLengthMismatch, n)
	}
	return nil
}

// packHalfSpectrum stores the first N/2+1 bins of a plain DFT into dst,
// doubling every value and moving the Nyquist bin into Imag[0].
func packHalfSpectrum(dst *Split, spectrum []complex128) {
	half := len(dst.Real)
	dst.Real[0] = 2 * real(spectrum[0])
	dst.Imag[0] = 2 * real(spectrum[half])
	for k := 1; k < half; k++ {
		dst.Real[k] = 2 * real(spectrum[k])
		dst.Imag[k] = 2 * imag(spectrum[k])
	}
}
