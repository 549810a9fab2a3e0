// internal/spectral/verify.go
package spectral

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/cmplxs"
)

var (
	// ErrBinRange indicates a reference tone outside the bins its transform can hold
	ErrBinRange = errors.New("reference tone bin out of range")
	// ErrInputModified indicates an out-of-place transform wrote to its input
	ErrInputModified = errors.New("out-of-place transform modified its input")
)

// Names of the reference checks, as reported in Result.Name
const (
	RealInPlace       = "real in-place"
	RealOutOfPlace    = "real out-of-place"
	ComplexInPlace    = "complex in-place"
	ComplexOutOfPlace = "complex out-of-place"
)

// Tone is a unit-amplitude cosine (or complex exponential) completing Bin
// cycles over the transform length, starting Phase cycles in.
type Tone struct {
	Bin   int
	Phase float64
}

// ReferenceLength is the transform length every reference tone set is
// chosen for.
const ReferenceLength = 1024

// Reference tone sets, one per check.
var (
	ReferenceTones = []Tone{
		{Bin: 79, Phase: 0},
		{Bin: 296, Phase: 0.2},
		{Bin: 143, Phase: 0.6},
	}
	OutOfPlaceTones = []Tone{
		{Bin: 48, Phase: 1.0 / 3},
		{Bin: 243, Phase: 0.82},
		{Bin: 300, Phase: 0.5},
	}
	ComplexInPlaceTones = []Tone{
		{Bin: 400, Phase: 0.618},
		{Bin: 623, Phase: 0.7},
		{Bin: 931, Phase: 0.125},
	}
	ComplexOutOfPlaceTones = []Tone{
		{Bin: 300, Phase: 0.3},
		{Bin: 450, Phase: 0.45},
		{Bin: 775, Phase: 0.775},
	}
)

// Result is the outcome of one reference check.
type Result struct {
	Name  string
	Error float64
}

// Cosines returns n samples of the sum of tones.
func Cosines(n int, tones []Tone) []float64 {
	x := make([]float64, n)
	for i := range x {
		var v float64
		for _, t := range tones {
			v += math.Cos(2 * math.Pi * (float64(i)*float64(t.Bin)/float64(n) + t.Phase))
		}
		x[i] = v
	}
	return x
}

// Exponentials returns n samples of the sum of e^(2πi(k*Bin/n + Phase)) for
// k = 0..n-1.
func Exponentials(n int, tones []Tone) []complex128 {
	x := make([]complex128, n)
	for i := range x {
		for _, t := range tones {
			x[i] += cmplx.Rect(1, 2*math.Pi*(float64(i)*float64(t.Bin)/float64(n)+t.Phase))
		}
	}
	return x
}

// Expected returns the packed spectrum a Plan should produce for
// Cosines(n, tones).
func Expected(n int, tones []Tone) (*Split, error) {
	s := NewSplit(n)
	for _, t := range tones {
		if t.Bin < 1 || t.Bin >= n/2 {
			return nil, fmt.Errorf("%w: bin %d for real length %d", ErrBinRange, t.Bin, n)
		}
		s.Real[t.Bin] += float64(n) * math.Cos(2*math.Pi*t.Phase)
		s.Imag[t.Bin] += float64(n) * math.Sin(2*math.Pi*t.Phase)
	}
	return s, nil
}

// ExpectedComplex returns the spectrum a ComplexPlan should produce for
// Exponentials(n, tones).
func ExpectedComplex(n int, tones []Tone) ([]complex128, error) {
	s := make([]complex128, n)
	for _, t := range tones {
		if t.Bin < 0 || t.Bin >= n {
			return nil, fmt.Errorf("%w: bin %d for complex length %d", ErrBinRange, t.Bin, n)
		}
		s[t.Bin] += cmplx.Rect(float64(n), 2*math.Pi*t.Phase)
	}
	return s, nil
}

// Check runs plan in place over Cosines(plan.Len(), tones) and returns the
// relative error against Expected.
func Check(plan Plan, tones []Tone) (float64, error) {
	n := plan.Len()
	want, err := Expected(n, tones)
	if err != nil {
		return 0, err
	}

	got, err := Transform(plan, Cosines(n, tones))
	if err != nil {
		return 0, fmt.Errorf("forward transform: %w", err)
	}
	return RelativeError(want, got), nil
}

// CheckOutOfPlace transforms Cosines(plan.Len(), tones) into a separate
// Split and fails with ErrInputModified if the samples changed.
func CheckOutOfPlace(plan Plan, tones []Tone) (float64, error) {
	n := plan.Len()
	want, err := Expected(n, tones)
	if err != nil {
		return 0, err
	}

	x := Cosines(n, tones)
	orig := slices.Clone(x)
	got := NewSplit(n)
	if err = TransformTo(plan, got, x); err != nil {
		return 0, fmt.Errorf("forward transform: %w", err)
	}
	if !slices.Equal(orig, x) {
		return 0, ErrInputModified
	}
	return RelativeError(want, got), nil
}

// CheckComplex runs plan over Exponentials(plan.Len(), tones), in place or
// into a separate slice, and returns the relative error against
// ExpectedComplex.
func CheckComplex(plan ComplexPlan, tones []Tone, inPlace bool) (float64, error) {
	n := plan.Len()
	want, err := ExpectedComplex(n, tones)
	if err != nil {
		return 0, err
	}

	x := Exponentials(n, tones)
	orig := slices.Clone(x)
	got := x
	if !inPlace {
		got = make([]complex128, n)
	}
	if err = plan.Forward(got, x); err != nil {
		return 0, fmt.Errorf("forward transform: %w", err)
	}
	if !inPlace && !slices.Equal(orig, x) {
		return 0, ErrInputModified
	}
	return complexRelativeError(want, got), nil
}

// CheckBackend runs the four transform checks on a real and a complex plan
// of one backend, both ReferenceLength long.
func CheckBackend(plan Plan, cplan ComplexPlan) ([]Result, error) {
	checks := []struct {
		name string
		run  func() (float64, error)
	}{
		{RealInPlace, func() (float64, error) { return Check(plan, ReferenceTones) }},
		{RealOutOfPlace, func() (float64, error) { return CheckOutOfPlace(plan, OutOfPlaceTones) }},
		{ComplexInPlace, func() (float64, error) { return CheckComplex(cplan, ComplexInPlaceTones, true) }},
		{ComplexOutOfPlace, func() (float64, error) { return CheckComplex(cplan, ComplexOutOfPlaceTones, false) }},
	}

	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		e, err := c.run()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		results = append(results, Result{Name: c.name, Error: e})
	}
	return results, nil
}

func complexRelativeError(expected, observed []complex128) float64 {
	d := cmplxs.Distance(expected, observed, 2)
	m := cmplxs.Norm(expected, 2)
	if m == 0 {
		if d == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return d / m
}
