// internal/spectral/correlate.go
package spectral

import (
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/conv"
	"gonum.org/v1/gonum/floats"
)

// Names of the filter checks, as reported in Result.Name
const (
	Correlation = "correlation"
	Convolution = "convolution"
)

// Filter check sizes. The signal carries FilterLength rounded up to a
// multiple of four extra samples so every output lag is fully overlapped.
const (
	FilterLength = 256
	FilterOutput = 2048
	FilterSignal = (FilterLength+3)&^3 + FilterOutput
)

// Correlate returns n lags of the correlation of signal with filter:
// out[i] = sum over p of signal[i+p]*filter[p]. signal must hold at least
// n+len(filter)-1 samples.
func Correlate(signal, filter []float64, n int) ([]float64, error) {
	valid, err := conv.CorrelateMode(signal, filter, conv.ModeValid)
	if err != nil {
		return nil, fmt.Errorf("correlate: %w", err)
	}
	return firstLags(valid, len(signal), len(filter), n)
}

// Convolve is Correlate with the filter run backwards:
// out[i] = sum over p of signal[i+p]*filter[len(filter)-1-p].
func Convolve(signal, filter []float64, n int) ([]float64, error) {
	valid, err := conv.ConvolveMode(signal, filter, conv.ModeValid)
	if err != nil {
		return nil, fmt.Errorf("convolve: %w", err)
	}
	return firstLags(valid, len(signal), len(filter), n)
}

func firstLags(valid []float64, signalLen, filterLen, n int) ([]float64, error) {
	if n < 0 || signalLen < filterLen || len(valid) < n {
		return nil, fmt.Errorf("%w: %d signal samples cannot give %d lags of a %d tap filter",
			ErrLengthMismatch, signalLen, n, filterLen)
	}
	return valid[:n], nil
}

// CheckFilters correlates and convolves a FilterSignal-long run of ones with
// a FilterLength box filter. Every output lag should equal FilterLength.
func CheckFilters() ([]Result, error) {
	signal := make([]float64, FilterSignal)
	floats.AddConst(1, signal)
	filter := make([]float64, FilterLength)
	floats.AddConst(1, filter)

	want := make([]float64, FilterOutput)
	floats.AddConst(FilterLength, want)

	checks := []struct {
		name string
		run  func([]float64, []float64, int) ([]float64, error)
	}{
		{Correlation, Correlate},
		{Convolution, Convolve},
	}

	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		got, err := c.run(signal, filter, FilterOutput)
		if err != nil {
			return nil, err
		}
		e := floats.Distance(want, got, 2) / floats.Norm(want, 2)
		results = append(results, Result{Name: c.name, Error: e})
	}
	return results, nil
}
