// internal/dtmf/classify.go
package dtmf

import "math"

// Spectrum gives read access to unpacked transform bins.
type Spectrum interface {
	Bin(k int) (re, im float64)
}

// BinIndex returns the transform bin nearest freq for an n-point transform
// at sampleRate. Halfway cases round up.
func BinIndex(freq, sampleRate float64, n int) int {
	// explicit conversion keeps the product rounded before the add
	pos := float64(freq / sampleRate * float64(n))
	return int(math.Floor(pos + 0.5))
}

// BestMatch returns the index of the candidate frequency whose bin holds the
// most energy. Ties go to the lowest index. There is no absolute floor: noise
// alone still produces a winner. candidates must not be empty.
func BestMatch(s Spectrum, candidates []float64, sampleRate float64, n int) int {
	best := 0
	bestEnergy := -1.0
	for i, f := range candidates {
		re, im := s.Bin(BinIndex(f, sampleRate, n))
		energy := re*re + im*im
		if energy > bestEnergy {
			bestEnergy = energy
			best = i
		}
	}
	return best
}

// Energies picks each candidate's bin out of a power spectrum laid out as
// spectral.(*Split).Power returns it: |X[k]|^2 for k = 0..n/2.
func Energies(power []float64, candidates []float64, sampleRate float64, n int) []float64 {
	out := make([]float64, len(candidates))
	for i, f := range candidates {
		out[i] = power[BinIndex(f, sampleRate, n)]
	}
	return out
}
