// internal/dtmf/synth.go
package dtmf

import "math"

// DefaultNoiseAmplitude scales the uniform noise to four times the range of
// each tone.
const DefaultNoiseAmplitude = 4.0

// Source supplies uniform values in [0, 1).
type Source interface {
	Next() float64
}

// Synthesize returns n samples at sampleRate of uniform noise in
// [0, noiseAmplitude) plus one unit sine per tone in p, each tone starting at
// an independent random phase.
//
// Draw order is fixed: n noise values, then the column phase, then the row
// phase. Noise is drawn even when noiseAmplitude is zero so a given source
// always yields the same phases.
func Synthesize(p Pair, n int, sampleRate, noiseAmplitude float64, src Source) []float64 {
	if n <= 0 {
		return []float64{}
	}

	samples := make([]float64, n)
	for i := range samples {
		samples[i] = noiseAmplitude * src.Next()
	}

	addTone(samples, p.Column, sampleRate, src.Next())
	addTone(samples, p.Row, sampleRate, src.Next())
	return samples
}

// addTone adds sin(2π(i*freq/sampleRate + phase)) to every sample
func addTone(samples []float64, freq, sampleRate, phase float64) {
	for i := range samples {
		samples[i] += math.Sin(2 * math.Pi * (float64(i)*freq/sampleRate + phase))
	}
}
