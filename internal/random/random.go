// internal/random/random.go
// Package random provides the small linear congruential generator used to
// synthesize noisy test signals.
package random

import "time"

const (
	// Multiplier and Increment are the "quick and dirty" LCG constants from
	// Numerical Recipes (2nd ed., p. 284).
	Multiplier uint32 = 1664525
	Increment  uint32 = 1013904223

	// deriveStep spreads derived seeds across the state space (2^32 / phi)
	deriveStep uint32 = 0x9E3779B9

	// scale converts the top 24 bits of state into [0, 1)
	scale = 1.0 / (1 << 24)
)

// Source is a deterministic pseudo-random generator producing values in [0, 1).
// It is fast and low quality: not suitable for cryptography or statistics that
// need long periods in the low bits. A Source is not safe for concurrent use;
// give each goroutine its own.
type Source struct {
	state uint32
}

// New returns a Source seeded with seed.
func New(seed uint32) *Source {
	return &Source{state: seed}
}

// NewFromTime returns a Source seeded from the wall clock (seconds).
// Successive runs see different data; two calls within the same second do not.
func NewFromTime() *Source {
	return New(uint32(time.Now().Unix()))
}

// State returns the current generator state. Before the first Next it is
// the seed.
func (s *Source) State() uint32 {
	return s.state
}

// Next advances the state and returns its high 24 bits scaled to [0, 1).
func (s *Source) Next() float64 {
	// uint32 arithmetic wraps, giving the mod 2^32 recurrence for free
	s.state = Multiplier*s.state + Increment
	return float64(s.state>>8) * scale
}

// Derive returns the seed for task i of a batch started from seed.
// Distinct i give distinct seeds, so parallel tasks never share a sequence.
func Derive(seed uint32, i int) uint32 {
	return seed + uint32(i)*deriveStep
}
