// internal/dtmf/detector.go
package dtmf

import (
	"errors"
	"fmt"

	"github.com/ColonelBlimp/dtmf/internal/spectral"
)

var (
	// ErrUnknownKey indicates the key is not one of the 16 DTMF keys
	ErrUnknownKey = errors.New("key not recognized")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrBelowNyquist indicates the sample rate cannot represent the highest DTMF tone
	ErrBelowNyquist = errors.New("sample rate must be at least twice the highest DTMF tone")
	// ErrInvalidSampleCount indicates sample count must be a power of two >= 4
	ErrInvalidSampleCount = errors.New("sample count must be a power of two and at least 4")
	// ErrInvalidNoise indicates noise amplitude must be non-negative
	ErrInvalidNoise = errors.New("noise amplitude must be non-negative")
	// ErrPlanRequired indicates a transform plan is required
	ErrPlanRequired = errors.New("transform plan is required")
	// ErrPlanLength indicates the plan length differs from the sample count
	ErrPlanLength = errors.New("transform plan length does not match sample count")
)

// Config holds the signal parameters for synthesis and detection.
type Config struct {
	// SampleRate is the sampling frequency in Hz
	SampleRate float64
	// Samples is the transform length; must be a power of two
	Samples int
	// NoiseAmplitude scales the uniform noise added to synthesized signals
	NoiseAmplitude float64
}

// DefaultConfig samples 256 points at 3266 Hz, twice the highest DTMF tone,
// with noise four times the tone amplitude.
func DefaultConfig() Config {
	return Config{
		SampleRate:     3266,
		Samples:        256,
		NoiseAmplitude: DefaultNoiseAmplitude,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if c.SampleRate < 2*ColumnTones[len(ColumnTones)-1] {
		return ErrBelowNyquist
	}
	if c.Samples < 4 || !spectral.IsPowerOfTwo(c.Samples) {
		return ErrInvalidSampleCount
	}
	if c.NoiseAmplitude < 0 {
		return ErrInvalidNoise
	}
	return nil
}

// Match is the classification of one block of samples.
type Match struct {
	// Column and Row index ColumnTones and RowTones
	Column int
	Row    int
	// Key is the keypad symbol at (Column, Row)
	Key rune
	// ColumnEnergy and RowEnergy are the squared magnitudes at each candidate bin
	ColumnEnergy []float64
	RowEnergy    []float64
}

// Pair returns the tone pair of the match.
func (m Match) Pair() Pair {
	return Pair{Column: ColumnTones[m.Column], Row: RowTones[m.Row]}
}

// Result is the outcome of simulating and detecting one key. A Detected key
// different from Key is a misdetection, which is expected occasionally under
// heavy noise and is not an error.
type Result struct {
	Key      rune
	Sent     Pair
	Detected rune
	Found    Pair
	Match    Match
}

// Correct reports whether the detected key equals the sent key.
func (r Result) Correct() bool {
	return r.Detected == r.Key
}

// Detector synthesizes key signals and finds their tones with a shared,
// pre-built transform plan. A Detector is safe for concurrent use as long as
// each goroutine passes its own Source.
type Detector struct {
	config Config
	plan   spectral.Plan
}

// NewDetector creates a detector for cfg. The plan must be an
// cfg.Samples-point transform; the caller keeps ownership and closes it.
func NewDetector(cfg Config, plan spectral.Plan) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanRequired
	}
	if plan.Len() != cfg.Samples {
		return nil, fmt.Errorf("%w: plan %d, samples %d", ErrPlanLength, plan.Len(), cfg.Samples)
	}
	return &Detector{config: cfg, plan: plan}, nil
}

// Config returns the detector configuration
func (d *Detector) Config() Config {
	return d.config
}

// Detect simulates pressing key: it synthesizes the key's tones plus noise
// drawn from src and classifies the result. Unknown keys fail with
// ErrUnknownKey before anything is synthesized.
func (d *Detector) Detect(key rune, src Source) (Result, error) {
	pair, ok := Lookup(key)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	samples := Synthesize(pair, d.config.Samples, d.config.SampleRate, d.config.NoiseAmplitude, src)
	m, err := d.Analyze(samples)
	if err != nil {
		return Result{}, fmt.Errorf("detect %q: %w", key, err)
	}

	return Result{
		Key:      key,
		Sent:     pair,
		Detected: m.Key,
		Found:    m.Pair(),
		Match:    m,
	}, nil
}

// Analyze transforms samples (exactly Samples long) and picks the strongest
// column and row tone.
func (d *Detector) Analyze(samples []float64) (Match, error) {
	spectrum, err := spectral.Transform(d.plan, samples)
	if err != nil {
		return Match{}, err
	}
	return d.classify(spectrum, spectrum.Power(nil)), nil
}

func (d *Detector) classify(s Spectrum, power []float64) Match {
	rate, n := d.config.SampleRate, d.config.Samples

	col := BestMatch(s, ColumnTones[:], rate, n)
	row := BestMatch(s, RowTones[:], rate, n)
	key, _ := KeyAt(col, row)

	return Match{
		Column:       col,
		Row:          row,
		Key:          key,
		ColumnEnergy: Energies(power, ColumnTones[:], rate, n),
		RowEnergy:    Energies(power, RowTones[:], rate, n),
	}
}
