// internal/dtmf/stream.go
package dtmf

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrInvalidThreshold indicates the dominance threshold must be non-negative
	ErrInvalidThreshold = errors.New("threshold must be non-negative")
	// ErrInvalidHysteresis indicates hysteresis must be at least one block
	ErrInvalidHysteresis = errors.New("hysteresis must be at least 1")
	// ErrInvalidOverlap indicates overlap percentage must be 0-99
	ErrInvalidOverlap = errors.New("overlap percentage must be between 0 and 99")
	// ErrDetectorRequired indicates a Detector instance is required
	ErrDetectorRequired = errors.New("detector instance is required")
)

// KeyEvent reports a key press or release confirmed by the stream detector.
type KeyEvent struct {
	// Key is the key pressed or released
	Key rune
	// Pressed is true on press, false on release
	Pressed bool
	// Timestamp is when the change was confirmed
	Timestamp time.Time
	// Duration is how long the previous state lasted (zero for the first event)
	Duration time.Duration
}

// KeyCallback receives key events. It runs on the processing path and must
// not block.
type KeyCallback func(event KeyEvent)

// StreamConfig controls live detection on a continuous sample stream.
type StreamConfig struct {
	// Threshold is how many times the winning candidate's energy must exceed
	// the mean of the other three in its group, for both groups, before a
	// block counts as a key. Zero accepts every block, i.e. plain peak picking.
	Threshold float64
	// Hysteresis is consecutive blocks required to confirm a change
	Hysteresis int
	// OverlapPct is the block overlap percentage 0-99
	OverlapPct int
}

// StreamDetector turns a continuous sample stream into debounced key
// events. Unlike Detector.Detect it can report "no key", because it applies
// a dominance threshold on top of peak picking.
type StreamDetector struct {
	config    StreamConfig
	detector  *Detector
	blockSize int

	buffer  []float64
	hopSize int

	current      rune // confirmed key, 0 when idle
	pending      rune
	pendingCount int

	lastTransition time.Time
	now            func() time.Time

	callbackPtr atomic.Pointer[KeyCallback]
}

// NewStreamDetector creates a stream detector on top of det.
func NewStreamDetector(cfg StreamConfig, det *Detector) (*StreamDetector, error) {
	if det == nil {
		return nil, ErrDetectorRequired
	}
	if cfg.Threshold < 0 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 1 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.OverlapPct < 0 || cfg.OverlapPct >= 100 {
		return nil, ErrInvalidOverlap
	}

	blockSize := det.Config().Samples
	overlap := blockSize * cfg.OverlapPct / 100

	return &StreamDetector{
		config:    cfg,
		detector:  det,
		blockSize: blockSize,
		buffer:    make([]float64, 0, 2*blockSize),
		hopSize:   blockSize - overlap,
		now:       time.Now,
	}, nil
}

// SetCallback sets the callback for key events.
func (s *StreamDetector) SetCallback(cb KeyCallback) {
	if cb == nil {
		s.callbackPtr.Store(nil)
	} else {
		s.callbackPtr.Store(&cb)
	}
}

// Process appends samples to the stream and analyzes every complete block.
// It returns the first transform error, which leaves the stream state
// unchanged for the failed block.
func (s *StreamDetector) Process(samples []float32) error {
	for _, v := range samples {
		s.buffer = append(s.buffer, float64(v))
	}

	for len(s.buffer) >= s.blockSize {
		m, err := s.detector.Analyze(s.buffer[:s.blockSize])
		if err != nil {
			return err
		}
		s.update(s.observe(m))

		n := copy(s.buffer, s.buffer[s.hopSize:])
		s.buffer = s.buffer[:n]
	}
	return nil
}

// observe returns the key seen in one block, or 0 when either group lacks a
// dominant tone.
func (s *StreamDetector) observe(m Match) rune {
	if !dominant(m.ColumnEnergy, m.Column, s.config.Threshold) ||
		!dominant(m.RowEnergy, m.Row, s.config.Threshold) {
		return 0
	}
	return m.Key
}

func dominant(energies []float64, winner int, threshold float64) bool {
	if threshold <= 0 {
		return true
	}
	var rest float64
	for i, e := range energies {
		if i != winner {
			rest += e
		}
	}
	mean := rest / float64(len(energies)-1)
	return energies[winner] > threshold*mean
}

// update debounces block observations into confirmed key changes
func (s *StreamDetector) update(seen rune) {
	if seen == s.current {
		s.pending = s.current
		s.pendingCount = 0
		return
	}

	if seen == s.pending {
		s.pendingCount++
	} else {
		s.pending = seen
		s.pendingCount = 1
	}
	if s.pendingCount < s.config.Hysteresis {
		return
	}

	now := s.now()
	duration := time.Duration(0)
	if !s.lastTransition.IsZero() {
		duration = now.Sub(s.lastTransition)
	}

	if s.current != 0 {
		s.emit(KeyEvent{Key: s.current, Pressed: false, Timestamp: now, Duration: duration})
		duration = 0
	}
	if s.pending != 0 {
		s.emit(KeyEvent{Key: s.pending, Pressed: true, Timestamp: now, Duration: duration})
	}

	s.current = s.pending
	s.pendingCount = 0
	s.lastTransition = now
}

func (s *StreamDetector) emit(event KeyEvent) {
	if cb := s.callbackPtr.Load(); cb != nil {
		(*cb)(event)
	}
}

// Current returns the confirmed key, or 0 when no key is held
func (s *StreamDetector) Current() rune {
	return s.current
}

// Reset clears buffered samples and the debounce state
func (s *StreamDetector) Reset() {
	s.buffer = s.buffer[:0]
	s.current = 0
	s.pending = 0
	s.pendingCount = 0
	s.lastTransition = time.Time{}
}
