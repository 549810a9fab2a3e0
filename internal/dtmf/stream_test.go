package dtmf

import (
	"math"
	"testing"
	"time"

	"github.com/ColonelBlimp/dtmf/internal/spectral"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toneStream returns n float32 samples of key's two tones at half amplitude
func toneStream(key rune, n int, rate float64) []float32 {
	p, _ := Lookup(key)
	out := make([]float32, n)
	for i := range out {
		v := 0.5*math.Sin(2*math.Pi*float64(i)*p.Column/rate) +
			0.5*math.Sin(2*math.Pi*float64(i)*p.Row/rate)
		out[i] = float32(v)
	}
	return out
}

func newTestStream(t *testing.T, cfg StreamConfig) (*StreamDetector, *[]KeyEvent) {
	t.Helper()
	det := newTestDetector(t, spectral.DefaultBackend, Config{SampleRate: 8000, Samples: 256})

	s, err := NewStreamDetector(cfg, det)
	require.NoError(t, err)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(10 * time.Millisecond)
		return clock
	}

	var events []KeyEvent
	s.SetCallback(func(e KeyEvent) { events = append(events, e) })
	return s, &events
}

func TestNewStreamDetector_Validation(t *testing.T) {
	det := newTestDetector(t, spectral.DefaultBackend, DefaultConfig())

	tests := []struct {
		name string
		cfg  StreamConfig
		det  *Detector
		want error
	}{
		{"nil detector", StreamConfig{Hysteresis: 1}, nil, ErrDetectorRequired},
		{"negative threshold", StreamConfig{Threshold: -1, Hysteresis: 1}, det, ErrInvalidThreshold},
		{"zero hysteresis", StreamConfig{Hysteresis: 0}, det, ErrInvalidHysteresis},
		{"negative overlap", StreamConfig{Hysteresis: 1, OverlapPct: -1}, det, ErrInvalidOverlap},
		{"full overlap", StreamConfig{Hysteresis: 1, OverlapPct: 100}, det, ErrInvalidOverlap},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStreamDetector(tt.cfg, tt.det)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, s)
		})
	}
}

func TestStreamDetector_PressAndRelease(t *testing.T) {
	s, events := newTestStream(t, StreamConfig{Threshold: 4, Hysteresis: 2, OverlapPct: 50})

	require.NoError(t, s.Process(make([]float32, 1024)))
	assert.Empty(t, *events, "silence must not produce a key")

	require.NoError(t, s.Process(toneStream('5', 2048, 8000)))
	require.Len(t, *events, 1)
	assert.Equal(t, '5', (*events)[0].Key)
	assert.True(t, (*events)[0].Pressed)
	assert.Equal(t, '5', s.Current())

	require.NoError(t, s.Process(make([]float32, 2048)))
	require.Len(t, *events, 2)
	release := (*events)[1]
	assert.Equal(t, '5', release.Key)
	assert.False(t, release.Pressed)
	assert.Greater(t, release.Duration, time.Duration(0))
	assert.Equal(t, rune(0), s.Current())
}

func TestStreamDetector_KeyChange(t *testing.T) {
	s, events := newTestStream(t, StreamConfig{Threshold: 4, Hysteresis: 1})

	require.NoError(t, s.Process(toneStream('1', 1024, 8000)))
	require.NoError(t, s.Process(toneStream('#', 1024, 8000)))

	var got []string
	for _, e := range *events {
		state := "up"
		if e.Pressed {
			state = "down"
		}
		got = append(got, string(e.Key)+" "+state)
	}
	assert.Equal(t, []string{"1 down", "1 up", "# down"}, got)
}

func TestStreamDetector_ZeroThresholdIsPlainPeakPicking(t *testing.T) {
	s, events := newTestStream(t, StreamConfig{Threshold: 0, Hysteresis: 1})

	// without a dominance check even silence resolves to a key
	require.NoError(t, s.Process(make([]float32, 256)))
	require.Len(t, *events, 1)
	assert.Equal(t, '1', (*events)[0].Key)
}

func TestStreamDetector_HysteresisIgnoresGlitch(t *testing.T) {
	s, events := newTestStream(t, StreamConfig{Threshold: 4, Hysteresis: 3})

	// a single block of tone is shorter than the hysteresis window
	require.NoError(t, s.Process(toneStream('9', 256, 8000)))
	require.NoError(t, s.Process(make([]float32, 1024)))
	assert.Empty(t, *events)
}

func TestStreamDetector_Reset(t *testing.T) {
	s, _ := newTestStream(t, StreamConfig{Threshold: 4, Hysteresis: 1})

	require.NoError(t, s.Process(toneStream('7', 300, 8000)))
	assert.Equal(t, '7', s.Current())

	s.Reset()
	assert.Equal(t, rune(0), s.Current())
	assert.Empty(t, s.buffer)
}
