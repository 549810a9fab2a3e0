// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ColonelBlimp/dtmf/internal/dtmf"
	"github.com/ColonelBlimp/dtmf/internal/spectral"
	"github.com/spf13/viper"
)

const (
	AppName       = "dtmf"
	ConfigType    = "yaml"
	DefaultConfig = `# DTMF Detector Configuration

# Simulation
sample_rate: 3266         # Sampling frequency in Hz (at least twice 1633 Hz)
sample_count: 256         # Samples per analysis block, power of two
noise_amplitude: 4        # Uniform noise amplitude relative to the unit tones
backend: "algofft"        # Transform backend: algofft, godsp, gonum
seed: 0                   # Noise generator seed (0 = seed from the clock)
workers: 1                # Parallel detections in argument mode

# Live capture (listen command)
device_index: -1          # -1 for default device
capture_sample_rate: 8000 # Capture sample rate in Hz
capture_block_size: 256   # Samples per analysis block, power of two
overlap_pct: 50           # Block overlap percentage (0-99)
threshold: 4              # Winning tone energy over the mean of the others (0 = off)
hysteresis: 3             # Consecutive blocks required to confirm a key change

# Output
debug: false              # Enable debug logging
`
)

// MinSampleRate is twice the highest DTMF tone
var MinSampleRate = 2 * dtmf.ColumnTones[len(dtmf.ColumnTones)-1]

// Settings holds all application configuration
type Settings struct {
	// Simulation
	SampleRate     float64 `mapstructure:"sample_rate"`
	SampleCount    int     `mapstructure:"sample_count"`
	NoiseAmplitude float64 `mapstructure:"noise_amplitude"`
	Backend        string  `mapstructure:"backend"`
	Seed           uint32  `mapstructure:"seed"`
	Workers        int     `mapstructure:"workers"`

	// Live capture
	DeviceIndex       int     `mapstructure:"device_index"`
	CaptureSampleRate float64 `mapstructure:"capture_sample_rate"`
	CaptureBlockSize  int     `mapstructure:"capture_block_size"`
	OverlapPct        int     `mapstructure:"overlap_pct"`
	Threshold         float64 `mapstructure:"threshold"`
	Hysteresis        int     `mapstructure:"hysteresis"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Detector returns the simulation parameters as a detector configuration.
func (s *Settings) Detector() dtmf.Config {
	return dtmf.Config{
		SampleRate:     s.SampleRate,
		Samples:        s.SampleCount,
		NoiseAmplitude: s.NoiseAmplitude,
	}
}

// Capture returns the detector configuration used on live audio. Live
// samples carry their own noise, so none is synthesized.
func (s *Settings) Capture() dtmf.Config {
	return dtmf.Config{
		SampleRate: s.CaptureSampleRate,
		Samples:    s.CaptureBlockSize,
	}
}

// Stream returns the debounce settings for live detection.
func (s *Settings) Stream() dtmf.StreamConfig {
	return dtmf.StreamConfig{
		Threshold:  s.Threshold,
		Hysteresis: s.Hysteresis,
		OverlapPct: s.OverlapPct,
	}
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/dtmf/
func Init() error {
	viper.SetDefault("sample_rate", 3266)
	viper.SetDefault("sample_count", 256)
	viper.SetDefault("noise_amplitude", dtmf.DefaultNoiseAmplitude)
	viper.SetDefault("backend", spectral.DefaultBackend)
	viper.SetDefault("seed", 0)
	viper.SetDefault("workers", 1)
	viper.SetDefault("device_index", -1)
	viper.SetDefault("capture_sample_rate", 8000)
	viper.SetDefault("capture_block_size", 256)
	viper.SetDefault("overlap_pct", 50)
	viper.SetDefault("threshold", 4)
	viper.SetDefault("hysteresis", 3)
	viper.SetDefault("debug", false)

	viper.SetConfigType(ConfigType)
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// .config.yaml wins over config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Simulation
	if s.SampleRate < MinSampleRate || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between %v and 192000 Hz, got %v", MinSampleRate, s.SampleRate))
	}
	if s.SampleCount < 16 || s.SampleCount > 65536 || !spectral.IsPowerOfTwo(s.SampleCount) {
		errs = append(errs, fmt.Errorf("sample_count must be a power of 2 between 16 and 65536, got %d", s.SampleCount))
	}
	if s.NoiseAmplitude < 0 {
		errs = append(errs, fmt.Errorf("noise_amplitude must be non-negative, got %v", s.NoiseAmplitude))
	}
	if !spectral.IsBackend(s.Backend) {
		errs = append(errs, fmt.Errorf("backend must be one of %s, got %q",
			strings.Join(spectral.Backends(), ", "), s.Backend))
	}
	if s.Workers < 1 || s.Workers > 256 {
		errs = append(errs, fmt.Errorf("workers must be between 1 and 256, got %d", s.Workers))
	}

	// Live capture
	if s.CaptureSampleRate < MinSampleRate || s.CaptureSampleRate > 192000 {
		errs = append(errs, fmt.Errorf("capture_sample_rate must be between %v and 192000 Hz, got %v", MinSampleRate, s.CaptureSampleRate))
	}
	if s.CaptureBlockSize < 16 || s.CaptureBlockSize > 65536 || !spectral.IsPowerOfTwo(s.CaptureBlockSize) {
		errs = append(errs, fmt.Errorf("capture_block_size must be a power of 2 between 16 and 65536, got %d", s.CaptureBlockSize))
	}
	if s.OverlapPct < 0 || s.OverlapPct > 99 {
		errs = append(errs, fmt.Errorf("overlap_pct must be between 0 and 99, got %d", s.OverlapPct))
	}
	if s.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must be non-negative, got %v", s.Threshold))
	}
	if s.Hysteresis < 1 || s.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("hysteresis must be between 1 and 50, got %d", s.Hysteresis))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
