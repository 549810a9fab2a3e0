// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/ColonelBlimp/dtmf/internal/config"
	"github.com/ColonelBlimp/dtmf/internal/logging"
	"github.com/ColonelBlimp/dtmf/internal/recovery"
	"github.com/ColonelBlimp/dtmf/internal/spectral"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "dtmf [keys]",
	Short: "Simulate and detect telephone keypad (DTMF) tones",
	Long: `Synthesizes the two-tone signal of each telephone key, buries it in noise,
and recovers the key with a real FFT.

With no arguments keys are read interactively from standard input, one per
line, until a blank line or end of input. With one argument every character
of it is simulated in turn.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().StringP("backend", "b", spectral.DefaultBackend, "transform backend (algofft, godsp, gonum)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug logging")

	rootCmd.Flags().Float64P("sample-rate", "r", 3266, "sampling frequency in Hz")
	rootCmd.Flags().IntP("samples", "n", 256, "samples per signal, power of two")
	rootCmd.Flags().Float64("noise", 4, "noise amplitude relative to the tones")
	rootCmd.Flags().Uint32P("seed", "s", 0, "noise seed (0 seeds from the clock)")
	rootCmd.Flags().IntP("workers", "w", 1, "keys simulated in parallel in argument mode")

	rootCmd.AddCommand(verifyCmd, listenCmd, devicesCmd)
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	bindFlags()
}

// bindFlags lets command-line flags override the config file. It runs after
// config.Init so a viper reset does not lose the bindings.
func bindFlags() {
	bindings := []struct {
		key  string
		flag *pflag.Flag
	}{
		{"backend", rootCmd.PersistentFlags().Lookup("backend")},
		{"debug", rootCmd.PersistentFlags().Lookup("debug")},
		{"sample_rate", rootCmd.Flags().Lookup("sample-rate")},
		{"sample_count", rootCmd.Flags().Lookup("samples")},
		{"noise_amplitude", rootCmd.Flags().Lookup("noise")},
		{"seed", rootCmd.Flags().Lookup("seed")},
		{"workers", rootCmd.Flags().Lookup("workers")},
		{"device_index", listenCmd.Flags().Lookup("device")},
		{"capture_sample_rate", listenCmd.Flags().Lookup("capture-rate")},
		{"capture_block_size", listenCmd.Flags().Lookup("block-size")},
		{"overlap_pct", listenCmd.Flags().Lookup("overlap")},
		{"threshold", listenCmd.Flags().Lookup("threshold")},
		{"hysteresis", listenCmd.Flags().Lookup("hysteresis")},
	}
	for _, b := range bindings {
		_ = viper.BindPFlag(b.key, b.flag)
	}
}

// loadSettings reads the validated configuration and builds the logger
func loadSettings(cmd *cobra.Command) (*config.Settings, *zap.Logger, error) {
	settings, err := config.Get()
	if err != nil {
		return nil, nil, err
	}
	return settings, logging.New(settings.Debug, cmd.ErrOrStderr()), nil
}

// openPlan creates a transform plan and makes sure it is released even if
// the process dies from a panic. The returned function closes it.
func openPlan(log *zap.Logger, backend string, n int) (spectral.Plan, func(), error) {
	plan, err := spectral.NewPlan(backend, n)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("transform plan ready", zap.String("backend", plan.Backend()), zap.Int("length", n))

	unregister := recovery.Register(func() { _ = plan.Close() })
	return plan, func() {
		unregister()
		if err := plan.Close(); err != nil {
			log.Warn("close transform plan", zap.Error(err))
		}
	}, nil
}
