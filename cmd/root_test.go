package cmd

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/ColonelBlimp/dtmf/internal/config"
	"github.com/ColonelBlimp/dtmf/internal/dtmf"
	"github.com/ColonelBlimp/dtmf/internal/spectral"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// setupConfig isolates viper and the config search path for one test
func setupConfig(t *testing.T, content string) {
	t.Helper()
	viper.Reset()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", "")

	configDir := filepath.Join(tmpDir, ".config", config.AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

// resetFlags restores every flag to its default so tests do not leak values
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_HasExpectedFlags(t *testing.T) {
	tests := []struct {
		flags        *pflag.FlagSet
		name         string
		shorthand    string
		defaultValue string
	}{
		{rootCmd.PersistentFlags(), "backend", "b", "algofft"},
		{rootCmd.PersistentFlags(), "debug", "D", "false"},
		{rootCmd.Flags(), "sample-rate", "r", "3266"},
		{rootCmd.Flags(), "samples", "n", "256"},
		{rootCmd.Flags(), "noise", "", "4"},
		{rootCmd.Flags(), "seed", "s", "0"},
		{rootCmd.Flags(), "workers", "w", "1"},
		{listenCmd.Flags(), "device", "d", "-1"},
		{listenCmd.Flags(), "threshold", "", "4"},
		{listenCmd.Flags(), "hysteresis", "", "3"},
		{verifyCmd.Flags(), "tolerance", "", "1e-09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := tt.flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
		})
	}
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Name() != "dtmf" {
		t.Errorf("rootCmd.Name() = %q, want %q", rootCmd.Name(), "dtmf")
	}
	if rootCmd.Short == "" || rootCmd.Long == "" {
		t.Error("rootCmd descriptions are empty")
	}

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"verify", "listen", "devices"} {
		if !names[want] {
			t.Errorf("subcommand %q not registered", want)
		}
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, _, err := execute(t, "", "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}
	for _, want := range []string{"dtmf [keys]", "--backend", "--seed", "verify"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestRootCmd_ArgumentMode(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, stderr, err := execute(t, "", "--noise", "0", "--seed", "1", "5")
	if err != nil {
		t.Fatalf("Execute() error = %v, stderr: %s", err, stderr)
	}

	want := "Simulating key 5.\n" +
		"\tGenerating signal with noise and DTMF tones...\n" +
		"\tAnalyzing signal...\n" +
		"\tFound frequencies 1336 and 770 for key 5.\n" +
		"Detected 1 of 1 keys correctly.\n"
	if stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}
}

func TestRootCmd_UnknownKeysContinue(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, stderr, err := execute(t, "", "--noise", "0", "x9?")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(stderr, "Error, key x not recognized.\n") ||
		!strings.Contains(stderr, "Error, key ? not recognized.\n") {
		t.Errorf("stderr = %q, want both unknown keys reported", stderr)
	}
	if !strings.Contains(stdout, "Simulating key 9.\n") {
		t.Errorf("stdout = %q, want key 9 simulated", stdout)
	}
	if strings.Count(stdout, "Simulating") != 1 {
		t.Errorf("stdout = %q, want exactly one simulated key", stdout)
	}
}

func TestRootCmd_LowercaseKeyEchoed(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, stderr, err := execute(t, "", "--seed", "3", "d")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(stdout, "Simulating key d.\n") {
		t.Errorf("stdout = %q, want the key as typed", stdout)
	}
	if stderr != "" {
		t.Errorf("stderr = %q, want empty", stderr)
	}
}

func TestRootCmd_SeedIsReproducible(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	first, _, err := execute(t, "", "--seed", "42", "0123456789ABCD*#")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	second, _, err := execute(t, "", "--seed", "42", "0123456789ABCD*#")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first != second {
		t.Error("same seed produced different output")
	}
}

func TestRootCmd_ClockSeedCanBeReplayed(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	first, logs, err := execute(t, "", "--debug", "0123456789ABCD*#")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	m := regexp.MustCompile(`noise source seeded\s+\{"seed": (\d+)\}`).FindStringSubmatch(logs)
	if m == nil {
		t.Fatalf("debug log does not report the clock seed:\n%s", logs)
	}

	replay, _, err := execute(t, "", "--seed", m[1], "0123456789ABCD*#")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if first != replay {
		t.Errorf("replaying seed %s produced different output", m[1])
	}
}

func TestRootCmd_Workers(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, _, err := execute(t, "", "-w", "3", "--noise", "0", "--seed", "7", "1z#9")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	lines := []string{
		"Simulating key 1.",
		"\tFound frequencies 1209 and 697 for key 1.",
		"Simulating key #.",
		"\tFound frequencies 1477 and 941 for key #.",
		"Simulating key 9.",
		"\tFound frequencies 1477 and 852 for key 9.",
		"Detected 3 of 3 keys correctly.",
	}
	pos := 0
	for _, line := range lines {
		i := strings.Index(stdout[pos:], line)
		if i < 0 {
			t.Fatalf("stdout missing %q after offset %d:\n%s", line, pos, stdout)
		}
		pos += i + len(line)
	}
}

func TestRootCmd_TooManyArgs(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	_, stderr, err := execute(t, "", "12", "34")
	if err == nil {
		t.Fatal("expected error for two arguments")
	}
	if !strings.Contains(err.Error(), "accepts at most 1 arg") {
		t.Errorf("error = %v, want argument count error", err)
	}
	if !strings.Contains(stderr, "Error:") {
		t.Errorf("stderr should report the error, got: %s", stderr)
	}
}

func TestRootCmd_Interactive(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, stderr, err := execute(t, "  5 ignored\nq\n\n", "--noise", "0")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := strings.Count(stdout, prompt); got != 3 {
		t.Errorf("prompt shown %d times, want 3:\n%s", got, stdout)
	}
	if !strings.Contains(stdout, "\tFound frequencies 1336 and 770 for key 5.\n") {
		t.Errorf("stdout = %q, want key 5 detected", stdout)
	}
	if strings.Contains(stdout, "Simulating") || strings.Contains(stdout, "Detected") {
		t.Errorf("interactive mode should not print argument-mode lines: %q", stdout)
	}
	if stderr != "Error, key q not recognized.\n" {
		t.Errorf("stderr = %q", stderr)
	}
	if !strings.HasSuffix(stdout, prompt) {
		t.Errorf("blank line should end the session right after the prompt: %q", stdout)
	}
}

func TestRootCmd_InteractiveEOFMidLine(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, _, err := execute(t, "7", "--noise", "0")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasSuffix(stdout, "for key 7.\n\n") {
		t.Errorf("stdout should end with a newline after the last result: %q", stdout)
	}
}

func TestRootCmd_InteractiveEmptyInput(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, _, err := execute(t, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if stdout != prompt+"\n" {
		t.Errorf("stdout = %q, want prompt then newline", stdout)
	}
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	setupConfig(t, "sample_count: 300\n")

	_, _, err := execute(t, "", "5")
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "sample_count") {
		t.Errorf("expected sample_count error, got: %v", err)
	}
}

func TestRootCmd_FlagOverridesConfig(t *testing.T) {
	setupConfig(t, "backend: nope\n")

	if _, _, err := execute(t, "", "5"); err == nil {
		t.Fatal("expected error for unknown backend in config")
	}
	if _, _, err := execute(t, "", "-b", "gonum", "--noise", "0", "5"); err != nil {
		t.Errorf("flag should override config backend, got: %v", err)
	}
}

func TestRootCmd_AllBackends(t *testing.T) {
	for _, backend := range spectral.Backends() {
		t.Run(backend, func(t *testing.T) {
			setupConfig(t, config.DefaultConfig)

			stdout, _, err := execute(t, "", "-b", backend, "--noise", "0", "-s", "5", "#")
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !strings.Contains(stdout, "for key #.") {
				t.Errorf("stdout = %q", stdout)
			}
		})
	}
}

func TestVerifyCmd(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, _, err := execute(t, "", "verify")
	if err != nil {
		t.Fatalf("verify error = %v", err)
	}
	for _, backend := range spectral.Backends() {
		if !strings.Contains(stdout, backend) {
			t.Errorf("verify output missing backend %q:\n%s", backend, stdout)
		}
	}
	for _, check := range []string{spectral.RealInPlace, spectral.RealOutOfPlace,
		spectral.ComplexInPlace, spectral.ComplexOutOfPlace, spectral.Correlation, spectral.Convolution} {
		if !strings.Contains(stdout, check) {
			t.Errorf("verify output missing check %q:\n%s", check, stdout)
		}
	}
	// four transform checks per backend plus correlation and convolution
	if want := 4*len(spectral.Backends()) + 2; strings.Count(stdout, " ok\n") != want {
		t.Errorf("want %d passing checks:\n%s", want, stdout)
	}
}

func TestVerifyCmd_Fails(t *testing.T) {
	setupConfig(t, config.DefaultConfig)

	stdout, _, err := execute(t, "", "verify", "--tolerance=-1")
	if !errors.Is(err, ErrVerifyFailed) {
		t.Fatalf("verify error = %v, want ErrVerifyFailed", err)
	}
	if !strings.Contains(stdout, "FAILED") {
		t.Errorf("stdout = %q, want FAILED", stdout)
	}
}

func TestConsume(t *testing.T) {
	plan, err := spectral.NewPlan(spectral.DefaultBackend, 256)
	if err != nil {
		t.Fatalf("NewPlan() error = %v", err)
	}
	defer plan.Close()

	det, err := dtmf.NewDetector(dtmf.Config{SampleRate: 8000, Samples: 256}, plan)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	stream, err := dtmf.NewStreamDetector(dtmf.StreamConfig{Threshold: 4, Hysteresis: 2}, det)
	if err != nil {
		t.Fatalf("NewStreamDetector() error = %v", err)
	}

	var out bytes.Buffer
	stream.SetCallback(printEvent(&out, zap.NewNop()))

	tone := make([]float32, 256)
	for i := range tone {
		tone[i] = float32(0.5*math.Sin(2*math.Pi*float64(i)*1209/8000) +
			0.5*math.Sin(2*math.Pi*float64(i)*941/8000))
	}

	samples := make(chan []float32, 8)
	for i := 0; i < 4; i++ {
		samples <- tone
	}
	for i := 0; i < 4; i++ {
		samples <- make([]float32, 256)
	}
	close(samples)

	if err := consume(context.Background(), samples, stream); err != nil {
		t.Fatalf("consume() error = %v", err)
	}

	got := out.String()
	if !strings.HasPrefix(got, "Key * pressed.\nKey * released after ") {
		t.Errorf("events = %q", got)
	}
}

func TestConsume_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := consume(ctx, make(chan []float32), nil); err != nil {
		t.Errorf("consume() error = %v, want nil", err)
	}
}
