// cmd/verify.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/ColonelBlimp/dtmf/internal/spectral"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrVerifyFailed indicates a backend exceeded the error tolerance
var ErrVerifyFailed = errors.New("transform verification failed")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check every transform backend against analytic spectra",
	Long: `Runs four checks on each transform backend at 1024 points, each a sum of
three tones with known phases: a real transform in place and out of place, and
a complex transform in place and out of place. Each result is compared with
the exact spectrum.

Then correlates and convolves a run of ones with a 256 tap box filter and
checks that every one of the 2048 output lags equals 256.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().Float64("tolerance", 1e-9, "largest acceptable relative error")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	_, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tolerance, err := cmd.Flags().GetFloat64("tolerance")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var failed []string
	report := func(source string, results []spectral.Result) {
		for _, r := range results {
			status := "ok"
			if r.Error > tolerance {
				status = "FAILED"
				failed = append(failed, source+" "+r.Name)
			}
			fmt.Fprintf(out, "%-8s %-20s relative error %.3g  %s\n", source, r.Name, r.Error, status)
		}
	}

	for _, backend := range spectral.Backends() {
		results, err := verifyBackend(log, backend)
		if err != nil {
			return err
		}
		report(backend, results)
	}

	results, err := spectral.CheckFilters()
	if err != nil {
		return err
	}
	report("filter", results)

	if len(failed) > 0 {
		return fmt.Errorf("%w: %v above %g", ErrVerifyFailed, failed, tolerance)
	}
	return nil
}

func verifyBackend(log *zap.Logger, backend string) ([]spectral.Result, error) {
	plan, closePlan, err := openPlan(log, backend, spectral.ReferenceLength)
	if err != nil {
		return nil, err
	}
	defer closePlan()

	cplan, err := spectral.NewComplexPlan(backend, spectral.ReferenceLength)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cplan.Close() }()

	results, err := spectral.CheckBackend(plan, cplan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", backend, err)
	}
	return results, nil
}
