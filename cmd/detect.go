// cmd/detect.go
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode"

	"github.com/ColonelBlimp/dtmf/internal/dtmf"
	"github.com/ColonelBlimp/dtmf/internal/random"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const prompt = "Please enter a key (one of 0-9, *, #, or A-D):  "

// session prints simulated detections in the classic demo format
type session struct {
	out    io.Writer
	errOut io.Writer
	log    *zap.Logger
	det    *dtmf.Detector
	src    *random.Source
}

func runDetect(cmd *cobra.Command, args []string) error {
	settings, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	plan, closePlan, err := openPlan(log, settings.Backend, settings.SampleCount)
	if err != nil {
		return err
	}
	defer closePlan()

	det, err := dtmf.NewDetector(settings.Detector(), plan)
	if err != nil {
		return err
	}

	src := random.New(settings.Seed)
	if settings.Seed == 0 {
		src = random.NewFromTime()
	}
	// taken before the first draw, so it reproduces the run
	seed := src.State()
	log.Debug("noise source seeded", zap.Uint32("seed", seed))

	s := &session{
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		log:    log,
		det:    det,
		src:    src,
	}

	if len(args) == 0 {
		return s.interactive(cmd.InOrStdin())
	}
	if settings.Workers > 1 {
		return s.batch(cmd, args[0], seed, settings.Workers)
	}
	return s.sequence(args[0])
}

// interactive prompts for one key per line until a blank line or end of
// input. Whitespace before the key is skipped and the rest of the line is
// ignored.
func (s *session) interactive(in io.Reader) error {
	r := bufio.NewReader(in)
	for {
		fmt.Fprint(s.out, prompt)

		c, err := skipSpace(r)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			// do not leave the cursor mid-line
			fmt.Fprintln(s.out)
			return nil
		}
		if c == '\n' {
			return nil
		}

		if _, err := s.detect(c); err != nil {
			if !errors.Is(err, dtmf.ErrUnknownKey) {
				return err
			}
			s.reportUnknown(c)
		}

		if err := skipLine(r); err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}
	}
}

// skipSpace returns the first rune that is a newline or not white space
func skipSpace(r *bufio.Reader) (rune, error) {
	for {
		c, _, err := r.ReadRune()
		if err != nil {
			return 0, err
		}
		if c == '\n' || !unicode.IsSpace(c) {
			return c, nil
		}
	}
}

func skipLine(r *bufio.Reader) error {
	_, err := r.ReadString('\n')
	return err
}

// sequence simulates every character of keys in order from one noise source
func (s *session) sequence(keys string) error {
	var sent, correct int
	for _, c := range keys {
		if _, ok := dtmf.Lookup(unicode.ToUpper(c)); !ok {
			s.reportUnknown(c)
			continue
		}

		fmt.Fprintf(s.out, "Simulating key %c.\n", c)
		res, err := s.detect(c)
		if err != nil {
			return err
		}
		sent++
		if res.Correct() {
			correct++
		}
	}
	s.summary(correct, sent)
	return nil
}

// batch simulates keys on several workers, each key with its own derived
// seed, and prints the results in key order.
func (s *session) batch(cmd *cobra.Command, keys string, seed uint32, workers int) error {
	runes := []rune(keys)
	upper := make([]rune, len(runes))
	for i, c := range runes {
		upper[i] = unicode.ToUpper(c)
	}

	items, err := s.det.DetectBatch(cmd.Context(), upper, seed, workers)
	if err != nil {
		return err
	}

	var sent, correct int
	for i, item := range items {
		c := runes[i]
		if errors.Is(item.Err, dtmf.ErrUnknownKey) {
			s.reportUnknown(c)
			continue
		}
		if item.Err != nil {
			return item.Err
		}
		fmt.Fprintf(s.out, "Simulating key %c.\n", c)
		s.print(item.Result)
		s.log.Debug("key seed", zap.String("key", string(c)), zap.Uint32("seed", item.Seed))
		sent++
		if item.Result.Correct() {
			correct++
		}
	}
	s.summary(correct, sent)
	return nil
}

// detect simulates one key and prints the outcome
func (s *session) detect(c rune) (dtmf.Result, error) {
	res, err := s.det.Detect(unicode.ToUpper(c), s.src)
	if err != nil {
		return dtmf.Result{}, err
	}
	s.print(res)
	return res, nil
}

func (s *session) print(res dtmf.Result) {
	fmt.Fprintln(s.out, "\tGenerating signal with noise and DTMF tones...")
	fmt.Fprintln(s.out, "\tAnalyzing signal...")
	fmt.Fprintf(s.out, "\tFound frequencies %g and %g for key %c.\n",
		res.Found.Column, res.Found.Row, res.Detected)

	s.log.Debug("candidate energies",
		zap.String("sent", string(res.Key)),
		zap.String("detected", string(res.Detected)),
		zap.Float64s("column", res.Match.ColumnEnergy),
		zap.Float64s("row", res.Match.RowEnergy))
}

func (s *session) reportUnknown(c rune) {
	fmt.Fprintf(s.errOut, "Error, key %c not recognized.\n", c)
}

func (s *session) summary(correct, sent int) {
	if sent == 0 {
		return
	}
	fmt.Fprintf(s.out, "Detected %d of %d keys correctly.\n", correct, sent)
}
