// cmd/listen.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ColonelBlimp/dtmf/internal/audio"
	"github.com/ColonelBlimp/dtmf/internal/dtmf"
	"github.com/ColonelBlimp/dtmf/internal/recovery"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Detect keys pressed near the microphone",
	Long: `Captures audio from an input device and prints each key press and release
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().IntP("device", "d", -1, "capture device index (-1 for default)")
	listenCmd.Flags().Float64("capture-rate", 8000, "capture sample rate in Hz")
	listenCmd.Flags().Int("block-size", 256, "samples per analysis block, power of two")
	listenCmd.Flags().Int("overlap", 50, "block overlap percentage (0-99)")
	listenCmd.Flags().Float64("threshold", 4, "tone energy over the mean of the others (0 disables)")
	listenCmd.Flags().Int("hysteresis", 3, "consecutive blocks to confirm a key change")
}

func runListen(cmd *cobra.Command, _ []string) error {
	settings, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	plan, closePlan, err := openPlan(log, settings.Backend, settings.CaptureBlockSize)
	if err != nil {
		return err
	}
	defer closePlan()

	det, err := dtmf.NewDetector(settings.Capture(), plan)
	if err != nil {
		return err
	}
	stream, err := dtmf.NewStreamDetector(settings.Stream(), det)
	if err != nil {
		return err
	}
	stream.SetCallback(printEvent(cmd.OutOrStdout(), log))

	capture := audio.New(audio.Config{
		DeviceIndex: settings.DeviceIndex,
		SampleRate:  uint32(settings.CaptureSampleRate),
		BufferSize:  uint32(settings.CaptureBlockSize),
	})
	unregister := recovery.Register(func() { _ = capture.Close() })
	defer func() {
		unregister()
		_ = capture.Close()
	}()

	if err := capture.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := capture.Start(ctx); err != nil {
		return err
	}
	log.Info("listening",
		zap.Int("device", settings.DeviceIndex),
		zap.Float64("sample_rate", settings.CaptureSampleRate),
		zap.Int("block_size", settings.CaptureBlockSize))

	err = consume(ctx, capture.Samples, stream)
	if dropped := capture.Dropped(); dropped > 0 {
		log.Warn("capture buffers dropped", zap.Uint64("count", dropped))
	}
	return err
}

// consume feeds captured buffers to the stream detector until ctx is done or
// the channel closes.
func consume(ctx context.Context, samples <-chan []float32, stream *dtmf.StreamDetector) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case buf, ok := <-samples:
			if !ok {
				return nil
			}
			if err := stream.Process(buf); err != nil {
				return err
			}
		}
	}
}

func printEvent(out io.Writer, log *zap.Logger) dtmf.KeyCallback {
	return func(e dtmf.KeyEvent) {
		if e.Pressed {
			fmt.Fprintf(out, "Key %c pressed.\n", e.Key)
		} else {
			fmt.Fprintf(out, "Key %c released after %v.\n", e.Key, e.Duration.Round(time.Millisecond))
		}
		log.Debug("key event",
			zap.String("key", string(e.Key)),
			zap.Bool("pressed", e.Pressed),
			zap.Time("at", e.Timestamp),
			zap.Duration("duration", e.Duration))
	}
}
