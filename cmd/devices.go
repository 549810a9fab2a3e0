// cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/dtmf/internal/audio"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func runDevices(cmd *cobra.Command, _ []string) error {
	capture := audio.New(audio.DefaultConfig())
	defer func() { _ = capture.Close() }()

	if err := capture.Init(); err != nil {
		return err
	}
	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(devices) == 0 {
		fmt.Fprintln(out, "No capture devices found.")
		return nil
	}
	for _, d := range devices {
		marker := ""
		if d.IsDefault {
			marker = " (default)"
		}
		fmt.Fprintf(out, "[%d] %s%s\n", d.Index, d.Name, marker)
	}
	return nil
}
