package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/pulsepipe/internal/device"
)

var playRaw bool

var playCmd = &cobra.Command{
	Use:   "play [endpoint] [file]",
	Short: "Play audio to an output endpoint",
	Long: `Stream an audio file (or stdin when no file is given) to the named
output endpoint through the PulseAudio playback tool. With --raw the
endpoint's sample format, channel count and rate are passed along and
the stream is interpreted as raw samples instead of a container format.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := manager()
		outputs, err := m.ListOutputs()
		if err != nil {
			return fmt.Errorf("failed to list outputs: %w", err)
		}
		endpointName := args[0]
		var endpoint *device.OutputEndpoint
		for _, out := range outputs {
			if out.Name == endpointName {
				endpoint = out
				break
			}
		}
		if endpoint == nil {
			return fmt.Errorf("output endpoint %q not found", endpointName)
		}

		var audio io.Reader = os.Stdin
		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open audio file: %w", err)
			}
			defer f.Close()
			audio = f
		}

		if err := m.Play(endpoint, audio, playRaw); err != nil {
			return err
		}
		fmt.Println("Playback completed")
		return nil
	},
}

func init() {
	playCmd.Flags().BoolVar(&playRaw, "raw", false, "treat the stream as raw samples in the endpoint's format")
}
