package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/pulsepipe/internal/device"
)

var (
	recordRaw      bool
	recordOutput   string
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record [endpoint]",
	Short: "Record audio from an input endpoint",
	Long: `Capture audio from the named input endpoint for the given duration and
write it to a file. The duration is enforced as a wall-clock timeout on
the capture tool; hitting it is the normal way a recording ends.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := manager()
		inputs, err := m.ListInputs()
		if err != nil {
			return fmt.Errorf("failed to list inputs: %w", err)
		}
		endpointName := args[0]
		var endpoint *device.InputEndpoint
		for _, in := range inputs {
			if in.Name == endpointName {
				endpoint = in
				break
			}
		}
		if endpoint == nil {
			return fmt.Errorf("input endpoint %q not found", endpointName)
		}

		outputPath := recordOutput
		if outputPath == "" {
			ext := ".wav"
			if recordRaw {
				ext = ".raw"
			}
			outputPath = endpointName + ext
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		if err := m.Record(endpoint, f, recordDuration, recordRaw); err != nil {
			return err
		}
		fmt.Printf("Recorded %s to %s\n", recordDuration, outputPath)
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output file (default is [endpoint].wav)")
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 5*time.Second, "recording duration")
	recordCmd.Flags().BoolVar(&recordRaw, "raw", false, "capture raw samples in the endpoint's format")
}
