package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/pulsepipe/internal/device"
)

var (
	outputsQuiet      bool
	outputsPersistent bool
)

var outputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "Output endpoint commands",
}

var outputsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available output endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputs, err := manager().ListOutputs()
		if err != nil {
			return fmt.Errorf("failed to list outputs: %w", err)
		}
		if outputsQuiet {
			for _, out := range outputs {
				fmt.Println(out.Name)
			}
			return nil
		}
		endpoints := make([]device.Endpoint, len(outputs))
		for i, out := range outputs {
			endpoints[i] = out.Endpoint
		}
		printEndpointTable(endpoints)
		return nil
	},
}

var outputsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a virtual output endpoint",
	Long: `Create an output pipe: applications play into a virtual speaker sink
named [name], and whatever they play can be captured back from the
pipe's remapped source.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := manager().CreatePipe(args[0], device.RoleOutput, outputsPersistent)
		if err != nil {
			return fmt.Errorf("failed to create output pipe: %w", err)
		}
		fmt.Printf("Created output pipe '%s' (persistent=%t)\n", pipe.Name, pipe.Persistent)
		return nil
	},
}

var outputsRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a virtual output endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager().RemovePipe(args[0]); err != nil {
			return fmt.Errorf("failed to remove output pipe: %w", err)
		}
		return nil
	},
}

func init() {
	outputsListCmd.Flags().BoolVar(&outputsQuiet, "quiet", false, "output only endpoint names")
	outputsCreateCmd.Flags().BoolVar(&outputsPersistent, "persistent", false, "recreate the pipe at server startup")

	outputsCmd.AddCommand(outputsListCmd)
	outputsCmd.AddCommand(outputsCreateCmd)
	outputsCmd.AddCommand(outputsRemoveCmd)
}
