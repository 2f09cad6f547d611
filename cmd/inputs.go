package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/pulsepipe/internal/device"
)

var (
	inputsQuiet      bool
	inputsPersistent bool
)

var inputsCmd = &cobra.Command{
	Use:   "inputs",
	Short: "Input endpoint commands",
}

var inputsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available input endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs, err := manager().ListInputs()
		if err != nil {
			return fmt.Errorf("failed to list inputs: %w", err)
		}
		if inputsQuiet {
			for _, in := range inputs {
				fmt.Println(in.Name)
			}
			return nil
		}
		endpoints := make([]device.Endpoint, len(inputs))
		for i, in := range inputs {
			endpoints[i] = in.Endpoint
		}
		printEndpointTable(endpoints)
		return nil
	},
}

var inputsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a virtual input endpoint",
	Long: `Create an input pipe: producer processes play into the pipe's sink and
consumers see a virtual microphone source named [name].`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipe, err := manager().CreatePipe(args[0], device.RoleInput, inputsPersistent)
		if err != nil {
			return fmt.Errorf("failed to create input pipe: %w", err)
		}
		fmt.Printf("Created input pipe '%s' (persistent=%t)\n", pipe.Name, pipe.Persistent)
		return nil
	},
}

var inputsRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a virtual input endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := manager().RemovePipe(args[0]); err != nil {
			return fmt.Errorf("failed to remove input pipe: %w", err)
		}
		return nil
	},
}

func init() {
	inputsListCmd.Flags().BoolVar(&inputsQuiet, "quiet", false, "output only endpoint names")
	inputsCreateCmd.Flags().BoolVar(&inputsPersistent, "persistent", false, "recreate the pipe at server startup")

	inputsCmd.AddCommand(inputsListCmd)
	inputsCmd.AddCommand(inputsCreateCmd)
	inputsCmd.AddCommand(inputsRemoveCmd)
}
