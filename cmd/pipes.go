package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var pipesFormat string

var pipesCmd = &cobra.Command{
	Use:   "pipes",
	Short: "Pipe commands",
}

// pipeSummary is the yaml form of a resolved pipe.
type pipeSummary struct {
	Name       string `yaml:"name"`
	Role       string `yaml:"role"`
	Sink       string `yaml:"sink"`
	Monitor    string `yaml:"monitor"`
	Source     string `yaml:"source"`
	Persistent bool   `yaml:"persistent"`
}

var pipesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resolved virtual pipes",
	Long: `List all virtual pipes, resolved by matching the live sink, monitor and
remapped-source endpoints against the pipe naming convention.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipes, err := manager().ListPipes()
		if err != nil {
			return fmt.Errorf("failed to list pipes: %w", err)
		}

		switch pipesFormat {
		case "yaml":
			summaries := make([]pipeSummary, len(pipes))
			for i, p := range pipes {
				summaries[i] = pipeSummary{
					Name:       p.Name,
					Role:       string(p.Role),
					Sink:       p.Sink.Name,
					Monitor:    p.Monitor.Name,
					Source:     p.Source.Name,
					Persistent: p.Persistent,
				}
			}
			out, err := yaml.Marshal(summaries)
			if err != nil {
				return fmt.Errorf("failed to marshal pipes: %w", err)
			}
			fmt.Print(string(out))
		case "table":
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tROLE\tSINK\tMONITOR\tSOURCE\tPERSISTENT")
			for _, p := range pipes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
					p.Name, p.Role, p.Sink.Name, p.Monitor.Name, p.Source.Name, p.Persistent)
			}
			w.Flush()
		default:
			return fmt.Errorf("unknown output format: %s (expected table or yaml)", pipesFormat)
		}
		return nil
	},
}

func init() {
	pipesListCmd.Flags().StringVarP(&pipesFormat, "output", "o", "table", "output format: table, yaml")

	pipesCmd.AddCommand(pipesListCmd)
}
