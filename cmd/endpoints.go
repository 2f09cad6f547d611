package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/audiolibrelab/pulsepipe/internal/device"
)

// printEndpointTable renders one row per endpoint, mirroring the fields
// the short+detailed listings carry.
func printEndpointTable(endpoints []device.Endpoint) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tINDEX\tFORMAT\tCHANNELS\tRATE\tMUTE\tVOLUME\tVIRTUAL")
	for _, e := range endpoints {
		index := ""
		if e.Index >= 0 {
			index = fmt.Sprintf("%d", e.Index)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%t\t%s\t%t\n",
			e.Name, e.Description, index, e.SampleFormat, e.Channels, e.SampleRate, e.Muted, e.Volume, e.Virtual)
	}
	w.Flush()
}
