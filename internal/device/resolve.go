package device

import "strings"

// ResolvePipes infers the logical pipes present in a pair of endpoint
// listings. A pipe surfaces only when its sink, monitor and remapped
// source are all present and name-linked; a dangling sink without its
// remapped source (or vice versa) is not a pipe.
//
// Iteration follows the input listing order, so results are deterministic
// for a given pair of listings. Lookup maps are built last-wins: should
// two endpoints ever share a name (the server normally forbids it), the
// later one shadows the earlier.
//
// As a side effect the descriptions of the matched sink, monitor and
// source are normalized to their role suffixes, so display strings stay
// stable across repeated listings.
func ResolvePipes(outputs []*OutputEndpoint, inputs []*InputEndpoint, suffixes Suffixes) []*Pipe {
	sinksByName := make(map[string]*OutputEndpoint, len(outputs))
	for _, out := range outputs {
		sinksByName[out.Name] = out
	}
	sourcesByName := make(map[string]*InputEndpoint, len(inputs))
	for _, in := range inputs {
		sourcesByName[in.Name] = in
	}

	var pipes []*Pipe
	for _, monitor := range inputs {
		if !strings.HasSuffix(monitor.Name, monitorSuffix) {
			continue
		}
		sinkName := strings.TrimSuffix(monitor.Name, monitorSuffix)
		sink := sinksByName[sinkName]
		if sink == nil {
			continue
		}

		var (
			name   string
			role   PipeRole
			source *InputEndpoint
		)
		if strings.HasSuffix(sinkName, pipeSuffix) {
			role = RoleInput
			name = strings.TrimSuffix(sinkName, pipeSuffix)
			source = sourcesByName[name]
		} else {
			role = RoleOutput
			name = sinkName
			source = sourcesByName[name+pipeSuffix]
		}
		if source == nil {
			continue
		}

		sink.Description = suffixes.Normalize(sink.Description, suffixes.Output)
		source.Description = suffixes.Normalize(source.Description, suffixes.Input)
		monitor.Description = suffixes.Normalize(monitor.Description, suffixes.Monitor)

		pipes = append(pipes, &Pipe{
			Name:    name,
			Role:    role,
			Sink:    sink,
			Monitor: monitor,
			Source:  source,
		})
	}
	return pipes
}
