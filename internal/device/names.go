package device

import "strings"

const (
	// pipeSuffix is the fixed server-side name suffix that marks the
	// derived half of a pipe (the sink of an input pipe, the remapped
	// source of an output pipe).
	pipeSuffix = "-pipe"
	// monitorSuffix is appended by PulseAudio itself to every sink's
	// monitor source.
	monitorSuffix = ".monitor"
)

// Names holds the three server-side endpoint names derived from a pipe
// name and role.
type Names struct {
	Sink    string
	Source  string
	Monitor string
}

// DeriveNames computes the sink, remapped-source and monitor names for a
// pipe. An input pipe exposes the bare name as its source, an output pipe
// exposes the bare name as its sink; the other half carries the "-pipe"
// suffix and the monitor always belongs to the sink.
func DeriveNames(name string, role PipeRole) Names {
	if role == RoleInput {
		sink := name + pipeSuffix
		return Names{Sink: sink, Source: name, Monitor: sink + monitorSuffix}
	}
	return Names{Sink: name, Source: name + pipeSuffix, Monitor: name + monitorSuffix}
}

// Suffixes are the description labels attached to pipe endpoints. They
// must not contain spaces: PulseAudio property values cannot carry spaces
// when passed on the command line, so "-Pipe" works where " (Pipe)" does
// not.
type Suffixes struct {
	Generic string
	Input   string
	Output  string
	Monitor string
}

// DefaultSuffixes returns the stock description suffixes.
func DefaultSuffixes() Suffixes {
	return Suffixes{
		Generic: "-Pipe",
		Input:   "-InputPipe",
		Output:  "-OutputPipe",
		Monitor: "-MonitorPipe",
	}
}

// Normalize rewrites a description to base name plus the desired role
// suffix, stripping any role, generic or "-pipe" suffix the server may
// have accumulated from earlier create calls. Keeps display strings
// stable across repeated listings.
func (s Suffixes) Normalize(description, want string) string {
	base := description
	for _, suf := range []string{s.Input, s.Output, s.Monitor} {
		if suf != "" && strings.HasSuffix(base, suf) {
			base = base[:len(base)-len(suf)]
			break
		}
	}
	if s.Generic != "" && strings.HasSuffix(base, s.Generic) {
		base = base[:len(base)-len(s.Generic)]
	}
	base = strings.TrimSuffix(base, pipeSuffix)
	return base + want
}
