package device

// PipeRole distinguishes virtual microphones from virtual speakers.
type PipeRole string

const (
	// RoleInput pipes behave as virtual microphone sources: producer
	// processes play into the sink, consumers capture from the remapped
	// source as if it were a real mic.
	RoleInput PipeRole = "input"
	// RoleOutput pipes behave as virtual speaker sinks.
	RoleOutput PipeRole = "output"
)

// Endpoint holds the fields shared by PulseAudio sinks and sources.
type Endpoint struct {
	// Name is the server-side identifier, immutable once listed.
	Name string
	// Description is the human-readable label. Display only.
	Description string
	// Index is the server's transient numeric handle, -1 when the
	// listing did not carry a parseable index.
	Index int
	// SampleFormat is a format token such as "s16le".
	SampleFormat string
	Channels     int
	SampleRate   int
	Muted        bool
	// Volume is the server's volume summary, passed through verbatim.
	Volume string
	// Virtual is true when the name, driver or owner module suggests a
	// null/virtual device. Derived, never reported by the server.
	Virtual    bool
	Properties map[string]string
}

// OutputEndpoint is a playback endpoint (a PulseAudio sink).
type OutputEndpoint struct {
	Endpoint
}

// InputEndpoint is a capture endpoint (a PulseAudio source).
type InputEndpoint struct {
	Endpoint
}

// Pipe is a logical routing endpoint: a null sink, its monitor and a
// remapped source linked to each other by naming convention.
type Pipe struct {
	Name    string
	Role    PipeRole
	Sink    *OutputEndpoint
	Monitor *InputEndpoint
	Source  *InputEndpoint
	// Persistent reports whether the pipe is recorded for reload at
	// server startup. Sourced from the persistence store, not the server.
	Persistent bool
}
