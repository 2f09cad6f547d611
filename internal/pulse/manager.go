package pulse

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/audiolibrelab/pulsepipe/internal/config"
	"github.com/audiolibrelab/pulsepipe/internal/device"
	"github.com/audiolibrelab/pulsepipe/internal/persist"
)

const (
	nullSinkModule    = "module-null-sink"
	remapSourceModule = "module-remap-source"
)

// Manager composes the status parser, the topology resolver and the
// persistence store around live pactl invocations. Operations are
// synchronous and uncoordinated: concurrent mutations of the same pipe
// name are a caller-side race, the underlying server only serializes
// individual commands.
type Manager struct {
	cfg      *config.Config
	runner   Runner
	store    *persist.Store
	suffixes device.Suffixes
}

// NewManager returns a manager driving the tools named in cfg.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:      cfg,
		runner:   NewRunner(),
		store:    persist.New(cfg.Pulse.ConfigDirectory),
		suffixes: cfg.Suffixes(),
	}
}

// ListOutputs returns all sinks in listing order.
func (m *Manager) ListOutputs() ([]*device.OutputEndpoint, error) {
	short, err := m.runner.Output(m.cfg.Tools.Control, "list", "sinks", "short")
	if err != nil {
		return nil, fmt.Errorf("failed to list sinks: %w", err)
	}
	detailed, err := m.runner.Output(m.cfg.Tools.Control, "list", "sinks")
	if err != nil {
		return nil, fmt.Errorf("failed to list sink details: %w", err)
	}

	entries := device.ParseShortListing(short)
	outputs := make([]*device.OutputEndpoint, 0, len(entries))
	for _, entry := range entries {
		outputs = append(outputs, &device.OutputEndpoint{
			Endpoint: buildEndpoint(entry, device.ParseDetailedListing(detailed, entry.Name)),
		})
	}
	slog.Debug("Listed output endpoints", "count", len(outputs))
	return outputs, nil
}

// ListInputs returns all sources in listing order.
func (m *Manager) ListInputs() ([]*device.InputEndpoint, error) {
	short, err := m.runner.Output(m.cfg.Tools.Control, "list", "sources", "short")
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	detailed, err := m.runner.Output(m.cfg.Tools.Control, "list", "sources")
	if err != nil {
		return nil, fmt.Errorf("failed to list source details: %w", err)
	}

	entries := device.ParseShortListing(short)
	inputs := make([]*device.InputEndpoint, 0, len(entries))
	for _, entry := range entries {
		inputs = append(inputs, &device.InputEndpoint{
			Endpoint: buildEndpoint(entry, device.ParseDetailedListing(detailed, entry.Name)),
		})
	}
	slog.Debug("Listed input endpoints", "count", len(inputs))
	return inputs, nil
}

func buildEndpoint(entry device.ShortEntry, d device.EndpointDetails) device.Endpoint {
	return device.Endpoint{
		Name:         entry.Name,
		Description:  d.Description,
		Index:        entry.Index,
		SampleFormat: d.SampleFormat,
		Channels:     d.Channels,
		SampleRate:   d.SampleRate,
		Muted:        d.Muted,
		Volume:       d.Volume,
		Virtual:      d.Virtual,
		Properties:   d.Properties,
	}
}

// ListPipes resolves the live pipe topology and annotates each pipe with
// its persistence flag.
func (m *Manager) ListPipes() ([]*device.Pipe, error) {
	outputs, err := m.ListOutputs()
	if err != nil {
		return nil, err
	}
	inputs, err := m.ListInputs()
	if err != nil {
		return nil, err
	}

	pipes := device.ResolvePipes(outputs, inputs, m.suffixes)
	for _, pipe := range pipes {
		pipe.Persistent = m.store.Contains(pipe.Name, pipe.Role)
	}
	slog.Debug("Listed pipes", "count", len(pipes))
	return pipes, nil
}

// CreatePipe loads a null sink and a remap source for the named pipe and
// returns the composed result with server-assigned endpoint records.
// A failure at either load is surfaced as-is; an already-loaded first
// module is not rolled back.
func (m *Manager) CreatePipe(name string, role device.PipeRole, persistent bool) (*device.Pipe, error) {
	slog.Info("Creating pipe", "name", name, "role", role, "persistent", persistent)
	names := device.DeriveNames(name, role)
	sinkDescription := name + m.suffixes.Output
	sourceDescription := name + m.suffixes.Input

	if _, err := m.runner.Output(m.cfg.Tools.Control, "load-module", nullSinkModule,
		"sink_name="+names.Sink,
		"sink_properties=device.description="+sinkDescription,
	); err != nil {
		return nil, fmt.Errorf("failed to load null sink for pipe %q: %w", name, err)
	}
	if _, err := m.runner.Output(m.cfg.Tools.Control, "load-module", remapSourceModule,
		"source_name="+names.Source,
		"master="+names.Monitor,
		"source_properties=device.description="+sourceDescription,
	); err != nil {
		return nil, fmt.Errorf("failed to load remap source for pipe %q: %w", name, err)
	}

	outputs, err := m.ListOutputs()
	if err != nil {
		return nil, err
	}
	inputs, err := m.ListInputs()
	if err != nil {
		return nil, err
	}

	var sink *device.OutputEndpoint
	for _, out := range outputs {
		if out.Name == names.Sink {
			sink = out
			break
		}
	}
	if sink == nil {
		return nil, fmt.Errorf("created sink %q not found in listing", names.Sink)
	}
	var monitor, source *device.InputEndpoint
	for _, in := range inputs {
		switch in.Name {
		case names.Monitor:
			monitor = in
		case names.Source:
			source = in
		}
	}
	if monitor == nil {
		return nil, fmt.Errorf("monitor source %q not found in listing", names.Monitor)
	}
	if source == nil {
		return nil, fmt.Errorf("remapped source %q not found in listing", names.Source)
	}

	if persistent {
		err := m.store.Record(persist.Entry{
			Name:              name,
			Role:              role,
			SinkName:          names.Sink,
			SourceName:        names.Source,
			MonitorName:       names.Monitor,
			SinkDescription:   sinkDescription,
			SourceDescription: sourceDescription,
		})
		if err != nil {
			return nil, err
		}
	}

	// The monitor's description cannot be set through pactl, so all three
	// are normalized on the returned records instead.
	sink.Description = m.suffixes.Normalize(sink.Description, m.suffixes.Output)
	monitor.Description = m.suffixes.Normalize(monitor.Description, m.suffixes.Monitor)
	source.Description = m.suffixes.Normalize(source.Description, m.suffixes.Input)

	slog.Info("Created pipe", "name", name, "sink", names.Sink, "source", names.Source)
	return &device.Pipe{
		Name:       name,
		Role:       role,
		Sink:       sink,
		Monitor:    monitor,
		Source:     source,
		Persistent: persistent,
	}, nil
}

// RemovePipe unloads the modules backing the named pipe, remap source
// before null sink since the source depends on the sink's monitor.
// Removing a pipe that is not currently loaded is a successful no-op; a
// missing handle for either module still lets the other be unloaded.
func (m *Manager) RemovePipe(name string) error {
	slog.Info("Removing pipe", "name", name)
	pipes, err := m.ListPipes()
	if err != nil {
		return err
	}
	var pipe *device.Pipe
	for _, p := range pipes {
		if p.Name == name {
			pipe = p
			break
		}
	}
	if pipe == nil {
		slog.Warn("Pipe not found", "name", name)
		return nil
	}

	if pipe.Persistent {
		if err := m.store.Forget(name, pipe.Role); err != nil {
			return err
		}
	}

	names := device.DeriveNames(name, pipe.Role)
	listing, err := m.runner.Output(m.cfg.Tools.Control, "list", "short", "modules")
	if err != nil {
		return fmt.Errorf("failed to list modules: %w", err)
	}
	sinkHandle, sourceHandle := findModuleHandles(listing, names)

	if sourceHandle != "" {
		slog.Debug("Unloading remap source module", "handle", sourceHandle)
		if _, err := m.runner.Output(m.cfg.Tools.Control, "unload-module", sourceHandle); err != nil {
			return fmt.Errorf("failed to unload remap source for pipe %q: %w", name, err)
		}
	}
	if sinkHandle != "" {
		slog.Debug("Unloading null sink module", "handle", sinkHandle)
		if _, err := m.runner.Output(m.cfg.Tools.Control, "unload-module", sinkHandle); err != nil {
			return fmt.Errorf("failed to unload null sink for pipe %q: %w", name, err)
		}
	}
	slog.Info("Removed pipe", "name", name)
	return nil
}

// findModuleHandles matches the short module listing against the derived
// sink and source names and returns the handles to unload. Either handle
// may come back empty.
func findModuleHandles(listing string, names device.Names) (sinkHandle, sourceHandle string) {
	for _, line := range strings.Split(listing, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		args := ""
		if len(parts) > 2 {
			args = strings.Join(parts[2:], " ")
		}
		switch {
		case strings.HasPrefix(parts[1], nullSinkModule) && strings.Contains(args, "sink_name="+names.Sink):
			sinkHandle = parts[0]
		case strings.HasPrefix(parts[1], remapSourceModule) && strings.Contains(args, "source_name="+names.Source):
			sourceHandle = parts[0]
		}
	}
	return sinkHandle, sourceHandle
}

// Play streams audio bytes to an output endpoint through the playback
// tool. With raw set, the endpoint's sample spec is passed along so the
// tool interprets the stream correctly.
func (m *Manager) Play(endpoint *device.OutputEndpoint, audio io.Reader, raw bool) error {
	slog.Info("Playing audio", "device", endpoint.Name, "raw", raw)
	args := []string{"--device", endpoint.Name}
	if raw {
		args = append(args, rawFormatArgs(&endpoint.Endpoint)...)
	}
	if err := m.runner.RunInput(m.cfg.Tools.Playback, audio, args...); err != nil {
		return fmt.Errorf("playback on %q failed: %w", endpoint.Name, err)
	}
	return nil
}

// Record captures audio from an input endpoint for the given duration and
// writes the captured bytes to w. The duration is enforced as a wall
// clock timeout on the capture tool; expiry is the expected way a
// recording ends.
func (m *Manager) Record(endpoint *device.InputEndpoint, w io.Writer, duration time.Duration, raw bool) error {
	slog.Info("Recording audio", "device", endpoint.Name, "duration", duration, "raw", raw)
	pattern := "pulsepipe-*.wav"
	if raw {
		pattern = "pulsepipe-*.raw"
	}
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	args := []string{"--device", endpoint.Name}
	if raw {
		args = append(args, rawFormatArgs(&endpoint.Endpoint)...)
	} else {
		args = append(args, "--file-format=wav")
	}
	args = append(args, tmpPath)

	if err := m.runner.RunTimeout(m.cfg.Tools.Capture, duration, args...); err != nil {
		return fmt.Errorf("capture from %q failed: %w", endpoint.Name, err)
	}

	captured, err := os.ReadFile(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to read capture file: %w", err)
	}
	if _, err := w.Write(captured); err != nil {
		return fmt.Errorf("failed to write captured audio: %w", err)
	}
	slog.Debug("Recorded audio", "device", endpoint.Name, "bytes", len(captured))
	return nil
}

func rawFormatArgs(e *device.Endpoint) []string {
	return []string{
		"--raw",
		"--rate", strconv.Itoa(e.SampleRate),
		"--channels", strconv.Itoa(e.Channels),
		"--format", e.SampleFormat,
	}
}
