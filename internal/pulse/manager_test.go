package pulse

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/audiolibrelab/pulsepipe/internal/config"
	"github.com/audiolibrelab/pulsepipe/internal/device"
	"github.com/audiolibrelab/pulsepipe/internal/persist"
)

// fakeRunner serves canned command output keyed by the full command line
// and records every invocation.
type fakeRunner struct {
	outputs      map[string]string
	errors       map[string]error
	calls        []string
	stdin        []byte
	captureBytes []byte
}

func (f *fakeRunner) Output(name string, args ...string) (string, error) {
	cmd := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	if err := f.errors[cmd]; err != nil {
		return "", err
	}
	return f.outputs[cmd], nil
}

func (f *fakeRunner) RunInput(name string, stdin io.Reader, args ...string) error {
	cmd := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	if err := f.errors[cmd]; err != nil {
		return err
	}
	data, _ := io.ReadAll(stdin)
	f.stdin = data
	return nil
}

func (f *fakeRunner) RunTimeout(name string, timeout time.Duration, args ...string) error {
	cmd := name + " " + strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	if err := f.errors[cmd]; err != nil {
		return err
	}
	// parecord writes into the destination path given as the last arg.
	return os.WriteFile(args[len(args)-1], f.captureBytes, 0644)
}

func (f *fakeRunner) callsMatching(substr string) []string {
	var matched []string
	for _, call := range f.calls {
		if strings.Contains(call, substr) {
			matched = append(matched, call)
		}
	}
	return matched
}

func newTestManager(t *testing.T, runner *fakeRunner) *Manager {
	t.Helper()
	cfg := config.Default()
	cfg.Pulse.ConfigDirectory = t.TempDir()
	return &Manager{
		cfg:      cfg,
		runner:   runner,
		store:    persist.New(cfg.Pulse.ConfigDirectory),
		suffixes: cfg.Suffixes(),
	}
}

func detailedRecord(kind, name, description, driver, spec string) string {
	return kind + " #0\n" +
		"\tName: " + name + "\n" +
		"\tDescription: " + description + "\n" +
		"\tDriver: " + driver + "\n" +
		"\tSample Specification: " + spec + "\n" +
		"\tMute: no\n" +
		"\tVolume: front-left: 65536 / 100%\n" +
		"\n"
}

// pipeListings installs consistent short and detailed listings for one
// output-role pipe named "foo" plus a hardware sink.
func pipeListings(f *fakeRunner) {
	f.outputs["pactl list sinks short"] = "0\thw_sink\tmodule-alsa-card.c\ts16le 2ch 44100Hz\tSUSPENDED\n" +
		"3\tfoo\tmodule-null-sink.c\ts16le 2ch 48000Hz\tIDLE\n"
	f.outputs["pactl list sinks"] = detailedRecord("Sink", "hw_sink", "Built-in Audio", "module-alsa-card.c", "s16le 2ch 44100Hz") +
		detailedRecord("Sink", "foo", "Foo-OutputPipe", "module-null-sink.c", "s16le 2ch 48000Hz")
	f.outputs["pactl list sources short"] = "1\tfoo.monitor\tmodule-null-sink.c\ts16le 2ch 48000Hz\tIDLE\n" +
		"2\tfoo-pipe\tmodule-remap-source.c\ts16le 2ch 48000Hz\tIDLE\n"
	f.outputs["pactl list sources"] = detailedRecord("Source", "foo.monitor", "Monitor of Foo-OutputPipe", "module-null-sink.c", "s16le 2ch 48000Hz") +
		detailedRecord("Source", "foo-pipe", "Foo-OutputPipe", "module-remap-source.c", "s16le 2ch 48000Hz")
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{}, errors: map[string]error{}}
}

func TestListOutputs(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	m := newTestManager(t, f)

	outputs, err := m.ListOutputs()
	if err != nil {
		t.Fatalf("ListOutputs failed: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("Expected 2 outputs, got %d", len(outputs))
	}
	hw := outputs[0]
	if hw.Name != "hw_sink" || hw.Index != 0 || hw.SampleRate != 44100 || hw.Virtual {
		t.Errorf("Hardware sink incorrect: %+v", hw)
	}
	pipe := outputs[1]
	if pipe.Name != "foo" || pipe.Index != 3 || !pipe.Virtual {
		t.Errorf("Null sink incorrect: %+v", pipe)
	}
}

func TestListPipes(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	m := newTestManager(t, f)

	pipes, err := m.ListPipes()
	if err != nil {
		t.Fatalf("ListPipes failed: %v", err)
	}
	if len(pipes) != 1 {
		t.Fatalf("Expected 1 pipe, got %d", len(pipes))
	}
	p := pipes[0]
	if p.Name != "foo" || p.Role != device.RoleOutput {
		t.Errorf("Pipe identity incorrect: %s/%s", p.Name, p.Role)
	}
	if p.Persistent {
		t.Error("Pipe reported persistent with empty store")
	}
}

func TestListPipes_PersistenceFlag(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	m := newTestManager(t, f)

	names := device.DeriveNames("foo", device.RoleOutput)
	err := m.store.Record(persist.Entry{
		Name: "foo", Role: device.RoleOutput,
		SinkName: names.Sink, SourceName: names.Source, MonitorName: names.Monitor,
		SinkDescription: "Foo-OutputPipe", SourceDescription: "Foo-InputPipe",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	pipes, err := m.ListPipes()
	if err != nil {
		t.Fatalf("ListPipes failed: %v", err)
	}
	if len(pipes) != 1 || !pipes[0].Persistent {
		t.Errorf("Expected persistent pipe, got %+v", pipes)
	}
}

func TestCreatePipe(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	m := newTestManager(t, f)

	pipe, err := m.CreatePipe("foo", device.RoleOutput, true)
	if err != nil {
		t.Fatalf("CreatePipe failed: %v", err)
	}

	loads := f.callsMatching("load-module")
	if len(loads) != 2 {
		t.Fatalf("Expected 2 load-module calls, got %v", loads)
	}
	if !strings.Contains(loads[0], "module-null-sink") || !strings.Contains(loads[0], "sink_name=foo") {
		t.Errorf("First load incorrect: %s", loads[0])
	}
	if !strings.Contains(loads[0], "sink_properties=device.description=foo-OutputPipe") {
		t.Errorf("Sink description missing: %s", loads[0])
	}
	if !strings.Contains(loads[1], "module-remap-source") ||
		!strings.Contains(loads[1], "source_name=foo-pipe") ||
		!strings.Contains(loads[1], "master=foo.monitor") {
		t.Errorf("Second load incorrect: %s", loads[1])
	}

	if pipe.Name != "foo" || pipe.Role != device.RoleOutput || !pipe.Persistent {
		t.Errorf("Returned pipe incorrect: %+v", pipe)
	}
	if pipe.Sink.Name != "foo" || pipe.Monitor.Name != "foo.monitor" || pipe.Source.Name != "foo-pipe" {
		t.Errorf("Returned endpoints incorrect: %s/%s/%s", pipe.Sink.Name, pipe.Monitor.Name, pipe.Source.Name)
	}
	if pipe.Sink.Description != "Foo-OutputPipe" || pipe.Source.Description != "Foo-InputPipe" {
		t.Errorf("Descriptions not normalized: sink=%q source=%q", pipe.Sink.Description, pipe.Source.Description)
	}
	if !m.store.Contains("foo", device.RoleOutput) {
		t.Error("Persistent pipe missing from store")
	}
}

func TestCreatePipe_NotPersistent(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	m := newTestManager(t, f)

	pipe, err := m.CreatePipe("foo", device.RoleOutput, false)
	if err != nil {
		t.Fatalf("CreatePipe failed: %v", err)
	}
	if pipe.Persistent {
		t.Error("Pipe marked persistent without request")
	}
	if m.store.Contains("foo", device.RoleOutput) {
		t.Error("Non-persistent pipe recorded in store")
	}
}

func TestCreatePipe_SecondLoadFailureIsNotRolledBack(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	m := newTestManager(t, f)

	remapCmd := "pactl load-module module-remap-source source_name=foo-pipe master=foo.monitor source_properties=device.description=foo-InputPipe"
	f.errors[remapCmd] = io.ErrUnexpectedEOF

	if _, err := m.CreatePipe("foo", device.RoleOutput, false); err == nil {
		t.Fatal("Expected CreatePipe to surface the remap failure")
	}
	// The null sink load happened and no unload was attempted.
	if len(f.callsMatching("module-null-sink")) != 1 {
		t.Errorf("Expected exactly one null sink load, calls: %v", f.calls)
	}
	if len(f.callsMatching("unload-module")) != 0 {
		t.Errorf("Unexpected rollback unload, calls: %v", f.calls)
	}
}

func TestRemovePipe(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	f.outputs["pactl list short modules"] = "7\tmodule-alsa-card\tdevice_id=0\n" +
		"23\tmodule-null-sink\tsink_name=foo\tsink_properties=device.description=Foo-OutputPipe\n" +
		"24\tmodule-remap-source\tsource_name=foo-pipe\tmaster=foo.monitor\n"
	m := newTestManager(t, f)

	if err := m.RemovePipe("foo"); err != nil {
		t.Fatalf("RemovePipe failed: %v", err)
	}

	unloads := f.callsMatching("unload-module")
	if len(unloads) != 2 {
		t.Fatalf("Expected 2 unloads, got %v", unloads)
	}
	// Remap source is unloaded before the null sink it depends on.
	if unloads[0] != "pactl unload-module 24" || unloads[1] != "pactl unload-module 23" {
		t.Errorf("Unload order incorrect: %v", unloads)
	}
}

func TestRemovePipe_MissingIsNoOp(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	m := newTestManager(t, f)

	if err := m.RemovePipe("missing"); err != nil {
		t.Fatalf("RemovePipe on absent pipe errored: %v", err)
	}
	if len(f.callsMatching("unload-module")) != 0 {
		t.Errorf("Unload issued for absent pipe: %v", f.calls)
	}
	if len(f.callsMatching("list short modules")) != 0 {
		t.Errorf("Module listing fetched for absent pipe: %v", f.calls)
	}
}

func TestRemovePipe_PartialHandleTolerated(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	// Only the null sink module survives in the listing.
	f.outputs["pactl list short modules"] = "23\tmodule-null-sink\tsink_name=foo\n"
	m := newTestManager(t, f)

	if err := m.RemovePipe("foo"); err != nil {
		t.Fatalf("RemovePipe failed: %v", err)
	}
	unloads := f.callsMatching("unload-module")
	if len(unloads) != 1 || unloads[0] != "pactl unload-module 23" {
		t.Errorf("Expected single sink unload, got %v", unloads)
	}
}

func TestRemovePipe_ForgetsPersistentEntry(t *testing.T) {
	f := newFakeRunner()
	pipeListings(f)
	f.outputs["pactl list short modules"] = ""
	m := newTestManager(t, f)

	names := device.DeriveNames("foo", device.RoleOutput)
	err := m.store.Record(persist.Entry{
		Name: "foo", Role: device.RoleOutput,
		SinkName: names.Sink, SourceName: names.Source, MonitorName: names.Monitor,
		SinkDescription: "Foo-OutputPipe", SourceDescription: "Foo-InputPipe",
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if err := m.RemovePipe("foo"); err != nil {
		t.Fatalf("RemovePipe failed: %v", err)
	}
	if m.store.Contains("foo", device.RoleOutput) {
		t.Error("Persistent entry survived RemovePipe")
	}
}

func TestFindModuleHandles(t *testing.T) {
	listing := "7\tmodule-alsa-card\tdevice_id=0\n" +
		"23\tmodule-null-sink\tsink_name=foo\tsink_properties=device.description=Foo\n" +
		"24\tmodule-remap-source\tsource_name=foo-pipe\tmaster=foo.monitor\n" +
		"25\tmodule-null-sink\tsink_name=other\n" +
		"short\n"

	sink, source := findModuleHandles(listing, device.DeriveNames("foo", device.RoleOutput))
	if sink != "23" {
		t.Errorf("Sink handle = %q, expected 23", sink)
	}
	if source != "24" {
		t.Errorf("Source handle = %q, expected 24", source)
	}
}

func TestPlay(t *testing.T) {
	f := newFakeRunner()
	m := newTestManager(t, f)

	endpoint := &device.OutputEndpoint{Endpoint: device.Endpoint{
		Name: "foo", SampleFormat: "s16le", Channels: 2, SampleRate: 48000,
	}}
	audio := []byte{0x01, 0x02, 0x03, 0x04}

	if err := m.Play(endpoint, bytes.NewReader(audio), true); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if len(f.calls) != 1 {
		t.Fatalf("Expected 1 call, got %v", f.calls)
	}
	expected := "paplay --device foo --raw --rate 48000 --channels 2 --format s16le"
	if f.calls[0] != expected {
		t.Errorf("Play command = %q, expected %q", f.calls[0], expected)
	}
	if !bytes.Equal(f.stdin, audio) {
		t.Errorf("Streamed bytes = %v, expected %v", f.stdin, audio)
	}
}

func TestPlay_NotRaw(t *testing.T) {
	f := newFakeRunner()
	m := newTestManager(t, f)

	endpoint := &device.OutputEndpoint{Endpoint: device.Endpoint{Name: "foo"}}
	if err := m.Play(endpoint, bytes.NewReader(nil), false); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if strings.Contains(f.calls[0], "--raw") {
		t.Errorf("Raw flags leaked into non-raw playback: %s", f.calls[0])
	}
}

func TestRecord(t *testing.T) {
	f := newFakeRunner()
	f.captureBytes = []byte("RIFFdata")
	m := newTestManager(t, f)

	endpoint := &device.InputEndpoint{Endpoint: device.Endpoint{
		Name: "foo.monitor", SampleFormat: "s16le", Channels: 2, SampleRate: 48000,
	}}
	var captured bytes.Buffer

	if err := m.Record(endpoint, &captured, 2*time.Second, false); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if captured.String() != "RIFFdata" {
		t.Errorf("Captured bytes = %q", captured.String())
	}
	if len(f.calls) != 1 {
		t.Fatalf("Expected 1 call, got %v", f.calls)
	}
	if !strings.HasPrefix(f.calls[0], "parecord --device foo.monitor --file-format=wav ") {
		t.Errorf("Record command incorrect: %s", f.calls[0])
	}
}

func TestRecord_Raw(t *testing.T) {
	f := newFakeRunner()
	f.captureBytes = []byte{0xCA, 0xFE}
	m := newTestManager(t, f)

	endpoint := &device.InputEndpoint{Endpoint: device.Endpoint{
		Name: "bar", SampleFormat: "float32le", Channels: 1, SampleRate: 44100,
	}}
	var captured bytes.Buffer

	if err := m.Record(endpoint, &captured, time.Second, true); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !strings.Contains(f.calls[0], "--raw --rate 44100 --channels 1 --format float32le") {
		t.Errorf("Raw format args missing: %s", f.calls[0])
	}
	if strings.Contains(f.calls[0], "--file-format") {
		t.Errorf("WAV flag leaked into raw capture: %s", f.calls[0])
	}
}
