// Package persist records which pipes must be recreated when the sound
// server starts. Definitions live in a pulsepipe-owned fragment inside
// the PulseAudio config directory, joined to the server's own startup
// file through a one-time include directive.
package persist

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/audiolibrelab/pulsepipe/internal/device"
)

const (
	fragmentName = "pulsepipe.pa"
	startupName  = "default.pa"
	includeLine  = ".include " + fragmentName
	markerPrefix = "# pulsepipe pipe: "
)

// Store reads and writes the pipe persistence fragment. The config
// directory is injected at construction; the store never consults
// ambient global paths.
type Store struct {
	dir      string
	fragment string
	startup  string
}

// New returns a store over the given PulseAudio config directory
// (typically ~/.config/pulse).
func New(dir string) *Store {
	return &Store{
		dir:      dir,
		fragment: filepath.Join(dir, fragmentName),
		startup:  filepath.Join(dir, startupName),
	}
}

// Entry describes one persisted pipe stanza.
type Entry struct {
	Name              string
	Role              device.PipeRole
	SinkName          string
	SourceName        string
	MonitorName       string
	SinkDescription   string
	SourceDescription string
}

func nullSinkLine(sinkName, description string) string {
	return fmt.Sprintf("load-module module-null-sink sink_name=%s sink_properties=device.description=%s",
		sinkName, description)
}

func remapSourceLine(sourceName, master, description string) string {
	return fmt.Sprintf("load-module module-remap-source source_name=%s master=%s source_properties=device.description=%s",
		sourceName, master, description)
}

// Record appends a stanza (marker comment plus the two load-module
// lines) for the pipe. A no-op when the fragment already mentions both
// derived names.
func (s *Store) Record(e Entry) error {
	if err := s.ensureInclude(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var content string
	if data, err := os.ReadFile(s.fragment); err == nil {
		content = string(data)
		if strings.Contains(content, e.SinkName) && strings.Contains(content, e.SourceName) {
			slog.Debug("Pipe already in persistence fragment, skipping", "name", e.Name)
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read persistence fragment: %w", err)
	}

	var stanza strings.Builder
	if content != "" && !strings.HasSuffix(content, "\n") {
		stanza.WriteString("\n")
	}
	fmt.Fprintf(&stanza, "%s%s (%s)\n", markerPrefix, e.Name, e.Role)
	stanza.WriteString(nullSinkLine(e.SinkName, e.SinkDescription) + "\n")
	stanza.WriteString(remapSourceLine(e.SourceName, e.MonitorName, e.SourceDescription) + "\n")

	f, err := os.OpenFile(s.fragment, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open persistence fragment: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(stanza.String()); err != nil {
		return fmt.Errorf("failed to write persistence fragment: %w", err)
	}
	slog.Info("Recorded pipe in persistence fragment", "name", e.Name, "role", e.Role)
	return nil
}

// Forget rewrites the fragment without the stanza for the named pipe.
// Stray load lines mentioning the derived sink or source name are dropped
// too, so hand-edited fragments still come out clean. Forgetting an
// absent pipe is a no-op.
func (s *Store) Forget(name string, role device.PipeRole) error {
	data, err := os.ReadFile(s.fragment)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read persistence fragment: %w", err)
	}

	names := device.DeriveNames(name, role)
	lines := strings.Split(string(data), "\n")
	kept := make([]string, 0, len(lines))
	skip := 0
	for _, line := range lines {
		if skip > 0 {
			skip--
			continue
		}
		switch {
		case strings.Contains(line, markerPrefix+name):
			skip = 2
		case strings.Contains(line, "module-null-sink") && strings.Contains(line, names.Sink):
		case strings.Contains(line, "module-remap-source") && strings.Contains(line, names.Source):
		default:
			kept = append(kept, line)
		}
	}

	if err := os.WriteFile(s.fragment, []byte(strings.Join(kept, "\n")), 0644); err != nil {
		return fmt.Errorf("failed to rewrite persistence fragment: %w", err)
	}
	slog.Info("Removed pipe from persistence fragment", "name", name, "role", role)
	return nil
}

// Contains reports whether the fragment holds the marker comment for the
// pipe together with both of its derived names.
func (s *Store) Contains(name string, role device.PipeRole) bool {
	data, err := os.ReadFile(s.fragment)
	if err != nil {
		return false
	}
	content := string(data)
	names := device.DeriveNames(name, role)
	return strings.Contains(content, names.Sink) &&
		strings.Contains(content, names.Source) &&
		strings.Contains(content, markerPrefix+name)
}

// ensureInclude makes sure the server's startup file pulls in the
// fragment. Creates the startup file when missing, appends the include
// directive at most once otherwise.
func (s *Store) ensureInclude() error {
	data, err := os.ReadFile(s.startup)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(s.startup, []byte(includeLine+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to create startup file: %w", err)
		}
		slog.Debug("Created startup file with include directive", "path", s.startup)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read startup file: %w", err)
	}
	if strings.Contains(string(data), includeLine) {
		return nil
	}

	f, err := os.OpenFile(s.startup, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open startup file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString("\n" + includeLine + "\n"); err != nil {
		return fmt.Errorf("failed to append include directive: %w", err)
	}
	slog.Debug("Added include directive to startup file", "path", s.startup)
	return nil
}
