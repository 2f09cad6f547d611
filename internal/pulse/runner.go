// Package pulse drives the PulseAudio command line tools (pactl, paplay,
// parecord) and reconciles the live device state with the persisted pipe
// definitions.
package pulse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Runner executes sound server commands as isolated child processes.
// Non-zero exit is a failure carrying the captured error output.
type Runner interface {
	// Output runs the command to completion and returns its stdout.
	Output(name string, args ...string) (string, error)
	// RunInput runs the command with stdin connected to the reader.
	RunInput(name string, stdin io.Reader, args ...string) error
	// RunTimeout runs the command for at most the given duration,
	// terminating it on expiry. Termination by the timeout signal is
	// the expected exit path, not an error.
	RunTimeout(name string, timeout time.Duration, args ...string) error
}

// NewRunner returns the exec-backed Runner.
func NewRunner() Runner {
	return execRunner{}
}

type execRunner struct{}

func (execRunner) Output(name string, args ...string) (string, error) {
	slog.Debug("Running command", "command", name+" "+strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", commandError(name, err, stderr.String())
	}
	return stdout.String(), nil
}

func (execRunner) RunInput(name string, stdin io.Reader, args ...string) error {
	slog.Debug("Running command with input", "command", name+" "+strings.Join(args, " "))
	cmd := exec.Command(name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return commandError(name, err, stderr.String())
	}
	return nil
}

func (execRunner) RunTimeout(name string, timeout time.Duration, args ...string) error {
	slog.Debug("Running command with timeout", "command", name+" "+strings.Join(args, " "), "timeout", timeout)
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return commandError(name, err, stderr.String())
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil && !terminatedBySignal(err) {
			return commandError(name, err, stderr.String())
		}
		return nil
	case <-time.After(timeout):
		slog.Debug("Timeout expired, terminating process", "command", name)
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			slog.Debug("Failed to signal process, killing", "command", name, "error", err)
			cmd.Process.Kill()
		}
		err := <-done
		if err != nil && !terminatedBySignal(err) {
			return commandError(name, err, stderr.String())
		}
		return nil
	}
}

// terminatedBySignal reports whether the process exited because someone
// sent it SIGTERM, the normal end of a timed recording.
func terminatedBySignal(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && status.Signaled() && status.Signal() == syscall.SIGTERM
}

func commandError(name string, err error, stderr string) error {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s failed: %w: %s", name, err, msg)
	}
	return fmt.Errorf("%s failed: %w", name, err)
}
