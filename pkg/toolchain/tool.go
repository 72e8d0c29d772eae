// Package toolchain runs the external collaborators of the harness: the
// disassembler under test, the reference disassembler and the binutils used
// to convert, assemble and link.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/Manu343726/disfuzz/pkg/utils"
)

var (
	// ErrToolMissing reports toolchain components that cannot be found
	ErrToolMissing = errors.New("required tool not found")
	// ErrToolFailed reports a tool that ran and exited with an error
	ErrToolFailed = errors.New("tool invocation failed")
	// ErrToolTimeout reports a tool that did not exit in time. This is an
	// infrastructure failure, not a disassembly defect
	ErrToolTimeout = errors.New("tool invocation timed out")
)

// Tool is one external executable
type Tool struct {
	// Name is the logical name used in reports (e.g. "assembler")
	Name string

	// Path is the resolved executable path
	Path string

	// Timeout bounds a single invocation, zero disables it
	Timeout time.Duration

	Logger *slog.Logger
}

// Result contains the outcome of one invocation
type Result struct {
	// Command is the command line that was executed
	Command string

	// Stdout is the standard output of the tool
	Stdout string

	// Stderr is the standard error of the tool
	Stderr string

	// Duration is the wall time of the invocation
	Duration time.Duration
}

// Diagnostics returns everything the tool printed, stderr first
func (r *Result) Diagnostics() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stderr) + "\n" + strings.TrimSpace(r.Stdout))
}

// Run executes the tool with the given arguments and blocks until it exits.
// A non-zero exit status returns ErrToolFailed together with the result so the
// caller can report the diagnostics.
func (t *Tool) Run(ctx context.Context, args ...string) (*Result, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, t.Path, args...)
	// Children that inherit the pipes must not keep a killed tool alive
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := &Result{
		Command: fmt.Sprintf("%s %s", t.Path, strings.Join(args, " ")),
	}

	t.logger().Debug("running tool", "tool", t.Name, "command", result.Command)

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return result, utils.MakeError(ErrToolTimeout, "%s (%s) did not exit within %v", t.Name, result.Command, t.Timeout)
		}
		return result, fmt.Errorf("%s (%s): %w", t.Name, result.Command, ctxErr)
	}

	if err != nil {
		return result, utils.MakeError(ErrToolFailed, "%s (%s): %v\n%s", t.Name, result.Command, err, result.Diagnostics())
	}

	return result, nil
}

// Version returns the first line the tool prints for --version
func (t *Tool) Version(ctx context.Context) (string, error) {
	result, err := t.Run(ctx, "--version")
	if err != nil {
		return "", err
	}

	lines := strings.Split(strings.TrimSpace(result.Stdout), "\n")
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0]), nil
	}
	return "", nil
}

func (t *Tool) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
