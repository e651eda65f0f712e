package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/kballard/go-shellquote"

	"github.com/vk/pnacldriver/internal/ctxlog"
	"github.com/vk/pnacldriver/internal/drivererr"
)

// Runner executes external tools. A nonzero exit is reported as *ExecError.
// Implementations must be safe for concurrent use: fan-out workers call
// them in parallel.
type Runner interface {
	// RunTool runs tool with an argv list.
	RunTool(ctx context.Context, tool string, args []string) error
	// RunTemplate runs a single expanded command line.
	RunTemplate(ctx context.Context, cmdline string) error
}

// ExecError is a failed tool invocation.
type ExecError struct {
	Tool     string
	Args     []string
	ExitCode int // -1 when the tool could not be started
	Err      error
}

func (e *ExecError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
}

// Unwrap exposes both the category and the underlying cause.
func (e *ExecError) Unwrap() []error {
	return []error{drivererr.ErrTool, e.Err}
}

// SplitCommandLine splits an expanded command line into argv using shell
// word rules: quotes and backslashes group characters, nothing is expanded.
func SplitCommandLine(cmdline string) (string, []string, error) {
	argv, err := shellquote.Split(cmdline)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %q: %v", drivererr.ErrTool, cmdline, err)
	}
	if len(argv) == 0 {
		return "", nil, fmt.Errorf("%w: empty command line", drivererr.ErrTool)
	}
	return argv[0], argv[1:], nil
}

// FormatCommand renders argv as a command line that SplitCommandLine turns
// back into the same argv.
func FormatCommand(tool string, args []string) string {
	return shellquote.Join(append([]string{tool}, args...)...)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	Env    []string // nil inherits the driver's environment
	Dir    string
}

// RunTool implements Runner.
func (r *ExecRunner) RunTool(ctx context.Context, tool string, args []string) error {
	logger := ctxlog.FromContext(ctx).With("tool", tool)
	logger.Debug("Running tool.", "args", args)

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = r.Env
	cmd.Dir = r.Dir

	if err := cmd.Run(); err != nil {
		execErr := &ExecError{Tool: tool, Args: args, ExitCode: -1, Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			execErr.ExitCode = exitErr.ExitCode()
		}
		logger.Debug("Tool failed.", "exit_code", execErr.ExitCode, "error", err)
		return execErr
	}
	return nil
}

// RunTemplate implements Runner.
func (r *ExecRunner) RunTemplate(ctx context.Context, cmdline string) error {
	tool, args, err := SplitCommandLine(cmdline)
	if err != nil {
		return err
	}
	return r.RunTool(ctx, tool, args)
}

// DryRunner prints every command instead of running it.
type DryRunner struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDryRunner creates a DryRunner writing to w.
func NewDryRunner(w io.Writer) *DryRunner {
	return &DryRunner{out: w}
}

// RunTool implements Runner.
func (d *DryRunner) RunTool(ctx context.Context, tool string, args []string) error {
	line := FormatCommand(tool, args)
	ctxlog.FromContext(ctx).Debug("Dry run, not executing.", "tool", tool)

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintln(d.out, line)
	return err
}

// RunTemplate implements Runner.
func (d *DryRunner) RunTemplate(ctx context.Context, cmdline string) error {
	tool, args, err := SplitCommandLine(cmdline)
	if err != nil {
		return err
	}
	return d.RunTool(ctx, tool, args)
}
