package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/pnacldriver/internal/toolchain"
)

// Invocation is one call observed by a Recorder.
type Invocation struct {
	Tool  string
	Args  []string
	Start time.Time
	End   time.Time
}

// CommandLine renders the call the way a dry run prints it: arguments are
// separated by single spaces and quoted when they need it.
func (i Invocation) CommandLine() string {
	return toolchain.FormatCommand(i.Tool, i.Args)
}

// Recorder is a toolchain.Runner that records every invocation instead of
// starting processes. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []Invocation

	// Delay, if set, returns how long the call for cmdline should block.
	Delay func(cmdline string) time.Duration
	// Fail, if set, returns the exit status for cmdline; nonzero fails it.
	Fail func(cmdline string) int
	// OnCall, if set, runs after each call completes.
	OnCall func(Invocation)
}

var _ toolchain.Runner = (*Recorder)(nil)

// RunTool implements toolchain.Runner.
func (r *Recorder) RunTool(ctx context.Context, tool string, args []string) error {
	inv := Invocation{Tool: tool, Args: append([]string(nil), args...), Start: time.Now()}
	cmdline := inv.CommandLine()

	if r.Delay != nil {
		if d := r.Delay(cmdline); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return &toolchain.ExecError{Tool: tool, Args: args, ExitCode: -1, Err: ctx.Err()}
			}
		}
	}
	inv.End = time.Now()

	r.mu.Lock()
	r.calls = append(r.calls, inv)
	r.mu.Unlock()

	if r.OnCall != nil {
		r.OnCall(inv)
	}
	if r.Fail != nil {
		if code := r.Fail(cmdline); code != 0 {
			return &toolchain.ExecError{
				Tool:     tool,
				Args:     args,
				ExitCode: code,
				Err:      fmt.Errorf("exit status %d", code),
			}
		}
	}
	return nil
}

// RunTemplate implements toolchain.Runner.
func (r *Recorder) RunTemplate(ctx context.Context, cmdline string) error {
	tool, args, err := toolchain.SplitCommandLine(cmdline)
	if err != nil {
		return err
	}
	return r.RunTool(ctx, tool, args)
}

// Calls returns the recorded invocations in completion order.
func (r *Recorder) Calls() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Invocation(nil), r.calls...)
}

// CommandLines returns the recorded command lines in completion order.
func (r *Recorder) CommandLines() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.CommandLine()
	}
	return out
}

// Tools returns the tool of each recorded call in completion order.
func (r *Recorder) Tools() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Tool
	}
	return out
}
