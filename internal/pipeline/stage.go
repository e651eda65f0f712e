package pipeline

import (
	"context"
	"fmt"
)

// State is the run state of a Pipeline.
type State int32

const (
	// Pending indicates Run has not been called.
	Pending State = iota
	// Running indicates a stage is executing.
	Running
	// Done indicates every stage completed.
	Done
	// Failed indicates a stage failed; no later stage ran.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Work is what one stage invocation sees.
type Work struct {
	Stage      string
	Inputs     []string
	Output     string
	SplitIndex int
	SplitCount int
}

// Func is an in-process stage body. Fan-out workers call it concurrently.
type Func func(ctx context.Context, w Work) error

// Stage is one step of a pipeline. Exactly one of Func and Command is set.
type Stage struct {
	Name string
	// OutputExt is the extension of the stage's temporary artifact.
	OutputExt string
	// Func runs the stage in process.
	Func Func
	// Command is a command-line template handed to the runner after
	// expansion.
	Command string
	// FanOut runs the stage once per module split.
	FanOut bool
}

func (s Stage) validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: stage without a name", ErrInvalidStage)
	case s.Func == nil && s.Command == "":
		return fmt.Errorf("%w: stage %q has neither a function nor a command", ErrInvalidStage, s.Name)
	case s.Func != nil && s.Command != "":
		return fmt.Errorf("%w: stage %q has both a function and a command", ErrInvalidStage, s.Name)
	}
	return nil
}
