package pipeline

import (
	"fmt"

	"github.com/vk/pnacldriver/internal/drivererr"
)

var (
	// ErrEmptyPipeline is returned by Run when there is nothing to do.
	ErrEmptyPipeline = drivererr.New(drivererr.ErrConfig, "pipeline has no stages")

	// ErrInvalidStage is a stage definition Run cannot execute.
	ErrInvalidStage = drivererr.New(drivererr.ErrConfig, "invalid stage")
)

// StageError reports the stage that stopped the run.
type StageError struct {
	Stage string
	Index int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{drivererr.ErrPipeline, e.Err}
}

// FanOutError reports the first fan-out worker observed to fail. It is
// always wrapped in a StageError.
type FanOutError struct {
	Worker int
	Err    error
}

func (e *FanOutError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.Worker, e.Err)
}

func (e *FanOutError) Unwrap() []error {
	return []error{drivererr.ErrPipeline, e.Err}
}
