// Package drivererr defines the error categories shared by every driver
// component. Specific errors wrap exactly one category so callers can
// classify a failure with errors.Is without knowing which package raised it.
package drivererr

import "errors"

var (
	// ErrConfig marks a driver-configuration bug: bad templates, missing
	// required variables, invalid policy inputs.
	ErrConfig = errors.New("config error")

	// ErrDispatch marks a user-facing command-line error.
	ErrDispatch = errors.New("dispatch error")

	// ErrPipeline marks a failed pipeline stage or fan-out worker.
	ErrPipeline = errors.New("pipeline error")

	// ErrTool marks a failed external tool invocation.
	ErrTool = errors.New("tool execution error")
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// New returns a sentinel in the given category. Its message does not repeat
// the category name.
func New(category error, msg string) error {
	return &kindError{msg: msg, kind: category}
}

// Category returns the category an error belongs to, or nil if it carries
// none of them. Tool failures are reported by the pipeline, so a stage error
// wrapping a tool error classifies as ErrPipeline.
func Category(err error) error {
	for _, c := range []error{ErrPipeline, ErrDispatch, ErrConfig, ErrTool} {
		if errors.Is(err, c) {
			return c
		}
	}
	return nil
}
