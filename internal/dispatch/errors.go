package dispatch

import (
	"github.com/vk/pnacldriver/internal/drivererr"
)

var (
	// ErrUnrecognizedOption is a dash token no rule claims.
	ErrUnrecognizedOption = drivererr.New(drivererr.ErrDispatch, "unrecognized option")

	// ErrMalformedTwoTokenFlag is a two-token flag missing or rejecting its
	// second token.
	ErrMalformedTwoTokenFlag = drivererr.New(drivererr.ErrDispatch, "malformed two-token flag")

	// ErrFatal matches every FatalError.
	ErrFatal = drivererr.New(drivererr.ErrDispatch, "fatal option")
)

// FatalError is raised by a Fatal action. Its message is the expanded
// message template.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string { return e.Message }

func (e *FatalError) Unwrap() error { return ErrFatal }
