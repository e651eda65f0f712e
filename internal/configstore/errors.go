package configstore

import (
	"github.com/vk/pnacldriver/internal/drivererr"
)

var (
	// ErrUndefinedVariable is returned by MustGet for a name that was never set.
	ErrUndefinedVariable = drivererr.New(drivererr.ErrConfig, "undefined variable")

	// ErrMissingConfig is returned when a variable marked required has no value.
	ErrMissingConfig = drivererr.New(drivererr.ErrConfig, "missing required config")

	// ErrEmptyStack is returned by Pop without a matching Push.
	ErrEmptyStack = drivererr.New(drivererr.ErrConfig, "pop without matching push")
)
