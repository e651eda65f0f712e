package macro

import (
	"fmt"

	"github.com/vk/pnacldriver/internal/drivererr"
)

var (
	// ErrCyclicIndirection means %NAME% rewriting did not settle within the
	// expander's depth bound.
	ErrCyclicIndirection = drivererr.New(drivererr.ErrConfig, "cyclic indirection")

	// ErrMalformedExpression covers unbalanced markers, invalid variable
	// names and unknown functions.
	ErrMalformedExpression = drivererr.New(drivererr.ErrConfig, "malformed expression")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedExpression, fmt.Sprintf(format, args...))
}
