package driver

import (
	"context"
	"maps"

	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/dispatch"
	"github.com/vk/pnacldriver/internal/drivererr"
	"github.com/vk/pnacldriver/internal/macro"
	"github.com/vk/pnacldriver/internal/pipeline"
	"github.com/vk/pnacldriver/internal/policy"
	"github.com/vk/pnacldriver/internal/toolchain"
)

var (
	// ErrNoInput is a command line without input files.
	ErrNoInput = drivererr.New(drivererr.ErrDispatch, "no input files")

	// ErrTooManyInputs is more input files than the driver accepts.
	ErrTooManyInputs = drivererr.New(drivererr.ErrDispatch, "too many input files")
)

// Env is what a driver's Build sees.
type Env struct {
	Store    *configstore.Store
	Plan     *policy.Plan
	Runner   toolchain.Runner
	Expander *macro.Expander
}

// Driver describes one front end.
type Driver struct {
	// Name is the program name used in messages, e.g. pnacl-ld.
	Name string
	// Short is a one-line description.
	Short string
	// Usage is printed for -h and --help.
	Usage string
	// Defaults returns the driver's own variables.
	Defaults func() map[string][]string
	// Required names variables that must have a value before the policy
	// runs.
	Required []string
	// Rules are the driver's option rules. They are tried after the common
	// rules.
	Rules []dispatch.Rule
	// Positional, if set, handles a normalized positional token. It may
	// record the token in the store.
	Positional func(store *configstore.Store, token string) error
	// Build turns the plan into stages.
	Build func(ctx context.Context, env Env) ([]pipeline.Stage, error)
}

// AllDefaults layers the common and driver defaults over the policy
// defaults.
func (d *Driver) AllDefaults() map[string][]string {
	vars := policy.Defaults()
	maps.Copy(vars, CommonDefaults())
	vars[VarDriver] = []string{d.Name}
	if d.Defaults != nil {
		maps.Copy(vars, d.Defaults())
	}
	return vars
}

// AllRules returns the common rules followed by the driver's.
func (d *Driver) AllRules() []dispatch.Rule {
	rules := CommonRules()
	return append(rules, d.Rules...)
}

// Dispatch applies the driver's rules to args. Positionals and path-valued
// options are normalized with toolchain.NormalizePath, and each positional
// is handed to the driver's Positional hook.
func (d *Driver) Dispatch(ctx context.Context, store *configstore.Store, args []string) ([]string, error) {
	disp := dispatch.New(d.AllRules(),
		dispatch.WithPathNormalizer(toolchain.NormalizePath),
		dispatch.WithPositional(func(tok string) (string, error) {
			tok = toolchain.NormalizePath(tok)
			if d.Positional != nil {
				if err := d.Positional(store, tok); err != nil {
					return "", err
				}
			}
			return tok, nil
		}),
	)
	return disp.Dispatch(ctx, args, store)
}

// NewStore creates a store holding the driver's defaults with its required
// variables registered.
func (d *Driver) NewStore() *configstore.Store {
	store := configstore.NewWithDefaults(d.AllDefaults())
	store.Require(d.Required...)
	return store
}
