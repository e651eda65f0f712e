package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/vk/pnacldriver/internal/app"
	"github.com/vk/pnacldriver/internal/driver"
	"github.com/vk/pnacldriver/internal/driver/ld"
	"github.com/vk/pnacldriver/internal/driver/translate"
	"github.com/vk/pnacldriver/internal/hcl"
	"github.com/vk/pnacldriver/internal/toolchain"
)

// Environment variables read by the command tree.
const (
	EnvConfig  = "PNACL_DRIVER_CONFIG" // list of config files or directories
	EnvJobs    = "PNACL_DRIVER_JOBS"   // parallelism; defaults to the CPU count
	EnvTempDir = "PNACL_DRIVER_TMPDIR" // directory for intermediate files
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Options are the process-level inputs of the command tree.
type Options struct {
	Out     io.Writer
	Err     io.Writer
	Getenv  func(string) string
	Version string
	// Runner, if set, replaces the process runner. Tests use it.
	Runner toolchain.Runner
}

// Drivers returns every driver the binary carries.
func Drivers() []*driver.Driver {
	return []*driver.Driver{ld.New(), translate.New()}
}

// subcommand is the command name of a driver: pnacl-ld is "ld".
func subcommand(d *driver.Driver) string {
	return strings.TrimPrefix(d.Name, "pnacl-")
}

// Execute runs argv, including the program name. A program named after a
// driver, such as a pnacl-ld symlink, runs that driver directly. Every
// failure comes back as an *ExitError.
func Execute(ctx context.Context, argv []string, opts Options) error {
	args := argv[1:]
	prog := filepath.Base(argv[0])
	name := "pnacl"
	for _, d := range Drivers() {
		if prog == d.Name {
			args = append([]string{subcommand(d)}, args...)
			name = d.Name
			break
		}
	}

	root := NewRootCommand(opts)
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if cmd != nil && cmd.Annotations["program"] != "" {
		name = cmd.Annotations["program"]
	}
	return &ExitError{Code: 1, Message: fmt.Sprintf("%s: %v", name, err)}
}

// NewRootCommand builds the pnacl command tree.
func NewRootCommand(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "pnacl",
		Short:         "Portable Native Client toolchain drivers",
		Version:       opts.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	for _, d := range Drivers() {
		root.AddCommand(newDriverCommand(d, opts))
	}
	root.AddCommand(newExpandCommand(opts), newVarsCommand(opts))
	return root
}

// newDriverCommand hands the raw command line to the driver, whose rule
// table knows its flags.
func newDriverCommand(d *driver.Driver, opts Options) *cobra.Command {
	return &cobra.Command{
		Use:                subcommand(d) + " [options] <inputs>",
		Short:              d.Short,
		DisableFlagParsing: true,
		Annotations:        map[string]string{"program": d.Name},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(d, opts)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context(), args)
		},
	}
}

func newExpandCommand(opts Options) *cobra.Command {
	var driverName string
	var sets []string
	cmd := &cobra.Command{
		Use:         "expand EXPR...",
		Short:       "Expand templates against a driver's variables",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"program": "pnacl expand"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFor(driverName, opts)
			if err != nil {
				return err
			}
			store, err := a.LoadStore(cmd.Context())
			if err != nil {
				return err
			}
			for _, kv := range sets {
				name, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("--set wants NAME=VALUE, got %q", kv)
				}
				tokens, err := shellquote.Split(value)
				if err != nil {
					return fmt.Errorf("--set %s: %w", name, err)
				}
				store.Set(name, tokens...)
			}
			for _, expr := range args {
				out, err := a.Expander().Expand(expr, store)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&driverName, "driver", "d", "ld", "Driver whose variables are used: ld or translate.")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a variable before expanding, NAME=VALUE. Repeatable.")
	return cmd
}

func newVarsCommand(opts Options) *cobra.Command {
	var driverName string
	cmd := &cobra.Command{
		Use:         "vars [NAME...]",
		Short:       "Print a driver's variables as an HCL config file",
		Annotations: map[string]string{"program": "pnacl vars"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFor(driverName, opts)
			if err != nil {
				return err
			}
			store, err := a.LoadStore(cmd.Context())
			if err != nil {
				return err
			}
			vars := store.Snapshot()
			if len(args) > 0 {
				picked := make(map[string][]string, len(args))
				for _, name := range args {
					v, err := store.MustGet(name)
					if err != nil {
						return err
					}
					picked[name] = v
				}
				vars = picked
			}
			return hcl.WriteVars(cmd.OutOrStdout(), vars)
		},
	}
	cmd.Flags().StringVarP(&driverName, "driver", "d", "ld", "Driver whose variables are printed: ld or translate.")
	return cmd
}

func appFor(name string, opts Options) (*app.App, error) {
	for _, d := range Drivers() {
		if name == subcommand(d) || name == d.Name {
			return newApp(d, opts)
		}
	}
	return nil, fmt.Errorf("unknown driver %q: use ld or translate", name)
}

func newApp(d *driver.Driver, opts Options) (*app.App, error) {
	cfg, err := appConfig(opts)
	if err != nil {
		return nil, err
	}
	var appOpts []app.Option
	if opts.Runner != nil {
		appOpts = append(appOpts, app.WithRunner(opts.Runner))
	}
	return app.NewApp(opts.Out, opts.Err, d, cfg, appOpts...), nil
}

// appConfig reads the process environment.
func appConfig(opts Options) (*app.Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	var jobs int
	if s := getenv(EnvJobs); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid %s %q: must be a positive integer", EnvJobs, s)
		}
		jobs = n
	}

	var paths []string
	if s := getenv(EnvConfig); s != "" {
		paths = filepath.SplitList(s)
	}

	return app.NewConfig(app.Config{
		ConfigPaths: paths,
		Parallelism: jobs,
		TempDir:     getenv(EnvTempDir),
		Version:     opts.Version,
	})
}
