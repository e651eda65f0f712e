package app

import (
	"io"

	"github.com/vk/pnacldriver/internal/config"
	"github.com/vk/pnacldriver/internal/driver"
	"github.com/vk/pnacldriver/internal/hcl"
	"github.com/vk/pnacldriver/internal/macro"
	"github.com/vk/pnacldriver/internal/toolchain"
	"github.com/vk/pnacldriver/internal/yamlconfig"
)

// Option customizes an App.
type Option func(*App)

// WithRunner replaces the runner that executes tools.
func WithRunner(r toolchain.Runner) Option {
	return func(a *App) {
		a.runner = r
	}
}

// WithClassifier replaces the input classifier.
func WithClassifier(c toolchain.Classifier) Option {
	return func(a *App) {
		a.classify = c
	}
}

// WithLoaders replaces the configuration loaders.
func WithLoaders(loaders ...config.Loader) Option {
	return func(a *App) {
		a.loaders = loaders
	}
}

// App encapsulates one driver together with its dependencies.
type App struct {
	outW     io.Writer // help, version and dry-run output
	logW     io.Writer
	driver   *driver.Driver
	config   *Config
	loaders  []config.Loader
	runner   toolchain.Runner
	classify toolchain.Classifier
	expander *macro.Expander
}

// NewApp is the constructor for the application. Without options it reads
// HCL and YAML config files and runs tools as child processes.
func NewApp(outW, logW io.Writer, drv *driver.Driver, cfg *Config, opts ...Option) *App {
	a := &App{
		outW:     outW,
		logW:     logW,
		driver:   drv,
		config:   cfg,
		loaders:  []config.Loader{hcl.NewLoader(), yamlconfig.NewLoader()},
		runner:   &toolchain.ExecRunner{Stdout: outW, Stderr: logW},
		classify: toolchain.ClassifyFile,
		expander: macro.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Driver returns the driver the app runs.
func (a *App) Driver() *driver.Driver {
	return a.driver
}

// Expander returns the template expander shared by every component.
func (a *App) Expander() *macro.Expander {
	return a.expander
}
