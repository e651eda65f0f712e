package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/ctxlog"
	"github.com/vk/pnacldriver/internal/macro"
	"github.com/vk/pnacldriver/internal/toolchain"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSplitCount sets how many workers a fan-out stage runs. Values below
// one are treated as one.
func WithSplitCount(n int) Option {
	return func(p *Pipeline) {
		p.splitCount = max(n, 1)
	}
}

// WithParallelism caps how many fan-out workers run at once. The default is
// the split count.
func WithParallelism(n int) Option {
	return func(p *Pipeline) {
		p.parallelism = n
	}
}

// WithTempDir sets where intermediate artifacts are written. The default is
// the directory of the final output.
func WithTempDir(dir string) Option {
	return func(p *Pipeline) {
		p.tempDir = dir
	}
}

// WithKeepTemps leaves intermediate artifacts in place after the run.
func WithKeepTemps(keep bool) Option {
	return func(p *Pipeline) {
		p.keepTemps = keep
	}
}

// WithExpander overrides the template expander used for stage commands.
func WithExpander(e *macro.Expander) Option {
	return func(p *Pipeline) {
		p.expander = e
	}
}

// Pipeline executes stages once. Build a new one for every run.
type Pipeline struct {
	store       *configstore.Store
	runner      toolchain.Runner
	output      string
	expander    *macro.Expander
	splitCount  int
	parallelism int
	tempDir     string
	keepTemps   bool

	state atomic.Int32
	mu    sync.Mutex
	stage string
	temps []string
}

// New creates a Pipeline whose last stage writes output.
func New(store *configstore.Store, runner toolchain.Runner, output string, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		runner:     runner,
		output:     output,
		expander:   macro.New(),
		splitCount: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State reports where the pipeline is in its lifecycle.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Stage returns the stage that is running, or the one that failed.
func (p *Pipeline) Stage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stage
}

// Temps returns the intermediate artifact paths in creation order.
func (p *Pipeline) Temps() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.temps...)
}

// Run executes stages in order starting from inputs and returns the path of
// the final artifact. Each stage consumes every artifact of the stage before
// it, in worker order.
func (p *Pipeline) Run(ctx context.Context, stages []Stage, inputs []string) (string, error) {
	if !p.state.CompareAndSwap(int32(Pending), int32(Running)) {
		return "", fmt.Errorf("%w: pipeline already ran", ErrInvalidStage)
	}
	if err := p.validate(stages); err != nil {
		p.state.Store(int32(Failed))
		return "", err
	}

	logger := ctxlog.FromContext(ctx)
	defer p.cleanup(ctx)

	current := inputs
	for i, st := range stages {
		final := i == len(stages)-1
		p.setStage(st.Name)

		base := p.output
		if !final {
			base = p.tempName(i, st)
		}
		logger.Debug("Running stage.", "stage", st.Name, "index", i, "inputs", current, "output", base)

		outputs, err := p.runStage(ctx, st, current, base, !final)
		if err != nil {
			p.state.Store(int32(Failed))
			if final {
				p.removePartial(ctx)
			}
			logger.Error("Stage failed.", "stage", st.Name, "error", err)
			return "", &StageError{Stage: st.Name, Index: i, Err: err}
		}
		current = outputs
	}

	p.state.Store(int32(Done))
	logger.Debug("Pipeline finished.", "output", p.output)
	return p.output, nil
}

func (p *Pipeline) validate(stages []Stage) error {
	if len(stages) == 0 {
		return ErrEmptyPipeline
	}
	for _, st := range stages {
		if err := st.validate(); err != nil {
			return err
		}
	}
	if last := stages[len(stages)-1]; last.FanOut && p.splitCount > 1 {
		return fmt.Errorf("%w: final stage %q cannot fan out to %d outputs", ErrInvalidStage, last.Name, p.splitCount)
	}
	return nil
}

// runStage runs one stage, or all of its workers, and returns the artifacts
// ordered by worker index.
func (p *Pipeline) runStage(ctx context.Context, st Stage, inputs []string, base string, temp bool) ([]string, error) {
	n := 1
	if st.FanOut {
		n = p.splitCount
	}

	work := make([]Work, n)
	outputs := make([]string, n)
	for k := range n {
		outputs[k] = artifactName(base, k)
		work[k] = Work{
			Stage:      st.Name,
			Inputs:     inputs,
			Output:     outputs[k],
			SplitIndex: k,
			SplitCount: n,
		}
	}
	if temp {
		p.mu.Lock()
		p.temps = append(p.temps, outputs...)
		p.mu.Unlock()
	}

	// Commands are rendered up front so workers never read the store.
	var cmdlines []string
	if st.Func == nil {
		var err error
		if cmdlines, err = p.render(st, work); err != nil {
			return nil, err
		}
	}
	run := func(ctx context.Context, k int) error {
		if st.Func != nil {
			return st.Func(ctx, work[k])
		}
		return p.runner.RunTemplate(ctx, cmdlines[k])
	}

	if !st.FanOut {
		if err := run(ctx, 0); err != nil {
			return nil, err
		}
		return outputs, nil
	}
	if err := p.fanOut(ctx, n, run); err != nil {
		return nil, err
	}
	return outputs, nil
}

// render expands the stage command once per worker inside a pushed scope.
func (p *Pipeline) render(st Stage, work []Work) ([]string, error) {
	cmdlines := make([]string, len(work))
	for k, w := range work {
		err := p.store.Scoped(func() error {
			first := ""
			if len(w.Inputs) > 0 {
				first = w.Inputs[0]
			}
			p.store.Set("input", first)
			p.store.Set("inputs", w.Inputs...)
			p.store.Set("output", w.Output)
			p.store.Set("stage", w.Stage)
			p.store.Set("split_index", strconv.Itoa(w.SplitIndex))
			p.store.Set("split_count", strconv.Itoa(w.SplitCount))

			cmdline, err := p.expander.Expand(st.Command, p.store)
			if err != nil {
				return err
			}
			cmdlines[k] = cmdline
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return cmdlines, nil
}

// artifactName names worker k's artifact: base itself for worker 0, then
// base.module1, base.module2 and so on.
func artifactName(base string, k int) string {
	if k == 0 {
		return base
	}
	return fmt.Sprintf("%s.module%d", base, k)
}

// tempName derives the artifact of non-final stage i. The index keeps names
// unique when two stages share an extension.
func (p *Pipeline) tempName(i int, st Stage) string {
	dir := p.tempDir
	if dir == "" {
		dir = filepath.Dir(p.output)
	}
	stem := filepath.Base(p.output)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	if stem == "" || stem == "." {
		stem = "out"
	}

	name := fmt.Sprintf("%s.%d.%s", stem, i, st.Name)
	if st.OutputExt != "" {
		name += "." + st.OutputExt
	}
	return filepath.Join(dir, name)
}

func (p *Pipeline) setStage(name string) {
	p.mu.Lock()
	p.stage = name
	p.mu.Unlock()
}

func (p *Pipeline) cleanup(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	temps := p.Temps()
	if p.keepTemps {
		if len(temps) > 0 {
			logger.Info("Keeping intermediate files.", "files", temps)
		}
		return
	}
	for _, path := range temps {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to remove intermediate file.", "path", path, "error", err)
		}
	}
}

func (p *Pipeline) removePartial(ctx context.Context) {
	if err := os.Remove(p.output); err != nil && !errors.Is(err, fs.ErrNotExist) {
		ctxlog.FromContext(ctx).Warn("Failed to remove partial output.", "path", p.output, "error", err)
	}
}
