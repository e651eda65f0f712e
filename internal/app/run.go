package app

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/vk/pnacldriver/internal/ctxlog"
	"github.com/vk/pnacldriver/internal/driver"
	"github.com/vk/pnacldriver/internal/pipeline"
	"github.com/vk/pnacldriver/internal/policy"
	"github.com/vk/pnacldriver/internal/toolchain"
)

// Run executes one driver invocation with args, the command line without
// the program name.
func (a *App) Run(ctx context.Context, args []string) error {
	store, _, err := a.Prepare(ctx, args)
	if err != nil {
		return err
	}

	switch {
	case store.GetBool(driver.VarHelp):
		_, err := io.WriteString(a.outW, a.driver.Usage)
		return err
	case store.GetBool(driver.VarVersion):
		_, err := fmt.Fprintf(a.outW, "%s version %s\n", a.driver.Name, a.config.Version)
		return err
	}

	logger, err := newLogger(store.GetJoined(driver.VarLogLevel), store.GetJoined(driver.VarLogFormat), a.logW)
	if err != nil {
		return err
	}
	logger = logger.With("run_id", uuid.NewString(), "driver", a.driver.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("App.Run method started.", "args", args)

	if err := store.CheckRequired(); err != nil {
		return err
	}
	inputs := store.Get(driver.VarInputs)
	if len(inputs) == 0 {
		return driver.ErrNoInput
	}

	plan, err := policy.Decide(ctx, store, inputs, policy.Options{
		Classify:    a.classify,
		Parallelism: a.config.Parallelism,
		Expander:    a.expander,
	})
	if err != nil {
		return err
	}

	runner := a.runner
	if store.GetBool(driver.VarDryRun) {
		runner = toolchain.NewDryRunner(a.outW)
	}

	stages, err := a.driver.Build(ctx, driver.Env{Store: store, Plan: plan, Runner: runner, Expander: a.expander})
	if err != nil {
		return err
	}

	output := store.GetJoined(driver.VarOutput)
	p := pipeline.New(store, runner, output,
		pipeline.WithSplitCount(plan.SplitCount),
		pipeline.WithParallelism(a.config.Parallelism),
		pipeline.WithTempDir(a.config.TempDir),
		pipeline.WithKeepTemps(store.GetBool(driver.VarSaveTemps)),
		pipeline.WithExpander(a.expander),
	)
	logger.Info("Starting pipeline.", "stages", len(stages), "inputs", inputs, "output", output)
	out, err := p.Run(ctx, stages, inputs)
	if err != nil {
		return err
	}
	logger.Info("Driver finished.", "output", out)
	return nil
}
