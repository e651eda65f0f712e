package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vk/pnacldriver/internal/config"
	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/ctxlog"
)

// LoadStore builds the driver's store: defaults, then every config file in
// order. The command line is not applied.
func (a *App) LoadStore(ctx context.Context) (*configstore.Store, error) {
	if !ctxlog.Has(ctx) {
		ctx = ctxlog.WithLogger(ctx, bootstrapLogger(a.logW))
	}
	logger := ctxlog.FromContext(ctx)
	store := a.driver.NewStore()

	model, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if model.Empty() {
		logger.Debug("No driver configuration files.", "paths", a.config.ConfigPaths)
		return store, nil
	}
	model.Apply(store)
	logger.Debug("Driver configuration applied.", "sources", model.Sources)
	return store, nil
}

// loadConfig runs every loader on each path in turn, so a later path wins
// over an earlier one whatever its format. A path that does not exist is
// skipped with a warning.
func (a *App) loadConfig(ctx context.Context) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	merged := config.NewModel()
	for _, path := range a.config.ConfigPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Warn("Driver configuration path does not exist.", "path", path)
			continue
		}
		for _, loader := range a.loaders {
			m, err := loader.Load(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("failed to load configuration: %w", err)
			}
			merged.Merge(m)
		}
	}
	return merged, nil
}

// Prepare loads the store and applies the command line to it. It returns
// the positionals in command-line order.
func (a *App) Prepare(ctx context.Context, args []string) (*configstore.Store, []string, error) {
	store, err := a.LoadStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	positionals, err := a.driver.Dispatch(ctx, store, args)
	if err != nil {
		return nil, nil, err
	}
	return store, positionals, nil
}
