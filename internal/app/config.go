package app

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

// Config holds all the necessary configuration for an App instance to run.
// It covers what does not come from the driver's command line.
type Config struct {
	ConfigPaths []string // driver config files or directories, layered in order
	Parallelism int      // 0 means runtime.NumCPU()
	TempDir     string   // empty keeps intermediates next to the output
	Version     string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Parallelism < 0 {
		return nil, errors.New("parallelism cannot be negative")
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = runtime.NumCPU()
	}
	if cfg.TempDir != "" {
		info, err := os.Stat(cfg.TempDir)
		if err != nil {
			return nil, fmt.Errorf("temp dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("temp dir %s is not a directory", cfg.TempDir)
		}
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	return &cfg, nil
}
