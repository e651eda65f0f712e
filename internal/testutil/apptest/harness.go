// Package apptest runs whole driver invocations through the app with a
// recording runner.
package apptest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/pnacldriver/internal/app"
	"github.com/vk/pnacldriver/internal/driver"
	"github.com/vk/pnacldriver/internal/testutil"
	"github.com/vk/pnacldriver/internal/toolchain"
)

// HarnessResult holds the outcomes of a driver run.
type HarnessResult struct {
	Output      string // help, version and dry-run output
	OutputLines []string
	LogOutput   string
	LogLines    []string
	Err         error
	Recorder    *testutil.Recorder
	Dir         string // the temporary working directory
}

// Harness configures RunDriver. The zero value runs with no config files.
type Harness struct {
	// Files are written below Dir before the run; keys are relative paths.
	Files map[string]string
	// ConfigPaths are relative to Dir and become the app's config paths.
	ConfigPaths []string
	// TempDir, relative to Dir, is created and used for intermediates.
	TempDir     string
	Parallelism int
	Classify    toolchain.Classifier
	Recorder    *testutil.Recorder
}

// RunDriver runs drv with args against a Recorder using a background
// context.
func RunDriver(t *testing.T, drv *driver.Driver, h Harness, args ...string) *HarnessResult {
	t.Helper()
	return RunDriverWithContext(context.Background(), t, drv, h, args...)
}

// RunDriverWithContext runs drv with args against a Recorder. Relative
// paths in args stay relative; the caller joins them with result.Dir when
// the files must exist.
func RunDriverWithContext(ctx context.Context, t *testing.T, drv *driver.Driver, h Harness, args ...string) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range h.Files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	var paths []string
	for _, p := range h.ConfigPaths {
		paths = append(paths, filepath.Join(dir, p))
	}
	var tempDir string
	if h.TempDir != "" {
		tempDir = filepath.Join(dir, h.TempDir)
		require.NoError(t, os.MkdirAll(tempDir, 0o755))
	}
	cfg, err := app.NewConfig(app.Config{
		ConfigPaths: paths,
		Parallelism: h.Parallelism,
		TempDir:     tempDir,
		Version:     "test",
	})
	require.NoError(t, err)

	rec := h.Recorder
	if rec == nil {
		rec = &testutil.Recorder{}
	}
	opts := []app.Option{app.WithRunner(rec)}
	if h.Classify != nil {
		opts = append(opts, app.WithClassifier(h.Classify))
	}

	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	runErr := app.NewApp(out, logs, drv, cfg, opts...).Run(ctx, args)

	if os.Getenv("PNACL_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}

	return &HarnessResult{
		Output:      out.String(),
		OutputLines: out.Lines(),
		LogOutput:   logs.String(),
		LogLines:    logs.Lines(),
		Err:         runErr,
		Recorder:    rec,
		Dir:         dir,
	}
}
