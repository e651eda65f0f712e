package app_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pnacldriver/internal/app"
	"github.com/vk/pnacldriver/internal/configstore"
	"github.com/vk/pnacldriver/internal/driver"
	"github.com/vk/pnacldriver/internal/driver/ld"
	"github.com/vk/pnacldriver/internal/driver/translate"
	"github.com/vk/pnacldriver/internal/drivererr"
	"github.com/vk/pnacldriver/internal/testutil"
	"github.com/vk/pnacldriver/internal/testutil/apptest"
	"github.com/vk/pnacldriver/internal/toolchain"
)

func TestNewConfig(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{})
	require.NoError(t, err)
	assert.Positive(t, cfg.Parallelism)
	assert.Equal(t, "dev", cfg.Version)

	_, err = app.NewConfig(app.Config{Parallelism: -1})
	require.Error(t, err)

	dir := t.TempDir()
	cfg, err = app.NewConfig(app.Config{TempDir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.TempDir)

	_, err = app.NewConfig(app.Config{TempDir: filepath.Join(dir, "missing")})
	require.ErrorIs(t, err, fs.ErrNotExist)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = app.NewConfig(app.Config{TempDir: file})
	require.ErrorContains(t, err, "not a directory")
}

func TestHelpAndVersion(t *testing.T) {
	res := apptest.RunDriver(t, ld.New(), apptest.Harness{}, "--help")
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "Usage: pnacl-ld")
	assert.Empty(t, res.Recorder.Calls())

	res = apptest.RunDriver(t, translate.New(), apptest.Harness{}, "--version")
	require.NoError(t, res.Err)
	assert.Equal(t, "pnacl-translate version test\n", res.Output)
}

func TestRunErrors(t *testing.T) {
	cases := []struct {
		name     string
		drv      *driver.Driver
		args     []string
		want     error
		category error
	}{
		{name: "no input", drv: ld.New(), args: []string{"-o", "x"}, want: driver.ErrNoInput, category: drivererr.ErrDispatch},
		{name: "missing arch", drv: translate.New(), args: []string{"in.pexe"}, want: configstore.ErrMissingConfig, category: drivererr.ErrConfig},
		{name: "unknown flag", drv: ld.New(), args: []string{"--frobnicate", "a.bc"}, category: drivererr.ErrDispatch},
		{name: "bad split", drv: translate.New(), args: []string{"-arch", "arm", "-split-module=-3", "in.pexe"}, category: drivererr.ErrConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := apptest.RunDriver(t, tc.drv, apptest.Harness{}, tc.args...)
			require.Error(t, res.Err)
			if tc.want != nil {
				assert.ErrorIs(t, res.Err, tc.want)
			}
			assert.ErrorIs(t, drivererr.Category(res.Err), tc.category)
			assert.Empty(t, res.Recorder.Calls())
		})
	}
}

func TestConfigFilesLayer(t *testing.T) {
	h := apptest.Harness{
		Files: map[string]string{
			"conf/base.hcl": `
vars {
  ARCH      = "X8632"
  LLC_FLAGS = ["-O-ignored"]
}
`,
			"conf/site.yaml": `
vars:
  LLC_FLAGS: []
append:
  LLC_FLAGS: [-fast-isel]
`,
			"override.hcl": `
vars {
  ARCH = "X8664"
}
`,
		},
		ConfigPaths: []string{"conf", "override.hcl"},
		Parallelism: 1,
	}

	res := apptest.RunDriver(t, translate.New(), h, "in.pexe", "-o", "out.nexe")
	require.NoError(t, res.Err)

	lines := res.Recorder.CommandLines()
	require.Len(t, lines, 2)
	assert.Equal(t, "pnacl-llc -mtriple=x86_64-none-nacl-gnu -O2 -fast-isel -filetype=obj in.pexe -o out.0.compile.o", lines[0])
	apptest.AssertToolRan(t, res, "ld.gold")
}

func TestCommandLineOverridesConfig(t *testing.T) {
	h := apptest.Harness{
		Files:       map[string]string{"driver.yaml": "vars:\n  ARCH: ARM\n"},
		ConfigPaths: []string{"driver.yaml"},
		Parallelism: 1,
	}
	res := apptest.RunDriver(t, translate.New(), h, "in.pexe", "--pnacl-driver-set-ARCH=MIPS32")
	require.NoError(t, res.Err)
	assert.True(t, strings.HasPrefix(res.Recorder.CommandLines()[0], "pnacl-llc -mtriple=mipsel-none-nacl-gnu "))
}

func TestInvalidConfigFile(t *testing.T) {
	h := apptest.Harness{
		Files:       map[string]string{"bad.hcl": "vars {\n"},
		ConfigPaths: []string{"bad.hcl"},
	}
	res := apptest.RunDriver(t, ld.New(), h, "a.bc")
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, drivererr.ErrConfig)
	assert.ErrorContains(t, res.Err, "failed to load configuration")
}

func TestDryRun(t *testing.T) {
	res := apptest.RunDriver(t, ld.New(), apptest.Harness{}, "--dry-run", "-r", "a.bc", "-o", "part.bc")
	require.NoError(t, res.Err)
	assert.Empty(t, res.Recorder.Calls())
	assert.Equal(t, []string{"le32-nacl-ld.gold --oformat=elf32-pnacl -r a.bc -o part.bc"}, res.OutputLines)

	res = apptest.RunDriver(t, ld.New(), apptest.Harness{}, "--dry-run", "-r", "my lib.bc", "-o", "part.bc")
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"le32-nacl-ld.gold --oformat=elf32-pnacl -r 'my lib.bc' -o part.bc"}, res.OutputLines)
}

func TestVerboseLogging(t *testing.T) {
	res := apptest.RunDriver(t, ld.New(), apptest.Harness{}, "--pnacl-driver-verbose", "-nostdlib", "a.bc", "-o", "p.pexe")
	require.NoError(t, res.Err)

	apptest.AssertStageLogged(t, res, "link")
	apptest.AssertStageLogged(t, res, "finalize")
	assert.Contains(t, res.LogOutput, "run_id=")
	assert.Contains(t, res.LogOutput, "driver=pnacl-ld")

	res = apptest.RunDriver(t, ld.New(), apptest.Harness{}, "--pnacl-driver-log-format=json", "--pnacl-driver-verbose", "a.bc")
	require.NoError(t, res.Err)
	assert.Contains(t, res.LogOutput, `"run_id":`)

	res = apptest.RunDriver(t, ld.New(), apptest.Harness{}, "a.bc")
	require.NoError(t, res.Err)
	assert.Empty(t, res.LogOutput, "the default level is warn")
}

func TestInvalidLogSettings(t *testing.T) {
	for _, arg := range []string{"--pnacl-driver-set-LOG_LEVEL=loud", "--pnacl-driver-set-LOG_FORMAT=xml"} {
		t.Run(arg, func(t *testing.T) {
			res := apptest.RunDriver(t, ld.New(), apptest.Harness{}, arg, "a.bc")
			require.ErrorIs(t, res.Err, app.ErrInvalidLogSetting)
			assert.ErrorIs(t, res.Err, drivererr.ErrConfig)
			assert.Empty(t, res.Recorder.Calls())
		})
	}

	res := apptest.RunDriver(t, ld.New(), apptest.Harness{}, "--pnacl-driver-set-LOG_LEVEL=INFO", "a.bc")
	require.NoError(t, res.Err)
	assert.Contains(t, res.LogOutput, "Driver finished.")
}

func TestMissingConfigPathWarns(t *testing.T) {
	h := apptest.Harness{
		Files:       map[string]string{"site.hcl": "vars {\n  ARCH = \"X8632\"\n}\n"},
		ConfigPaths: []string{"nowhere.hcl", "site.hcl"},
		Parallelism: 1,
	}
	res := apptest.RunDriver(t, translate.New(), h, "in.pexe", "-o", "out.nexe")
	require.NoError(t, res.Err)

	require.Len(t, res.LogLines, 1)
	assert.Contains(t, res.LogLines[0], "level=WARN")
	assert.Contains(t, res.LogLines[0], "Driver configuration path does not exist.")
	assert.Contains(t, res.LogLines[0], filepath.Join(res.Dir, "nowhere.hcl"))
	assert.Contains(t, res.Recorder.CommandLines()[0], "-mtriple=i686-none-nacl-gnu")
}

func TestTempDirHoldsIntermediates(t *testing.T) {
	h := apptest.Harness{
		TempDir:     "scratch",
		Parallelism: 1,
	}
	res := apptest.RunDriver(t, translate.New(), h, "-arch", "x86-32", "in.pexe", "-o", "out.nexe")
	require.NoError(t, res.Err)

	obj := filepath.Join(res.Dir, "scratch", "out.0.compile.o")
	calls := res.Recorder.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, obj, calls[0].Args[len(calls[0].Args)-1])
	assert.Contains(t, calls[1].Args, obj)
}

func TestToolFailure(t *testing.T) {
	rec := &testutil.Recorder{
		Fail: func(cmdline string) int {
			if strings.Contains(cmdline, "-pnacl-abi-simplify-preopt") {
				return 3
			}
			return 0
		},
	}
	res := apptest.RunDriver(t, ld.New(), apptest.Harness{Recorder: rec}, "a.bc", "-o", "p.pexe")
	require.Error(t, res.Err)

	var execErr *toolchain.ExecError
	require.True(t, errors.As(res.Err, &execErr))
	assert.Equal(t, 3, execErr.ExitCode)
	assert.ErrorIs(t, res.Err, drivererr.ErrPipeline)
	assert.ErrorContains(t, res.Err, `stage "opt" failed`)
	assert.Equal(t, []string{"le32-nacl-ld.gold", "pnacl-opt"}, res.Recorder.Tools())
}
