package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pnacldriver/internal/testutil"
)

type result struct {
	out, log string
	err      *ExitError
	rec      *testutil.Recorder
}

func execute(t *testing.T, env map[string]string, argv ...string) result {
	t.Helper()
	var out, log bytes.Buffer
	rec := &testutil.Recorder{}
	err := Execute(context.Background(), argv, Options{
		Out:     &out,
		Err:     &log,
		Getenv:  func(k string) string { return env[k] },
		Version: "1.2.3",
		Runner:  rec,
	})

	res := result{out: out.String(), log: log.String(), rec: rec}
	if err != nil {
		require.True(t, errors.As(err, &res.err), "Execute must return *ExitError, got %T", err)
	}
	return res
}

func TestProgramNameSelectsDriver(t *testing.T) {
	res := execute(t, nil, "/usr/bin/pnacl-ld", "-r", "a.bc", "-o", "x.bc")
	require.Nil(t, res.err)
	assert.Equal(t, []string{"le32-nacl-ld.gold --oformat=elf32-pnacl -r a.bc -o x.bc"}, res.rec.CommandLines())

	res = execute(t, map[string]string{EnvJobs: "1"}, "pnacl", "translate", "-arch", "x86-64", "in.pexe", "-o", "in.nexe")
	require.Nil(t, res.err)
	assert.Equal(t, []string{"pnacl-llc", "ld.gold"}, res.rec.Tools())
}

func TestDriverHelp(t *testing.T) {
	res := execute(t, nil, "pnacl-translate", "--help")
	require.Nil(t, res.err)
	assert.Contains(t, res.out, "Usage: pnacl-translate")
	assert.Empty(t, res.rec.Calls())
}

func TestExitErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		argv []string
		msg  string
	}{
		{name: "no input", argv: []string{"pnacl", "ld"}, msg: "pnacl-ld: no input files"},
		{name: "symlinked driver", argv: []string{"pnacl-ld", "-bogus"}, msg: "pnacl-ld: unrecognized option: -bogus"},
		{name: "fatal rule", argv: []string{"pnacl", "translate", "-shared"}, msg: "pnacl-translate: pnacl-translate cannot produce shared objects"},
		{name: "unknown command", argv: []string{"pnacl", "cc"}, msg: "pnacl: unknown command"},
		{name: "bad jobs", env: map[string]string{EnvJobs: "many"}, argv: []string{"pnacl", "ld", "a.bc"}, msg: "invalid PNACL_DRIVER_JOBS"},
		{name: "unknown driver", argv: []string{"pnacl", "vars", "--driver", "as"}, msg: `pnacl vars: unknown driver "as"`},
		{name: "undefined var", argv: []string{"pnacl", "vars", "NOPE"}, msg: "NOPE"},
		{name: "bad set", argv: []string{"pnacl", "expand", "--set", "ARCH", "x"}, msg: "--set wants NAME=VALUE"},
		{name: "unbalanced set quote", argv: []string{"pnacl", "expand", "--set", "LIBS='-lc", "x"}, msg: "--set LIBS"},
		{name: "missing temp dir", env: map[string]string{EnvTempDir: "/nonexistent/pnacl-tmp"}, argv: []string{"pnacl", "ld", "a.bc"}, msg: "temp dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := execute(t, tc.env, tc.argv...)
			require.NotNil(t, res.err)
			assert.Equal(t, 1, res.err.Code)
			assert.Contains(t, res.err.Message, tc.msg)
		})
	}
}

func TestExpand(t *testing.T) {
	res := execute(t, nil, "pnacl", "expand", "--driver", "translate", "--set", "ARCH=ARM",
		"triple ${TRIPLE_%ARCH%}", "${STATIC ? -static}")
	require.Nil(t, res.err)
	assert.Equal(t, "triple armv7a-none-nacl-gnueabihf\n-static\n", res.out)
}

func TestExpandSetSplitsShellWords(t *testing.T) {
	res := execute(t, nil, "pnacl", "expand", "--set", `SEARCH_DIRS='/opt/nacl sdk/lib' /usr/lib`,
		"${@AddPrefix:-L:SEARCH_DIRS}")
	require.Nil(t, res.err)
	assert.Equal(t, "'-L/opt/nacl sdk/lib' -L/usr/lib\n", res.out)
}

func TestTempDirFromEnvironment(t *testing.T) {
	scratch := t.TempDir()
	env := map[string]string{EnvJobs: "1", EnvTempDir: scratch}
	res := execute(t, env, "pnacl", "translate", "-arch", "x86-64", "in.pexe", "-o", "out.nexe")
	require.Nil(t, res.err)

	calls := res.rec.Calls()
	require.Len(t, calls, 2)
	obj := filepath.Join(scratch, "out.0.compile.o")
	assert.Equal(t, obj, calls[0].Args[len(calls[0].Args)-1])
	assert.Contains(t, calls[1].Args, obj)
}

func TestMissingConfigPathWarns(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.yaml")
	res := execute(t, map[string]string{EnvConfig: missing}, "pnacl", "vars", "-d", "translate", "LLC")
	require.Nil(t, res.err)
	assert.Contains(t, res.log, "Driver configuration path does not exist.")
	assert.Contains(t, res.log, missing)
	assert.Contains(t, res.out, `"pnacl-llc"`)
}

func TestVarsReadsConfig(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "translate.yaml")
	require.NoError(t, os.WriteFile(conf, []byte("vars:\n  ARCH: MIPS32\n"), 0o644))

	res := execute(t, map[string]string{EnvConfig: conf}, "pnacl", "vars", "-d", "translate", "ARCH", "LLC")
	require.Nil(t, res.err)
	assert.Contains(t, res.out, "vars {")
	assert.Contains(t, res.out, `"MIPS32"`)
	assert.Contains(t, res.out, `"pnacl-llc"`)
	assert.NotContains(t, res.out, "TRIPLE_ARM")
}

func TestVersion(t *testing.T) {
	res := execute(t, nil, "pnacl", "--version")
	require.Nil(t, res.err)
	assert.Contains(t, res.out, "1.2.3")

	res = execute(t, nil, "pnacl-ld", "--version")
	require.Nil(t, res.err)
	assert.Equal(t, "pnacl-ld version 1.2.3\n", res.out)
}
