package toolchain

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pnacldriver/internal/drivererr"
)

func TestSplitCommandLine(t *testing.T) {
	tool, args, err := SplitCommandLine("  llc  -O2\tin.bc -o out.o ")
	require.NoError(t, err)
	assert.Equal(t, "llc", tool)
	assert.Equal(t, []string{"-O2", "in.bc", "-o", "out.o"}, args)

	_, _, err = SplitCommandLine("   ")
	require.ErrorIs(t, err, drivererr.ErrTool)

	t.Run("quoted words", func(t *testing.T) {
		tool, args, err := SplitCommandLine(`'/opt/my sdk/llc' -o "out dir/a.o" in\ put.bc`)
		require.NoError(t, err)
		assert.Equal(t, "/opt/my sdk/llc", tool)
		assert.Equal(t, []string{"-o", "out dir/a.o", "in put.bc"}, args)
	})

	t.Run("unterminated quote", func(t *testing.T) {
		_, _, err := SplitCommandLine(`llc 'in.bc`)
		require.ErrorIs(t, err, drivererr.ErrTool)
	})

	t.Run("format round trip", func(t *testing.T) {
		args := []string{"-o", "out dir/a.o", `-DX="1"`, "$HOME"}
		tool, got, err := SplitCommandLine(FormatCommand("llc", args))
		require.NoError(t, err)
		assert.Equal(t, "llc", tool)
		assert.Equal(t, args, got)
	})
}

func TestExecRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		var out bytes.Buffer
		r := &ExecRunner{Stdout: &out}
		require.NoError(t, r.RunTemplate(ctx, "sh -c true"))
	})

	t.Run("nonzero exit", func(t *testing.T) {
		r := &ExecRunner{}
		err := r.RunTool(ctx, "sh", []string{"-c", "exit 3"})
		require.Error(t, err)

		var execErr *ExecError
		require.True(t, errors.As(err, &execErr))
		assert.Equal(t, 3, execErr.ExitCode)
		assert.Equal(t, "sh", execErr.Tool)
		assert.ErrorIs(t, err, drivererr.ErrTool)
		assert.ErrorContains(t, err, "exited with status 3")
	})

	t.Run("missing binary", func(t *testing.T) {
		r := &ExecRunner{}
		err := r.RunTool(ctx, "/nonexistent/pnacl-tool", nil)
		var execErr *ExecError
		require.True(t, errors.As(err, &execErr))
		assert.Equal(t, -1, execErr.ExitCode)
	})
}

func TestDryRunner(t *testing.T) {
	var out bytes.Buffer
	d := NewDryRunner(&out)
	ctx := context.Background()

	require.NoError(t, d.RunTool(ctx, "ld", []string{"-o", "a.out", "x.o"}))
	require.NoError(t, d.RunTemplate(ctx, "llc  in.bc"))
	require.NoError(t, d.RunTool(ctx, "ld", []string{"-o", "my app.nexe"}))
	assert.Equal(t, "ld -o a.out x.o\nllc in.bc\nld -o 'my app.nexe'\n", out.String())
}
