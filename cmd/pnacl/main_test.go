package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(context.Background(), out, errOut, []string{"pnacl-ld", "-h"})

	require.Equal(t, 0, code)
	require.Contains(t, out.String(), "Usage: pnacl-ld", "Expected help text to be printed to the output buffer")
	require.Empty(t, errOut.String())
}

func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(context.Background(), out, errOut, []string{"pnacl", "ld", "--dry-run", "-r", "a.bc", "-o", "a.o.bc"})

	require.Equal(t, 0, code, errOut.String())
	require.Equal(t, "le32-nacl-ld.gold --oformat=elf32-pnacl -r a.bc -o a.o.bc\n", out.String())
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(context.Background(), out, errOut, []string{"pnacl-translate", "--this-is-not-a-valid-flag"})

	require.Equal(t, 1, code)
	require.Equal(t, "pnacl-translate: unrecognized option: --this-is-not-a-valid-flag\n", errOut.String())
}
