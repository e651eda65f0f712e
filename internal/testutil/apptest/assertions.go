package apptest

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertToolRan checks that the run invoked tool at least once.
func AssertToolRan(t *testing.T, result *HarnessResult, tool string) {
	t.Helper()
	require.True(t,
		slices.Contains(result.Recorder.Tools(), tool),
		"expected %s to run; ran %v", tool, result.Recorder.Tools(),
	)
}

// AssertStageLogged checks the debug log for a stage, so tests do not
// depend on the exact log line.
func AssertStageLogged(t *testing.T, result *HarnessResult, stage string) {
	t.Helper()
	require.True(t,
		strings.Contains(result.LogOutput, "stage="+stage),
		"expected log output for stage %q was not found in logs", stage,
	)
}
