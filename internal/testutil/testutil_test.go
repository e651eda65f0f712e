package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeBufferLines(t *testing.T) {
	var b SafeBuffer
	assert.Nil(t, b.Lines())

	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Fprintf(&b, "worker %d\n", i)
		}()
	}
	wg.Wait()
	assert.ElementsMatch(t, []string{"worker 0", "worker 1", "worker 2", "worker 3"}, b.Lines())

	fmt.Fprint(&b, "partial")
	assert.Len(t, b.Lines(), 4)
}

func TestRecorderQuotesCommandLines(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()
	require.NoError(t, rec.RunTemplate(ctx, `pnacl-llc '/src/my file.pexe' -o out.o`))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"/src/my file.pexe", "-o", "out.o"}, calls[0].Args)
	assert.Equal(t, []string{`pnacl-llc '/src/my file.pexe' -o out.o`}, rec.CommandLines())
}
