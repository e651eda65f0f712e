package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("missing logger discards", func(t *testing.T) {
		logger := FromContext(context.Background())
		require.NotNil(t, logger)
		logger.Info("dropped")
		assert.False(t, Has(context.Background()))
	})

	t.Run("With adds attributes", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
		ctx = With(ctx, "stage", "link")
		assert.True(t, Has(ctx))

		FromContext(ctx).Info("running")
		assert.Contains(t, buf.String(), "stage=link")
	})
}
