package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vk/pnacldriver/internal/ctxlog"
)

// fanOut runs n workers with at most p.parallelism at once. It returns as
// soon as every worker succeeded or the first one failed; in the latter case
// the rest are cancelled and not waited for.
func (p *Pipeline) fanOut(ctx context.Context, n int, run func(context.Context, int) error) error {
	logger := ctxlog.FromContext(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limit := p.parallelism
	if limit <= 0 || limit > n {
		limit = n
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	failed := make(chan error, 1)
	done := make(chan error, 1)

	go func() {
		for k := range n {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return &FanOutError{Worker: k, Err: err}
				}
				workerLogger := logger.With("worker", k)
				workerLogger.Debug("Worker started.")

				if err := run(gctx, k); err != nil {
					werr := &FanOutError{Worker: k, Err: err}
					select {
					case failed <- werr:
					default:
					}
					workerLogger.Error("Worker failed.", "error", err)
					return werr
				}
				workerLogger.Debug("Worker finished.")
				return nil
			})
		}
		done <- g.Wait()
	}()

	select {
	case err := <-failed:
		return err
	case err := <-done:
		return err
	}
}
