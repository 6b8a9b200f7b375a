package pool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Func is one unit of work. i is the position of the unit in the batch.
type Func func(ctx context.Context, i int) error

// Run calls fn once for every index in [0, n) with at most limit calls in
// flight. Indexes are handed out in order, but completions may arrive in any
// order, so callers must store results by index.
//
// A limit below 1 or above n is clamped. Run returns the first error produced
// by fn, or the parent context's error if it was cancelled before every unit
// was admitted.
func Run(ctx context.Context, limit, n int, fn Func, logger *slog.Logger) error {
	if n <= 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}
	if limit > n {
		limit = n
	}
	if logger == nil {
		logger = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	for w := 0; w < limit; w++ {
		g.Go(func() error {
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := safeCall(gctx, fn, i, logger); err != nil {
					return err
				}
			}
			return nil
		})
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-gctx.Done():
			break feed
		}
	}
	close(jobs)

	if err := g.Wait(); err != nil {
		return err
	}
	// workers can all finish cleanly while the feeder stopped early
	return ctx.Err()
}

// safeCall runs fn with panic recovery.
// A panic is logged with its stack and a correlation id, and the returned
// error carries the same id so the two can be matched up.
func safeCall(ctx context.Context, fn Func, i int, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			logger.Error("worker panic",
				"correlation_id", correlationID,
				"index", i,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("worker panic (correlation_id: %s)", correlationID)
		}
	}()
	return fn(ctx, i)
}
