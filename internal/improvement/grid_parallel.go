package improvement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// runParallel evaluates candidates on up to g.workers goroutines. Results are
// collected by index and folded into state in enumeration order afterwards, so
// the outcome matches a sequential run.
func (g *GridSearch) runParallel(ctx context.Context, eval Evaluator, state *SearchState) error {
	n := g.Size()
	results := make([]Evaluation, n)
	done := make([]bool, n)
	var estimate sync.Once

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.workers)

	for i := 0; i < n; i++ {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			start := time.Now()
			e, err := g.evaluate(groupCtx, eval, i)
			if err != nil {
				return fmt.Errorf("candidate %d: %w", i, err)
			}
			estimate.Do(func() { g.logEstimate(time.Since(start), n) })
			results[i] = e
			done[i] = true
			return nil
		})
	}

	err := group.Wait()
	for i := range results {
		if done[i] {
			g.observe(state, i, results[i])
		}
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("grid search interrupted: %w", err)
	}
	return nil
}
