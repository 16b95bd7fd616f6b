package gated

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Join runs tasks concurrently and returns once all succeed, the first one
// fails, or ctx is done. A failure does not cancel the other tasks; they run
// to completion in the background and their errors are dropped.
func Join(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	var g errgroup.Group
	failed := make(chan error, 1)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := task(ctx); err != nil {
				select {
				case failed <- err:
				default:
				}
				return err
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-failed:
		return err
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
