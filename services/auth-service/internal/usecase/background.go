package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Background runs work that must not hold up the response of the request that started it.
type Background interface {
	Go(fn func())
}

// BackgroundTasks is the process-wide Background. Wait must only be called once
// no request can start new tasks, i.e. after the HTTP server has shut down.
type BackgroundTasks struct {
	group errgroup.Group
}

func NewBackgroundTasks() *BackgroundTasks {
	return &BackgroundTasks{}
}

func (b *BackgroundTasks) Go(fn func()) {
	b.group.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until every started task has returned or ctx is done.
func (b *BackgroundTasks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = b.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
