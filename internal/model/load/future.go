package load

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Future is the result of an asynchronous resource load.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that already holds value.
func Resolved[T any](value T) *Future[T] {
	f := newFuture[T]()
	f.value = value
	close(f.done)
	return f
}

// Failed returns a future that already holds err.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	f.err = err
	close(f.done)
	return f
}

// Go runs fn on a new goroutine.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		defer close(f.done)
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Spawn runs fn in g. The first failing future cancels the group context.
func Spawn[T any](ctx context.Context, g *errgroup.Group, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	g.Go(func() error {
		defer close(f.done)
		f.value, f.err = fn(ctx)
		return f.err
	})
	return f
}

// Await blocks until the value is available or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done reports whether the future has completed.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
