package service

import (
	"context"
	"fmt"
)

// Task is a handle on an operation running on its own goroutine. The result
// is delivered once, through Wait, Done or a Then callback.
type Task[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

// Go starts fn on a new goroutine. A panic inside fn is recovered and
// reported as the task's error, so a faulty store never takes the caller down.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(t.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("operation panicked: %v", r)
			}
		}()
		t.val, t.err = fn(ctx)
	}()
	return t
}

// Done is closed when the operation has finished.
func (t *Task[T]) Done() <-chan struct{} { return t.done }

// Cancel asks the operation to stop. Writes that were not attempted are
// reported as failures in the result.
func (t *Task[T]) Cancel() { t.cancel() }

// Wait blocks until the operation finishes or ctx is done. Giving up on the
// wait does not cancel the operation.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then calls fn with the result on a separate goroutine once the operation
// finishes. It makes no assumption about which goroutine renders the result.
func (t *Task[T]) Then(fn func(T, error)) {
	go func() {
		<-t.done
		fn(t.val, t.err)
	}()
}
