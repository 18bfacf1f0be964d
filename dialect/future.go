package dialect

import "sync"

// Future is the deferred result of a runner call.
type Future[T any] struct {
	done chan struct{}
	v    T
	err  error
}

var closed = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Done returns a resolved future.
func Done[T any](v T, err error) *Future[T] {
	return &Future[T]{done: closed, v: v, err: err}
}

// Go runs fn in a new goroutine and returns a future resolved with its
// result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f, resolve := Pending[T]()
	go func() { resolve(fn()) }()
	return f
}

// Pending returns an unresolved future and the function resolving it.
// Only the first call to resolve has an effect.
func Pending[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	var once sync.Once
	return f, func(v T, err error) {
		once.Do(func() {
			f.v, f.err = v, err
			close(f.done)
		})
	}
}

// Ready reports if the future is resolved.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future is resolved and returns its result.
func (f *Future[T]) Wait() (T, error) {
	<-f.done
	return f.v, f.err
}

// Observe returns a future resolved with fn applied to the result of f.
// A ready future yields a ready future, so synchronous chains stay
// synchronous.
func Observe[T, U any](f *Future[T], fn func(T, error) (U, error)) *Future[U] {
	if f.Ready() {
		return Done(fn(f.v, f.err))
	}
	return Go(func() (U, error) {
		return fn(f.Wait())
	})
}
