package simulation

import "context"

type Result[T any] struct {
	Value T
	Err   error
}

// Future is resolved at most once. Later resolutions are dropped.
type Future[T any] chan Result[T]

func NewFuture[T any]() Future[T] {
	return make(Future[T], 1)
}

func (f Future[T]) Resolve(value T) {
	f.complete(Result[T]{Value: value})
}

func (f Future[T]) Reject(err error) {
	f.complete(Result[T]{Err: err})
}

// Await blocks until f completes or ctx is done. A deadline on ctx is reported as ErrTimeout.
func (f Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case r := <-f:
		f.complete(r)
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, contextError(ctx)
	}
}

// AwaitAll waits for futures in order. On the first failure it returns the
// values collected so far together with the error.
func AwaitAll[T any](ctx context.Context, futures []Future[T]) ([]T, error) {
	values := make([]T, 0, len(futures))
	for _, f := range futures {
		v, err := f.Await(ctx)
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (f Future[T]) complete(r Result[T]) {
	select {
	case f <- r:
	default:
	}
}
