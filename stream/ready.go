package stream

import "context"

// Ready reducers consume values in the order they become available and apply
// synchronous functions to them. The terminal ones stop pulling as soon as
// their result is decided and close the source, which cancels any executor
// feeding it.

// ReadyAll reports whether pred holds for every value. It returns false at
// the first value for which pred is false. An empty pipeline yields true.
func ReadyAll[T any](ctx context.Context, p *Pipeline[T], pred func(T) bool) (bool, error) {
	iter := p.create(ctx)
	defer iter.Close()
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return true, nil
		}
		if !pred(val) {
			return false, nil
		}
	}
}

// ReadyAny reports whether pred holds for some value. It returns true at the
// first value for which pred is true. An empty pipeline yields false.
func ReadyAny[T any](ctx context.Context, p *Pipeline[T], pred func(T) bool) (bool, error) {
	iter := p.create(ctx)
	defer iter.Close()
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil || !ok {
			return false, err
		}
		if pred(val) {
			return true, nil
		}
	}
}

// ReadyFindMap returns the first fn(v) that reports ok. The second result is
// false if no value matched.
func ReadyFindMap[T, U any](ctx context.Context, p *Pipeline[T], fn func(T) (U, bool)) (U, bool, error) {
	iter := p.create(ctx)
	defer iter.Close()
	var zero U
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		if out, found := fn(val); found {
			return out, true, nil
		}
	}
}

// ReadyFold accumulates every value into a single result.
func ReadyFold[T, R any](ctx context.Context, p *Pipeline[T], init R, fn func(R, T) R) (R, error) {
	iter := p.create(ctx)
	defer iter.Close()
	acc := init
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return acc, err
		}
		if !ok {
			return acc, nil
		}
		acc = fn(acc, val)
	}
}

// ReadyForEach calls fn for every value.
func ReadyForEach[T any](ctx context.Context, p *Pipeline[T], fn func(T)) error {
	iter := p.create(ctx)
	defer iter.Close()
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil || !ok {
			return err
		}
		fn(val)
	}
}

// ReadyFilterMap re-streams fn(v) for every value where fn reports ok.
func ReadyFilterMap[T, U any](p *Pipeline[T], fn func(T) (U, bool)) *Pipeline[U] {
	return &Pipeline[U]{
		create: func(ctx context.Context) Iterator[U] {
			return &filterMapIter[T, U]{source: p.create(ctx), fn: fn}
		},
	}
}

// ReadyFilter keeps only values that satisfy pred.
func ReadyFilter[T any](p *Pipeline[T], pred func(T) bool) *Pipeline[T] {
	return ReadyFilterMap(p, func(v T) (T, bool) { return v, pred(v) })
}

// ReadyMap transforms each value using fn.
func ReadyMap[T, U any](p *Pipeline[T], fn func(T) U) *Pipeline[U] {
	return ReadyFilterMap(p, func(v T) (U, bool) { return fn(v), true })
}

// ReadyTakeWhile yields values while pred holds. The first value that fails
// pred ends the stream and closes the source.
func ReadyTakeWhile[T any](p *Pipeline[T], pred func(T) bool) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &takeWhileIter[T]{source: p.create(ctx), pred: pred}
		},
	}
}

// --- Iterator implementations ---

type filterMapIter[T, U any] struct {
	source Iterator[T]
	fn     func(T) (U, bool)
}

func (it *filterMapIter[T, U]) Next(ctx context.Context) (U, bool, error) {
	var zero U
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		if out, keep := it.fn(val); keep {
			return out, true, nil
		}
	}
}

func (it *filterMapIter[T, U]) Close() error { return it.source.Close() }

type takeWhileIter[T any] struct {
	source Iterator[T]
	pred   func(T) bool
	done   bool
}

func (it *takeWhileIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if it.done {
		return zero, false, nil
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	if !it.pred(val) {
		it.done = true
		return zero, false, it.source.Close()
	}
	return val, true, nil
}

func (it *takeWhileIter[T]) Close() error { return it.source.Close() }
