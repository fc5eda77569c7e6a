package stream

import "context"

// The Broadn* combinators take an explicit width n; n <= 0 selects
// AutomaticWidth. The Broad* forms always use AutomaticWidth. Results are
// unordered: they follow completion order, not upstream order.

// BroadnAll reports whether f returns true for every item. It returns false
// as soon as one call resolves to false and cancels the rest.
func BroadnAll[T any](ctx context.Context, p *Pipeline[T], n int, f Handler[T, bool]) (bool, error) {
	return ReadyAll(ctx, Execute(p, n, f), identity)
}

// BroadAll is BroadnAll with the automatic width.
func BroadAll[T any](ctx context.Context, p *Pipeline[T], f Handler[T, bool]) (bool, error) {
	return BroadnAll(ctx, p, AutomaticWidth(), f)
}

// BroadnAny reports whether f returns true for some item. It returns true as
// soon as one call resolves to true and cancels the rest.
func BroadnAny[T any](ctx context.Context, p *Pipeline[T], n int, f Handler[T, bool]) (bool, error) {
	return ReadyAny(ctx, Execute(p, n, f), identity)
}

// BroadAny is BroadnAny with the automatic width.
func BroadAny[T any](ctx context.Context, p *Pipeline[T], f Handler[T, bool]) (bool, error) {
	return BroadnAny(ctx, p, AutomaticWidth(), f)
}

// BroadnFindMap returns the first value f reports as found, in completion
// order, and cancels the rest. The second result is false if no call found
// anything.
func BroadnFindMap[T, U any](ctx context.Context, p *Pipeline[T], n int, f func(context.Context, T) (U, bool, error)) (U, bool, error) {
	return ReadyFindMap(ctx, Execute(p, n, optional(f)), unwrapOptional[U])
}

// BroadFindMap is BroadnFindMap with the automatic width.
func BroadFindMap[T, U any](ctx context.Context, p *Pipeline[T], f func(context.Context, T) (U, bool, error)) (U, bool, error) {
	return BroadnFindMap(ctx, p, AutomaticWidth(), f)
}

// BroadnFilterMap re-streams every value f reports as found. It always
// consumes the whole input.
func BroadnFilterMap[T, U any](p *Pipeline[T], n int, f func(context.Context, T) (U, bool, error)) *Pipeline[U] {
	return ReadyFilterMap(Execute(p, n, optional(f)), unwrapOptional[U])
}

// BroadFilterMap is BroadnFilterMap with the automatic width.
func BroadFilterMap[T, U any](p *Pipeline[T], f func(context.Context, T) (U, bool, error)) *Pipeline[U] {
	return BroadnFilterMap(p, AutomaticWidth(), f)
}

// BroadnFlatMap drains up to n of the iterators returned by f at once and
// interleaves their values as they become ready. Each sub-iterator is closed
// when it is exhausted or the stream is abandoned. A nil iterator returned
// without an error contributes no values.
func BroadnFlatMap[T, U any](p *Pipeline[T], n int, f func(context.Context, T) (Iterator[U], error)) *Pipeline[U] {
	return fanout(p, n, false, func(ctx context.Context, item T, emit func(U) error) (err error) {
		sub, err := f(ctx, item)
		if err != nil || sub == nil {
			return err
		}
		defer func() {
			if cerr := sub.Close(); err == nil {
				err = cerr
			}
		}()
		for {
			val, ok, err := sub.Next(ctx)
			if err != nil || !ok {
				return err
			}
			if err := emit(val); err != nil {
				return err
			}
		}
	})
}

// BroadFlatMap is BroadnFlatMap with the automatic width.
func BroadFlatMap[T, U any](p *Pipeline[T], f func(context.Context, T) (Iterator[U], error)) *Pipeline[U] {
	return BroadnFlatMap(p, AutomaticWidth(), f)
}

// BroadnThen is an unordered concurrent map: every outcome of f is yielded.
func BroadnThen[T, U any](p *Pipeline[T], n int, f Handler[T, U]) *Pipeline[U] {
	return Execute(p, n, f)
}

// BroadThen is BroadnThen with the automatic width.
func BroadThen[T, U any](p *Pipeline[T], f Handler[T, U]) *Pipeline[U] {
	return BroadnThen(p, AutomaticWidth(), f)
}

func identity(v bool) bool { return v }

// maybe is the outcome of a handler that may find nothing.
type maybe[U any] struct {
	val U
	ok  bool
}

func optional[T, U any](f func(context.Context, T) (U, bool, error)) Handler[T, maybe[U]] {
	return func(ctx context.Context, item T) (maybe[U], error) {
		val, ok, err := f(ctx, item)
		return maybe[U]{val: val, ok: ok}, err
	}
}

func unwrapOptional[U any](m maybe[U]) (U, bool) {
	return m.val, m.ok
}
