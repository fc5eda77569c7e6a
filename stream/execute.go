package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kbukum/broadband/logger"
	"github.com/kbukum/broadband/observability"
)

// Handler turns one item into an outcome. A non-nil error is a fault: it
// ends the whole pass and cancels every other operation in flight.
// Handlers must honor ctx for cancellation to take effect.
type Handler[T, U any] func(ctx context.Context, item T) (U, error)

// Execute applies f to every item of p with at most n handlers running at
// once, and yields their outcomes in completion order. If n <= 0 the
// process-wide AutomaticWidth is used.
//
// Up to n items are pulled and started eagerly. After that, one new item is
// admitted each time the consumer takes an outcome, so a consumer that stops
// early never causes more work than it asked for. Closing the iterator stops
// admission immediately and cancels operations still in flight.
//
// The first fault (a handler error, an upstream error, or a handler panic as
// *PanicError) is returned by Next after the remaining operations have been
// cancelled. Later faults are discarded. A pass cut short by cancellation
// of ctx ends with ctx's error, never as a normal exhaustion.
func Execute[T, U any](p *Pipeline[T], n int, f Handler[T, U]) *Pipeline[U] {
	return fanout(p, n, true, func(ctx context.Context, item T, emit func(U) error) error {
		out, err := f(ctx, item)
		if err != nil {
			return err
		}
		return emit(out)
	})
}

// task processes one admitted item and reports zero or more values via emit.
type task[T, U any] func(ctx context.Context, item T, emit func(U) error) error

func fanout[T, U any](p *Pipeline[T], n int, transfer bool, run task[T, U]) *Pipeline[U] {
	return &Pipeline[U]{
		create: func(ctx context.Context) Iterator[U] {
			width := n
			if width <= 0 {
				width = AutomaticWidth()
			}
			return startExecutor(ctx, p.create(ctx), width, transfer, run)
		},
	}
}

// outcome is a value produced by the executor. slot is
// true when the admission slot of the producing operation travels with the
// value and must be released by the consumer.
type outcome[U any] struct {
	val  U
	slot bool
}

type executor[T, U any] struct {
	source   Iterator[T]
	run      task[T, U]
	transfer bool

	sem    *semaphore.Weighted
	group  *errgroup.Group
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	out     chan outcome[U]
	stopped chan struct{}
	// err is the terminal error of the pass. It is written once before out
	// is closed and read only after a receive observes the close.
	err error

	closeOnce sync.Once
	closeErr  error
}

func startExecutor[T, U any](ctx context.Context, source Iterator[T], width int, transfer bool, run task[T, U]) *execIter[T, U] {
	execCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(execCtx)

	x := &executor[T, U]{
		source:   source,
		run:      run,
		transfer: transfer,
		sem:      semaphore.NewWeighted(int64(width)),
		group:    group,
		parent:   ctx,
		ctx:      groupCtx,
		cancel:   cancel,
		out:      make(chan outcome[U], width),
		stopped:  make(chan struct{}),
	}
	go x.dispatch()
	return &execIter[T, U]{x: x}
}

// dispatch admits items until upstream is exhausted or the pass is
// cancelled, then waits for the operations in flight and records the
// terminal error: the first fault, or the caller's context error when the
// pass was cut short by it.
func (x *executor[T, U]) dispatch() {
	defer close(x.out)

	x.admit()
	close(x.stopped)

	err := x.group.Wait()
	if perr := x.parent.Err(); perr != nil && (err == nil || isCancellation(err)) {
		err = perr
	}
	x.err = err
}

func (x *executor[T, U]) admit() {
	for {
		if err := x.sem.Acquire(x.ctx, 1); err != nil {
			return
		}
		item, ok, err := x.source.Next(x.ctx)
		if err != nil || !ok {
			x.sem.Release(1)
			if err != nil && x.ctx.Err() == nil {
				x.group.Go(func() error { return err })
			}
			return
		}
		x.group.Go(func() error { return x.operate(item) })
	}
}

// operate runs one admitted item. The slot acquired for it is released here
// unless it was handed to the consumer along with an outcome.
func (x *executor[T, U]) operate(item T) error {
	owned := true
	defer func() {
		if owned {
			x.sem.Release(1)
		}
	}()

	emit := func(v U) error {
		if err := x.ctx.Err(); err != nil {
			return err
		}
		o := outcome[U]{val: v, slot: x.transfer && owned}
		select {
		case x.out <- o:
			if o.slot {
				owned = false
			}
			return nil
		case <-x.ctx.Done():
			return x.ctx.Err()
		}
	}

	metrics := observability.Fanout()
	metrics.OperationStarted(x.ctx)
	start := time.Now()

	err := protect(func() error { return x.run(x.ctx, item, emit) })

	status := observability.StatusOK
	switch {
	case err == nil:
	case x.ctx.Err() != nil && isCancellation(err):
		status = observability.StatusCancelled
	default:
		status = observability.StatusFault
		logger.WithComponent("stream").Debug("fan-out operation failed", logger.ErrorFields("operate", err))
	}
	metrics.OperationFinished(x.ctx, status, time.Since(start))
	return err
}

func (x *executor[T, U]) close() error {
	x.closeOnce.Do(func() {
		x.cancel()
		<-x.stopped
		x.closeErr = x.source.Close()
	})
	return x.closeErr
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// execIter is the consumer side of an executor. It holds at most one slot:
// the one travelling with the last outcome it returned.
type execIter[T, U any] struct {
	x    *executor[T, U]
	held bool
}

func (it *execIter[T, U]) Next(ctx context.Context) (U, bool, error) {
	var zero U
	if it.held {
		it.held = false
		it.x.sem.Release(1)
	}
	select {
	case o, open := <-it.x.out:
		if !open {
			return zero, false, it.x.err
		}
		it.held = o.slot
		return o.val, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (it *execIter[T, U]) Close() error {
	return it.x.close()
}
