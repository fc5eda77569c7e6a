package stream

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

// gauge tracks how many handlers run at once.
type gauge struct {
	current atomic.Int64
	peak    atomic.Int64
}

func (g *gauge) enter() {
	n := g.current.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (g *gauge) exit() { g.current.Add(-1) }

func TestExecute_WidthBound(t *testing.T) {
	for _, width := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("width=%d", width), func(t *testing.T) {
			var g gauge
			items := make([]int, 40)
			for i := range items {
				items[i] = i
			}

			p := Execute(FromSlice(items), width, func(_ context.Context, v int) (int, error) {
				g.enter()
				defer g.exit()
				time.Sleep(time.Millisecond)
				return v * v, nil
			})
			got, err := Collect(context.Background(), p)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(items) {
				t.Fatalf("got %d outcomes, want %d", len(got), len(items))
			}
			if peak := g.peak.Load(); peak < 1 || peak > int64(width) {
				t.Errorf("peak concurrency = %d, want 1..%d", peak, width)
			}
		})
	}
}

func TestExecute_UnconsumedOutcomesHoldSlots(t *testing.T) {
	var calls atomic.Int64
	p := Execute(FromSlice([]int{1, 2, 3, 4, 5, 6, 7, 8}), 2, func(_ context.Context, v int) (int, error) {
		calls.Add(1)
		return v, nil
	})

	iter := p.Iter(context.Background())
	if _, ok, err := iter.Next(context.Background()); !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n > 2 {
		t.Errorf("handler called %d times while consumer paused, want <= 2", n)
	}
	if err := iter.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExecute_CloseStopsPulling(t *testing.T) {
	src, pulled := counter()
	p := Execute(src, 2, func(_ context.Context, v int) (int, error) { return v, nil })

	iter := p.Iter(context.Background())
	if _, ok, err := iter.Next(context.Background()); !ok || err != nil {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if err := iter.Close(); err != nil {
		t.Fatal(err)
	}
	after := pulled.Load()
	time.Sleep(20 * time.Millisecond)
	if pulled.Load() != after {
		t.Errorf("source pulled after Close: %d -> %d", after, pulled.Load())
	}
	if after > 3 {
		t.Errorf("pulled %d items for one outcome at width 2", after)
	}
}

func TestExecute_ClosesSource(t *testing.T) {
	src := &trackingIter[int]{items: []int{1, 2, 3}}
	iter := Execute(From[int](src), 1, func(_ context.Context, v int) (int, error) { return v, nil }).
		Iter(context.Background())
	if _, _, err := iter.Next(context.Background()); err != nil {
		t.Fatal(err)
	}
	iter.Close()
	iter.Close()
	if !src.closed.Load() {
		t.Error("expected source to be closed")
	}
}

func TestExecute_HandlerFaultCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	var started, exited atomic.Int64

	p := Execute(FromSlice([]int{0, 1, 2, 3, 4, 5}), 4, func(ctx context.Context, v int) (int, error) {
		started.Add(1)
		defer exited.Add(1)
		if v == 0 {
			return 0, boom
		}
		<-ctx.Done()
		return 0, ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Collect(ctx, p)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if started.Load() != exited.Load() {
		t.Errorf("fault reported with operations still running: started=%d exited=%d",
			started.Load(), exited.Load())
	}
}

func TestExecute_PanicBecomesFault(t *testing.T) {
	p := Execute(FromSlice([]int{1, 2, 3}), 2, func(_ context.Context, v int) (int, error) {
		if v == 2 {
			panic("kaboom")
		}
		return v, nil
	})

	_, err := Collect(context.Background(), p)
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if pe.Value != "kaboom" {
		t.Errorf("panic value = %v, want kaboom", pe.Value)
	}
	if pe.Stack == "" {
		t.Error("expected a captured stack")
	}
}

func TestExecute_UpstreamError(t *testing.T) {
	bad := errors.New("upstream broke")
	n := 0
	src := Generate(func(context.Context) (int, bool, error) {
		n++
		if n > 2 {
			return 0, false, bad
		}
		return n, true, nil
	})

	_, err := Collect(context.Background(), Execute(src, 2, func(_ context.Context, v int) (int, error) {
		return v, nil
	}))
	if !errors.Is(err, bad) {
		t.Errorf("expected upstream error, got %v", err)
	}
}

func TestExecute_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 1)

	p := Execute(FromSlice([]int{1, 2}), 2, func(ctx context.Context, v int) (int, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return 0, ctx.Err()
	})

	go func() {
		<-started
		cancel()
	}()
	_, err := Collect(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecute_NonPositiveWidthUsesAutomatic(t *testing.T) {
	prev := SetWidth(3)
	defer SetWidth(prev)

	var g gauge
	items := make([]int, 30)
	p := Execute(FromSlice(items), 0, func(_ context.Context, v int) (int, error) {
		g.enter()
		defer g.exit()
		time.Sleep(time.Millisecond)
		return v, nil
	})
	if _, err := Collect(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	if peak := g.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestExecute_CompletionOrder(t *testing.T) {
	delays := map[int]time.Duration{1: 30 * time.Millisecond, 2: 0}
	p := Execute(FromSlice([]int{1, 2}), 2, func(_ context.Context, v int) (int, error) {
		time.Sleep(delays[v])
		return v, nil
	})
	got, err := Collect(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []int{2, 1}) {
		t.Errorf("got %v, want completion order [2 1]", got)
	}
}

func TestExecute_DeadlineNeverLooksLikeExhaustion(t *testing.T) {
	items := make([]bool, 300)
	for i := range items {
		items[i] = true
	}
	items[len(items)-1] = false
	ignoreCtx := func(_ context.Context, v bool) (bool, error) { return v, nil }

	t.Run("ready all", func(t *testing.T) {
		for run := range 50 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Millisecond)
			all, err := ReadyAll(ctx, BroadnThen(FromSlice(items), 1, ignoreCtx), func(v bool) bool {
				time.Sleep(50 * time.Microsecond)
				return v
			})
			cancel()
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("run %d: ReadyAll() = %v, %v, want deadline exceeded", run, all, err)
			}
		}
	})

	t.Run("collect", func(t *testing.T) {
		for run := range 50 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Millisecond)
			got, err := Collect(ctx, ReadyMap(BroadnThen(FromSlice(items), 1, ignoreCtx), func(v bool) bool {
				time.Sleep(50 * time.Microsecond)
				return v
			}))
			cancel()
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("run %d: Collect() returned %d of %d values with err %v", run, len(got), len(items), err)
			}
		}
	})
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for run := range 20 {
		got, err := Collect(ctx, Execute(FromSlice(numbers(10)), 2, func(_ context.Context, v int) (int, error) {
			return v, nil
		}))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run %d: Collect() = %v, %v, want context.Canceled", run, got, err)
		}
	}
}
