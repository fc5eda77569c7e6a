package stream

import (
	"fmt"
	"runtime"
)

// PanicError wraps a value recovered from a panicking handler together with
// the goroutine stack at the point of the panic. It is delivered as the
// fault of the combinator call, like any other handler error.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any
	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

// Error returns the panic value followed by the captured stack.
func (e *PanicError) Error() string {
	return fmt.Sprintf("stream: handler panicked: %v\n\n%s", e.Value, e.Stack)
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}

// protect calls fn and converts a panic into a *PanicError.
func protect(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = newPanicError(v)
		}
	}()
	return fn()
}
