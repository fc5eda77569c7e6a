// Package stream provides bounded-concurrency fan-out over lazy, pull-based
// sequences.
//
// A Pipeline is a single-use sequence: nothing runs until an Iterator is
// created and pulled. Each stage pulls from the previous one on demand, so
// backpressure falls out of the pull model without explicit flow control.
//
// # Fan-out
//
// Execute applies a Handler to every item with at most n handlers in flight
// and yields outcomes in completion order. The Broad* combinators pair it
// with a reducer:
//
//   - BroadAll / BroadnAll: true unless some handler returns false
//   - BroadAny / BroadnAny: true once some handler returns true
//   - BroadFindMap / BroadnFindMap: first value found, in completion order
//   - BroadFilterMap / BroadnFilterMap: every value found, re-streamed
//   - BroadFlatMap / BroadnFlatMap: interleave up to n sub-iterators
//   - BroadThen / BroadnThen: unordered concurrent map
//
// Decisions short-circuit: once the answer is known the source is closed,
// admission stops and operations still in flight are cancelled through
// their context. A handler error is a fault: it cancels the pass and is
// returned as-is. Domain negatives (false, not found) are ordinary values.
//
// Without an explicit width the combinators use AutomaticWidth, a
// process-wide value derived from GOMAXPROCS and adjustable with SetWidth or
// ConfigureWidth.
//
// # Usage
//
//	reachable, err := stream.BroadnAll(ctx, stream.FromSlice(hosts), 8,
//	    func(ctx context.Context, host string) (bool, error) {
//	        return ping(ctx, host), nil
//	    })
//
// # Ready reducers
//
// ReadyAll, ReadyAny, ReadyFindMap, ReadyFold and ReadyForEach are terminal;
// ReadyFilterMap, ReadyFilter, ReadyMap and ReadyTakeWhile re-stream. They
// apply synchronous functions to values in the order they arrive.
package stream
