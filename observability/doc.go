// Package observability provides OpenTelemetry tracing and metrics setup,
// plus the instruments recorded by fan-out executors.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("pushd"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanPushDispatch)
//	defer observability.EndSpan(span, err)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("pushd"))
//	defer mp.Shutdown(ctx)
//
// Fan-out executors record fanout.active, fanout.operations (by status) and
// fanout.duration through Fanout(), which binds to the global meter provider.
package observability
