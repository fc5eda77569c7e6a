// Package resilience provides retry with exponential backoff and circuit
// breaking for calls to remote services.
//
//	breakers := resilience.NewCircuitBreakers(resilience.DefaultCircuitBreakerConfig(""))
//	err := resilience.RetryFunc(ctx, resilience.DefaultRetryConfig(), func(ctx context.Context, attempt int) error {
//	    return breakers.Get(host).Execute(func() error { return send(ctx) })
//	})
package resilience
