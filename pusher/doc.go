// Package pusher sends push notifications for timeline events to the push
// gateways registered by users' devices.
//
// A Service evaluates each user's push rules, builds the gateway payload and
// posts it through a Gateway. Dispatch fans a single event out to many
// targets with bounded concurrency and reports per-target failures as data:
//
//	svc, err := pusher.NewService(cfg.Pusher, pusher.Deps{Rules: rules, Counts: counts})
//	failures, err := svc.Dispatch(ctx, ev, targets)
//
// Pusher URLs are checked by a Guard before any request is made: only http
// and https are accepted and literal addresses inside denied ranges are
// refused.
package pusher
