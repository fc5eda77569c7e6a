package pusher

import (
	"context"
	"net"
	"time"

	"github.com/kbukum/broadband/errors"
	"github.com/kbukum/broadband/logger"
	"github.com/kbukum/broadband/observability"
	"github.com/kbukum/broadband/stream"
	"github.com/kbukum/broadband/validation"
)

// RuleEvaluator evaluates a user's push rules against an event.
type RuleEvaluator interface {
	Actions(ctx context.Context, userID string, ev *Event) ([]Action, error)
}

// CountSource reports a user's unread notification count in a room.
type CountSource interface {
	NotificationCount(ctx context.Context, userID, roomID string) (uint64, error)
}

// Deps are the collaborators of a Service. Rules and Counts are required;
// a nil Gateway selects an HTTPGateway built from the configuration.
type Deps struct {
	Rules    RuleEvaluator
	Counts   CountSource
	Profiles ProfileSource
	Rooms    RoomSource
	Gateway  Gateway
	// Resolver is used when Config.ResolveHosts is set. Nil selects
	// net.DefaultResolver.
	Resolver Resolver
}

// Service sends push notices for events to users' pushers.
type Service struct {
	rules   RuleEvaluator
	counts  CountSource
	lookups Lookups
	gateway Gateway
	guard   *Guard
	resolve bool
	width   int
	log     *logger.Logger
}

var knownKinds = []string{string(KindHTTP), string(KindEmail)}

// NewService validates cfg and wires a Service.
func NewService(cfg Config, deps Deps) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Rules == nil || deps.Counts == nil {
		return nil, errors.InvalidParam("deps", "rule evaluator and count source are required")
	}

	var resolver Resolver
	if cfg.ResolveHosts {
		resolver = deps.Resolver
		if resolver == nil {
			resolver = net.DefaultResolver
		}
	}
	guard, err := NewGuard(cfg.DeniedCIDRs, resolver)
	if err != nil {
		return nil, err
	}

	gateway := deps.Gateway
	if gateway == nil {
		gateway = NewHTTPGateway(cfg.Gateway)
	}

	return &Service{
		rules:   deps.Rules,
		counts:  deps.Counts,
		lookups: Lookups{Profiles: deps.Profiles, Rooms: deps.Rooms},
		gateway: gateway,
		guard:   guard,
		resolve: cfg.ResolveHosts,
		width:   cfg.Width,
		log:     logger.WithComponent("pusher"),
	}, nil
}

// SendPushNotice evaluates userID's rules for ev and, when they ask for a
// notification, sends one through p. Pushers of kinds other than http are
// accepted and ignored.
func (s *Service) SendPushNotice(ctx context.Context, userID string, p *Pusher, ev *Event) (err error) {
	if p.Kind != KindHTTP {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanPushNotice)
	defer func() { observability.EndSpan(span, err) }()
	observability.SetSpanAttribute(ctx, observability.AttrPusherKind, string(p.Kind))
	observability.SetSpanAttribute(ctx, observability.AttrEventID, ev.ID)
	observability.SetSpanAttribute(ctx, observability.AttrRoomID, ev.RoomID)

	unread, err := s.counts.NotificationCount(ctx, userID, ev.RoomID)
	if err != nil {
		return err
	}
	actions, err := s.rules.Actions(ctx, userID, ev)
	if err != nil {
		return err
	}
	notify, tweaks, err := EvaluateActions(actions)
	if err != nil {
		return err
	}
	if !notify {
		return nil
	}
	return s.sendNotice(ctx, p, ev, unread, tweaks)
}

func (s *Service) sendNotice(ctx context.Context, p *Pusher, ev *Event, unread uint64, tweaks []Tweak) error {
	if p.HTTP == nil {
		return errors.InvalidParam("url", "http pusher has no url")
	}
	u, err := s.guard.CheckURL(p.HTTP.URL)
	if err != nil {
		s.log.WithContext(ctx).Warn("rejected pusher url", logger.Fields(
			"url", p.HTTP.URL, logger.FieldPushKey, p.PushKey, logger.FieldError, err.Error(),
		))
		return err
	}
	if s.resolve {
		if err := s.guard.CheckResolved(ctx, u); err != nil {
			s.log.WithContext(ctx).Warn("rejected pusher host", logger.Fields(
				"host", u.Host, logger.FieldPushKey, p.PushKey, logger.FieldError, err.Error(),
			))
			return err
		}
	}

	n := BuildNotification(ctx, s.lookups, p, ev, unread, tweaks)
	return s.gateway.Send(ctx, u.String(), n)
}

// Dispatch sends ev to every target concurrently, at most Config.Width at a
// time, and returns the targets that failed. Per-target failures never stop
// the pass; only cancellation of ctx does, in which case the failures
// gathered so far are discarded and ctx's error is returned.
func (s *Service) Dispatch(ctx context.Context, ev *Event, targets []Target) (failures []Failure, err error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, observability.SpanPushDispatch)
	defer func() { observability.EndSpan(span, err) }()
	observability.SetSpanAttribute(ctx, observability.AttrEventID, ev.ID)
	observability.SetSpanAttribute(ctx, observability.AttrTargets, len(targets))
	observability.SetSpanAttribute(ctx, observability.AttrWidth, s.Width())

	sends := stream.BroadnFilterMap(stream.FromSlice(targets), s.width,
		func(ctx context.Context, t Target) (Failure, bool, error) {
			err := s.SendPushNotice(ctx, t.UserID, &t.Pusher, ev)
			if err == nil {
				return Failure{}, false, nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return Failure{}, false, cerr
			}
			return Failure{Target: t, Err: err}, true, nil
		})

	failures, err = stream.Collect(ctx, sends)
	if err != nil {
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrFailures, len(failures))

	fields := logger.DurationFields("dispatch", time.Since(start))
	fields[logger.FieldEventID] = ev.ID
	fields["targets"] = len(targets)
	fields["failures"] = len(failures)
	s.log.WithContext(ctx).Debug("dispatched push notices", fields)
	return failures, nil
}

// AnyDeliverable reports whether at least one of pushers is an http pusher
// whose URL passes the address guard. It stops checking at the first one.
func (s *Service) AnyDeliverable(ctx context.Context, pushers []Pusher) (bool, error) {
	return stream.BroadnAny(ctx, stream.FromSlice(pushers), s.width,
		func(ctx context.Context, p Pusher) (bool, error) {
			return s.deliverable(ctx, &p), nil
		})
}

func (s *Service) deliverable(ctx context.Context, p *Pusher) bool {
	if p.Kind != KindHTTP || p.HTTP == nil {
		return false
	}
	u, err := s.guard.CheckURL(p.HTTP.URL)
	if err != nil {
		return false
	}
	return !s.resolve || s.guard.CheckResolved(ctx, u) == nil
}

// ValidateAll reports whether every pusher passes ValidatePusher. It stops
// at the first invalid one.
func (s *Service) ValidateAll(ctx context.Context, pushers []Pusher) (bool, error) {
	return stream.BroadnAll(ctx, stream.FromSlice(pushers), s.width,
		func(_ context.Context, p Pusher) (bool, error) {
			return s.ValidatePusher(&p) == nil, nil
		})
}

// ValidatePusher checks the registration fields of p and, for http pushers,
// the URL against the address guard.
func (s *Service) ValidatePusher(p *Pusher) error {
	v := validation.New().
		Required("app_id", p.AppID).
		MaxLength("app_id", p.AppID, 64).
		Required("pushkey", p.PushKey).
		MaxLength("pushkey", p.PushKey, 512).
		Required("kind", string(p.Kind)).
		OneOf("kind", string(p.Kind), knownKinds).
		Custom(p.Kind != KindHTTP || (p.HTTP != nil && p.HTTP.URL != ""), "data.url", "is required for http pushers")
	if p.HTTP != nil && p.HTTP.Format != "" {
		v.OneOf("data.format", string(p.HTTP.Format), []string{string(FormatEventIDOnly)})
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if p.Kind == KindHTTP {
		_, err := s.guard.CheckURL(p.HTTP.URL)
		return err
	}
	return nil
}

// Width returns the configured dispatch width, or the current automatic
// width when none is configured.
func (s *Service) Width() int {
	if s.width > 0 {
		return s.width
	}
	return stream.AutomaticWidth()
}

