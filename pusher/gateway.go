package pusher

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/broadband/errors"
	"github.com/kbukum/broadband/logger"
	"github.com/kbukum/broadband/observability"
	"github.com/kbukum/broadband/resilience"
)

// HeaderRequestID carries the id shared by every attempt of one send.
const HeaderRequestID = "X-Request-ID"

const maxResponseBody = 64 << 10

// Gateway delivers a notification to the push gateway at url.
type Gateway interface {
	Send(ctx context.Context, url string, n *Notification) error
}

type sendRequest struct {
	Notification *Notification `json:"notification"`
}

type sendResponse struct {
	Rejected []string `json:"rejected"`
}

// HTTPGateway posts notifications to push gateways over HTTP. Retryable
// failures are retried with exponential backoff and counted by a circuit
// breaker kept per gateway host.
type HTTPGateway struct {
	client   *http.Client
	cfg      GatewayConfig
	breakers *resilience.CircuitBreakers
	log      *logger.Logger
}

// GatewayOption configures an HTTPGateway.
type GatewayOption func(*HTTPGateway)

// WithHTTPClient replaces the default HTTP client. The gateway uses a copy
// that never follows redirects.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *HTTPGateway) { g.client = c }
}

// NewHTTPGateway creates a gateway client from cfg.
func NewHTTPGateway(cfg GatewayConfig, opts ...GatewayOption) *HTTPGateway {
	cfg.ApplyDefaults()
	log := logger.WithComponent("pusher.gateway")

	breakerCfg := resilience.DefaultCircuitBreakerConfig("")
	breakerCfg.MaxFailures = cfg.BreakerFailures
	breakerCfg.Cooldown = cfg.BreakerCooldown
	breakerCfg.IsFailure = errors.IsRetryable
	breakerCfg.OnStateChange = func(host string, from, to resilience.State) {
		log.Warn("push gateway circuit changed", logger.Fields("host", host, "from", from.String(), "to", to.String()))
	}

	g := &HTTPGateway{
		client:   &http.Client{},
		cfg:      cfg,
		breakers: resilience.NewCircuitBreakers(breakerCfg),
		log:      log,
	}
	for _, opt := range opts {
		opt(g)
	}
	// Redirects are not followed: the address guard only vets the pusher
	// URL, and a redirect could lead anywhere. A 3xx is reported as
	// REJECTED.
	client := *g.client
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	g.client = &client
	return g
}

// Send posts {"notification": n} to rawURL. Errors are AppErrors: TIMEOUT,
// CONNECTION_FAILED, RATE_LIMITED and EXTERNAL_SERVICE_ERROR are retried;
// REJECTED (4xx, or pushkeys rejected by the gateway) is not.
// SERVICE_UNAVAILABLE is returned without a request while the host's circuit
// is open.
func (g *HTTPGateway) Send(ctx context.Context, rawURL string, n *Notification) (err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanGatewaySend)
	defer func() { observability.EndSpan(span, err) }()

	body, err := json.Marshal(sendRequest{Notification: n})
	if err != nil {
		return errors.Internal(err)
	}
	host := rawURL
	if u, perr := url.Parse(rawURL); perr == nil {
		host = u.Host
	}
	requestID := uuid.NewString()
	observability.SetSpanAttribute(ctx, observability.AttrEventID, n.EventID)

	retry := resilience.RetryConfig{
		MaxAttempts:    g.cfg.MaxAttempts,
		InitialBackoff: g.cfg.InitialBackoff,
		MaxBackoff:     g.cfg.MaxBackoff,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        errors.IsRetryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			g.log.WithContext(ctx).Debug("retrying push gateway", logger.Fields(
				"host", host, "attempt", attempt, "backoff_ms", backoff.Milliseconds(), logger.FieldError, err.Error(),
			))
		},
	}
	err = resilience.RetryFunc(ctx, retry, func(ctx context.Context, _ int) error {
		return g.breakers.Get(host).Execute(func() error {
			return g.post(ctx, rawURL, host, requestID, body)
		})
	})
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		return errors.ServiceUnavailable(host).WithCause(err)
	}
	return err
}

func (g *HTTPGateway) post(ctx context.Context, rawURL, host, requestID string, body []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return errors.InvalidParam("url", "cannot build request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", g.cfg.UserAgent)
	req.Header.Set(HeaderRequestID, requestID)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var netErr net.Error
		if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
			return errors.Timeout("push gateway send").WithCause(err)
		}
		return errors.ConnectionFailed(host, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		var out sendResponse
		if len(raw) > 0 && json.Unmarshal(raw, &out) == nil && len(out.Rejected) > 0 {
			return errors.New(errors.ErrCodeRejected, "push gateway rejected pushkeys", http.StatusBadGateway).
				WithDetail("pushkeys", out.Rejected)
		}
		return nil
	case code == http.StatusTooManyRequests:
		return errors.RateLimited(host)
	case code >= 500:
		return errors.ExternalServiceError(host, fmt.Errorf("status %d", code))
	default:
		return errors.Rejected(host, code)
	}
}
