// Package pipeline runs one OCPI client call: correlation, endpoint
// resolution, a single HTTP exchange, outcome classification, counters and
// notifications. Every resource operation is an Operation run by Execute.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/counters"
	"github.com/example/ocpi-client/internal/endpoint"
	"github.com/example/ocpi-client/internal/events"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/outcome"
	"github.com/example/ocpi-client/internal/transport"
)

// ErrCancelled is the fault carried by calls cancelled before sending.
var ErrCancelled = errors.New("cancelled")

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithCounters shares a counter registry between pipelines.
func WithCounters(reg *counters.Registry) Option {
	return func(p *Pipeline) {
		if reg != nil {
			p.counters = reg
		}
	}
}

// WithNotifier shares a notifier between pipelines.
func WithNotifier(n *events.Notifier) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithClock overrides the clock used for start times and elapsed durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithTimeout sets the per-call timeout used when the caller supplies none.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRetries records a retry budget. It is reported by Retries but calls are
// always attempted exactly once.
func WithRetries(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.retries = n
		}
	}
}

// WithStateTrace installs a hook that sees every state transition.
func WithStateTrace(fn StateTrace) Option {
	return func(p *Pipeline) { p.trace = fn }
}

// Pipeline holds the process-lifetime collaborators shared by all calls.
type Pipeline struct {
	resolver  endpoint.Resolver
	transport transport.Doer
	counters  *counters.Registry
	notifier  *events.Notifier
	logger    zerolog.Logger
	now       func() time.Time
	timeout   time.Duration
	retries   int
	trace     StateTrace
}

// New constructs a Pipeline.
func New(resolver endpoint.Resolver, doer transport.Doer, opts ...Option) (*Pipeline, error) {
	if resolver == nil {
		return nil, errors.New("pipeline: endpoint resolver is required")
	}
	if doer == nil {
		return nil, errors.New("pipeline: transport is required")
	}

	p := &Pipeline{
		resolver:  resolver,
		transport: doer,
		now:       time.Now,
		timeout:   correlation.DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	if reflect.ValueOf(p.logger).IsZero() {
		p.logger = zerolog.Nop()
	}
	p.logger = p.logger.With().Str("component", "pipeline").Logger()
	if p.counters == nil {
		p.counters = counters.NewRegistry()
	}
	if p.notifier == nil {
		p.notifier = events.NewNotifier(p.logger)
	}
	return p, nil
}

// Counters returns the registry the pipeline counts calls in.
func (p *Pipeline) Counters() *counters.Registry { return p.counters }

// Notifier returns the notifier observers subscribe to.
func (p *Pipeline) Notifier() *events.Notifier { return p.notifier }

// Retries returns the configured retry budget; see WithRetries.
func (p *Pipeline) Retries() int { return p.retries }

// call is the per-call state shared by the steps of Execute.
type call struct {
	p     *Pipeline
	name  string
	base  events.Event
	begun time.Time
}

func (c *call) enter(s State) {
	if c.p.trace != nil {
		c.p.trace(c.name, c.base.Correlation.RequestID, s)
	}
}

func (c *call) fire(ctx context.Context, ev events.Event) {
	c.p.notifier.Fire(ctx, ev)
}

func (c *call) elapsed() time.Duration {
	d := c.p.now().Sub(c.begun)
	if d < 0 {
		return 0
	}
	return d
}

// Execute runs op once with params against the endpoint advertised for
// version. It never panics on collaborator faults and never returns an error:
// every failure is an envelope.
func Execute[P, T any](ctx context.Context, p *Pipeline, op Operation[P, T], version ocpi.Version, params P, opts ...correlation.Option) outcome.Envelope[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	begun := p.now()

	base := []correlation.Option{correlation.WithClock(p.now), correlation.WithTimeout(p.timeout)}
	cc := correlation.New(append(base, opts...)...)
	ctx, cancel := cc.Bind(ctx)
	defer cancel()

	c := &call{
		p:     p,
		name:  op.Name,
		begun: begun,
		base: events.Event{
			Operation:   op.Name,
			Descriptor:  op.Descriptor,
			Version:     version,
			Correlation: cc,
		},
	}
	c.enter(StateInit)

	p.counters.RequestOK(op.Name)

	req := c.base
	req.Kind = events.DomainRequest
	c.fire(ctx, req)
	c.enter(StateRequestNotified)

	env := run(ctx, c, op, version, params)
	return finish(ctx, c, env)
}

func run[P, T any](ctx context.Context, c *call, op Operation[P, T], version ocpi.Version, params P) outcome.Envelope[T] {
	p := c.p
	if err := op.Validate(); err != nil {
		p.counters.RequestError(op.Name)
		return outcome.BusinessError[T](err.Error())
	}

	c.enter(StateResolving)
	if ctx.Err() != nil {
		p.counters.RequestError(op.Name)
		return outcome.TransportException[T](cancellation(ctx))
	}

	ep, ok, err := p.resolver.Resolve(ctx, op.Descriptor, version, c.base.Correlation.EventTrackingID)
	if err != nil {
		p.counters.RequestError(op.Name)
		if ctx.Err() != nil {
			return outcome.TransportException[T](cancellation(ctx))
		}
		return outcome.TransportException[T](fmt.Errorf("pipeline: resolve %s: %w", op.Descriptor, err))
	}
	if !ok {
		c.enter(StateUnresolved)
		p.counters.RequestError(op.Name)
		return outcome.BusinessError[T](outcome.MessageNoRemoteURL)
	}
	c.enter(StateResolved)

	if op.Check != nil {
		if err := op.Check(params); err != nil {
			p.counters.RequestError(op.Name)
			return outcome.BusinessError[T](err.Error())
		}
	}

	req, err := buildRequest(op, params, ep, version, c.base.Correlation)
	if err != nil {
		p.counters.RequestError(op.Name)
		if errors.Is(err, ErrForeignTarget) {
			return outcome.BusinessError[T](err.Error())
		}
		return outcome.TransportException[T](err)
	}
	if ctx.Err() != nil {
		p.counters.RequestError(op.Name)
		return outcome.TransportException[T](cancellation(ctx))
	}

	c.enter(StateSending)
	sent := c.base
	sent.Kind = events.TransportRequest
	sent.Method = req.Method
	sent.URL = req.URL
	sent.Body = req.Body
	sent.Elapsed = c.elapsed()
	c.fire(ctx, sent)

	resp, err := send(ctx, p.transport, req)

	received := sent
	received.Kind = events.TransportResponse
	received.Body = nil
	received.Err = err
	received.Elapsed = c.elapsed()
	if resp != nil {
		received.StatusCode = resp.StatusCode
		received.Body = resp.Body
	}
	c.fire(ctx, received)

	if err != nil {
		p.counters.ResponseError(op.Name)
		return outcome.TransportException[T](err)
	}
	p.counters.ResponseOK(op.Name)
	c.enter(StateResponseReceived)

	return classify(op, ocpi.Document{HTTPStatus: resp.StatusCode, Header: resp.Header, Body: resp.Body})
}

func finish[T any](ctx context.Context, c *call, env outcome.Envelope[T]) outcome.Envelope[T] {
	env = env.WithElapsed(c.elapsed())
	c.enter(StateClassified)

	done := c.base
	done.Kind = events.DomainResponse
	done.Elapsed = env.Elapsed()
	done.Outcome = env.Summary()
	c.fire(ctx, done)
	c.enter(StateResponseNotified)

	ev := c.p.logger.Debug()
	if !env.IsSuccess() {
		ev = c.p.logger.Info()
	}
	ev.Str("operation", c.name).
		Str("request_id", c.base.Correlation.RequestID).
		Str("outcome", env.Kind().String()).
		Dur("elapsed", env.Elapsed()).
		Str("message", env.Message()).
		Msg("pipeline: call finished")

	c.enter(StateDone)
	return env
}

func buildRequest[P, T any](op Operation[P, T], params P, ep endpoint.ResolvedEndpoint, version ocpi.Version, cc correlation.Context) (req transport.Request, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline: build %s request: %v", op.Name, r)
		}
	}()

	target, err := op.target(params, ep)
	if err != nil {
		return transport.Request{}, err
	}
	req = transport.Request{
		Method:        op.Method,
		URL:           target,
		Credential:    ep.Credential,
		Version:       version,
		RequestID:     cc.RequestID,
		CorrelationID: cc.CorrelationID,
	}
	if op.Query != nil {
		req.Query = op.Query(params)
	}
	if op.Target != nil {
		req.ToCountryCode, req.ToPartyID = op.Target(params)
	}
	if op.Body != nil {
		body, err := op.Body(params)
		if err != nil {
			return transport.Request{}, fmt.Errorf("pipeline: encode %s body: %w", op.Name, err)
		}
		req.Body = body
	}
	return req, nil
}

func send(ctx context.Context, doer transport.Doer, req transport.Request) (resp *transport.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("pipeline: transport panicked: %v", r)
		}
	}()
	resp, err = doer.Do(ctx, req)
	if err == nil && resp == nil {
		err = errors.New("pipeline: transport returned no response")
	}
	return resp, err
}

// classify turns a completed exchange into Success or BusinessError. A body is
// always handed to Parse, whatever the HTTP status.
func classify[P, T any](op Operation[P, T], doc ocpi.Document) (env outcome.Envelope[T]) {
	status := ocpi.StatusFromHeaders(doc)
	if !doc.HasBody() && !doc.OK() {
		return outcome.BusinessError[T](genericFailure(doc.HTTPStatus)).WithStatus(status)
	}

	defer func() {
		if r := recover(); r != nil {
			env = outcome.BusinessError[T](fmt.Sprintf("parse %s response: %v", op.Name, r)).WithStatus(status)
		}
	}()

	payload, parsed, err := op.Parse(doc)
	if parsed.HTTPStatus == 0 {
		parsed.HTTPStatus = doc.HTTPStatus
	}
	if err != nil {
		return outcome.BusinessError[T](err.Error()).WithStatus(parsed)
	}
	return outcome.Success(payload, parsed)
}

func genericFailure(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return fmt.Sprintf("Remote returned HTTP %d", code)
	}
	return fmt.Sprintf("Remote returned HTTP %d %s", code, text)
}

func cancellation(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrCancelled, transport.ErrTimeout)
	}
	return ErrCancelled
}
