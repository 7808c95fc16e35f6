// Package correlation builds the per-call identifiers, timing and cancellation
// state threaded through one OCPI client call.
package correlation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a call when the caller does not supply a timeout.
const DefaultTimeout = 60 * time.Second

// Context is the immutable correlation state of one call.
type Context struct {
	RequestID       string
	CorrelationID   string
	EventTrackingID string
	StartedAt       time.Time
	Timeout         time.Duration
}

// Option customises a Context at construction time.
type Option func(*builder)

type builder struct {
	requestID       string
	correlationID   string
	eventTrackingID string
	startedAt       time.Time
	timeout         time.Duration
	newID           func() string
	now             func() time.Time
}

// WithRequestID reuses a caller-supplied X-Request-ID.
func WithRequestID(id string) Option {
	return func(b *builder) { b.requestID = strings.TrimSpace(id) }
}

// WithCorrelationID reuses a caller-supplied X-Correlation-ID.
func WithCorrelationID(id string) Option {
	return func(b *builder) { b.correlationID = strings.TrimSpace(id) }
}

// WithEventTrackingID reuses a caller-supplied event tracking id.
func WithEventTrackingID(id string) Option {
	return func(b *builder) { b.eventTrackingID = strings.TrimSpace(id) }
}

// WithTimestamp sets the timestamp reported with the call. Elapsed time and
// the timeout are measured from when the call actually runs.
func WithTimestamp(ts time.Time) Option {
	return func(b *builder) { b.startedAt = ts }
}

// WithTimeout bounds the call. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(b *builder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithIDGenerator swaps the random id source, for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(b *builder) {
		if fn != nil {
			b.newID = fn
		}
	}
}

// WithClock swaps the clock used when no timestamp is supplied.
func WithClock(now func() time.Time) Option {
	return func(b *builder) {
		if now != nil {
			b.now = now
		}
	}
}

// New returns a fully populated Context, generating every omitted field.
func New(opts ...Option) Context {
	b := &builder{
		timeout: DefaultTimeout,
		newID:   func() string { return uuid.NewString() },
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	c := Context{
		RequestID:       b.requestID,
		CorrelationID:   b.correlationID,
		EventTrackingID: b.eventTrackingID,
		StartedAt:       b.startedAt,
		Timeout:         b.timeout,
	}
	if c.RequestID == "" {
		c.RequestID = b.newID()
	}
	if c.CorrelationID == "" {
		c.CorrelationID = b.newID()
	}
	if c.EventTrackingID == "" {
		c.EventTrackingID = b.newID()
	}
	if c.StartedAt.IsZero() {
		c.StartedAt = b.now()
	}
	return c
}

// Bind derives a cancellable context that expires Timeout after Bind is called
// and carries the correlation state. The parent context is the cancellation signal.
func (c Context) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, c.Timeout)
	return context.WithValue(ctx, ctxKey{}, c), cancel
}

type ctxKey struct{}

// FromContext returns the correlation state bound to ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	c, ok := ctx.Value(ctxKey{}).(Context)
	return c, ok
}
