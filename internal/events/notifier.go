// Package events delivers the four per-call notifications of the OCPI client
// pipeline to registered observers.
package events

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/outcome"
)

// Kind names a notification point.
type Kind int

const (
	DomainRequest Kind = iota + 1
	TransportRequest
	TransportResponse
	DomainResponse
)

// Kinds lists every notification point in firing order.
var Kinds = []Kind{DomainRequest, TransportRequest, TransportResponse, DomainResponse}

func (k Kind) String() string {
	switch k {
	case DomainRequest:
		return "domain_request"
	case TransportRequest:
		return "transport_request"
	case TransportResponse:
		return "transport_response"
	case DomainResponse:
		return "domain_response"
	default:
		return "unknown"
	}
}

// Event is the data handed to observers. Fields not relevant to Kind are zero:
// URL and Method are set from TransportRequest on, StatusCode and Err on
// TransportResponse, Outcome on DomainResponse.
type Event struct {
	Kind        Kind
	Operation   string
	Descriptor  ocpi.ModuleDescriptor
	Version     ocpi.Version
	Correlation correlation.Context

	Method     string
	URL        string
	Body       []byte
	StatusCode int
	Err        error

	Elapsed time.Duration
	Outcome outcome.Summary
}

// Observer receives notifications. A returned error is logged and otherwise
// ignored.
type Observer interface {
	Notify(ctx context.Context, ev Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event) error

func (f ObserverFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

type subscriber struct {
	id       uint64
	observer Observer
}

// Notifier holds ordered subscriber lists per Kind. Subscribing and
// unsubscribing is safe while notifications are being delivered; a delivery
// uses the list as it was when Fire was called.
type Notifier struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Kind][]subscriber
	logger zerolog.Logger
}

// NewNotifier returns a Notifier without subscribers.
func NewNotifier(logger zerolog.Logger) *Notifier {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Notifier{
		subs:   make(map[Kind][]subscriber),
		logger: logger.With().Str("component", "events").Logger(),
	}
}

// Subscription removes its observer when Unsubscribe is called. Unsubscribe is
// idempotent.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Subscribe registers obs for the given kinds, or for every kind when none are
// given. A kind named twice is registered once.
func (n *Notifier) Subscribe(obs Observer, kinds ...Kind) *Subscription {
	if len(kinds) == 0 {
		kinds = Kinds
	}
	kinds = uniqueKinds(kinds)

	n.mu.Lock()
	n.nextID++
	id := n.nextID
	for _, k := range kinds {
		list := n.subs[k]
		next := make([]subscriber, len(list), len(list)+1)
		copy(next, list)
		n.subs[k] = append(next, subscriber{id: id, observer: obs})
	}
	n.mu.Unlock()

	return &Subscription{cancel: func() { n.remove(id, kinds) }}
}

func uniqueKinds(kinds []Kind) []Kind {
	seen := make(map[Kind]struct{}, len(kinds))
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (n *Notifier) remove(id uint64, kinds []Kind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, k := range kinds {
		list := n.subs[k]
		next := make([]subscriber, 0, len(list))
		for _, s := range list {
			if s.id != id {
				next = append(next, s)
			}
		}
		n.subs[k] = next
	}
}

// Count returns the number of observers registered for k.
func (n *Notifier) Count(k Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[k])
}

// Fire delivers ev to every observer of ev.Kind in registration order. Errors
// and panics raised by observers are logged and do not stop delivery.
func (n *Notifier) Fire(ctx context.Context, ev Event) {
	n.mu.Lock()
	list := n.subs[ev.Kind]
	n.mu.Unlock()

	for _, s := range list {
		n.deliver(ctx, s, ev)
	}
}

func (n *Notifier) deliver(ctx context.Context, s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error().
				Str("event", ev.Kind.String()).
				Str("operation", ev.Operation).
				Str("request_id", ev.Correlation.RequestID).
				Str("panic", fmt.Sprint(r)).
				Msg("events: observer panicked")
		}
	}()

	if err := s.observer.Notify(ctx, ev); err != nil {
		n.logger.Error().
			Err(err).
			Str("event", ev.Kind.String()).
			Str("operation", ev.Operation).
			Str("request_id", ev.Correlation.RequestID).
			Msg("events: observer failed")
	}
}
