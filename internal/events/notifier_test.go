package events_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/events"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) observer(name string) events.ObserverFunc {
	return func(_ context.Context, ev events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, name+":"+ev.Kind.String())
		return nil
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestFireDeliversInRegistrationOrder(t *testing.T) {
	n := events.NewNotifier(zerolog.Nop())
	rec := &recorder{}
	n.Subscribe(rec.observer("a"))
	n.Subscribe(rec.observer("b"), events.DomainResponse)
	n.Subscribe(rec.observer("c"))

	n.Fire(context.Background(), events.Event{Kind: events.DomainRequest})
	n.Fire(context.Background(), events.Event{Kind: events.DomainResponse})

	got := strings.Join(rec.snapshot(), ",")
	want := "a:domain_request,c:domain_request,a:domain_response,b:domain_response,c:domain_response"
	if got != want {
		t.Fatalf("unexpected delivery order\n got: %s\nwant: %s", got, want)
	}
}

func TestObserverFaultsAreContained(t *testing.T) {
	var buf bytes.Buffer
	n := events.NewNotifier(zerolog.New(&buf))
	rec := &recorder{}

	n.Subscribe(events.ObserverFunc(func(context.Context, events.Event) error {
		return errors.New("sink down")
	}))
	n.Subscribe(events.ObserverFunc(func(context.Context, events.Event) error {
		panic("observer bug")
	}))
	n.Subscribe(rec.observer("last"))

	n.Fire(context.Background(), events.Event{Kind: events.TransportRequest, Operation: "cdrs.post"})

	if got := rec.snapshot(); len(got) != 1 || got[0] != "last:transport_request" {
		t.Fatalf("expected delivery to continue past faulty observers, got %v", got)
	}
	logged := buf.String()
	if !strings.Contains(logged, "observer failed") || !strings.Contains(logged, "observer panicked") {
		t.Fatalf("expected both faults to be logged, got %s", logged)
	}
}

func TestSubscribeIgnoresRepeatedKinds(t *testing.T) {
	n := events.NewNotifier(zerolog.Nop())
	rec := &recorder{}
	sub := n.Subscribe(rec.observer("x"), events.DomainRequest, events.DomainRequest, events.DomainResponse)

	n.Fire(context.Background(), events.Event{Kind: events.DomainRequest})

	if got := rec.snapshot(); len(got) != 1 {
		t.Fatalf("expected one delivery, got %v", got)
	}
	if c := n.Count(events.DomainRequest); c != 1 {
		t.Fatalf("expected one domain_request observer, got %d", c)
	}

	sub.Unsubscribe()
	if c := n.Count(events.DomainRequest) + n.Count(events.DomainResponse); c != 0 {
		t.Fatalf("expected no observers after unsubscribe, got %d", c)
	}
}

func TestUnsubscribe(t *testing.T) {
	n := events.NewNotifier(zerolog.Nop())
	rec := &recorder{}
	sub := n.Subscribe(rec.observer("x"))
	if n.Count(events.DomainRequest) != 1 {
		t.Fatalf("expected one subscriber, got %d", n.Count(events.DomainRequest))
	}

	sub.Unsubscribe()
	sub.Unsubscribe()

	n.Fire(context.Background(), events.Event{Kind: events.DomainRequest})
	if len(rec.snapshot()) != 0 {
		t.Fatalf("expected no delivery after unsubscribe, got %v", rec.snapshot())
	}
	for _, k := range events.Kinds {
		if n.Count(k) != 0 {
			t.Fatalf("expected %s list to be empty", k)
		}
	}
}

func TestSubscribeDuringFireUsesSnapshot(t *testing.T) {
	n := events.NewNotifier(zerolog.Nop())
	rec := &recorder{}

	var late *events.Subscription
	n.Subscribe(events.ObserverFunc(func(context.Context, events.Event) error {
		if late == nil {
			late = n.Subscribe(rec.observer("late"))
		}
		return nil
	}))

	n.Fire(context.Background(), events.Event{Kind: events.DomainRequest})
	if len(rec.snapshot()) != 0 {
		t.Fatalf("observer added during delivery must not see that event, got %v", rec.snapshot())
	}

	n.Fire(context.Background(), events.Event{Kind: events.DomainRequest})
	if len(rec.snapshot()) != 1 {
		t.Fatalf("expected late observer on next delivery, got %v", rec.snapshot())
	}
}

func TestConcurrentSubscribeAndFire(t *testing.T) {
	n := events.NewNotifier(zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := n.Subscribe(events.ObserverFunc(func(context.Context, events.Event) error { return nil }))
			sub.Unsubscribe()
		}()
		go func() {
			defer wg.Done()
			n.Fire(context.Background(), events.Event{Kind: events.DomainResponse})
		}()
	}
	wg.Wait()

	if n.Count(events.DomainResponse) != 0 {
		t.Fatalf("expected all subscriptions removed, got %d", n.Count(events.DomainResponse))
	}
}
