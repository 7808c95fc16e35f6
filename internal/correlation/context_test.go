package correlation_test

import (
	"context"
	"testing"
	"time"

	"github.com/example/ocpi-client/internal/correlation"
)

func TestNewGeneratesMissingFields(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	c := correlation.New(
		correlation.WithClock(func() time.Time { return now }),
		correlation.WithIDGenerator(func() string {
			n++
			return "id-" + string(rune('0'+n))
		}),
	)

	if c.RequestID != "id-1" || c.CorrelationID != "id-2" || c.EventTrackingID != "id-3" {
		t.Fatalf("unexpected generated ids: %+v", c)
	}
	if !c.StartedAt.Equal(now) {
		t.Fatalf("expected start %s, got %s", now, c.StartedAt)
	}
	if c.Timeout != correlation.DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", c.Timeout)
	}
}

func TestNewKeepsSuppliedFields(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := correlation.New(
		correlation.WithRequestID(" req-1 "),
		correlation.WithCorrelationID("corr-1"),
		correlation.WithEventTrackingID("evt-1"),
		correlation.WithTimestamp(ts),
		correlation.WithTimeout(5*time.Second),
		correlation.WithIDGenerator(func() string { t.Fatalf("generator must not be called"); return "" }),
	)

	if c.RequestID != "req-1" || c.CorrelationID != "corr-1" || c.EventTrackingID != "evt-1" {
		t.Fatalf("supplied ids not kept: %+v", c)
	}
	if !c.StartedAt.Equal(ts) || c.Timeout != 5*time.Second {
		t.Fatalf("unexpected timing %s / %s", c.StartedAt, c.Timeout)
	}
}

func TestNewRandomIDsAreDistinct(t *testing.T) {
	a := correlation.New()
	b := correlation.New()
	if a.RequestID == "" || a.RequestID == b.RequestID {
		t.Fatalf("expected distinct random request ids, got %q and %q", a.RequestID, b.RequestID)
	}
	if a.RequestID == a.CorrelationID {
		t.Fatalf("request and correlation ids must be generated independently")
	}
}

func TestBindCarriesContextAndTimeout(t *testing.T) {
	c := correlation.New(correlation.WithTimeout(20 * time.Millisecond))
	ctx, cancel := c.Bind(context.Background())
	defer cancel()

	got, ok := correlation.FromContext(ctx)
	if !ok || got.RequestID != c.RequestID {
		t.Fatalf("expected bound correlation context, got %+v (%v)", got, ok)
	}

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected bound context to time out")
	}
}
