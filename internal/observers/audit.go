package observers

import (
	"context"

	"github.com/example/ocpi-client/internal/events"
	"github.com/example/ocpi-client/internal/models"
)

// CallPublisher writes audit records. *publisher.AuditPublisher implements it.
type CallPublisher interface {
	PublishCall(ctx context.Context, record models.CallRecord) error
}

// Audit publishes one CallRecord per finished call. Subscribe it to
// events.DomainResponse only; other kinds are ignored.
type Audit struct {
	publisher CallPublisher
}

// NewAudit constructs an Audit observer.
func NewAudit(p CallPublisher) *Audit {
	return &Audit{publisher: p}
}

func (a *Audit) Notify(ctx context.Context, ev events.Event) error {
	if ev.Kind != events.DomainResponse {
		return nil
	}
	return a.publisher.PublishCall(ctx, CallRecordOf(ev))
}

// CallRecordOf flattens a domain-response event into an audit record.
func CallRecordOf(ev events.Event) models.CallRecord {
	return models.CallRecord{
		Operation:       ev.Operation,
		Module:          ev.Descriptor.String(),
		Version:         string(ev.Version),
		RequestID:       ev.Correlation.RequestID,
		CorrelationID:   ev.Correlation.CorrelationID,
		EventTrackingID: ev.Correlation.EventTrackingID,
		Outcome:         ev.Outcome.Kind.String(),
		Message:         ev.Outcome.Message,
		HTTPStatus:      ev.Outcome.Status.HTTPStatus,
		StatusCode:      ev.Outcome.Status.StatusCode,
		Elapsed:         ev.Elapsed,
		StartedAt:       ev.Correlation.StartedAt,
	}
}
