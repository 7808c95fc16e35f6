// Package observers holds the standard subscribers of the pipeline event
// notifier: a structured log, a Kafka audit trail and InfluxDB latency points.
package observers

import (
	"context"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/events"
	"github.com/example/ocpi-client/internal/outcome"
)

// Logging writes every notification at debug level and the final outcome of
// each call at info (success) or warn (failure).
type Logging struct {
	logger zerolog.Logger
}

// NewLogging constructs a Logging observer.
func NewLogging(logger zerolog.Logger) *Logging {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Logging{logger: logger.With().Str("component", "ocpi_calls").Logger()}
}

func (l *Logging) Notify(_ context.Context, ev events.Event) error {
	if ev.Kind != events.DomainResponse {
		e := l.logger.Debug().
			Str("event", ev.Kind.String()).
			Str("operation", ev.Operation).
			Str("request_id", ev.Correlation.RequestID)
		if ev.URL != "" {
			e = e.Str("method", ev.Method).Str("url", ev.URL)
		}
		if ev.StatusCode != 0 {
			e = e.Int("http_status", ev.StatusCode)
		}
		if ev.Err != nil {
			e = e.Err(ev.Err)
		}
		e.Msg("observers: call progress")
		return nil
	}

	e := l.logger.Info()
	if ev.Outcome.Kind != outcome.KindSuccess {
		e = l.logger.Warn().Str("message", ev.Outcome.Message)
	}
	e.Str("operation", ev.Operation).
		Str("module", ev.Descriptor.String()).
		Str("version", string(ev.Version)).
		Str("request_id", ev.Correlation.RequestID).
		Str("correlation_id", ev.Correlation.CorrelationID).
		Str("outcome", ev.Outcome.Kind.String()).
		Int("http_status", ev.Outcome.Status.HTTPStatus).
		Dur("elapsed", ev.Elapsed).
		Msg("observers: call finished")
	return nil
}
