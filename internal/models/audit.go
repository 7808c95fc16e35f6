package models

import "time"

// CallRecord is the audit trail entry of one finished OCPI call.
type CallRecord struct {
	Operation       string        `json:"operation"`
	Module          string        `json:"module"`
	Version         string        `json:"version"`
	RequestID       string        `json:"request_id"`
	CorrelationID   string        `json:"correlation_id"`
	EventTrackingID string        `json:"event_tracking_id"`
	Outcome         string        `json:"outcome"`
	Message         string        `json:"message,omitempty"`
	HTTPStatus      int           `json:"http_status,omitempty"`
	StatusCode      int           `json:"status_code,omitempty"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	StartedAt       time.Time     `json:"started_at"`
}
