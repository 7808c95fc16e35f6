// Package models holds the Kafka record layouts of the push worker.
package models

import (
	"encoding/json"
	"time"

	"github.com/example/ocpi-client/internal/outcome"
)

// PushRequest asks the worker to run one OCPI client operation.
type PushRequest struct {
	// MessageID identifies the request; it defaults to the record key.
	MessageID     string            `json:"message_id"`
	Operation     string            `json:"operation"`
	Version       string            `json:"version,omitempty"`
	CountryCode   string            `json:"country_code,omitempty"`
	PartyID       string            `json:"party_id,omitempty"`
	ID            string            `json:"id,omitempty"`
	EVSEUID       string            `json:"evse_uid,omitempty"`
	ConnectorID   string            `json:"connector_id,omitempty"`
	URL           string            `json:"url,omitempty"`
	Type          string            `json:"type,omitempty"`
	Offset        int               `json:"offset,omitempty"`
	Limit         int               `json:"limit,omitempty"`
	DateFrom      string            `json:"date_from,omitempty"`
	DateTo        string            `json:"date_to,omitempty"`
	Payload       json.RawMessage   `json:"payload,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
}

// Result states of a PushResult.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
)

// Failure types of a failed PushResult.
const (
	FailureValidation = "validation"
	FailureBusiness   = "business"
	FailureTransport  = "transport"
)

// PushResult is published once per consumed PushRequest.
type PushResult struct {
	MessageID   string           `json:"message_id"`
	Operation   string           `json:"operation,omitempty"`
	State       string           `json:"state"`
	FailureType string           `json:"failure_type,omitempty"`
	Outcome     *outcome.Summary `json:"outcome,omitempty"`
	Error       string           `json:"error,omitempty"`
	Duration    time.Duration    `json:"duration_ns"`
	Timestamp   time.Time        `json:"timestamp"`
}
