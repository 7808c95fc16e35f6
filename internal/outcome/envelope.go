// Package outcome holds the tri-state result returned by every OCPI client call.
package outcome

import (
	"fmt"
	"time"
)

// MessageNoRemoteURL is the business error reported when the counterparty never
// advertised an endpoint for the requested module, role and version.
const MessageNoRemoteURL = "No remote URL available!"

// Kind classifies an Envelope.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindBusinessError
	KindTransportException
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindBusinessError:
		return "business_error"
	case KindTransportException:
		return "transport_exception"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Status carries protocol metadata of a completed exchange.
type Status struct {
	HTTPStatus    int       `json:"http_status,omitempty"`
	StatusCode    int       `json:"status_code,omitempty"`
	StatusMessage string    `json:"status_message,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`

	// Paging headers of list endpoints.
	TotalCount int    `json:"total_count,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	NextLink   string `json:"next_link,omitempty"`

	// Location header returned by object creation (POST cdrs).
	Location string `json:"location,omitempty"`
}

// Envelope is exactly one of Success, BusinessError or TransportException.
// The zero value is not a valid envelope; use the constructors.
type Envelope[T any] struct {
	kind    Kind
	payload T
	status  Status
	message string
	err     error
	elapsed time.Duration
}

// Success wraps a parsed payload.
func Success[T any](payload T, status Status) Envelope[T] {
	return Envelope[T]{kind: KindSuccess, payload: payload, status: status}
}

// BusinessError reports an expected, non-fatal failure such as a missing
// endpoint or a protocol-level rejection.
func BusinessError[T any](message string) Envelope[T] {
	return Envelope[T]{kind: KindBusinessError, message: message}
}

// TransportException captures a fault raised below the protocol layer.
func TransportException[T any](err error) Envelope[T] {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Envelope[T]{kind: KindTransportException, message: msg, err: err}
}

// WithStatus attaches protocol metadata without changing the classification.
func (e Envelope[T]) WithStatus(s Status) Envelope[T] {
	e.status = s
	return e
}

// WithElapsed records the call duration. Negative durations are clamped to zero.
func (e Envelope[T]) WithElapsed(d time.Duration) Envelope[T] {
	if d < 0 {
		d = 0
	}
	e.elapsed = d
	return e
}

func (e Envelope[T]) Kind() Kind { return e.kind }

func (e Envelope[T]) IsSuccess() bool { return e.kind == KindSuccess }

func (e Envelope[T]) IsBusinessError() bool { return e.kind == KindBusinessError }

func (e Envelope[T]) IsTransportException() bool { return e.kind == KindTransportException }

// Payload returns the payload and whether the envelope is a success.
func (e Envelope[T]) Payload() (T, bool) {
	if e.kind != KindSuccess {
		var zero T
		return zero, false
	}
	return e.payload, true
}

func (e Envelope[T]) Status() Status { return e.status }

// Message is the human readable failure message; empty on success.
func (e Envelope[T]) Message() string { return e.message }

// Err is the captured transport fault, nil for the other kinds.
func (e Envelope[T]) Err() error { return e.err }

func (e Envelope[T]) Elapsed() time.Duration { return e.elapsed }

func (e Envelope[T]) String() string {
	if e.kind == KindSuccess {
		return fmt.Sprintf("%s (%s)", e.kind, e.elapsed)
	}
	return fmt.Sprintf("%s: %s (%s)", e.kind, e.message, e.elapsed)
}

// Summary is the type-erased view of an Envelope handed to observers.
type Summary struct {
	Kind    Kind          `json:"outcome"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
	Status  Status        `json:"status"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Payload any           `json:"payload,omitempty"`

	Err error `json:"-"`
}

// Summary erases the payload type.
func (e Envelope[T]) Summary() Summary {
	s := Summary{
		Kind:    e.kind,
		Message: e.message,
		Status:  e.status,
		Elapsed: e.elapsed,
		Err:     e.err,
	}
	if e.err != nil {
		s.Error = e.err.Error()
	}
	if e.kind == KindSuccess {
		s.Payload = e.payload
	}
	return s
}
