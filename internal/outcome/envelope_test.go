package outcome

import (
	"errors"
	"testing"
	"time"
)

func TestSuccessCarriesPayload(t *testing.T) {
	env := Success("tariff", Status{HTTPStatus: 200, StatusCode: 1000}).WithElapsed(5 * time.Millisecond)

	if !env.IsSuccess() || env.IsBusinessError() || env.IsTransportException() {
		t.Fatalf("unexpected kind %s", env.Kind())
	}
	payload, ok := env.Payload()
	if !ok || payload != "tariff" {
		t.Fatalf("unexpected payload %q (%v)", payload, ok)
	}
	if env.Message() != "" || env.Err() != nil {
		t.Fatalf("success must not carry a failure, got %q / %v", env.Message(), env.Err())
	}
	if env.Status().StatusCode != 1000 || env.Elapsed() != 5*time.Millisecond {
		t.Fatalf("unexpected status %+v elapsed %s", env.Status(), env.Elapsed())
	}
}

func TestBusinessErrorHidesPayload(t *testing.T) {
	env := BusinessError[string](MessageNoRemoteURL)

	if _, ok := env.Payload(); ok {
		t.Fatal("business error must not expose a payload")
	}
	if env.Message() != "No remote URL available!" {
		t.Fatalf("unexpected message %q", env.Message())
	}
	if env.Kind().String() != "business_error" {
		t.Fatalf("unexpected kind name %s", env.Kind())
	}
}

func TestTransportExceptionKeepsFault(t *testing.T) {
	fault := errors.New("connection refused")
	env := TransportException[int](fault)

	if !errors.Is(env.Err(), fault) || env.Message() != "connection refused" {
		t.Fatalf("unexpected fault %v / %q", env.Err(), env.Message())
	}
	if got := TransportException[int](nil).Message(); got != "" {
		t.Fatalf("expected empty message for nil fault, got %q", got)
	}
}

func TestWithElapsedClampsNegative(t *testing.T) {
	env := BusinessError[int]("x").WithElapsed(-time.Second)
	if env.Elapsed() != 0 {
		t.Fatalf("expected zero elapsed, got %s", env.Elapsed())
	}
}

func TestSummary(t *testing.T) {
	fault := errors.New("timeout")
	s := TransportException[int](fault).WithElapsed(time.Second).Summary()
	if s.Kind != KindTransportException || s.Error != "timeout" || s.Err != fault || s.Payload != nil {
		t.Fatalf("unexpected summary %+v", s)
	}

	s = Success(7, Status{}).Summary()
	if s.Payload != 7 {
		t.Fatalf("expected payload in success summary, got %v", s.Payload)
	}
}

func TestKindText(t *testing.T) {
	text, err := KindSuccess.MarshalText()
	if err != nil || string(text) != "success" {
		t.Fatalf("unexpected text %q (%v)", text, err)
	}
	if Kind(0).String() != "unknown" {
		t.Fatalf("unexpected zero kind name %s", Kind(0))
	}
}
