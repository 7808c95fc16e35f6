package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/example/ocpi-client/internal/endpoint"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/outcome"
)

// ErrInvalidOperation is returned by Operation.Validate.
var ErrInvalidOperation = errors.New("pipeline: invalid operation")

// ErrForeignTarget is reported when an operation URL points at a host other
// than the resolved endpoint's.
var ErrForeignTarget = errors.New("pipeline: target host does not match endpoint")

// Operation configures the pipeline for one remote call with parameters P and
// payload T. Only Name, Descriptor, Method and Parse are required.
type Operation[P, T any] struct {
	// Name is the counter key, e.g. "tariffs.delete".
	Name       string
	Descriptor ocpi.ModuleDescriptor
	Method     string

	// Path returns the segments appended to the resolved base URL.
	Path func(P) []string
	// URL, when set, replaces the base URL plus Path. Used for operations
	// that answer to a URL handed out by the counterparty. The URL must be on
	// the resolved endpoint's host since the module credential goes with it.
	URL func(P, endpoint.ResolvedEndpoint) string
	// Query returns operation-specific query parameters.
	Query func(P) url.Values
	// Body encodes the request document; nil for GET and DELETE.
	Body func(P) ([]byte, error)
	// Target returns the receiving party for hub routing headers.
	Target func(P) (countryCode, partyID string)
	// Check rejects malformed parameters before any endpoint is resolved.
	Check func(P) error

	Parse func(ocpi.Document) (T, outcome.Status, error)
}

// Validate reports configuration mistakes.
func (op Operation[P, T]) Validate() error {
	var problems []string
	if strings.TrimSpace(op.Name) == "" {
		problems = append(problems, "name is required")
	}
	if op.Descriptor.Module == "" || op.Descriptor.Role == "" {
		problems = append(problems, "module descriptor is required")
	}
	if op.Method == "" {
		problems = append(problems, "method is required")
	}
	if op.Parse == nil {
		problems = append(problems, "parse function is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidOperation, op.Name, strings.Join(problems, "; "))
	}
	return nil
}

func (op Operation[P, T]) target(params P, ep endpoint.ResolvedEndpoint) (string, error) {
	if op.URL != nil {
		if u := strings.TrimSpace(op.URL(params, ep)); u != "" {
			if err := sameHost(u, ep.BaseURL); err != nil {
				return "", err
			}
			return u, nil
		}
	}
	if op.Path == nil {
		return ep.URL(), nil
	}
	return ep.URL(op.Path(params)...), nil
}

func sameHost(target, base string) error {
	t, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForeignTarget, err)
	}
	b, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForeignTarget, err)
	}
	if !strings.EqualFold(t.Scheme, b.Scheme) || !strings.EqualFold(t.Host, b.Host) {
		return fmt.Errorf("%w: %s is not on %s", ErrForeignTarget, t.Host, b.Host)
	}
	return nil
}
