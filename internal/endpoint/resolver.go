// Package endpoint maps an OCPI module, interface role and version to the
// counterparty URL and credential that serve it.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/example/ocpi-client/internal/ocpi"
)

// ErrInvalidEntry is returned when an endpoint entry cannot be used.
var ErrInvalidEntry = errors.New("endpoint: invalid entry")

// ResolvedEndpoint is a base URL plus the credential token to present to it.
type ResolvedEndpoint struct {
	BaseURL    string
	Credential string
	Version    ocpi.Version
	Descriptor ocpi.ModuleDescriptor
}

// URL joins the base URL with path segments. Empty segments are skipped and
// each segment is path-escaped.
func (e ResolvedEndpoint) URL(segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(e.BaseURL, "/"))
	for _, s := range segments {
		if s == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// Key identifies one advertised endpoint.
type Key struct {
	Descriptor ocpi.ModuleDescriptor
	Version    ocpi.Version
}

func (k Key) String() string {
	return string(k.Version) + ":" + k.Descriptor.String()
}

// Resolver looks up the endpoint of a module. A missing endpoint is reported
// with ok=false and a nil error; errors are reserved for lookup faults.
type Resolver interface {
	Resolve(ctx context.Context, desc ocpi.ModuleDescriptor, version ocpi.Version, eventTrackingID string) (ResolvedEndpoint, bool, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, desc ocpi.ModuleDescriptor, version ocpi.Version, eventTrackingID string) (ResolvedEndpoint, bool, error)

func (f ResolverFunc) Resolve(ctx context.Context, desc ocpi.ModuleDescriptor, version ocpi.Version, eventTrackingID string) (ResolvedEndpoint, bool, error) {
	return f(ctx, desc, version, eventTrackingID)
}

func normalize(ep ResolvedEndpoint) (ResolvedEndpoint, error) {
	base, err := ocpi.ValidateHTTPURL(ep.BaseURL)
	if err != nil {
		return ResolvedEndpoint{}, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, ep.Descriptor, err)
	}
	ep.BaseURL = strings.TrimRight(base, "/")
	ep.Credential = strings.TrimSpace(ep.Credential)
	return ep, nil
}
