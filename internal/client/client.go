// Package client exposes the CPO-side OCPI operations. Each operation is a
// pipeline.Operation; this package only supplies paths, bodies and parsers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/outcome"
	"github.com/example/ocpi-client/internal/pipeline"
)

var (
	// ErrUnknownOperation is returned by Invoke for unregistered names.
	ErrUnknownOperation = errors.New("client: unknown operation")
	// ErrInvalidPayload is returned by Invoke when the payload cannot be decoded.
	ErrInvalidPayload = errors.New("client: invalid payload")
)

// Option customises a Client.
type Option func(*Client)

// WithVersion sets the OCPI version used when a call does not name one.
func WithVersion(v ocpi.Version) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRecipient names the receiving party. When set, calls carry the OCPI
// routing headers needed to pass through a hub.
func WithRecipient(countryCode, partyID string) Option {
	return func(c *Client) {
		c.toCountryCode = upper(countryCode)
		c.toPartyID = upper(partyID)
	}
}

// Client issues OCPI calls to one counterparty through a shared pipeline.
type Client struct {
	p       *pipeline.Pipeline
	version ocpi.Version
	logger  zerolog.Logger

	toCountryCode string
	toPartyID     string
}

// New constructs a Client and registers the counters of every operation.
func New(p *pipeline.Pipeline, opts ...Option) (*Client, error) {
	if p == nil {
		return nil, errors.New("client: pipeline is required")
	}
	c := &Client{p: p, version: ocpi.V221}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if reflect.ValueOf(c.logger).IsZero() {
		c.logger = zerolog.Nop()
	}
	c.logger = c.logger.With().Str("component", "ocpi_client").Logger()

	for _, info := range Operations() {
		p.Counters().Register(info.Name)
	}
	return c, nil
}

// Version returns the default OCPI version.
func (c *Client) Version() ocpi.Version { return c.version }

// Pipeline returns the underlying pipeline.
func (c *Client) Pipeline() *pipeline.Pipeline { return c.p }

// OperationInfo describes a registered operation.
type OperationInfo struct {
	Name       string                `json:"name"`
	Descriptor ocpi.ModuleDescriptor `json:"-"`
	Module     string                `json:"module"`
	Method     string                `json:"method"`
}

// Request is the untyped form of a call used by Invoke. Fields not used by the
// named operation are ignored.
type Request struct {
	Version     ocpi.Version
	CountryCode string
	PartyID     string
	ID          string
	EVSEUID     string
	ConnectorID string
	URL         string
	Type        string
	Offset      int
	Limit       int
	DateFrom    string
	DateTo      string
	Payload     json.RawMessage
	Correlation []correlation.Option
}

type invoker func(ctx context.Context, c *Client, req Request) (outcome.Summary, error)

type registration struct {
	info   OperationInfo
	invoke invoker
}

var registry = map[string]registration{}

// register records op for Operations and Invoke. build maps a Request to the
// operation parameters.
func register[P, T any](op pipeline.Operation[P, T], build func(Request) (P, error)) pipeline.Operation[P, T] {
	if err := op.Validate(); err != nil {
		panic(err)
	}
	if _, dup := registry[op.Name]; dup {
		panic(fmt.Sprintf("client: operation %s registered twice", op.Name))
	}
	registry[op.Name] = registration{
		info: OperationInfo{
			Name:       op.Name,
			Descriptor: op.Descriptor,
			Module:     op.Descriptor.String(),
			Method:     op.Method,
		},
		invoke: func(ctx context.Context, c *Client, req Request) (outcome.Summary, error) {
			params, err := build(req)
			if err != nil {
				return outcome.Summary{}, err
			}
			return execute(ctx, c, op, req.Version, params, req.Correlation...).Summary(), nil
		},
	}
	return op
}

// Operations lists every registered operation sorted by name.
func Operations() []OperationInfo {
	out := make([]OperationInfo, 0, len(registry))
	for _, r := range registry {
		out = append(out, r.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the registered operation called name.
func Lookup(name string) (OperationInfo, bool) {
	r, ok := registry[name]
	return r.info, ok
}

// Invoke runs the operation called name. The error is non-nil only when the
// operation is unknown or req cannot be mapped to its parameters; call
// failures are reported in the summary.
func (c *Client) Invoke(ctx context.Context, name string, req Request) (outcome.Summary, error) {
	r, ok := registry[name]
	if !ok {
		c.logger.Warn().Str("operation", name).Msg("ocpi client: unknown operation")
		return outcome.Summary{}, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return r.invoke(ctx, c, req)
}

func execute[P, T any](ctx context.Context, c *Client, op pipeline.Operation[P, T], version ocpi.Version, params P, opts ...correlation.Option) outcome.Envelope[T] {
	if version == "" {
		version = c.version
	}
	if c.toCountryCode != "" && c.toPartyID != "" {
		cc, pid := c.toCountryCode, c.toPartyID
		op.Target = func(P) (string, string) { return cc, pid }
	}
	return pipeline.Execute(ctx, c.p, op, version, params, opts...)
}

// jsonBody encodes the value selected from the parameters.
func jsonBody[P, V any](pick func(P) V) func(P) ([]byte, error) {
	return func(p P) ([]byte, error) {
		return json.Marshal(pick(p))
	}
}

func decodePayload[V any](req Request) (V, error) {
	var v V
	if len(req.Payload) == 0 {
		return v, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	if err := json.Unmarshal(req.Payload, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}

// Endpoints a CPO pushes to or pulls from. The eMSP implements the receiver
// interface of the CPO-owned modules and the sender interface of the rest.
var (
	locationsReceiver      = ocpi.Descriptor(ocpi.ModuleLocations, ocpi.RoleReceiver)
	tariffsReceiver        = ocpi.Descriptor(ocpi.ModuleTariffs, ocpi.RoleReceiver)
	sessionsReceiver       = ocpi.Descriptor(ocpi.ModuleSessions, ocpi.RoleReceiver)
	cdrsReceiver           = ocpi.Descriptor(ocpi.ModuleCDRs, ocpi.RoleReceiver)
	tokensSender           = ocpi.Descriptor(ocpi.ModuleTokens, ocpi.RoleSender)
	commandsSender         = ocpi.Descriptor(ocpi.ModuleCommands, ocpi.RoleSender)
	chargingProfilesSender = ocpi.Descriptor(ocpi.ModuleChargingProfiles, ocpi.RoleSender)
)
