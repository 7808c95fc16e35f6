package client

import (
	"context"
	"net/http"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/ocpi/model"
	"github.com/example/ocpi-client/internal/outcome"
	"github.com/example/ocpi-client/internal/pipeline"
)

// Patch is a partial object update. OCPI requires last_updated in every patch.
type Patch map[string]any

type locationPut[V any] struct {
	Ref   LocationRef
	Value V
}

type locationPatch struct {
	Ref   LocationRef
	Patch Patch
}

func locationSegments[P any](ref func(P) LocationRef) func(P) []string {
	return func(p P) []string { return ref(p).segments() }
}

func locationCheck[P any](depth int, ref func(P) LocationRef) func(P) error {
	return func(p P) error { return ref(p).check(depth) }
}

func refOf(r LocationRef) LocationRef            { return r }
func putRef[V any](p locationPut[V]) LocationRef { return p.Ref }
func patchRef(p locationPatch) LocationRef       { return p.Ref }
func putValue[V any](p locationPut[V]) V         { return p.Value }
func patchValue(p locationPatch) Patch           { return p.Patch }

func locationGet[T any](name string, depth int) pipeline.Operation[LocationRef, T] {
	return register(pipeline.Operation[LocationRef, T]{
		Name:       name,
		Descriptor: locationsReceiver,
		Method:     http.MethodGet,
		Path:       locationSegments(refOf),
		Check:      locationCheck(depth, refOf),
		Parse:      ocpi.DecodeRequired[T],
	}, func(req Request) (LocationRef, error) { return locationRef(req).at(depth), nil })
}

func locationPutOp[V any](name string, depth int) pipeline.Operation[locationPut[V], ocpi.NoContent] {
	return register(pipeline.Operation[locationPut[V], ocpi.NoContent]{
		Name:       name,
		Descriptor: locationsReceiver,
		Method:     http.MethodPut,
		Path:       locationSegments(putRef[V]),
		Body:       jsonBody(putValue[V]),
		Check:      locationCheck(depth, putRef[V]),
		Parse:      ocpi.DecodeAck,
	}, func(req Request) (locationPut[V], error) {
		v, err := decodePayload[V](req)
		return locationPut[V]{Ref: locationRef(req).at(depth), Value: v}, err
	})
}

func locationPatchOp(name string, depth int) pipeline.Operation[locationPatch, ocpi.NoContent] {
	return register(pipeline.Operation[locationPatch, ocpi.NoContent]{
		Name:       name,
		Descriptor: locationsReceiver,
		Method:     http.MethodPatch,
		Path:       locationSegments(patchRef),
		Body:       jsonBody(patchValue),
		Check:      locationCheck(depth, patchRef),
		Parse:      ocpi.DecodeAck,
	}, func(req Request) (locationPatch, error) {
		v, err := decodePayload[Patch](req)
		return locationPatch{Ref: locationRef(req).at(depth), Patch: v}, err
	})
}

var (
	getLocationOp    = locationGet[model.Location]("locations.get", 0)
	putLocationOp    = locationPutOp[model.Location]("locations.put", 0)
	patchLocationOp  = locationPatchOp("locations.patch", 0)
	getEVSEOp        = locationGet[model.EVSE]("locations.get.evse", 1)
	putEVSEOp        = locationPutOp[model.EVSE]("locations.put.evse", 1)
	patchEVSEOp      = locationPatchOp("locations.patch.evse", 1)
	getConnectorOp   = locationGet[model.Connector]("locations.get.connector", 2)
	putConnectorOp   = locationPutOp[model.Connector]("locations.put.connector", 2)
	patchConnectorOp = locationPatchOp("locations.patch.connector", 2)
)

// GetLocation reads the eMSP's copy of a Location.
func (c *Client) GetLocation(ctx context.Context, ref LocationRef, opts ...correlation.Option) outcome.Envelope[model.Location] {
	return execute(ctx, c, getLocationOp, "", ref.at(0), opts...)
}

// PutLocation pushes a full Location.
func (c *Client) PutLocation(ctx context.Context, ref LocationRef, loc model.Location, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, putLocationOp, "", locationPut[model.Location]{Ref: ref.at(0), Value: loc}, opts...)
}

// PatchLocation pushes a partial Location update.
func (c *Client) PatchLocation(ctx context.Context, ref LocationRef, patch Patch, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, patchLocationOp, "", locationPatch{Ref: ref.at(0), Patch: patch}, opts...)
}

func (c *Client) GetEVSE(ctx context.Context, ref LocationRef, opts ...correlation.Option) outcome.Envelope[model.EVSE] {
	return execute(ctx, c, getEVSEOp, "", ref.at(1), opts...)
}

func (c *Client) PutEVSE(ctx context.Context, ref LocationRef, evse model.EVSE, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, putEVSEOp, "", locationPut[model.EVSE]{Ref: ref.at(1), Value: evse}, opts...)
}

func (c *Client) PatchEVSE(ctx context.Context, ref LocationRef, patch Patch, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, patchEVSEOp, "", locationPatch{Ref: ref.at(1), Patch: patch}, opts...)
}

func (c *Client) GetConnector(ctx context.Context, ref LocationRef, opts ...correlation.Option) outcome.Envelope[model.Connector] {
	return execute(ctx, c, getConnectorOp, "", ref, opts...)
}

func (c *Client) PutConnector(ctx context.Context, ref LocationRef, conn model.Connector, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, putConnectorOp, "", locationPut[model.Connector]{Ref: ref, Value: conn}, opts...)
}

func (c *Client) PatchConnector(ctx context.Context, ref LocationRef, patch Patch, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, patchConnectorOp, "", locationPatch{Ref: ref, Patch: patch}, opts...)
}
