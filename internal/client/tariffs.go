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

type objectPut[V any] struct {
	Ref   ObjectRef
	Value V
}

type objectPatch struct {
	Ref   ObjectRef
	Patch Patch
}

func objectSegments(r ObjectRef) []string { return r.segments() }

func objectGet[T any](name string, desc ocpi.ModuleDescriptor, idField string) pipeline.Operation[ObjectRef, T] {
	return register(pipeline.Operation[ObjectRef, T]{
		Name:       name,
		Descriptor: desc,
		Method:     http.MethodGet,
		Path:       objectSegments,
		Check:      func(r ObjectRef) error { return r.check(idField) },
		Parse:      ocpi.DecodeRequired[T],
	}, func(req Request) (ObjectRef, error) { return objectRef(req), nil })
}

func objectPutOp[V any](name string, desc ocpi.ModuleDescriptor, idField string) pipeline.Operation[objectPut[V], ocpi.NoContent] {
	return register(pipeline.Operation[objectPut[V], ocpi.NoContent]{
		Name:       name,
		Descriptor: desc,
		Method:     http.MethodPut,
		Path:       func(p objectPut[V]) []string { return p.Ref.segments() },
		Body:       jsonBody(func(p objectPut[V]) V { return p.Value }),
		Check:      func(p objectPut[V]) error { return p.Ref.check(idField) },
		Parse:      ocpi.DecodeAck,
	}, func(req Request) (objectPut[V], error) {
		v, err := decodePayload[V](req)
		return objectPut[V]{Ref: objectRef(req), Value: v}, err
	})
}

func objectPatchOp(name string, desc ocpi.ModuleDescriptor, idField string) pipeline.Operation[objectPatch, ocpi.NoContent] {
	return register(pipeline.Operation[objectPatch, ocpi.NoContent]{
		Name:       name,
		Descriptor: desc,
		Method:     http.MethodPatch,
		Path:       func(p objectPatch) []string { return p.Ref.segments() },
		Body:       jsonBody(func(p objectPatch) Patch { return p.Patch }),
		Check:      func(p objectPatch) error { return p.Ref.check(idField) },
		Parse:      ocpi.DecodeAck,
	}, func(req Request) (objectPatch, error) {
		v, err := decodePayload[Patch](req)
		return objectPatch{Ref: objectRef(req), Patch: v}, err
	})
}

var (
	getTariffOp = objectGet[model.Tariff]("tariffs.get", tariffsReceiver, "tariff_id")
	putTariffOp = objectPutOp[model.Tariff]("tariffs.put", tariffsReceiver, "tariff_id")

	deleteTariffOp = register(pipeline.Operation[ObjectRef, ocpi.NoContent]{
		Name:       "tariffs.delete",
		Descriptor: tariffsReceiver,
		Method:     http.MethodDelete,
		Path:       objectSegments,
		Check:      func(r ObjectRef) error { return r.check("tariff_id") },
		Parse:      ocpi.DecodeAck,
	}, func(req Request) (ObjectRef, error) { return objectRef(req), nil })
)

func (c *Client) GetTariff(ctx context.Context, ref ObjectRef, opts ...correlation.Option) outcome.Envelope[model.Tariff] {
	return execute(ctx, c, getTariffOp, "", ref, opts...)
}

// PutTariff pushes a new or updated Tariff.
func (c *Client) PutTariff(ctx context.Context, ref ObjectRef, tariff model.Tariff, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, putTariffOp, "", objectPut[model.Tariff]{Ref: ref, Value: tariff}, opts...)
}

// DeleteTariff removes a Tariff that is no longer in use.
func (c *Client) DeleteTariff(ctx context.Context, ref ObjectRef, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, deleteTariffOp, "", ref, opts...)
}
