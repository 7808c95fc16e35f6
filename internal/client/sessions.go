package client

import (
	"context"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/ocpi/model"
	"github.com/example/ocpi-client/internal/outcome"
)

var (
	getSessionOp   = objectGet[model.Session]("sessions.get", sessionsReceiver, "session_id")
	putSessionOp   = objectPutOp[model.Session]("sessions.put", sessionsReceiver, "session_id")
	patchSessionOp = objectPatchOp("sessions.patch", sessionsReceiver, "session_id")
)

func (c *Client) GetSession(ctx context.Context, ref ObjectRef, opts ...correlation.Option) outcome.Envelope[model.Session] {
	return execute(ctx, c, getSessionOp, "", ref, opts...)
}

// PutSession pushes a new or fully updated Session.
func (c *Client) PutSession(ctx context.Context, ref ObjectRef, session model.Session, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, putSessionOp, "", objectPut[model.Session]{Ref: ref, Value: session}, opts...)
}

// PatchSession pushes incremental Session changes such as kwh and status.
func (c *Client) PatchSession(ctx context.Context, ref ObjectRef, patch Patch, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, patchSessionOp, "", objectPatch{Ref: ref, Patch: patch}, opts...)
}
