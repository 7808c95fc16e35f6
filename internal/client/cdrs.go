package client

import (
	"context"
	"net/http"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/endpoint"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/ocpi/model"
	"github.com/example/ocpi-client/internal/outcome"
	"github.com/example/ocpi-client/internal/pipeline"
)

var (
	// getCDROp reads a CDR back from the URL the eMSP returned in the Location
	// header when it was posted.
	getCDROp = register(pipeline.Operation[string, model.CDR]{
		Name:       "cdrs.get",
		Descriptor: cdrsReceiver,
		Method:     http.MethodGet,
		URL:        func(location string, _ endpoint.ResolvedEndpoint) string { return location },
		Check:      checkURL,
		Parse:      ocpi.DecodeRequired[model.CDR],
	}, func(req Request) (string, error) { return req.URL, nil })

	postCDROp = register(pipeline.Operation[model.CDR, ocpi.NoContent]{
		Name:       "cdrs.post",
		Descriptor: cdrsReceiver,
		Method:     http.MethodPost,
		Body:       jsonBody(func(cdr model.CDR) model.CDR { return cdr }),
		Check: func(cdr model.CDR) error {
			return ObjectRef{CountryCode: cdr.CountryCode, PartyID: cdr.PartyID, ID: cdr.ID}.check("cdr_id")
		},
		Parse: ocpi.DecodeAck,
	}, decodePayload[model.CDR])
)

// GetCDR fetches a CDR by the location URL returned from PostCDR.
func (c *Client) GetCDR(ctx context.Context, location string, opts ...correlation.Option) outcome.Envelope[model.CDR] {
	return execute(ctx, c, getCDROp, "", location, opts...)
}

// PostCDR submits a finished CDR. On success the eMSP's URL for it is in
// Status().Location.
func (c *Client) PostCDR(ctx context.Context, cdr model.CDR, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, postCDROp, "", cdr, opts...)
}
