package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/endpoint"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/ocpi/model"
	"github.com/example/ocpi-client/internal/outcome"
	"github.com/example/ocpi-client/internal/pipeline"
)

// callback is a result posted to a response_url handed out by the eMSP.
type callback[V any] struct {
	URL    string
	Result V
}

func callbackURL[V any](cb callback[V], _ endpoint.ResolvedEndpoint) string { return cb.URL }

func callbackOp[V any](name string, desc ocpi.ModuleDescriptor) pipeline.Operation[callback[V], ocpi.NoContent] {
	return register(pipeline.Operation[callback[V], ocpi.NoContent]{
		Name:       name,
		Descriptor: desc,
		Method:     http.MethodPost,
		URL:        callbackURL[V],
		Body:       jsonBody(func(cb callback[V]) V { return cb.Result }),
		Check:      func(cb callback[V]) error { return checkURL(cb.URL) },
		Parse:      ocpi.DecodeAck,
	}, func(req Request) (callback[V], error) {
		v, err := decodePayload[V](req)
		return callback[V]{URL: req.URL, Result: v}, err
	})
}

type activeProfile struct {
	SessionID string
	Profile   model.ActiveChargingProfile
}

var (
	chargingProfileResultOp = callbackOp[model.ChargingProfileResult]("chargingprofiles.post.result", chargingProfilesSender)
	clearProfileResultOp    = callbackOp[model.ClearProfileResult]("chargingprofiles.post.clear_result", chargingProfilesSender)
	activeProfileResultOp   = callbackOp[model.ActiveChargingProfileResult]("chargingprofiles.post.active_result", chargingProfilesSender)

	putActiveProfileOp = register(pipeline.Operation[activeProfile, ocpi.NoContent]{
		Name:       "chargingprofiles.put.active",
		Descriptor: chargingProfilesSender,
		Method:     http.MethodPut,
		Path:       func(a activeProfile) []string { return []string{strings.TrimSpace(a.SessionID)} },
		Body:       jsonBody(func(a activeProfile) model.ActiveChargingProfile { return a.Profile }),
		Check:      func(a activeProfile) error { return checkID("session_id", a.SessionID) },
		Parse:      ocpi.DecodeAck,
	}, func(req Request) (activeProfile, error) {
		v, err := decodePayload[model.ActiveChargingProfile](req)
		return activeProfile{SessionID: req.ID, Profile: v}, err
	})
)

// PostChargingProfileResult answers an asynchronous SET ChargingProfile.
func (c *Client) PostChargingProfileResult(ctx context.Context, responseURL string, result model.ChargingProfileResult, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, chargingProfileResultOp, "", callback[model.ChargingProfileResult]{URL: responseURL, Result: result}, opts...)
}

// PostClearProfileResult answers an asynchronous DELETE ChargingProfile.
func (c *Client) PostClearProfileResult(ctx context.Context, responseURL string, result model.ClearProfileResult, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, clearProfileResultOp, "", callback[model.ClearProfileResult]{URL: responseURL, Result: result}, opts...)
}

// PostActiveChargingProfileResult answers an asynchronous GET ActiveChargingProfile.
func (c *Client) PostActiveChargingProfileResult(ctx context.Context, responseURL string, result model.ActiveChargingProfileResult, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, activeProfileResultOp, "", callback[model.ActiveChargingProfileResult]{URL: responseURL, Result: result}, opts...)
}

// PutActiveChargingProfile reports a changed active profile of a session.
func (c *Client) PutActiveChargingProfile(ctx context.Context, sessionID string, profile model.ActiveChargingProfile, opts ...correlation.Option) outcome.Envelope[ocpi.NoContent] {
	return execute(ctx, c, putActiveProfileOp, "", activeProfile{SessionID: sessionID, Profile: profile}, opts...)
}
