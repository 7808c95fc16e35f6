package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/ocpi-client/internal/correlation"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/ocpi/model"
	"github.com/example/ocpi-client/internal/outcome"
	"github.com/example/ocpi-client/internal/pipeline"
)

// MaxTokensPage caps the limit requested from the eMSP.
const MaxTokensPage = 1000

// TokensQuery selects one page of the eMSP token list.
type TokensQuery struct {
	DateFrom time.Time
	DateTo   time.Time
	Offset   int
	Limit    int
}

func (q TokensQuery) values() url.Values {
	v := url.Values{}
	if !q.DateFrom.IsZero() {
		v.Set("date_from", q.DateFrom.UTC().Format(time.RFC3339))
	}
	if !q.DateTo.IsZero() {
		v.Set("date_to", q.DateTo.UTC().Format(time.RFC3339))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (q TokensQuery) check() error {
	if q.Offset < 0 {
		return errors.New("offset must not be negative")
	}
	if q.Limit < 0 || q.Limit > MaxTokensPage {
		return fmt.Errorf("limit must be between 0 and %d", MaxTokensPage)
	}
	if !q.DateFrom.IsZero() && !q.DateTo.IsZero() && q.DateTo.Before(q.DateFrom) {
		return errors.New("date_to is before date_from")
	}
	return nil
}

// AuthorizeRequest asks the eMSP for a real-time authorization of a token.
type AuthorizeRequest struct {
	TokenUID string
	// TokenType defaults to RFID.
	TokenType string
	Location  *model.LocationReferences
}

func (a AuthorizeRequest) tokenType() string {
	if t := strings.TrimSpace(a.TokenType); t != "" {
		return strings.ToUpper(t)
	}
	return "RFID"
}

var (
	getTokensOp = register(pipeline.Operation[TokensQuery, []model.Token]{
		Name:       "tokens.get",
		Descriptor: tokensSender,
		Method:     http.MethodGet,
		Query:      TokensQuery.values,
		Check:      TokensQuery.check,
		Parse:      ocpi.DecodeResponse[[]model.Token],
	}, func(req Request) (TokensQuery, error) {
		q := TokensQuery{Offset: req.Offset, Limit: req.Limit}
		var err error
		if q.DateFrom, err = parseOptionalTime("date_from", req.DateFrom); err != nil {
			return q, err
		}
		q.DateTo, err = parseOptionalTime("date_to", req.DateTo)
		return q, err
	})

	authorizeOp = register(pipeline.Operation[AuthorizeRequest, model.AuthorizationInfo]{
		Name:       "tokens.authorize",
		Descriptor: tokensSender,
		Method:     http.MethodPost,
		Path:       func(a AuthorizeRequest) []string { return []string{strings.TrimSpace(a.TokenUID), "authorize"} },
		Query:      func(a AuthorizeRequest) url.Values { return url.Values{"type": {a.tokenType()}} },
		Body: func(a AuthorizeRequest) ([]byte, error) {
			if a.Location == nil {
				return nil, nil
			}
			return json.Marshal(a.Location)
		},
		Check: func(a AuthorizeRequest) error { return checkID("token_uid", a.TokenUID) },
		Parse: ocpi.DecodeRequired[model.AuthorizationInfo],
	}, func(req Request) (AuthorizeRequest, error) {
		a := AuthorizeRequest{TokenUID: req.ID, TokenType: req.Type}
		if len(req.Payload) > 0 {
			loc, err := decodePayload[model.LocationReferences](req)
			if err != nil {
				return a, err
			}
			a.Location = &loc
		}
		return a, nil
	})
)

// GetTokens fetches one page of tokens. Paging metadata (X-Total-Count,
// X-Limit and the next Link) is in Status().
func (c *Client) GetTokens(ctx context.Context, q TokensQuery, opts ...correlation.Option) outcome.Envelope[[]model.Token] {
	return execute(ctx, c, getTokensOp, "", q, opts...)
}

// Authorize requests real-time authorization of a token, optionally limited
// to a location and its EVSEs.
func (c *Client) Authorize(ctx context.Context, req AuthorizeRequest, opts ...correlation.Option) outcome.Envelope[model.AuthorizationInfo] {
	return execute(ctx, c, authorizeOp, "", req, opts...)
}

func parseOptionalTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
	}
	return t, nil
}
