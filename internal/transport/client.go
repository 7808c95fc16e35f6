// Package transport performs single OCPI HTTP exchanges.
package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/ocpi-client/internal/ocpi"
)

// OCPI request headers.
const (
	HeaderRequestID       = "X-Request-ID"
	HeaderCorrelationID   = "X-Correlation-ID"
	HeaderFromCountryCode = "OCPI-from-country-code"
	HeaderFromPartyID     = "OCPI-from-party-id"
	HeaderToCountryCode   = "OCPI-to-country-code"
	HeaderToPartyID       = "OCPI-to-party-id"
)

const defaultBodyLimit = 4 << 20

var (
	// ErrCancelled wraps faults caused by a cancelled call context.
	ErrCancelled = errors.New("transport: cancelled")
	// ErrTimeout wraps faults caused by an expired call deadline.
	ErrTimeout = errors.New("transport: timeout")
	// ErrResponseTooLarge is returned when a response body exceeds the limit.
	ErrResponseTooLarge = errors.New("transport: response body too large")
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Doer performs one exchange. *Client implements it; tests substitute fakes.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Request describes one exchange with a counterparty.
type Request struct {
	Method     string
	URL        string
	Query      url.Values
	Body       []byte
	Credential string
	Version    ocpi.Version

	RequestID     string
	CorrelationID string

	// Receiving party, used for hub routing headers when set.
	ToCountryCode string
	ToPartyID     string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBodyLimit adjusts how many response bytes are accepted.
func WithBodyLimit(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxBodyBytes = limit
		}
	}
}

// WithParty sets the sending party used in the OCPI-from-* headers.
func WithParty(countryCode, partyID string) Option {
	return func(c *Client) {
		c.fromCountryCode = strings.ToUpper(strings.TrimSpace(countryCode))
		c.fromPartyID = strings.ToUpper(strings.TrimSpace(partyID))
	}
}

// WithRawTokens disables base64 encoding of credentials for OCPI 2.2 and later.
// Some 2.2 deployments still expect the plain token.
func WithRawTokens() Option {
	return func(c *Client) { c.rawTokens = true }
}

// Client sends OCPI requests over HTTP.
type Client struct {
	logger          zerolog.Logger
	httpClient      HTTPClient
	maxBodyBytes    int64
	fromCountryCode string
	fromPartyID     string
	rawTokens       bool
}

// NewClient constructs a Client.
func NewClient(logger zerolog.Logger, opts ...Option) *Client {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	c := &Client{
		logger:       logger.With().Str("component", "transport").Logger(),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		maxBodyBytes: defaultBodyLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Do sends req and reads the full response. Any non-nil error is a transport
// fault; HTTP error statuses are returned as a Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextFault(err)
	}

	target, err := withQuery(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("transport: new request: %w", err)
	}
	c.setHeaders(httpReq, req)

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", target).
		Str("request_id", req.RequestID).
		Msg("transport: sending request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", contextFault(ctxErr), err)
		}
		return nil, fmt.Errorf("transport: http do: %w", err)
	}
	defer resp.Body.Close()

	data, err := c.readBody(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", contextFault(ctxErr), err)
		}
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) setHeaders(httpReq *http.Request, req Request) {
	h := httpReq.Header
	h.Set("Accept", "application/json")
	if len(req.Body) > 0 {
		h.Set("Content-Type", "application/json")
	}
	if req.RequestID != "" {
		h.Set(HeaderRequestID, req.RequestID)
	}
	if req.CorrelationID != "" {
		h.Set(HeaderCorrelationID, req.CorrelationID)
	}
	if req.Credential != "" {
		h.Set("Authorization", "Token "+c.encodeToken(req.Credential, req.Version))
	}
	if c.fromCountryCode != "" && c.fromPartyID != "" && req.ToCountryCode != "" && req.ToPartyID != "" {
		h.Set(HeaderFromCountryCode, c.fromCountryCode)
		h.Set(HeaderFromPartyID, c.fromPartyID)
		h.Set(HeaderToCountryCode, req.ToCountryCode)
		h.Set(HeaderToPartyID, req.ToPartyID)
	}
}

func (c *Client) encodeToken(token string, version ocpi.Version) string {
	if c.rawTokens || !version.EncodesTokens() {
		return token
	}
	return base64.StdEncoding.EncodeToString([]byte(token))
}

func (c *Client) readBody(rc io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rc, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("transport: read body: %w", err)
	}
	if int64(len(data)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxBodyBytes)
	}
	return data, nil
}

func contextFault(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrCancelled
}
