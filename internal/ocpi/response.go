package ocpi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/ocpi-client/internal/outcome"
)

// OCPI status codes carried in the status_code field of every response.
const (
	StatusSuccess               = 1000
	StatusClientError           = 2000
	StatusInvalidParameters     = 2001
	StatusNotEnoughInformation  = 2002
	StatusUnknownLocation       = 2003
	StatusUnknownToken          = 2004
	StatusServerError           = 3000
	StatusUnableToUseClientAPI  = 3001
	StatusUnsupportedVersion    = 3002
	StatusNoMatchingEndpoints   = 3003
	StatusHubError              = 4000
	StatusHubUnknownReceiver    = 4001
	StatusHubTimeout            = 4002
	StatusHubConnectionProblem  = 4003
)

// Paging and routing headers.
const (
	HeaderTotalCount = "X-Total-Count"
	HeaderLimit      = "X-Limit"
	HeaderLink       = "Link"
	HeaderLocation   = "Location"
)

// ErrRejected marks a response whose HTTP or OCPI status signals failure.
var ErrRejected = errors.New("ocpi: request rejected")

// ErrEmptyResponse is returned when a document that must carry data has no body.
var ErrEmptyResponse = errors.New("ocpi: empty response body")

// Document is the raw response handed to a parse function.
type Document struct {
	HTTPStatus int
	Header     http.Header
	Body       []byte
}

// HasBody reports whether the document carries a non-blank body.
func (d Document) HasBody() bool {
	return len(bytes.TrimSpace(d.Body)) > 0
}

// OK reports a 2xx HTTP status.
func (d Document) OK() bool {
	return d.HTTPStatus >= 200 && d.HTTPStatus < 300
}

// Response is the OCPI response document wrapping every payload.
type Response[T any] struct {
	Data          T        `json:"data,omitempty"`
	StatusCode    int      `json:"status_code"`
	StatusMessage string   `json:"status_message,omitempty"`
	Timestamp     DateTime `json:"timestamp"`
}

// NoContent is the payload type of operations whose response carries no data.
type NoContent struct{}

// IsSuccessCode reports whether an OCPI status code is in the 1xxx range.
func IsSuccessCode(code int) bool {
	return code >= 1000 && code < 2000
}

// DecodeResponse parses an OCPI response document into its data payload. A
// failing HTTP or OCPI status is returned as an error wrapping ErrRejected with
// the counterparty's status message.
func DecodeResponse[T any](doc Document) (T, outcome.Status, error) {
	var zero T
	status := StatusFromHeaders(doc)

	if !doc.HasBody() {
		if doc.OK() {
			return zero, status, nil
		}
		return zero, status, fmt.Errorf("%w: HTTP %d without response body", ErrRejected, doc.HTTPStatus)
	}

	var resp Response[T]
	if err := json.Unmarshal(doc.Body, &resp); err != nil {
		return zero, status, fmt.Errorf("ocpi: decode response: %w", err)
	}
	status.StatusCode = resp.StatusCode
	status.StatusMessage = resp.StatusMessage
	status.Timestamp = resp.Timestamp.Time

	if err := checkStatus(doc.HTTPStatus, resp.StatusCode, resp.StatusMessage); err != nil {
		return zero, status, err
	}
	return resp.Data, status, nil
}

// DecodeAck parses a response whose data, if any, is ignored.
func DecodeAck(doc Document) (NoContent, outcome.Status, error) {
	_, status, err := DecodeResponse[json.RawMessage](doc)
	return NoContent{}, status, err
}

// DecodeRequired is DecodeResponse for operations that must return data.
func DecodeRequired[T any](doc Document) (T, outcome.Status, error) {
	if doc.OK() && !doc.HasBody() {
		var zero T
		return zero, StatusFromHeaders(doc), ErrEmptyResponse
	}
	return DecodeResponse[T](doc)
}

func checkStatus(httpStatus, code int, message string) error {
	if message == "" {
		message = http.StatusText(httpStatus)
	}
	if httpStatus < 200 || httpStatus >= 300 {
		if code != 0 && !IsSuccessCode(code) {
			return fmt.Errorf("%w: HTTP %d, status %d: %s", ErrRejected, httpStatus, code, message)
		}
		return fmt.Errorf("%w: HTTP %d: %s", ErrRejected, httpStatus, message)
	}
	if !IsSuccessCode(code) {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, code, message)
	}
	return nil
}

// StatusFromHeaders extracts HTTP-level metadata: status, paging and Location.
func StatusFromHeaders(doc Document) outcome.Status {
	status := outcome.Status{HTTPStatus: doc.HTTPStatus}
	if doc.Header == nil {
		return status
	}
	if v, err := strconv.Atoi(strings.TrimSpace(doc.Header.Get(HeaderTotalCount))); err == nil {
		status.TotalCount = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(doc.Header.Get(HeaderLimit))); err == nil {
		status.Limit = v
	}
	status.NextLink = nextLink(doc.Header.Values(HeaderLink))
	status.Location = strings.TrimSpace(doc.Header.Get(HeaderLocation))
	return status
}

// nextLink returns the target of the rel="next" entry of a Link header.
func nextLink(values []string) string {
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			target, params, ok := strings.Cut(part, ";")
			if !ok {
				continue
			}
			if !strings.Contains(strings.ReplaceAll(params, " ", ""), `rel="next"`) {
				continue
			}
			target = strings.TrimSpace(target)
			target = strings.TrimPrefix(target, "<")
			target = strings.TrimSuffix(target, ">")
			return target
		}
	}
	return ""
}

// DateTime is an OCPI timestamp. Parsing accepts RFC 3339 with or without a
// zone designator; values without a zone are UTC.
type DateTime struct {
	time.Time
}

const dateTimeNoZone = "2006-01-02T15:04:05.999999999"

// NewDateTime truncates t to the second and converts it to UTC.
func NewDateTime(t time.Time) DateTime {
	return DateTime{Time: t.UTC().Truncate(time.Second)}
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	unq, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("ocpi: invalid timestamp %s: %w", s, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, unq); err == nil {
		d.Time = t.UTC()
		return nil
	}
	t, err := time.ParseInLocation(dateTimeNoZone, unq, time.UTC)
	if err != nil {
		return fmt.Errorf("ocpi: invalid timestamp %q: %w", unq, err)
	}
	d.Time = t
	return nil
}
