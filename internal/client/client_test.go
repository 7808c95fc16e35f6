package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ocpi-client/internal/client"
	"github.com/example/ocpi-client/internal/counters"
	"github.com/example/ocpi-client/internal/endpoint"
	"github.com/example/ocpi-client/internal/ocpi"
	"github.com/example/ocpi-client/internal/ocpi/model"
	"github.com/example/ocpi-client/internal/pipeline"
	"github.com/example/ocpi-client/internal/transport"
)

type seenRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
	Header http.Header
}

// emsp is a minimal counterparty: it records requests and answers with the
// handler registered for "METHOD /path", or 404 without a body.
type emsp struct {
	mu       sync.Mutex
	seen     []seenRequest
	handlers map[string]http.HandlerFunc
}

func newEMSP() *emsp { return &emsp{handlers: map[string]http.HandlerFunc{}} }

func (e *emsp) handle(route string, fn http.HandlerFunc) { e.handlers[route] = fn }

func (e *emsp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	e.mu.Lock()
	e.seen = append(e.seen, seenRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   string(body),
		Header: r.Header.Clone(),
	})
	h, ok := e.handlers[r.Method+" "+r.URL.Path]
	e.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r)
}

func (e *emsp) last(t *testing.T) seenRequest {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	require.NotEmpty(t, e.seen, "emsp received no request")
	return e.seen[len(e.seen)-1]
}

func (e *emsp) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.seen)
}

func ack(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, `{"status_code":1000,"timestamp":"2024-05-01T10:00:00Z"}`)
}

func reply(data any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		raw, _ := json.Marshal(data)
		_, _ = io.WriteString(w, `{"status_code":1000,"timestamp":"2024-05-01T10:00:00Z","data":`+string(raw)+`}`)
	}
}

type harness struct {
	client *client.Client
	emsp   *emsp
	server *httptest.Server
	table  *endpoint.Table
}

func newHarness(t *testing.T, modules ...ocpi.ModuleDescriptor) *harness {
	t.Helper()
	e := newEMSP()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	table := endpoint.NewTable(zerolog.Nop())
	for _, desc := range modules {
		require.NoError(t, table.Set(desc, ocpi.V221, endpoint.ResolvedEndpoint{
			BaseURL:    srv.URL + "/ocpi/emsp/2.2.1/" + string(desc.Module),
			Credential: "token-c",
		}))
	}

	p, err := pipeline.New(table, transport.NewClient(zerolog.Nop()))
	require.NoError(t, err)
	c, err := client.New(p, client.WithVersion(ocpi.V221))
	require.NoError(t, err)
	return &harness{client: c, emsp: e, server: srv, table: table}
}

var (
	locationsReceiver = ocpi.Descriptor(ocpi.ModuleLocations, ocpi.RoleReceiver)
	tariffsReceiver   = ocpi.Descriptor(ocpi.ModuleTariffs, ocpi.RoleReceiver)
	sessionsReceiver  = ocpi.Descriptor(ocpi.ModuleSessions, ocpi.RoleReceiver)
	cdrsReceiver      = ocpi.Descriptor(ocpi.ModuleCDRs, ocpi.RoleReceiver)
	tokensSender      = ocpi.Descriptor(ocpi.ModuleTokens, ocpi.RoleSender)
	commandsSender    = ocpi.Descriptor(ocpi.ModuleCommands, ocpi.RoleSender)
	profilesSender    = ocpi.Descriptor(ocpi.ModuleChargingProfiles, ocpi.RoleSender)
)

func TestOperationsAreRegistered(t *testing.T) {
	names := make([]string, 0)
	for _, info := range client.Operations() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{
		"cdrs.get",
		"cdrs.post",
		"chargingprofiles.post.active_result",
		"chargingprofiles.post.clear_result",
		"chargingprofiles.post.result",
		"chargingprofiles.put.active",
		"commands.post.result",
		"locations.get",
		"locations.get.connector",
		"locations.get.evse",
		"locations.patch",
		"locations.patch.connector",
		"locations.patch.evse",
		"locations.put",
		"locations.put.connector",
		"locations.put.evse",
		"sessions.get",
		"sessions.patch",
		"sessions.put",
		"tariffs.delete",
		"tariffs.get",
		"tariffs.put",
		"tokens.authorize",
		"tokens.get",
	}, names)

	info, ok := client.Lookup("tariffs.delete")
	require.True(t, ok)
	assert.Equal(t, http.MethodDelete, info.Method)
	assert.Equal(t, "tariffs/RECEIVER", info.Module)
}

func TestNewRegistersCountersAtZero(t *testing.T) {
	h := newHarness(t)
	all := h.client.Pipeline().Counters().All()
	assert.Len(t, all, len(client.Operations()))
	assert.Equal(t, counters.Snapshot{}, all["cdrs.post"])
}

func TestDeleteTariffWithoutEndpoint(t *testing.T) {
	h := newHarness(t, locationsReceiver)

	env := h.client.DeleteTariff(context.Background(), client.ObjectRef{CountryCode: "NL", PartyID: "TNM", ID: "T-1"})

	assert.True(t, env.IsBusinessError())
	assert.Equal(t, "No remote URL available!", env.Message())
	assert.Equal(t, counters.Snapshot{RequestsOK: 1, RequestsError: 1}, h.client.Pipeline().Counters().Snapshot("tariffs.delete"))
	assert.Equal(t, 0, h.emsp.count())
}

func TestPutLocationAndReadBack(t *testing.T) {
	h := newHarness(t, locationsReceiver)
	loc := model.Location{
		CountryCode: "NL", PartyID: "TNM", ID: "LOC1", Publish: true,
		Address: "Main 1", City: "Utrecht", Country: "NLD", TimeZone: "Europe/Amsterdam",
		Coordinates: model.GeoLocation{Latitude: "52.09", Longitude: "5.12"},
		LastUpdated: ocpi.NewDateTime(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
	}
	h.emsp.handle("PUT /ocpi/emsp/2.2.1/locations/NL/TNM/LOC1", ack)
	h.emsp.handle("GET /ocpi/emsp/2.2.1/locations/NL/TNM/LOC1", reply(loc))

	ref := client.LocationRef{CountryCode: "nl", PartyID: "tnm", LocationID: "LOC1", EVSEUID: "ignored"}
	put := h.client.PutLocation(context.Background(), ref, loc)
	require.True(t, put.IsSuccess(), put.String())

	sent := h.emsp.last(t)
	assert.Equal(t, http.MethodPut, sent.Method)
	assert.Equal(t, "application/json", sent.Header.Get("Content-Type"))
	assert.NotEmpty(t, sent.Header.Get("X-Request-ID"))
	assert.NotEmpty(t, sent.Header.Get("X-Correlation-ID"))
	var echoed model.Location
	require.NoError(t, json.Unmarshal([]byte(sent.Body), &echoed))
	assert.Equal(t, loc, echoed)

	got := h.client.GetLocation(context.Background(), ref)
	require.True(t, got.IsSuccess(), got.String())
	payload, _ := got.Payload()
	assert.Equal(t, loc, payload)
}

func TestConnectorPathAndPatch(t *testing.T) {
	h := newHarness(t, locationsReceiver)
	h.emsp.handle("PATCH /ocpi/emsp/2.2.1/locations/NL/TNM/LOC1/EVSE-1/2", ack)

	env := h.client.PatchConnector(context.Background(),
		client.LocationRef{CountryCode: "NL", PartyID: "TNM", LocationID: "LOC1", EVSEUID: "EVSE-1", ConnectorID: "2"},
		client.Patch{"tariff_ids": []string{"T-1"}, "last_updated": "2024-05-01T10:00:00Z"})

	require.True(t, env.IsSuccess(), env.String())
	assert.JSONEq(t, `{"tariff_ids":["T-1"],"last_updated":"2024-05-01T10:00:00Z"}`, h.emsp.last(t).Body)
}

func TestInvalidReferencesNeverLeave(t *testing.T) {
	h := newHarness(t, locationsReceiver)

	env := h.client.GetEVSE(context.Background(), client.LocationRef{CountryCode: "NLD", PartyID: "TNM", LocationID: "LOC1"})

	assert.True(t, env.IsBusinessError())
	assert.Contains(t, env.Message(), "invalid country code")
	assert.Contains(t, env.Message(), "evse_uid is empty")
	assert.Equal(t, 0, h.emsp.count())
	assert.Equal(t, counters.Snapshot{RequestsOK: 1, RequestsError: 1}, h.client.Pipeline().Counters().Snapshot("locations.get.evse"))
}

func TestRejectedPushIsBusinessError(t *testing.T) {
	h := newHarness(t, sessionsReceiver)
	h.emsp.handle("PUT /ocpi/emsp/2.2.1/sessions/NL/TNM/S-1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"status_code":2001,"status_message":"Missing kwh","timestamp":"2024-05-01T10:00:00Z"}`)
	})

	env := h.client.PutSession(context.Background(), client.ObjectRef{CountryCode: "NL", PartyID: "TNM", ID: "S-1"}, model.Session{ID: "S-1"})

	assert.True(t, env.IsBusinessError())
	assert.Contains(t, env.Message(), "Missing kwh")
	assert.Equal(t, ocpi.StatusInvalidParameters, env.Status().StatusCode)
	assert.Equal(t, counters.Snapshot{RequestsOK: 1, ResponsesOK: 1}, h.client.Pipeline().Counters().Snapshot("sessions.put"))
}

func TestPostCDRReturnsLocation(t *testing.T) {
	h := newHarness(t, cdrsReceiver)
	location := h.server.URL + "/ocpi/emsp/2.2.1/cdrs/stored/CDR-1"
	h.emsp.handle("POST /ocpi/emsp/2.2.1/cdrs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", location)
		ack(w, r)
	})
	h.emsp.handle("GET /ocpi/emsp/2.2.1/cdrs/stored/CDR-1", reply(model.CDR{CountryCode: "NL", PartyID: "TNM", ID: "CDR-1", Currency: "EUR"}))

	posted := h.client.PostCDR(context.Background(), model.CDR{CountryCode: "NL", PartyID: "TNM", ID: "CDR-1", Currency: "EUR"})
	require.True(t, posted.IsSuccess(), posted.String())
	assert.Equal(t, location, posted.Status().Location)

	got := h.client.GetCDR(context.Background(), posted.Status().Location)
	require.True(t, got.IsSuccess(), got.String())
	cdr, _ := got.Payload()
	assert.Equal(t, "CDR-1", cdr.ID)
}

func TestForeignURLsNeverReceiveCredentials(t *testing.T) {
	h := newHarness(t, cdrsReceiver, commandsSender)
	other := newEMSP()
	otherSrv := httptest.NewServer(other)
	t.Cleanup(otherSrv.Close)
	other.handle("GET /cdrs/CDR-1", reply(model.CDR{ID: "CDR-1"}))
	other.handle("POST /callbacks/cmd/1", ack)

	got := h.client.GetCDR(context.Background(), otherSrv.URL+"/cdrs/CDR-1")
	assert.True(t, got.IsBusinessError())
	assert.Contains(t, got.Message(), "target host does not match endpoint")

	cmd := h.client.PostCommandResult(context.Background(), otherSrv.URL+"/callbacks/cmd/1", model.CommandResult{Result: "ACCEPTED"})
	assert.True(t, cmd.IsBusinessError())

	assert.Equal(t, 0, other.count())
	assert.Equal(t, 0, h.emsp.count())
	assert.Equal(t, counters.Snapshot{RequestsOK: 1, RequestsError: 1}, h.client.Pipeline().Counters().Snapshot("cdrs.get"))
}

func TestGetTokensPaging(t *testing.T) {
	h := newHarness(t, tokensSender)
	h.emsp.handle("GET /ocpi/emsp/2.2.1/tokens", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Total-Count", "120")
		w.Header().Set("X-Limit", "50")
		w.Header().Set("Link", `<https://emsp.example.com/tokens?offset=50&limit=50>; rel="next"`)
		reply([]model.Token{{UID: "012345678", Type: "RFID", Valid: true}})(w, r)
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	env := h.client.GetTokens(context.Background(), client.TokensQuery{DateFrom: from, Offset: 0, Limit: 50})

	require.True(t, env.IsSuccess(), env.String())
	tokens, _ := env.Payload()
	require.Len(t, tokens, 1)
	assert.Equal(t, "012345678", tokens[0].UID)
	assert.Equal(t, 120, env.Status().TotalCount)
	assert.Equal(t, 50, env.Status().Limit)
	assert.Equal(t, "https://emsp.example.com/tokens?offset=50&limit=50", env.Status().NextLink)
	assert.Equal(t, "date_from=2024-01-01T00%3A00%3A00Z&limit=50", h.emsp.last(t).Query)
}

func TestGetTokensRejectsBadQuery(t *testing.T) {
	h := newHarness(t, tokensSender)
	env := h.client.GetTokens(context.Background(), client.TokensQuery{Limit: client.MaxTokensPage + 1})
	assert.True(t, env.IsBusinessError())
	assert.Equal(t, 0, h.emsp.count())
}

func TestAuthorize(t *testing.T) {
	h := newHarness(t, tokensSender)
	h.emsp.handle("POST /ocpi/emsp/2.2.1/tokens/012345678/authorize", reply(model.AuthorizationInfo{Allowed: "ALLOWED", AuthorizationReference: "ref-1"}))

	env := h.client.Authorize(context.Background(), client.AuthorizeRequest{
		TokenUID: "012345678",
		Location: &model.LocationReferences{LocationID: "LOC1", EvseUIDs: []string{"EVSE-1"}},
	})

	require.True(t, env.IsSuccess(), env.String())
	info, _ := env.Payload()
	assert.Equal(t, "ALLOWED", info.Allowed)
	sent := h.emsp.last(t)
	assert.Equal(t, "type=RFID", sent.Query)
	assert.JSONEq(t, `{"location_id":"LOC1","evse_uids":["EVSE-1"]}`, sent.Body)
}

func TestCallbacksUseResponseURLAndModuleCredential(t *testing.T) {
	h := newHarness(t, commandsSender, profilesSender)
	h.emsp.handle("POST /callbacks/cmd/42", ack)
	h.emsp.handle("POST /callbacks/profile/7", ack)

	cmd := h.client.PostCommandResult(context.Background(), h.server.URL+"/callbacks/cmd/42", model.CommandResult{Result: "ACCEPTED"})
	require.True(t, cmd.IsSuccess(), cmd.String())
	sent := h.emsp.last(t)
	assert.JSONEq(t, `{"result":"ACCEPTED"}`, sent.Body)
	assert.True(t, strings.HasPrefix(sent.Auth, "Token "))

	res := h.client.PostChargingProfileResult(context.Background(), h.server.URL+"/callbacks/profile/7", model.ChargingProfileResult{Result: "ACCEPTED"})
	require.True(t, res.IsSuccess(), res.String())

	bad := h.client.PostClearProfileResult(context.Background(), "not a url", model.ClearProfileResult{Result: "ACCEPTED"})
	assert.True(t, bad.IsBusinessError())
}

func TestPutActiveChargingProfile(t *testing.T) {
	h := newHarness(t, profilesSender)
	h.emsp.handle("PUT /ocpi/emsp/2.2.1/chargingprofiles/S-9", ack)

	env := h.client.PutActiveChargingProfile(context.Background(), "S-9", model.ActiveChargingProfile{
		StartDateTime:   "2024-05-01T10:00:00Z",
		ChargingProfile: model.ChargingProfile{ChargingRateUnit: "W", Periods: []model.ChargingProfilePeriod{{StartPeriod: 0, Limit: 11000}}},
	})
	require.True(t, env.IsSuccess(), env.String())
}

func TestInvokeDispatchesByName(t *testing.T) {
	h := newHarness(t, tariffsReceiver)
	h.emsp.handle("PUT /ocpi/emsp/2.2.1/tariffs/NL/TNM/T-1", ack)

	summary, err := h.client.Invoke(context.Background(), "tariffs.put", client.Request{
		CountryCode: "NL", PartyID: "TNM", ID: "T-1",
		Payload: json.RawMessage(`{"country_code":"NL","party_id":"TNM","id":"T-1","currency":"EUR","elements":[]}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "success", summary.Kind.String())
	assert.Contains(t, h.emsp.last(t).Body, `"currency":"EUR"`)

	_, err = h.client.Invoke(context.Background(), "tariffs.burn", client.Request{})
	assert.True(t, errors.Is(err, client.ErrUnknownOperation))

	_, err = h.client.Invoke(context.Background(), "tariffs.put", client.Request{CountryCode: "NL", PartyID: "TNM", ID: "T-1"})
	assert.True(t, errors.Is(err, client.ErrInvalidPayload))
}

func TestRecipientRoutingHeaders(t *testing.T) {
	e := newEMSP()
	srv := httptest.NewServer(e)
	defer srv.Close()
	e.handle("DELETE /tariffs/NL/TNM/T-1", ack)

	table := endpoint.NewTable(zerolog.Nop())
	require.NoError(t, table.Set(tariffsReceiver, ocpi.V221, endpoint.ResolvedEndpoint{BaseURL: srv.URL + "/tariffs", Credential: "c"}))
	p, err := pipeline.New(table, transport.NewClient(zerolog.Nop(), transport.WithParty("NL", "TNM")))
	require.NoError(t, err)
	c, err := client.New(p, client.WithRecipient("de", "abc"))
	require.NoError(t, err)

	env := c.DeleteTariff(context.Background(), client.ObjectRef{CountryCode: "NL", PartyID: "TNM", ID: "T-1"})
	require.True(t, env.IsSuccess(), env.String())
	sent := e.last(t)
	assert.Equal(t, "DE", sent.Header.Get("OCPI-to-country-code"))
	assert.Equal(t, "ABC", sent.Header.Get("OCPI-to-party-id"))
	assert.Equal(t, "NL", sent.Header.Get("OCPI-from-country-code"))
}
