package client

import (
	"errors"
	"strings"

	"github.com/example/ocpi-client/internal/ocpi"
)

// ObjectRef addresses a party-owned object such as a tariff or session.
type ObjectRef struct {
	CountryCode string
	PartyID     string
	ID          string
}

func (r ObjectRef) check(field string) error {
	return errors.Join(checkParty(r.CountryCode, r.PartyID), checkID(field, r.ID))
}

func (r ObjectRef) segments() []string {
	return []string{upper(r.CountryCode), upper(r.PartyID), strings.TrimSpace(r.ID)}
}

func objectRef(req Request) ObjectRef {
	return ObjectRef{CountryCode: req.CountryCode, PartyID: req.PartyID, ID: req.ID}
}

// LocationRef addresses a Location, one of its EVSEs or one of their
// Connectors. ConnectorID requires EVSEUID.
type LocationRef struct {
	CountryCode string
	PartyID     string
	LocationID  string
	EVSEUID     string
	ConnectorID string
}

func (r LocationRef) check(depth int) error {
	errs := []error{checkParty(r.CountryCode, r.PartyID), checkID("location_id", r.LocationID)}
	if depth >= 1 {
		errs = append(errs, checkID("evse_uid", r.EVSEUID))
	}
	if depth >= 2 {
		errs = append(errs, checkID("connector_id", r.ConnectorID))
	}
	return errors.Join(errs...)
}

// at clears the identifiers below depth: 0 addresses the Location, 1 an EVSE,
// 2 a Connector.
func (r LocationRef) at(depth int) LocationRef {
	if depth < 2 {
		r.ConnectorID = ""
	}
	if depth < 1 {
		r.EVSEUID = ""
	}
	return r
}

func (r LocationRef) segments() []string {
	return []string{
		upper(r.CountryCode),
		upper(r.PartyID),
		strings.TrimSpace(r.LocationID),
		strings.TrimSpace(r.EVSEUID),
		strings.TrimSpace(r.ConnectorID),
	}
}

func locationRef(req Request) LocationRef {
	return LocationRef{
		CountryCode: req.CountryCode,
		PartyID:     req.PartyID,
		LocationID:  req.ID,
		EVSEUID:     req.EVSEUID,
		ConnectorID: req.ConnectorID,
	}
}

func checkParty(countryCode, partyID string) error {
	_, ccErr := ocpi.NormalizeCountryCode(countryCode)
	_, pidErr := ocpi.NormalizePartyID(partyID)
	return errors.Join(ccErr, pidErr)
}

func checkID(field, value string) error {
	_, err := ocpi.ValidateIdentifier(field, value)
	return err
}

func checkURL(value string) error {
	_, err := ocpi.ValidateHTTPURL(value)
	return err
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
