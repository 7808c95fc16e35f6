// Package model holds the OCPI objects exchanged by the client. Only the
// fields the client reads or routes on are typed; JSON round-trips keep the rest
// out of scope.
package model

import "github.com/example/ocpi-client/internal/ocpi"

// GeoLocation is a WGS84 coordinate pair encoded as decimal strings.
type GeoLocation struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// Connector is a single socket or cable of an EVSE.
type Connector struct {
	ID                 string        `json:"id"`
	Standard           string        `json:"standard"`
	Format             string        `json:"format"`
	PowerType          string        `json:"power_type"`
	MaxVoltage         int           `json:"max_voltage"`
	MaxAmperage        int           `json:"max_amperage"`
	MaxElectricPower   int           `json:"max_electric_power,omitempty"`
	TariffIDs          []string      `json:"tariff_ids,omitempty"`
	TermsAndConditions string        `json:"terms_and_conditions,omitempty"`
	LastUpdated        ocpi.DateTime `json:"last_updated"`
}

// EVSE is a charging unit at a Location.
type EVSE struct {
	UID          string        `json:"uid"`
	EvseID       string        `json:"evse_id,omitempty"`
	Status       string        `json:"status"`
	Capabilities []string      `json:"capabilities,omitempty"`
	Connectors   []Connector   `json:"connectors"`
	FloorLevel   string        `json:"floor_level,omitempty"`
	Coordinates  *GeoLocation  `json:"coordinates,omitempty"`
	PhysicalRef  string        `json:"physical_reference,omitempty"`
	LastUpdated  ocpi.DateTime `json:"last_updated"`
}

// Location is a charging site.
type Location struct {
	CountryCode string        `json:"country_code"`
	PartyID     string        `json:"party_id"`
	ID          string        `json:"id"`
	Publish     bool          `json:"publish"`
	Name        string        `json:"name,omitempty"`
	Address     string        `json:"address"`
	City        string        `json:"city"`
	PostalCode  string        `json:"postal_code,omitempty"`
	Country     string        `json:"country"`
	Coordinates GeoLocation   `json:"coordinates"`
	EVSEs       []EVSE        `json:"evses,omitempty"`
	TimeZone    string        `json:"time_zone"`
	LastUpdated ocpi.DateTime `json:"last_updated"`
}
