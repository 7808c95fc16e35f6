package model

import "github.com/example/ocpi-client/internal/ocpi"

// CdrLocation is the snapshot of the location used in a CDR.
type CdrLocation struct {
	ID                 string      `json:"id"`
	Address            string      `json:"address"`
	City               string      `json:"city"`
	Country            string      `json:"country"`
	Coordinates        GeoLocation `json:"coordinates"`
	EvseUID            string      `json:"evse_uid"`
	EvseID             string      `json:"evse_id"`
	ConnectorID        string      `json:"connector_id"`
	ConnectorStandard  string      `json:"connector_standard"`
	ConnectorFormat    string      `json:"connector_format"`
	ConnectorPowerType string      `json:"connector_power_type"`
}

// CDR is a charge detail record.
type CDR struct {
	CountryCode   string        `json:"country_code"`
	PartyID       string        `json:"party_id"`
	ID            string        `json:"id"`
	StartDateTime ocpi.DateTime `json:"start_date_time"`
	EndDateTime   ocpi.DateTime `json:"end_date_time"`
	SessionID     string        `json:"session_id,omitempty"`
	CdrToken      CdrToken      `json:"cdr_token"`
	AuthMethod    string        `json:"auth_method"`
	CdrLocation   CdrLocation   `json:"cdr_location"`
	Currency      string        `json:"currency"`
	TotalCost     Price         `json:"total_cost"`
	TotalEnergy   float64       `json:"total_energy"`
	TotalTime     float64       `json:"total_time"`
	LastUpdated   ocpi.DateTime `json:"last_updated"`
}
