package model

import "github.com/example/ocpi-client/internal/ocpi"

// Price is an amount with and without VAT.
type Price struct {
	ExclVAT float64  `json:"excl_vat"`
	InclVAT *float64 `json:"incl_vat,omitempty"`
}

// CdrToken identifies the token used for a session or CDR.
type CdrToken struct {
	CountryCode string `json:"country_code"`
	PartyID     string `json:"party_id"`
	UID         string `json:"uid"`
	Type        string `json:"type"`
	ContractID  string `json:"contract_id"`
}

// Session is an ongoing or finished charging session.
type Session struct {
	CountryCode   string         `json:"country_code"`
	PartyID       string         `json:"party_id"`
	ID            string         `json:"id"`
	StartDateTime ocpi.DateTime  `json:"start_date_time"`
	EndDateTime   *ocpi.DateTime `json:"end_date_time,omitempty"`
	KWh           float64        `json:"kwh"`
	CdrToken      CdrToken       `json:"cdr_token"`
	AuthMethod    string         `json:"auth_method"`
	LocationID    string         `json:"location_id"`
	EvseUID       string         `json:"evse_uid"`
	ConnectorID   string         `json:"connector_id"`
	Currency      string         `json:"currency"`
	TotalCost     *Price         `json:"total_cost,omitempty"`
	Status        string         `json:"status"`
	LastUpdated   ocpi.DateTime  `json:"last_updated"`
}
