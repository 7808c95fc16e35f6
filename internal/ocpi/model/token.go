package model

import "github.com/example/ocpi-client/internal/ocpi"

// Token is an authorization token issued by the eMSP.
type Token struct {
	CountryCode string        `json:"country_code"`
	PartyID     string        `json:"party_id"`
	UID         string        `json:"uid"`
	Type        string        `json:"type"`
	ContractID  string        `json:"contract_id"`
	VisualNum   string        `json:"visual_number,omitempty"`
	Issuer      string        `json:"issuer"`
	Valid       bool          `json:"valid"`
	Whitelist   string        `json:"whitelist"`
	Language    string        `json:"language,omitempty"`
	LastUpdated ocpi.DateTime `json:"last_updated"`
}

// LocationReferences limits a real-time authorization to a location and EVSEs.
type LocationReferences struct {
	LocationID string   `json:"location_id"`
	EvseUIDs   []string `json:"evse_uids,omitempty"`
}

// AuthorizationInfo is the eMSP answer to a real-time authorization request.
type AuthorizationInfo struct {
	Allowed                string              `json:"allowed"`
	Token                  Token               `json:"token"`
	Location               *LocationReferences `json:"location,omitempty"`
	AuthorizationReference string              `json:"authorization_reference,omitempty"`
}
