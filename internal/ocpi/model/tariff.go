package model

import "github.com/example/ocpi-client/internal/ocpi"

// PriceComponent is one priced dimension of a tariff element.
type PriceComponent struct {
	Type     string  `json:"type"`
	Price    float64 `json:"price"`
	VAT      float64 `json:"vat,omitempty"`
	StepSize int     `json:"step_size"`
}

// TariffElement groups price components under optional restrictions.
type TariffElement struct {
	PriceComponents []PriceComponent `json:"price_components"`
}

// Tariff describes how a charging session is priced.
type Tariff struct {
	CountryCode string          `json:"country_code"`
	PartyID     string          `json:"party_id"`
	ID          string          `json:"id"`
	Currency    string          `json:"currency"`
	Type        string          `json:"type,omitempty"`
	Elements    []TariffElement `json:"elements"`
	StartDate   *ocpi.DateTime  `json:"start_date_time,omitempty"`
	EndDate     *ocpi.DateTime  `json:"end_date_time,omitempty"`
	LastUpdated ocpi.DateTime   `json:"last_updated"`
}
