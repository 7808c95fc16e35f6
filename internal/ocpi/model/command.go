package model

// DisplayText is a localized message.
type DisplayText struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// CommandResult is posted to the response_url of an eMSP command.
type CommandResult struct {
	Result  string        `json:"result"`
	Message []DisplayText `json:"message,omitempty"`
}

// ChargingProfilePeriod is one step of a charging profile.
type ChargingProfilePeriod struct {
	StartPeriod int     `json:"start_period"`
	Limit       float64 `json:"limit"`
}

// ChargingProfile is a limit schedule applied to a session.
type ChargingProfile struct {
	StartDateTime    string                  `json:"start_date_time,omitempty"`
	Duration         int                     `json:"duration,omitempty"`
	ChargingRateUnit string                  `json:"charging_rate_unit"`
	MinChargingRate  float64                 `json:"min_charging_rate,omitempty"`
	Periods          []ChargingProfilePeriod `json:"charging_profile_period,omitempty"`
}

// ActiveChargingProfile is the profile currently in effect for a session.
type ActiveChargingProfile struct {
	StartDateTime   string          `json:"start_date_time"`
	ChargingProfile ChargingProfile `json:"charging_profile"`
}

// ActiveChargingProfileResult answers a GET ActiveChargingProfile request.
type ActiveChargingProfileResult struct {
	Result  string                 `json:"result"`
	Profile *ActiveChargingProfile `json:"profile,omitempty"`
}

// ChargingProfileResult answers a SET ChargingProfile request.
type ChargingProfileResult struct {
	Result string `json:"result"`
}

// ClearProfileResult answers a CLEAR ChargingProfile request.
type ClearProfileResult struct {
	Result string `json:"result"`
}
