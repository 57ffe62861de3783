package models

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID          string `json:"id"`
	VIN         string `json:"vin"`
	PlateNumber string `json:"plateNumber"`
	PlateState  string `json:"plateState"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year,omitempty"`
	IsActive    bool   `json:"isActive"`
}
