package models

import "github.com/shopspring/decimal"

// NYCViolation is a row of the NYC Open Parking and Camera Violations dataset.
type NYCViolation struct {
	Plate           string          `json:"plate"`
	State           string          `json:"state"`
	LicenseType     string          `json:"license_type"`
	SummonsNumber   string          `json:"summons_number"`
	IssueDate       string          `json:"issue_date"`
	ViolationTime   string          `json:"violation_time,omitempty"`
	Violation       string          `json:"violation"`
	FineAmount      decimal.Decimal `json:"fine_amount"`
	PenaltyAmount   decimal.Decimal `json:"penalty_amount"`
	InterestAmount  decimal.Decimal `json:"interest_amount"`
	ReductionAmount decimal.Decimal `json:"reduction_amount"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	AmountDue       decimal.Decimal `json:"amount_due"`
	Precinct        string          `json:"precinct,omitempty"`
	County          string          `json:"county,omitempty"`
	IssuingAgency   string          `json:"issuing_agency,omitempty"`
	ViolationStatus string          `json:"violation_status,omitempty"`
	SummonsImage    *SummonsImage   `json:"summons_image,omitempty"`
}

type SummonsImage struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// VehicleViolations joins a fleet vehicle with its open-data violations.
type VehicleViolations struct {
	Vehicle    Vehicle         `json:"vehicle"`
	Violations []NYCViolation  `json:"violations"`
	TotalDue   decimal.Decimal `json:"totalDue"`
}
