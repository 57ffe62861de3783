package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParkingViolation is a parking or traffic citation charged to a tracked vehicle.
type ParkingViolation struct {
	ID             string          `json:"id"`
	CitationNumber string          `json:"citationNumber"`
	NoticeNumber   string          `json:"noticeNumber,omitempty"`
	Agency         string          `json:"agency"`
	Tag            string          `json:"tag"`
	State          string          `json:"state"`
	IssueDate      Timestamp       `json:"issueDate"`
	StartDate      Timestamp       `json:"startDate"`
	EndDate        Timestamp       `json:"endDate"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	FineType       string          `json:"fineType,omitempty"`
	PaymentLink    string          `json:"paymentLink,omitempty"`
	BookingNumber  string          `json:"bookingNumber,omitempty"`
}

// ViolationUpdate holds the editable fields of a parking violation.
type ViolationUpdate struct {
	CitationNumber string          `json:"citationNumber" validate:"required,max=64"`
	NoticeNumber   *string         `json:"noticeNumber"`
	Agency         *string         `json:"agency"`
	Tag            string          `json:"tag" validate:"required,max=16"`
	State          string          `json:"state" validate:"required,len=2,alpha"`
	IssueDate      Timestamp       `json:"issueDate"`
	StartDate      *Timestamp      `json:"startDate"`
	EndDate        *Timestamp      `json:"endDate"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency" validate:"len=3,alpha"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus" validate:"required,oneof=unpaid paid processing"`
	FineType       *string         `json:"fineType"`
	PaymentLink    *string         `json:"paymentLink" validate:"omitempty,url"`
	BookingNumber  *string         `json:"bookingNumber"`
}

func (u *ViolationUpdate) Normalize() {
	u.CitationNumber = strings.TrimSpace(u.CitationNumber)
	u.Tag = NormalizePlate(u.Tag)
	u.State = upperTrim(u.State)
	u.Currency = upperTrim(u.Currency)
	if u.Currency == "" {
		u.Currency = "USD"
	}
	u.NoticeNumber = nullIfBlank(u.NoticeNumber)
	u.Agency = nullIfBlank(u.Agency)
	u.FineType = nullIfBlank(u.FineType)
	u.PaymentLink = nullIfBlank(u.PaymentLink)
	u.BookingNumber = nullIfBlank(u.BookingNumber)
	if u.StartDate != nil && u.StartDate.IsZero() {
		u.StartDate = nil
	}
	if u.EndDate != nil && u.EndDate.IsZero() {
		u.EndDate = nil
	}
}

func (u *ViolationUpdate) Validate() error {
	verr := validateStruct(u)
	if u.Amount.IsNegative() {
		verr.add("amount", "gte")
	}
	if u.IssueDate.IsZero() {
		verr.add("issueDate", "required")
	}
	if u.StartDate != nil && u.EndDate != nil && u.EndDate.Before(u.StartDate.Time) {
		verr.add("endDate", "gtefield")
	}
	return verr.orNil()
}

func upperTrim(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
