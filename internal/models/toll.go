package models

import (
	"github.com/shopspring/decimal"
)

// Toll is a single road-toll transaction charged to a tracked vehicle.
type Toll struct {
	ID              string          `json:"id"`
	PlateNumber     string          `json:"plateNumber"`
	PlateState      string          `json:"plateState"`
	Agency          string          `json:"agency"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate Timestamp       `json:"transactionDate"`
	PostingDate     Timestamp       `json:"postingDate"`
	IsCompleted     bool            `json:"isCompleted"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus"`
	VehicleID       string          `json:"vehicleId,omitempty"`
	BookingNumber   string          `json:"bookingNumber,omitempty"`
}

// TollUpdate holds the editable fields of a toll.
type TollUpdate struct {
	PlateNumber     string          `json:"plateNumber" validate:"required,max=16"`
	PlateState      string          `json:"plateState" validate:"required,len=2,alpha"`
	Agency          *string         `json:"agency"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate Timestamp       `json:"transactionDate"`
	PostingDate     *Timestamp      `json:"postingDate"`
	IsCompleted     bool            `json:"isCompleted"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" validate:"required,oneof=unpaid paid processing"`
	BookingNumber   *string         `json:"bookingNumber"`
	Note            *string         `json:"note"`
}

func (u *TollUpdate) Normalize() {
	u.PlateNumber = NormalizePlate(u.PlateNumber)
	u.PlateState = upperTrim(u.PlateState)
	u.Agency = nullIfBlank(u.Agency)
	u.BookingNumber = nullIfBlank(u.BookingNumber)
	u.Note = nullIfBlank(u.Note)
	if u.PostingDate != nil && u.PostingDate.IsZero() {
		u.PostingDate = nil
	}
}

func (u *TollUpdate) Validate() error {
	verr := validateStruct(u)
	if u.Amount.IsNegative() {
		verr.add("amount", "gte")
	}
	if u.TransactionDate.IsZero() {
		verr.add("transactionDate", "required")
	}
	if u.PostingDate != nil && u.PostingDate.Before(u.TransactionDate.Time) {
		verr.add("postingDate", "gtefield")
	}
	return verr.orNil()
}
