package models

import "github.com/shopspring/decimal"

// EZPassTransaction is a toll read reported by an E-ZPass authority.
type EZPassTransaction struct {
	ID            string          `json:"id"`
	VIN           string          `json:"vin"`
	PlateNumber   string          `json:"plateNumber"`
	TollAuthority string          `json:"tollAuthority"`
	EntryPlaza    string          `json:"entryPlaza"`
	ExitPlaza     string          `json:"exitPlaza"`
	EntryTime     Timestamp       `json:"entryTime"`
	ExitTime      Timestamp       `json:"exitTime"`
	Amount        decimal.Decimal `json:"amount"`
}
