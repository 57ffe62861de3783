package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LineItemKind tells which invoice list a line item belongs to.
type LineItemKind string

const (
	LineItemToll      LineItemKind = "toll"
	LineItemFee       LineItemKind = "fee"
	LineItemViolation LineItemKind = "violation"
)

// InvoiceLineItem is one charge aggregated into an invoice.
type InvoiceLineItem struct {
	ID            string          `json:"id,omitempty"`
	Kind          LineItemKind    `json:"kind,omitempty"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	BookingNumber string          `json:"bookingNumber"`
	Date          Timestamp       `json:"date"`
}

// Invoice aggregates tolls, fees and violations billed to a company.
type Invoice struct {
	ID          string            `json:"id"`
	CompanyID   string            `json:"companyId"`
	CompanyName string            `json:"companyName,omitempty"`
	Date        Timestamp         `json:"date"`
	Status      InvoiceStatus     `json:"status"`
	Tolls       []InvoiceLineItem `json:"tolls"`
	Fees        []InvoiceLineItem `json:"fees"`
	Violations  []InvoiceLineItem `json:"violations"`
}

// InvoiceTotals sums line item amounts.
type InvoiceTotals struct {
	Tolls      decimal.Decimal `json:"tolls"`
	Fees       decimal.Decimal `json:"fees"`
	Violations decimal.Decimal `json:"violations"`
	Total      decimal.Decimal `json:"total"`
	Unpaid     decimal.Decimal `json:"unpaid"`
}

// BookingGroup holds the line items charged under one booking.
type BookingGroup struct {
	BookingNumber string            `json:"bookingNumber"`
	Items         []InvoiceLineItem `json:"items"`
	Totals        InvoiceTotals     `json:"totals"`
}

// InvoiceDetail is an invoice with derived totals and booking groups.
type InvoiceDetail struct {
	Invoice
	Totals   InvoiceTotals  `json:"totals"`
	Bookings []BookingGroup `json:"bookings"`
}

// InvoiceStatusUpdate changes an invoice's status.
type InvoiceStatusUpdate struct {
	Status InvoiceStatus `json:"status" validate:"required,oneof=Done New PaymentRequested Paid Failed"`
}

func (u *InvoiceStatusUpdate) Normalize() {}

func (u *InvoiceStatusUpdate) Validate() error {
	return validateStruct(u).orNil()
}

// LineItems flattens the three lists, tagging each item with its kind.
func (inv Invoice) LineItems() []InvoiceLineItem {
	items := make([]InvoiceLineItem, 0, len(inv.Tolls)+len(inv.Fees)+len(inv.Violations))
	for _, group := range []struct {
		kind  LineItemKind
		items []InvoiceLineItem
	}{
		{LineItemToll, inv.Tolls},
		{LineItemFee, inv.Fees},
		{LineItemViolation, inv.Violations},
	} {
		for _, item := range group.items {
			item.Kind = group.kind
			items = append(items, item)
		}
	}
	return items
}

// Detail computes totals and groups line items by booking number. Groups are
// ordered by booking number; items without a booking come last.
func (inv Invoice) Detail() InvoiceDetail {
	items := inv.LineItems()
	byBooking := make(map[string][]InvoiceLineItem)
	for _, item := range items {
		byBooking[item.BookingNumber] = append(byBooking[item.BookingNumber], item)
	}

	keys := make([]string, 0, len(byBooking))
	for k := range byBooking {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		switch {
		case keys[i] == "":
			return false
		case keys[j] == "":
			return true
		default:
			return keys[i] < keys[j]
		}
	})

	groups := make([]BookingGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, BookingGroup{
			BookingNumber: k,
			Items:         byBooking[k],
			Totals:        sumItems(byBooking[k]),
		})
	}

	return InvoiceDetail{Invoice: inv, Totals: sumItems(items), Bookings: groups}
}

func sumItems(items []InvoiceLineItem) InvoiceTotals {
	var t InvoiceTotals
	for _, item := range items {
		switch item.Kind {
		case LineItemToll:
			t.Tolls = t.Tolls.Add(item.Amount)
		case LineItemFee:
			t.Fees = t.Fees.Add(item.Amount)
		case LineItemViolation:
			t.Violations = t.Violations.Add(item.Amount)
		}
		t.Total = t.Total.Add(item.Amount)
		if item.PaymentStatus != PaymentPaid {
			t.Unpaid = t.Unpaid.Add(item.Amount)
		}
	}
	return t
}
