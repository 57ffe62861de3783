package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PaymentStatus of a toll, violation or invoice line item.
type PaymentStatus string

const (
	PaymentUnpaid     PaymentStatus = "unpaid"
	PaymentPaid       PaymentStatus = "paid"
	PaymentProcessing PaymentStatus = "processing"
)

// paymentCodes maps the numeric codes some upstream endpoints send.
var paymentCodes = map[int]PaymentStatus{
	0: PaymentUnpaid,
	1: PaymentPaid,
	2: PaymentProcessing,
}

// ParsePaymentStatus accepts a status name in any case.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentUnpaid:
		return PaymentUnpaid, nil
	case PaymentPaid:
		return PaymentPaid, nil
	case PaymentProcessing:
		return PaymentProcessing, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", s)
	}
}

func (p *PaymentStatus) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		status, ok := paymentCodes[code]
		if !ok {
			return fmt.Errorf("unknown payment status code %d", code)
		}
		*p = status
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("payment status must be a string or code: %w", err)
	}
	if s == "" {
		*p = ""
		return nil
	}
	status, err := ParsePaymentStatus(s)
	if err != nil {
		return err
	}
	*p = status
	return nil
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDone             InvoiceStatus = "Done"
	InvoiceNew              InvoiceStatus = "New"
	InvoicePaymentRequested InvoiceStatus = "PaymentRequested"
	InvoicePaid             InvoiceStatus = "Paid"
	InvoiceFailed           InvoiceStatus = "Failed"
)

// invoiceStatuses is ordered by the upstream enum's numeric value.
var invoiceStatuses = []InvoiceStatus{InvoiceDone, InvoiceNew, InvoicePaymentRequested, InvoicePaid, InvoiceFailed}

func (s *InvoiceStatus) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		if code < 0 || code >= len(invoiceStatuses) {
			return fmt.Errorf("unknown invoice status code %d", code)
		}
		*s = invoiceStatuses[code]
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invoice status must be a string or code: %w", err)
	}
	if raw == "" {
		*s = ""
		return nil
	}
	for _, known := range invoiceStatuses {
		if strings.EqualFold(string(known), raw) {
			*s = known
			return nil
		}
	}
	return fmt.Errorf("unknown invoice status %q", raw)
}
