package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTollUpdate_EmptyOptionalsBecomeNull(t *testing.T) {
	body := `{
		"plateNumber": "abc-123",
		"plateState": "ny",
		"agency": "",
		"amount": 12.5,
		"transactionDate": "2024-05-01T10:30:00Z",
		"postingDate": "",
		"isCompleted": true,
		"paymentStatus": "unpaid",
		"bookingNumber": "   ",
		"note": "disputed",
		"unexpected": "dropped"
	}`

	var u TollUpdate
	require.NoError(t, json.Unmarshal([]byte(body), &u))
	require.NoError(t, Prepare(&u))

	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"plateNumber": "ABC123",
		"plateState": "NY",
		"agency": null,
		"amount": 12.5,
		"transactionDate": "2024-05-01T10:30:00Z",
		"postingDate": null,
		"isCompleted": true,
		"paymentStatus": "unpaid",
		"bookingNumber": null,
		"note": "disputed"
	}`, string(out))
}

func TestTollUpdate_Validate(t *testing.T) {
	var u TollUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"plateState":"New York","amount":-1,"paymentStatus":""}`), &u))

	err := Prepare(&u)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Fields["plateNumber"])
	assert.Equal(t, "len", verr.Fields["plateState"])
	assert.Equal(t, "gte", verr.Fields["amount"])
	assert.Equal(t, "required", verr.Fields["transactionDate"])
	assert.Equal(t, "required", verr.Fields["paymentStatus"])
	assert.Contains(t, verr.Error(), "plateNumber")
}

func TestViolationUpdate_Prepare(t *testing.T) {
	u := ViolationUpdate{
		CitationNumber: " 4471823901 ",
		Tag:            "t 123",
		State:          "nj",
		IssueDate:      mustTimestamp(t, "2024-04-02"),
		Amount:         decimal.RequireFromString("65"),
		PaymentStatus:  PaymentUnpaid,
		PaymentLink:    strPtr(""),
		FineType:       strPtr("Parking"),
	}
	require.NoError(t, Prepare(&u))
	assert.Equal(t, "4471823901", u.CitationNumber)
	assert.Equal(t, "T123", u.Tag)
	assert.Equal(t, "NJ", u.State)
	assert.Equal(t, "USD", u.Currency)
	assert.Nil(t, u.PaymentLink)
	assert.Equal(t, "Parking", *u.FineType)

	u.PaymentLink = strPtr("not a url")
	var verr *ValidationError
	require.ErrorAs(t, Prepare(&u), &verr)
	assert.Equal(t, "url", verr.Fields["paymentLink"])

	u.PaymentLink = nil
	start, end := mustTimestamp(t, "2024-04-05"), mustTimestamp(t, "2024-04-01")
	u.StartDate, u.EndDate = &start, &end
	require.ErrorAs(t, Prepare(&u), &verr)
	assert.Equal(t, "gtefield", verr.Fields["endDate"])
}

func TestCompanyInput_Prepare(t *testing.T) {
	c := CompanyInput{Name: "  Acme Rentals ", State: "fl", IsActive: true}
	require.NoError(t, Prepare(&c))
	assert.Equal(t, "Acme Rentals", c.Name)
	assert.Equal(t, "FL", c.State)

	assert.Error(t, Prepare(&CompanyInput{State: "FL"}))
}

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "ABC1234", NormalizePlate("abc 12-34"))
	assert.Equal(t, "", NormalizePlate(" - "))
}

func mustTimestamp(t *testing.T, s string) Timestamp {
	t.Helper()
	ts, err := ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}

func strPtr(s string) *string { return &s }
