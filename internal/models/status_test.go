package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentStatus_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    PaymentStatus
		wantErr bool
	}{
		{"code unpaid", `0`, PaymentUnpaid, false},
		{"code paid", `1`, PaymentPaid, false},
		{"code processing", `2`, PaymentProcessing, false},
		{"name", `"paid"`, PaymentPaid, false},
		{"mixed case", `"Processing"`, PaymentProcessing, false},
		{"null", `null`, "", false},
		{"empty", `""`, "", false},
		{"unknown code", `7`, "", true},
		{"unknown name", `"refunded"`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got PaymentStatus
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoiceStatus_UnmarshalJSON(t *testing.T) {
	var s InvoiceStatus
	require.NoError(t, json.Unmarshal([]byte(`"paymentrequested"`), &s))
	assert.Equal(t, InvoicePaymentRequested, s)

	require.NoError(t, json.Unmarshal([]byte(`4`), &s))
	assert.Equal(t, InvoiceFailed, s)

	assert.Error(t, json.Unmarshal([]byte(`"Cancelled"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`9`), &s))
}

func TestTimestamp(t *testing.T) {
	var ts struct {
		At Timestamp `json:"at"`
	}
	for _, in := range []string{
		`{"at":"2024-05-01T10:30:00Z"}`,
		`{"at":"2024-05-01T10:30:00"}`,
		`{"at":"2024-05-01T10:30:00.1234567"}`,
		`{"at":"2024-05-01 10:30:00"}`,
	} {
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.Equal(t, 2024, ts.At.Year())
		assert.Equal(t, 10, ts.At.Hour())
	}

	require.NoError(t, json.Unmarshal([]byte(`{"at":"05/01/2024"}`), &ts))
	assert.Equal(t, 5, int(ts.At.Month()))

	require.NoError(t, json.Unmarshal([]byte(`{"at":""}`), &ts))
	assert.True(t, ts.At.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"at":"yesterday"}`), &ts))

	out, err := json.Marshal(struct {
		At Timestamp `json:"at"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":null}`, string(out))
}
