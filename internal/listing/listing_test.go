package listing

import (
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toll struct {
	Plate  string
	Amount decimal.Decimal
	At     time.Time
	Paid   bool
}

var columns = []Column[toll]{
	{Key: "plate", Header: "Plate", Value: func(t toll) any { return t.Plate }},
	{Key: "amount", Header: "Amount", Value: func(t toll) any { return t.Amount }},
	{Key: "at", Header: "Date", Value: func(t toll) any { return t.At }},
	{Key: "paid", Header: "Paid", Value: func(t toll) any { return t.Paid }},
}

func makeTolls(n int) []toll {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]toll, n)
	for i := range rows {
		rows[i] = toll{
			Plate:  fmt.Sprintf("PL%03d", i),
			Amount: decimal.NewFromInt(int64(n - i)),
			At:     base.Add(time.Duration(i) * time.Hour),
			Paid:   i%2 == 0,
		}
	}
	return rows
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{}, 25, 500)
	require.NoError(t, err)
	assert.Equal(t, Query{Page: 1, PageSize: 25}, q)

	q, err = ParseQuery(url.Values{"q": {" gwb "}, "sort": {"amount"}, "order": {"DESC"}, "page": {"3"}, "page_size": {"1000"}}, 25, 500)
	require.NoError(t, err)
	assert.Equal(t, Query{Search: "gwb", SortBy: "amount", Desc: true, Page: 3, PageSize: 500}, q)

	for _, bad := range []url.Values{
		{"page": {"0"}},
		{"page": {"two"}},
		{"page_size": {"-5"}},
		{"order": {"sideways"}},
	} {
		_, err := ParseQuery(bad, 25, 500)
		assert.True(t, errors.Is(err, ErrInvalidQuery), bad.Encode())
	}
}

func TestApply_Paginates(t *testing.T) {
	rows := makeTolls(53)

	page, err := Apply(rows, columns, Query{Page: 1, PageSize: 25})
	require.NoError(t, err)
	assert.Len(t, page.Items, 25)
	assert.Equal(t, 53, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	page, _ = Apply(rows, columns, Query{Page: 3, PageSize: 25})
	assert.Len(t, page.Items, 3)
	assert.Equal(t, "PL050", page.Items[0].Plate)

	page, _ = Apply(rows, columns, Query{Page: 4, PageSize: 25})
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 53, page.Total)
}

func TestApply_SortAndSearch(t *testing.T) {
	rows := makeTolls(10)

	page, err := Apply(rows, columns, Query{SortBy: "amount", Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, "PL009", page.Items[0].Plate)

	page, _ = Apply(rows, columns, Query{SortBy: "at", Desc: true, Page: 1, PageSize: 1})
	assert.Equal(t, "PL009", page.Items[0].Plate)

	page, _ = Apply(rows, columns, Query{SortBy: "paid", Page: 1, PageSize: 10})
	assert.False(t, page.Items[0].Paid)
	assert.True(t, page.Items[9].Paid)

	page, _ = Apply(rows, columns, Query{Search: "pl00", Page: 1, PageSize: 100})
	assert.Equal(t, 10, page.Total)

	page, _ = Apply(rows, columns, Query{Search: "pl007", Page: 1, PageSize: 100})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "PL007", page.Items[0].Plate)

	_, err = Apply(rows, columns, Query{SortBy: "driver", Page: 1, PageSize: 10})
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestArrange_DoesNotModifyInput(t *testing.T) {
	rows := makeTolls(5)
	_, err := Arrange(rows, columns, Query{SortBy: "amount"})
	require.NoError(t, err)
	assert.Equal(t, "PL000", rows[0].Plate)
}

func TestText(t *testing.T) {
	s := "x"
	var nilStr *string
	assert.Equal(t, "12.50", Text(decimal.RequireFromString("12.5")))
	assert.Equal(t, "2024-01-02 03:04", Text(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, "", Text(time.Time{}))
	assert.Equal(t, "Yes", Text(true))
	assert.Equal(t, "x", Text(&s))
	assert.Equal(t, "", Text(nilStr))
	assert.Equal(t, "7", Text(7))
}
