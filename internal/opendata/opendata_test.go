package opendata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-tolls/internal/models"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

func TestWhereClause(t *testing.T) {
	assert.Equal(t, "plate in('ABC1234','O''NEIL')", whereClause([]string{"ABC1234", "O'NEIL"}))
}

func TestUniquePlates(t *testing.T) {
	assert.Equal(t, []string{"ABC123", "XYZ9"}, uniquePlates([]string{"abc 123", "ABC-123", "", "xyz9"}))
}

func TestClient_ViolationsByPlates(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "app-token", r.Header.Get("X-App-Token"))
		where := r.URL.Query().Get("$where")
		assert.True(t, strings.HasPrefix(where, "plate in("))
		assert.Equal(t, "1000", r.URL.Query().Get("$limit"))
		if strings.Contains(where, "'PLATE000'") {
			fmt.Fprint(w, `[{"plate":"PLATE000","state":"NY","summons_number":"1","amount_due":"115","fine_amount":"115"}]`)
			return
		}
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	plates := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		plates = append(plates, fmt.Sprintf("plate%03d", i))
	}

	client := NewClient(server.URL, "app-token", nil)
	rows, err := client.ViolationsByPlates(context.Background(), plates)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].AmountDue.Equal(decimal.NewFromInt(115)))
}

func TestClient_ViolationsByPlatesPages(t *testing.T) {
	const total = 1500
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		assert.Equal(t, "issue_date DESC, summons_number", q.Get("$order"))
		limit, err := strconv.Atoi(q.Get("$limit"))
		require.NoError(t, err)
		offset, err := strconv.Atoi(q.Get("$offset"))
		require.NoError(t, err)

		rows := make([]string, 0, limit)
		for i := offset; i < total && i < offset+limit; i++ {
			rows = append(rows, fmt.Sprintf(`{"plate":"ABC1","state":"NY","summons_number":"%d","amount_due":"1"}`, i))
		}
		fmt.Fprint(w, "["+strings.Join(rows, ",")+"]")
	}))
	defer server.Close()

	rows, err := NewClient(server.URL, "", nil).ViolationsByPlates(context.Background(), []string{"ABC1"})
	require.NoError(t, err)
	assert.Len(t, rows, total)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "0", rows[0].SummonsNumber)
	assert.Equal(t, "1499", rows[total-1].SummonsNumber)

	joined := Join([]models.Vehicle{{ID: "v1", PlateNumber: "ABC1", PlateState: "NY"}}, rows)
	require.Len(t, joined, 1)
	assert.True(t, joined[0].TotalDue.Equal(decimal.NewFromInt(total)))
}

func TestClient_NoPlatesNoCall(t *testing.T) {
	client := NewClient("http://127.0.0.1:0/never", "", nil)
	rows, err := client.ViolationsByPlates(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", nil).ViolationsByPlates(context.Background(), []string{"ABC"})
	apiErr, ok := upstream.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, upstream.KindRateLimited, apiErr.Kind)
	assert.Equal(t, upstream.ServiceOpenData, apiErr.Service)
}

func TestJoin(t *testing.T) {
	vehicles := []models.Vehicle{
		{ID: "v1", PlateNumber: "ABC-123", PlateState: "NY"},
		{ID: "v2", PlateNumber: "XYZ 9", PlateState: "NJ"},
		{ID: "v3", PlateNumber: "CLEAN1"},
	}
	violations := []models.NYCViolation{
		{Plate: "ABC123", State: "NY", SummonsNumber: "1", AmountDue: decimal.NewFromInt(65)},
		{Plate: "XYZ9", State: "NJ", SummonsNumber: "2", AmountDue: decimal.NewFromInt(115)},
		{Plate: "XYZ9", State: "NJ", SummonsNumber: "3", AmountDue: decimal.NewFromInt(50)},
		{Plate: "ABC123", State: "PA", SummonsNumber: "4", AmountDue: decimal.NewFromInt(999)},
	}

	got := Join(vehicles, violations)
	require.Len(t, got, 3)
	assert.Equal(t, "v2", got[0].Vehicle.ID)
	assert.True(t, got[0].TotalDue.Equal(decimal.NewFromInt(165)))
	assert.Len(t, got[0].Violations, 2)
	assert.Equal(t, "v1", got[1].Vehicle.ID)
	assert.Len(t, got[1].Violations, 1, "violation for the same plate in another state is not joined")
	assert.Equal(t, "v3", got[2].Vehicle.ID)
	assert.NotNil(t, got[2].Violations)
	assert.Empty(t, got[2].Violations)
}
