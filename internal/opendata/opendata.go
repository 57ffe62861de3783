// Package opendata queries the NYC Open Parking and Camera Violations dataset
// (a Socrata API) and joins the results onto the fleet's vehicles.
package opendata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ukydev/fleet-tolls/internal/models"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

const (
	DefaultBaseURL = "https://data.cityofnewyork.us/resource/nc67-re7n.json"

	batchSize = 50
	pageSize  = 1000
	maxPages  = 100
)

// ErrTooManyRows is returned when a batch of plates matches more rows than
// the client is willing to page through.
var ErrTooManyRows = errors.New("open data query matched too many rows")

// Client queries a Socrata dataset.
type Client struct {
	baseURL  string
	appToken string
	http     *http.Client
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, appToken string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{baseURL: baseURL, appToken: appToken, http: httpClient}
}

// ViolationsByPlates returns every violation issued to any of plates.
// Plates are normalised and de-duplicated and queried in batches.
func (c *Client) ViolationsByPlates(ctx context.Context, plates []string) ([]models.NYCViolation, error) {
	unique := uniquePlates(plates)
	out := []models.NYCViolation{}
	for start := 0; start < len(unique); start += batchSize {
		end := min(start+batchSize, len(unique))
		rows, err := c.query(ctx, unique[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// query pages through every row matching plates. A page shorter than
// pageSize is the last one.
func (c *Client) query(ctx context.Context, plates []string) ([]models.NYCViolation, error) {
	var out []models.NYCViolation
	for n := 0; n < maxPages; n++ {
		rows, err := c.page(ctx, plates, n*pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
		if len(rows) < pageSize {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: more than %d rows for %d plates", ErrTooManyRows, maxPages*pageSize, len(plates))
}

func (c *Client) page(ctx context.Context, plates []string, offset int) ([]models.NYCViolation, error) {
	q := url.Values{}
	q.Set("$where", whereClause(plates))
	q.Set("$limit", strconv.Itoa(pageSize))
	q.Set("$offset", strconv.Itoa(offset))
	// summons_number is unique, so pages never overlap or skip rows.
	q.Set("$order", "issue_date DESC, summons_number")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &upstream.APIError{Service: upstream.ServiceOpenData, Kind: upstream.KindNetwork, Message: "open data API unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &upstream.APIError{Service: upstream.ServiceOpenData, Kind: upstream.KindNetwork, Message: "failed to read open data response", Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, upstream.NewStatusError(upstream.ServiceOpenData, resp.StatusCode, resp.Header, body, time.Now())
	}

	var rows []models.NYCViolation
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode open data response: %w", err)
	}
	return rows, nil
}

// whereClause builds a SoQL filter such as plate in('ABC1234','XYZ9').
func whereClause(plates []string) string {
	quoted := make([]string, len(plates))
	for i, p := range plates {
		quoted[i] = "'" + strings.ReplaceAll(p, "'", "''") + "'"
	}
	return "plate in(" + strings.Join(quoted, ",") + ")"
}

func uniquePlates(plates []string) []string {
	seen := make(map[string]bool, len(plates))
	out := make([]string, 0, len(plates))
	for _, p := range plates {
		n := models.NormalizePlate(p)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Join attaches violations to the vehicles whose plate they were issued to.
// Every vehicle appears once; results are ordered by amount due, highest first.
func Join(vehicles []models.Vehicle, violations []models.NYCViolation) []models.VehicleViolations {
	byPlate := make(map[string][]models.NYCViolation)
	for _, v := range violations {
		key := models.NormalizePlate(v.Plate)
		byPlate[key] = append(byPlate[key], v)
	}

	out := make([]models.VehicleViolations, 0, len(vehicles))
	for _, vehicle := range vehicles {
		matched := byPlate[models.NormalizePlate(vehicle.PlateNumber)]
		res := models.VehicleViolations{Vehicle: vehicle, Violations: []models.NYCViolation{}}
		for _, v := range matched {
			if vehicle.PlateState != "" && v.State != "" && !strings.EqualFold(vehicle.PlateState, v.State) {
				continue
			}
			res.Violations = append(res.Violations, v)
			res.TotalDue = res.TotalDue.Add(v.AmountDue)
		}
		out = append(out, res)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalDue.GreaterThan(out[j].TotalDue)
	})
	return out
}
