package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanworks/listings-api/internal/catalog"
	"github.com/scanworks/listings-api/pkg/metrics"
)

// stubCatalog is a programmable fake of the core surface.
type stubCatalog struct {
	gotFilters catalog.ListingFilters
	findRows   []catalog.Listing
	findTotal  int64
	findErr    error

	assembled   []catalog.ListingDetail
	assembleErr error

	gotBatch  []catalog.ListingInput
	upsertErr error
}

func (s *stubCatalog) FindListings(ctx context.Context, f catalog.ListingFilters) ([]catalog.Listing, int64, error) {
	s.gotFilters = f
	return s.findRows, s.findTotal, s.findErr
}

func (s *stubCatalog) AssembleListings(ctx context.Context, rows []catalog.Listing) ([]catalog.ListingDetail, error) {
	return s.assembled, s.assembleErr
}

func (s *stubCatalog) UpsertListings(ctx context.Context, batch []catalog.ListingInput) error {
	s.gotBatch = batch
	return s.upsertErr
}

type nopLogger struct{}

func (nopLogger) Info(msg string, err error, fields ...map[string]interface{})  {}
func (nopLogger) Debug(msg string, err error, fields ...map[string]interface{}) {}
func (nopLogger) Warn(msg string, err error, fields ...map[string]interface{})  {}
func (nopLogger) Error(msg string, err error, fields ...map[string]interface{}) {}
func (nopLogger) Fatal(msg string, err error, fields ...map[string]interface{}) {}

func newTestController(t *testing.T, core *stubCatalog) *Controller {
	t.Helper()
	return NewController(Config{}, core, nopLogger{}, metrics.NewMetrics(metrics.Config{ServiceName: "api-test"}))
}

func doRequest(c *Controller, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetListingsParsesFilters(t *testing.T) {
	core := &stubCatalog{}
	c := newTestController(t, core)

	query := url.Values{}
	query.Set("page", "2")
	query.Set("listing_id", "L-001")
	query.Set("scan_date_from", "2026-01-10T00:00:00Z")
	query.Set("scan_date_to", "2026-01-20 15:04:05")
	query.Set("is_active", "false")
	query.Add("image_hashes", "hash-a")
	query.Add("image_hashes", "hash-b")
	query.Set("dataset_entities", `{"brand":"Acme"}`)
	query.Set("property_filters", `{"123":"red","456":true}`)

	req := httptest.NewRequest(http.MethodGet, "/api/listings?"+query.Encode(), nil)
	rec := doRequest(c, req)
	require.Equal(t, http.StatusOK, rec.Code)

	f := core.gotFilters
	assert.Equal(t, 2, f.Page)
	require.NotNil(t, f.ListingID)
	assert.Equal(t, "L-001", *f.ListingID)

	require.NotNil(t, f.ScanDateFrom)
	assert.True(t, f.ScanDateFrom.Equal(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, f.ScanDateTo)
	assert.True(t, f.ScanDateTo.Equal(time.Date(2026, 1, 20, 15, 4, 5, 0, time.UTC)))

	require.NotNil(t, f.IsActive)
	assert.False(t, *f.IsActive)

	assert.Equal(t, []string{"hash-a", "hash-b"}, f.ImageHashes)
	assert.True(t, f.DatasetEntities.Equal(catalog.Document{"brand": "Acme"}))

	require.Len(t, f.PropertyFilters, 2)
	assert.Equal(t, "red", f.PropertyFilters[123])
	assert.Equal(t, true, f.PropertyFilters[456])
}

func TestGetListingsDefaults(t *testing.T) {
	core := &stubCatalog{}
	c := newTestController(t, core)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	f := core.gotFilters
	assert.Equal(t, 1, f.Page)
	assert.Nil(t, f.ListingID)
	assert.Nil(t, f.ScanDateFrom)
	assert.Nil(t, f.ScanDateTo)
	assert.Nil(t, f.IsActive)
	assert.Nil(t, f.ImageHashes)
	assert.Nil(t, f.DatasetEntities)
	assert.Nil(t, f.PropertyFilters)
}

func TestGetListingsRejectsBadParameters(t *testing.T) {
	cases := map[string]string{
		"NonIntegerPage":      "page=abc",
		"PageBelowOne":        "page=0",
		"BadScanDateFrom":     "scan_date_from=not-a-date",
		"BadScanDateTo":       "scan_date_to=2026-13-45",
		"BadIsActive":         "is_active=maybe",
		"BadEntityDocument":   "dataset_entities=%7Bnope",
		"BadPropertyDocument": "property_filters=%5B1%2C2%5D",
		"NonNumericPropertyID": "property_filters=" + url.QueryEscape(`{"abc":"red"}`),
	}

	for name, rawQuery := range cases {
		t.Run(name, func(t *testing.T) {
			core := &stubCatalog{}
			c := newTestController(t, core)

			rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/listings?"+rawQuery, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeError(t, rec)
			assert.Equal(t, "Validation failed", body.Error)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestGetListingsResponseShape(t *testing.T) {
	core := &stubCatalog{
		findRows:  []catalog.Listing{{ListingID: "L-001"}},
		findTotal: 42,
		assembled: []catalog.ListingDetail{
			{
				ListingID:   "L-001",
				IsActive:    true,
				ImageHashes: []string{"hash-a"},
				Properties: []catalog.PropertyValue{
					{Name: "color", Type: catalog.WireTypeString, Value: "red"},
				},
				Entities: []catalog.EntityDetail{
					{Name: "brand-acme", Data: catalog.Document{"brand": "Acme"}},
				},
			},
		},
	}
	c := newTestController(t, core)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ListingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(42), body.Total)
	require.Len(t, body.Listings, 1)
	assert.Equal(t, "L-001", body.Listings[0].ListingID)
	require.Len(t, body.Listings[0].Properties, 1)
	assert.Equal(t, "color", body.Listings[0].Properties[0].Name)
}

func TestGetListingsEmptyPage(t *testing.T) {
	core := &stubCatalog{findTotal: 0}
	c := newTestController(t, core)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// An empty page serializes as an empty array, never null
	assert.Contains(t, rec.Body.String(), `"listings":[]`)
}

func TestGetListingsStoreFailure(t *testing.T) {
	core := &stubCatalog{findErr: assert.AnError}
	c := newTestController(t, core)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Empty(t, body.Detail)
}

func TestGetListingsAssemblyFailure(t *testing.T) {
	core := &stubCatalog{assembleErr: assert.AnError}
	c := newTestController(t, core)

	rec := doRequest(c, httptest.NewRequest(http.MethodGet, "/api/listings", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeError(t, rec).Error)
}

func upsertRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPut, "/api/upsert", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestUpsertListings(t *testing.T) {
	core := &stubCatalog{}
	c := newTestController(t, core)

	rec := doRequest(c, upsertRequest(`{
		"listings": [
			{
				"listing_id": "L-001",
				"scan_date": "2026-01-10T12:00:00Z",
				"is_active": true,
				"image_hashes": ["hash-a", "hash-b"],
				"properties": [
					{"name": "color", "type": "str", "value": "red"},
					{"name": "refurbished", "type": "bool", "value": true}
				],
				"entities": [
					{"name": "brand-acme", "data": {"brand": "Acme"}}
				]
			}
		]
	}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var body UpsertResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Listings inserted/updated successfully.", body.Message)

	require.Len(t, core.gotBatch, 1)
	in := core.gotBatch[0]
	assert.Equal(t, "L-001", in.ListingID)
	assert.True(t, in.ScanDate.Equal(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)))
	assert.True(t, in.IsActive)
	assert.Equal(t, []string{"hash-a", "hash-b"}, in.ImageHashes)

	require.Len(t, in.Properties, 2)
	assert.Equal(t, catalog.PropertyInput{Name: "color", Type: "str", Value: "red"}, in.Properties[0])
	assert.Equal(t, catalog.PropertyInput{Name: "refurbished", Type: "bool", Value: true}, in.Properties[1])

	require.Len(t, in.Entities, 1)
	assert.Equal(t, "brand-acme", in.Entities[0].Name)
	assert.True(t, in.Entities[0].Data.Equal(catalog.Document{"brand": "Acme"}))
}

func TestUpsertRejectsMalformedBody(t *testing.T) {
	core := &stubCatalog{}
	c := newTestController(t, core)

	rec := doRequest(c, upsertRequest(`{"listings": [`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", decodeError(t, rec).Error)
	assert.Empty(t, core.gotBatch)
}

func TestUpsertRejectsShapeViolations(t *testing.T) {
	base := func(listing string) string {
		return `{"listings": [` + listing + `]}`
	}

	cases := map[string]string{
		"MissingListingID": base(`{"scan_date": "2026-01-10T12:00:00Z"}`),
		"BadScanDate":      base(`{"listing_id": "L-001", "scan_date": "yesterday"}`),
		"MissingPropertyName": base(`{"listing_id": "L-001", "scan_date": "2026-01-10T12:00:00Z",
			"properties": [{"type": "str", "value": "red"}]}`),
		"UnknownPropertyType": base(`{"listing_id": "L-001", "scan_date": "2026-01-10T12:00:00Z",
			"properties": [{"name": "color", "type": "int", "value": 3}]}`),
		"StringTypeWithBoolValue": base(`{"listing_id": "L-001", "scan_date": "2026-01-10T12:00:00Z",
			"properties": [{"name": "color", "type": "str", "value": true}]}`),
		"BoolTypeWithStringValue": base(`{"listing_id": "L-001", "scan_date": "2026-01-10T12:00:00Z",
			"properties": [{"name": "refurbished", "type": "bool", "value": "yes"}]}`),
		"MissingEntityName": base(`{"listing_id": "L-001", "scan_date": "2026-01-10T12:00:00Z",
			"entities": [{"data": {"brand": "Acme"}}]}`),
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			core := &stubCatalog{}
			c := newTestController(t, core)

			rec := doRequest(c, upsertRequest(body))
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

			resp := decodeError(t, rec)
			assert.Equal(t, "Schema validation failed", resp.Error)
			assert.NotEmpty(t, resp.Detail)
			assert.Empty(t, core.gotBatch)
		})
	}
}

func TestUpsertStoreFailure(t *testing.T) {
	core := &stubCatalog{upsertErr: assert.AnError}
	c := newTestController(t, core)

	rec := doRequest(c, upsertRequest(`{
		"listings": [{"listing_id": "L-001", "scan_date": "2026-01-10T12:00:00Z"}]
	}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeError(t, rec)
	assert.Equal(t, "Internal server error", body.Error)
	assert.Empty(t, body.Detail)
}
