package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/scanworks/listings-api/internal/catalog"
)

// Timestamp layouts accepted by the scan date query parameters.
var scanDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ListingsResponse is the response shape of GET /api/listings.
type ListingsResponse struct {
	Total    int64                   `json:"total"`
	Listings []catalog.ListingDetail `json:"listings"`
}

// GetListings handles GET /api/listings. It decodes the filter query
// parameters, runs the filtered page query and returns the hydrated
// listings together with the total match count.
func (c *Controller) GetListings(ctx echo.Context) error {
	filters, err := parseListingFilters(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Detail: err.Error(),
		})
	}

	reqCtx := ctx.Request().Context()

	rows, total, err := c.catalog.FindListings(reqCtx, filters)
	if err != nil {
		return c.internalError(ctx, "listing query failed", err)
	}

	details, err := c.catalog.AssembleListings(reqCtx, rows)
	if err != nil {
		return c.internalError(ctx, "listing assembly failed", err)
	}
	if details == nil {
		details = []catalog.ListingDetail{}
	}

	return ctx.JSON(http.StatusOK, ListingsResponse{
		Total:    total,
		Listings: details,
	})
}

// parseListingFilters decodes the filter dimensions from the query
// string. Every error it returns is caller-fixable and reported with
// enough detail to correct the request.
func parseListingFilters(ctx echo.Context) (catalog.ListingFilters, error) {
	filters := catalog.ListingFilters{Page: 1}

	if raw := ctx.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return filters, fmt.Errorf("page: %q is not an integer", raw)
		}
		if page < 1 {
			return filters, fmt.Errorf("page: must be >= 1, got %d", page)
		}
		filters.Page = page
	}

	if raw := ctx.QueryParam("listing_id"); raw != "" {
		filters.ListingID = &raw
	}

	if raw := ctx.QueryParam("scan_date_from"); raw != "" {
		from, err := parseScanDate(raw)
		if err != nil {
			return filters, fmt.Errorf("scan_date_from: %w", err)
		}
		filters.ScanDateFrom = &from
	}

	if raw := ctx.QueryParam("scan_date_to"); raw != "" {
		to, err := parseScanDate(raw)
		if err != nil {
			return filters, fmt.Errorf("scan_date_to: %w", err)
		}
		filters.ScanDateTo = &to
	}

	if raw := ctx.QueryParam("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filters, fmt.Errorf("is_active: %q is not a boolean", raw)
		}
		filters.IsActive = &active
	}

	if hashes, ok := ctx.QueryParams()["image_hashes"]; ok {
		filters.ImageHashes = hashes
	}

	if raw := ctx.QueryParam("dataset_entities"); raw != "" {
		var doc catalog.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return filters, fmt.Errorf("dataset_entities: not a JSON object: %v", err)
		}
		filters.DatasetEntities = doc
	}

	if raw := ctx.QueryParam("property_filters"); raw != "" {
		decoded := map[string]interface{}{}
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return filters, fmt.Errorf("property_filters: not a JSON object: %v", err)
		}

		propertyFilters := make(map[int64]interface{}, len(decoded))
		for key, value := range decoded {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return filters, fmt.Errorf("property_filters: key %q is not a property id", key)
			}
			propertyFilters[id] = value
		}
		filters.PropertyFilters = propertyFilters
	}

	return filters, nil
}

func parseScanDate(raw string) (time.Time, error) {
	for _, layout := range scanDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a recognized timestamp", raw)
}
