package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scanworks/listings-api/internal/catalog"
)

// UpsertRequest is the body shape of PUT /api/upsert.
type UpsertRequest struct {
	Listings []InsertListingShape `json:"listings"`
}

// InsertListingShape is one listing description of an upsert request.
type InsertListingShape struct {
	ListingID   string              `json:"listing_id"`
	ScanDate    string              `json:"scan_date"`
	IsActive    bool                `json:"is_active"`
	ImageHashes []string            `json:"image_hashes"`
	Properties  []InsertProperty    `json:"properties"`
	Entities    []InsertEntityShape `json:"entities"`
}

// InsertProperty is one property of a listing description. Type must be
// "str" or "bool" and Value must hold a matching JSON scalar.
type InsertProperty struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// InsertEntityShape is one dataset entity of a listing description.
type InsertEntityShape struct {
	Name string           `json:"name"`
	Data catalog.Document `json:"data"`
}

// UpsertResponse is the success shape of PUT /api/upsert.
type UpsertResponse struct {
	Message string `json:"message"`
}

// UpsertListings handles PUT /api/upsert. Malformed bodies yield 400,
// shape violations 422; a store failure rolls back the whole batch and
// yields a generic 500.
func (c *Controller) UpsertListings(ctx echo.Context) error {
	var req UpsertRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Detail: "request body is not valid JSON",
		})
	}

	batch, err := validateUpsertRequest(req)
	if err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "Schema validation failed",
			Detail: err.Error(),
		})
	}

	if err := c.catalog.UpsertListings(ctx.Request().Context(), batch); err != nil {
		return c.internalError(ctx, "upsert batch failed", err)
	}

	return ctx.JSON(http.StatusOK, UpsertResponse{
		Message: "Listings inserted/updated successfully.",
	})
}

// validateUpsertRequest checks the request shape and converts it into
// the core's batch input. Validation happens entirely before any store
// interaction.
func validateUpsertRequest(req UpsertRequest) ([]catalog.ListingInput, error) {
	batch := make([]catalog.ListingInput, 0, len(req.Listings))

	for i, shape := range req.Listings {
		if shape.ListingID == "" {
			return nil, fmt.Errorf("listings[%d]: listing_id is required", i)
		}

		scanDate, err := parseScanDate(shape.ScanDate)
		if err != nil {
			return nil, fmt.Errorf("listings[%d]: scan_date: %w", i, err)
		}

		in := catalog.ListingInput{
			ListingID:   shape.ListingID,
			ScanDate:    scanDate,
			IsActive:    shape.IsActive,
			ImageHashes: shape.ImageHashes,
		}

		for j, prop := range shape.Properties {
			if prop.Name == "" {
				return nil, fmt.Errorf("listings[%d].properties[%d]: name is required", i, j)
			}
			switch prop.Type {
			case catalog.WireTypeString:
				if _, ok := prop.Value.(string); !ok {
					return nil, fmt.Errorf("listings[%d].properties[%d]: value of %q must be a string", i, j, prop.Name)
				}
			case catalog.WireTypeBool:
				if _, ok := prop.Value.(bool); !ok {
					return nil, fmt.Errorf("listings[%d].properties[%d]: value of %q must be a boolean", i, j, prop.Name)
				}
			default:
				return nil, fmt.Errorf("listings[%d].properties[%d]: type must be %q or %q", i, j, catalog.WireTypeString, catalog.WireTypeBool)
			}
			in.Properties = append(in.Properties, catalog.PropertyInput{
				Name:  prop.Name,
				Type:  prop.Type,
				Value: prop.Value,
			})
		}

		for j, entity := range shape.Entities {
			if entity.Name == "" {
				return nil, fmt.Errorf("listings[%d].entities[%d]: name is required", i, j)
			}
			in.Entities = append(in.Entities, catalog.EntityInput{
				Name: entity.Name,
				Data: entity.Data,
			})
		}

		batch = append(batch, in)
	}

	return batch, nil
}
