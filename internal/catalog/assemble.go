package catalog

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// hydrateConcurrency bounds how many listings of a page are hydrated at
// the same time.
const hydrateConcurrency = 8

// PropertyValue is one typed property attached to a listing, with the
// wire-level type tag ("str" or "bool").
type PropertyValue struct {
	Name  string      `json:"name"`
	Type  string      `json:"type"`
	Value interface{} `json:"value"`
}

// EntityDetail is a resolved dataset entity as returned to callers.
type EntityDetail struct {
	Name string   `json:"name"`
	Data Document `json:"data"`
}

// ListingDetail is the denormalized listing shape: the listing row plus
// its typed properties and resolved dataset entities.
type ListingDetail struct {
	ListingID        string          `json:"listing_id"`
	ScanDate         time.Time       `json:"scan_date"`
	IsActive         bool            `json:"is_active"`
	DatasetEntityIDs []int64         `json:"dataset_entity_ids"`
	ImageHashes      []string        `json:"image_hashes"`
	Properties       []PropertyValue `json:"properties"`
	Entities         []EntityDetail  `json:"entities"`
}

// AssembleListings hydrates a page of listing rows into their
// denormalized shape. Listings hydrate concurrently; the returned slice
// preserves the input order.
func (s *Service) AssembleListings(ctx context.Context, rows []Listing) ([]ListingDetail, error) {
	ctx, span := s.tracer.StartSpan(ctx, "catalog.assemble_listings")
	defer span.End()
	s.tracer.SetAttributes(span, map[string]interface{}{"listings": len(rows)})

	details := make([]ListingDetail, len(rows))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(hydrateConcurrency)

	for i, row := range rows {
		group.Go(func() error {
			detail, err := s.hydrateListing(groupCtx, row)
			if err != nil {
				return err
			}
			details[i] = detail
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		s.tracer.RecordErrorOnSpan(span, err)
		return nil, err
	}
	return details, nil
}

// propertyRow is the join projection of a value row with its property
// definition.
type propertyRow struct {
	Name        string
	StringValue string
	BoolValue   bool
}

// hydrateListing gathers the typed properties and resolved entities of a
// single listing. All string-typed properties come first, then all
// boolean-typed ones; ordering within a type group is not defined.
// Entity ids with no matching row are silently dropped.
func (s *Service) hydrateListing(ctx context.Context, row Listing) (ListingDetail, error) {
	detail := ListingDetail{
		ListingID:        row.ListingID,
		ScanDate:         row.ScanDate,
		IsActive:         row.IsActive,
		DatasetEntityIDs: row.DatasetEntityIDs,
		ImageHashes:      row.ImageHashes,
		Properties:       []PropertyValue{},
		Entities:         []EntityDetail{},
	}

	var stringRows []propertyRow
	err := s.db.Query(ctx).
		Model(&StringPropertyValue{}).
		Select("properties.name AS name, property_values_str.value AS string_value").
		Joins("JOIN properties ON properties.property_id = property_values_str.property_id").
		Where("property_values_str.listing_id = ?", row.ListingID).
		Scan(&stringRows)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("loading string properties of %q: %w", row.ListingID, err)
	}
	for _, pr := range stringRows {
		detail.Properties = append(detail.Properties, PropertyValue{
			Name:  pr.Name,
			Type:  WireTypeString,
			Value: pr.StringValue,
		})
	}

	var boolRows []propertyRow
	err = s.db.Query(ctx).
		Model(&BoolPropertyValue{}).
		Select("properties.name AS name, property_values_bool.value AS bool_value").
		Joins("JOIN properties ON properties.property_id = property_values_bool.property_id").
		Where("property_values_bool.listing_id = ?", row.ListingID).
		Scan(&boolRows)
	if err != nil {
		return ListingDetail{}, fmt.Errorf("loading bool properties of %q: %w", row.ListingID, err)
	}
	for _, pr := range boolRows {
		detail.Properties = append(detail.Properties, PropertyValue{
			Name:  pr.Name,
			Type:  WireTypeBool,
			Value: pr.BoolValue,
		})
	}

	if len(row.DatasetEntityIDs) > 0 {
		var entities []DatasetEntity
		err = s.db.Query(ctx).
			Where("entity_id IN ?", []int64(row.DatasetEntityIDs)).
			Find(&entities)
		if err != nil {
			return ListingDetail{}, fmt.Errorf("loading entities of %q: %w", row.ListingID, err)
		}
		for _, entity := range entities {
			detail.Entities = append(detail.Entities, EntityDetail{
				Name: entity.Name,
				Data: entity.Data,
			})
		}
	}

	return detail, nil
}
