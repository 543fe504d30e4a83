package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// EntityInput describes a dataset entity referenced by a listing
// description.
type EntityInput struct {
	Name string
	Data Document
}

// PropertyInput describes one typed property of a listing description.
// Type carries the wire tag ("str" or "bool") and Value must hold a
// value of the corresponding Go type.
type PropertyInput struct {
	Name  string
	Type  string
	Value interface{}
}

// ListingInput is one listing description of an upsert batch.
type ListingInput struct {
	ListingID   string
	ScanDate    time.Time
	IsActive    bool
	ImageHashes []string
	Properties  []PropertyInput
	Entities    []EntityInput
}

// UpsertListings creates or updates every listing of the batch together
// with its dataset entities, property definitions and property values.
// The whole batch runs in a single transaction: either every listing is
// persisted or none is. Change events are emitted after the commit.
func (s *Service) UpsertListings(ctx context.Context, batch []ListingInput) error {
	ctx, span := s.tracer.StartSpan(ctx, "catalog.upsert_listings")
	defer span.End()
	s.tracer.SetAttributes(span, map[string]interface{}{"batch_size": len(batch)})

	start := time.Now()
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		for _, in := range batch {
			if err := s.upsertListing(tx, in); err != nil {
				return fmt.Errorf("upserting listing %q: %w", in.ListingID, err)
			}
		}
		return nil
	})

	status := "ok"
	if err != nil {
		status = "error"
		s.tracer.RecordErrorOnSpan(span, err)
		s.logger.Error("upsert batch failed", err, map[string]interface{}{
			"batch_size": len(batch),
		})
	}
	s.upsertDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if err != nil {
		return err
	}

	s.upsertedTotal.Add(float64(len(batch)))
	s.publishUpserted(ctx, batch)

	return nil
}

// upsertListing reconciles a single listing description inside the batch
// transaction: entities first (their ids feed the listing row), then the
// listing row itself, then the property definitions and values.
func (s *Service) upsertListing(tx *gorm.DB, in ListingInput) error {
	entityIDs, err := s.reconcileEntities(tx, in.Entities)
	if err != nil {
		return err
	}

	if err := s.reconcileListingRow(tx, in, entityIDs); err != nil {
		return err
	}

	for _, prop := range in.Properties {
		if err := s.reconcileProperty(tx, in.ListingID, prop); err != nil {
			return err
		}
	}

	return nil
}

// reconcileEntities resolves each referenced entity by name, creating
// missing ones and rewriting data that differs. The returned ids keep
// the input order; duplicates are preserved, not deduplicated.
func (s *Service) reconcileEntities(tx *gorm.DB, entities []EntityInput) (pq.Int64Array, error) {
	entityIDs := make(pq.Int64Array, 0, len(entities))

	for _, in := range entities {
		var entity DatasetEntity
		err := tx.Where("name = ?", in.Name).First(&entity).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entity = DatasetEntity{Name: in.Name, Data: in.Data}
			if err := tx.Create(&entity).Error; err != nil {
				return nil, fmt.Errorf("creating entity %q: %w", in.Name, err)
			}
		case err != nil:
			return nil, fmt.Errorf("looking up entity %q: %w", in.Name, err)
		default:
			if !entity.Data.Equal(in.Data) {
				err := tx.Model(&DatasetEntity{}).
					Where("entity_id = ?", entity.EntityID).
					Update("data", in.Data).Error
				if err != nil {
					return nil, fmt.Errorf("updating entity %q: %w", in.Name, err)
				}
			}
		}

		entityIDs = append(entityIDs, entity.EntityID)
	}

	return entityIDs, nil
}

// reconcileListingRow creates the listing or fully replaces its fields.
// An update drops previously stored entity ids and image hashes that are
// absent from the new description.
func (s *Service) reconcileListingRow(tx *gorm.DB, in ListingInput, entityIDs pq.Int64Array) error {
	var existing Listing
	err := tx.Where("listing_id = ?", in.ListingID).First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		listing := Listing{
			ListingID:        in.ListingID,
			ScanDate:         in.ScanDate,
			IsActive:         in.IsActive,
			ImageHashes:      pq.StringArray(in.ImageHashes),
			DatasetEntityIDs: entityIDs,
		}
		if err := tx.Create(&listing).Error; err != nil {
			return fmt.Errorf("creating listing row: %w", err)
		}
	case err != nil:
		return fmt.Errorf("looking up listing row: %w", err)
	default:
		updates := map[string]interface{}{
			"scan_date":          in.ScanDate,
			"is_active":          in.IsActive,
			"image_hashes":       pq.StringArray(in.ImageHashes),
			"dataset_entity_ids": entityIDs,
		}
		err := tx.Model(&Listing{}).
			Where("listing_id = ?", in.ListingID).
			Updates(updates).Error
		if err != nil {
			return fmt.Errorf("updating listing row: %w", err)
		}
	}

	return nil
}

// reconcileProperty resolves the property definition by name (creating
// it with the declared type on first sight; the stored type is never
// migrated afterwards) and inserts or overwrites the value row in the
// table matching the submitted type tag.
func (s *Service) reconcileProperty(tx *gorm.DB, listingID string, in PropertyInput) error {
	storedType := PropertyTypeString
	if in.Type == WireTypeBool {
		storedType = PropertyTypeBoolean
	}

	var property Property
	err := tx.Where("name = ?", in.Name).First(&property).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		property = Property{Name: in.Name, Type: storedType}
		if err := tx.Create(&property).Error; err != nil {
			return fmt.Errorf("creating property %q: %w", in.Name, err)
		}
	case err != nil:
		return fmt.Errorf("looking up property %q: %w", in.Name, err)
	}

	switch in.Type {
	case WireTypeString:
		value, ok := in.Value.(string)
		if !ok {
			return fmt.Errorf("property %q: expected string value, got %T", in.Name, in.Value)
		}
		return s.upsertStringValue(tx, listingID, property.PropertyID, value)
	case WireTypeBool:
		value, ok := in.Value.(bool)
		if !ok {
			return fmt.Errorf("property %q: expected bool value, got %T", in.Name, in.Value)
		}
		return s.upsertBoolValue(tx, listingID, property.PropertyID, value)
	default:
		return fmt.Errorf("property %q: unknown type %q", in.Name, in.Type)
	}
}

func (s *Service) upsertStringValue(tx *gorm.DB, listingID string, propertyID int64, value string) error {
	var existing StringPropertyValue
	err := tx.Where("listing_id = ? AND property_id = ?", listingID, propertyID).First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := StringPropertyValue{ListingID: listingID, PropertyID: propertyID, Value: value}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating string value: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("looking up string value: %w", err)
	default:
		err := tx.Model(&StringPropertyValue{}).
			Where("listing_id = ? AND property_id = ?", listingID, propertyID).
			Update("value", value).Error
		if err != nil {
			return fmt.Errorf("updating string value: %w", err)
		}
		return nil
	}
}

func (s *Service) upsertBoolValue(tx *gorm.DB, listingID string, propertyID int64, value bool) error {
	var existing BoolPropertyValue
	err := tx.Where("listing_id = ? AND property_id = ?", listingID, propertyID).First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := BoolPropertyValue{ListingID: listingID, PropertyID: propertyID, Value: value}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("creating bool value: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("looking up bool value: %w", err)
	default:
		err := tx.Model(&BoolPropertyValue{}).
			Where("listing_id = ? AND property_id = ?", listingID, propertyID).
			Update("value", value).Error
		if err != nil {
			return fmt.Errorf("updating bool value: %w", err)
		}
		return nil
	}
}
