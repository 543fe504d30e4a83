package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/scanworks/listings-api/pkg/postgres"
)

// FindListings returns one page of listings matching the filter set plus
// the total number of matches before pagination. Results are ordered by
// listing_id ascending; the page is 1-indexed with a fixed size of
// PageSize rows. An empty result is not an error.
func (s *Service) FindListings(ctx context.Context, f ListingFilters) ([]Listing, int64, error) {
	ctx, span := s.tracer.StartSpan(ctx, "catalog.find_listings")
	defer span.End()
	s.tracer.SetAttributes(span, map[string]interface{}{"page": f.page()})

	start := time.Now()
	rows, total, err := s.findListings(ctx, f)

	status := "ok"
	if err != nil {
		status = "error"
		s.tracer.RecordErrorOnSpan(span, err)
		s.logger.Error("listing query failed", err, nil)
	}
	s.queryDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	return rows, total, err
}

func (s *Service) findListings(ctx context.Context, f ListingFilters) ([]Listing, int64, error) {
	entityIDs, entityFiltered, err := s.matchingEntityIDs(ctx, f.DatasetEntities)
	if err != nil {
		return nil, 0, err
	}
	if entityFiltered && len(entityIDs) == 0 {
		// No entity document contains the supplied partial document, so
		// nothing can match regardless of the other filters.
		return nil, 0, nil
	}

	listingIDs, propertyFiltered, err := s.propertyFilterListingIDs(ctx, f.PropertyFilters)
	if err != nil {
		return nil, 0, err
	}
	if propertyFiltered && len(listingIDs) == 0 {
		return nil, 0, nil
	}

	apply := func(qb *postgres.QueryBuilder) *postgres.QueryBuilder {
		if f.ListingID != nil {
			qb = qb.Where("listing_id = ?", *f.ListingID)
		}
		if f.ScanDateFrom != nil {
			qb = qb.Where("scan_date >= ?", *f.ScanDateFrom)
		}
		if f.ScanDateTo != nil {
			qb = qb.Where("scan_date <= ?", *f.ScanDateTo)
		}
		if f.IsActive != nil {
			qb = qb.Where("is_active = ?", *f.IsActive)
		}
		if len(f.ImageHashes) > 0 {
			qb = qb.Where("image_hashes && ?", pq.StringArray(f.ImageHashes))
		}
		if entityFiltered {
			qb = qb.Where("dataset_entity_ids && ?", pq.Int64Array(entityIDs))
		}
		if propertyFiltered {
			qb = qb.Where("listing_id IN ?", listingIDs)
		}
		return qb
	}

	// total is computed with the identical predicate so the count never
	// drifts from the page query.
	var total int64
	if err := apply(s.db.Query(ctx).Model(&Listing{})).Count(&total); err != nil {
		return nil, 0, fmt.Errorf("counting listings: %w", err)
	}

	var rows []Listing
	err = apply(s.db.Query(ctx).Model(&Listing{})).
		Order("listing_id ASC").
		Offset((f.page() - 1) * PageSize).
		Limit(PageSize).
		Find(&rows)
	if err != nil {
		return nil, 0, fmt.Errorf("querying listings: %w", err)
	}

	return rows, total, nil
}

// matchingEntityIDs resolves stage one of the dataset-entity filter: the
// ids of all entities whose data document contains the supplied partial
// document. The second return value reports whether the filter was set
// at all, so callers can tell "no filter" apart from "no match".
func (s *Service) matchingEntityIDs(ctx context.Context, partial Document) ([]int64, bool, error) {
	if len(partial) == 0 {
		return nil, false, nil
	}

	raw, err := json.Marshal(partial)
	if err != nil {
		return nil, false, fmt.Errorf("encoding dataset entity filter: %w", err)
	}

	var ids []int64
	err = s.db.Query(ctx).
		Model(&DatasetEntity{}).
		Where("data @> ?", string(raw)).
		Pluck("entity_id", &ids)
	if err != nil {
		return nil, false, fmt.Errorf("matching dataset entities: %w", err)
	}

	return ids, true, nil
}

// propertyFilterListingIDs resolves the per-property equality filters into
// the set of listing ids satisfying all of them. Each entry probes the
// value table matching the runtime type of its expected value; entries of
// any other type are skipped. When every entry was skipped the
// second return value is false and the property filter has no effect.
func (s *Service) propertyFilterListingIDs(ctx context.Context, filters map[int64]interface{}) ([]string, bool, error) {
	var sets []map[string]struct{}

	for propertyID, expected := range filters {
		var ids []string
		var err error

		switch value := expected.(type) {
		case string:
			err = s.db.Query(ctx).
				Model(&StringPropertyValue{}).
				Where("property_id = ? AND value = ?", propertyID, value).
				Pluck("listing_id", &ids)
		case bool:
			err = s.db.Query(ctx).
				Model(&BoolPropertyValue{}).
				Where("property_id = ? AND value = ?", propertyID, value).
				Pluck("listing_id", &ids)
		default:
			// Unsupported value types are ignored, not rejected.
			continue
		}

		if err != nil {
			return nil, false, fmt.Errorf("resolving property filter %d: %w", propertyID, err)
		}

		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		sets = append(sets, set)
	}

	if len(sets) == 0 {
		return nil, false, nil
	}

	return intersectIDs(sets), true, nil
}

// intersectIDs returns the ids present in every set.
func intersectIDs(sets []map[string]struct{}) []string {
	smallest := sets[0]
	for _, set := range sets[1:] {
		if len(set) < len(smallest) {
			smallest = set
		}
	}

	var out []string
candidates:
	for id := range smallest {
		for _, set := range sets {
			if _, ok := set[id]; !ok {
				continue candidates
			}
		}
		out = append(out, id)
	}
	return out
}
