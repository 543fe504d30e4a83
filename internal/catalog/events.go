package catalog

import (
	"context"
	"encoding/json"
	"time"
)

// listingEventRoutingKey is the routing key change events go out with.
const listingEventRoutingKey = "catalog.listing.upserted"

// listingEvent is the payload published for every listing written by an
// upsert batch.
type listingEvent struct {
	ListingID  string    `json:"listing_id"`
	ScanDate   time.Time `json:"scan_date"`
	IsActive   bool      `json:"is_active"`
	OccurredAt time.Time `json:"occurred_at"`
}

// publishUpserted emits one change event per listing of a committed
// batch. Publishing is best effort: the data is already durable, so a
// broker failure is logged and swallowed rather than failing the upsert.
func (s *Service) publishUpserted(ctx context.Context, batch []ListingInput) {
	if s.publisher == nil {
		return
	}

	now := time.Now().UTC()
	for _, in := range batch {
		payload, err := json.Marshal(listingEvent{
			ListingID:  in.ListingID,
			ScanDate:   in.ScanDate,
			IsActive:   in.IsActive,
			OccurredAt: now,
		})
		if err != nil {
			s.logger.Error("encoding listing event", err, map[string]interface{}{
				"listing_id": in.ListingID,
			})
			continue
		}

		if err := s.publisher.PublishWithKey(ctx, listingEventRoutingKey, payload); err != nil {
			s.logger.Warn("publishing listing event failed", err, map[string]interface{}{
				"listing_id": in.ListingID,
			})
		}
	}
}
