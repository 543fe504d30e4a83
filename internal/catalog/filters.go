package catalog

import "time"

// PageSize is the fixed number of listings returned per page.
const PageSize = 100

// ListingFilters carries the independently optional query dimensions.
// Every set dimension narrows the candidate set (logical AND). Pointer
// fields distinguish "absent" from a zero value; IsActive in particular
// must tell false apart from "no filter".
type ListingFilters struct {
	// Page is 1-indexed; values below 1 are treated as 1.
	Page int

	// ListingID matches exactly.
	ListingID *string

	// ScanDateFrom and ScanDateTo are inclusive range bounds,
	// independently optional.
	ScanDateFrom *time.Time
	ScanDateTo   *time.Time

	// IsActive matches exactly when set.
	IsActive *bool

	// ImageHashes matches listings whose stored hash set overlaps the
	// supplied set (OR across the supplied hashes).
	ImageHashes []string

	// DatasetEntities is a partial document; listings match when they
	// reference at least one entity whose data contains it. An empty
	// containment match forces an empty result, which is not the same
	// as leaving the filter unset.
	DatasetEntities Document

	// PropertyFilters maps property ids to expected scalar values.
	// String values probe the string value table, booleans the boolean
	// one; any other value type is skipped. Listings must satisfy every
	// non-skipped entry.
	PropertyFilters map[int64]interface{}
}

// page returns the clamped 1-indexed page number.
func (f ListingFilters) page() int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}
