package catalog

import (
	"time"

	"github.com/lib/pq"
)

// Property type tags as stored in the properties table.
const (
	PropertyTypeString  = "string"
	PropertyTypeBoolean = "boolean"
)

// Property type tags as they appear on the wire.
const (
	WireTypeString = "str"
	WireTypeBool   = "bool"
)

// Listing is the primary catalog record, keyed by a caller-assigned
// external identifier. Dataset entities are referenced by id through a
// denormalized array column; there is deliberately no foreign key on it,
// referential validity is advisory.
type Listing struct {
	ListingID        string         `gorm:"column:listing_id;primaryKey" json:"listing_id"`
	ScanDate         time.Time      `gorm:"column:scan_date" json:"scan_date"`
	IsActive         bool           `gorm:"column:is_active" json:"is_active"`
	DatasetEntityIDs pq.Int64Array  `gorm:"column:dataset_entity_ids;type:bigint[]" json:"dataset_entity_ids"`
	ImageHashes      pq.StringArray `gorm:"column:image_hashes;type:text[]" json:"image_hashes"`
}

func (Listing) TableName() string {
	return "listings"
}

// Property is a named, typed attribute definition shared across listings.
// Lookup by name is the upsert key; the type is never migrated once set.
type Property struct {
	PropertyID int64  `gorm:"column:property_id;primaryKey;autoIncrement" json:"property_id"`
	Name       string `gorm:"column:name;index" json:"name"`
	Type       string `gorm:"column:type;check:chk_property_type,type IN ('string','boolean')" json:"type"`
}

func (Property) TableName() string {
	return "properties"
}

// StringPropertyValue holds the string value of a property for one
// listing. At most one row exists per (listing, property) pair.
type StringPropertyValue struct {
	ListingID  string `gorm:"column:listing_id;primaryKey" json:"listing_id"`
	PropertyID int64  `gorm:"column:property_id;primaryKey" json:"property_id"`
	Value      string `gorm:"column:value" json:"value"`
}

func (StringPropertyValue) TableName() string {
	return "property_values_str"
}

// BoolPropertyValue holds the boolean value of a property for one
// listing. At most one row exists per (listing, property) pair.
type BoolPropertyValue struct {
	ListingID  string `gorm:"column:listing_id;primaryKey" json:"listing_id"`
	PropertyID int64  `gorm:"column:property_id;primaryKey" json:"property_id"`
	Value      bool   `gorm:"column:value" json:"value"`
}

func (BoolPropertyValue) TableName() string {
	return "property_values_bool"
}

// DatasetEntity is a reusable structured-metadata document referenced by
// id from listings. The name is the upsert key.
type DatasetEntity struct {
	EntityID int64    `gorm:"column:entity_id;primaryKey;autoIncrement" json:"entity_id"`
	Name     string   `gorm:"column:name;uniqueIndex" json:"name"`
	Data     Document `gorm:"column:data;type:jsonb" json:"data"`
}

func (DatasetEntity) TableName() string {
	return "dataset_entities"
}

// Models returns every model the catalog migrates at startup.
func Models() []interface{} {
	return []interface{}{
		&Listing{},
		&Property{},
		&StringPropertyValue{},
		&BoolPropertyValue{},
		&DatasetEntity{},
	}
}
