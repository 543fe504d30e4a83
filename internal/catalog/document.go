package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
)

// Document is an arbitrary JSON object stored in a jsonb column. It has
// no fixed schema; keys map to any JSON value, including nested objects.
type Document map[string]interface{}

// Value implements driver.Valuer so GORM can write the document.
func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner so GORM can read the document back.
func (d *Document) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Document", value)
	}

	return json.Unmarshal(raw, d)
}

// Equal reports whether two documents hold the same JSON content.
// Both sides are expected to come from JSON decoding, so numbers compare
// as float64 on either side.
func (d Document) Equal(other Document) bool {
	return reflect.DeepEqual(map[string]interface{}(d), map[string]interface{}(other))
}
