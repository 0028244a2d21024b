package models

import (
	"database/sql/driver"
	"fmt"
)

// GraphData holds raw workflow JSON in a jsonb column without re-encoding it.
type GraphData []byte

// Scan implements sql.Scanner interface
func (g *GraphData) Scan(value interface{}) error {
	if value == nil {
		*g = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*g = v
		return nil
	case string:
		*g = []byte(v)
		return nil
	default:
		return fmt.Errorf("cannot scan type %T into GraphData", value)
	}
}

// Value implements driver.Valuer interface
func (g GraphData) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return []byte(g), nil
}

// MarshalJSON implements json.Marshaler - returns raw JSON
func (g GraphData) MarshalJSON() ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	return g, nil
}

// UnmarshalJSON implements json.Unmarshaler - stores raw JSON
func (g *GraphData) UnmarshalJSON(data []byte) error {
	if data == nil {
		*g = nil
		return nil
	}
	*g = data
	return nil
}
