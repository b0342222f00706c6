package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// Collection names.
const (
	ProductsCollection  = "products"
	FavoritesCollection = "favorites"
)

// Record is one document. The "id" key always holds the document id.
type Record map[string]any

// Filter is an equality condition on a top-level field.
type Filter struct {
	Field string
	Value string
}

// Eq builds a Filter.
func Eq(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// RecordStore is the remote record service.
//
// Insert must fail with a syncerr Conflict error when the id already exists.
// DeleteWhere must succeed when nothing matches.
type RecordStore interface {
	SelectByIDs(ctx context.Context, collection string, ids []string) ([]Record, error)
	SelectWhere(ctx context.Context, collection string, filters ...Filter) ([]Record, error)
	Insert(ctx context.Context, collection, id string, rec Record) error
	DeleteWhere(ctx context.Context, collection string, filters ...Filter) error
}

// String returns the string field key, or "".
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the integer field key. Backends hand numbers back as int64,
// json.Number or float64 depending on their decoder.
func (r Record) Int(key string) (int64, error) {
	switch v := r[key].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("field %q: %v is not an integer", key, v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("field %q: unexpected type %T", key, v)
	}
}
