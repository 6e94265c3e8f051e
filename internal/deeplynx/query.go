package deeplynx

import (
	"fmt"
	"strings"
)

// Metatype names queried by this client.
const (
	MetatypeProduct = "Product"
	MetatypeLot     = "Lot"
)

// Well-known record fields.
const (
	// FieldLotLink holds the value linking a Product to its Lot records.
	FieldLotLink = "HasP"

	// FieldLotID identifies a Lot within its record payload.
	FieldLotID = "hasP"
)

// Record is a single metatype record as returned by Deep Lynx. Its shape is
// defined by the container's schema, not by this client.
type Record map[string]any

// String returns the named field coerced to a string. The second return is
// false when the field is absent, null, or not a string.
func (r Record) String(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// recordMetadata is the _record sub-selection carried by every query, kept
// identical across metatypes so responses stay uniform.
const recordMetadata = `_record {
        id
        data_source_id
        original_id
        import_id
        metatype_id
        metatype_name
        created_at
        created_by
        modified_at
        modified_by
        metadata
      }`

// ProductFilter narrows the Product query. Nil members are omitted from
// the generated document.
type ProductFilter struct {
	Shape       *int
	Composition *string
}

// DefaultProductFilter matches the product population this tool reports on.
func DefaultProductFilter() ProductFilter {
	shape := 6
	comp := "N"
	return ProductFilter{Shape: &shape, Composition: &comp}
}

// ProductQuery builds the GraphQL document fetching Product records.
func ProductQuery(filter ProductFilter) string {
	var conditions []string
	if filter.Shape != nil {
		conditions = append(conditions, fmt.Sprintf(`hasShape: {operator: "eq", value: %d}`, *filter.Shape))
	}
	if filter.Composition != nil {
		conditions = append(conditions, fmt.Sprintf(`HasComp: {operator: "eq", value: %q}`, *filter.Composition))
	}

	args := ""
	if len(conditions) > 0 {
		args = fmt.Sprintf("(\n      %s\n    )", strings.Join(conditions, "\n      "))
	}

	return fmt.Sprintf(`{
  metatypes {
    Product %s{
      hasShape
      HasComp
      HasD
      HasP
      %s
    }
  }
}`, args, recordMetadata)
}

// LotQuery builds the GraphQL document fetching the Lot records whose
// original_id matches the given value.
func LotQuery(originalID string) string {
	return fmt.Sprintf(`{
  metatypes {
    Lot (
      _record: {
        original_id: {operator: "eq", value: %q}
      }
    ) {
      hasP
      HasEtc
      HasB
      HasEuC
      %s
    }
  }
}`, originalID, recordMetadata)
}
