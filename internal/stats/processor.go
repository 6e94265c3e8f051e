package stats

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
)

// DataShapeError reports a record that does not match the expected shape:
// a required field is absent, or a numeric field holds a non-numeric value.
type DataShapeError struct {
	RecordType string
	Field      string
	Reason     string
}

// Error implements the error interface.
func (e *DataShapeError) Error() string {
	return fmt.Sprintf("stats: %s record: field %q: %s", e.RecordType, e.Field, e.Reason)
}

// NumericStats aggregates one numeric field. Null and absent optional
// values are excluded from Count, Sum and Mean.
type NumericStats struct {
	Count int              `json:"count"`
	Sum   decimal.Decimal  `json:"sum"`
	Mean  *decimal.Decimal `json:"mean,omitempty"`
}

// Summary is the aggregation result for one record type. It is derived
// purely from the input records: summarizing the same records in any order
// yields an identical Summary.
type Summary struct {
	RecordType string `json:"recordType"`

	// Count is the total number of records seen.
	Count int `json:"count"`

	// WithValues counts records carrying at least one non-null numeric
	// sample. Equals Count when the metric set has no numeric fields.
	WithValues int `json:"withValues"`

	// Numeric holds per-field count/sum/mean keyed by field name.
	Numeric map[string]NumericStats `json:"numeric,omitempty"`

	// Categorical holds distinct-value counts keyed by field name.
	Categorical map[string]map[string]int `json:"categorical,omitempty"`
}

// Summarize computes the Summary of records under the given metric set.
// Input records are never mutated.
func Summarize(records []deeplynx.Record, set MetricSet) (*Summary, error) {
	sums := make(map[string]decimal.Decimal, len(set.Numeric))
	counts := make(map[string]int, len(set.Numeric))
	categories := make(map[string]map[string]int, len(set.Categorical))
	for _, f := range set.Categorical {
		categories[f.Name] = make(map[string]int)
	}

	withValues := 0
	for _, record := range records {
		sampled := false

		for _, field := range set.Numeric {
			value, err := numericSample(record, field, set.RecordType)
			if err != nil {
				return nil, err
			}
			if value == nil {
				continue
			}
			sums[field.Name] = sums[field.Name].Add(*value)
			counts[field.Name]++
			sampled = true
		}

		for _, field := range set.Categorical {
			value, ok := record[field.Name]
			if !ok || value == nil {
				if field.Required {
					return nil, &DataShapeError{RecordType: set.RecordType, Field: field.Name, Reason: "required field is missing"}
				}
				continue
			}
			categories[field.Name][categoryKey(value)]++
		}

		if sampled || len(set.Numeric) == 0 {
			withValues++
		}
	}

	summary := &Summary{
		RecordType:  set.RecordType,
		Count:       len(records),
		WithValues:  withValues,
		Numeric:     make(map[string]NumericStats, len(set.Numeric)),
		Categorical: categories,
	}
	for _, field := range set.Numeric {
		stats := NumericStats{Count: counts[field.Name], Sum: sums[field.Name]}
		if stats.Count > 0 {
			mean := stats.Sum.Div(decimal.NewFromInt(int64(stats.Count)))
			stats.Mean = &mean
		}
		summary.Numeric[field.Name] = stats
	}
	return summary, nil
}

// numericSample extracts one numeric value from a record. A nil result with
// nil error means the sample is absent and should be skipped.
func numericSample(record deeplynx.Record, field Field, recordType string) (*decimal.Decimal, error) {
	value, ok := record[field.Name]
	if !ok {
		if field.Required {
			return nil, &DataShapeError{RecordType: recordType, Field: field.Name, Reason: "required field is missing"}
		}
		return nil, nil
	}
	if value == nil {
		return nil, nil
	}

	d, err := toDecimal(value)
	if err != nil {
		return nil, &DataShapeError{RecordType: recordType, Field: field.Name, Reason: err.Error()}
	}
	return &d, nil
}

// toDecimal coerces JSON scalar representations of a number. The platform
// stores measurements as strings in some containers and numbers in others.
func toDecimal(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("not numeric: %q", v)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("not numeric: %T", value)
	}
}

// categoryKey renders a categorical value for distinct counting. JSON
// numbers that are whole render without the trailing ".0" noise.
func categoryKey(value any) string {
	if f, ok := value.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", value)
}
