// Package stats computes summary statistics over Deep Lynx records. The
// fields to aggregate are described by MetricSet values so the record shape
// stays configurable rather than baked in.
package stats

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
)

// Field names a record field to aggregate.
type Field struct {
	// Name is the record field name, exactly as the platform spells it.
	Name string `yaml:"name" json:"name"`

	// Required marks the field as part of the expected record shape. A
	// record missing a required field is a data-shape failure rather than
	// a skipped sample.
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`
}

// MetricSet describes the aggregation for one record type: numeric fields
// get count/sum/mean, categorical fields get distinct-value counts.
type MetricSet struct {
	RecordType  string  `yaml:"recordType" json:"recordType"`
	Numeric     []Field `yaml:"numeric,omitempty" json:"numeric,omitempty"`
	Categorical []Field `yaml:"categorical,omitempty" json:"categorical,omitempty"`
}

// metricSetFile is the YAML document shape for LoadMetricSets.
type metricSetFile struct {
	MetricSets []MetricSet `yaml:"metricSets"`
}

// LoadMetricSets reads metric sets from a YAML file, keyed by record type.
func LoadMetricSets(path string) (map[string]MetricSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metric sets: %w", err)
	}

	var file metricSetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing metric sets: %w", err)
	}
	if len(file.MetricSets) == 0 {
		return nil, fmt.Errorf("metric sets file %s defines no metricSets", path)
	}

	sets := make(map[string]MetricSet, len(file.MetricSets))
	for _, set := range file.MetricSets {
		if set.RecordType == "" {
			return nil, fmt.Errorf("metric set without recordType in %s", path)
		}
		if _, dup := sets[set.RecordType]; dup {
			return nil, fmt.Errorf("duplicate metric set for %s in %s", set.RecordType, path)
		}
		sets[set.RecordType] = set
	}
	return sets, nil
}

// DefaultMetricSets mirrors the production container schema: products are
// broken down by shape and composition, lots carry three nullable
// concentration measurements.
func DefaultMetricSets() map[string]MetricSet {
	return map[string]MetricSet{
		deeplynx.MetatypeProduct: {
			RecordType: deeplynx.MetatypeProduct,
			Categorical: []Field{
				{Name: "hasShape"},
				{Name: "HasComp"},
			},
		},
		deeplynx.MetatypeLot: {
			RecordType: deeplynx.MetatypeLot,
			Numeric: []Field{
				{Name: "HasEtc"},
				{Name: "HasB"},
				{Name: "HasEuC"},
			},
			Categorical: []Field{
				{Name: deeplynx.FieldLotID},
			},
		},
	}
}
