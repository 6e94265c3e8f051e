package stats

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
)

func quantitySet() MetricSet {
	return MetricSet{
		RecordType: deeplynx.MetatypeProduct,
		Numeric:    []Field{{Name: "quantity", Required: true}},
	}
}

func TestSummarizeCountSumMean(t *testing.T) {
	records := []deeplynx.Record{
		{"quantity": float64(10)},
		{"quantity": float64(20)},
	}

	summary, err := Summarize(records, quantitySet())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Count)
	q := summary.Numeric["quantity"]
	assert.Equal(t, 2, q.Count)
	assert.True(t, q.Sum.Equal(decimal.NewFromInt(30)), "sum = %s", q.Sum)
	require.NotNil(t, q.Mean)
	assert.True(t, q.Mean.Equal(decimal.NewFromInt(15)), "mean = %s", q.Mean)
}

func TestSummarizeEmptyInput(t *testing.T) {
	summary, err := Summarize(nil, DefaultMetricSets()[deeplynx.MetatypeLot])
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Count)
	assert.Equal(t, 0, summary.WithValues)
	for name, stats := range summary.Numeric {
		assert.Equal(t, 0, stats.Count, name)
		assert.Nil(t, stats.Mean, name)
		assert.True(t, stats.Sum.IsZero(), name)
	}
}

func TestSummarizeOrderIndependent(t *testing.T) {
	records := []deeplynx.Record{
		{"HasEtc": "1.25", "HasB": float64(3), "hasP": "01-10"},
		{"HasEtc": nil, "HasB": float64(7), "hasP": "01-11"},
		{"HasEtc": "2.75", "hasP": "01-12"},
		{"hasP": "01-10"},
	}
	set := DefaultMetricSets()[deeplynx.MetatypeLot]

	base, err := Summarize(records, set)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := make([]deeplynx.Record, len(records))
		copy(shuffled, records)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got, err := Summarize(shuffled, set)
		require.NoError(t, err)
		assert.Equal(t, base, got)
	}
}

func TestSummarizeSkipsNullValues(t *testing.T) {
	records := []deeplynx.Record{
		{"HasEtc": "1.0", "HasB": nil, "HasEuC": nil, "hasP": "01-10"},
		{"HasEtc": nil, "HasB": nil, "HasEuC": nil, "hasP": "01-11"},
	}

	summary, err := Summarize(records, DefaultMetricSets()[deeplynx.MetatypeLot])
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 1, summary.WithValues)
	assert.Equal(t, 1, summary.Numeric["HasEtc"].Count)
	assert.Equal(t, 0, summary.Numeric["HasB"].Count)
	assert.Nil(t, summary.Numeric["HasB"].Mean)
}

func TestSummarizeRequiredFieldMissing(t *testing.T) {
	records := []deeplynx.Record{
		{"quantity": float64(10)},
		{"name": "no quantity here"},
	}

	_, err := Summarize(records, quantitySet())
	require.Error(t, err)

	var shapeErr *DataShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, deeplynx.MetatypeProduct, shapeErr.RecordType)
	assert.Equal(t, "quantity", shapeErr.Field)
}

func TestSummarizeNonNumericValue(t *testing.T) {
	records := []deeplynx.Record{{"HasEtc": "plenty"}}
	set := MetricSet{RecordType: deeplynx.MetatypeLot, Numeric: []Field{{Name: "HasEtc"}}}

	_, err := Summarize(records, set)
	var shapeErr *DataShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "HasEtc", shapeErr.Field)
}

func TestSummarizeCategorical(t *testing.T) {
	records := []deeplynx.Record{
		{"hasShape": float64(6), "HasComp": "N"},
		{"hasShape": float64(6), "HasComp": "Y"},
		{"hasShape": float64(4), "HasComp": "N"},
		{"hasShape": float64(6)},
	}

	summary, err := Summarize(records, DefaultMetricSets()[deeplynx.MetatypeProduct])
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, map[string]int{"6": 3, "4": 1}, summary.Categorical["hasShape"])
	assert.Equal(t, map[string]int{"N": 2, "Y": 1}, summary.Categorical["HasComp"])
}

func TestSummarizeCategoricalRequired(t *testing.T) {
	set := MetricSet{
		RecordType:  deeplynx.MetatypeLot,
		Categorical: []Field{{Name: "hasP", Required: true}},
	}

	_, err := Summarize([]deeplynx.Record{{"HasEtc": "1.0"}}, set)
	var shapeErr *DataShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "hasP", shapeErr.Field)
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	record := deeplynx.Record{"HasEtc": "1.5", "hasP": "01-10"}
	records := []deeplynx.Record{record}

	_, err := Summarize(records, DefaultMetricSets()[deeplynx.MetatypeLot])
	require.NoError(t, err)

	assert.Equal(t, deeplynx.Record{"HasEtc": "1.5", "hasP": "01-10"}, record)
}

func TestToDecimalCoercions(t *testing.T) {
	d, err := toDecimal("3.14")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromFloat(3.14)))

	d, err = toDecimal(float64(2))
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(2)))

	_, err = toDecimal(true)
	assert.Error(t, err)
}
