package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
)

func writeMetricSets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metricsets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMetricSets(t *testing.T) {
	path := writeMetricSets(t, `
metricSets:
  - recordType: Product
    numeric:
      - name: quantity
        required: true
    categorical:
      - name: HasComp
  - recordType: Lot
    numeric:
      - name: HasEtc
`)

	sets, err := LoadMetricSets(path)
	require.NoError(t, err)
	require.Len(t, sets, 2)

	product := sets["Product"]
	require.Len(t, product.Numeric, 1)
	assert.Equal(t, "quantity", product.Numeric[0].Name)
	assert.True(t, product.Numeric[0].Required)
	require.Len(t, product.Categorical, 1)
	assert.Equal(t, "HasComp", product.Categorical[0].Name)
}

func TestLoadMetricSetsMissingFile(t *testing.T) {
	_, err := LoadMetricSets(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMetricSetsEmpty(t *testing.T) {
	path := writeMetricSets(t, "metricSets: []\n")
	_, err := LoadMetricSets(path)
	assert.Error(t, err)
}

func TestLoadMetricSetsDuplicate(t *testing.T) {
	path := writeMetricSets(t, `
metricSets:
  - recordType: Lot
  - recordType: Lot
`)
	_, err := LoadMetricSets(path)
	assert.ErrorContains(t, err, "duplicate")
}

func TestLoadMetricSetsMissingRecordType(t *testing.T) {
	path := writeMetricSets(t, `
metricSets:
  - numeric:
      - name: quantity
`)
	_, err := LoadMetricSets(path)
	assert.ErrorContains(t, err, "recordType")
}

func TestDefaultMetricSets(t *testing.T) {
	sets := DefaultMetricSets()

	require.Contains(t, sets, deeplynx.MetatypeProduct)
	require.Contains(t, sets, deeplynx.MetatypeLot)

	lot := sets[deeplynx.MetatypeLot]
	names := make([]string, 0, len(lot.Numeric))
	for _, f := range lot.Numeric {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"HasEtc", "HasB", "HasEuC"}, names)
}
