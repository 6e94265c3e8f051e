package metrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestExporterCountsRequests(t *testing.T) {
	e := NewExporter()

	e.ObserveRequest("/oauth/token", 200, 5*time.Millisecond)
	e.ObserveRequest("/containers/42/data", 200, 20*time.Millisecond)
	e.ObserveRequest("/containers/42/data", 401, 3*time.Millisecond)
	e.ObserveRequest("/containers/42/data", 0, time.Millisecond)

	families, err := e.Gather()
	require.NoError(t, err)

	requests := findFamily(t, families, MetricRequestsTotal)
	byLabels := map[string]float64{}
	for _, m := range requests.GetMetric() {
		key := labelValue(m, "endpoint") + " " + labelValue(m, "status")
		byLabels[key] = m.GetCounter().GetValue()
	}
	assert.Equal(t, 1.0, byLabels["/oauth/token 200"])
	assert.Equal(t, 1.0, byLabels["/containers/42/data 200"])
	assert.Equal(t, 1.0, byLabels["/containers/42/data 401"])
	assert.Equal(t, 1.0, byLabels["/containers/42/data error"])

	durations := findFamily(t, families, MetricRequestDurationSeconds)
	for _, m := range durations.GetMetric() {
		if labelValue(m, "endpoint") == "/containers/42/data" {
			assert.Equal(t, uint64(3), m.GetHistogram().GetSampleCount())
		}
	}
}

func TestExporterCountsRecords(t *testing.T) {
	e := NewExporter()
	e.ObserveRecords("Product", 12)
	e.ObserveRecords("Lot", 3)
	e.ObserveRecords("Lot", 2)

	families, err := e.Gather()
	require.NoError(t, err)

	records := findFamily(t, families, MetricRecordsFetchedTotal)
	byMetatype := map[string]float64{}
	for _, m := range records.GetMetric() {
		byMetatype[labelValue(m, "metatype")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, 12.0, byMetatype["Product"])
	assert.Equal(t, 5.0, byMetatype["Lot"])
}

func TestExporterServesEndpoint(t *testing.T) {
	e := NewExporter()
	require.NoError(t, e.Serve("127.0.0.1:0"))
	defer func() {
		require.NoError(t, e.Shutdown(context.Background()))
	}()

	e.ObserveRequest("/oauth/token", 200, time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", e.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), MetricRequestsTotal)
}

func TestExporterServeTwice(t *testing.T) {
	e := NewExporter()
	require.NoError(t, e.Serve("127.0.0.1:0"))
	defer e.Shutdown(context.Background())

	assert.Error(t, e.Serve("127.0.0.1:0"))
}
