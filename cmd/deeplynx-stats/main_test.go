package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdpooleparty/deeplynx-stats/internal/config"
	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
	"github.com/jdpooleparty/deeplynx-stats/internal/stats"
	"github.com/jdpooleparty/deeplynx-stats/internal/workflow"
)

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config", &config.Error{Var: config.EnvAPIKey, Reason: "missing"}, exitConfig},
		{"query", &deeplynx.QueryError{Endpoint: "/oauth/token", StatusCode: 401}, exitQuery},
		{"data shape", &stats.DataShapeError{RecordType: "Lot", Field: "HasEtc"}, exitDataShape},
		{"unclassified", errors.New("boom"), exitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestWriteReportsJSONFile(t *testing.T) {
	origFormat, origFile, origDetails := outputFormat, outputFile, maxLotDetails
	defer func() { outputFormat, outputFile, maxLotDetails = origFormat, origFile, origDetails }()

	outputFormat = "json"
	outputFile = filepath.Join(t.TempDir(), "report.json")

	result := &workflow.Result{
		RunID:    "run-1",
		Duration: time.Second,
		Requests: 2,
		Products: &stats.Summary{RecordType: "Product", Count: 1},
		Lots:     &stats.Summary{RecordType: "Lot"},
	}
	require.NoError(t, writeReports(result))

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "metadata")
	assert.Contains(t, decoded, "result")
}

func TestWriteReportsUnknownFormat(t *testing.T) {
	origFormat := outputFormat
	defer func() { outputFormat = origFormat }()

	outputFormat = "xml"
	err := writeReports(&workflow.Result{
		Products: &stats.Summary{},
		Lots:     &stats.Summary{},
	})
	assert.ErrorContains(t, err, "unknown output format")
}
