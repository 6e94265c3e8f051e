// Package report renders a workflow result for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jdpooleparty/deeplynx-stats/internal/stats"
	"github.com/jdpooleparty/deeplynx-stats/internal/workflow"
)

// JSONReport is the machine-readable report envelope.
type JSONReport struct {
	Metadata Metadata         `json:"metadata"`
	Result   *workflow.Result `json:"result"`
}

// Metadata describes who generated the report and when.
type Metadata struct {
	Generator   string    `json:"generator"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// WriteJSON writes the result as indented JSON.
func WriteJSON(w io.Writer, result *workflow.Result, version string) error {
	report := JSONReport{
		Metadata: Metadata{
			Generator:   "deeplynx-stats",
			Version:     version,
			GeneratedAt: time.Now().UTC(),
		},
		Result: result,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// Console writes a human-readable summary.
type Console struct {
	// Writer is the output destination.
	Writer io.Writer

	// MaxLotDetails caps the per-lot detail rows. Zero shows all.
	MaxLotDetails int
}

// Write renders the result.
func (c *Console) Write(result *workflow.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "=== Deep Lynx Query Report ===\n")
	fmt.Fprintf(&b, "Run:      %s\n", result.RunID)
	fmt.Fprintf(&b, "Duration: %s (%d requests)\n\n", result.Duration.Round(time.Millisecond), result.Requests)

	fmt.Fprintf(&b, "Products: %d\n", result.Products.Count)
	fmt.Fprintf(&b, "Lots:     %d (%d with values)\n", result.Lots.Count, result.Lots.WithValues)

	writeSummary(&b, "Product", result.Products)
	writeSummary(&b, "Lot", result.Lots)

	if len(result.LotDetails) > 0 {
		fmt.Fprintf(&b, "\nLot details:\n")
		limit := len(result.LotDetails)
		if c.MaxLotDetails > 0 && c.MaxLotDetails < limit {
			limit = c.MaxLotDetails
		}
		for _, detail := range result.LotDetails[:limit] {
			fmt.Fprintf(&b, "  %-12s %s\n", detail.LotID, formatValues(detail.Values))
		}
		if limit < len(result.LotDetails) {
			fmt.Fprintf(&b, "  ... and %d more\n", len(result.LotDetails)-limit)
		}
	}

	_, err := io.WriteString(c.Writer, b.String())
	return err
}

// writeSummary renders one record type's numeric and categorical blocks.
func writeSummary(b *strings.Builder, label string, summary *stats.Summary) {
	if len(summary.Numeric) > 0 {
		fmt.Fprintf(b, "\n%s averages:\n", label)
		for _, field := range sortedKeys(summary.Numeric) {
			s := summary.Numeric[field]
			if s.Mean == nil {
				fmt.Fprintf(b, "  %-8s n/a (no samples)\n", field+":")
				continue
			}
			fmt.Fprintf(b, "  %-8s %s (n=%d, sum=%s)\n", field+":", s.Mean.StringFixed(4), s.Count, s.Sum.String())
		}
	}

	if len(summary.Categorical) > 0 {
		fmt.Fprintf(b, "\n%s categories:\n", label)
		for _, field := range sortedKeys(summary.Categorical) {
			fmt.Fprintf(b, "  %-10s %s\n", field+":", formatCounts(summary.Categorical[field]))
		}
	}
}

func formatCounts(counts map[string]int) string {
	parts := make([]string, 0, len(counts))
	for _, value := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", value, counts[value]))
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return strings.Join(parts, "  ")
}

func formatValues(values map[string]any) string {
	parts := make([]string, 0, len(values))
	for _, field := range sortedKeys(values) {
		v := values[field]
		if v == nil {
			v = "-"
		}
		parts = append(parts, fmt.Sprintf("%s=%v", field, v))
	}
	return strings.Join(parts, "  ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
