// Package generator produces synthetic Product and Lot records shaped like
// Deep Lynx query responses. Dry runs use it to exercise the processor and
// reporters without a live instance.
package generator

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
)

// Sandbox generates record sets and satisfies the workflow's query surface,
// so a dry run goes through the exact same orchestration path.
type Sandbox struct {
	faker *gofakeit.Faker

	// Products per run and lots per product link.
	ProductCount int
	LotsPerLink  int

	// NullRate is the chance a lot measurement is null, 0..1.
	NullRate float64
}

// NewSandbox creates a sandbox. Seed zero means a random seed; tests pass a
// fixed seed for reproducible records.
func NewSandbox(seed uint64) *Sandbox {
	return &Sandbox{
		faker:        gofakeit.New(seed),
		ProductCount: 8,
		LotsPerLink:  1,
		NullRate:     0.25,
	}
}

// QueryProducts returns a synthetic product set. The filter is accepted for
// interface compatibility and applied to the generated shape values.
func (s *Sandbox) QueryProducts(_ context.Context, filter deeplynx.ProductFilter) ([]deeplynx.Record, error) {
	records := make([]deeplynx.Record, 0, s.ProductCount)
	for i := 0; i < s.ProductCount; i++ {
		shape := float64(s.faker.Number(1, 8))
		if filter.Shape != nil {
			shape = float64(*filter.Shape)
		}
		comp := s.faker.RandomString([]string{"N", "Y"})
		if filter.Composition != nil {
			comp = *filter.Composition
		}

		records = append(records, deeplynx.Record{
			"hasShape":            shape,
			"HasComp":             comp,
			"HasD":                s.faker.Word(),
			deeplynx.FieldLotLink: s.lotID(i),
		})
	}
	return records, nil
}

// QueryLot returns synthetic lot records for one link value.
func (s *Sandbox) QueryLot(_ context.Context, originalID string) ([]deeplynx.Record, error) {
	records := make([]deeplynx.Record, 0, s.LotsPerLink)
	for i := 0; i < s.LotsPerLink; i++ {
		records = append(records, deeplynx.Record{
			deeplynx.FieldLotID: originalID,
			"HasEtc":            s.measurement(0.5, 5.0),
			"HasB":              s.measurement(0.1, 2.0),
			"HasEuC":            s.measurement(0.01, 0.5),
		})
	}
	return records, nil
}

// measurement returns a stringified reading or null, matching how the
// platform serializes lot measurements.
func (s *Sandbox) measurement(min, max float64) any {
	if s.faker.Float64Range(0, 1) < s.NullRate {
		return nil
	}
	return fmt.Sprintf("%.4f", s.faker.Float64Range(min, max))
}

func (s *Sandbox) lotID(i int) string {
	return fmt.Sprintf("%02d-%02d", i/50+1, i%50+1)
}
