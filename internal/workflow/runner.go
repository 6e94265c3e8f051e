// Package workflow sequences the query-and-summarize run: fetch Products,
// follow their lot links, fetch Lots, and compute statistics per record
// type. Stages run sequentially and the first failure aborts the run.
package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
	"github.com/jdpooleparty/deeplynx-stats/internal/stats"
)

// Querier is the record-query surface the runner needs from a client.
type Querier interface {
	QueryProducts(ctx context.Context, filter deeplynx.ProductFilter) ([]deeplynx.Record, error)
	QueryLot(ctx context.Context, originalID string) ([]deeplynx.Record, error)
}

// LotDetail is one lot's identifying field and its measured values, carried
// through to the report alongside the aggregates.
type LotDetail struct {
	LotID  string         `json:"lotId"`
	Values map[string]any `json:"values"`
}

// Result is the merged outcome of one run.
type Result struct {
	RunID     string        `json:"runId"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`

	// Requests is the number of record queries issued, token exchange
	// excluded.
	Requests int `json:"requests"`

	Products   *stats.Summary `json:"products"`
	Lots       *stats.Summary `json:"lots"`
	LotDetails []LotDetail    `json:"lotDetails,omitempty"`
}

// Runner orchestrates one configure-query-process cycle. Each Run call is
// independent; a Runner holds no state between runs.
type Runner struct {
	client  Querier
	sets    map[string]stats.MetricSet
	filter  deeplynx.ProductFilter
	limiter *rate.Limiter
	log     *zap.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithMetricSets replaces the default metric sets.
func WithMetricSets(sets map[string]stats.MetricSet) Option {
	return func(r *Runner) { r.sets = sets }
}

// WithProductFilter replaces the default Product query filter.
func WithProductFilter(filter deeplynx.ProductFilter) Option {
	return func(r *Runner) { r.filter = filter }
}

// WithLotQPS rate-limits per-lot queries. Zero or negative means unlimited.
func WithLotQPS(qps float64) Option {
	return func(r *Runner) {
		if qps > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(qps), 1)
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// New creates a Runner querying through the given client.
func New(client Querier, opts ...Option) *Runner {
	r := &Runner{
		client:  client,
		sets:    stats.DefaultMetricSets(),
		filter:  deeplynx.DefaultProductFilter(),
		limiter: rate.NewLimiter(rate.Inf, 0),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the workflow once and returns the merged result. Errors from
// any stage propagate unmodified: *config errors never reach here, client
// failures arrive as *deeplynx.QueryError and processing failures as
// *stats.DataShapeError.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := r.log.With(zap.String("run_id", result.RunID))
	log.Info("starting run")

	products, err := r.client.QueryProducts(ctx, r.filter)
	if err != nil {
		return nil, err
	}
	result.Requests++

	linkIDs := lotLinks(products)
	log.Info("products fetched",
		zap.Int("products", len(products)),
		zap.Int("lot_links", len(linkIDs)),
	)

	var lots []deeplynx.Record
	for _, id := range linkIDs {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		records, err := r.client.QueryLot(ctx, id)
		if err != nil {
			return nil, err
		}
		result.Requests++
		lots = append(lots, records...)
	}
	log.Info("lots fetched", zap.Int("lots", len(lots)))

	productSet := r.sets[deeplynx.MetatypeProduct]
	result.Products, err = stats.Summarize(products, productSet)
	if err != nil {
		return nil, err
	}

	lotSet := r.sets[deeplynx.MetatypeLot]
	result.Lots, err = stats.Summarize(lots, lotSet)
	if err != nil {
		return nil, err
	}
	result.LotDetails = lotDetails(lots, lotSet)

	result.Duration = time.Since(result.StartedAt)
	log.Info("run complete",
		zap.Int("requests", result.Requests),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// lotLinks extracts the lot-linking values from product records, deduplicated
// in first-seen order.
func lotLinks(products []deeplynx.Record) []string {
	seen := make(map[string]struct{}, len(products))
	var ids []string
	for _, p := range products {
		id, ok := p.String(deeplynx.FieldLotLink)
		if !ok || id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// lotDetails projects each lot record onto the metric set's numeric fields.
func lotDetails(lots []deeplynx.Record, set stats.MetricSet) []LotDetail {
	details := make([]LotDetail, 0, len(lots))
	for _, lot := range lots {
		id, _ := lot.String(deeplynx.FieldLotID)
		values := make(map[string]any, len(set.Numeric))
		for _, field := range set.Numeric {
			values[field.Name] = lot[field.Name]
		}
		details = append(details, LotDetail{LotID: id, Values: values})
	}
	return details
}
