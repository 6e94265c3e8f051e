// Package deeplynxstats queries a Deep Lynx container for Product and Lot
// records and computes summary statistics over them. Run is the single
// programmatic entry point; the pieces it wires together live under
// internal/ and are exercised through the cmd/deeplynx-stats CLI.
package deeplynxstats

import (
	"context"

	"github.com/jdpooleparty/deeplynx-stats/internal/config"
	"github.com/jdpooleparty/deeplynx-stats/internal/deeplynx"
	"github.com/jdpooleparty/deeplynx-stats/internal/logger"
	"github.com/jdpooleparty/deeplynx-stats/internal/workflow"
)

// Run loads configuration from the environment, queries the configured
// container and returns the aggregated statistics. Failures surface as
// *config.Error, *deeplynx.QueryError or *stats.DataShapeError depending on
// the stage that failed; there is no retry or partial recovery.
func Run(ctx context.Context) (*workflow.Result, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	client, err := deeplynx.NewClient(cfg, deeplynx.WithLogger(log))
	if err != nil {
		return nil, err
	}

	runner := workflow.New(client,
		workflow.WithLogger(log),
		workflow.WithLotQPS(cfg.LotQPS),
	)
	return runner.Run(ctx)
}
