package db

import (
	"context"
	"time"

	models "github.com/dem-exchange/insightsx/pkg/db/models/insights"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
)

// ConnScoper binds one pooled connection to a request.
type ConnScoper interface {
	Ping(ctx context.Context) error
	WithConn(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerStore serves the daily balance ledger.
type LedgerStore interface {
	BalanceDeltas(ctx context.Context, addresses []string, denom string, floor, to timeseries.Day) ([]timeseries.Delta, error)
	SupplyDeltas(ctx context.Context, denom string, floor, to timeseries.Day) ([]timeseries.Delta, error)
}

// PositionStore serves position snapshots, closed rollups and the update archive.
type PositionStore interface {
	PositionSnapshots(ctx context.Context, address, market string, from, to time.Time, minHeight int64) ([]models.PositionSnapshot, error)
	ClosedRollups(ctx context.Context, address, market string, from, to time.Time) ([]models.ClosedRpnlRollup, error)
	OpenPositions(ctx context.Context, address, market string) ([]models.OpenPosition, error)
	PositionUpdates(ctx context.Context, address, market string, minHeight int64) ([]models.PositionUpdate, error)
}

// TradeStore serves fee and volume rollups, the trade archive and market funding.
type TradeStore interface {
	FeeSummaries(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]models.FeeSummary, error)
	VolumeSummaries(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]models.VolumeSummary, error)
	TradeNotional(ctx context.Context, address string, since time.Time, minHeight int64) (models.TradeNotional, error)
	MarketFunding(ctx context.Context, market string, from, to time.Time) ([]models.MarketFunding, error)
}

// InsightsStore is everything the query service reads. Implemented by
// *postgres/insights.DB.
type InsightsStore interface {
	ConnScoper
	LedgerStore
	PositionStore
	TradeStore
	MinBlockHeightSince(ctx context.Context, since time.Time) (int64, bool, error)
	Close()
}
