// Package fees merges the daily maker and taker rollups into fee and volume series and
// derives funding payments from funding-settlement position updates.
package fees

import (
	"context"
	"time"

	"github.com/dem-exchange/insightsx/pkg/db/models/insights"
	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/pricecache"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the subset of the insights store read by the aggregator.
type Store interface {
	FeeSummaries(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]insights.FeeSummary, error)
	VolumeSummaries(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]insights.VolumeSummary, error)
	MinBlockHeightSince(ctx context.Context, since time.Time) (int64, bool, error)
	PositionUpdates(ctx context.Context, address, market string, minHeight int64) ([]insights.PositionUpdate, error)
	TradeNotional(ctx context.Context, address string, since time.Time, minHeight int64) (insights.TradeNotional, error)
	MarketFunding(ctx context.Context, market string, from, to time.Time) ([]insights.MarketFunding, error)
}

// MarkGetter serves the cached market marks.
type MarkGetter interface {
	Get(ctx context.Context) (pricecache.MarkPrices, error)
}

// DefaultLookback bounds every scan of the position archive.
const DefaultLookback = 91 * 24 * time.Hour

// fundingRateWindow is how far back market funding rates are served.
const fundingRateWindow = 30 * 24 * time.Hour

// Aggregator serves fee, volume and funding figures for addresses and markets.
type Aggregator struct {
	store    Store
	marks    MarkGetter
	clock    clock.Clock
	lookback time.Duration
	logger   *zap.Logger
}

func New(store Store, marks MarkGetter, clk clock.Clock, lookback time.Duration, logger *zap.Logger) *Aggregator {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Aggregator{store: store, marks: marks, clock: clk, lookback: lookback, logger: logger}
}

// Fees returns the merged fee series of the addresses over [from, to].
func (a *Aggregator) Fees(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]FeeRow, error) {
	if to < from {
		return nil, errs.Validation("from must not be after to")
	}
	rows, err := a.store.FeeSummaries(ctx, addresses, denom, from, to)
	if err != nil {
		return nil, err
	}
	return MergeFees(rows), nil
}

// Volume returns the merged traded value series of the addresses over [from, to].
func (a *Aggregator) Volume(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]VolumeRow, error) {
	if to < from {
		return nil, errs.Validation("from must not be after to")
	}
	rows, err := a.store.VolumeSummaries(ctx, addresses, denom, from, to)
	if err != nil {
		return nil, err
	}
	return MergeVolume(rows), nil
}

// FundingQuery selects the funding payments of an address.
type FundingQuery struct {
	Address  string
	Market   string
	From     time.Time
	To       time.Time
	ByMarket bool
}

// Funding returns the funding payments of q, bucketed hourly for windows up to a day
// and daily otherwise. The scan never reaches further back than the lookback.
func (a *Aggregator) Funding(ctx context.Context, q FundingQuery) ([]Payment, error) {
	if q.To.Before(q.From) {
		return nil, errs.Validation("from must not be after to")
	}
	since := q.From
	if floor := a.clock.Now().UTC().Add(-a.lookback); since.Before(floor) {
		since = floor
	}
	minHeight, ok, err := a.store.MinBlockHeightSince(ctx, since)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Payment{}, nil
	}

	updates, err := a.store.PositionUpdates(ctx, q.Address, q.Market, minHeight)
	if err != nil {
		return nil, err
	}
	width := timeseries.BucketWidth(q.From, q.To)
	return FundingPayments(updates, timeseries.Bucket(q.From, width), q.To, width, q.ByMarket), nil
}

// Notional is traded value in quote units.
type Notional struct {
	Maker decimal.Decimal `json:"maker_amount"`
	Taker decimal.Decimal `json:"taker_amount"`
	Total decimal.Decimal `json:"total_amount"`
}

// Volume24h returns the maker and taker notional the address traded in the last 24 hours.
func (a *Aggregator) Volume24h(ctx context.Context, address string) (Notional, error) {
	since := a.clock.Now().UTC().Add(-24 * time.Hour)
	zero := Notional{Maker: decimal.Zero, Taker: decimal.Zero, Total: decimal.Zero}

	minHeight, ok, err := a.store.MinBlockHeightSince(ctx, since)
	if err != nil {
		return Notional{}, err
	}
	if !ok {
		return zero, nil
	}
	raw, err := a.store.TradeNotional(ctx, address, since, minHeight)
	if err != nil {
		return Notional{}, err
	}
	maker := raw.Maker.Shift(-insights.PnlDecimals)
	taker := raw.Taker.Shift(-insights.PnlDecimals)
	return Notional{Maker: maker, Taker: taker, Total: maker.Add(taker)}, nil
}
