// Package pnl reconciles realized PNL from position snapshots and closed-position
// rollups, and marks open positions to market for unrealized PNL.
package pnl

import (
	"context"
	"sort"
	"time"

	models "github.com/dem-exchange/insightsx/pkg/db/models/insights"
	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/pricecache"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Source is the subset of the store the reconciler reads.
type Source interface {
	PositionSnapshots(ctx context.Context, address, market string, from, to time.Time, minHeight int64) ([]models.PositionSnapshot, error)
	ClosedRollups(ctx context.Context, address, market string, from, to time.Time) ([]models.ClosedRpnlRollup, error)
	OpenPositions(ctx context.Context, address, market string) ([]models.OpenPosition, error)
	MinBlockHeightSince(ctx context.Context, since time.Time) (int64, bool, error)
}

// MarkGetter serves the cached market marks.
type MarkGetter interface {
	Get(ctx context.Context) (pricecache.MarkPrices, error)
}

// Point is one bucket of the PNL series, in quote units.
type Point struct {
	Time       time.Time       `json:"time"`
	Realized   decimal.Decimal `json:"rpnl"`
	Unrealized decimal.Decimal `json:"upnl"`
	Total      decimal.Decimal `json:"total_pnl"`
}

// Query selects the series to reconcile.
type Query struct {
	Address string
	Market  string
	From    time.Time
	To      time.Time
	// OpenEnded means the caller did not pin To; live unrealized PNL is then folded
	// into the last bucket.
	OpenEnded bool
	// Width forces the bucket width. Zero picks hourly for windows up to a day, daily otherwise.
	Width time.Duration
}

// Unrealized is the mark-to-market PNL of the open positions of an address.
type Unrealized struct {
	Total    decimal.Decimal            `json:"upnl"`
	ByMarket map[string]decimal.Decimal `json:"by_market"`
	// Unpriced lists markets skipped for lack of a mark.
	Unpriced []string `json:"unpriced,omitempty"`
}

// Reconciler computes realized and unrealized PNL for an address.
type Reconciler struct {
	src    Source
	marks  MarkGetter
	logger *zap.Logger
}

func NewReconciler(src Source, marks MarkGetter, logger *zap.Logger) *Reconciler {
	return &Reconciler{src: src, marks: marks, logger: logger}
}

// RealizedPnl returns the dense realized PNL series of q.
func (r *Reconciler) RealizedPnl(ctx context.Context, q Query) ([]Point, error) {
	if q.Address == "" {
		return nil, errs.Validation("address is required")
	}
	if q.To.Before(q.From) {
		return nil, errs.Validation("from must not be after to")
	}
	width := q.Width
	if width == 0 {
		width = timeseries.BucketWidth(q.From, q.To)
	}
	from := timeseries.Bucket(q.From, width)

	// No block since from means no snapshot can fall in the window.
	var snaps []models.PositionSnapshot
	minHeight, ok, err := r.src.MinBlockHeightSince(ctx, from)
	if err != nil {
		return nil, err
	}
	if ok {
		snaps, err = r.src.PositionSnapshots(ctx, q.Address, q.Market, from, q.To, minHeight)
		if err != nil {
			return nil, err
		}
	}
	rollups, err := r.src.ClosedRollups(ctx, q.Address, q.Market, from, q.To)
	if err != nil {
		return nil, err
	}

	points := RealizedSeries(snaps, rollups, q.From, q.To, width)
	if !q.OpenEnded || len(points) == 0 {
		return points, nil
	}

	u, err := r.UnrealizedPnl(ctx, q.Address, q.Market)
	if err != nil {
		return nil, err
	}
	last := &points[len(points)-1]
	last.Unrealized = u.Total
	last.Total = last.Realized.Add(u.Total)
	return points, nil
}

// UnrealizedPnl marks every open position of the address to the cached mark.
func (r *Reconciler) UnrealizedPnl(ctx context.Context, address, market string) (Unrealized, error) {
	positions, err := r.src.OpenPositions(ctx, address, market)
	if err != nil {
		return Unrealized{}, err
	}
	if len(positions) == 0 {
		return Unrealized{Total: decimal.Zero, ByMarket: map[string]decimal.Decimal{}}, nil
	}
	marks, err := r.marks.Get(ctx)
	if err != nil {
		return Unrealized{}, err
	}
	u := MarkToMarket(positions, marks)
	if len(u.Unpriced) > 0 {
		r.logger.Debug("skipping positions without mark price",
			zap.String("address", address),
			zap.Strings("markets", u.Unpriced))
	}
	return u, nil
}

// RealizedSeries attributes realized PNL to buckets of the given width over [from, to).
//
// Within a lineage an open snapshot contributes its realized PNL minus that of the
// previous snapshot (the first one against zero), and the closing snapshot reverses
// whatever was attributed while open. The closed rollup then carries the lineage's
// full realized PNL, so every lineage is counted exactly once. Seed snapshots only
// provide the baseline for the first in-window diff.
//
// Only the final snapshot of each hour is stored, so a lineage that closes in the
// hour its successor opens has no closing snapshot. A market holds one position at a
// time, so such a lineage is reversed at the first bucket of the next lineage in the
// same market.
func RealizedSeries(snaps []models.PositionSnapshot, rollups []models.ClosedRpnlRollup, from, to time.Time, width time.Duration) []Point {
	sums := map[time.Time]decimal.Decimal{}
	add := func(at time.Time, v decimal.Decimal) {
		k := timeseries.Bucket(at, width)
		sums[k] = sums[k].Add(v)
	}

	byLineage := map[models.Lineage][]models.PositionSnapshot{}
	for _, s := range snaps {
		byLineage[s.Lineage()] = append(byLineage[s.Lineage()], s)
	}

	type tail struct {
		opened     int64
		first      models.PositionSnapshot
		attributed decimal.Decimal
	}
	byMarket := map[[2]string][]tail{}

	for key, lineage := range byLineage {
		sort.Slice(lineage, func(i, j int) bool {
			return lineage[i].UpdatedBlockHeight < lineage[j].UpdatedBlockHeight
		})
		attributed := decimal.Zero
		for _, s := range lineage {
			var delta decimal.Decimal
			if s.Open() {
				delta = s.RealizedPnl.Sub(attributed)
				attributed = s.RealizedPnl
			} else {
				delta = attributed.Neg()
				attributed = decimal.Zero
			}
			if !s.Seed {
				add(s.Bucket, delta)
			}
		}
		m := [2]string{key.Address, key.Market}
		byMarket[m] = append(byMarket[m], tail{opened: key.OpenedBlockHeight, first: lineage[0], attributed: attributed})
	}

	for _, tails := range byMarket {
		sort.Slice(tails, func(i, j int) bool { return tails[i].opened < tails[j].opened })
		for i := 0; i+1 < len(tails); i++ {
			next := tails[i+1].first
			if tails[i].attributed.IsZero() || next.Seed {
				continue
			}
			add(next.Bucket, tails[i].attributed.Neg())
		}
	}

	for _, c := range rollups {
		add(c.Bucket, c.TotalRealizedPnl)
	}

	grid := timeseries.Grid(from, to, width)
	out := make([]Point, 0, len(grid))
	for _, b := range grid {
		v := sums[b].Shift(-models.PnlDecimals)
		out = append(out, Point{Time: b, Realized: v, Unrealized: decimal.Zero, Total: v})
	}
	return out
}

// MarkToMarket sums lots × (mark − entry) over positions whose market has a mark.
// Raw marks and entry prices are both scaled by 10^(base − quote) and lots by 10^-base.
func MarkToMarket(positions []models.OpenPosition, marks pricecache.MarkPrices) Unrealized {
	u := Unrealized{Total: decimal.Zero, ByMarket: map[string]decimal.Decimal{}}
	for _, p := range positions {
		raw, ok := marks[p.Market]
		if !ok {
			u.Unpriced = append(u.Unpriced, p.Market)
			continue
		}
		shift := p.BasePrecision - p.QuotePrecision
		mark := raw.Shift(shift)
		entry := p.EntryPrice.Shift(shift)
		lots := p.Lots.Shift(-p.BasePrecision)
		v := lots.Mul(mark.Sub(entry))
		u.ByMarket[p.Market] = u.ByMarket[p.Market].Add(v)
		u.Total = u.Total.Add(v)
	}
	return u
}
