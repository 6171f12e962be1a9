package pool

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/fees"
	"github.com/dem-exchange/insightsx/pkg/pnl"
	"github.com/dem-exchange/insightsx/pkg/pricecache"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultDepositDenom is the vault asset of pools whose registry entry omits it.
const DefaultDepositDenom = "cgt/1"

// Store serves the ledger deltas pool pricing is built on.
type Store interface {
	BalanceDeltas(ctx context.Context, addresses []string, denom string, floor, to timeseries.Day) ([]timeseries.Delta, error)
	SupplyDeltas(ctx context.Context, denom string, floor, to timeseries.Day) ([]timeseries.Delta, error)
}

// PnlSource is implemented by *pnl.Reconciler.
type PnlSource interface {
	RealizedPnl(ctx context.Context, q pnl.Query) ([]pnl.Point, error)
	UnrealizedPnl(ctx context.Context, address, market string) (pnl.Unrealized, error)
}

// FeeSource is implemented by *fees.Aggregator.
type FeeSource interface {
	Fees(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]fees.FeeRow, error)
	Volume24h(ctx context.Context, address string) (fees.Notional, error)
}

// RegistryGetter serves the cached pool registry.
type RegistryGetter interface {
	Get(ctx context.Context) (pricecache.PoolRegistry, error)
}

// Pool is a registry pool resolved to its vault.
type Pool struct {
	ID           string `json:"id"`
	Address      string `json:"address"`
	Denom        string `json:"denom"`
	DepositDenom string `json:"deposit_denom"`
}

// Engine prices pool shares.
type Engine struct {
	store    Store
	pnl      PnlSource
	fees     FeeSource
	registry RegistryGetter
	vaults   *Vaults
	clock    clock.Clock
	floor    timeseries.Day
	logger   *zap.Logger
}

func NewEngine(store Store, pnls PnlSource, feeSrc FeeSource, registry RegistryGetter, vaults *Vaults, clk clock.Clock, floor timeseries.Day, logger *zap.Logger) *Engine {
	return &Engine{
		store:    store,
		pnl:      pnls,
		fees:     feeSrc,
		registry: registry,
		vaults:   vaults,
		clock:    clk,
		floor:    floor,
		logger:   logger,
	}
}

// Resolve maps a pool id to its share denom and vault address.
func (e *Engine) Resolve(ctx context.Context, id string) (Pool, error) {
	registry, err := e.registry.Get(ctx)
	if err != nil {
		return Pool{}, err
	}
	entry, ok := registry[id]
	if !ok {
		return Pool{}, errs.NotFound("pool %s is not registered", id)
	}
	addr, err := e.vaults.Address(id)
	if err != nil {
		return Pool{}, err
	}

	p := Pool{ID: id, Address: addr, Denom: entry.Denom, DepositDenom: entry.DepositDenom}
	if p.Denom == "" {
		p.Denom = "cplt/" + id
	}
	if p.DepositDenom == "" {
		p.DepositDenom = DefaultDepositDenom
	}
	return p, nil
}

func (e *Engine) today() timeseries.Day {
	return timeseries.DayOf(e.clock.Now())
}

// Series returns the aligned vault balance and share supply for every day in [from, to].
func (e *Engine) Series(ctx context.Context, p Pool, from, to timeseries.Day) ([]DayValue, error) {
	balanceDeltas, err := e.store.BalanceDeltas(ctx, []string{p.Address}, p.DepositDenom, e.floor, to)
	if err != nil {
		return nil, err
	}
	supplyDeltas, err := e.store.SupplyDeltas(ctx, p.Denom, e.floor, to)
	if err != nil {
		return nil, err
	}
	if len(balanceDeltas) == 0 && len(supplyDeltas) == 0 {
		return nil, errs.NotFound("pool %s with vault %s has no history", p.ID, p.Address)
	}

	balances, err := timeseries.Materialize(balanceDeltas, timeseries.Request{
		Floor:      e.floor,
		From:       from,
		To:         to,
		Partitions: []timeseries.Key{{Address: p.Address, Denom: p.DepositDenom}},
	})
	if err != nil {
		return nil, err
	}
	supplies, err := timeseries.Materialize(supplyDeltas, timeseries.Request{
		Floor:      e.floor,
		From:       from,
		To:         to,
		Partitions: []timeseries.Key{{Denom: p.Denom}},
	})
	if err != nil {
		return nil, err
	}
	return Align(balances, supplies)
}

func (e *Engine) unrealized(ctx context.Context, address string) (float64, error) {
	u, err := e.pnl.UnrealizedPnl(ctx, address, "")
	if err != nil {
		return 0, err
	}
	return u.Total.InexactFloat64(), nil
}

// APRResult is the APR of a pool over a query window.
type APRResult struct {
	ID      string    `json:"id"`
	Address string    `json:"address"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	APR
}

// APR annualizes the share price change over [from, to]. Live unrealized PNL is
// included when the window is open-ended or reaches today.
func (e *Engine) APR(ctx context.Context, id string, from, to time.Time, openEnded bool) (APRResult, error) {
	if to.Sub(from) < 24*time.Hour {
		return APRResult{}, errs.Validation("time frame needs to span at least one day")
	}
	p, err := e.Resolve(ctx, id)
	if err != nil {
		return APRResult{}, err
	}
	toDay := timeseries.DayOf(to)
	series, err := e.Series(ctx, p, timeseries.DayOf(from), toDay)
	if err != nil {
		return APRResult{}, err
	}

	var upnl float64
	if openEnded || toDay >= e.today() {
		if upnl, err = e.unrealized(ctx, p.Address); err != nil {
			return APRResult{}, err
		}
	}
	apr, err := ComputeAPR(series, upnl)
	if err != nil {
		return APRResult{}, err
	}
	return APRResult{ID: id, Address: p.Address, From: from, To: to, APR: apr}, nil
}

// PerformanceResult is the daily PNL decomposition of a pool.
type PerformanceResult struct {
	ID          string           `json:"id"`
	Address     string           `json:"address"`
	Performance []DayPerformance `json:"performance"`
}

// Performance decomposes the vault's daily PNL for every day in [from, to]. The day
// before from is loaded to seed the first difference.
func (e *Engine) Performance(ctx context.Context, id string, from, to timeseries.Day) (PerformanceResult, error) {
	if to < from {
		return PerformanceResult{}, errs.Validation("from must not be after to")
	}
	p, err := e.Resolve(ctx, id)
	if err != nil {
		return PerformanceResult{}, err
	}
	start := from.AddDays(-1)
	series, err := e.Series(ctx, p, start, to)
	if err != nil {
		return PerformanceResult{}, err
	}

	realized, err := e.pnl.RealizedPnl(ctx, pnl.Query{
		Address: p.Address,
		From:    start.Time(),
		To:      to.AddDays(1).Time(),
		Width:   timeseries.Daily,
	})
	if err != nil {
		return PerformanceResult{}, err
	}
	rpnl := make(map[timeseries.Day]float64, len(realized))
	for _, pt := range realized {
		rpnl[timeseries.DayOf(pt.Time)] = pt.Realized.InexactFloat64()
	}

	feeRows, err := e.fees.Fees(ctx, []string{p.Address}, p.DepositDenom, start, to)
	if err != nil {
		return PerformanceResult{}, err
	}
	feeByDay := make(map[timeseries.Day]float64)
	for d, v := range fees.FeesByDay(feeRows) {
		feeByDay[d] = v.InexactFloat64()
	}

	upnl, err := e.unrealized(ctx, p.Address)
	if err != nil {
		return PerformanceResult{}, err
	}
	perf, err := ComputePerformance(series, rpnl, feeByDay, upnl)
	if err != nil {
		return PerformanceResult{}, err
	}
	return PerformanceResult{ID: id, Address: p.Address, Performance: perf}, nil
}

// StatsWindows are the trailing APR windows reported by Stats, in days.
var StatsWindows = []int{7, 14, 30}

// PoolStats summarizes one pool. Error is set instead of failing the whole summary.
type PoolStats struct {
	Pool
	APR       map[string]*float64 `json:"apr"`
	Volume24h *decimal.Decimal    `json:"volume_24h"`
	Error     string              `json:"error,omitempty"`
}

// Stats reports trailing APRs and 24h volume for every registered pool. Pools are
// processed one at a time since they share the caller's connection.
func (e *Engine) Stats(ctx context.Context) ([]PoolStats, error) {
	registry, err := e.registry.Get(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })

	end := e.today().Time()
	out := make([]PoolStats, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.stats(ctx, id, end))
	}
	return out, nil
}

func (e *Engine) stats(ctx context.Context, id string, end time.Time) PoolStats {
	s := PoolStats{Pool: Pool{ID: id}, APR: make(map[string]*float64, len(StatsWindows))}
	p, err := e.Resolve(ctx, id)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	s.Pool = p

	for _, days := range StatsWindows {
		key := strconv.Itoa(days) + "d"
		r, err := e.APR(ctx, id, end.AddDate(0, 0, -days), end, false)
		if err != nil {
			e.logger.Debug("pool apr unavailable", zap.String("pool", id), zap.Int("days", days), zap.Error(err))
			s.APR[key] = nil
			continue
		}
		apr := r.APR.APR
		s.APR[key] = &apr
	}

	vol, err := e.fees.Volume24h(ctx, p.Address)
	if err != nil {
		s.Error = err.Error()
		return s
	}
	s.Volume24h = &vol.Total
	return s
}

// lessID orders numeric pool ids numerically, and everything else lexically after them.
func lessID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
