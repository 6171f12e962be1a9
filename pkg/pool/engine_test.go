package pool

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/fees"
	"github.com/dem-exchange/insightsx/pkg/pnl"
	"github.com/dem-exchange/insightsx/pkg/pricecache"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	balances []timeseries.Delta
	supplies []timeseries.Delta
}

func (f *fakeStore) BalanceDeltas(_ context.Context, addresses []string, denom string, _, to timeseries.Day) ([]timeseries.Delta, error) {
	return matching(f.balances, to, func(k timeseries.Key) bool {
		return k.Denom == denom && slices.Contains(addresses, k.Address)
	}), nil
}

func (f *fakeStore) SupplyDeltas(_ context.Context, denom string, _, to timeseries.Day) ([]timeseries.Delta, error) {
	return matching(f.supplies, to, func(k timeseries.Key) bool { return k.Denom == denom }), nil
}

func matching(deltas []timeseries.Delta, to timeseries.Day, keep func(timeseries.Key) bool) []timeseries.Delta {
	var out []timeseries.Delta
	for _, d := range deltas {
		if d.Day <= to && keep(d.Key) {
			out = append(out, d)
		}
	}
	return out
}

type fakePnl struct {
	realized   []pnl.Point
	unrealized decimal.Decimal
	upnlCalls  int
	query      pnl.Query
}

func (f *fakePnl) RealizedPnl(_ context.Context, q pnl.Query) ([]pnl.Point, error) {
	f.query = q
	return f.realized, nil
}

func (f *fakePnl) UnrealizedPnl(context.Context, string, string) (pnl.Unrealized, error) {
	f.upnlCalls++
	return pnl.Unrealized{Total: f.unrealized}, nil
}

type fakeFees struct {
	rows   []fees.FeeRow
	volume fees.Notional
	err    error
}

func (f *fakeFees) Fees(context.Context, []string, string, timeseries.Day, timeseries.Day) ([]fees.FeeRow, error) {
	return f.rows, nil
}

func (f *fakeFees) Volume24h(context.Context, string) (fees.Notional, error) {
	return f.volume, f.err
}

type fakeRegistry pricecache.PoolRegistry

func (f fakeRegistry) Get(context.Context) (pricecache.PoolRegistry, error) {
	return pricecache.PoolRegistry(f), nil
}

var (
	start = timeseries.DayOf(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	floor = timeseries.DayOf(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC))
)

func raw(v int64) decimal.Decimal { return decimal.NewFromInt(v).Shift(18) }

const vault1 = "swth1aqdfjk20s9ccknlk4y3ss3lng49fj2gydsll75"

func balance(d timeseries.Day, v int64) timeseries.Delta {
	return timeseries.Delta{Key: timeseries.Key{Address: vault1, Denom: "cgt/1"}, Day: d, Amount: raw(v)}
}

func supply(d timeseries.Day, v int64) timeseries.Delta {
	return timeseries.Delta{Key: timeseries.Key{Denom: "cplt/1"}, Day: d, Amount: raw(v)}
}

type fixture struct {
	engine *Engine
	store  *fakeStore
	pnl    *fakePnl
	fees   *fakeFees
	clock  *clock.Mock
}

func newFixture(t *testing.T) *fixture {
	clk := clock.NewMock()
	clk.Add(start.AddDays(30).Time().Sub(clk.Now()))

	f := &fixture{
		store: &fakeStore{
			balances: []timeseries.Delta{balance(start.AddDays(2), 500), balance(start.AddDays(3), 100)},
			supplies: []timeseries.Delta{supply(start.AddDays(2), 1000)},
		},
		pnl:   &fakePnl{unrealized: decimal.NewFromInt(100)},
		fees:  &fakeFees{},
		clock: clk,
	}
	registry := fakeRegistry{
		"1": {ID: "1", Denom: "cplt/1", DepositDenom: "cgt/1"},
		"2": {ID: "2"},
	}
	f.engine = NewEngine(f.store, f.pnl, f.fees, registry, NewVaults("swth"), clk, floor, zaptest.NewLogger(t))
	return f
}

func TestEngine_Resolve(t *testing.T) {
	f := newFixture(t)

	p, err := f.engine.Resolve(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "swth1cseyz9v4krrajpea33u35gxzxm7gu0ltyvqv8e", p.Address)
	assert.Equal(t, "cplt/2", p.Denom)
	assert.Equal(t, DefaultDepositDenom, p.DepositDenom)

	_, err = f.engine.Resolve(context.Background(), "9")
	assert.True(t, errs.IsNotFound(err))
}

func TestEngine_APR(t *testing.T) {
	f := newFixture(t)
	from, to := start.Time(), start.AddDays(3).Time()

	r, err := f.engine.APR(context.Background(), "1", from, to, false)

	require.NoError(t, err)
	assert.Equal(t, vault1, r.Address)
	assert.Equal(t, 1.0, r.InitialPrice)
	assert.InDelta(t, 0.6, r.FinalPrice, 1e-12)
	assert.Equal(t, start.AddDays(3), r.FinalDay)
	assert.Zero(t, f.pnl.upnlCalls, "historical windows ignore live positions")
}

func TestEngine_APR_OpenEndedAddsUnrealized(t *testing.T) {
	f := newFixture(t)

	r, err := f.engine.APR(context.Background(), "1", start.Time(), start.AddDays(3).Time(), true)

	require.NoError(t, err)
	assert.Equal(t, 1, f.pnl.upnlCalls)
	assert.InDelta(t, 0.7, r.FinalPrice, 1e-12)
}

func TestEngine_APR_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.APR(ctx, "1", start.Time(), start.Time().Add(23*time.Hour), false)
	assert.True(t, errs.IsValidation(err))

	_, err = f.engine.APR(ctx, "9", start.Time(), start.AddDays(3).Time(), false)
	assert.True(t, errs.IsNotFound(err))

	f.store.balances, f.store.supplies = nil, nil
	_, err = f.engine.APR(ctx, "1", start.Time(), start.AddDays(3).Time(), false)
	assert.True(t, errs.IsNotFound(err))
}

func TestEngine_Performance(t *testing.T) {
	f := newFixture(t)
	f.pnl.realized = []pnl.Point{
		{Time: start.AddDays(3).Time(), Realized: decimal.NewFromInt(60)},
	}
	f.fees.rows = []fees.FeeRow{{Day: start.AddDays(3), TotalFee: decimal.NewFromInt(5)}}

	r, err := f.engine.Performance(context.Background(), "1", start.AddDays(1), start.AddDays(3))

	require.NoError(t, err)
	assert.Equal(t, start.Time(), f.pnl.query.From)
	assert.Equal(t, timeseries.Daily, f.pnl.query.Width)
	require.Len(t, r.Performance, 3)

	// 1000 shares minted at par against a 500 deposit
	assert.InDelta(t, -500, r.Performance[1].TotalPnl, 1e-9)
	last := r.Performance[2]
	assert.Equal(t, start.AddDays(3), last.Day)
	assert.InDelta(t, 200, last.TotalPnl, 1e-9)
	assert.Equal(t, 60.0, last.Components.Rpnl)
	assert.Equal(t, 100.0, last.Components.Upnl)
	assert.Equal(t, -5.0, last.Components.FeeRebate)
	assert.InDelta(t, 145, last.Components.Funding, 1e-9)
}

func TestEngine_Stats(t *testing.T) {
	f := newFixture(t)
	f.fees.volume = fees.Notional{Total: decimal.NewFromInt(42)}

	stats, err := f.engine.Stats(context.Background())

	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "1", stats[0].ID)
	require.NotNil(t, stats[0].APR["7d"])
	require.NotNil(t, stats[0].APR["30d"])
	assert.Equal(t, "42", stats[0].Volume24h.String())
	assert.Empty(t, stats[0].Error)
}

func TestEngine_StatsReportsPerPoolErrors(t *testing.T) {
	f := newFixture(t)
	f.fees.err = errs.Upstream("trades", errors.New("down"))

	stats, err := f.engine.Stats(context.Background())

	require.NoError(t, err)
	require.Len(t, stats, 2)
	for _, s := range stats {
		assert.NotEmpty(t, s.Error)
		assert.Nil(t, s.Volume24h)
	}
}

func TestLessID(t *testing.T) {
	ids := []string{"10", "b", "2", "a", "1"}
	for i := range ids {
		for j := range ids {
			if i != j && lessID(ids[i], ids[j]) && lessID(ids[j], ids[i]) {
				t.Fatalf("lessID is not antisymmetric for %s and %s", ids[i], ids[j])
			}
		}
	}
	assert.True(t, lessID("2", "10"))
	assert.True(t, lessID("10", "a"))
	assert.True(t, lessID("a", "b"))
}
