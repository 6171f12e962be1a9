package pool

import (
	"testing"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(start timeseries.Day, balances, supplies []float64) []DayValue {
	out := make([]DayValue, len(balances))
	for i := range balances {
		out[i] = DayValue{Day: start.AddDays(i), Balance: balances[i], Supply: supplies[i]}
	}
	return out
}

func TestComputeAPR_UnseededPoolStartsAtPar(t *testing.T) {
	s := series(100, []float64{0, 0, 500, 600}, []float64{0, 0, 1000, 1000})

	apr, err := ComputeAPR(s, 0)

	require.NoError(t, err)
	assert.Equal(t, 1.0, apr.InitialPrice)
	assert.InDelta(t, 0.6, apr.FinalPrice, 1e-12)
	assert.Equal(t, 3.0, apr.ElapsedDays)
	assert.InDelta(t, -0.4/3*365, apr.APR, 1e-9)
}

func TestComputeAPR_Identities(t *testing.T) {
	t.Run("flat price", func(t *testing.T) {
		apr, err := ComputeAPR(series(0, []float64{10, 20, 30}, []float64{10, 20, 30}), 0)
		require.NoError(t, err)
		assert.Zero(t, apr.APR)
	})

	t.Run("doubling over a year", func(t *testing.T) {
		s := []DayValue{
			{Day: 0, Balance: 100, Supply: 100},
			{Day: 365, Balance: 200, Supply: 100},
		}
		apr, err := ComputeAPR(s, 0)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, apr.APR, 1e-12)
	})
}

func TestComputeAPR_WalksBackToLatestNonzeroSupply(t *testing.T) {
	s := series(10, []float64{100, 110, 120, 0, 0}, []float64{100, 100, 100, 0, 0})

	apr, err := ComputeAPR(s, 0)

	require.NoError(t, err)
	assert.Equal(t, timeseries.Day(12), apr.FinalDay)
	assert.InDelta(t, 1.2, apr.FinalPrice, 1e-12)
	assert.Equal(t, 2.0, apr.ElapsedDays)
}

func TestComputeAPR_AddsUnrealizedToFinalBalance(t *testing.T) {
	apr, err := ComputeAPR(series(0, []float64{100, 100}, []float64{100, 100}), 50)

	require.NoError(t, err)
	assert.InDelta(t, 1.5, apr.FinalPrice, 1e-12)
}

func TestComputeAPR_InsufficientData(t *testing.T) {
	cases := map[string][]DayValue{
		"single day":         series(0, []float64{1}, []float64{1}),
		"no shares ever":     series(0, []float64{0, 0, 0}, []float64{0, 0, 0}),
		"only first nonzero": series(0, []float64{5, 0}, []float64{5, 0}),
		"zero initial price": series(0, []float64{0, 10}, []float64{100, 100}),
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeAPR(s, 0)
			assert.True(t, errs.IsInsufficientData(err), "got %v", err)
		})
	}
}

func TestComputePerformance_ResidualIdentity(t *testing.T) {
	s := series(0,
		[]float64{1000, 1010, 1530, 1500},
		[]float64{1000, 1000, 1500, 1500},
	)
	rpnl := map[timeseries.Day]float64{1: 4, 2: 7, 3: -12}
	fees := map[timeseries.Day]float64{1: 1, 3: 0.5}

	perf, err := ComputePerformance(s, rpnl, fees, 8)

	require.NoError(t, err)
	require.Len(t, perf, 3)

	assert.InDelta(t, 10, perf[0].TotalPnl, 1e-9)
	// 500 shares minted at the previous price of 1.01
	assert.InDelta(t, 520-500*1.01, perf[1].TotalPnl, 1e-9)
	assert.InDelta(t, -30+8, perf[2].TotalPnl, 1e-9)
	assert.Equal(t, 8.0, perf[2].Components.Upnl)
	assert.Zero(t, perf[0].Components.Upnl)
	assert.Equal(t, -1.0, perf[0].Components.FeeRebate)

	for _, p := range perf {
		c := p.Components
		assert.InDelta(t, p.TotalPnl, c.Rpnl+c.Funding+c.FeeRebate, 1e-9, "day %s", p.Day)
	}
}

func TestComputePerformance_FirstDepositValuedAtPar(t *testing.T) {
	s := series(0, []float64{0, 100}, []float64{0, 100})

	perf, err := ComputePerformance(s, nil, nil, 0)

	require.NoError(t, err)
	require.Len(t, perf, 1)
	assert.Zero(t, perf[0].TotalPnl)
}

func TestComputePerformance_InsufficientData(t *testing.T) {
	_, err := ComputePerformance(series(0, []float64{1}, []float64{1}), nil, nil, 0)
	assert.True(t, errs.IsInsufficientData(err))
}

func TestAlign(t *testing.T) {
	pt := func(d timeseries.Day, v int64) timeseries.Point {
		return timeseries.Point{Day: d, Value: decimal.NewFromInt(v).Shift(18)}
	}

	out, err := Align(
		[]timeseries.Point{pt(1, 5), pt(2, 6)},
		[]timeseries.Point{pt(1, 10), pt(2, 12)},
	)
	require.NoError(t, err)
	assert.Equal(t, []DayValue{{Day: 1, Balance: 5, Supply: 10}, {Day: 2, Balance: 6, Supply: 12}}, out)

	_, err = Align([]timeseries.Point{pt(1, 5)}, []timeseries.Point{pt(2, 5)})
	assert.True(t, errs.IsAlignment(err))

	_, err = Align([]timeseries.Point{pt(1, 5), pt(3, 5)}, []timeseries.Point{pt(1, 5), pt(2, 5)})
	assert.True(t, errs.IsAlignment(err))

	_, err = Align(nil, []timeseries.Point{pt(1, 5)})
	assert.True(t, errs.IsInsufficientData(err))
}

func TestAlign_RejectsInterleavedSeries(t *testing.T) {
	pt := func(k timeseries.Key, d timeseries.Day, v int64) timeseries.Point {
		return timeseries.Point{Key: k, Day: d, Value: decimal.NewFromInt(v).Shift(18)}
	}
	vault := timeseries.Key{Address: "swth1vault", Denom: "cgt/1"}
	other := timeseries.Key{Address: "swth1other", Denom: "cgt/1"}
	shares := timeseries.Key{Denom: "cplt/1"}

	// two partitions of one day each line up by length and endpoints
	_, err := Align(
		[]timeseries.Point{pt(vault, 1, 5), pt(other, 1, 7)},
		[]timeseries.Point{pt(shares, 1, 10), pt(shares, 1, 10)},
	)
	assert.True(t, errs.IsAlignment(err))

	_, err = Align(
		[]timeseries.Point{pt(vault, 1, 5), pt(vault, 2, 6)},
		[]timeseries.Point{pt(shares, 1, 10), pt(timeseries.Key{Denom: "cplt/2"}, 2, 12)},
	)
	assert.True(t, errs.IsAlignment(err))

	out, err := Align(
		[]timeseries.Point{pt(vault, 1, 5), pt(vault, 2, 6)},
		[]timeseries.Point{pt(shares, 1, 10), pt(shares, 2, 12)},
	)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
