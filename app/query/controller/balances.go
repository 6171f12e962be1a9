package controller

import (
	"net/http"

	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/shopspring/decimal"
)

type coinBalance struct {
	Address       string          `json:"address"`
	Day           timeseries.Day  `json:"day"`
	Denom         string          `json:"denom"`
	EndingBalance decimal.Decimal `json:"ending_balance"`
}

type dayValue struct {
	Day         timeseries.Day  `json:"day"`
	EndingValue decimal.Decimal `json:"ending_value"`
}

// balances materializes the daily ending balances of the requested addresses.
func (c *Controller) balances(r *http.Request) ([]timeseries.Point, error) {
	addresses, err := addressesVar(r)
	if err != nil {
		return nil, err
	}
	sort, err := parseSort(r)
	if err != nil {
		return nil, err
	}
	from, to, err := c.parseDayWindow(r)
	if err != nil {
		return nil, err
	}
	denom := r.URL.Query().Get("denom")

	ctx := r.Context()
	floor := c.App.Config.SeriesFloor
	deltas, err := c.App.DB.BalanceDeltas(ctx, addresses, denom, floor, to)
	if err != nil {
		return nil, err
	}

	// without a denom filter only denoms seen in the ledger have a series
	var partitions []timeseries.Key
	if denom != "" {
		for _, a := range addresses {
			partitions = append(partitions, timeseries.Key{Address: a, Denom: denom})
		}
	}
	return timeseries.Materialize(deltas, timeseries.Request{
		Floor:      floor,
		From:       from,
		To:         to,
		Partitions: partitions,
		Order:      sort.order(),
	})
}

// HandleCoinBalances returns the daily ending balance per address and denom.
// GET /balances/coins/{address}?from=&to=&denom=&sort=<asc|desc>
func (c *Controller) HandleCoinBalances(w http.ResponseWriter, r *http.Request) {
	points, err := c.balances(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	coins := make([]coinBalance, 0, len(points))
	for _, p := range points {
		coins = append(coins, coinBalance{Address: p.Address, Day: p.Day, Denom: p.Denom, EndingBalance: p.Value})
	}
	writeJSON(w, http.StatusOK, map[string]any{"coins": coins})
}

// HandleBalanceValues returns the daily USD value of the addresses' holdings. Denoms
// without a price are valued at zero.
// GET /balances/value/{address}?from=&to=&denom=&sort=<asc|desc>
func (c *Controller) HandleBalanceValues(w http.ResponseWriter, r *http.Request) {
	points, err := c.balances(r)
	if err != nil {
		c.writeErr(w, r, err)
		return
	}
	prices, err := c.App.Feeds.Tokens.Get(r.Context())
	if err != nil {
		c.writeErr(w, r, err)
		return
	}

	// points arrive grouped by day in the requested order
	values := make([]dayValue, 0)
	for _, p := range points {
		if len(values) == 0 || values[len(values)-1].Day != p.Day {
			values = append(values, dayValue{Day: p.Day, EndingValue: decimal.Zero})
		}
		info, ok := prices[p.Denom]
		if !ok {
			continue
		}
		last := &values[len(values)-1]
		last.EndingValue = last.EndingValue.Add(p.Value.Shift(-info.Decimals).Mul(info.PriceUSD))
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": values})
}
