package fees

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/dem-exchange/insightsx/pkg/db/models/insights"
	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/shopspring/decimal"
)

// Payment is the funding an address paid in one bucket. Negative amounts are rebates.
type Payment struct {
	Time   time.Time       `json:"time"`
	Market string          `json:"market,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

type paymentKey struct {
	at     time.Time
	market string
}

// FundingPayments derives payments from position updates. Only updates written by
// funding settlement count; their realized PNL delta against the previous update of the
// same lineage is the payment, sign-inverted. Updates without a predecessor are
// skipped, as are seed rows and buckets outside [from, to].
func FundingPayments(updates []insights.PositionUpdate, from, to time.Time, width time.Duration, byMarket bool) []Payment {
	byLineage := map[insights.Lineage][]insights.PositionUpdate{}
	for _, u := range updates {
		byLineage[u.Lineage()] = append(byLineage[u.Lineage()], u)
	}

	sums := map[paymentKey]decimal.Decimal{}
	for _, lineage := range byLineage {
		sort.Slice(lineage, func(i, j int) bool {
			return lineage[i].UpdatedBlockHeight < lineage[j].UpdatedBlockHeight
		})
		for i := 1; i < len(lineage); i++ {
			u := lineage[i]
			if u.Seed || u.UpdateReason != insights.FundingSettlementReason {
				continue
			}
			at := timeseries.Bucket(u.Time, width)
			// Funding windows keep the bucket at to, like the BETWEEN bound of
			// MarketFunding. PNL grids stop before it.
			if at.Before(from) || at.After(to) {
				continue
			}
			k := paymentKey{at: at}
			if byMarket {
				k.market = u.Market
			}
			sums[k] = sums[k].Add(u.RealizedPnl.Sub(lineage[i-1].RealizedPnl))
		}
	}

	out := make([]Payment, 0, len(sums))
	for k, v := range sums {
		out = append(out, Payment{Time: k.at, Market: k.market, Amount: v.Neg().Shift(-insights.PnlDecimals)})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.After(out[j].Time)
		}
		return out[i].Market < out[j].Market
	})
	return out
}

// Rate is the non-annualized funding rate of a market for one hour.
type Rate struct {
	Time time.Time `json:"time"`
	Rate float64   `json:"rate"`
}

// MarketRates is the funding rate series of a market.
type MarketRates struct {
	ID      string    `json:"id"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Funding []Rate    `json:"funding"`
}

// MarketID accepts a bare numeric market number as shorthand for cmkt/<n>.
func MarketID(id string) string {
	if _, err := strconv.Atoi(id); err == nil {
		return "cmkt/" + id
	}
	return id
}

// FundingRates returns total_funding / (total_longs × mark) per hour. The window is
// clamped to the last 30 days and ends today when to precedes from. Hours with no open
// longs are omitted.
func (a *Aggregator) FundingRates(ctx context.Context, id string, from, to time.Time) (MarketRates, error) {
	now := a.clock.Now().UTC()
	start := from
	if floor := now.Add(-fundingRateWindow); start.Before(floor) {
		start = floor
	}
	end := to
	if to.Before(from) {
		end = timeseries.DayOf(now).Time()
	}

	market := MarketID(id)
	marks, err := a.marks.Get(ctx)
	if err != nil {
		return MarketRates{}, err
	}
	raw, ok := marks[market]
	if !ok {
		return MarketRates{}, errs.NotFound("no mark price for market %s", market)
	}
	mark := raw.Shift(-insights.PnlDecimals)

	rows, err := a.store.MarketFunding(ctx, market, start, end)
	if err != nil {
		return MarketRates{}, err
	}
	rates := make([]Rate, 0, len(rows))
	for _, r := range rows {
		denominator := r.TotalLongs.Mul(mark)
		if denominator.IsZero() {
			continue
		}
		rates = append(rates, Rate{Time: r.Time, Rate: r.TotalFunding.Div(denominator).InexactFloat64()})
	}
	return MarketRates{ID: id, From: start, To: end, Funding: rates}, nil
}
