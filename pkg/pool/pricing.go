// Package pool prices perps pool shares from the vault balance and the share supply,
// and derives APR and day-by-day performance from that price series.
package pool

import (
	"math"

	"github.com/dem-exchange/insightsx/pkg/db/models/insights"
	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
)

// DayValue is the vault balance and share supply at the end of Day, in whole tokens.
type DayValue struct {
	Day     timeseries.Day
	Balance float64
	Supply  float64
}

// Align zips a balance and a supply series. Both must cover exactly the same days.
func Align(balances, supplies []timeseries.Point) ([]DayValue, error) {
	if len(balances) == 0 || len(supplies) == 0 {
		return nil, errs.InsufficientData("pool has no balance or supply history")
	}
	if balances[0].Day != supplies[0].Day {
		return nil, errs.Alignment("first balance day %s but first supply day %s", balances[0].Day, supplies[0].Day)
	}
	if last, lastSupply := balances[len(balances)-1].Day, supplies[len(supplies)-1].Day; last != lastSupply {
		return nil, errs.Alignment("last balance day %s but last supply day %s", last, lastSupply)
	}
	if len(balances) != len(supplies) {
		return nil, errs.Alignment("%d balance days but %d supply days", len(balances), len(supplies))
	}
	if err := singleSeries("balance", balances); err != nil {
		return nil, err
	}
	if err := singleSeries("supply", supplies); err != nil {
		return nil, err
	}

	out := make([]DayValue, len(balances))
	for i := range balances {
		if balances[i].Day != supplies[i].Day {
			return nil, errs.Alignment("balance day %s does not match supply day %s", balances[i].Day, supplies[i].Day)
		}
		out[i] = DayValue{
			Day:     balances[i].Day,
			Balance: balances[i].Value.Shift(-insights.PnlDecimals).InexactFloat64(),
			Supply:  supplies[i].Value.Shift(-insights.PnlDecimals).InexactFloat64(),
		}
	}
	return out, nil
}

// singleSeries rejects points that span more than one key or revisit a day.
func singleSeries(name string, points []timeseries.Point) error {
	for i := 1; i < len(points); i++ {
		if points[i].Key != points[0].Key {
			return errs.Alignment("%s series mixes %v and %v", name, points[0].Key, points[i].Key)
		}
		if points[i].Day <= points[i-1].Day {
			return errs.Alignment("%s series repeats or reorders day %s", name, points[i].Day)
		}
	}
	return nil
}

// SharePrice is balance per share. A pool with no shares prices at par.
func SharePrice(balance, supply float64) float64 {
	if supply == 0 {
		return 1
	}
	return balance / supply
}

// APR is the annualized share price change between two resolved days.
type APR struct {
	APR          float64        `json:"apr"`
	InitialPrice float64        `json:"initial_price"`
	FinalPrice   float64        `json:"final_price"`
	InitialDay   timeseries.Day `json:"initial_day"`
	FinalDay     timeseries.Day `json:"final_day"`
	ElapsedDays  float64        `json:"elapsed_days"`
}

// ComputeAPR annualizes the price change from the first day of series to its latest
// day with a nonzero supply. upnl is added to the final balance.
func ComputeAPR(series []DayValue, upnl float64) (APR, error) {
	if len(series) < 2 {
		return APR{}, errs.InsufficientData("need at least 2 days of pool history, have %d", len(series))
	}

	initial := series[0]
	final := -1
	for i := len(series) - 1; i > 0; i-- {
		if series[i].Supply != 0 {
			final = i
			break
		}
	}
	if final < 0 {
		return APR{}, errs.InsufficientData("pool has no shares after %s", initial.Day)
	}

	last := series[final]
	out := APR{
		InitialPrice: SharePrice(initial.Balance, initial.Supply),
		FinalPrice:   (last.Balance + upnl) / last.Supply,
		InitialDay:   initial.Day,
		FinalDay:     last.Day,
		ElapsedDays:  float64(last.Day - initial.Day),
	}
	out.APR = (out.FinalPrice - out.InitialPrice) / out.InitialPrice / out.ElapsedDays * 365
	if math.IsNaN(out.APR) || math.IsInf(out.APR, 0) {
		return APR{}, errs.InsufficientData("share price is zero on %s", initial.Day)
	}
	return out, nil
}

// Components splits a day's total PNL. TotalPnl == Rpnl + Funding + FeeRebate.
type Components struct {
	Rpnl      float64 `json:"rpnl"`
	Upnl      float64 `json:"upnl"`
	FeeRebate float64 `json:"fee_rebate"`
	Funding   float64 `json:"funding"`
}

// DayPerformance is the PNL the vault made on Day net of deposits and withdrawals.
type DayPerformance struct {
	Day        timeseries.Day `json:"day"`
	TotalPnl   float64        `json:"total_pnl"`
	Components Components     `json:"components"`
}

// ComputePerformance decomposes the balance change of every day after the first.
// Share inflows are valued at the previous day's price and removed from the profit,
// upnl is booked on the last day and funding is whatever rpnl and fees leave unexplained.
func ComputePerformance(series []DayValue, rpnl, fees map[timeseries.Day]float64, upnl float64) ([]DayPerformance, error) {
	if len(series) < 2 {
		return nil, errs.InsufficientData("need at least 2 days of pool history, have %d", len(series))
	}

	out := make([]DayPerformance, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev, cur := series[i-1], series[i]
		isLast := i == len(series)-1

		total := cur.Balance - prev.Balance
		if inflow := cur.Supply - prev.Supply; inflow != 0 {
			total -= inflow * SharePrice(prev.Balance, prev.Supply)
		}
		c := Components{Rpnl: rpnl[cur.Day], FeeRebate: -fees[cur.Day]}
		if isLast {
			total += upnl
			c.Upnl = upnl
		}
		c.Funding = total - c.Rpnl - c.FeeRebate
		out = append(out, DayPerformance{Day: cur.Day, TotalPnl: total, Components: c})
	}
	return out, nil
}
