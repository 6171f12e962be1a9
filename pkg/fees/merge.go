package fees

import (
	"sort"

	"github.com/dem-exchange/insightsx/pkg/db/models/insights"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/shopspring/decimal"
)

// FeeRow is one day and denom of merged fees, scaled to whole tokens.
type FeeRow struct {
	Day                timeseries.Day  `json:"day"`
	Denom              string          `json:"denom"`
	TakerFee           decimal.Decimal `json:"taker_fee"`
	TakerFeeKickback   decimal.Decimal `json:"taker_fee_kickback"`
	TakerFeeCommission decimal.Decimal `json:"taker_fee_commission"`
	MakerFee           decimal.Decimal `json:"maker_fee"`
	MakerFeeKickback   decimal.Decimal `json:"maker_fee_kickback"`
	MakerFeeCommission decimal.Decimal `json:"maker_fee_commission"`
	TotalFee           decimal.Decimal `json:"total_fee"`
	TotalFeeKickback   decimal.Decimal `json:"total_fee_kickback"`
	TotalFeeCommission decimal.Decimal `json:"total_fee_commission"`
}

// VolumeRow is one day and denom of merged traded value, scaled to whole tokens.
type VolumeRow struct {
	Day         timeseries.Day  `json:"day"`
	Denom       string          `json:"denom"`
	MakerAmount decimal.Decimal `json:"maker_amount"`
	TakerAmount decimal.Decimal `json:"taker_amount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type dayDenom struct {
	day   timeseries.Day
	denom string
}

// MergeFees folds maker and taker rollups of any number of addresses into one row per
// day and denom, ordered by day descending then denom.
func MergeFees(rows []insights.FeeSummary) []FeeRow {
	merged := map[dayDenom]*FeeRow{}
	for _, r := range rows {
		k := dayDenom{r.Day, r.Denom}
		m, ok := merged[k]
		if !ok {
			m = &FeeRow{
				Day: r.Day, Denom: r.Denom,
				TakerFee: decimal.Zero, TakerFeeKickback: decimal.Zero, TakerFeeCommission: decimal.Zero,
				MakerFee: decimal.Zero, MakerFeeKickback: decimal.Zero, MakerFeeCommission: decimal.Zero,
			}
			merged[k] = m
		}
		fee := r.TotalFee.Shift(-r.Decimals)
		kickback := r.Kickback.Shift(-r.Decimals)
		commission := r.Commission.Shift(-r.Decimals)
		switch r.Side {
		case insights.SideTaker:
			m.TakerFee = m.TakerFee.Add(fee)
			m.TakerFeeKickback = m.TakerFeeKickback.Add(kickback)
			m.TakerFeeCommission = m.TakerFeeCommission.Add(commission)
		case insights.SideMaker:
			m.MakerFee = m.MakerFee.Add(fee)
			m.MakerFeeKickback = m.MakerFeeKickback.Add(kickback)
			m.MakerFeeCommission = m.MakerFeeCommission.Add(commission)
		}
	}

	out := make([]FeeRow, 0, len(merged))
	for _, m := range merged {
		m.TotalFee = m.TakerFee.Add(m.MakerFee)
		m.TotalFeeKickback = m.TakerFeeKickback.Add(m.MakerFeeKickback)
		m.TotalFeeCommission = m.TakerFeeCommission.Add(m.MakerFeeCommission)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day > out[j].Day
		}
		return out[i].Denom < out[j].Denom
	})
	return out
}

// MergeVolume folds maker and taker volume rollups into one row per day and denom,
// ordered by day descending then denom.
func MergeVolume(rows []insights.VolumeSummary) []VolumeRow {
	merged := map[dayDenom]*VolumeRow{}
	for _, r := range rows {
		k := dayDenom{r.Day, r.Denom}
		m, ok := merged[k]
		if !ok {
			m = &VolumeRow{Day: r.Day, Denom: r.Denom, MakerAmount: decimal.Zero, TakerAmount: decimal.Zero}
			merged[k] = m
		}
		v := r.TotalValue.Shift(-r.Decimals)
		switch r.Side {
		case insights.SideTaker:
			m.TakerAmount = m.TakerAmount.Add(v)
		case insights.SideMaker:
			m.MakerAmount = m.MakerAmount.Add(v)
		}
	}

	out := make([]VolumeRow, 0, len(merged))
	for _, m := range merged {
		m.TotalAmount = m.MakerAmount.Add(m.TakerAmount)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day > out[j].Day
		}
		return out[i].Denom < out[j].Denom
	})
	return out
}

// FeesByDay sums TotalFee across denoms per day.
func FeesByDay(rows []FeeRow) map[timeseries.Day]decimal.Decimal {
	out := make(map[timeseries.Day]decimal.Decimal, len(rows))
	for _, r := range rows {
		out[r.Day] = out[r.Day].Add(r.TotalFee)
	}
	return out
}
