package insights

import (
	"time"

	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/shopspring/decimal"
)

const (
	DailyBalancesTableName     = "daily_balances"
	DailyTakerSummaryTableName = "daily_taker_summary"
	DailyMakerSummaryTableName = "daily_maker_summary"
	TokensTableName            = "tokens"
	ArchivedTradesTableName    = "archived_trades"
	FundingTableName           = "funding"
)

// DefaultDecimals applies to denoms missing from the tokens table.
const DefaultDecimals = 18

// Side is the trade side a rollup row was booked on.
type Side string

const (
	SideMaker Side = "maker"
	SideTaker Side = "taker"
)

// FeeSummary is one row of a daily maker or taker fee rollup. Amounts are raw integers
// in the fee denom.
type FeeSummary struct {
	Side       Side
	Address    string
	Day        timeseries.Day
	Denom      string
	Decimals   int32
	TotalFee   decimal.Decimal
	Kickback   decimal.Decimal
	Commission decimal.Decimal
}

// VolumeSummary is one row of a daily maker or taker volume rollup, raw in the value denom.
type VolumeSummary struct {
	Side       Side
	Address    string
	Day        timeseries.Day
	Denom      string
	Decimals   int32
	TotalValue decimal.Decimal
}

// TradeNotional is the raw Σ quantity × price of an address' recent trades per side.
type TradeNotional struct {
	Maker decimal.Decimal
	Taker decimal.Decimal
}

// MarketFunding is an hourly funding record of a market. Amounts are raw.
type MarketFunding struct {
	Market       string
	Time         time.Time
	TotalFunding decimal.Decimal
	TotalLongs   decimal.Decimal
}
