package insights

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionsTableName          = "positions"
	ArchivedPositionsTableName  = "archived_positions"
	OpenPositionsTableName      = "open_positions"
	HourlyFinalPositionIDsTable = "hourly_final_position_ids"
	HourlyClosedRpnlTableName   = "hourly_closed_rpnl"
	MarketsTableName            = "markets"
	BlocksTableName             = "blocks"
)

// FundingSettlementReason is the update_reason of a position update written by funding settlement.
const FundingSettlementReason = 6

// PnlDecimals is the fixed precision of realized_pnl and funding amounts.
const PnlDecimals = 18

// Lineage identifies one position from open to close. All snapshots of a lineage share
// opened_block_height, and their updated_block_height strictly increases.
type Lineage struct {
	Address           string
	Market            string
	OpenedBlockHeight int64
}

// PositionSnapshot is an immutable copy of a position taken at one update.
//
// Bucket is the hour the snapshot belongs to when it is the final snapshot of that hour
// (hourly_final_position_ids). Seed marks the latest snapshot before the queried window,
// kept only as the diff baseline.
type PositionSnapshot struct {
	ID                 int64
	Address            string
	Market             string
	Bucket             time.Time
	Lots               decimal.Decimal
	EntryPrice         decimal.Decimal
	RealizedPnl        decimal.Decimal
	OpenedBlockHeight  int64
	UpdatedBlockHeight int64
	ClosedBlockHeight  int64
	Seed               bool
}

// Open reports whether the position was still open at this snapshot.
func (p PositionSnapshot) Open() bool { return p.ClosedBlockHeight == 0 }

func (p PositionSnapshot) Lineage() Lineage {
	return Lineage{Address: p.Address, Market: p.Market, OpenedBlockHeight: p.OpenedBlockHeight}
}

// ClosedRpnlRollup is the realized PNL of every position closed within Bucket.
// Market is empty when the rollup spans all markets.
type ClosedRpnlRollup struct {
	Bucket           time.Time
	Address          string
	Market           string
	TotalRealizedPnl decimal.Decimal
}

// OpenPosition is a live position joined with its market precisions. Lots and
// EntryPrice are raw chain integers.
type OpenPosition struct {
	Address        string
	Market         string
	Lots           decimal.Decimal
	EntryPrice     decimal.Decimal
	RealizedPnl    decimal.Decimal
	BasePrecision  int32
	QuotePrecision int32
}

// PositionUpdate is one archived position update as seen by funding derivation.
type PositionUpdate struct {
	Address            string
	Market             string
	Time               time.Time
	OpenedBlockHeight  int64
	UpdatedBlockHeight int64
	UpdateReason       int32
	RealizedPnl        decimal.Decimal
	Seed               bool
}

func (u PositionUpdate) Lineage() Lineage {
	return Lineage{Address: u.Address, Market: u.Market, OpenedBlockHeight: u.OpenedBlockHeight}
}
