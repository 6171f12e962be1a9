package insights

import (
	"context"
	"fmt"
	"time"

	models "github.com/dem-exchange/insightsx/pkg/db/models/insights"
	"github.com/dem-exchange/insightsx/pkg/db/predicate"
	"github.com/shopspring/decimal"
)

// PositionSnapshots returns the final snapshot of every hour in [from, to) for the
// address, plus, for each lineage seen in the window, its latest earlier snapshot
// flagged as Seed. minHeight is the first block at or after from; seeds are searched
// between the lineage's opening block and minHeight. Rows are ordered by bucket then
// updated height.
func (db *DB) PositionSnapshots(ctx context.Context, address, market string, from, to time.Time, minHeight int64) ([]models.PositionSnapshot, error) {
	b := predicate.NewBinder()
	window := predicate.List{
		predicate.Eq("f.address", address),
		predicate.EqIfSet("f.market", market),
		predicate.Gte("f.hour", from),
		predicate.Lt("f.hour", to),
		predicate.Gte("p.updated_block_height", minHeight),
	}.And(b)
	fromArg := b.Bind(from)
	heightArg := b.Bind(minHeight)

	query := fmt.Sprintf(`
		WITH w AS (
			SELECT f.hour, p.id, p.address, p.market, p.lots, p.entry_price, p.realized_pnl,
			       p.opened_block_height, p.updated_block_height, p.closed_block_height
			FROM hourly_final_position_ids f
			JOIN archived_positions p ON p.id = f.id
			WHERE %[1]s
		),
		lineages AS (
			SELECT DISTINCT address, market, opened_block_height FROM w
		),
		seed AS (
			SELECT DISTINCT ON (p.market, p.opened_block_height)
			       f.hour, p.id, p.address, p.market, p.lots, p.entry_price, p.realized_pnl,
			       p.opened_block_height, p.updated_block_height, p.closed_block_height
			FROM lineages l
			JOIN archived_positions p
			  ON p.address = l.address AND p.market = l.market AND p.opened_block_height = l.opened_block_height
			JOIN hourly_final_position_ids f ON f.id = p.id
			WHERE f.hour < %[2]s
			  AND p.updated_block_height >= l.opened_block_height
			  AND p.updated_block_height < %[3]s
			ORDER BY p.market, p.opened_block_height, p.updated_block_height DESC
		)
		SELECT hour, id, address, market, lots::text, entry_price::text, realized_pnl::text,
		       opened_block_height, updated_block_height, closed_block_height, seed
		FROM (
			SELECT w.*, FALSE AS seed FROM w
			UNION ALL
			SELECT seed.*, TRUE AS seed FROM seed
		) s
		ORDER BY hour ASC, updated_block_height ASC
	`, window, fromArg, heightArg)

	rows, err := db.GetExecutor(ctx).Query(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query position snapshots: %w", err)
	}
	defer rows.Close()

	var out []models.PositionSnapshot
	for rows.Next() {
		var (
			s                     models.PositionSnapshot
			lots, entry, realized string
		)
		err := rows.Scan(&s.Bucket, &s.ID, &s.Address, &s.Market, &lots, &entry, &realized,
			&s.OpenedBlockHeight, &s.UpdatedBlockHeight, &s.ClosedBlockHeight, &s.Seed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position snapshot: %w", err)
		}
		if err := parseDecimals([]*decimal.Decimal{&s.Lots, &s.EntryPrice, &s.RealizedPnl}, lots, entry, realized); err != nil {
			return nil, err
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// ClosedRollups returns the hourly realized PNL of positions closed in [from, to).
func (db *DB) ClosedRollups(ctx context.Context, address, market string, from, to time.Time) ([]models.ClosedRpnlRollup, error) {
	b := predicate.NewBinder()
	where := predicate.List{
		predicate.Eq("address", address),
		predicate.EqIfSet("market", market),
		predicate.Gte("hour", from),
		predicate.Lt("hour", to),
	}.Where(b)

	query := fmt.Sprintf(`
		SELECT hour, address, market, COALESCE(total_realized_pnl, 0)::text
		FROM hourly_closed_rpnl
		%s
		ORDER BY hour ASC
	`, where)

	rows, err := db.GetExecutor(ctx).Query(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed rpnl: %w", err)
	}
	defer rows.Close()

	var out []models.ClosedRpnlRollup
	for rows.Next() {
		var (
			r     models.ClosedRpnlRollup
			total string
		)
		if err := rows.Scan(&r.Bucket, &r.Address, &r.Market, &total); err != nil {
			return nil, fmt.Errorf("failed to scan closed rpnl: %w", err)
		}
		if err := parseDecimals([]*decimal.Decimal{&r.TotalRealizedPnl}, total); err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// OpenPositions returns the live positions of an address with their market precisions.
func (db *DB) OpenPositions(ctx context.Context, address, market string) ([]models.OpenPosition, error) {
	b := predicate.NewBinder()
	where := predicate.List{
		predicate.Eq("o.address", address),
		predicate.EqIfSet("o.market", market),
	}.Where(b)

	query := fmt.Sprintf(`
		SELECT o.address, o.market, p.lots::text, p.entry_price::text, p.realized_pnl::text,
		       m.base_precision, m.quote_precision
		FROM open_positions o
		JOIN positions p ON p.id = o.id
		JOIN markets m ON m.id = o.market
		%s
		ORDER BY o.market ASC
	`, where)

	rows, err := db.GetExecutor(ctx).Query(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	var out []models.OpenPosition
	for rows.Next() {
		var (
			p                     models.OpenPosition
			lots, entry, realized string
		)
		if err := rows.Scan(&p.Address, &p.Market, &lots, &entry, &realized, &p.BasePrecision, &p.QuotePrecision); err != nil {
			return nil, fmt.Errorf("failed to scan open position: %w", err)
		}
		if err := parseDecimals([]*decimal.Decimal{&p.Lots, &p.EntryPrice, &p.RealizedPnl}, lots, entry, realized); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

// PositionUpdates returns every archived update of the address at or above minHeight,
// stamped with its block time, plus the latest earlier update of each lineage seen
// (flagged Seed) so the first in-range update has a predecessor to diff against.
func (db *DB) PositionUpdates(ctx context.Context, address, market string, minHeight int64) ([]models.PositionUpdate, error) {
	b := predicate.NewBinder()
	bounded := predicate.List{
		predicate.Eq("address", address),
		predicate.EqIfSet("market", market),
		predicate.Gte("updated_block_height", minHeight),
	}.And(b)
	heightArg := b.Bind(minHeight)

	query := fmt.Sprintf(`
		WITH p AS (
			SELECT address, market, opened_block_height, updated_block_height, update_reason, realized_pnl
			FROM archived_positions
			WHERE %[1]s
		),
		lineages AS (
			SELECT DISTINCT address, market, opened_block_height FROM p
		),
		seed AS (
			SELECT DISTINCT ON (a.market, a.opened_block_height)
			       a.address, a.market, a.opened_block_height, a.updated_block_height, a.update_reason, a.realized_pnl
			FROM lineages l
			JOIN archived_positions a
			  ON a.address = l.address AND a.market = l.market AND a.opened_block_height = l.opened_block_height
			WHERE a.updated_block_height < %[2]s
			ORDER BY a.market, a.opened_block_height, a.updated_block_height DESC
		)
		SELECT x.address, x.market, bl.time, x.opened_block_height, x.updated_block_height,
		       x.update_reason, x.realized_pnl::text, x.seed
		FROM (
			SELECT p.*, FALSE AS seed FROM p
			UNION ALL
			SELECT seed.*, TRUE AS seed FROM seed
		) x
		JOIN blocks bl ON bl.block_height = x.updated_block_height
		ORDER BY x.updated_block_height ASC
	`, bounded, heightArg)

	rows, err := db.GetExecutor(ctx).Query(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query position updates: %w", err)
	}
	defer rows.Close()

	var out []models.PositionUpdate
	for rows.Next() {
		var (
			u        models.PositionUpdate
			realized string
		)
		err := rows.Scan(&u.Address, &u.Market, &u.Time, &u.OpenedBlockHeight, &u.UpdatedBlockHeight,
			&u.UpdateReason, &realized, &u.Seed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position update: %w", err)
		}
		if err := parseDecimals([]*decimal.Decimal{&u.RealizedPnl}, realized); err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, rows.Err()
}
