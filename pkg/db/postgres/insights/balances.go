package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/dem-exchange/insightsx/pkg/db/predicate"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/shopspring/decimal"
)

// BalanceDeltas returns per-day net ledger movements of the given addresses, optionally
// restricted to one denom, for every day in [floor, to].
func (db *DB) BalanceDeltas(ctx context.Context, addresses []string, denom string, floor, to timeseries.Day) ([]timeseries.Delta, error) {
	b := predicate.NewBinder()
	where := predicate.List{
		predicate.In("address", addresses),
		predicate.EqIfSet("denom", denom),
		predicate.Gte("day", floor.Time()),
		predicate.Lt("day", to.AddDays(1).Time()),
	}.Where(b)

	query := fmt.Sprintf(`
		SELECT address, denom, day::date AS day, SUM(daily_delta)::text AS delta
		FROM daily_balances
		%s
		GROUP BY address, denom, day::date
	`, where)

	return db.queryDeltas(ctx, query, b.Args(), true)
}

// SupplyDeltas returns the per-day net mint/burn of a denom across all holders for
// every day in [floor, to].
func (db *DB) SupplyDeltas(ctx context.Context, denom string, floor, to timeseries.Day) ([]timeseries.Delta, error) {
	b := predicate.NewBinder()
	where := predicate.List{
		predicate.Eq("denom", denom),
		predicate.Gte("day", floor.Time()),
		predicate.Lt("day", to.AddDays(1).Time()),
	}.Where(b)

	query := fmt.Sprintf(`
		SELECT '' AS address, denom, day::date AS day, SUM(daily_delta)::text AS delta
		FROM daily_balances
		%s
		GROUP BY denom, day::date
	`, where)

	return db.queryDeltas(ctx, query, b.Args(), false)
}

func (db *DB) queryDeltas(ctx context.Context, query string, args []any, byAddress bool) ([]timeseries.Delta, error) {
	rows, err := db.GetExecutor(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily balances: %w", err)
	}
	defer rows.Close()

	var out []timeseries.Delta
	for rows.Next() {
		var (
			d      timeseries.Delta
			day    time.Time
			amount string
		)
		if err := rows.Scan(&d.Address, &d.Denom, &day, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan daily balance: %w", err)
		}
		if err := parseDecimals([]*decimal.Decimal{&d.Amount}, amount); err != nil {
			return nil, err
		}
		if !byAddress {
			d.Address = ""
		}
		d.Day = timeseries.DayOf(day)
		out = append(out, d)
	}

	return out, rows.Err()
}
