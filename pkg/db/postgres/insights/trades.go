package insights

import (
	"context"
	"fmt"
	"time"

	models "github.com/dem-exchange/insightsx/pkg/db/models/insights"
	"github.com/dem-exchange/insightsx/pkg/db/predicate"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/shopspring/decimal"
)

// FeeSummaries returns maker and taker daily fee rollups in [from, to] with the fee
// denom's decimals.
func (db *DB) FeeSummaries(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]models.FeeSummary, error) {
	b := predicate.NewBinder()
	where := predicate.List{
		predicate.In("address", addresses),
		predicate.EqIfSet("fee_denom", denom),
		predicate.Gte("day", from.Time()),
		predicate.Lt("day", to.AddDays(1).Time()),
	}.Where(b)

	// both sides share the same placeholders
	query := fmt.Sprintf(`
		SELECT s.side, s.address, s.day, s.fee_denom, COALESCE(t.decimals, %[2]d),
		       s.total_fee::text, s.kickback::text, s.commission::text
		FROM (
			SELECT 'taker' AS side, address, day, fee_denom,
			       COALESCE(total_fee, 0) AS total_fee, COALESCE(kickback, 0) AS kickback, COALESCE(commission, 0) AS commission
			FROM daily_taker_summary
			%[1]s
			UNION ALL
			SELECT 'maker' AS side, address, day, fee_denom,
			       COALESCE(total_fee, 0), COALESCE(kickback, 0), COALESCE(commission, 0)
			FROM daily_maker_summary
			%[1]s
		) s
		LEFT JOIN tokens t ON t.denom = s.fee_denom
		ORDER BY s.day ASC, s.fee_denom ASC
	`, where, models.DefaultDecimals)

	rows, err := db.GetExecutor(ctx).Query(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee summaries: %w", err)
	}
	defer rows.Close()

	var out []models.FeeSummary
	for rows.Next() {
		var (
			f                      models.FeeSummary
			side                   string
			day                    time.Time
			fee, kickback, commish string
		)
		if err := rows.Scan(&side, &f.Address, &day, &f.Denom, &f.Decimals, &fee, &kickback, &commish); err != nil {
			return nil, fmt.Errorf("failed to scan fee summary: %w", err)
		}
		if err := parseDecimals([]*decimal.Decimal{&f.TotalFee, &f.Kickback, &f.Commission}, fee, kickback, commish); err != nil {
			return nil, err
		}
		f.Side = models.Side(side)
		f.Day = timeseries.DayOf(day)
		out = append(out, f)
	}

	return out, rows.Err()
}

// VolumeSummaries returns maker and taker daily traded value rollups in [from, to].
func (db *DB) VolumeSummaries(ctx context.Context, addresses []string, denom string, from, to timeseries.Day) ([]models.VolumeSummary, error) {
	b := predicate.NewBinder()
	where := predicate.List{
		predicate.In("address", addresses),
		predicate.EqIfSet("value_denom", denom),
		predicate.Gte("day", from.Time()),
		predicate.Lt("day", to.AddDays(1).Time()),
	}.Where(b)

	query := fmt.Sprintf(`
		SELECT s.side, s.address, s.day, s.value_denom, COALESCE(t.decimals, %[2]d), s.total_value::text
		FROM (
			SELECT 'taker' AS side, address, day, value_denom, COALESCE(total_value, 0) AS total_value
			FROM daily_taker_summary
			%[1]s
			UNION ALL
			SELECT 'maker' AS side, address, day, value_denom, COALESCE(total_value, 0)
			FROM daily_maker_summary
			%[1]s
		) s
		LEFT JOIN tokens t ON t.denom = s.value_denom
		ORDER BY s.day ASC, s.value_denom ASC
	`, where, models.DefaultDecimals)

	rows, err := db.GetExecutor(ctx).Query(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query volume summaries: %w", err)
	}
	defer rows.Close()

	var out []models.VolumeSummary
	for rows.Next() {
		var (
			v     models.VolumeSummary
			side  string
			day   time.Time
			value string
		)
		if err := rows.Scan(&side, &v.Address, &day, &v.Denom, &v.Decimals, &value); err != nil {
			return nil, fmt.Errorf("failed to scan volume summary: %w", err)
		}
		if err := parseDecimals([]*decimal.Decimal{&v.TotalValue}, value); err != nil {
			return nil, err
		}
		v.Side = models.Side(side)
		v.Day = timeseries.DayOf(day)
		out = append(out, v)
	}

	return out, rows.Err()
}

// TradeNotional sums quantity × price of the address' trades created after since,
// split by side. minHeight prunes the archive before the time filter applies.
func (db *DB) TradeNotional(ctx context.Context, address string, since time.Time, minHeight int64) (models.TradeNotional, error) {
	// $1 is the address, referenced by the side filters
	b := predicate.NewBinder(address)
	where := predicate.List{
		predicate.Gte("block_height", minHeight),
		predicate.Gt("block_created_at", since),
		predicate.Or(predicate.Eq("maker_address", address), predicate.Eq("taker_address", address)),
	}.Where(b)

	query := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(quantity * price) FILTER (WHERE maker_address = $1), 0)::text,
			COALESCE(SUM(quantity * price) FILTER (WHERE taker_address = $1), 0)::text
		FROM archived_trades
		%s
	`, where)

	var (
		out          models.TradeNotional
		maker, taker string
	)
	if err := db.GetExecutor(ctx).QueryRow(ctx, query, b.Args()...).Scan(&maker, &taker); err != nil {
		return out, fmt.Errorf("failed to query trade notional: %w", err)
	}
	if err := parseDecimals([]*decimal.Decimal{&out.Maker, &out.Taker}, maker, taker); err != nil {
		return out, err
	}
	return out, nil
}

// MarketFunding returns the hourly funding records of a market in [from, to].
func (db *DB) MarketFunding(ctx context.Context, market string, from, to time.Time) ([]models.MarketFunding, error) {
	b := predicate.NewBinder()
	where := predicate.List{
		predicate.Eq("market", market),
		predicate.Between("time", from, to),
	}.Where(b)

	query := fmt.Sprintf(`
		SELECT market, time, total_funding::text, total_longs::text
		FROM funding
		%s
		ORDER BY time ASC
	`, where)

	rows, err := db.GetExecutor(ctx).Query(ctx, query, b.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query market funding: %w", err)
	}
	defer rows.Close()

	var out []models.MarketFunding
	for rows.Next() {
		var (
			f             models.MarketFunding
			funding, long string
		)
		if err := rows.Scan(&f.Market, &f.Time, &funding, &long); err != nil {
			return nil, fmt.Errorf("failed to scan market funding: %w", err)
		}
		if err := parseDecimals([]*decimal.Decimal{&f.TotalFunding, &f.TotalLongs}, funding, long); err != nil {
			return nil, err
		}
		out = append(out, f)
	}

	return out, rows.Err()
}
