package timeseries

import (
	"sort"

	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/shopspring/decimal"
)

// Key identifies one independent series. Supply series leave Address empty.
type Key struct {
	Address string
	Denom   string
}

// Delta is a signed ledger movement booked on Day.
type Delta struct {
	Key
	Day    Day
	Amount decimal.Decimal
}

// Point is the cumulative value of a series at the end of Day.
type Point struct {
	Key
	Day   Day
	Value decimal.Decimal
}

type Order int

const (
	Ascending Order = iota
	Descending
)

// Request bounds a materialization.
type Request struct {
	// Floor is the earliest day the ledger can hold; the running sum starts here.
	Floor Day
	From  Day
	To    Day
	// Partitions are emitted even when they have no deltas (as all-zero series).
	Partitions []Key
	Order      Order
}

// Materialize computes the running sum of deltas per partition and returns one point
// per partition per day in [max(Floor, From), To], carrying the last observation
// forward over days without deltas.
//
// Deltas dated after To are ignored. Deltas dated before the window only feed the
// opening carry, so the value at day D is always the sum of every delta up to D.
func Materialize(deltas []Delta, req Request) ([]Point, error) {
	if req.To < req.From {
		return nil, errs.Validation("from %s is after to %s", req.From, req.To)
	}
	start := req.From
	if req.Floor > start {
		start = req.Floor
	}
	if req.To < start {
		return nil, errs.Validation("to %s is before the ledger floor %s", req.To, req.Floor)
	}

	type partition struct {
		carry decimal.Decimal
		daily map[Day]decimal.Decimal
	}
	parts := map[Key]*partition{}
	get := func(k Key) *partition {
		p, ok := parts[k]
		if !ok {
			p = &partition{daily: map[Day]decimal.Decimal{}}
			parts[k] = p
		}
		return p
	}
	for _, k := range req.Partitions {
		get(k)
	}
	for _, d := range deltas {
		if d.Day > req.To {
			continue
		}
		p := get(d.Key)
		if d.Day < start {
			p.carry = p.carry.Add(d.Amount)
			continue
		}
		p.daily[d.Day] = p.daily[d.Day].Add(d.Amount)
	}

	keys := make([]Key, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sortKeys(keys)

	days := Days(start, req.To)
	out := make([]Point, 0, len(keys)*len(days))
	for _, k := range keys {
		p := parts[k]
		running := p.carry
		for _, day := range days {
			if amt, ok := p.daily[day]; ok {
				running = running.Add(amt)
			}
			out = append(out, Point{Key: k, Day: day, Value: running})
		}
	}

	SortPoints(out, req.Order)
	return out, nil
}

// SortPoints orders by day (asc or desc), then address, then denom.
func SortPoints(points []Point, order Order) {
	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i], points[j]
		if a.Day != b.Day {
			if order == Descending {
				return a.Day > b.Day
			}
			return a.Day < b.Day
		}
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		return a.Denom < b.Denom
	})
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Address != keys[j].Address {
			return keys[i].Address < keys[j].Address
		}
		return keys[i].Denom < keys[j].Denom
	})
}

// ByDay indexes a single-partition series by day.
func ByDay(points []Point) map[Day]decimal.Decimal {
	out := make(map[Day]decimal.Decimal, len(points))
	for _, p := range points {
		out[p.Day] = p.Value
	}
	return out
}
