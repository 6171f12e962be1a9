// Package timeseries turns append-only ledger deltas into dense, forward-filled series.
//
// Days are keyed by Day, the number of whole UTC days since the Unix epoch. Every
// day-keyed lookup in the service goes through this type so that dates arriving as
// timestamps, DATE columns or query strings all compare equal.
package timeseries

import (
	"fmt"
	"time"
)

const secondsPerDay = 86400

// Day is a UTC calendar day expressed as days since 1970-01-01.
type Day int64

// DayOf returns the UTC day containing t.
func DayOf(t time.Time) Day {
	s := t.Unix()
	d := s / secondsPerDay
	if s%secondsPerDay < 0 {
		d--
	}
	return Day(d)
}

// ParseDay accepts "2006-01-02" or a full RFC 3339 timestamp.
func ParseDay(s string) (Day, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return DayOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid day %q", s)
	}
	return DayOf(t), nil
}

// Time returns midnight UTC of d.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

func (d Day) AddDays(n int) Day { return d + Day(n) }

func (d Day) String() string { return d.Time().Format(time.DateOnly) }

// MarshalJSON renders the day as an RFC 3339 midnight timestamp.
func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time().Format(time.RFC3339) + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("invalid day %s", string(b))
	}
	parsed, err := ParseDay(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Days lists every day in [from, to]; empty when to < from.
func Days(from, to Day) []Day {
	if to < from {
		return nil
	}
	out := make([]Day, 0, int(to-from)+1)
	for d := from; d <= to; d++ {
		out = append(out, d)
	}
	return out
}
