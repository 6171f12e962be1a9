package timeseries

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayOf(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"midnight", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{"late utc", time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC), "2024-03-01"},
		{"offset zone", time.Date(2024, 3, 2, 1, 0, 0, 0, time.FixedZone("x", 3*3600)), "2024-03-01"},
		{"before epoch", time.Date(1969, 12, 31, 12, 0, 0, 0, time.UTC), "1969-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayOf(tt.in).String())
		})
	}
}

func TestParseDay(t *testing.T) {
	a, err := ParseDay("2024-03-01")
	require.NoError(t, err)
	b, err := ParseDay("2024-03-01T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = ParseDay("yesterday")
	assert.Error(t, err)
}

func TestDayJSON(t *testing.T) {
	d, _ := ParseDay("2024-03-01")
	bz, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01T00:00:00Z"`, string(bz))

	var back Day
	require.NoError(t, json.Unmarshal(bz, &back))
	assert.Equal(t, d, back)
}

func TestGrid(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	hours := Grid(base, base.Add(24*time.Hour), Hourly)
	assert.Len(t, hours, 24)
	assert.Equal(t, Hourly, BucketWidth(base, base.Add(24*time.Hour)))

	days := Grid(base, base.Add(3*Daily), Daily)
	assert.Len(t, days, 3)
	assert.Equal(t, Daily, BucketWidth(base, base.Add(3*Daily)))

	// an unaligned end includes its bucket
	partial := Grid(base, base.Add(2*Daily+time.Hour), Daily)
	assert.Len(t, partial, 3)

	assert.Len(t, Grid(base, base, Daily), 1)
	assert.Nil(t, Grid(base, base.Add(-Daily), Daily))
}
