package timeseries

import "time"

const (
	Hourly = time.Hour
	Daily  = 24 * time.Hour
)

// BucketWidth is hourly when the window spans at most one day, daily otherwise.
func BucketWidth(from, to time.Time) time.Duration {
	if to.Sub(from) <= Daily {
		return Hourly
	}
	return Daily
}

// Bucket returns the start of the width-sized UTC bucket containing t.
func Bucket(t time.Time, width time.Duration) time.Time {
	return t.UTC().Truncate(width)
}

// Grid returns the dense list of bucket starts covering [from, to). When to falls
// inside a bucket, that bucket is included.
func Grid(from, to time.Time, width time.Duration) []time.Time {
	start := Bucket(from, width)
	if to.Before(start) {
		return nil
	}
	end := Bucket(to, width)
	if end.Equal(to.UTC()) && to.After(from) {
		end = end.Add(-width)
	}
	var out []time.Time
	for b := start; !b.After(end); b = b.Add(width) {
		out = append(out, b)
	}
	return out
}
