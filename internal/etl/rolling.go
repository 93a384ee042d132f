package etl

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-etl/internal/transform"
)

// RollingMode selects how the trailing window treats dates with no incidents.
type RollingMode string

const (
	// RollingObserved averages over the last N dates present in the data.
	RollingObserved RollingMode = "observed"
	// RollingCalendar averages over the last N wall-clock days, counting missing days as zero.
	RollingCalendar RollingMode = "calendar"
)

// DefaultRollingWindow is the trailing window length in days.
const DefaultRollingWindow = 7

// ParseRollingMode validates a configured mode name; "" means observed.
func ParseRollingMode(s string) (RollingMode, error) {
	switch RollingMode(s) {
	case "", RollingObserved:
		return RollingObserved, nil
	case RollingCalendar:
		return RollingCalendar, nil
	default:
		return "", eris.Errorf("enrich: unknown rolling mode %q", s)
	}
}

// DailyCount is the number of incidents on one calendar date.
type DailyCount struct {
	Date  time.Time // midnight UTC
	Count int
}

const dateKeyLayout = "2006-01-02"

// dateKey identifies the calendar date of t in its own location.
func dateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// DailyCounts groups timestamps by calendar date and returns the counts in chronological order.
// Nil timestamps are skipped.
func DailyCounts(dates []*time.Time) []DailyCount {
	byDay := make(map[time.Time]int)
	for _, d := range dates {
		if d == nil {
			continue
		}
		byDay[transform.CalendarDate(*d)]++
	}

	out := make([]DailyCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, DailyCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// RollingAverage returns the trailing mean for each entry of counts, keyed by date.
// The window shrinks at the start of the series, so the first date's value is its own count.
func RollingAverage(counts []DailyCount, window int, mode RollingMode) map[string]float64 {
	if window < 1 {
		window = DefaultRollingWindow
	}
	out := make(map[string]float64, len(counts))
	if len(counts) == 0 {
		return out
	}

	switch mode {
	case RollingCalendar:
		first := counts[0].Date
		start := 0
		sum := 0
		for i, c := range counts {
			sum += c.Count
			lo := c.Date.AddDate(0, 0, -(window - 1))
			for counts[start].Date.Before(lo) {
				sum -= counts[start].Count
				start++
			}
			span := daysBetween(first, c.Date) + 1
			if span > window {
				span = window
			}
			out[dateKey(counts[i].Date)] = float64(sum) / float64(span)
		}
	default:
		sum := 0
		for i, c := range counts {
			sum += c.Count
			if i >= window {
				sum -= counts[i-window].Count
			}
			n := i + 1
			if n > window {
				n = window
			}
			out[dateKey(c.Date)] = float64(sum) / float64(n)
		}
	}
	return out
}

// daysBetween counts whole days from a to b; both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
