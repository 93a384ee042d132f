package transform

import "time"

// Season labels.
const (
	Winter = "Winter"
	Spring = "Spring"
	Summer = "Summer"
	Fall   = "Fall"
)

// Season maps a month number to its season. Months outside 1-12 return "".
func Season(month int) string {
	switch month {
	case 12, 1, 2:
		return Winter
	case 3, 4, 5:
		return Spring
	case 6, 7, 8:
		return Summer
	case 9, 10, 11:
		return Fall
	default:
		return ""
	}
}

// Weekday returns the day of week with Monday=0 and Sunday=6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsWeekend returns 1 for Saturday/Sunday weekday indexes, else 0.
func IsWeekend(weekday int) int {
	if weekday >= 5 {
		return 1
	}
	return 0
}

// Time-of-day buckets used by the dashboard filters.
const (
	Morning   = "Morning"
	Afternoon = "Afternoon"
	Evening   = "Evening"
	Night     = "Night"
)

// TimeOfDay buckets an hour: Morning 6-11, Afternoon 12-17, Evening 18-23, Night otherwise.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 18:
		return Afternoon
	case hour >= 18 && hour < 24:
		return Evening
	default:
		return Night
	}
}

// CalendarDate returns midnight UTC of t's wall-clock date, so dates from any location
// compare and key consistently.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
