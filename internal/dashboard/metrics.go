package dashboard

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-etl/internal/model"
	"github.com/sells-group/crime-etl/internal/transform"
)

// Summary holds the headline KPIs of a filtered view.
type Summary struct {
	TotalCrimes        int     `json:"total_crimes"`
	TotalArrests       int     `json:"total_arrests"`
	MostFrequentType   string  `json:"most_frequent_type"`
	MostCommonArea     *int    `json:"most_common_area"`
	WeekendPercentage  float64 `json:"weekend_percentage"`
	DomesticPercentage float64 `json:"domestic_percentage"`
}

// Summarize computes the KPIs. Domestic incidents are those whose description mentions
// DOMESTIC in any case.
func Summarize(rows []model.IncidentFact) Summary {
	s := Summary{TotalCrimes: len(rows)}
	if len(rows) == 0 {
		return s
	}

	types := make(map[string]int)
	areas := make(map[int]int)
	var weekend, domestic int
	for _, r := range rows {
		if r.Arrest != nil && *r.Arrest {
			s.TotalArrests++
		}
		types[r.PrimaryType]++
		if r.CommunityArea != nil {
			areas[*r.CommunityArea]++
		}
		if r.Weekday != nil && *r.Weekday >= 5 {
			weekend++
		}
		if strings.Contains(strings.ToUpper(r.Description), "DOMESTIC") {
			domestic++
		}
	}

	s.MostFrequentType = topString(types)
	if len(areas) > 0 {
		best, bestN := 0, -1
		for a, n := range areas {
			if n > bestN || (n == bestN && a < best) {
				best, bestN = a, n
			}
		}
		s.MostCommonArea = model.IntPtr(best)
	}
	s.WeekendPercentage = percent(weekend, len(rows))
	s.DomesticPercentage = percent(domestic, len(rows))
	return s
}

// Period is a time-series bucket granularity.
type Period string

const (
	Hourly  Period = "hourly"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// ParsePeriod validates a period name; "" means monthly.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return Monthly, nil
	case Hourly, Weekly, Monthly, Yearly:
		return p, nil
	default:
		return "", eris.Errorf("dashboard: invalid period %q (valid: hourly, weekly, monthly, yearly)", s)
	}
}

// PeriodCount is the number of incidents of one type in one bucket.
type PeriodCount struct {
	Bucket      int    `json:"bucket"`
	PrimaryType string `json:"primary_type"`
	Incidents   int    `json:"incidents"`
}

// GroupByPeriod counts incidents per (bucket, primary type), sorted by bucket then type.
// Weekly buckets are ISO week numbers. Rows without a timestamp are skipped.
func GroupByPeriod(rows []model.IncidentFact, p Period) []PeriodCount {
	type key struct {
		bucket int
		typ    string
	}
	counts := make(map[key]int)
	for _, r := range rows {
		b, ok := bucketOf(r, p)
		if !ok {
			continue
		}
		counts[key{b, r.PrimaryType}]++
	}

	out := make([]PeriodCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, PeriodCount{Bucket: k.bucket, PrimaryType: k.typ, Incidents: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bucket != out[j].Bucket {
			return out[i].Bucket < out[j].Bucket
		}
		return out[i].PrimaryType < out[j].PrimaryType
	})
	return out
}

func bucketOf(r model.IncidentFact, p Period) (int, bool) {
	switch p {
	case Hourly:
		if r.Hour != nil {
			return *r.Hour, true
		}
	case Weekly:
		if r.Date != nil {
			_, w := r.Date.ISOWeek()
			return w, true
		}
	case Monthly:
		if r.Month != nil {
			return *r.Month, true
		}
	case Yearly:
		if r.Year != nil {
			return *r.Year, true
		}
	}
	return 0, false
}

// TypeStats is the severity and arrest profile of one primary type.
type TypeStats struct {
	PrimaryType  string  `json:"primary_type"`
	Incidents    int     `json:"incidents"`
	MeanSeverity float64 `json:"mean_severity"`
	ArrestRate   float64 `json:"arrest_rate"` // percent of incidents with a known arrest flag
}

// SeverityByType scores each incident through the shared severity table and averages per type.
// Spatial density and repeat probability are whole-dataset aggregates and are not
// recomputed here for the filtered subset.
func SeverityByType(rows []model.IncidentFact) []TypeStats {
	type acc struct {
		n, severity, arrests, known int
	}
	byType := make(map[string]*acc)
	for _, r := range rows {
		a := byType[r.PrimaryType]
		if a == nil {
			a = &acc{}
			byType[r.PrimaryType] = a
		}
		a.n++
		a.severity += transform.Severity(r.PrimaryType)
		if r.Arrest != nil {
			a.known++
			if *r.Arrest {
				a.arrests++
			}
		}
	}

	out := make([]TypeStats, 0, len(byType))
	for t, a := range byType {
		out = append(out, TypeStats{
			PrimaryType:  t,
			Incidents:    a.n,
			MeanSeverity: float64(a.severity) / float64(a.n),
			ArrestRate:   percent(a.arrests, a.known),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrimaryType < out[j].PrimaryType })
	return out
}

// TypeCount is one leaderboard entry.
type TypeCount struct {
	PrimaryType string `json:"primary_type"`
	Incidents   int    `json:"incidents"`
}

// Leaderboard ranks primary types by incident count, ties alphabetical. limit <= 0 returns all.
func Leaderboard(rows []model.IncidentFact, limit int) []TypeCount {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.PrimaryType]++
	}
	out := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, TypeCount{PrimaryType: t, Incidents: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Incidents != out[j].Incidents {
			return out[i].Incidents > out[j].Incidents
		}
		return out[i].PrimaryType < out[j].PrimaryType
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func topString(counts map[string]int) string {
	best, bestN := "", -1
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
