// Package dashboard serves the filtered aggregates the crime dashboard displays, computed
// over the persisted incidents table.
package dashboard

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-etl/internal/model"
	"github.com/sells-group/crime-etl/internal/transform"
)

// AllOption disables the crime-type and time-of-day filters.
const AllOption = "All"

// Filter selects the incidents a dashboard view aggregates over.
type Filter struct {
	// AllYears ignores YearFrom and YearTo.
	AllYears  bool
	YearFrom  int
	YearTo    int
	CrimeType string // "" or "All" means every type
	TimeOfDay string // Morning, Afternoon, Evening, Night; "" or "All" means every hour
}

// ParseFilter reads a Filter from query parameters year_from, year_to, crime_type, and
// time_of_day. Without either year bound every year is included.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		AllYears:  true,
		CrimeType: strings.TrimSpace(q.Get("crime_type")),
		TimeOfDay: strings.TrimSpace(q.Get("time_of_day")),
	}

	from, to := q.Get("year_from"), q.Get("year_to")
	if from != "" || to != "" {
		f.AllYears = false
		f.YearFrom, f.YearTo = 0, 9999
		if from != "" {
			v, err := strconv.Atoi(from)
			if err != nil {
				return f, eris.Errorf("dashboard: invalid year_from %q", from)
			}
			f.YearFrom = v
		}
		if to != "" {
			v, err := strconv.Atoi(to)
			if err != nil {
				return f, eris.Errorf("dashboard: invalid year_to %q", to)
			}
			f.YearTo = v
		}
		if f.YearFrom > f.YearTo {
			return f, eris.Errorf("dashboard: year_from %d is after year_to %d", f.YearFrom, f.YearTo)
		}
	}

	switch f.TimeOfDay {
	case "", AllOption, transform.Morning, transform.Afternoon, transform.Evening, transform.Night:
	default:
		return f, eris.Errorf("dashboard: invalid time_of_day %q", f.TimeOfDay)
	}
	return f, nil
}

// Apply returns the incidents matching f. Rows without a year are dropped by a year range,
// and rows without an hour are dropped by a time-of-day bucket.
func (f Filter) Apply(rows []model.IncidentFact) []model.IncidentFact {
	crimeType := transform.NormalizeLabel(f.CrimeType)
	out := make([]model.IncidentFact, 0, len(rows))
	for _, r := range rows {
		if !f.AllYears && (r.Year == nil || *r.Year < f.YearFrom || *r.Year > f.YearTo) {
			continue
		}
		if crimeType != "" && crimeType != strings.ToUpper(AllOption) && r.PrimaryType != crimeType {
			continue
		}
		if f.TimeOfDay != "" && f.TimeOfDay != AllOption {
			if r.Hour == nil || transform.TimeOfDay(*r.Hour) != f.TimeOfDay {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
