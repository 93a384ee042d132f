package model

// Column names of the persisted and exported tables.
var (
	IncidentColumns = []string{
		"id", "case_number", "date", "block", "primary_type", "description",
		"arrest", "domestic", "beat", "district", "ward", "community_area",
		"location_id", "crime_type_id",
		"year", "month", "day", "hour", "weekday", "is_weekend", "season",
		"severity_score", "rolling_7d_avg",
	}
	LocationColumns = []string{
		"location_id", "block", "location_description", "community_area",
		"latitude", "longitude", "spatial_density", "repeat_incident_prob",
	}
	CrimeTypeColumns    = []string{"crime_type_id", "primary_type", "description"}
	MonthlyCountColumns = []string{"year", "month", "primary_type", "crime_count"}
)

// Values returns the row in IncidentColumns order. Nulls are untyped nil; the date is a time.Time.
func (f *IncidentFact) Values() []any {
	var date any
	if f.Date != nil {
		date = *f.Date
	}
	var season any
	if f.Season != "" {
		season = f.Season
	}
	return []any{
		f.ID, f.CaseNumber, date, f.Block, f.PrimaryType, f.Description,
		boolValue(f.Arrest), boolValue(f.Domestic),
		intValue(f.Beat), intValue(f.District), intValue(f.Ward), intValue(f.CommunityArea),
		f.LocationID, f.CrimeTypeID,
		intValue(f.Year), intValue(f.Month), intValue(f.Day), intValue(f.Hour),
		intValue(f.Weekday), intValue(f.IsWeekend), season,
		f.SeverityScore, floatValue(f.Rolling7DAvg),
	}
}

// Values returns the row in LocationColumns order.
func (l *Location) Values() []any {
	return []any{
		l.LocationID, l.Block, l.LocationDescription, intValue(l.CommunityArea),
		l.Latitude, l.Longitude, floatValue(l.SpatialDensity), floatValue(l.RepeatIncidentProb),
	}
}

// Values returns the row in CrimeTypeColumns order.
func (c *CrimeType) Values() []any {
	return []any{c.CrimeTypeID, c.PrimaryType, c.Description}
}

// Values returns the row in MonthlyCountColumns order.
func (m *MonthlyCount) Values() []any {
	return []any{m.Year, m.Month, m.PrimaryType, m.CrimeCount}
}

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolValue(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
