package model

import "time"

// LocationKey is the natural key of the locations dimension.
type LocationKey struct {
	Block               string
	LocationDescription string
	CommunityArea       *int
	Latitude            float64
	Longitude           float64
}

// Location is one row of the locations dimension.
type Location struct {
	LocationID int `json:"location_id"`
	LocationKey
	SpatialDensity     *float64 `json:"spatial_density"`
	RepeatIncidentProb *float64 `json:"repeat_incident_prob"`
}

// CrimeType is one row of the crime types dimension.
type CrimeType struct {
	CrimeTypeID int    `json:"crime_type_id"`
	PrimaryType string `json:"primary_type"`
	Description string `json:"description"`
}

// IncidentFact is one row of the incidents fact table.
type IncidentFact struct {
	ID            string
	CaseNumber    string
	Date          *time.Time
	Block         string
	PrimaryType   string
	Description   string
	Arrest        *bool
	Domestic      *bool
	Beat          *int
	District      *int
	Ward          *int
	CommunityArea *int
	LocationID    int
	CrimeTypeID   int

	Year          *int
	Month         *int
	Day           *int
	Hour          *int
	Weekday       *int
	IsWeekend     *int
	Season        string
	SeverityScore int
	Rolling7DAvg  *float64
}

// Tables groups the three normalized tables.
type Tables struct {
	Incidents  []IncidentFact
	Locations  []Location
	CrimeTypes []CrimeType
}

// MonthlyCount is one row of the long-form monthly counts.
type MonthlyCount struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	PrimaryType string `json:"primary_type"`
	CrimeCount  int    `json:"crime_count"`
}

// MonthlyPivotRow is one (year, month) row of the wide pivot; Counts aligns with MonthlyPivot.Types.
type MonthlyPivotRow struct {
	Year   int
	Month  int
	Counts []int
}

// MonthlyPivot is the wide form of the monthly counts, zero-filled.
type MonthlyPivot struct {
	Types []string
	Rows  []MonthlyPivotRow
}

// Reshaped holds both Reshaper outputs.
type Reshaped struct {
	Counts []MonthlyCount
	Pivot  MonthlyPivot
}
