// Package model defines the incident records and normalized tables produced by the ETL pipeline.
package model

import "time"

// Incident is one raw crime report after field parsing. Nil pointers are nulls.
type Incident struct {
	ID                  string
	CaseNumber          string
	Date                *time.Time
	Block               string
	PrimaryType         string
	Description         string
	LocationDescription string
	Arrest              *bool
	Domestic            *bool
	Beat                *int
	District            *int
	Ward                *int
	CommunityArea       *int
	Latitude            *float64
	Longitude           *float64

	// Extra holds every other source column, aligned with Table.ExtraColumns.
	Extra []string
}

// EnrichedIncident is an Incident with the derived analytical features appended.
type EnrichedIncident struct {
	Incident

	Year      *int
	Month     *int
	Day       *int
	Hour      *int
	Weekday   *int // Monday=0
	IsWeekend *int
	Season    string // empty when the timestamp is null

	SeverityScore      int
	Rolling7DAvg       *float64
	SpatialDensity     *float64
	RepeatIncidentProb *float64
}

// Table is the in-memory incident table passed between pipeline stages.
type Table struct {
	ExtraColumns []string
	Rows         []Incident
}

// Len returns the row count.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// EnrichedTable is the Feature Enricher output.
type EnrichedTable struct {
	ExtraColumns []string
	Rows         []EnrichedIncident
}

// Len returns the row count.
func (t *EnrichedTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
