package store

import (
	"fmt"
	"strings"

	"github.com/sells-group/crime-etl/internal/model"
)

type column struct {
	name     string
	sqlite   string
	postgres string
}

type tableDef struct {
	name    string
	columns []column
}

func textCol(n string) column { return column{n, "TEXT", "TEXT"} }
func intCol(n string) column { return column{n, "INTEGER", "INTEGER"} }
func floatCol(n string) column { return column{n, "REAL", "DOUBLE PRECISION"} }
func boolCol(n string) column { return column{n, "INTEGER", "BOOLEAN"} }
func keyCol(n string) column { return column{n, "INTEGER PRIMARY KEY", "INTEGER PRIMARY KEY"} }

var incidentsDef = tableDef{
	name: TableIncidents,
	columns: []column{
		textCol("id"), textCol("case_number"), {"date", "TEXT", "TIMESTAMP"}, textCol("block"),
		textCol("primary_type"), textCol("description"), boolCol("arrest"), boolCol("domestic"),
		intCol("beat"), intCol("district"), intCol("ward"), intCol("community_area"),
		intCol("location_id"), intCol("crime_type_id"),
		intCol("year"), intCol("month"), intCol("day"), intCol("hour"), intCol("weekday"),
		intCol("is_weekend"), textCol("season"), intCol("severity_score"), floatCol("rolling_7d_avg"),
	},
}

var locationsDef = tableDef{
	name: TableLocations,
	columns: []column{
		keyCol("location_id"), textCol("block"), textCol("location_description"), intCol("community_area"),
		floatCol("latitude"), floatCol("longitude"), floatCol("spatial_density"), floatCol("repeat_incident_prob"),
	},
}

var crimeTypesDef = tableDef{
	name:    TableCrimeTypes,
	columns: []column{keyCol("crime_type_id"), textCol("primary_type"), textCol("description")},
}

func (t tableDef) columnNames() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.name
	}
	return out
}

func (t tableDef) sqliteSchema() string {
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		parts[i] = fmt.Sprintf("%q %s", c.name, c.sqlite)
	}
	return strings.Join(parts, ", ")
}

func (t tableDef) postgresSchema() string {
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		parts[i] = fmt.Sprintf("%q %s", c.name, c.postgres)
	}
	return strings.Join(parts, ", ")
}

// tableRows flattens the normalized tables into rows matching each tableDef's column order.
type tableRows struct {
	def  tableDef
	rows [][]any
}

func flatten(tables *model.Tables) []tableRows {
	incidents := make([][]any, len(tables.Incidents))
	for i := range tables.Incidents {
		incidents[i] = tables.Incidents[i].Values()
	}
	locations := make([][]any, len(tables.Locations))
	for i := range tables.Locations {
		locations[i] = tables.Locations[i].Values()
	}
	crimeTypes := make([][]any, len(tables.CrimeTypes))
	for i := range tables.CrimeTypes {
		crimeTypes[i] = tables.CrimeTypes[i].Values()
	}
	// Dimensions first.
	return []tableRows{
		{crimeTypesDef, crimeTypes},
		{locationsDef, locations},
		{incidentsDef, incidents},
	}
}
