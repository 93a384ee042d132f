package etl

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crime-etl/internal/model"
)

// Raw column names as published by the City of Chicago data portal.
const (
	ColID                  = "ID"
	ColCaseNumber          = "Case Number"
	ColDate                = "Date"
	ColBlock               = "Block"
	ColPrimaryType         = "Primary Type"
	ColDescription         = "Description"
	ColLocationDescription = "Location Description"
	ColArrest              = "Arrest"
	ColDomestic            = "Domestic"
	ColBeat                = "Beat"
	ColDistrict            = "District"
	ColWard                = "Ward"
	ColCommunityArea       = "Community Area"
	ColLatitude            = "Latitude"
	ColLongitude           = "Longitude"
)

// RequiredColumns must all be present in the input header.
var RequiredColumns = []string{
	ColID, ColCaseNumber, ColDate, ColBlock, ColPrimaryType, ColDescription,
	ColLocationDescription, ColArrest, ColDomestic, ColBeat, ColDistrict, ColWard,
	ColCommunityArea, ColLatitude, ColLongitude,
}

// timestampLayouts are tried in order; the portal's native format comes first.
var timestampLayouts = []string{
	"01/02/2006 03:04:05 PM",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalizeCol lowercases, trims, and maps "_" to " " so "case_number" matches "Case Number".
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "_", " ")
}

// mapColumns builds a normalized column name to index map. The first occurrence wins.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		key := normalizeCol(col)
		if _, dup := m[key]; !dup {
			m[key] = i
		}
	}
	return m
}

// getCol gets a column value by name from a record, returning "" if absent.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[normalizeCol(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// ParseTimestamp parses an incident timestamp. It returns nil for empty or unparseable input.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseFloatPtr parses a float, returning nil for empty, NaN, or invalid input.
func parseFloatPtr(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseIntPtr parses an integer identifier; float spellings such as "12.0" are accepted.
func parseIntPtr(s string) *int {
	f := parseFloatPtr(s)
	if f == nil {
		return nil
	}
	v := int(*f)
	return &v
}

// parseBoolPtr parses "true"/"false" style flags, returning nil when unrecognized.
func parseBoolPtr(s string) *bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		switch strings.ToUpper(s) {
		case "Y", "YES":
			v = true
		case "N", "NO":
			v = false
		default:
			return nil
		}
	}
	return &v
}

// BuildTable converts a header and raw records into the incident table.
// Records wider than the header are a parse error; shorter records are padded with empty fields.
func BuildTable(header []string, records [][]string) (*model.Table, error) {
	colIdx := mapColumns(header)

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := colIdx[normalizeCol(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	known := make(map[int]bool, len(RequiredColumns))
	for _, col := range RequiredColumns {
		known[colIdx[normalizeCol(col)]] = true
	}
	var extraIdx []int
	var extraCols []string
	for i, col := range header {
		if !known[i] {
			extraIdx = append(extraIdx, i)
			extraCols = append(extraCols, col)
		}
	}

	t := &model.Table{ExtraColumns: extraCols, Rows: make([]model.Incident, 0, len(records))}
	for n, rec := range records {
		if len(rec) > len(header) {
			// +2: one for the header line, one for 1-based numbering.
			return nil, &ParseError{Line: n + 2, Err: eris.Errorf("expected %d fields, saw %d", len(header), len(rec))}
		}
		t.Rows = append(t.Rows, parseIncident(rec, colIdx, extraIdx))
	}
	return t, nil
}

func parseIncident(rec []string, colIdx map[string]int, extraIdx []int) model.Incident {
	inc := model.Incident{
		ID:                  getCol(rec, colIdx, ColID),
		CaseNumber:          getCol(rec, colIdx, ColCaseNumber),
		Date:                ParseTimestamp(getCol(rec, colIdx, ColDate)),
		Block:               getCol(rec, colIdx, ColBlock),
		PrimaryType:         getCol(rec, colIdx, ColPrimaryType),
		Description:         getCol(rec, colIdx, ColDescription),
		LocationDescription: getCol(rec, colIdx, ColLocationDescription),
		Arrest:              parseBoolPtr(getCol(rec, colIdx, ColArrest)),
		Domestic:            parseBoolPtr(getCol(rec, colIdx, ColDomestic)),
		Beat:                parseIntPtr(getCol(rec, colIdx, ColBeat)),
		District:            parseIntPtr(getCol(rec, colIdx, ColDistrict)),
		Ward:                parseIntPtr(getCol(rec, colIdx, ColWard)),
		CommunityArea:       parseIntPtr(getCol(rec, colIdx, ColCommunityArea)),
		Latitude:            parseFloatPtr(getCol(rec, colIdx, ColLatitude)),
		Longitude:           parseFloatPtr(getCol(rec, colIdx, ColLongitude)),
	}
	if len(extraIdx) > 0 {
		inc.Extra = make([]string, len(extraIdx))
		for i, idx := range extraIdx {
			if idx < len(rec) {
				inc.Extra[i] = rec[idx]
			}
		}
	}
	return inc
}
