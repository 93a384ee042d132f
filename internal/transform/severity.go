// Package transform holds the pure field transformations shared by the pipeline and the dashboard.
package transform

import "sort"

// DefaultSeverity is assigned to unmapped or empty primary types.
const DefaultSeverity = 1

// SeverityScores maps normalized primary-type labels to a 1-5 severity.
// 5 = violent/severe, 1 = low severity. This is the only copy of the table.
var SeverityScores = map[string]int{
	"ARSON":                             4,
	"ASSAULT":                           4,
	"BATTERY":                           4,
	"BURGLARY":                          3,
	"CONCEALED CARRY LICENSE VIOLATION": 2,
	"CRIM SEXUAL ASSAULT":               5,
	"CRIMINAL DAMAGE":                   3,
	"CRIMINAL TRESPASS":                 1,
	"DECEPTIVE PRACTICE":                3,
	"GAMBLING":                          2,
	"HOMICIDE":                          5,
	"HUMAN TRAFFICKING":                 5,
	"INTERFERENCE WITH PUBLIC OFFICER":  2,
	"INTIMIDATION":                      1,
	"KIDNAPPING":                        5,
	"LIQUOR LAW VIOLATION":              2,
	"MOTOR VEHICLE THEFT":               3,
	"NARCOTICS":                         3,
	"NON - CRIMINAL":                    1,
	"NON-CRIMINAL":                      1,
	"NON-CRIMINAL (SUBJECT SPECIFIED)":  1,
	"OBSCENITY":                         2,
	"OFFENSE INVOLVING CHILDREN":        1,
	"OTHER NARCOTIC VIOLATION":          2,
	"OTHER OFFENSE":                     2,
	"PROSTITUTION":                      2,
	"PUBLIC INDECENCY":                  1,
	"PUBLIC PEACE VIOLATION":            2,
	"ROBBERY":                           4,
	"SEX OFFENSE":                       1,
	"STALKING":                          1,
	"THEFT":                             3,
	"WEAPONS VIOLATION":                 4,
}

// Severity returns the severity score for a primary-type label.
// The label is normalized first, so "theft " scores the same as "THEFT".
func Severity(primaryType string) int {
	if s, ok := SeverityScores[NormalizeLabel(primaryType)]; ok {
		return s
	}
	return DefaultSeverity
}

// SeverityEntry is one row of the severity table.
type SeverityEntry struct {
	Label string `json:"label"`
	Score int    `json:"score"`
}

// SeverityTable returns the table sorted by label.
func SeverityTable() []SeverityEntry {
	out := make([]SeverityEntry, 0, len(SeverityScores))
	for label, score := range SeverityScores {
		out = append(out, SeverityEntry{Label: label, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
