package etl

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/crime-etl/internal/model"
)

// Normalize projects the enriched table into the incidents fact table and the locations and
// crime types dimensions. Dimension rows get surrogate ids 1..n in first-appearance order;
// when rows sharing a key disagree on other attributes, the first one wins.
func Normalize(t *model.EnrichedTable) *model.Tables {
	out := &model.Tables{}
	if t == nil {
		return out
	}

	locIDs := make(map[string]int)
	typeIDs := make(map[string]int)
	out.Incidents = make([]model.IncidentFact, 0, len(t.Rows))

	for i := range t.Rows {
		row := &t.Rows[i]

		lk := locationKey(row)
		locID, ok := locIDs[lk.id]
		if !ok {
			locID = len(out.Locations) + 1
			locIDs[lk.id] = locID
			out.Locations = append(out.Locations, model.Location{
				LocationID:         locID,
				LocationKey:        lk.key,
				SpatialDensity:     row.SpatialDensity,
				RepeatIncidentProb: row.RepeatIncidentProb,
			})
		}

		tk := row.PrimaryType + keySep + row.Description
		typeID, ok := typeIDs[tk]
		if !ok {
			typeID = len(out.CrimeTypes) + 1
			typeIDs[tk] = typeID
			out.CrimeTypes = append(out.CrimeTypes, model.CrimeType{
				CrimeTypeID: typeID,
				PrimaryType: row.PrimaryType,
				Description: row.Description,
			})
		}

		out.Incidents = append(out.Incidents, model.IncidentFact{
			ID:            row.ID,
			CaseNumber:    row.CaseNumber,
			Date:          row.Date,
			Block:         row.Block,
			PrimaryType:   row.PrimaryType,
			Description:   row.Description,
			Arrest:        row.Arrest,
			Domestic:      row.Domestic,
			Beat:          row.Beat,
			District:      row.District,
			Ward:          row.Ward,
			CommunityArea: row.CommunityArea,
			LocationID:    locID,
			CrimeTypeID:   typeID,
			Year:          row.Year,
			Month:         row.Month,
			Day:           row.Day,
			Hour:          row.Hour,
			Weekday:       row.Weekday,
			IsWeekend:     row.IsWeekend,
			Season:        row.Season,
			SeverityScore: row.SeverityScore,
			Rolling7DAvg:  row.Rolling7DAvg,
		})
	}

	zap.L().Info("normalize: tables projected",
		zap.String("stage", string(StageNormalize)),
		zap.Int("incidents", len(out.Incidents)),
		zap.Int("locations", len(out.Locations)),
		zap.Int("crime_types", len(out.CrimeTypes)),
	)
	return out
}

type keyedLocation struct {
	id  string
	key model.LocationKey
}

func locationKey(row *model.EnrichedIncident) keyedLocation {
	var lat, lon float64
	if row.Latitude != nil {
		lat = *row.Latitude
	}
	if row.Longitude != nil {
		lon = *row.Longitude
	}

	area := keyNull
	if row.CommunityArea != nil {
		area = strconv.Itoa(*row.CommunityArea)
	}

	id := strings.Join([]string{
		row.Block,
		row.LocationDescription,
		area,
		strconv.FormatFloat(lat, 'g', -1, 64),
		strconv.FormatFloat(lon, 'g', -1, 64),
	}, keySep)

	return keyedLocation{
		id: id,
		key: model.LocationKey{
			Block:               row.Block,
			LocationDescription: row.LocationDescription,
			CommunityArea:       row.CommunityArea,
			Latitude:            lat,
			Longitude:           lon,
		},
	}
}
