package export

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/crime-etl/internal/model"
)

// LocationFeatures converts the locations dimension into GeoJSON point features (WGS84, lon/lat).
func LocationFeatures(locations []model.Location) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(locations))}
	for i := range locations {
		l := &locations[i]
		props := map[string]any{
			"block":                l.Block,
			"location_description": l.LocationDescription,
			"community_area":       nil,
			"spatial_density":      nil,
			"repeat_incident_prob": nil,
		}
		if l.CommunityArea != nil {
			props["community_area"] = *l.CommunityArea
		}
		if l.SpatialDensity != nil {
			props["spatial_density"] = *l.SpatialDensity
		}
		if l.RepeatIncidentProb != nil {
			props["repeat_incident_prob"] = *l.RepeatIncidentProb
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.Itoa(l.LocationID),
			Geometry:   geom.NewPointFlat(geom.XY, []float64{l.Longitude, l.Latitude}),
			Properties: props,
		})
	}
	return fc
}

func writeGeoJSON(out io.Writer, locations []model.Location) (int, error) {
	data, err := json.Marshal(LocationFeatures(locations))
	if err != nil {
		return 0, eris.Wrap(err, "export: encode geojson")
	}
	if _, err := out.Write(data); err != nil {
		return 0, err
	}
	return len(locations), nil
}
