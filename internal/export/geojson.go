// Package export writes audit results to the configured sinks: GeoJSON,
// XLSX, a SQLite results file, and optionally a PostGIS database.
package export

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/zoning-audit/internal/model"
)

// WriteGeoJSON writes the classified buildings as a FeatureCollection.
func WriteGeoJSON(path string, res *model.AuditResult) error {
	fc := geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(res.Violations)),
	}
	for _, v := range res.Violations {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       v.FootprintID,
			Geometry: v.Geometry,
			Properties: map[string]any{
				"name":              v.Name,
				"zone_id":           v.ZoneID,
				"height":            v.Height,
				"height_source":     string(v.HeightSource),
				"boundary_distance": v.BoundaryDistance,
				"category":          string(v.Category),
			},
		})
	}

	data, err := json.Marshal(&fc)
	if err != nil {
		return eris.Wrap(err, "export: encode feature collection")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write geojson %s", path)
	}
	return nil
}
