package footprint

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/zoning-audit/internal/model"
)

// LoadGeoJSON reads building footprints from a GeoJSON FeatureCollection.
// Polygon features become one footprint each; MultiPolygon features are
// split into one footprint per member with a suffixed ID. Features with
// other geometry types are skipped and counted.
func LoadGeoJSON(path string, metersPerLevel float64) ([]model.Footprint, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "footprint: read GeoJSON %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, 0, eris.Wrapf(err, "footprint: parse GeoJSON %s", path)
	}

	var footprints []model.Footprint
	var skipped int
	for i, f := range fc.Features {
		id := f.ID
		if id == "" {
			id = fmt.Sprintf("feature/%d", i)
		}

		base := model.Footprint{ID: id}
		base.Name, _ = f.Properties["name"].(string)
		if h, ok := propHeight(f.Properties, metersPerLevel); ok {
			base.TagHeight = &h
		}
		if lv, ok := propFloat(f.Properties, "levels"); ok {
			base.Levels = int(lv)
		}

		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			fp := base
			fp.Geometry = g
			footprints = append(footprints, fp)
		case *geom.MultiPolygon:
			for p := 0; p < g.NumPolygons(); p++ {
				fp := base
				fp.ID = fmt.Sprintf("%s/%d", id, p)
				fp.Geometry = g.Polygon(p)
				footprints = append(footprints, fp)
			}
		default:
			skipped++
			zap.L().Debug("footprint: skipping non-polygon feature", zap.String("id", id))
		}
	}

	return footprints, skipped, nil
}

func propFloat(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

func propHeight(props map[string]any, metersPerLevel float64) (float64, bool) {
	if h, ok := propFloat(props, "height"); ok && h > 0 {
		return h, true
	}
	if lv, ok := propFloat(props, "levels"); ok && lv > 0 {
		return lv * metersPerLevel, true
	}
	return 0, false
}
