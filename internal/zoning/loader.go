// Package zoning loads zoning parcel polygons and resolves the height and
// setback policy that applies to each zone.
package zoning

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/zoning-audit/internal/model"
)

// FieldConfig names the shapefile attributes carrying zone metadata.
// Attributes that are absent simply leave the policy to the YAML/default
// resolution step.
type FieldConfig struct {
	ID        string
	Name      string
	MaxHeight string
	Setback   string
}

// DefaultFields returns the attribute names used when none are configured.
func DefaultFields() FieldConfig {
	return FieldConfig{
		ID:        "ZONE_ID",
		Name:      "NAME",
		MaxHeight: "MAX_HT",
		Setback:   "SETBACK",
	}
}

// LoadShapefile reads zoning polygons from an ESRI shapefile. Records with
// missing or malformed geometry are skipped and counted.
func LoadShapefile(path string, fields FieldConfig) ([]model.Zone, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, fields.ID)
	nameIdx := fieldIndex(reader, fields.Name)
	maxHtIdx := fieldIndex(reader, fields.MaxHeight)
	setbackIdx := fieldIndex(reader, fields.Setback)

	var zones []model.Zone
	var skipped int
	record := -1
	for reader.Next() {
		record++
		_, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		zone := model.Zone{
			ID:       attribute(reader, idIdx),
			Name:     attribute(reader, nameIdx),
			Geometry: mp,
		}
		if zone.ID == "" {
			zone.ID = fmt.Sprintf("zone/%d", record)
		}
		zone.SourceMaxHeight = attributeFloat(reader, maxHtIdx)
		zone.SourceSetback = attributeFloat(reader, setbackIdx)

		zones = append(zones, zone)
	}

	if skipped > 0 {
		zap.L().Info("zoning: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(zones) == 0 {
		return nil, eris.Errorf("zoning: no usable zones in %s", path)
	}
	return zones, nil
}

// LoadGeoJSON reads zoning polygons from a GeoJSON FeatureCollection. The
// max_height and setback properties, when present, seed the zone policy.
func LoadGeoJSON(path string) ([]model.Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoning: read GeoJSON %s", path)
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "zoning: parse GeoJSON %s", path)
	}

	var zones []model.Zone
	for i, f := range fc.Features {
		var mp *geom.MultiPolygon
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			mp = geom.NewMultiPolygon(geom.XY)
			if err := mp.Push(g); err != nil {
				continue
			}
		case *geom.MultiPolygon:
			mp = g
		default:
			continue
		}

		zone := model.Zone{ID: f.ID, Geometry: mp}
		if zone.ID == "" {
			zone.ID = fmt.Sprintf("zone/%d", i)
		}
		zone.Name, _ = f.Properties["name"].(string)
		if v, ok := f.Properties["max_height"].(float64); ok {
			zone.SourceMaxHeight = &v
		}
		if v, ok := f.Properties["setback"].(float64); ok {
			zone.SourceSetback = &v
		}
		zones = append(zones, zone)
	}

	if len(zones) == 0 {
		return nil, eris.Errorf("zoning: no usable zones in %s", path)
	}
	return zones, nil
}

// fieldIndex returns the index of a named attribute, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	if name == "" {
		return -1
	}
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

func attribute(reader *shp.Reader, idx int) string {
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

// attributeFloat parses a numeric attribute, nil when the field is absent,
// blank, or unparseable.
func attributeFloat(reader *shp.Reader, idx int) *float64 {
	s := attribute(reader, idx)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// polygonToMultiPolygon converts a shapefile polygon to a go-geom
// MultiPolygon. Per the shapefile spec, clockwise parts are exterior rings
// and counterclockwise parts are holes of the preceding exterior. Malformed
// parts are dropped; nil is returned when nothing usable remains.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var polys []*geom.Polygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		if ringSignedArea(flat) > 0 && len(polys) > 0 {
			// Counterclockwise: a hole of the last exterior ring.
			if err := polys[len(polys)-1].Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
				zap.L().Debug("zoning: skipping malformed hole ring", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("zoning: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		polys = append(polys, poly)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, poly := range polys {
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("zoning: skipping malformed polygon part", zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// ringSignedArea is the shoelace sum; positive means counterclockwise.
func ringSignedArea(flat []float64) float64 {
	var sum float64
	n := len(flat)
	for i := 0; i+3 < n; i += 2 {
		sum += flat[i]*flat[i+3] - flat[i+2]*flat[i+1]
	}
	return sum / 2
}
