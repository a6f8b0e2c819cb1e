// Package footprint loads building footprints from OSM Overpass exports and
// GeoJSON files.
package footprint

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/zoning-audit/internal/model"
)

// osmElement is one entry of an Overpass export's elements array.
type osmElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

type osmExport struct {
	Elements []osmElement `json:"elements"`
}

// LoadOSM reads an Overpass export JSON file and reconstructs building
// polygons from its ways. Ways without a building tag are ignored; ways with
// fewer than three resolvable nodes are skipped and counted. The returned
// int is the skip count.
func LoadOSM(path string, metersPerLevel float64) ([]model.Footprint, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "footprint: read OSM export %s", path)
	}

	var export osmExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, 0, eris.Wrapf(err, "footprint: parse OSM export %s", path)
	}

	// First pass: node id -> coordinate.
	nodes := make(map[int64][2]float64)
	for _, el := range export.Elements {
		if el.Type == "node" {
			nodes[el.ID] = [2]float64{el.Lon, el.Lat}
		}
	}

	var footprints []model.Footprint
	var skipped int
	for _, el := range export.Elements {
		if el.Type != "way" {
			continue
		}
		if _, ok := el.Tags["building"]; !ok {
			continue
		}

		fp, err := wayToFootprint(el, nodes, metersPerLevel)
		if err != nil {
			skipped++
			zap.L().Debug("footprint: skipping way",
				zap.Int64("way", el.ID),
				zap.Error(err),
			)
			continue
		}
		footprints = append(footprints, fp)
	}

	if skipped > 0 {
		zap.L().Info("footprint: skipped malformed OSM ways",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return footprints, skipped, nil
}

func wayToFootprint(el osmElement, nodes map[int64][2]float64, metersPerLevel float64) (model.Footprint, error) {
	flat := make([]float64, 0, (len(el.Nodes)+1)*2)
	for _, nid := range el.Nodes {
		c, ok := nodes[nid]
		if !ok {
			continue
		}
		flat = append(flat, c[0], c[1])
	}
	if len(flat) < 6 {
		return model.Footprint{}, eris.Errorf("way %d has %d resolvable nodes, need 3", el.ID, len(flat)/2)
	}

	// Overpass ways list the first node again at the end; tolerate exports
	// that do not.
	if flat[0] != flat[len(flat)-2] || flat[1] != flat[len(flat)-1] {
		flat = append(flat, flat[0], flat[1])
	}

	poly := geom.NewPolygon(geom.XY)
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
		return model.Footprint{}, eris.Wrapf(err, "way %d ring", el.ID)
	}

	fp := model.Footprint{
		ID:       fmt.Sprintf("way/%d", el.ID),
		Name:     el.Tags["name"],
		Geometry: poly,
	}

	if h, ok := parseTagHeight(el.Tags, metersPerLevel); ok {
		fp.TagHeight = &h
	}
	if lv, err := strconv.Atoi(strings.TrimSpace(el.Tags["building:levels"])); err == nil {
		fp.Levels = lv
	}

	return fp, nil
}

// parseTagHeight derives a height in meters from OSM tags: the height tag if
// parseable (with an optional "m" suffix), otherwise building:levels scaled
// by metersPerLevel.
func parseTagHeight(tags map[string]string, metersPerLevel float64) (float64, bool) {
	if raw, ok := tags["height"]; ok {
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "m"))
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
			return v, true
		}
	}
	if raw, ok := tags["building:levels"]; ok {
		if lv, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && lv > 0 {
			return float64(lv) * metersPerLevel, true
		}
	}
	return 0, false
}
