// Package render produces the human-facing outputs of an audit run: the
// interactive Leaflet map, the summary report, and a static PNG overview.
package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zoning-audit/internal/model"
	"github.com/sells-group/zoning-audit/internal/spatial"
)

// Category colors are fixed so repeated runs over the same data render
// identically.
var categoryColors = map[model.Category]string{
	model.CategoryNone:     "#9aa5ad",
	model.CategoryHeight:   "#f4c20d",
	model.CategoryBoundary: "#f08c00",
	model.CategoryBoth:     "#d7263d",
}

// CategoryColor returns the display color for a category.
func CategoryColor(c model.Category) string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[model.CategoryNone]
}

// MapOptions controls the Leaflet page.
type MapOptions struct {
	Zoom        int
	TileURL     string
	Attribution string
}

type mapFeature struct {
	// LatLngs is the exterior ring as [lat, lng] pairs, Leaflet order.
	LatLngs  [][2]float64 `json:"latlngs"`
	Color    string       `json:"color"`
	Name     string       `json:"name"`
	Zone     string       `json:"zone"`
	Category string       `json:"category"`
	Height   float64      `json:"height"`
	Distance float64      `json:"distance"`
}

type legendEntry struct {
	Label string
	Color string
}

type mapPage struct {
	CenterLat   float64
	CenterLng   float64
	Zoom        int
	TileURL     string
	Attribution template.HTML
	Features    template.JS
	Legend      []legendEntry
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8"/>
<title>Zoning Audit</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css"/>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>
  html, body, #map { height: 100%; margin: 0; }
  .legend { background: white; padding: 8px 12px; border-radius: 4px; box-shadow: 0 1px 4px rgba(0,0,0,0.3); font: 13px sans-serif; }
  .legend i { display: inline-block; width: 12px; height: 12px; margin-right: 6px; vertical-align: -1px; }
</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLng}}], {{.Zoom}});
L.tileLayer('{{.TileURL}}', {attribution: '{{.Attribution}}'}).addTo(map);
var features = {{.Features}};
features.forEach(function (f) {
  L.polygon(f.latlngs, {color: f.color, fillColor: f.color, fillOpacity: 0.45, weight: 1.5})
    .bindPopup('<b>' + f.name + '</b><br/>Zone: ' + f.zone +
      '<br/>Height: ' + f.height.toFixed(2) + ' m' +
      '<br/>Boundary distance: ' + f.distance.toFixed(2) + ' m' +
      '<br/>Category: ' + f.category)
    .addTo(map);
});
var legend = L.control({position: 'bottomright'});
legend.onAdd = function () {
  var div = L.DomUtil.create('div', 'legend');
  div.innerHTML = '{{range .Legend}}<i style="background:{{.Color}}"></i>{{.Label}}<br/>{{end}}';
  return div;
};
legend.addTo(map);
</script>
</body>
</html>
`))

// WriteMap renders the classified buildings to a standalone Leaflet HTML
// page. Features follow the result's violation order, so the page is
// byte-identical across runs over the same classified set.
func WriteMap(path string, res *model.AuditResult, opts MapOptions) error {
	features := make([]mapFeature, 0, len(res.Violations))
	var sumLat, sumLng float64
	for _, v := range res.Violations {
		cx, cy := spatial.Centroid(v.Geometry)
		sumLng += cx
		sumLat += cy
		features = append(features, mapFeature{
			LatLngs:  exteriorLatLngs(v),
			Color:    CategoryColor(v.Category),
			Name:     featureName(v),
			Zone:     v.ZoneID,
			Category: string(v.Category),
			Height:   v.Height,
			Distance: v.BoundaryDistance,
		})
	}

	page := mapPage{
		Zoom:        opts.Zoom,
		TileURL:     opts.TileURL,
		Attribution: template.HTML(opts.Attribution),
	}
	if n := len(features); n > 0 {
		page.CenterLat = sumLat / float64(n)
		page.CenterLng = sumLng / float64(n)
	}
	encoded, err := json.Marshal(features)
	if err != nil {
		return eris.Wrap(err, "render: encode features")
	}
	page.Features = template.JS(encoded)
	for _, c := range model.Categories() {
		page.Legend = append(page.Legend, legendEntry{Label: string(c), Color: CategoryColor(c)})
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create map %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := mapTemplate.Execute(f, page); err != nil {
		return eris.Wrap(err, "render: execute map template")
	}
	zap.L().With(zap.String("component", "render")).Info("render: map written",
		zap.String("path", path), zap.Int("features", len(features)))
	return nil
}

func exteriorLatLngs(v model.Violation) [][2]float64 {
	ring := v.Geometry.LinearRing(0).FlatCoords()
	stride := v.Geometry.Stride()
	out := make([][2]float64, 0, len(ring)/stride)
	for i := 0; i+1 < len(ring); i += stride {
		out = append(out, [2]float64{ring[i+1], ring[i]})
	}
	return out
}

func featureName(v model.Violation) string {
	if v.Name != "" {
		return v.Name
	}
	return fmt.Sprintf("Building %s", v.FootprintID)
}
