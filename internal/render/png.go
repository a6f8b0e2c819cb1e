package render

import (
	"math"

	"github.com/fogleman/gg"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/image/colornames"

	"github.com/sells-group/zoning-audit/internal/model"
)

const pngMargin = 20 // pixels

// WritePNG draws a static overview: zone outlines over footprints filled
// in their category colors. Width is in pixels; height follows the data
// aspect ratio.
func WritePNG(path string, zones []model.Zone, res *model.AuditResult, width int) error {
	if width <= 0 {
		width = 1200
	}

	minX, minY, maxX, maxY, ok := dataBounds(zones, res)
	if !ok {
		return eris.New("render: nothing to draw")
	}

	spanX, spanY := maxX-minX, maxY-minY
	if spanX <= 0 {
		spanX = 1
	}
	if spanY <= 0 {
		spanY = 1
	}
	inner := float64(width - 2*pngMargin)
	scale := inner / spanX
	height := int(math.Ceil(spanY*scale)) + 2*pngMargin

	dc := gg.NewContext(width, height)
	dc.SetColor(colornames.White)
	dc.Clear()

	// Geographic y grows north, image y grows down.
	toPixel := func(x, y float64) (float64, float64) {
		return pngMargin + (x-minX)*scale, float64(height) - pngMargin - (y-minY)*scale
	}

	for _, z := range zones {
		for i := 0; i < z.Geometry.NumPolygons(); i++ {
			tracePolygon(dc, z.Geometry.Polygon(i), toPixel)
			dc.SetColor(colornames.Slategray)
			dc.SetLineWidth(1.5)
			dc.Stroke()
		}
	}

	for _, v := range res.Violations {
		tracePolygon(dc, v.Geometry, toPixel)
		dc.SetHexColor(CategoryColor(v.Category))
		dc.FillPreserve()
		dc.SetColor(colornames.Black)
		dc.SetLineWidth(0.75)
		dc.Stroke()
	}

	if err := dc.SavePNG(path); err != nil {
		return eris.Wrapf(err, "render: save png %s", path)
	}
	return nil
}

func tracePolygon(dc *gg.Context, p *geom.Polygon, toPixel func(x, y float64) (float64, float64)) {
	for r := 0; r < p.NumLinearRings(); r++ {
		flat := p.LinearRing(r).FlatCoords()
		stride := p.Stride()
		dc.NewSubPath()
		for i := 0; i+1 < len(flat); i += stride {
			px, py := toPixel(flat[i], flat[i+1])
			if i == 0 {
				dc.MoveTo(px, py)
			} else {
				dc.LineTo(px, py)
			}
		}
		dc.ClosePath()
	}
}

func dataBounds(zones []model.Zone, res *model.AuditResult) (minX, minY, maxX, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	grow := func(b *geom.Bounds) {
		minX = math.Min(minX, b.Min(0))
		minY = math.Min(minY, b.Min(1))
		maxX = math.Max(maxX, b.Max(0))
		maxY = math.Max(maxY, b.Max(1))
		ok = true
	}
	for _, z := range zones {
		grow(z.Geometry.Bounds())
	}
	for _, v := range res.Violations {
		grow(v.Geometry.Bounds())
	}
	return minX, minY, maxX, maxY, ok
}
