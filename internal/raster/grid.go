// Package raster reads single-band GeoTIFF elevation rasters and provides
// grid sampling, alignment, and differencing for height estimation.
package raster

import (
	"math"
)

// Grid is a single-band raster in a geographic coordinate system. Pixel
// (0, 0) is the northwest corner; rows increase southward.
type Grid struct {
	Width  int
	Height int

	// OriginX/OriginY locate the outer corner of the northwest pixel.
	OriginX float64
	OriginY float64
	// ScaleX/ScaleY are the pixel sizes in CRS units, both positive.
	ScaleX float64
	ScaleY float64

	// EPSG is the coordinate reference system code, 0 if the file did not
	// declare one.
	EPSG int

	NoData    float64
	HasNoData bool

	samples []float64
}

// NewGrid creates an empty grid with the given geometry. All samples start
// as nodata so partially filled grids stay honest.
func NewGrid(width, height int, originX, originY, scaleX, scaleY float64) *Grid {
	g := &Grid{
		Width:     width,
		Height:    height,
		OriginX:   originX,
		OriginY:   originY,
		ScaleX:    scaleX,
		ScaleY:    scaleY,
		NoData:    math.Inf(-1),
		HasNoData: true,
		samples:   make([]float64, width*height),
	}
	for i := range g.samples {
		g.samples[i] = g.NoData
	}
	return g
}

// At returns the sample at the given pixel and whether it is valid data.
// Out-of-bounds and nodata pixels report false.
func (g *Grid) At(col, row int) (float64, bool) {
	if col < 0 || row < 0 || col >= g.Width || row >= g.Height {
		return 0, false
	}
	v := g.samples[row*g.Width+col]
	if math.IsNaN(v) || (g.HasNoData && v == g.NoData) {
		return 0, false
	}
	return v, true
}

// Set writes a sample at the given pixel.
func (g *Grid) Set(col, row int, v float64) {
	if col < 0 || row < 0 || col >= g.Width || row >= g.Height {
		return
	}
	g.samples[row*g.Width+col] = v
}

// GeoToPixel converts a CRS coordinate to fractional pixel coordinates.
func (g *Grid) GeoToPixel(x, y float64) (fcol, frow float64) {
	return (x - g.OriginX) / g.ScaleX, (g.OriginY - y) / g.ScaleY
}

// PixelCenter returns the CRS coordinate of a pixel center.
func (g *Grid) PixelCenter(col, row int) (x, y float64) {
	return g.OriginX + (float64(col)+0.5)*g.ScaleX,
		g.OriginY - (float64(row)+0.5)*g.ScaleY
}

// Envelope returns the CRS bounding box of the grid as minX, minY, maxX, maxY.
func (g *Grid) Envelope() (minX, minY, maxX, maxY float64) {
	return g.OriginX,
		g.OriginY - float64(g.Height)*g.ScaleY,
		g.OriginX + float64(g.Width)*g.ScaleX,
		g.OriginY
}

// Contains reports whether a CRS coordinate falls within the grid extent.
func (g *Grid) Contains(x, y float64) bool {
	minX, minY, maxX, maxY := g.Envelope()
	return x >= minX && x < maxX && y > minY && y <= maxY
}

// SampleNearest returns the nearest-neighbor sample at a CRS coordinate.
func (g *Grid) SampleNearest(x, y float64) (float64, bool) {
	fcol, frow := g.GeoToPixel(x, y)
	return g.At(int(math.Floor(fcol)), int(math.Floor(frow)))
}

// SampleBilinear returns a bilinear interpolation of the four pixel centers
// surrounding a CRS coordinate. Neighbors that are nodata are dropped from
// the weighting; all-nodata neighborhoods report false.
func (g *Grid) SampleBilinear(x, y float64) (float64, bool) {
	fcol, frow := g.GeoToPixel(x, y)
	// Shift to pixel-center space.
	fc, fr := fcol-0.5, frow-0.5

	c0 := int(math.Floor(fc))
	r0 := int(math.Floor(fr))
	tx := fc - float64(c0)
	ty := fr - float64(r0)

	var sum, weight float64
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			v, ok := g.At(c0+dc, r0+dr)
			if !ok {
				continue
			}
			wx := tx
			if dc == 0 {
				wx = 1 - tx
			}
			wy := ty
			if dr == 0 {
				wy = 1 - ty
			}
			w := wx * wy
			sum += v * w
			weight += w
		}
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}

// SameGeometry reports whether two grids share transform and dimensions,
// within a small tolerance on the transform.
func (g *Grid) SameGeometry(other *Grid) bool {
	const eps = 1e-9
	return g.Width == other.Width && g.Height == other.Height &&
		math.Abs(g.OriginX-other.OriginX) < eps &&
		math.Abs(g.OriginY-other.OriginY) < eps &&
		math.Abs(g.ScaleX-other.ScaleX) < eps &&
		math.Abs(g.ScaleY-other.ScaleY) < eps
}

// ValidSamples returns all non-nodata sample values.
func (g *Grid) ValidSamples() []float64 {
	out := make([]float64, 0, len(g.samples))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if v, ok := g.At(col, row); ok {
				out = append(out, v)
			}
		}
	}
	return out
}
