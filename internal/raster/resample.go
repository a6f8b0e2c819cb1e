package raster

import (
	"github.com/rotisserie/eris"
)

// Resampling selects the interpolation used when aligning grids.
type Resampling string

const (
	ResamplingBilinear Resampling = "bilinear"
	ResamplingNearest  Resampling = "nearest"
)

// AlignTo resamples src onto the transform and dimensions of ref. Reference
// pixels whose centers fall outside src coverage become nodata.
func AlignTo(src, ref *Grid, method Resampling) (*Grid, error) {
	out := NewGrid(ref.Width, ref.Height, ref.OriginX, ref.OriginY, ref.ScaleX, ref.ScaleY)
	out.EPSG = src.EPSG

	sample := src.SampleBilinear
	switch method {
	case ResamplingBilinear, "":
	case ResamplingNearest:
		sample = src.SampleNearest
	default:
		return nil, eris.Errorf("raster: unknown resampling method %q", method)
	}

	for row := 0; row < ref.Height; row++ {
		for col := 0; col < ref.Width; col++ {
			x, y := ref.PixelCenter(col, row)
			if v, ok := sample(x, y); ok {
				out.Set(col, row, v)
			}
		}
	}
	return out, nil
}

// Diff returns surface minus terrain on the shared grid, clamping negative
// differences (sensor noise) to zero. The second return is the number of
// clamped pixels. Pixels that are nodata in either input stay nodata.
func Diff(surface, terrain *Grid) (*Grid, int, error) {
	if !surface.SameGeometry(terrain) {
		return nil, 0, eris.New("raster: diff requires aligned grids")
	}

	out := NewGrid(surface.Width, surface.Height, surface.OriginX, surface.OriginY, surface.ScaleX, surface.ScaleY)
	out.EPSG = surface.EPSG

	var clamped int
	for row := 0; row < surface.Height; row++ {
		for col := 0; col < surface.Width; col++ {
			s, ok := surface.At(col, row)
			if !ok {
				continue
			}
			t, ok := terrain.At(col, row)
			if !ok {
				continue
			}
			h := s - t
			if h < 0 {
				h = 0
				clamped++
			}
			out.Set(col, row, h)
		}
	}
	return out, clamped, nil
}
