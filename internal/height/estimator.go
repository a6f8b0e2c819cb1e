// Package height estimates building heights from a DSM-DTM difference grid.
package height

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sells-group/zoning-audit/internal/model"
	"github.com/sells-group/zoning-audit/internal/raster"
	"github.com/sells-group/zoning-audit/internal/spatial"
)

// Aggregate selects how per-pixel heights reduce to one value per building.
type Aggregate string

const (
	AggregateMax  Aggregate = "max"
	AggregateMean Aggregate = "mean"
	AggregateP90  Aggregate = "p90"
)

// ErrOutsideCoverage marks a footprint with no usable raster samples. The
// pipeline treats it as skippable, not fatal.
var ErrOutsideCoverage = eris.New("height: footprint outside raster coverage")

// Estimate is the derived height for one building.
type Estimate struct {
	Height  float64
	Source  model.HeightSource
	Samples int
}

// Estimator samples a height grid over footprint polygons.
type Estimator struct {
	heights   *raster.Grid
	aggregate Aggregate
}

// NewEstimator creates an estimator over an already-differenced height grid.
func NewEstimator(heights *raster.Grid, aggregate Aggregate) (*Estimator, error) {
	switch aggregate {
	case AggregateMax, AggregateMean, AggregateP90:
	case "":
		aggregate = AggregateMax
	default:
		return nil, eris.Errorf("height: unknown aggregate %q", aggregate)
	}
	return &Estimator{heights: heights, aggregate: aggregate}, nil
}

// Estimate samples the height grid at every pixel center inside the
// footprint and aggregates. Footprints smaller than a pixel fall back to a
// bilinear sample at the centroid. A footprint with no valid samples at all
// returns ErrOutsideCoverage.
func (e *Estimator) Estimate(fp model.Footprint) (Estimate, error) {
	values := e.maskSamples(fp)

	if len(values) == 0 {
		cx, cy := spatial.Centroid(fp.Geometry)
		if !e.heights.Contains(cx, cy) {
			return Estimate{}, ErrOutsideCoverage
		}
		v, ok := e.heights.SampleBilinear(cx, cy)
		if !ok {
			return Estimate{}, ErrOutsideCoverage
		}
		return Estimate{Height: v, Source: model.HeightSourceRaster, Samples: 1}, nil
	}

	var h float64
	switch e.aggregate {
	case AggregateMean:
		h = stat.Mean(values, nil)
	case AggregateP90:
		sort.Float64s(values)
		h = stat.Quantile(0.9, stat.Empirical, values, nil)
	default:
		h = floats.Max(values)
	}

	return Estimate{Height: h, Source: model.HeightSourceRaster, Samples: len(values)}, nil
}

// maskSamples collects valid grid values at pixel centers inside the polygon.
func (e *Estimator) maskSamples(fp model.Footprint) []float64 {
	bounds := fp.Geometry.Bounds()
	minCol, maxRow := e.heights.GeoToPixel(bounds.Min(0), bounds.Min(1))
	maxCol, minRow := e.heights.GeoToPixel(bounds.Max(0), bounds.Max(1))

	c0 := int(math.Floor(minCol))
	c1 := int(math.Ceil(maxCol))
	r0 := int(math.Floor(minRow))
	r1 := int(math.Ceil(maxRow))

	var values []float64
	for row := r0; row < r1; row++ {
		for col := c0; col < c1; col++ {
			v, ok := e.heights.At(col, row)
			if !ok {
				continue
			}
			x, y := e.heights.PixelCenter(col, row)
			if !spatial.PolygonContains(fp.Geometry, x, y) {
				continue
			}
			values = append(values, v)
		}
	}
	return values
}
