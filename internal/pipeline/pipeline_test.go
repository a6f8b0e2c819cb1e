package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/zoning-audit/internal/height"
	"github.com/sells-group/zoning-audit/internal/model"
	"github.com/sells-group/zoning-audit/internal/raster"
)

func constGrid(t *testing.T, width, h int, originX, originY, scale, value float64) *raster.Grid {
	t.Helper()
	g := raster.NewGrid(width, h, originX, originY, scale, scale)
	for row := 0; row < h; row++ {
		for col := 0; col < width; col++ {
			g.Set(col, row, value)
		}
	}
	return g
}

func squarePolygon(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY,
	}, []int{10})
}

func squareZone(id string, minX, minY, maxX, maxY float64, policy model.Policy) model.Zone {
	return model.Zone{
		ID: id,
		Geometry: geom.NewMultiPolygonFlat(geom.XY, []float64{
			minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY,
		}, [][]int{{10}}),
		Policy: policy,
	}
}

func testInputs(t *testing.T) *Inputs {
	t.Helper()
	tag := 50.0
	return &Inputs{
		// Surface 20, terrain 5: derived height 15 everywhere under coverage.
		Surface: constGrid(t, 10, 10, 0, 10, 1, 20),
		Terrain: constGrid(t, 10, 10, 0, 10, 1, 5),
		Footprints: []model.Footprint{
			// Named out of order to exercise output sorting.
			{ID: "b", Name: "warehouse", Geometry: squarePolygon(24, 24, 26, 26), TagHeight: &tag},
			{ID: "a", Name: "tower", Geometry: squarePolygon(2, 2, 4, 4)},
			{ID: "c", Name: "shed", Geometry: squarePolygon(40, 40, 41, 41)},
		},
		Zones: []model.Zone{
			squareZone("Z1", 0, 0, 10, 10, model.Policy{MaxHeight: 10, Setback: 5}),
			// Setback wide enough that anything inside violates it.
			squareZone("Z2", 20, 20, 30, 30, model.Policy{MaxHeight: 100, Setback: 500_000}),
		},
	}
}

func TestExecuteClassifiesAndSorts(t *testing.T) {
	in := testInputs(t)

	res, err := Execute(in, Options{Aggregate: height.AggregateMax, TagFallback: true})
	require.NoError(t, err)

	require.Len(t, res.Violations, 2)
	assert.Equal(t, "a", res.Violations[0].FootprintID)
	assert.Equal(t, "b", res.Violations[1].FootprintID)

	// "a" sits on raster coverage: height 15 over a 10m limit, but far from
	// the zone boundary.
	a := res.Violations[0]
	assert.Equal(t, model.CategoryHeight, a.Category)
	assert.Equal(t, model.HeightSourceRaster, a.HeightSource)
	assert.InDelta(t, 15.0, a.Height, 1e-9)
	assert.Equal(t, "Z1", a.ZoneID)
	assert.Greater(t, a.BoundaryDistance, 5.0)

	// "b" is outside raster coverage and falls back to its tagged height,
	// which is compliant, but it cannot satisfy a 500km setback.
	b := res.Violations[1]
	assert.Equal(t, model.CategoryBoundary, b.Category)
	assert.Equal(t, model.HeightSourceTags, b.HeightSource)
	assert.InDelta(t, 50.0, b.Height, 1e-9)
	assert.Equal(t, "Z2", b.ZoneID)

	assert.Equal(t, 3, res.Counters.Footprints)
	assert.Equal(t, 2, res.Counters.Zones)
	assert.Equal(t, 2, res.Counters.Classified)
	assert.Equal(t, 1, res.Counters.SkippedNoZone)
	assert.Equal(t, 0, res.Counters.SkippedCoverage)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
}

func TestExecuteSkipsCoverageWithoutFallback(t *testing.T) {
	in := testInputs(t)

	res, err := Execute(in, Options{Aggregate: height.AggregateMax, TagFallback: false})
	require.NoError(t, err)

	// Only "a" classifies; "b" has no raster coverage and fallback is off.
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "a", res.Violations[0].FootprintID)
	assert.Equal(t, 1, res.Counters.SkippedCoverage)
}

func TestExecuteCRSMismatchFatal(t *testing.T) {
	in := testInputs(t)
	in.Surface.EPSG = 4326
	in.Terrain.EPSG = 3857

	_, err := Execute(in, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CRS mismatch")
}

func TestExecuteResamplesMismatchedGrids(t *testing.T) {
	in := testInputs(t)
	// Terrain at twice the resolution still describes the same flat plane.
	in.Terrain = constGrid(t, 20, 20, 0, 10, 0.5, 5)

	res, err := Execute(in, Options{Resampling: raster.ResamplingBilinear, Aggregate: height.AggregateMax})
	require.NoError(t, err)
	require.NotEmpty(t, res.Violations)
	assert.InDelta(t, 15.0, res.Violations[0].Height, 1e-9)
}

func TestExecuteCountsClampedSamples(t *testing.T) {
	in := testInputs(t)
	// A surface dip below the terrain clamps to zero rather than going
	// negative.
	in.Surface.Set(9, 9, 1)

	res, err := Execute(in, Options{Aggregate: height.AggregateMax})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Counters.ClampedSamples)
}

func TestExecuteRejectsUnknownAggregate(t *testing.T) {
	in := testInputs(t)
	_, err := Execute(in, Options{Aggregate: "median"})
	require.Error(t, err)
}
