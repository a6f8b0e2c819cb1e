package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func square(minX, minY, maxX, maxY float64) *geom.Polygon {
	p := geom.NewPolygon(geom.XY)
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		minX, minY,
		maxX, minY,
		maxX, maxY,
		minX, maxY,
		minX, minY,
	})
	if err := p.Push(ring); err != nil {
		panic(err)
	}
	return p
}

func TestPolygonContains(t *testing.T) {
	p := square(0, 0, 10, 10)

	assert.True(t, PolygonContains(p, 5, 5))
	assert.True(t, PolygonContains(p, 0.001, 9.999))
	assert.False(t, PolygonContains(p, -1, 5))
	assert.False(t, PolygonContains(p, 5, 11))
}

func TestPolygonContainsHole(t *testing.T) {
	p := square(0, 0, 10, 10)
	hole := geom.NewLinearRingFlat(geom.XY, []float64{
		4, 4, 6, 4, 6, 6, 4, 6, 4, 4,
	})
	require.NoError(t, p.Push(hole))

	assert.True(t, PolygonContains(p, 2, 2))
	assert.False(t, PolygonContains(p, 5, 5), "point inside hole is outside polygon")
}

func TestMultiPolygonContains(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(square(0, 0, 1, 1)))
	require.NoError(t, mp.Push(square(5, 5, 6, 6)))

	assert.True(t, MultiPolygonContains(mp, 0.5, 0.5))
	assert.True(t, MultiPolygonContains(mp, 5.5, 5.5))
	assert.False(t, MultiPolygonContains(mp, 3, 3))
}

func TestCentroid(t *testing.T) {
	x, y := Centroid(square(0, 0, 10, 20))
	assert.InDelta(t, 5.0, x, 1e-9)
	assert.InDelta(t, 10.0, y, 1e-9)
}

func TestBoundaryDistance(t *testing.T) {
	// Identity-like projection: anchor at the equator so a degree is a fixed
	// number of meters in both axes.
	proj := NewProjection(0, 0)

	zone := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, zone.Push(square(0, 0, 0.01, 0.01)))

	// Footprint inset 0.002 degrees from the west edge, centered vertically.
	fp := square(0.002, 0.004, 0.004, 0.006)

	got := BoundaryDistance(fp, zone, proj)
	want := 0.002 * proj.mPerDegLng
	assert.InDelta(t, want, got, want*0.01)
}

func TestBoundaryDistanceMidSegment(t *testing.T) {
	proj := NewProjection(0, 0)

	// Zone with a notch vertex closest to the footprint's west edge
	// mid-segment rather than at a footprint vertex.
	zone := geom.NewMultiPolygon(geom.XY)
	notched := geom.NewPolygon(geom.XY)
	ring := geom.NewLinearRingFlat(geom.XY, []float64{
		0, 0,
		0.01, 0,
		0.01, 0.01,
		0.001, 0.005, // notch toward the footprint
		0, 0.01,
		0, 0,
	})
	require.NoError(t, notched.Push(ring))
	require.NoError(t, zone.Push(notched))

	fp := square(0.002, 0.004, 0.004, 0.006)

	got := BoundaryDistance(fp, zone, proj)
	want := 0.001 * proj.mPerDegLng // distance from notch vertex to west edge
	assert.InDelta(t, want, got, want*0.05)
}

func TestProjectionAgainstGreatCircle(t *testing.T) {
	// At 30.74N (the reference dataset's latitude) the projection should
	// track great-circle distance closely over city-scale offsets.
	proj := NewProjection(76.768, 30.741)

	x1, y1 := proj.ToMeters(76.768, 30.741)
	x2, y2 := proj.ToMeters(76.778, 30.749)
	planar := math.Hypot(x2-x1, y2-y1)
	geodesic := GreatCircleMeters(30.741, 76.768, 30.749, 76.778)

	assert.InDelta(t, geodesic, planar, geodesic*0.001)
}

func TestGreatCircleMeters(t *testing.T) {
	// One degree of latitude is roughly 111.2 km.
	d := GreatCircleMeters(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 100)
}
