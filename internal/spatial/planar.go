// Package spatial provides planar geometry helpers over go-geom types and a
// local projection for measuring distances in meters on lng/lat data.
package spatial

import (
	"math"

	"github.com/twpayne/go-geom"
)

// ringContains reports whether the point (x, y) is inside the ring described
// by the flat coordinate slice, using even-odd ray casting.
func ringContains(flat []float64, stride int, x, y float64) bool {
	inside := false
	n := len(flat) / stride
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		if (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// PolygonContains reports whether the point lies inside the polygon,
// honoring interior rings (holes) via even-odd counting.
func PolygonContains(p *geom.Polygon, x, y float64) bool {
	if p == nil || p.NumLinearRings() == 0 {
		return false
	}
	stride := p.Layout().Stride()
	crossings := 0
	for i := 0; i < p.NumLinearRings(); i++ {
		if ringContains(p.LinearRing(i).FlatCoords(), stride, x, y) {
			crossings++
		}
	}
	return crossings%2 == 1
}

// MultiPolygonContains reports whether the point lies inside any member polygon.
func MultiPolygonContains(mp *geom.MultiPolygon, x, y float64) bool {
	if mp == nil {
		return false
	}
	for i := 0; i < mp.NumPolygons(); i++ {
		if PolygonContains(mp.Polygon(i), x, y) {
			return true
		}
	}
	return false
}

// Centroid returns the area-weighted centroid of the polygon's exterior ring.
// Degenerate (zero-area) rings fall back to the vertex mean.
func Centroid(p *geom.Polygon) (x, y float64) {
	flat := p.LinearRing(0).FlatCoords()
	stride := p.Layout().Stride()
	n := len(flat) / stride

	var area, cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		cross := xi*yj - xj*yi
		area += cross
		cx += (xi + xj) * cross
		cy += (yi + yj) * cross
	}
	area /= 2
	if math.Abs(area) < 1e-12 {
		for i := 0; i < n; i++ {
			cx += flat[i*stride]
			cy += flat[i*stride+1]
		}
		return cx / float64(n), cy / float64(n)
	}
	return cx / (6 * area), cy / (6 * area)
}

// distancePointSegment returns the distance from point (px, py) to the
// segment (ax, ay)-(bx, by).
func distancePointSegment(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

// ringDistance returns the minimum distance between the vertices of one
// projected ring and the segments of another.
func ringDistance(from, to [][2]float64) float64 {
	min := math.Inf(1)
	for _, p := range from {
		for i := 0; i < len(to); i++ {
			j := (i + 1) % len(to)
			d := distancePointSegment(p[0], p[1], to[i][0], to[i][1], to[j][0], to[j][1])
			if d < min {
				min = d
			}
		}
	}
	return min
}

// projectRing converts a flat lng/lat ring to projected meter coordinates.
func projectRing(flat []float64, stride int, proj Projection) [][2]float64 {
	n := len(flat) / stride
	out := make([][2]float64, 0, n)
	for i := 0; i < n; i++ {
		x, y := proj.ToMeters(flat[i*stride], flat[i*stride+1])
		out = append(out, [2]float64{x, y})
	}
	return out
}

// BoundaryDistance returns the minimum distance in meters between the
// exterior ring of a footprint and the boundary rings of its containing
// zone. It measures footprint vertices against zone segments and zone
// vertices against footprint segments, so the true minimum is found even
// when it falls mid-segment on either side.
func BoundaryDistance(footprint *geom.Polygon, zone *geom.MultiPolygon, proj Projection) float64 {
	fp := projectRing(footprint.LinearRing(0).FlatCoords(), footprint.Layout().Stride(), proj)

	min := math.Inf(1)
	for i := 0; i < zone.NumPolygons(); i++ {
		poly := zone.Polygon(i)
		stride := poly.Layout().Stride()
		for r := 0; r < poly.NumLinearRings(); r++ {
			ring := projectRing(poly.LinearRing(r).FlatCoords(), stride, proj)
			if d := ringDistance(fp, ring); d < min {
				min = d
			}
			if d := ringDistance(ring, fp); d < min {
				min = d
			}
		}
	}
	return min
}
