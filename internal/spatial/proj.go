package spatial

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle math.
const EarthRadiusMeters = 6371008.8

// Projection is a local equirectangular projection anchored at a reference
// point. Within the extent of a city it is accurate to well under a meter,
// which is all the setback measurement needs.
type Projection struct {
	refLng, refLat float64
	mPerDegLng     float64
	mPerDegLat     float64
}

// NewProjection builds a projection anchored at the given lng/lat. The
// meters-per-degree factors are derived from great-circle distances so the
// projection stays honest at any latitude.
func NewProjection(lng, lat float64) Projection {
	return Projection{
		refLng:     lng,
		refLat:     lat,
		mPerDegLng: GreatCircleMeters(lat, lng-0.5, lat, lng+0.5),
		mPerDegLat: GreatCircleMeters(lat-0.5, lng, lat+0.5, lng),
	}
}

// ToMeters converts a lng/lat coordinate to local planar meters.
func (p Projection) ToMeters(lng, lat float64) (x, y float64) {
	return (lng - p.refLng) * p.mPerDegLng, (lat - p.refLat) * p.mPerDegLat
}

// GreatCircleMeters returns the great-circle distance between two points.
func GreatCircleMeters(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
