// Package model defines the core types shared across the zoning audit pipeline.
package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// Category labels the zoning compliance status of a building.
type Category string

// Violation categories. A building is labeled with exactly one.
const (
	CategoryNone     Category = "None"
	CategoryHeight   Category = "Height"
	CategoryBoundary Category = "Boundary"
	CategoryBoth     Category = "Both"
)

// Categories lists all categories in fixed presentation order.
func Categories() []Category {
	return []Category{CategoryNone, CategoryHeight, CategoryBoundary, CategoryBoth}
}

// HeightSource identifies how a building height was derived.
type HeightSource string

const (
	// HeightSourceRaster means the height came from DSM-DTM sampling.
	HeightSourceRaster HeightSource = "raster"
	// HeightSourceTags means the height came from OSM height/levels tags.
	HeightSourceTags HeightSource = "tags"
)

// Footprint is a building outline in geographic coordinates (lng/lat).
type Footprint struct {
	ID       string        `json:"id"`
	Name     string        `json:"name,omitempty"`
	Geometry *geom.Polygon `json:"-"`

	// TagHeight is the height in meters declared by the source data
	// (e.g. the OSM height tag or levels x meters-per-level), if any.
	TagHeight *float64 `json:"tag_height,omitempty"`
	Levels    int      `json:"levels,omitempty"`
}

// Policy holds the zoning limits that apply within a zone.
type Policy struct {
	MaxHeight float64 `json:"max_height" yaml:"max_height"`
	Setback   float64 `json:"setback" yaml:"setback"`
}

// Zone is a zoning parcel or district with its resolved policy.
type Zone struct {
	ID       string             `json:"id"`
	Name     string             `json:"name,omitempty"`
	Geometry *geom.MultiPolygon `json:"-"`

	// SourceMaxHeight/SourceSetback are limits declared by the input's own
	// attributes, nil when the attribute is absent. Pointers keep an
	// explicit zero (a legal setback) distinct from "unset". Policy
	// resolution folds them into Policy.
	SourceMaxHeight *float64 `json:"-"`
	SourceSetback   *float64 `json:"-"`

	Policy Policy `json:"policy"`
}

// Violation is the classified result for one building.
type Violation struct {
	FootprintID string        `json:"footprint_id"`
	Name        string        `json:"name,omitempty"`
	ZoneID      string        `json:"zone_id"`
	Geometry    *geom.Polygon `json:"-"`

	Height           float64      `json:"height"`
	HeightSource     HeightSource `json:"height_source"`
	BoundaryDistance float64      `json:"boundary_distance"`
	Category         Category     `json:"category"`
}

// Counters tracks per-run record accounting, including skipped inputs.
type Counters struct {
	Footprints       int `json:"footprints"`
	Zones            int `json:"zones"`
	Classified       int `json:"classified"`
	SkippedCoverage  int `json:"skipped_coverage"`
	SkippedNoZone    int `json:"skipped_no_zone"`
	SkippedMalformed int `json:"skipped_malformed"`
	ClampedSamples   int `json:"clamped_samples"`
}

// AuditResult is the output of one pipeline run.
type AuditResult struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Aggregate  string      `json:"aggregate"`
	Violations []Violation `json:"violations"`
	Counters   Counters    `json:"counters"`
}

// Summary returns the number of buildings per category.
func (r *AuditResult) Summary() map[Category]int {
	out := make(map[Category]int, 4)
	for _, c := range Categories() {
		out[c] = 0
	}
	for _, v := range r.Violations {
		out[v.Category]++
	}
	return out
}
