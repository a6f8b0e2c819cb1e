// Package classify applies zoning policy limits to measured buildings.
package classify

import "github.com/sells-group/zoning-audit/internal/model"

// Classify labels a building given its measured height, its distance to the
// zone boundary, and the zone policy. Both checks use strict inequality: a
// building exactly at the height limit or exactly at the setback distance is
// compliant, so the same inputs always produce the same label.
func Classify(height, boundaryDistance float64, policy model.Policy) model.Category {
	overHeight := height > policy.MaxHeight
	tooClose := boundaryDistance < policy.Setback

	switch {
	case overHeight && tooClose:
		return model.CategoryBoth
	case overHeight:
		return model.CategoryHeight
	case tooClose:
		return model.CategoryBoundary
	default:
		return model.CategoryNone
	}
}
