package export

import (
	"time"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/zoning-audit/internal/model"
)

func squareFootprint(minX, minY, maxX, maxY float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minX, minY, maxX, minY, maxX, maxY, minX, maxY, minX, minY,
	}, []int{10})
}

func sampleResult() *model.AuditResult {
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &model.AuditResult{
		RunID:      "run-42",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Aggregate:  "max",
		Violations: []model.Violation{
			{FootprintID: "1", Name: "Town Hall", ZoneID: "Z1",
				Geometry: squareFootprint(1, 1, 2, 2),
				Height:   14.2, HeightSource: model.HeightSourceRaster,
				BoundaryDistance: 8.1, Category: model.CategoryHeight},
			{FootprintID: "2", ZoneID: "Z1",
				Geometry: squareFootprint(3, 3, 4, 4),
				Height:   6.0, HeightSource: model.HeightSourceTags,
				BoundaryDistance: 1.3, Category: model.CategoryBoundary},
			{FootprintID: "3", ZoneID: "Z2",
				Geometry: squareFootprint(6, 6, 7, 7),
				Height:   4.0, HeightSource: model.HeightSourceRaster,
				BoundaryDistance: 9.0, Category: model.CategoryNone},
		},
		Counters: model.Counters{Footprints: 4, Zones: 2, Classified: 3, SkippedNoZone: 1},
	}
}
