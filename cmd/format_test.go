package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/zoning-audit/internal/export"
	"github.com/sells-group/zoning-audit/internal/model"
	"github.com/sells-group/zoning-audit/internal/raster"
)

func TestPrintSummary(t *testing.T) {
	res := &model.AuditResult{
		RunID:     "run-7",
		Aggregate: "max",
		Violations: []model.Violation{
			{FootprintID: "1", Category: model.CategoryHeight},
			{FootprintID: "2", Category: model.CategoryNone},
			{FootprintID: "3", Category: model.CategoryBoth},
		},
		Counters: model.Counters{
			Footprints: 5, Zones: 2, Classified: 3,
			SkippedCoverage: 1, SkippedNoZone: 1, ClampedSamples: 4,
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Run run-7 (max aggregate)")
	assert.Contains(t, out, "classified: 3 of 5 footprints across 2 zones")
	assert.Contains(t, out, "Height:")
	assert.Contains(t, out, "skipped: 2 (coverage 1, no zone 1, malformed 0)")
	assert.Contains(t, out, "clamped samples: 4")
}

func TestPrintSummaryGroupsLargeCounts(t *testing.T) {
	res := &model.AuditResult{
		RunID:     "run-8",
		Aggregate: "max",
		Counters: model.Counters{
			Footprints: 12345, Zones: 4, Classified: 11800, ClampedSamples: 204987,
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "classified: 11,800 of 12,345 footprints across 4 zones")
	assert.Contains(t, out, "clamped samples: 204,987")
}

func TestPrintRasterInfo(t *testing.T) {
	g := raster.NewGrid(4, 3, 100, 200, 0.5, 0.5)
	g.EPSG = 4326
	g.Set(0, 0, 12.5)

	var buf bytes.Buffer
	printRasterInfo(&buf, "dsm.tif", g)
	out := buf.String()

	assert.Contains(t, out, "dsm.tif")
	assert.Contains(t, out, "4 x 3 pixels")
	assert.Contains(t, out, "EPSG:4326")
	assert.Contains(t, out, "valid samples: 1")
}

func TestFormatRuns(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	runs := []export.RunSummary{
		{ID: "run-42", StartedAt: started, FinishedAt: started.Add(3 * time.Second),
			Aggregate: "max", Classified: 10, Violating: 4},
	}

	var buf bytes.Buffer
	formatRuns(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "3s")
	assert.Contains(t, out, "max")
}
