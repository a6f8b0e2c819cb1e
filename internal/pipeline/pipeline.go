// Package pipeline orchestrates the zoning audit: raster preparation,
// footprint/zone joins, height estimation, and violation classification.
package pipeline

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zoning-audit/internal/classify"
	"github.com/sells-group/zoning-audit/internal/height"
	"github.com/sells-group/zoning-audit/internal/model"
	"github.com/sells-group/zoning-audit/internal/raster"
	"github.com/sells-group/zoning-audit/internal/spatial"
)

// Inputs holds everything Execute needs, fully loaded. Keeping IO in
// LoadInputs and computation in Execute keeps the latter testable with
// in-memory data.
type Inputs struct {
	Surface    *raster.Grid
	Terrain    *raster.Grid
	Footprints []model.Footprint
	Zones      []model.Zone

	// SkippedMalformed counts source records the loaders dropped.
	SkippedMalformed int
}

// Options controls how Execute runs.
type Options struct {
	Resampling  raster.Resampling
	Aggregate   height.Aggregate
	TagFallback bool
}

// Execute runs the audit over already-loaded inputs. Buildings are
// processed one at a time in input order; per-building failures are
// counted and skipped, input-level problems are fatal.
func Execute(in *Inputs, opts Options) (*model.AuditResult, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	started := time.Now().UTC()

	if in.Surface.EPSG != 0 && in.Terrain.EPSG != 0 && in.Surface.EPSG != in.Terrain.EPSG {
		return nil, eris.Errorf("pipeline: CRS mismatch, surface EPSG:%d vs terrain EPSG:%d",
			in.Surface.EPSG, in.Terrain.EPSG)
	}

	terrain := in.Terrain
	if !terrain.SameGeometry(in.Surface) {
		log.Info("pipeline: resampling terrain to surface grid",
			zap.String("method", string(opts.Resampling)))
		aligned, err := raster.AlignTo(terrain, in.Surface, opts.Resampling)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: align terrain")
		}
		terrain = aligned
	}

	heights, clamped, err := raster.Diff(in.Surface, terrain)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: difference grids")
	}
	if clamped > 0 {
		log.Warn("pipeline: clamped negative height samples to zero", zap.Int("samples", clamped))
	}

	est, err := height.NewEstimator(heights, opts.Aggregate)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create estimator")
	}

	result := &model.AuditResult{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Aggregate: string(opts.Aggregate),
		Counters: model.Counters{
			Footprints:       len(in.Footprints),
			Zones:            len(in.Zones),
			SkippedMalformed: in.SkippedMalformed,
			ClampedSamples:   clamped,
		},
	}

	for _, fp := range in.Footprints {
		cx, cy := spatial.Centroid(fp.Geometry)

		zone, ok := joinZone(in.Zones, cx, cy)
		if !ok {
			result.Counters.SkippedNoZone++
			log.Debug("pipeline: footprint outside all zones", zap.String("footprint", fp.ID))
			continue
		}

		h, src, ok := estimateHeight(est, fp, opts.TagFallback)
		if !ok {
			result.Counters.SkippedCoverage++
			log.Debug("pipeline: no height available for footprint", zap.String("footprint", fp.ID))
			continue
		}

		proj := spatial.NewProjection(cx, cy)
		dist := spatial.BoundaryDistance(fp.Geometry, zone.Geometry, proj)

		result.Violations = append(result.Violations, model.Violation{
			FootprintID:      fp.ID,
			Name:             fp.Name,
			ZoneID:           zone.ID,
			Geometry:         fp.Geometry,
			Height:           h,
			HeightSource:     src,
			BoundaryDistance: dist,
			Category:         classify.Classify(h, dist, zone.Policy),
		})
		result.Counters.Classified++
	}

	sort.Slice(result.Violations, func(i, j int) bool {
		return result.Violations[i].FootprintID < result.Violations[j].FootprintID
	})

	result.FinishedAt = time.Now().UTC()
	log.Info("pipeline: audit complete",
		zap.Int("classified", result.Counters.Classified),
		zap.Int("skipped_no_zone", result.Counters.SkippedNoZone),
		zap.Int("skipped_coverage", result.Counters.SkippedCoverage),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)))
	return result, nil
}

// joinZone returns the first zone containing the point, in input order.
func joinZone(zones []model.Zone, x, y float64) (model.Zone, bool) {
	for _, z := range zones {
		if spatial.MultiPolygonContains(z.Geometry, x, y) {
			return z, true
		}
	}
	return model.Zone{}, false
}

// estimateHeight prefers raster sampling and falls back to source tags
// when enabled and the raster has no coverage over the footprint.
func estimateHeight(est *height.Estimator, fp model.Footprint, tagFallback bool) (float64, model.HeightSource, bool) {
	e, err := est.Estimate(fp)
	if err == nil {
		return e.Height, e.Source, true
	}
	if eris.Is(err, height.ErrOutsideCoverage) && tagFallback && fp.TagHeight != nil {
		return *fp.TagHeight, model.HeightSourceTags, true
	}
	return 0, "", false
}
