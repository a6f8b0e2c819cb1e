package pipeline

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zoning-audit/internal/config"
	"github.com/sells-group/zoning-audit/internal/footprint"
	"github.com/sells-group/zoning-audit/internal/model"
	"github.com/sells-group/zoning-audit/internal/raster"
	"github.com/sells-group/zoning-audit/internal/zoning"
)

// LoadInputs reads every pipeline input named in the configuration.
// Missing or unreadable files are fatal; only per-record problems inside
// a file are skippable.
func LoadInputs(cfg *config.Config) (*Inputs, error) {
	log := zap.L().With(zap.String("component", "pipeline"))

	surface, err := raster.Open(cfg.Raster.DSM)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open surface model %s", cfg.Raster.DSM)
	}
	terrain, err := raster.Open(cfg.Raster.DTM)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: open terrain model %s", cfg.Raster.DTM)
	}
	log.Info("pipeline: rasters loaded",
		zap.Int("surface_width", surface.Width), zap.Int("surface_height", surface.Height),
		zap.Int("terrain_width", terrain.Width), zap.Int("terrain_height", terrain.Height))

	var (
		fps     []model.Footprint
		skipped int
	)
	switch cfg.Footprints.Format {
	case "osm", "":
		fps, skipped, err = footprint.LoadOSM(cfg.Footprints.Path, cfg.Footprints.MetersPerLevel)
	case "geojson":
		fps, skipped, err = footprint.LoadGeoJSON(cfg.Footprints.Path, cfg.Footprints.MetersPerLevel)
	default:
		return nil, eris.Errorf("pipeline: unknown footprint format %q", cfg.Footprints.Format)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load footprints %s", cfg.Footprints.Path)
	}
	log.Info("pipeline: footprints loaded", zap.Int("count", len(fps)), zap.Int("skipped", skipped))

	var zones []model.Zone
	switch cfg.Zoning.Format {
	case "shapefile", "":
		fields := zoning.FieldConfig{
			ID:        cfg.Zoning.IDField,
			Name:      cfg.Zoning.NameField,
			MaxHeight: cfg.Zoning.MaxHeightField,
			Setback:   cfg.Zoning.SetbackField,
		}
		zones, err = zoning.LoadShapefile(cfg.Zoning.Path, fields)
	case "geojson":
		zones, err = zoning.LoadGeoJSON(cfg.Zoning.Path)
	default:
		return nil, eris.Errorf("pipeline: unknown zoning format %q", cfg.Zoning.Format)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load zones %s", cfg.Zoning.Path)
	}

	var policyFile *zoning.PolicyFile
	if cfg.Zoning.PolicyPath != "" {
		policyFile, err = zoning.LoadPolicyFile(cfg.Zoning.PolicyPath)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: load policy file %s", cfg.Zoning.PolicyPath)
		}
	}
	fallback := model.Policy{MaxHeight: cfg.Zoning.MaxHeight, Setback: cfg.Zoning.Setback}
	if err := zoning.ResolvePolicies(zones, policyFile, fallback); err != nil {
		return nil, eris.Wrap(err, "pipeline: resolve policies")
	}
	log.Info("pipeline: zones loaded", zap.Int("count", len(zones)))

	return &Inputs{
		Surface:          surface,
		Terrain:          terrain,
		Footprints:       fps,
		Zones:            zones,
		SkippedMalformed: skipped,
	}, nil
}
