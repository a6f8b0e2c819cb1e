package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/zoning-audit/internal/export"
	"github.com/sells-group/zoning-audit/internal/height"
	"github.com/sells-group/zoning-audit/internal/model"
	"github.com/sells-group/zoning-audit/internal/pipeline"
	"github.com/sells-group/zoning-audit/internal/raster"
	"github.com/sells-group/zoning-audit/internal/render"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the full zoning audit",
	Long:  "Loads rasters, footprints, and zones, classifies every building, writes the map, report, and PNG overview, and feeds any configured export sinks.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applyAuditFlags(cmd)

		in, err := pipeline.LoadInputs(cfg)
		if err != nil {
			return err
		}

		res, err := pipeline.Execute(in, pipeline.Options{
			Resampling:  raster.Resampling(cfg.Raster.Resampling),
			Aggregate:   height.Aggregate(cfg.Estimator.Aggregate),
			TagFallback: cfg.Footprints.TagFallback,
		})
		if err != nil {
			return err
		}

		if err := writeArtifacts(res, in); err != nil {
			return err
		}
		if err := runExports(cmd.Context(), res); err != nil {
			return err
		}

		printSummary(os.Stdout, res)
		return nil
	},
}

func applyAuditFlags(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetString("dsm"); v != "" {
		cfg.Raster.DSM = v
	}
	if v, _ := cmd.Flags().GetString("dtm"); v != "" {
		cfg.Raster.DTM = v
	}
	if v, _ := cmd.Flags().GetString("footprints"); v != "" {
		cfg.Footprints.Path = v
	}
	if v, _ := cmd.Flags().GetString("zoning"); v != "" {
		cfg.Zoning.Path = v
	}
	if v, _ := cmd.Flags().GetString("aggregate"); v != "" {
		cfg.Estimator.Aggregate = v
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.Render.OutputDir = v
	}
}

func writeArtifacts(res *model.AuditResult, in *pipeline.Inputs) error {
	dir := cfg.Render.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "audit: create output dir %s", dir)
	}

	opts := render.MapOptions{
		Zoom:        cfg.Render.Zoom,
		TileURL:     cfg.Render.TileURL,
		Attribution: cfg.Render.Attribution,
	}
	if err := render.WriteMap(filepath.Join(dir, "map.html"), res, opts); err != nil {
		return err
	}
	if err := render.WriteReport(filepath.Join(dir, "report.html"), res); err != nil {
		return err
	}
	if err := render.WritePNG(filepath.Join(dir, "overview.png"), in.Zones, res, cfg.Render.PNGWidth); err != nil {
		return err
	}
	if err := export.WriteGeoJSON(filepath.Join(dir, "violations.geojson"), res); err != nil {
		return err
	}
	return nil
}

func runExports(ctx context.Context, res *model.AuditResult) error {
	if cfg.Export.GeoJSON != "" {
		if err := export.WriteGeoJSON(cfg.Export.GeoJSON, res); err != nil {
			return err
		}
	}
	if cfg.Export.XLSX != "" {
		if err := export.WriteXLSX(cfg.Export.XLSX, res); err != nil {
			return err
		}
	}
	if cfg.Export.SQLite != "" {
		store, err := export.NewSQLite(cfg.Export.SQLite)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if err := store.SaveResult(ctx, res); err != nil {
			return err
		}
	}
	if cfg.Export.PostgresURL != "" {
		sink, err := export.NewPostgres(ctx, cfg.Export.PostgresURL)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.Migrate(ctx); err != nil {
			return err
		}
		if err := sink.SaveResult(ctx, res); err != nil {
			return err
		}
		zap.L().Info("audit: results exported to postgres", zap.String("run_id", res.RunID))
	}
	return nil
}

func printSummary(out io.Writer, res *model.AuditResult) {
	p := message.NewPrinter(language.English)
	summary := res.Summary()
	p.Fprintf(out, "Run %s (%s aggregate)\n", res.RunID, res.Aggregate)
	p.Fprintf(out, "  classified: %d of %d footprints across %d zones\n",
		res.Counters.Classified, res.Counters.Footprints, res.Counters.Zones)
	for _, c := range model.Categories() {
		p.Fprintf(out, "  %-8s %d\n", string(c)+":", summary[c])
	}
	skipped := res.Counters.SkippedCoverage + res.Counters.SkippedNoZone + res.Counters.SkippedMalformed
	if skipped > 0 {
		p.Fprintf(out, "  skipped: %d (coverage %d, no zone %d, malformed %d)\n",
			skipped, res.Counters.SkippedCoverage, res.Counters.SkippedNoZone, res.Counters.SkippedMalformed)
	}
	if res.Counters.ClampedSamples > 0 {
		p.Fprintf(out, "  clamped samples: %d\n", res.Counters.ClampedSamples)
	}
}

func init() {
	auditCmd.Flags().String("dsm", "", "surface model GeoTIFF (overrides config)")
	auditCmd.Flags().String("dtm", "", "terrain model GeoTIFF (overrides config)")
	auditCmd.Flags().String("footprints", "", "building footprint file (overrides config)")
	auditCmd.Flags().String("zoning", "", "zoning geometry file (overrides config)")
	auditCmd.Flags().String("aggregate", "", "height aggregate: max, mean, or p90")
	auditCmd.Flags().String("out", "", "output directory (overrides config)")
	rootCmd.AddCommand(auditCmd)
}
