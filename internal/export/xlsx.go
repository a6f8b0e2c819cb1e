package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/zoning-audit/internal/model"
)

// WriteXLSX writes a workbook with a violations sheet and a summary sheet.
func WriteXLSX(path string, res *model.AuditResult) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("violations")
	if err != nil {
		return eris.Wrap(err, "xlsx: add violations sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"footprint_id", "name", "zone_id", "height_m", "height_source", "boundary_distance_m", "category"} {
		header.AddCell().SetString(h)
	}
	for _, v := range res.Violations {
		row := sheet.AddRow()
		row.AddCell().SetString(v.FootprintID)
		row.AddCell().SetString(v.Name)
		row.AddCell().SetString(v.ZoneID)
		row.AddCell().SetFloat(v.Height)
		row.AddCell().SetString(string(v.HeightSource))
		row.AddCell().SetFloat(v.BoundaryDistance)
		row.AddCell().SetString(string(v.Category))
	}

	summary, err := f.AddSheet("summary")
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}
	counts := res.Summary()
	addSummaryRow(summary, "run_id", res.RunID)
	addSummaryRow(summary, "aggregate", res.Aggregate)
	for _, c := range model.Categories() {
		addSummaryRowInt(summary, string(c), counts[c])
	}
	addSummaryRowInt(summary, "footprints", res.Counters.Footprints)
	addSummaryRowInt(summary, "zones", res.Counters.Zones)
	addSummaryRowInt(summary, "classified", res.Counters.Classified)
	addSummaryRowInt(summary, "skipped_coverage", res.Counters.SkippedCoverage)
	addSummaryRowInt(summary, "skipped_no_zone", res.Counters.SkippedNoZone)
	addSummaryRowInt(summary, "skipped_malformed", res.Counters.SkippedMalformed)
	addSummaryRowInt(summary, "clamped_samples", res.Counters.ClampedSamples)

	return eris.Wrapf(f.Save(path), "xlsx: save %s", path)
}

func addSummaryRow(sheet *xlsx.Sheet, key, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetString(value)
}

func addSummaryRowInt(sheet *xlsx.Sheet, key string, value int) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetInt(value)
}
