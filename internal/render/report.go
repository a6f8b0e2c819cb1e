package render

import (
	"fmt"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"

	"github.com/sells-group/zoning-audit/internal/model"
)

const histogramBucket = 5.0 // meters

// WriteReport renders the run summary as a standalone HTML page with a
// category bar chart and a building height histogram.
func WriteReport(path string, res *model.AuditResult) error {
	page := components.NewPage()
	page.AddCharts(categoryChart(res), heightChart(res))

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "render: create report %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := page.Render(f); err != nil {
		return eris.Wrap(err, "render: render report")
	}
	return nil
}

func categoryChart(res *model.AuditResult) *charts.Bar {
	summary := res.Summary()
	x := make([]string, 0, 4)
	y := make([]opts.BarData, 0, 4)
	for _, c := range model.Categories() {
		x = append(x, string(c))
		y = append(y, opts.BarData{Value: summary[c], ItemStyle: &opts.ItemStyle{Color: CategoryColor(c)}})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Violations by category",
			Subtitle: fmt.Sprintf("run %s", res.RunID),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("buildings", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func heightChart(res *model.AuditResult) *charts.Bar {
	counts := map[int]int{}
	maxBucket := 0
	for _, v := range res.Violations {
		b := int(math.Floor(v.Height / histogramBucket))
		counts[b]++
		if b > maxBucket {
			maxBucket = b
		}
	}

	x := make([]string, 0, maxBucket+1)
	y := make([]opts.BarData, 0, maxBucket+1)
	for b := 0; b <= maxBucket; b++ {
		lo := float64(b) * histogramBucket
		x = append(x, fmt.Sprintf("%.0f-%.0f m", lo, lo+histogramBucket))
		y = append(y, opts.BarData{Value: counts[b]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Building heights"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("buildings", y)
	return bar
}
