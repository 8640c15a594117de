package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"cauldron-optimizer/internal/service"
)

// Chart renders an HTML page with two bar charts: the effect
// probabilities of a response and its per-item allocation.
func Chart(w io.Writer, resp service.Response) error {
	if len(resp.Allocation) == 0 {
		return fmt.Errorf("response has no allocation to plot")
	}

	page := components.NewPage()
	page.PageTitle = "Cauldron"
	page.AddCharts(effectsChart(resp), allocationChart(resp))
	return page.Render(w)
}

// WriteChart renders Chart into the file at path.
func WriteChart(path string, resp service.Response) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := Chart(f, resp); err != nil {
		return err
	}
	return f.Close()
}

func effectsChart(resp service.Response) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Effect probabilities (score %.2f)", resp.Score),
			Subtitle: resp.Version,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "%",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(true),
			},
		}),
	)

	names := make([]string, len(resp.Effects))
	values := make([]opts.BarData, len(resp.Effects))
	for i, e := range resp.Effects {
		names[i] = e.Name
		values[i] = opts.BarData{Value: e.Value}
	}
	bar.SetXAxis(names).
		AddSeries("probability", values).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show:     opts.Bool(true),
				Position: "top",
			}),
		)
	return bar
}

func allocationChart(resp service.Response) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Allocation"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
	)

	names := make([]string, len(resp.Allocation))
	values := make([]opts.BarData, len(resp.Allocation))
	for j, a := range resp.Allocation {
		names[j] = itemName(resp, j)
		values[j] = opts.BarData{Value: a}
	}
	bar.SetXAxis(names).AddSeries("units", values)
	return bar
}
