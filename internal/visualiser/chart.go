package visualiser

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/scene"
)

// SceneChart builds an interactive scatter of a snapshot with one series
// for the ego vehicle and one per agent type present.
func SceneChart(ctx *scene.SnapshotContext) *charts.Scatter {
	points := [][2]float64{}
	ex, ey := xy(ctx.EgoVehicle.Position)
	points = append(points, [2]float64{ex, ey})

	byType := map[kinematics.AgentType][]opts.ScatterData{}
	for _, a := range ctx.Agents {
		x, y := xy(a.Position)
		points = append(points, [2]float64{x, y})
		byType[a.Type] = append(byType[a.Type], opts.ScatterData{
			Name:  fmt.Sprintf("%s #%d", a.Type, a.TrackID),
			Value: []interface{}{x, y, a.TrackID},
		})
	}
	b := EqualBounds(points, 5)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scene Overview", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Scene %d", ctx.SceneInfo.Index),
			Subtitle: fmt.Sprintf("host=%s duration=%.2fs frames=%d agents=%d", ctx.SceneInfo.Host, ctx.SceneInfo.Duration, ctx.SceneInfo.NumFrames, len(ctx.Agents)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: b.MinX, Max: b.MaxX, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: b.MinY, Max: b.MaxY, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("Ego Vehicle", []opts.ScatterData{{Name: "ego", Value: []interface{}{ex, ey}}},
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 18}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: Hex(egoColor)}))
	for _, t := range kinematics.AgentTypes() {
		data, ok := byType[t]
		if !ok {
			continue
		}
		scatter.AddSeries(t.String(), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Hex(TypeColor(t))}))
	}
	return scatter
}

// WriteChart renders the snapshot chart as a standalone HTML page.
func WriteChart(w io.Writer, ctx *scene.SnapshotContext) error {
	if err := SceneChart(ctx).Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// ChartHTML returns the rendered chart page.
func ChartHTML(ctx *scene.SnapshotContext) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
