package visualiser

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/scene"
)

// Plot size in inches.
const (
	plotWidth  = 15 * vg.Inch
	plotHeight = 10 * vg.Inch
)

// ScenePlot builds the overview plot of a snapshot: the ego vehicle, one
// marker series per agent type, velocity arrows and heading arrows.
func ScenePlot(ctx *scene.SnapshotContext) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Scene Overview #%d (%s)", ctx.SceneInfo.Index, ctx.SceneInfo.Host)
	p.X.Label.Text = "X Position (m)"
	p.Y.Label.Text = "Y Position (m)"
	p.Add(plotter.NewGrid())

	points := [][2]float64{}

	ex, ey := xy(ctx.EgoVehicle.Position)
	ego, err := plotter.NewScatter(plotter.XYs{{X: ex, Y: ey}})
	if err != nil {
		return nil, fmt.Errorf("ego marker: %w", err)
	}
	ego.GlyphStyle.Color = egoColor
	ego.GlyphStyle.Radius = vg.Points(8)
	ego.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(ego)
	p.Legend.Add("Ego Vehicle", ego)
	points = append(points, [2]float64{ex, ey})

	byType := map[kinematics.AgentType]plotter.XYs{}
	for _, a := range ctx.Agents {
		x, y := xy(a.Position)
		byType[a.Type] = append(byType[a.Type], plotter.XY{X: x, Y: y})
		points = append(points, [2]float64{x, y})
	}
	for _, t := range kinematics.AgentTypes() {
		pts, ok := byType[t]
		if !ok {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("%s markers: %w", t, err)
		}
		s.GlyphStyle.Color = TypeColor(t)
		s.GlyphStyle.Radius = vg.Points(5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s (%d)", t, len(pts)), s)
	}

	for _, a := range Arrows(ctx.Agents) {
		c := headingColor
		if a.Kind == VelocityArrow {
			c = TypeColor(a.Type)
			c.A = 0x99
		}
		if err := addArrow(p, a, c); err != nil {
			return nil, err
		}
		points = append(points, [2]float64{a.X + a.DX, a.Y + a.DY})
	}

	b := EqualBounds(points, 5)
	p.X.Min, p.X.Max = b.MinX, b.MaxX
	p.Y.Min, p.Y.Max = b.MinY, b.MaxY

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// addArrow draws the shaft and a two-stroke head.
func addArrow(p *plot.Plot, a Arrow, c color.RGBA) error {
	x1, y1 := a.X+a.DX, a.Y+a.DY
	shaft, err := plotter.NewLine(plotter.XYs{{X: a.X, Y: a.Y}, {X: x1, Y: y1}})
	if err != nil {
		return fmt.Errorf("arrow shaft: %w", err)
	}
	shaft.LineStyle.Color = c
	shaft.LineStyle.Width = vg.Points(1.5)

	head := math.Min(1.0, a.Length()/3)
	angle := math.Atan2(a.DY, a.DX)
	left := plotter.XY{X: x1 - head*math.Cos(angle-math.Pi/6), Y: y1 - head*math.Sin(angle-math.Pi/6)}
	right := plotter.XY{X: x1 - head*math.Cos(angle+math.Pi/6), Y: y1 - head*math.Sin(angle+math.Pi/6)}
	tip, err := plotter.NewLine(plotter.XYs{left, {X: x1, Y: y1}, right})
	if err != nil {
		return fmt.Errorf("arrow head: %w", err)
	}
	tip.LineStyle = shaft.LineStyle

	p.Add(shaft, tip)
	return nil
}

// WritePNG renders the snapshot plot as PNG to w.
func WritePNG(w io.Writer, ctx *scene.SnapshotContext) error {
	p, err := ScenePlot(ctx)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// PNG returns the rendered snapshot plot.
func PNG(ctx *scene.SnapshotContext) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
