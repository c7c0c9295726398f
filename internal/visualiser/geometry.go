// Package visualiser draws scene snapshots as PNG plots and HTML charts.
package visualiser

import (
	"fmt"
	"image/color"
	"math"

	"github.com/banshee-data/scene.report/internal/kinematics"
)

// velocityScale stretches velocity vectors so they read at scene scale.
const velocityScale = 2.0

// minHeadingLength is the shortest heading arrow drawn.
const minHeadingLength = 2.0

// ArrowKind distinguishes velocity and heading arrows.
type ArrowKind int

const (
	VelocityArrow ArrowKind = iota
	HeadingArrow
)

// Arrow is a vector from (X, Y) by (DX, DY).
type Arrow struct {
	Kind    ArrowKind
	Type    kinematics.AgentType
	TrackID uint64
	X, Y    float64
	DX, DY  float64
}

// Length returns the arrow length.
func (a Arrow) Length() float64 { return math.Hypot(a.DX, a.DY) }

// Arrows returns the velocity and heading arrows for agents. Agents at rest
// get no velocity arrow; heading arrows are max(length, 2) metres long.
func Arrows(agents []kinematics.AgentSnapshot) []Arrow {
	var out []Arrow
	for _, a := range agents {
		x, y := xy(a.Position)
		vx, vy := xy(a.Velocity)
		if vx != 0 || vy != 0 {
			out = append(out, Arrow{Kind: VelocityArrow, Type: a.Type, TrackID: a.TrackID, X: x, Y: y, DX: vx * velocityScale, DY: vy * velocityScale})
		}
		l := math.Max(a.Length(), minHeadingLength)
		out = append(out, Arrow{Kind: HeadingArrow, Type: a.Type, TrackID: a.TrackID, X: x, Y: y, DX: l * math.Cos(a.Heading), DY: l * math.Sin(a.Heading)})
	}
	return out
}

func xy(v []float64) (float64, float64) {
	var x, y float64
	if len(v) > 0 {
		x = v[0]
	}
	if len(v) > 1 {
		y = v[1]
	}
	return x, y
}

// Bounds is a square plot window.
type Bounds struct {
	MinX, MaxX, MinY, MaxY float64
}

// EqualBounds returns a square window around every point with a margin,
// so both axes share one scale.
func EqualBounds(points [][2]float64, margin float64) Bounds {
	if len(points) == 0 {
		return Bounds{-margin, margin, -margin, margin}
	}
	minX, maxX := points[0][0], points[0][0]
	minY, maxY := points[0][1], points[0][1]
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	half := math.Max(maxX-minX, maxY-minY)/2 + margin
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	return Bounds{cx - half, cx + half, cy - half, cy + half}
}

// typeColors follows the analyser palette; unlisted types are grey.
var typeColors = map[kinematics.AgentType]color.RGBA{
	kinematics.Vehicle:          {R: 0xe5, G: 0x39, B: 0x35, A: 0xff},
	kinematics.Pedestrian:       {R: 0x43, G: 0xa0, B: 0x47, A: 0xff},
	kinematics.Bicycle:          {R: 0xfd, G: 0xd8, B: 0x35, A: 0xff},
	kinematics.Motorcycle:       {R: 0x8e, G: 0x24, B: 0xaa, A: 0xff},
	kinematics.Cyclist:          {R: 0xfb, G: 0x8c, B: 0x00, A: 0xff},
	kinematics.Bus:              {R: 0x6d, G: 0x4c, B: 0x41, A: 0xff},
	kinematics.Truck:            {R: 0xb7, G: 0x1c, B: 0x1c, A: 0xff},
	kinematics.EmergencyVehicle: {R: 0x00, G: 0xac, B: 0xc1, A: 0xff},
}

var (
	egoColor     = color.RGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}
	unknownColor = color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
	headingColor = color.RGBA{A: 0x80}
)

// TypeColor returns the plot colour for an agent type.
func TypeColor(t kinematics.AgentType) color.RGBA {
	if c, ok := typeColors[t]; ok {
		return c
	}
	return unknownColor
}

// Hex renders c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
