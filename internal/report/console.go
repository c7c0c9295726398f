// Package report renders scene summaries for the terminal and persists
// them as JSON documents.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/units"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Border(lipgloss.RoundedBorder()).Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Title renders a boxed heading.
func Title(s string) string { return titleStyle.Render(s) }

// Section renders a section heading.
func Section(s string) string { return sectionStyle.Render(s) }

// Saved renders a confirmation line for a written file.
func Saved(what, path string) string {
	return okStyle.Render(fmt.Sprintf("✓ %s saved to %s", what, path))
}

// AgentTable renders one row per agent: type, position, velocity, size and
// heading in degrees.
func AgentTable(agents []kinematics.AgentSnapshot) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Type", "Track", "Position (x, y)", "Velocity", "Size (L×W×H)", "Heading")
	for _, a := range agents {
		t.Row(
			a.Type.String(),
			fmt.Sprint(a.TrackID),
			pair(a.Position),
			pair(a.Velocity),
			size(a.Size),
			fmt.Sprintf("%.1f°", units.RadiansToDegrees(a.Heading)),
		)
	}
	return t.String()
}

func pair(v []float64) string {
	x, y := 0.0, 0.0
	if len(v) > 0 {
		x = v[0]
	}
	if len(v) > 1 {
		y = v[1]
	}
	return fmt.Sprintf("(%.2f, %.2f)", x, y)
}

func size(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.2f", x)
	}
	return strings.Join(parts, "×")
}

// WriteSnapshot prints the analyser view of a scene.
func WriteSnapshot(w io.Writer, ctx *scene.SnapshotContext) error {
	var b strings.Builder
	b.WriteString(Title(fmt.Sprintf("Scene Analysis #%d", ctx.SceneInfo.Index)) + "\n")
	fmt.Fprintf(&b, "Scene Duration: %.2f seconds\n", ctx.SceneInfo.Duration)
	fmt.Fprintf(&b, "Host: %s\n", ctx.SceneInfo.Host)
	fmt.Fprintf(&b, "Total Frames: %d\n", ctx.SceneInfo.NumFrames)

	b.WriteString("\n" + Section("Frame Information:") + "\n")
	fmt.Fprintf(&b, "Timestamp: %d\n", ctx.FirstFrame.Timestamp)
	fmt.Fprintf(&b, "Number of agents: %d\n", ctx.FirstFrame.AgentCount)
	fmt.Fprintf(&b, "Ego vehicle position: %s\n", vector(ctx.FirstFrame.EgoPosition))
	fmt.Fprintf(&b, "Ego vehicle heading: %.1f°\n", units.RadiansToDegrees(ctx.EgoVehicle.Yaw))

	b.WriteString("\n" + Section("Agents in Scene:") + "\n")
	b.WriteString(AgentTable(ctx.Agents) + "\n")

	if len(ctx.Traffic) > 0 {
		b.WriteString("\n" + Section("Traffic Lights:") + "\n")
		for _, tl := range ctx.Traffic {
			fmt.Fprintf(&b, "- %s: %s\n", tl.ID, tl.Status)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTrajectories prints a one-line summary per paired agent.
func WriteTrajectories(w io.Writer, ctx *scene.TrajectoryContext, speedUnits string) error {
	var b strings.Builder
	b.WriteString(Title(fmt.Sprintf("Scene Trajectories #%d", ctx.SceneInfo.Index)) + "\n")
	fmt.Fprintf(&b, "Scene Duration: %.2f seconds, %d frames, host %s, %s pairing\n",
		ctx.SceneInfo.Duration, ctx.SceneInfo.NumFrames, ctx.SceneInfo.Host, ctx.Pairing)
	for _, a := range ctx.Agents {
		fmt.Fprintf(&b, "- %s #%d: %s → %s at %.2f %s (heading change %.1f°)\n",
			a.Type, a.TrackID,
			pair(a.Trajectory.InitialPosition), pair(a.Trajectory.FinalPosition),
			units.ConvertSpeed(a.Speed(), speedUnits), units.Label(speedUnits),
			units.RadiansToDegrees(a.Trajectory.HeadingChange))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func vector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.2f", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// WriteScenario renders generated scenario text as terminal markdown. When
// the renderer cannot be built the text is written as-is.
func WriteScenario(w io.Writer, text string, wrap int) error {
	if wrap <= 0 {
		wrap = 80
	}
	out := text
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap))
	if err == nil {
		if rendered, rerr := r.Render(text); rerr == nil {
			out = rendered
		}
	}
	_, err = io.WriteString(w, Section("Generated Scenario:")+"\n"+out)
	return err
}
