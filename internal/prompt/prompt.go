// Package prompt renders scene summaries into chat-tagged completion
// prompts.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/banshee-data/scene.report/internal/kinematics"
	"github.com/banshee-data/scene.report/internal/scene"
	"github.com/banshee-data/scene.report/internal/units"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Builder renders prompts with speeds reported in a fixed unit.
type Builder struct {
	units string
	tmpl  *template.Template
}

// NewBuilder parses the embedded templates. speedUnits must be one of
// units.ValidUnits.
func NewBuilder(speedUnits string) (*Builder, error) {
	if !units.IsValid(speedUnits) {
		return nil, fmt.Errorf("invalid speed units %q (want one of %s)", speedUnits, units.GetValidUnitsString())
	}
	b := &Builder{units: speedUnits}
	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"vec":       FormatVector,
		"speed":     b.speed,
		"unitLabel": func() string { return units.Label(speedUnits) },
	}).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	b.tmpl = tmpl
	return b, nil
}

func (b *Builder) speed(t kinematics.AgentTrajectory) string {
	return fmt.Sprintf("%.2f", units.ConvertSpeed(t.Speed(), b.units))
}

func (b *Builder) render(name string, data interface{}) (string, error) {
	var sb strings.Builder
	if err := b.tmpl.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Scenario renders the scenario-generation prompt for ctx.
func (b *Builder) Scenario(ctx *scene.TrajectoryContext) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("render scenario: nil context")
	}
	return b.render("scenario.tmpl", ctx)
}

// Ping renders the fixed prompt used to check the completion service.
func (b *Builder) Ping() (string, error) {
	return b.render("ping.tmpl", nil)
}

// FormatVector renders v as "[a, b, c]" with two decimals.
func FormatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.2f", x)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
