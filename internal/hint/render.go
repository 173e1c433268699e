package hint

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rmcgibbo/conda-hint/internal/extract"
	"github.com/rmcgibbo/conda-hint/internal/index"
	"github.com/rmcgibbo/conda-hint/internal/oracle"
	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// Renderer formats conflict cores as text. Color choices mirror the
// original tool: conflicting package names blue, satisfiable dependency
// specs green, unsatisfiable ones red.
type Renderer struct {
	pkg   lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
	plain bool
}

// NewRenderer builds a renderer. With color disabled, styles collapse to
// plain text.
func NewRenderer(color bool) *Renderer {
	if !color {
		return &Renderer{plain: true}
	}
	return &Renderer{
		pkg:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		good: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		bad:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

// RenderCore renders one core. The header always lists every implicated
// constraint and the platform; completeness of that listing is the
// contract. When the core carries structured conflict information, a
// per-candidate breakdown follows; otherwise the listing alone is the
// documented fallback.
func (r *Renderer) RenderCore(core extract.Core, platform spec.Platform) string {
	var b strings.Builder
	b.WriteString("The following specs conflict on ")
	b.WriteString(platform.String())
	b.WriteString(":\n")
	for _, c := range core.Members.Members() {
		b.WriteString("  - ")
		b.WriteString(r.style(r.bad, c.String()))
		b.WriteByte('\n')
	}
	if core.Conflict != nil {
		b.WriteByte('\n')
		b.WriteString(r.renderConflict(core.Conflict))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderConflict formats the "No X binary matches specs" block: one line
// per rejected candidate with each dependency spec colored by whether it
// still had satisfiable candidates.
func (r *Renderer) renderConflict(c *oracle.Conflict) string {
	var b strings.Builder
	b.WriteString("No ")
	b.WriteString(r.style(r.pkg, c.Package))
	b.WriteString(" binary matches specs:")
	for _, cand := range c.Candidates {
		b.WriteString("\n  ")
		b.WriteString(index.DisplayName(cand.Filename))
		b.WriteString(": ")
		parts := make([]string, len(cand.Depends))
		for i, d := range cand.Depends {
			if d.Satisfiable {
				parts[i] = r.style(r.good, d.Spec)
			} else {
				parts[i] = r.style(r.bad, d.Spec)
			}
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.plain {
		return text
	}
	return s.Render(text)
}
