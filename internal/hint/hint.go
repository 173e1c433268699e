// Package hint turns discovered conflict cores into the ordered, rendered
// report the command prints.
package hint

import (
	"github.com/rmcgibbo/conda-hint/internal/extract"
	"github.com/rmcgibbo/conda-hint/internal/spec"
)

// Hint pairs one conflict core with its rendered explanation.
type Hint struct {
	Core extract.Core
	Text string
}

// Report is the ordered sequence of hints for one run. Empty when the input
// was satisfiable.
type Report struct {
	Platform spec.Platform
	Hints    []Hint
}

// Rank orders cores for presentation and drops duplicates: smaller cores
// first, ties broken by the input position of the first differing member.
func Rank(cores []extract.Core) []extract.Core {
	extract.SortCores(cores)
	out := make([]extract.Core, 0, len(cores))
	seen := make(map[string]struct{}, len(cores))
	for _, c := range cores {
		key := c.Members.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// BuildReport ranks cores and renders each into a hint.
func BuildReport(cores []extract.Core, platform spec.Platform, r *Renderer) Report {
	ranked := Rank(cores)
	hints := make([]Hint, 0, len(ranked))
	for _, core := range ranked {
		hints = append(hints, Hint{Core: core, Text: r.RenderCore(core, platform)})
	}
	return Report{Platform: platform, Hints: hints}
}
