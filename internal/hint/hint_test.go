package hint

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmcgibbo/conda-hint/internal/extract"
	"github.com/rmcgibbo/conda-hint/internal/oracle"
	"github.com/rmcgibbo/conda-hint/internal/spec"
)

func coreOf(t *testing.T, input spec.ConstraintSet, texts ...string) extract.Core {
	t.Helper()
	set, err := spec.ParseSet(texts...)
	require.NoError(t, err)
	positions := make([]int, set.Len())
	for i := 0; i < set.Len(); i++ {
		positions[i] = input.IndexOf(set.At(i))
		require.GreaterOrEqual(t, positions[i], 0)
	}
	return extract.Core{Members: set, Positions: positions}
}

func TestRank(t *testing.T) {
	input, err := spec.ParseSet("a", "b", "c", "d", "e")
	require.NoError(t, err)

	t.Run("smaller cores first", func(t *testing.T) {
		big := coreOf(t, input, "a", "b", "c")
		small := coreOf(t, input, "d", "e")
		ranked := Rank([]extract.Core{big, small})
		require.Len(t, ranked, 2)
		assert.Equal(t, 2, ranked[0].Members.Len())
	})

	t.Run("ties broken by first differing position", func(t *testing.T) {
		later := coreOf(t, input, "b", "e")
		earlier := coreOf(t, input, "a", "e")
		ranked := Rank([]extract.Core{later, earlier})
		got := [][]string{ranked[0].Members.Strings(), ranked[1].Members.Strings()}
		want := [][]string{{"a", "e"}, {"b", "e"}}
		assert.Empty(t, cmp.Diff(want, got))
	})

	t.Run("duplicates dropped", func(t *testing.T) {
		ranked := Rank([]extract.Core{
			coreOf(t, input, "a", "b"),
			coreOf(t, input, "a", "b"),
		})
		assert.Len(t, ranked, 1)
	})
}

func TestRenderCore(t *testing.T) {
	input, err := spec.ParseSet("numpy 1.9*", "python 3.5*", "statsmodels")
	require.NoError(t, err)
	r := NewRenderer(false)

	t.Run("plain fallback lists every member and the platform", func(t *testing.T) {
		core := coreOf(t, input, "python 3.5*", "statsmodels")
		text := r.RenderCore(core, spec.Linux64)
		assert.Contains(t, text, "linux-64")
		assert.Contains(t, text, "python 3.5*")
		assert.Contains(t, text, "statsmodels")
		assert.NotContains(t, text, "binary matches specs")
	})

	t.Run("structured conflict adds the candidate breakdown", func(t *testing.T) {
		core := coreOf(t, input, "python 3.5*", "statsmodels")
		core.Conflict = &oracle.Conflict{
			Package: "statsmodels",
			Candidates: []oracle.Candidate{{
				Filename: "statsmodels-0.6.1-np19py27_0.tar.bz2",
				Depends: []oracle.DependencyStatus{
					{Spec: "numpy 1.9*", Satisfiable: true},
					{Spec: "python 2.7*", Satisfiable: false},
				},
			}},
		}
		text := r.RenderCore(core, spec.Linux64)
		assert.Contains(t, text, "No statsmodels binary matches specs:")
		assert.Contains(t, text, "statsmodels-0.6.1-np19py27_0: ")
		assert.Contains(t, text, "numpy 1.9*, python 2.7*")
		// the archive suffix is stripped in printouts
		assert.NotContains(t, text, ".tar.bz2")
	})

	t.Run("colored output still contains the specs", func(t *testing.T) {
		color := NewRenderer(true)
		core := coreOf(t, input, "statsmodels")
		text := color.RenderCore(core, spec.Linux64)
		assert.Contains(t, stripANSI(text), "statsmodels")
	})
}

func TestBuildReport(t *testing.T) {
	input, err := spec.ParseSet("a", "b", "c", "d")
	require.NoError(t, err)
	cores := []extract.Core{
		coreOf(t, input, "c", "d"),
		coreOf(t, input, "a", "b"),
	}

	report := BuildReport(cores, spec.OSX64, NewRenderer(false))
	assert.Equal(t, spec.OSX64, report.Platform)
	require.Len(t, report.Hints, 2)
	assert.Empty(t, cmp.Diff([]string{"a", "b"}, report.Hints[0].Core.Members.Strings()))
	assert.Contains(t, report.Hints[0].Text, "osx-64")
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == '\x1b':
			inEscape = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
